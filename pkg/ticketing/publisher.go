package ticketing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/kestrelbot/kestrel/pkg/dataaccess"
	"github.com/kestrelbot/kestrel/pkg/entities"
	"github.com/kestrelbot/kestrel/pkg/gateway"
	"github.com/kestrelbot/kestrel/pkg/logging"
)

// Publisher keeps exactly one live category-selection message in the
// configured destination channel.
type Publisher struct {
	// l is the logger.
	l *slog.Logger

	// gw is the channel gateway.
	gw gateway.ChannelGateway

	// panels is the panel store.
	panels dataaccess.PanelDal

	// settings is the settings store.
	settings dataaccess.SettingsDal

	// cfg holds deployment identifiers and fallbacks.
	cfg Config
}

// NewPublisher creates a new panel publisher.
func NewPublisher(l *slog.Logger, gw gateway.ChannelGateway, panels dataaccess.PanelDal, settings dataaccess.SettingsDal, cfg Config) *Publisher {
	return &Publisher{
		l:        l,
		gw:       gw,
		panels:   panels,
		settings: settings,
		cfg:      cfg,
	}
}

// Republish replaces the live selection message with one built from the
// current panel set. Publishing is best-effort and never fatal: a missing
// destination channel aborts silently, a missing old message is not an error,
// and the persisted message id is always the id of the most recent send.
func (p *Publisher) Republish(ctx context.Context) error {
	settings, err := p.settings.GetSettings(ctx)
	if err != nil {
		if !errors.Is(err, dataaccess.ErrNotFound) {
			return fmt.Errorf("error getting settings: %w", err)
		}
		settings = new(entities.Settings)
	}

	channelID := settings.PanelChannelID
	if channelID == "" {
		channelID = p.cfg.DefaultPanelChannelID
	}

	channel, err := p.gw.Channel(ctx, channelID)
	if err != nil {
		p.l.Warn("Error resolving panel channel", slog.String(logging.KeyError, err.Error()))
		return nil
	} else if channel == nil {
		p.l.Warn("Panel channel not found", slog.String("channel_id", channelID))
		return nil
	}

	// Delete the previous message if we still know it. It may already be gone,
	// deleted by an operator or a prior run.
	if settings.LastPanelMessageID != "" {
		if err := p.gw.DeleteMessage(ctx, channel.ID, settings.LastPanelMessageID); err != nil {
			p.l.Info("Could not delete old panel message",
				slog.String("message_id", settings.LastPanelMessageID),
				slog.String(logging.KeyError, err.Error()))
		}
	}

	panels, err := p.panels.ListPanels(ctx)
	if err != nil {
		return fmt.Errorf("error listing panels: %w", err)
	}

	// A selection menu with zero options is never sent.
	if len(panels) == 0 {
		p.l.Info("No panels to publish")
		return nil
	}

	msg, err := p.gw.SendComplex(ctx, channel.ID, buildPanelMessage(panels))
	if err != nil {
		return fmt.Errorf("error sending panel message: %w", err)
	}

	if err := p.settings.SetLastPanelMessageID(ctx, msg.ID); err != nil {
		return fmt.Errorf("error persisting panel message id: %w", err)
	}

	p.l.Info("Published panel message", slog.String("message_id", msg.ID))
	return nil
}

func buildPanelMessage(panels []*entities.Panel) *discordgo.MessageSend {
	options := make([]discordgo.SelectMenuOption, 0, len(panels))
	for _, panel := range panels {
		option := discordgo.SelectMenuOption{
			Label:       panel.Title,
			Description: panel.Description,
			Value:       panel.OptionValue(),
		}
		if panel.Emoji != "" {
			option.Emoji = &discordgo.ComponentEmoji{Name: panel.Emoji}
		}
		options = append(options, option)
	}

	embed := &discordgo.MessageEmbed{
		Title: "Support Tickets",
		Color: 0xff6b35,
		Description: "Please choose the option that best matches your issue from the menu below.\n" +
			"Once you select, a private ticket channel will be created where our team can assist you.",
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:  "How it works:",
				Value: "• Pick a category from the menu\n• A new ticket will open\n• Our staff will reply as soon as possible",
			},
		},
	}

	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.SelectMenu{
						MenuType:    discordgo.StringSelectMenu,
						CustomID:    SelectCategoryID,
						Placeholder: "Choose a category",
						Options:     options,
					},
				},
			},
		},
	}
}
