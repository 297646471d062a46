package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// discordGateway implements ChannelGateway over a discordgo session.
type discordGateway struct {
	s *discordgo.Session
}

// NewDiscordGateway wraps a discord session in the ChannelGateway contract.
func NewDiscordGateway(s *discordgo.Session) ChannelGateway {
	return &discordGateway{s: s}
}

// isNotFound reports whether the REST error is a 404 or an unknown-entity
// error code. A general error is thrown by the API when a 404 is returned.
func isNotFound(err error) bool {
	er := new(discordgo.RESTError)
	if !errors.As(err, &er) {
		return false
	}
	if er.Response != nil && er.Response.StatusCode == 404 {
		return true
	}
	if er.Message == nil {
		return false
	}
	switch er.Message.Code {
	case discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownMember, discordgo.ErrCodeGeneralError:
		return true
	}
	return false
}

func (g *discordGateway) CreateGuildChannel(ctx context.Context, guildID string, data discordgo.GuildChannelCreateData) (*discordgo.Channel, error) {
	ch, err := g.s.GuildChannelCreateComplex(guildID, data, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("error creating channel: %w", err)
	}
	return ch, nil
}

func (g *discordGateway) Channel(ctx context.Context, channelID string) (*discordgo.Channel, error) {
	ch, err := g.s.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting channel: %w", err)
	}
	return ch, nil
}

func (g *discordGateway) ChannelMessages(ctx context.Context, channelID string, limit int) ([]*discordgo.Message, error) {
	msgs, err := g.s.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("error getting messages: %w", err)
	}
	return msgs, nil
}

func (g *discordGateway) SendMessage(ctx context.Context, channelID, content string) (*discordgo.Message, error) {
	msg, err := g.s.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("error sending message: %w", err)
	}
	return msg, nil
}

func (g *discordGateway) SendComplex(ctx context.Context, channelID string, data *discordgo.MessageSend) (*discordgo.Message, error) {
	msg, err := g.s.ChannelMessageSendComplex(channelID, data, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("error sending message: %w", err)
	}
	return msg, nil
}

func (g *discordGateway) PinMessage(ctx context.Context, channelID, messageID string) error {
	if err := g.s.ChannelMessagePin(channelID, messageID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("error pinning message: %w", err)
	}
	return nil
}

func (g *discordGateway) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	if err := g.s.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("error deleting message: %w", err)
	}
	return nil
}

func (g *discordGateway) DeleteChannel(ctx context.Context, channelID string) error {
	if _, err := g.s.ChannelDelete(channelID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("error deleting channel: %w", err)
	}
	return nil
}

func (g *discordGateway) GuildMember(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	member, err := g.s.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("error getting member: %w", err)
	}
	return member, nil
}

func (g *discordGateway) DirectMessage(ctx context.Context, userID string, data *discordgo.MessageSend) error {
	dm, err := g.s.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("error creating DM channel: %w", err)
	}
	if _, err := g.s.ChannelMessageSendComplex(dm.ID, data, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("error sending DM: %w", err)
	}
	return nil
}

func (g *discordGateway) BotUserID() string {
	if g.s.State != nil && g.s.State.User != nil {
		return g.s.State.User.ID
	}
	return ""
}
