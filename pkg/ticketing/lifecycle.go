package ticketing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/kestrelbot/kestrel/pkg/custom"
	"github.com/kestrelbot/kestrel/pkg/dataaccess"
	"github.com/kestrelbot/kestrel/pkg/entities"
	"github.com/kestrelbot/kestrel/pkg/gateway"
	"github.com/kestrelbot/kestrel/pkg/logging"
	"github.com/kestrelbot/kestrel/pkg/messages"
)

// Lifecycle governs a ticket from creation through claim to closure. It holds
// no durable state; each transition re-reads the store.
type Lifecycle struct {
	// l is the logger.
	l *slog.Logger

	// gw is the channel gateway.
	gw gateway.ChannelGateway

	// tickets is the ticket store.
	tickets dataaccess.TicketDal

	// panels is the panel store.
	panels dataaccess.PanelDal

	// settings is the settings store.
	settings dataaccess.SettingsDal

	// cfg holds deployment identifiers and fallbacks.
	cfg Config

	// now returns the current time.
	now func() time.Time

	// schedule runs fn after d. Closure uses it to delay channel deletion.
	schedule func(d time.Duration, fn func())
}

// NewLifecycle creates a new ticket lifecycle.
func NewLifecycle(l *slog.Logger, gw gateway.ChannelGateway, tickets dataaccess.TicketDal, panels dataaccess.PanelDal, settings dataaccess.SettingsDal, cfg Config) *Lifecycle {
	return &Lifecycle{
		l:        l,
		gw:       gw,
		tickets:  tickets,
		panels:   panels,
		settings: settings,
		cfg:      cfg,
		now:      time.Now,
		schedule: func(d time.Duration, fn func()) { time.AfterFunc(d, fn) },
	}
}

func (l *Lifecycle) currentSettings(ctx context.Context) *entities.Settings {
	settings, err := l.settings.GetSettings(ctx)
	if err != nil {
		if !errors.Is(err, dataaccess.ErrNotFound) {
			l.l.Warn("Error getting settings, using defaults", slog.String(logging.KeyError, err.Error()))
		}
		return new(entities.Settings)
	}
	return settings
}

// staffRoles returns the configured staff role set, falling back to the
// hardcoded base role when none are configured.
func (l *Lifecycle) staffRoles(settings *entities.Settings) []string {
	if len(settings.StaffRoles) > 0 {
		return settings.StaffRoles
	}
	return []string{l.cfg.DefaultStaffRoleID}
}

// OpenTicket is the none -> open transition. The channel is created before the
// ticket row is persisted: a failed channel creation leaves no orphan row,
// while a failed row write can leave an orphan channel, which is accepted and
// surfaced by the recovery pass.
func (l *Lifecycle) OpenTicket(ctx context.Context, userID, username string, panelID int) (*entities.Ticket, *discordgo.Channel, error) {
	settings := l.currentSettings(ctx)

	// An unknown panel id is not an error; the category just displays as a
	// generic label.
	panel, err := l.panels.GetPanel(ctx, panelID)
	if err != nil && !errors.Is(err, dataaccess.ErrNotFound) {
		return nil, nil, fmt.Errorf("error getting panel: %w", err)
	}

	// The id is allocated before the channel exists so a failed allocation
	// leaves nothing behind. Ids burned by later failures leave gaps in the
	// sequence, which is fine.
	ticketID, err := l.tickets.NextTicketID(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("error allocating ticket id: %w", err)
	}

	overwrites := []*discordgo.PermissionOverwrite{
		// Deny @everyone from seeing the ticket.
		{
			ID:   l.cfg.GuildID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel,
		},
		// The creator of the ticket can see the ticket.
		{
			ID:    userID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages,
		},
	}
	for _, roleID := range l.staffRoles(settings) {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    roleID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages,
		})
	}
	if panel != nil && panel.SupportTeamRole != "" && !contains(l.staffRoles(settings), panel.SupportTeamRole) {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    panel.SupportTeamRole,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages,
		})
	}

	channel, err := l.gw.CreateGuildChannel(ctx, l.cfg.GuildID, discordgo.GuildChannelCreateData{
		Name:                 entities.TicketChannelName(username, l.now().UnixMilli()),
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                fmt.Sprintf("Ticket created by %s", username),
		ParentID:             settings.CategoryOpenID,
		PermissionOverwrites: overwrites,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("error creating ticket channel: %w", err)
	}

	ticket := &entities.Ticket{
		ID:          ticketID,
		PanelID:     panelID,
		ChannelID:   channel.ID,
		CreatorID:   userID,
		CreatorName: username,
		Status:      entities.TicketStatusOpen,
		Priority:    entities.PriorityMedium,
		CreatedAt:   custom.Datetime(l.now().UTC()),
	}

	if err := l.tickets.SaveTicket(ctx, ticket); err != nil {
		// The channel already exists with no backing record. This is the known
		// recoverable inconsistency; the recovery pass surfaces it.
		return nil, nil, fmt.Errorf("error saving ticket for channel %s: %w", channel.ID, err)
	}

	welcome, err := l.gw.SendComplex(ctx, channel.ID, l.buildWelcomeMessage(settings, panel, userID))
	if err != nil {
		l.l.Error("Error sending welcome message", slog.String(logging.KeyError, err.Error()))
	} else if channel.ID == l.cfg.AutoPinChannelID {
		if err := l.gw.PinMessage(ctx, channel.ID, welcome.ID); err != nil {
			l.l.Warn("Could not pin welcome message", slog.String(logging.KeyError, err.Error()))
		}
	}

	return ticket, channel, nil
}

func (l *Lifecycle) buildWelcomeMessage(settings *entities.Settings, panel *entities.Panel, userID string) *discordgo.MessageSend {
	welcome := settings.WelcomeMessage
	if welcome == "" {
		welcome = l.cfg.DefaultWelcomeMessage
	}

	category := "Support Request"
	if panel != nil {
		category = panel.Title
	}

	description := fmt.Sprintf("Hello <@%s>! Your support ticket has been created.\n\n%s", userID, welcome)

	embed := &discordgo.MessageEmbed{
		Title:       "Support Ticket Created",
		Description: description,
		Color:       0x5865F2,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Category", Value: category},
		},
	}
	if panel != nil && panel.CreatedMessage != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Note", Value: panel.CreatedMessage,
		})
	}

	return &discordgo.MessageSend{
		Content: fmt.Sprintf("<@%s>", userID),
		Embeds:  []*discordgo.MessageEmbed{embed},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Close Ticket",
						Style:    discordgo.DangerButton,
						CustomID: CloseTicketButtonID,
					},
					discordgo.Button{
						Label:    "Claim Ticket",
						Style:    discordgo.PrimaryButton,
						CustomID: ClaimTicketButtonID,
					},
				},
			},
		},
	}
}

// ClaimResult is the outcome of a claim attempt.
type ClaimResult struct {
	// Allowed is false when the acting user holds none of the staff roles.
	Allowed bool
}

// ClaimTicket is the claim transition: open -> open, metadata only. The role
// check runs against the live role membership of the guild member, never a
// cached value. A permitted claim is announced in-channel; the announcement is
// the user-facing record of who claimed.
func (l *Lifecycle) ClaimTicket(ctx context.Context, channelID, userID string) (*ClaimResult, error) {
	ticket, err := l.tickets.GetTicketByChannel(ctx, channelID)
	if err != nil {
		if errors.Is(err, dataaccess.ErrNotFound) {
			return nil, fmt.Errorf("no ticket for channel %s: %w", channelID, err)
		}
		return nil, fmt.Errorf("error getting ticket: %w", err)
	}

	member, err := l.gw.GuildMember(ctx, l.cfg.GuildID, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting member: %w", err)
	}

	settings := l.currentSettings(ctx)
	if !hasAnyRole(member, l.claimRoles(ctx, settings, ticket)) {
		return &ClaimResult{Allowed: false}, nil
	}

	if _, err := l.gw.SendMessage(ctx, channelID, fmt.Sprintf("Ticket claimed by <@%s>", userID)); err != nil {
		return nil, fmt.Errorf("error announcing claim: %w", err)
	}

	// The announcement above is the durable record; the row update is
	// best-effort so the dashboard can show the claimer.
	ticket.ClaimerID = userID
	if err := l.tickets.SaveTicket(ctx, ticket); err != nil {
		l.l.Warn("Could not persist claimer", slog.String(logging.KeyError, err.Error()))
	}

	return &ClaimResult{Allowed: true}, nil
}

// claimRoles is the role set permitted to claim a ticket: the staff roles plus
// the support team role of the panel the ticket was opened from. The panel role
// is included because those members can already see and work the channel.
func (l *Lifecycle) claimRoles(ctx context.Context, settings *entities.Settings, ticket *entities.Ticket) []string {
	roles := l.staffRoles(settings)

	panel, err := l.panels.GetPanel(ctx, ticket.PanelID)
	if err != nil {
		if !errors.Is(err, dataaccess.ErrNotFound) {
			l.l.Warn("Error getting panel for claim check", slog.String(logging.KeyError, err.Error()))
		}
		return roles
	}
	if panel.SupportTeamRole != "" && !contains(roles, panel.SupportTeamRole) {
		roles = append(roles, panel.SupportTeamRole)
	}
	return roles
}

func hasAnyRole(member *discordgo.Member, roleIDs []string) bool {
	for _, held := range member.Roles {
		for _, want := range roleIDs {
			if held == want {
				return true
			}
		}
	}
	return false
}

func contains(s []string, v string) bool {
	for _, e := range s {
		if e == v {
			return true
		}
	}
	return false
}

// CloseTicket is the open -> closed transition. Resolving no ticket for the
// channel is a safe no-op, so a double close on an already-cleaned-up channel
// does nothing. Transcript delivery runs against three independent
// destinations, each best-effort; none of them can block closure.
func (l *Lifecycle) CloseTicket(ctx context.Context, channelID string) error {
	ticket, err := l.tickets.GetTicketByChannel(ctx, channelID)
	if err != nil {
		if errors.Is(err, dataaccess.ErrNotFound) {
			l.l.Info("Close on channel with no ticket, ignoring", slog.String("channel_id", channelID))
			return nil
		}
		return fmt.Errorf("error getting ticket: %w", err)
	}

	closed, err := l.tickets.CloseTicket(ctx, ticket.ID, l.now().UTC())
	if err != nil {
		return fmt.Errorf("error closing ticket: %w", err)
	}

	l.deliverTranscript(ctx, closed, channelID)

	if _, err := l.gw.SendMessage(ctx, channelID, messages.MsgTicketClosing); err != nil {
		l.l.Warn("Could not announce closure", slog.String(logging.KeyError, err.Error()))
	}

	// Announce, wait, delete: participants get a last chance to read the
	// closure notice before the channel disappears.
	l.schedule(l.cfg.DeleteDelay, func() {
		if err := l.gw.DeleteChannel(context.Background(), channelID); err != nil {
			l.l.Warn("Could not delete ticket channel",
				slog.String("channel_id", channelID),
				slog.String(logging.KeyError, err.Error()))
		}
	})

	return nil
}

// deliverTranscript generates the transcript and attempts delivery to the
// creator's DMs, the configured transcript channel, and the hardcoded fallback
// channel. Each failure is logged independently and never blocks the others.
func (l *Lifecycle) deliverTranscript(ctx context.Context, ticket *entities.Ticket, channelID string) {
	msgs, err := l.gw.ChannelMessages(ctx, channelID, transcriptWindow)
	if err != nil {
		l.l.Error("Error fetching messages for transcript", slog.String(logging.KeyError, err.Error()))
		return
	}

	channelName := ""
	if channel, err := l.gw.Channel(ctx, channelID); err == nil && channel != nil {
		channelName = channel.Name
	}

	html := RenderTranscript(ticket, channelName, msgs, l.gw.BotUserID(), l.now())
	fileName := TranscriptFileName(ticket.ID)

	if err := l.gw.DirectMessage(ctx, ticket.CreatorID, &discordgo.MessageSend{
		Content: messages.MsgTranscriptDM,
		Files:   []*discordgo.File{transcriptFile(fileName, html)},
	}); err != nil {
		l.l.Warn("Could not DM transcript", slog.String(logging.KeyError, err.Error()))
	}

	settings := l.currentSettings(ctx)
	if settings.TranscriptChannelID != "" {
		l.sendTranscriptTo(ctx, settings.TranscriptChannelID, ticket, fileName, html, "Ticket Closed", 0xff6b35)
	}

	l.sendTranscriptTo(ctx, l.cfg.FallbackTranscriptChannelID, ticket, fileName, html, "Ticket Transcript", 0x5865f2)
}

func (l *Lifecycle) sendTranscriptTo(ctx context.Context, channelID string, ticket *entities.Ticket, fileName, html, title string, color int) {
	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: fmt.Sprintf("Ticket #%d from <@%s> has been closed.", ticket.ID, ticket.CreatorID),
		Color:       color,
	}

	if _, err := l.gw.SendComplex(ctx, channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
		Files:  []*discordgo.File{transcriptFile(fileName, html)},
	}); err != nil {
		l.l.Warn("Could not deliver transcript",
			slog.String("channel_id", channelID),
			slog.String(logging.KeyError, err.Error()))
	}
}

func transcriptFile(name, html string) *discordgo.File {
	return &discordgo.File{
		Name:        name,
		ContentType: "text/html",
		Reader:      strings.NewReader(html),
	}
}
