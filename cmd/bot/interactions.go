package main

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/bwmarrin/discordgo"
	"github.com/kestrelbot/kestrel/pkg/entities"
	"github.com/kestrelbot/kestrel/pkg/logging"
	"github.com/kestrelbot/kestrel/pkg/messages"
	"github.com/kestrelbot/kestrel/pkg/ticketing"
	"github.com/prometheus/client_golang/prometheus"
)

// interactionKind is the closed set of component interactions the bot acts
// on. A custom id is resolved to a kind exactly once, at the gateway boundary.
type interactionKind int

const (
	kindUnknown interactionKind = iota
	kindOpenTicket
	kindClaimTicket
	kindCloseTicket
)

func (k interactionKind) String() string {
	switch k {
	case kindOpenTicket:
		return "open_ticket"
	case kindClaimTicket:
		return "claim_ticket"
	case kindCloseTicket:
		return "close_ticket"
	default:
		return "unknown"
	}
}

// classifyInteraction maps a component interaction onto its kind. For
// category selections the selected panel id comes back alongside the kind.
func classifyInteraction(data discordgo.MessageComponentInteractionData) (interactionKind, int) {
	switch data.CustomID {
	case ticketing.SelectCategoryID:
		if len(data.Values) == 0 {
			return kindUnknown, 0
		}
		panelID, err := entities.ParsePanelOptionValue(data.Values[0])
		if err != nil {
			return kindUnknown, 0
		}
		return kindOpenTicket, panelID
	case ticketing.ClaimTicketButtonID:
		return kindClaimTicket, 0
	case ticketing.CloseTicketButtonID:
		return kindCloseTicket, 0
	default:
		return kindUnknown, 0
	}
}

func (a *App) interactionHandler() func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		if i.Type != discordgo.InteractionMessageComponent {
			return
		}

		// A failed interaction never takes the bot down and always leaves the
		// user with a reply, however generic.
		defer func() {
			if rec := recover(); rec != nil {
				a.Error("Panic in interaction handler",
					slog.String(logging.KeyError, fmt.Sprintf("%v", rec)),
					slog.String("stack", string(debug.Stack())),
				)
				a.respondError(i)
			}
		}()

		kind, panelID := classifyInteraction(i.MessageComponentData())
		if kind == kindUnknown {
			a.Debug("Ignoring unknown component interaction",
				slog.String("custom_id", i.MessageComponentData().CustomID))
			return
		}

		t := prometheus.NewTimer(InteractionDuration.WithLabelValues(kind.String()))
		defer t.ObserveDuration()

		var err error
		switch kind {
		case kindOpenTicket:
			err = a.handleOpenTicket(i, panelID)
		case kindClaimTicket:
			err = a.handleClaimTicket(i)
		case kindCloseTicket:
			err = a.handleCloseTicket(i)
		}

		if err != nil {
			a.Error(fmt.Sprintf("Error handling %s interaction", kind),
				slog.String(logging.KeyError, err.Error()))
			a.respondError(i)
		}
	}
}

// handleOpenTicket acknowledges the selection immediately so the menu resets,
// then opens the ticket and reports the new channel in an ephemeral follow-up.
func (a *App) handleOpenTicket(i *discordgo.InteractionCreate, panelID int) error {
	if err := a.deferUpdate(i); err != nil {
		return fmt.Errorf("error acknowledging interaction: %w", err)
	}

	user := interactionUser(i)
	if user == nil {
		return fmt.Errorf("interaction has no user")
	}

	ticket, channel, err := a.lifecycle.OpenTicket(context.Background(), user.ID, user.Username, panelID)
	if err != nil {
		return fmt.Errorf("error opening ticket: %w", err)
	}

	TotalOpenedTickets.Inc()
	a.Info("Opened ticket",
		slog.Int("ticket_id", ticket.ID),
		slog.String("channel_id", channel.ID),
		slog.String("user_id", user.ID),
	)

	// The ticket is open either way; a lost confirmation is not an error.
	if err := a.followupEphemeral(i, fmt.Sprintf("Your support ticket has been created: <#%s>", channel.ID)); err != nil {
		a.Warn("Could not send open confirmation", slog.String(logging.KeyError, err.Error()))
	}
	return nil
}

func (a *App) handleClaimTicket(i *discordgo.InteractionCreate) error {
	user := interactionUser(i)
	if user == nil {
		return fmt.Errorf("interaction has no user")
	}

	res, err := a.lifecycle.ClaimTicket(context.Background(), i.ChannelID, user.ID)
	if err != nil {
		return fmt.Errorf("error claiming ticket: %w", err)
	}

	if !res.Allowed {
		return a.respondEphemeral(i, messages.MsgClaimDenied)
	}
	return a.respondEphemeral(i, messages.MsgClaimConfirmed)
}

func (a *App) handleCloseTicket(i *discordgo.InteractionCreate) error {
	if err := a.deferUpdate(i); err != nil {
		return fmt.Errorf("error acknowledging interaction: %w", err)
	}

	if err := a.lifecycle.CloseTicket(context.Background(), i.ChannelID); err != nil {
		return fmt.Errorf("error closing ticket: %w", err)
	}

	TotalClosedTickets.Inc()
	return nil
}

// interactionUser resolves the acting user for both guild and DM contexts.
func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}
