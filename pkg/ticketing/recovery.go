package ticketing

import (
	"context"
	"log/slog"

	"github.com/kestrelbot/kestrel/pkg/dataaccess"
	"github.com/kestrelbot/kestrel/pkg/gateway"
	"github.com/kestrelbot/kestrel/pkg/logging"
)

// Recovery reconciles persisted open tickets against live platform state
// after a process restart. It never assumes the previous process shut down
// cleanly, and a failure on one ticket never stops the rest.
type Recovery struct {
	// l is the logger.
	l *slog.Logger

	// gw is the channel gateway.
	gw gateway.ChannelGateway

	// tickets is the ticket store.
	tickets dataaccess.TicketDal

	// publisher republishes the selection message once reconciliation is done.
	publisher *Publisher

	// cfg holds deployment identifiers and fallbacks.
	cfg Config
}

// NewRecovery creates a new recovery coordinator.
func NewRecovery(l *slog.Logger, gw gateway.ChannelGateway, tickets dataaccess.TicketDal, publisher *Publisher, cfg Config) *Recovery {
	return &Recovery{
		l:         l,
		gw:        gw,
		tickets:   tickets,
		publisher: publisher,
		cfg:       cfg,
	}
}

// Run executes the reconciliation pass once. Open tickets whose channel no
// longer resolves are logged and left open in the store; no automatic status
// correction is performed. The final republish runs unconditionally so every
// restart ends with a fresh, correctly populated selection message.
func (r *Recovery) Run(ctx context.Context) {
	tickets, err := r.tickets.ListOpenTickets(ctx)
	if err != nil {
		r.l.Error("Error listing open tickets", slog.String(logging.KeyError, err.Error()))
		tickets = nil
	}

	r.l.Info("Reconnecting to open tickets", slog.Int("count", len(tickets)))

	for _, ticket := range tickets {
		if err := r.reconcile(ctx, ticket.ID, ticket.ChannelID); err != nil {
			r.l.Error("Error reconnecting to ticket",
				slog.Int("ticket_id", ticket.ID),
				slog.String(logging.KeyError, err.Error()))
		}
	}

	if err := r.publisher.Republish(ctx); err != nil {
		r.l.Error("Error republishing panel", slog.String(logging.KeyError, err.Error()))
	}
}

func (r *Recovery) reconcile(ctx context.Context, ticketID int, channelID string) error {
	channel, err := r.gw.Channel(ctx, channelID)
	if err != nil {
		return err
	}
	if channel == nil {
		// The channel is gone but the ticket row stays open. Surfaced here for
		// manual reconciliation.
		r.l.Warn("Open ticket has no resolvable channel",
			slog.Int("ticket_id", ticketID),
			slog.String("channel_id", channelID))
		return nil
	}

	if channel.ID == r.cfg.AutoPinChannelID {
		if err := r.repinLatest(ctx, channel.ID); err != nil {
			r.l.Warn("Could not re-pin message",
				slog.String("channel_id", channel.ID),
				slog.String(logging.KeyError, err.Error()))
		}
	}

	r.l.Debug("Reconnected to open ticket", slog.Int("ticket_id", ticketID))
	return nil
}

func (r *Recovery) repinLatest(ctx context.Context, channelID string) error {
	msgs, err := r.gw.ChannelMessages(ctx, channelID, 1)
	if err != nil {
		return err
	}
	if len(msgs) == 0 || msgs[0].Pinned {
		return nil
	}
	return r.gw.PinMessage(ctx, channelID, msgs[0].ID)
}
