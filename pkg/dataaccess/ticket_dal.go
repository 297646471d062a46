package dataaccess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kestrelbot/kestrel/pkg/custom"
	"github.com/kestrelbot/kestrel/pkg/dataaccess/monitoring"
	"github.com/kestrelbot/kestrel/pkg/entities"
	"github.com/kestrelbot/kestrel/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ticketDalName = "ticket_dal"

type TicketDal interface {
	// ListTickets returns all tickets, any status, newest first.
	ListTickets(ctx context.Context) ([]*entities.Ticket, error)

	// ListOpenTickets returns all tickets with status open.
	ListOpenTickets(ctx context.Context) ([]*entities.Ticket, error)

	// GetTicketByChannel gets the ticket bound to a channel.
	GetTicketByChannel(ctx context.Context, channelID string) (*entities.Ticket, error)

	// NextTicketID allocates the next ticket id. Allocation is atomic, so
	// concurrent callers never receive the same id.
	NextTicketID(ctx context.Context) (int, error)

	// SaveTicket upserts a ticket keyed by its channel.
	SaveTicket(ctx context.Context, ticket *entities.Ticket) error

	// CloseTicket marks the ticket closed and stamps the closure time. The
	// transition is one-way; reopening is not supported.
	CloseTicket(ctx context.Context, id int, closedAt time.Time) (*entities.Ticket, error)

	// SetPriority updates the ticket priority.
	SetPriority(ctx context.Context, id int, priority string) (*entities.Ticket, error)
}

type ticketDal struct {
	// l is the logger.
	l *slog.Logger

	// client is the database.
	client *mongo.Client
}

// NewTicketDal creates a new ticket data access layer.
func NewTicketDal(l *slog.Logger) TicketDal {
	l = l.With(slog.String(logging.KeyDal, ticketDalName))

	if MongoDB == nil {
		l.Warn("MongoDB is nil, this can cause a panic. Proceeding...")
	}

	return &ticketDal{
		l:      l,
		client: MongoDB,
	}
}

func (d *ticketDal) collection() *mongo.Collection {
	return d.client.Database(mongoDatabase).Collection(collectionTickets)
}

func (d *ticketDal) ListTickets(ctx context.Context) ([]*entities.Ticket, error) {
	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "list_tickets", mongoDatabase, collectionTickets).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "list_tickets", mongoDatabase, collectionTickets))
	defer t.ObserveDuration()

	opts := options.Find().SetSort(bson.M{"created_at": -1})
	cur, err := d.collection().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing tickets: %w", err)
	}

	var tickets []*entities.Ticket
	if err := cur.All(ctx, &tickets); err != nil {
		return nil, fmt.Errorf("error decoding tickets: %w", err)
	}
	return tickets, nil
}

func (d *ticketDal) ListOpenTickets(ctx context.Context) ([]*entities.Ticket, error) {
	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "list_open_tickets", mongoDatabase, collectionTickets).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "list_open_tickets", mongoDatabase, collectionTickets))
	defer t.ObserveDuration()

	cur, err := d.collection().Find(ctx, bson.M{"status": entities.TicketStatusOpen})
	if err != nil {
		return nil, fmt.Errorf("error listing open tickets: %w", err)
	}

	var tickets []*entities.Ticket
	if err := cur.All(ctx, &tickets); err != nil {
		return nil, fmt.Errorf("error decoding tickets: %w", err)
	}
	return tickets, nil
}

func (d *ticketDal) GetTicketByChannel(ctx context.Context, channelID string) (*entities.Ticket, error) {
	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "get_ticket_by_channel", mongoDatabase, collectionTickets).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "get_ticket_by_channel", mongoDatabase, collectionTickets))
	defer t.ObserveDuration()

	ticket := new(entities.Ticket)
	if err := d.collection().FindOne(ctx, bson.M{"channel_id": channelID}).Decode(ticket); err != nil {
		return nil, fmt.Errorf("error getting ticket: %w", notFound(err))
	}
	return ticket, nil
}

func (d *ticketDal) NextTicketID(ctx context.Context) (int, error) {
	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "next_ticket_id", mongoDatabase, collectionCounters).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "next_ticket_id", mongoDatabase, collectionCounters))
	defer t.ObserveDuration()

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	counters := d.client.Database(mongoDatabase).Collection(collectionCounters)

	counter := new(struct {
		Seq int `bson:"seq"`
	})
	err := counters.FindOneAndUpdate(ctx, bson.M{"_id": counterTickets}, bson.M{"$inc": bson.M{"seq": 1}}, opts).Decode(counter)
	if err != nil {
		return 0, fmt.Errorf("error allocating ticket id: %w", err)
	}
	return counter.Seq, nil
}

func (d *ticketDal) SaveTicket(ctx context.Context, ticket *entities.Ticket) error {
	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "save_ticket", mongoDatabase, collectionTickets).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "save_ticket", mongoDatabase, collectionTickets))
	defer t.ObserveDuration()

	opts := options.Update().SetUpsert(true)
	_, err := d.collection().UpdateOne(ctx, bson.M{"channel_id": ticket.ChannelID}, bson.M{"$set": ticket}, opts)
	if err != nil {
		return fmt.Errorf("error saving ticket: %w", err)
	}
	return nil
}

func (d *ticketDal) CloseTicket(ctx context.Context, id int, closedAt time.Time) (*entities.Ticket, error) {
	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "close_ticket", mongoDatabase, collectionTickets).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "close_ticket", mongoDatabase, collectionTickets))
	defer t.ObserveDuration()

	stamp := custom.Datetime(closedAt)
	update := bson.M{"$set": bson.M{
		"status":    entities.TicketStatusClosed,
		"closed_at": &stamp,
	}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	ticket := new(entities.Ticket)
	err := d.collection().FindOneAndUpdate(ctx, bson.M{"id": id}, update, opts).Decode(ticket)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("error closing ticket: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("error closing ticket: %w", err)
	}
	return ticket, nil
}

func (d *ticketDal) SetPriority(ctx context.Context, id int, priority string) (*entities.Ticket, error) {
	monitoring.MongoTotalRequests.WithLabelValues(ticketDalName, "set_priority", mongoDatabase, collectionTickets).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(ticketDalName, "set_priority", mongoDatabase, collectionTickets))
	defer t.ObserveDuration()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	ticket := new(entities.Ticket)
	err := d.collection().FindOneAndUpdate(ctx, bson.M{"id": id}, bson.M{"$set": bson.M{"priority": priority}}, opts).Decode(ticket)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("error setting priority: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("error setting priority: %w", err)
	}
	return ticket, nil
}
