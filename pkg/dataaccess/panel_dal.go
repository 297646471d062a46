package dataaccess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kestrelbot/kestrel/pkg/dataaccess/monitoring"
	"github.com/kestrelbot/kestrel/pkg/entities"
	"github.com/kestrelbot/kestrel/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const panelDalName = "panel_dal"

type PanelDal interface {
	// ListPanels returns all panels.
	ListPanels(ctx context.Context) ([]*entities.Panel, error)

	// GetPanel gets a panel by ID.
	GetPanel(ctx context.Context, id int) (*entities.Panel, error)

	// SavePanel upserts a panel keyed by its ID.
	SavePanel(ctx context.Context, panel *entities.Panel) error

	// DeletePanel deletes a panel by ID. Tickets linked to the panel keep
	// their reference.
	DeletePanel(ctx context.Context, id int) error

	// NextPanelID returns the next free panel ID.
	NextPanelID(ctx context.Context) (int, error)
}

type panelDal struct {
	// l is the logger.
	l *slog.Logger

	// client is the database.
	client *mongo.Client
}

// NewPanelDal creates a new panel data access layer.
func NewPanelDal(l *slog.Logger) PanelDal {
	l = l.With(slog.String(logging.KeyDal, panelDalName))

	if MongoDB == nil {
		l.Warn("MongoDB is nil, this can cause a panic. Proceeding...")
	}

	return &panelDal{
		l:      l,
		client: MongoDB,
	}
}

func (d *panelDal) collection() *mongo.Collection {
	return d.client.Database(mongoDatabase).Collection(collectionPanels)
}

func (d *panelDal) ListPanels(ctx context.Context) ([]*entities.Panel, error) {
	monitoring.MongoTotalRequests.WithLabelValues(panelDalName, "list_panels", mongoDatabase, collectionPanels).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(panelDalName, "list_panels", mongoDatabase, collectionPanels))
	defer t.ObserveDuration()

	opts := options.Find().SetSort(bson.M{"id": 1})
	cur, err := d.collection().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing panels: %w", err)
	}

	var panels []*entities.Panel
	if err := cur.All(ctx, &panels); err != nil {
		return nil, fmt.Errorf("error decoding panels: %w", err)
	}
	return panels, nil
}

func (d *panelDal) GetPanel(ctx context.Context, id int) (*entities.Panel, error) {
	monitoring.MongoTotalRequests.WithLabelValues(panelDalName, "get_panel", mongoDatabase, collectionPanels).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(panelDalName, "get_panel", mongoDatabase, collectionPanels))
	defer t.ObserveDuration()

	panel := new(entities.Panel)
	if err := d.collection().FindOne(ctx, bson.M{"id": id}).Decode(panel); err != nil {
		return nil, fmt.Errorf("error getting panel: %w", notFound(err))
	}
	return panel, nil
}

func (d *panelDal) SavePanel(ctx context.Context, panel *entities.Panel) error {
	monitoring.MongoTotalRequests.WithLabelValues(panelDalName, "save_panel", mongoDatabase, collectionPanels).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(panelDalName, "save_panel", mongoDatabase, collectionPanels))
	defer t.ObserveDuration()

	opts := options.Update().SetUpsert(true)
	_, err := d.collection().UpdateOne(ctx, bson.M{"id": panel.ID}, bson.M{"$set": panel}, opts)
	if err != nil {
		return fmt.Errorf("error saving panel: %w", err)
	}
	return nil
}

func (d *panelDal) DeletePanel(ctx context.Context, id int) error {
	monitoring.MongoTotalRequests.WithLabelValues(panelDalName, "delete_panel", mongoDatabase, collectionPanels).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(panelDalName, "delete_panel", mongoDatabase, collectionPanels))
	defer t.ObserveDuration()

	if _, err := d.collection().DeleteOne(ctx, bson.M{"id": id}); err != nil {
		return fmt.Errorf("error deleting panel: %w", err)
	}
	return nil
}

func (d *panelDal) NextPanelID(ctx context.Context) (int, error) {
	monitoring.MongoTotalRequests.WithLabelValues(panelDalName, "next_panel_id", mongoDatabase, collectionPanels).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(panelDalName, "next_panel_id", mongoDatabase, collectionPanels))
	defer t.ObserveDuration()

	opts := options.FindOne().SetSort(bson.M{"id": -1})

	latest := new(entities.Panel)
	err := d.collection().FindOne(ctx, bson.M{}, opts).Decode(latest)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 1, nil
		}
		return 0, fmt.Errorf("error getting latest panel: %w", err)
	}
	return latest.ID + 1, nil
}
