package dataaccess

import (
	"context"
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

const settingsDalName = "settings_dal"

// settingsKey pins the singleton document. At most one Settings record exists.
const settingsKey = "deployment"

type SettingsDal interface {
	// GetSettings returns the singleton settings record.
	GetSettings(ctx context.Context) (*entities.Settings, error)

	// UpdateSettings upserts the singleton record, creating it on first update.
	UpdateSettings(ctx context.Context, settings *entities.Settings) (*entities.Settings, error)

	// SetLastPanelMessageID rewrites only the last published panel message id.
	// The publisher is the single writer of this field.
	SetLastPanelMessageID(ctx context.Context, messageID string) error
}

type settingsDal struct {
	// l is the logger.
	l *slog.Logger

	// client is the database.
	client *mongo.Client
}

// NewSettingsDal creates a new settings data access layer.
func NewSettingsDal(l *slog.Logger) SettingsDal {
	l = l.With(slog.String(logging.KeyDal, settingsDalName))

	if MongoDB == nil {
		l.Warn("MongoDB is nil, this can cause a panic. Proceeding...")
	}

	return &settingsDal{
		l:      l,
		client: MongoDB,
	}
}

func (d *settingsDal) collection() *mongo.Collection {
	return d.client.Database(mongoDatabase).Collection(collectionSettings)
}

func (d *settingsDal) GetSettings(ctx context.Context) (*entities.Settings, error) {
	monitoring.MongoTotalRequests.WithLabelValues(settingsDalName, "get_settings", mongoDatabase, collectionSettings).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(settingsDalName, "get_settings", mongoDatabase, collectionSettings))
	defer t.ObserveDuration()

	settings := new(entities.Settings)
	if err := d.collection().FindOne(ctx, bson.M{"_key": settingsKey}).Decode(settings); err != nil {
		return nil, fmt.Errorf("error getting settings: %w", notFound(err))
	}
	return settings, nil
}

func (d *settingsDal) UpdateSettings(ctx context.Context, settings *entities.Settings) (*entities.Settings, error) {
	monitoring.MongoTotalRequests.WithLabelValues(settingsDalName, "update_settings", mongoDatabase, collectionSettings).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(settingsDalName, "update_settings", mongoDatabase, collectionSettings))
	defer t.ObserveDuration()

	opts := options.Update().SetUpsert(true)
	_, err := d.collection().UpdateOne(ctx, bson.M{"_key": settingsKey}, bson.M{"$set": settings}, opts)
	if err != nil {
		return nil, fmt.Errorf("error updating settings: %w", err)
	}
	return d.GetSettings(ctx)
}

func (d *settingsDal) SetLastPanelMessageID(ctx context.Context, messageID string) error {
	monitoring.MongoTotalRequests.WithLabelValues(settingsDalName, "set_last_panel_message_id", mongoDatabase, collectionSettings).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(settingsDalName, "set_last_panel_message_id", mongoDatabase, collectionSettings))
	defer t.ObserveDuration()

	opts := options.Update().SetUpsert(true)
	_, err := d.collection().UpdateOne(ctx, bson.M{"_key": settingsKey}, bson.M{"$set": bson.M{"last_panel_message_id": messageID}}, opts)
	if err != nil {
		return fmt.Errorf("error setting last panel message id: %w", err)
	}
	return nil
}
