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

const adminPolicyDalName = "admin_policy_dal"

type AdminPolicyDal interface {
	// IsAdmin reports whether the user id holds an admin grant.
	IsAdmin(ctx context.Context, userID string) (bool, error)

	// GrantAdmin records an admin grant for the user id.
	GrantAdmin(ctx context.Context, userID, note string) error

	// RevokeAdmin removes the admin grant for the user id.
	RevokeAdmin(ctx context.Context, userID string) error
}

type adminPolicyDal struct {
	// l is the logger.
	l *slog.Logger

	// client is the database.
	client *mongo.Client
}

// NewAdminPolicyDal creates a new admin policy data access layer.
func NewAdminPolicyDal(l *slog.Logger) AdminPolicyDal {
	l = l.With(slog.String(logging.KeyDal, adminPolicyDalName))

	if MongoDB == nil {
		l.Warn("MongoDB is nil, this can cause a panic. Proceeding...")
	}

	return &adminPolicyDal{
		l:      l,
		client: MongoDB,
	}
}

func (d *adminPolicyDal) collection() *mongo.Collection {
	return d.client.Database(mongoDatabase).Collection(collectionAdminPolicy)
}

func (d *adminPolicyDal) IsAdmin(ctx context.Context, userID string) (bool, error) {
	monitoring.MongoTotalRequests.WithLabelValues(adminPolicyDalName, "is_admin", mongoDatabase, collectionAdminPolicy).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(adminPolicyDalName, "is_admin", mongoDatabase, collectionAdminPolicy))
	defer t.ObserveDuration()

	err := d.collection().FindOne(ctx, bson.M{"user_id": userID}).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, fmt.Errorf("error checking admin policy: %w", err)
	}
	return true, nil
}

func (d *adminPolicyDal) GrantAdmin(ctx context.Context, userID, note string) error {
	monitoring.MongoTotalRequests.WithLabelValues(adminPolicyDalName, "grant_admin", mongoDatabase, collectionAdminPolicy).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(adminPolicyDalName, "grant_admin", mongoDatabase, collectionAdminPolicy))
	defer t.ObserveDuration()

	policy := &entities.AdminPolicy{
		UserID:  userID,
		Note:    note,
		AddedAt: custom.Datetime(time.Now().UTC()),
	}

	opts := options.Update().SetUpsert(true)
	if _, err := d.collection().UpdateOne(ctx, bson.M{"user_id": userID}, bson.M{"$set": policy}, opts); err != nil {
		return fmt.Errorf("error granting admin: %w", err)
	}
	return nil
}

func (d *adminPolicyDal) RevokeAdmin(ctx context.Context, userID string) error {
	monitoring.MongoTotalRequests.WithLabelValues(adminPolicyDalName, "revoke_admin", mongoDatabase, collectionAdminPolicy).Inc()
	t := prometheus.NewTimer(monitoring.MongoLatency.WithLabelValues(adminPolicyDalName, "revoke_admin", mongoDatabase, collectionAdminPolicy))
	defer t.ObserveDuration()

	if _, err := d.collection().DeleteOne(ctx, bson.M{"user_id": userID}); err != nil {
		return fmt.Errorf("error revoking admin: %w", err)
	}
	return nil
}
