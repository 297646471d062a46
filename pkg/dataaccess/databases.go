package dataaccess

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// MongoDB is the Mongo client. This is a connection pool.
var MongoDB *mongo.Client

const (
	mongoDatabase = "kestrel"

	collectionPanels      = "panels"
	collectionTickets     = "tickets"
	collectionSettings    = "settings"
	collectionAdminPolicy = "admin_policy"
	collectionCounters    = "counters"

	// counterTickets keys the ticket id sequence document in the counters
	// collection.
	counterTickets = "tickets"
)

// ErrNotFound is returned when a lookup matches no document. Callers check it
// with errors.Is rather than depending on the driver's sentinel.
var ErrNotFound = errors.New("not found")

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}
