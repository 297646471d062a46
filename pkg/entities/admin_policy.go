package entities

import "github.com/kestrelbot/kestrel/pkg/custom"

// AdminPolicy grants a user id access to the dashboard admin surface. The set
// of privileged identities lives in the store rather than in the binary, so
// it can be changed without a redeploy.
type AdminPolicy struct {
	// UserID is the platform user id the grant applies to.
	UserID string `json:"user_id" bson:"user_id"`

	// Note is a free-form operator note on why the grant exists.
	Note string `json:"note,omitempty" bson:"note,omitempty"`

	// AddedAt is when the grant was created.
	AddedAt custom.Datetime `json:"added_at" bson:"added_at"`
}
