package entities

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kestrelbot/kestrel/pkg/custom"
)

const (
	// TicketStatusOpen is the status of a ticket with a live channel.
	TicketStatusOpen = "open"

	// TicketStatusClosed is the terminal status of a ticket. There is no
	// transition back to open.
	TicketStatusClosed = "closed"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// ValidPriority reports whether p is one of the known priorities.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Ticket is one support case, bound one-to-one to a provisioned private
// channel. Tickets are never hard-deleted; the record outlives the channel.
type Ticket struct {
	// ID is the number of the ticket.
	ID int `json:"id" bson:"id"`

	// PanelID links the ticket to the panel it was opened from. Zero means no
	// panel (or a panel deleted since).
	PanelID int `json:"panel_id,omitempty" bson:"panel_id,omitempty"`

	// ChannelID is the ID of the channel that the ticket is in. Stable once
	// assigned; exactly one open ticket may reference a channel at a time.
	ChannelID string `json:"channel_id" bson:"channel_id"`

	// CreatorID is the ID of the user that created the ticket.
	CreatorID string `json:"creator_id" bson:"creator_id"`

	// CreatorName is the username of the user that created the ticket.
	CreatorName string `json:"creator_name" bson:"creator_name"`

	// ClaimerID is the ID of the staff member that claimed the ticket.
	ClaimerID string `json:"claimer_id,omitempty" bson:"claimer_id,omitempty"`

	// Status is either open or closed.
	Status string `json:"status" bson:"status"`

	// Priority is one of low, medium, high, urgent.
	Priority string `json:"priority" bson:"priority"`

	// CreatedAt is the time that the ticket was created.
	CreatedAt custom.Datetime `json:"created_at" bson:"created_at"`

	// ClosedAt is set if and only if the ticket is closed.
	ClosedAt *custom.Datetime `json:"closed_at,omitempty" bson:"closed_at,omitempty"`
}

// TicketChannelName derives the channel name for a new ticket from the
// creator's handle and the trailing digits of the unix-millisecond clock.
// The disambiguator has a theoretical collision window on rapid repeated
// creation; the ticket's identity is its channel id, so no uniqueness is
// enforced here.
func TicketChannelName(username string, unixMilli int64) string {
	ms := strconv.FormatInt(unixMilli, 10)
	if len(ms) > 6 {
		ms = ms[len(ms)-6:]
	}
	return fmt.Sprintf("ticket-%s-%s", strings.ToLower(username), ms)
}

// PanelOptionValue encodes a panel id into a select-menu value.
func PanelOptionValue(id int) string {
	return fmt.Sprintf("panel_%d", id)
}

// ParsePanelOptionValue decodes a select-menu value back into a panel id.
func ParsePanelOptionValue(value string) (int, error) {
	raw, ok := strings.CutPrefix(value, "panel_")
	if !ok {
		return 0, fmt.Errorf("malformed panel option value: %q", value)
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("malformed panel option value: %q", value)
	}
	return id, nil
}
