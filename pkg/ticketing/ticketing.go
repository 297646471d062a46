// Package ticketing holds the ticket panel publisher, the ticket lifecycle
// state machine, and the startup recovery pass. Nothing in this package keeps
// durable state of its own; every fact is re-read from the store at the point
// of use, which is what makes process restarts safe.
package ticketing

import "time"

// Config carries the deployment identifiers and hardcoded fallbacks the core
// uses when the corresponding Settings fields are unset.
type Config struct {
	// GuildID is the guild this deployment serves.
	GuildID string

	// DefaultPanelChannelID is where the selection message goes when
	// Settings.PanelChannelID is unset.
	DefaultPanelChannelID string

	// AutoPinChannelID marks the one channel whose bot messages are kept
	// pinned.
	AutoPinChannelID string

	// FallbackTranscriptChannelID always receives transcripts, independent of
	// the configured transcript channel.
	FallbackTranscriptChannelID string

	// DefaultStaffRoleID is granted access to ticket channels when
	// Settings.StaffRoles is empty.
	DefaultStaffRoleID string

	// DefaultWelcomeMessage is posted in new tickets when
	// Settings.WelcomeMessage is unset.
	DefaultWelcomeMessage string

	// DeleteDelay is how long a closed channel survives after the closure
	// notice, giving participants a last chance to read it.
	DeleteDelay time.Duration
}

const (
	// SelectCategoryID is the custom id of the category selection menu.
	SelectCategoryID = "ticket_category"

	// CloseTicketButtonID is the custom id of the close button.
	CloseTicketButtonID = "close_ticket"

	// ClaimTicketButtonID is the custom id of the claim button.
	ClaimTicketButtonID = "claim_ticket"
)

// transcriptWindow is the number of recent messages rendered into a transcript.
const transcriptWindow = 100
