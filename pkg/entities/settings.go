package entities

// Settings is the singleton deployment configuration. Absent fields fall back
// to hardcoded defaults at the call site, not at the storage layer.
type Settings struct {
	// GuildID is the guild this deployment serves.
	GuildID string `json:"guild_id" bson:"guild_id"`

	// TranscriptChannelID receives transcripts of closed tickets, if set.
	TranscriptChannelID string `json:"transcript_channel_id,omitempty" bson:"transcript_channel_id,omitempty"`

	// CategoryOpenID is the category new ticket channels are parented under.
	CategoryOpenID string `json:"category_open_id,omitempty" bson:"category_open_id,omitempty"`

	// CategoryClosedID is the category closed ticket channels are moved to.
	CategoryClosedID string `json:"category_closed_id,omitempty" bson:"category_closed_id,omitempty"`

	// StaffRoles are the role IDs allowed to view and claim tickets.
	StaffRoles []string `json:"staff_roles,omitempty" bson:"staff_roles,omitempty"`

	// WelcomeMessage is posted inside every new ticket channel.
	WelcomeMessage string `json:"welcome_message,omitempty" bson:"welcome_message,omitempty"`

	// PanelChannelID is the channel the selection message is published to.
	PanelChannelID string `json:"panel_channel_id,omitempty" bson:"panel_channel_id,omitempty"`

	// LastPanelMessageID is the id of the most recently published selection
	// message. Only the publisher writes it.
	LastPanelMessageID string `json:"last_panel_message_id,omitempty" bson:"last_panel_message_id,omitempty"`
}
