package entities

// Panel is a selectable ticket category offered to users in the selection
// message. Deleting a panel does not touch tickets already linked to it;
// those keep the id and display as "category unknown".
type Panel struct {
	// ID is the stable identifier of the panel. It is immutable once created.
	ID int `json:"id" bson:"id"`

	// Title is the label shown in the selection menu. Never empty.
	Title string `json:"title" bson:"title"`

	// Description is the option description shown in the selection menu.
	Description string `json:"description" bson:"description"`

	// Emoji is an optional emoji for the option.
	Emoji string `json:"emoji,omitempty" bson:"emoji,omitempty"`

	// ButtonLabel is the label for the open control.
	ButtonLabel string `json:"button_label,omitempty" bson:"button_label,omitempty"`

	// SupportTeamRole is an optional role ID pinged for tickets of this category.
	SupportTeamRole string `json:"support_team_role,omitempty" bson:"support_team_role,omitempty"`

	// CreatedMessage is an optional message posted inside new tickets of this category.
	CreatedMessage string `json:"created_message,omitempty" bson:"created_message,omitempty"`
}

// OptionValue is the composite select-menu value encoding the panel id.
func (p *Panel) OptionValue() string {
	return PanelOptionValue(p.ID)
}
