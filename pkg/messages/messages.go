package messages

const (
	// ErrUserErrorProcessing is the generic reply for any failed interaction.
	// Internal detail is never leaked to the user.
	ErrUserErrorProcessing = "An error occurred while processing your request. Please try again later."

	// MsgClaimDenied is the reply for a claim attempt without a staff role.
	MsgClaimDenied = "You do not have permission to claim tickets. Only staff members can claim support tickets."

	// MsgClaimConfirmed is the private confirmation sent to the claimer.
	MsgClaimConfirmed = "You have claimed this ticket."

	// MsgTicketClosing is announced in-channel before the channel is removed.
	MsgTicketClosing = "Transcript saved. Ticket closed. Channel will be deleted in 5 seconds."

	// MsgTranscriptDM accompanies the transcript file sent to the creator.
	MsgTranscriptDM = "Your support ticket transcript:"
)
