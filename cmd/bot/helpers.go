package main

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/kestrelbot/kestrel/pkg/logging"
	"github.com/kestrelbot/kestrel/pkg/messages"
)

// respondEphemeral replies to an interaction with a message only the acting
// user can see.
func (a *App) respondEphemeral(i *discordgo.InteractionCreate, content string) error {
	return a.respond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

// deferUpdate acknowledges a component interaction without a visible reply,
// which also resets a select menu to its placeholder.
func (a *App) deferUpdate(i *discordgo.InteractionCreate) error {
	return a.respond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
}

// followupEphemeral sends an ephemeral follow-up to an already-acknowledged
// interaction.
func (a *App) followupEphemeral(i *discordgo.InteractionCreate, content string) error {
	return a.followup(i, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
}

// respondError delivers the generic failure reply, first as a direct response
// and, when the interaction is already acknowledged, as a follow-up.
func (a *App) respondError(i *discordgo.InteractionCreate) {
	if err := a.respondEphemeral(i, messages.ErrUserErrorProcessing); err == nil {
		return
	}
	if err := a.followupEphemeral(i, messages.ErrUserErrorProcessing); err != nil {
		a.Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
	}
}
