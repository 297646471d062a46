package gateway

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// ChannelGateway abstracts the chat-platform API consumed by the ticket core.
// All calls may fail or time out; fetches return (nil, nil) when the target
// does not exist rather than erroring.
type ChannelGateway interface {
	// CreateGuildChannel creates a channel in the guild.
	CreateGuildChannel(ctx context.Context, guildID string, data discordgo.GuildChannelCreateData) (*discordgo.Channel, error)

	// Channel fetches a channel by id. A missing channel is (nil, nil).
	Channel(ctx context.Context, channelID string) (*discordgo.Channel, error)

	// ChannelMessages fetches up to limit recent messages, newest first.
	ChannelMessages(ctx context.Context, channelID string, limit int) ([]*discordgo.Message, error)

	// SendMessage sends a plain text message to a channel.
	SendMessage(ctx context.Context, channelID, content string) (*discordgo.Message, error)

	// SendComplex sends a message with embeds, components or files.
	SendComplex(ctx context.Context, channelID string, data *discordgo.MessageSend) (*discordgo.Message, error)

	// PinMessage pins a message in a channel.
	PinMessage(ctx context.Context, channelID, messageID string) error

	// DeleteMessage deletes a message from a channel.
	DeleteMessage(ctx context.Context, channelID, messageID string) error

	// DeleteChannel deletes a channel.
	DeleteChannel(ctx context.Context, channelID string) error

	// GuildMember fetches a guild member with their live role set.
	GuildMember(ctx context.Context, guildID, userID string) (*discordgo.Member, error)

	// DirectMessage sends a direct message to a user.
	DirectMessage(ctx context.Context, userID string, data *discordgo.MessageSend) error

	// BotUserID is the id of the authenticated bot user.
	BotUserID() string
}
