package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/kestrelbot/kestrel/pkg/dataaccess"
	"github.com/kestrelbot/kestrel/pkg/dataaccess/connection"
	"github.com/kestrelbot/kestrel/pkg/logging"
	"github.com/kestrelbot/kestrel/pkg/ticketing"
)

const (
	// AppName is the name of the application.
	AppName = "kestrel"

	// EnvBotToken is the environment variable for the bot token.
	EnvBotToken = `BOT_TOKEN`

	// EnvGuildId is the environment variable for the guild this deployment serves.
	EnvGuildId = `GUILD_ID`

	// EnvMongoUri is the environment variable for the MongoDB URI.
	EnvMongoUri = `MONGO_URI`

	// EnvMonitoringPort is the environment variable for the monitoring port.
	EnvMonitoringPort = `MONITORING_PORT`
)

// Deployment identifiers carried over from the hosted deployment. Each acts as
// a fallback for the corresponding Settings field when it is unset.
const (
	// DefaultGuildId is the guild served when EnvGuildId is unset.
	DefaultGuildId = "1439165596725022753"

	// DefaultPanelChannelId receives the category selection message.
	DefaultPanelChannelId = "1439165973708935209"

	// AutoPinChannelId is the one channel whose bot messages are kept pinned.
	AutoPinChannelId = "1439165973708935209"

	// FallbackTranscriptChannelId always receives closed ticket transcripts.
	FallbackTranscriptChannelId = "1439166007263498352"

	// DefaultStaffRoleId can view and claim tickets when no staff roles are
	// configured.
	DefaultStaffRoleId = "1439165889785364581"

	// DefaultCategoryOpenId is written to settings on first start.
	DefaultCategoryOpenId = "1439165921863405763"

	// DefaultWelcomeMessage is posted in new tickets when no message is
	// configured.
	DefaultWelcomeMessage = "A member of the support team will be with you shortly. Please describe your issue in as much detail as possible."

	// ChannelDeleteDelay is how long a closed ticket channel survives after the
	// closure notice.
	ChannelDeleteDelay = 5 * time.Second
)

var (
	// BotToken is the token for the bot.
	BotToken string

	// GuildId is the guild this deployment serves.
	GuildId string

	// MongoUri is the URI for the MongoDB database.
	MongoUri string

	// MonitoringPort is the port for the monitoring server.
	MonitoringPort string
)

func parseConfig() {
	if envBT := os.Getenv(EnvBotToken); envBT != "" {
		slog.Debug("Found bot token in environment", slog.String("key", EnvBotToken))
		BotToken = envBT
	}

	if envGuildId := os.Getenv(EnvGuildId); envGuildId != "" {
		slog.Debug("Found guild ID in environment", slog.String("key", EnvGuildId))
		GuildId = envGuildId
	} else {
		GuildId = DefaultGuildId
		slog.Info("No guild ID provided in environment, using default", slog.String("key", EnvGuildId))
	}

	if envMongoUri := os.Getenv(EnvMongoUri); envMongoUri != "" {
		slog.Debug("Found MongoDB URI in environment", slog.String("key", EnvMongoUri))
		MongoUri = envMongoUri
	}

	if envMonitoringPort := os.Getenv(EnvMonitoringPort); envMonitoringPort != "" {
		slog.Debug("Found monitoring port in environment", slog.String("key", EnvMonitoringPort))
		MonitoringPort = envMonitoringPort
	} else {
		// Default to 8080 if not provided.
		MonitoringPort = "8080"
		slog.Info("No monitoring port provided in environment, defaulting to 8080", slog.String("key", EnvMonitoringPort))
	}

	if BotToken != "" &&
		MongoUri != "" {

		// All required environment variables have been provided.
		slog.Debug("All required environment variables have been provided")
		connectMongo()
		return
	}

	slog.Error("Not all required environment variables have been provided", slog.String(logging.KeyError, "Incomplete configuration"))
	os.Exit(1)
}

func connectMongo() {
	mongoConn := new(connection.MongoDB)
	mongoConn.ConnectionString = MongoUri

	db, err := mongoConn.Connect()
	if err != nil {
		slog.Error("Error connecting to mongo", slog.String(logging.KeyError, err.Error()))
		os.Exit(1)
	} else if db == nil {
		slog.Error("MongoDB came back nil", slog.String(logging.KeyError, "MongoDB came back nil"))
		os.Exit(1)
	}

	dataaccess.MongoDB = db
	slog.Debug("Connected to MongoDB", slog.String("key", EnvMongoUri))
}

// ticketingConfig assembles the core configuration from the parsed
// environment and the deployment defaults.
func ticketingConfig() ticketing.Config {
	return ticketing.Config{
		GuildID:                     GuildId,
		DefaultPanelChannelID:       DefaultPanelChannelId,
		AutoPinChannelID:            AutoPinChannelId,
		FallbackTranscriptChannelID: FallbackTranscriptChannelId,
		DefaultStaffRoleID:          DefaultStaffRoleId,
		DefaultWelcomeMessage:       DefaultWelcomeMessage,
		DeleteDelay:                 ChannelDeleteDelay,
	}
}
