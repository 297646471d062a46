package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gorilla/mux"
	"github.com/kestrelbot/kestrel/pkg/dataaccess"
	"github.com/kestrelbot/kestrel/pkg/gateway"
	"github.com/kestrelbot/kestrel/pkg/logging"
	"github.com/kestrelbot/kestrel/pkg/sessions"
	"github.com/kestrelbot/kestrel/pkg/ticketing"
)

const (
	// reconnectAttempts is how many times a lost gateway connection is retried
	// before the process gives up and exits for the supervisor to restart it.
	reconnectAttempts = 5

	// reconnectDelay is the fixed delay between reconnect attempts.
	reconnectDelay = 5 * time.Second
)

type App struct {
	// is the logger.
	*slog.Logger

	// r is the router for the application.
	r *mux.Router

	// svr is the server for the application.
	svr *http.Server

	// s is the discord session.
	s *discordgo.Session

	// gw is the channel gateway over the discord session.
	gw gateway.ChannelGateway

	// publisher republishes the category selection message.
	publisher *ticketing.Publisher

	// lifecycle drives ticket transitions.
	lifecycle *ticketing.Lifecycle

	// recovery is the startup reconciliation pass.
	recovery *ticketing.Recovery

	// panels is the panel store.
	panels dataaccess.PanelDal

	// tickets is the ticket store.
	tickets dataaccess.TicketDal

	// settings is the settings store.
	settings dataaccess.SettingsDal

	// adminPolicy is the admin grant store.
	adminPolicy dataaccess.AdminPolicyDal

	// sessions holds the dashboard login sessions.
	sessions *sessions.Store

	// respond and followup wrap the session's interaction reply endpoints.
	respond  func(i *discordgo.InteractionCreate, resp *discordgo.InteractionResponse) error
	followup func(i *discordgo.InteractionCreate, params *discordgo.WebhookParams) error
}

// NewApp creates a new instance of App.
func NewApp(l *slog.Logger, r *mux.Router) *App {
	a := &App{
		Logger: l,
		r:      r,
	}
	a.respond = func(i *discordgo.InteractionCreate, resp *discordgo.InteractionResponse) error {
		return a.s.InteractionRespond(i.Interaction, resp)
	}
	a.followup = func(i *discordgo.InteractionCreate, params *discordgo.WebhookParams) error {
		_, err := a.s.FollowupMessageCreate(i.Interaction, true, params)
		return err
	}
	return a
}

func (a *App) Run() error {
	// The stores need the mongo connection established by parseConfig.
	a.panels = dataaccess.NewPanelDal(a.Logger)
	a.tickets = dataaccess.NewTicketDal(a.Logger)
	a.settings = dataaccess.NewSettingsDal(a.Logger)
	a.adminPolicy = dataaccess.NewAdminPolicyDal(a.Logger)
	a.sessions = sessions.NewStore(sessions.DefaultTTL)

	if err := a.seedDefaults(context.Background()); err != nil {
		return fmt.Errorf("error seeding default data: %w", err)
	}

	// Register bot.
	if err := a.RegisterBot(); err != nil {
		return fmt.Errorf("error registering bot: %w", err)
	}

	cfg := ticketingConfig()
	a.gw = gateway.NewDiscordGateway(a.s)
	a.publisher = ticketing.NewPublisher(a.Logger, a.gw, a.panels, a.settings, cfg)
	a.lifecycle = ticketing.NewLifecycle(a.Logger, a.gw, a.tickets, a.panels, a.settings, cfg)
	a.recovery = ticketing.NewRecovery(a.Logger, a.gw, a.tickets, a.publisher, cfg)

	if err := a.RegisterDiscordHandlers(); err != nil {
		return fmt.Errorf("error registering discord handlers: %w", err)
	}

	// Open websocket.
	if err := a.s.Open(); err != nil {
		return fmt.Errorf("error opening connection to Discord: %w", err)
	}

	a.Info("Bot is now running.")

	a.generateServer()
	a.setupRoutes()
	a.runServer()

	// Register listener for shutdown signal.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	// Process shutdown signal.
	for sig := range c {
		a.Info("Received shutdown signal", slog.String(logging.KeySignal, sig.String()))
		if err := a.ShutdownHook(); err != nil {
			a.Error("Error shutting down application", slog.String(logging.KeyError, err.Error()))
		}
		os.Exit(0)
	}
	return nil
}

func (a *App) ShutdownHook() error {
	// Reset the total number of guilds to 0.
	TotalDiscordGuilds.Set(0)

	// Close the connection to Discord.
	if err := a.s.Close(); err != nil {
		return fmt.Errorf("error closing connection to Discord: %w", err)
	}
	return nil
}

func (a *App) RegisterBot() error {
	// Default the number of guilds to 0.
	TotalDiscordGuilds.Set(0)

	dg, err := discordgo.New("Bot " + BotToken)
	if err != nil {
		return fmt.Errorf("error creating Discord session: %w", err)
	}

	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildMembers

	// Reconnection is handled explicitly so the recovery pass runs on every
	// resumed session.
	dg.ShouldReconnectOnError = false

	a.s = dg
	return nil
}

func (a *App) RegisterDiscordHandlers() error {
	a.s.AddHandler(a.readyHandler())
	a.s.AddHandler(a.disconnectHandler())

	// Bot joined guild.
	a.s.AddHandler(a.guildJoinedHandler())

	// Bot left guild.
	a.s.AddHandler(a.guildLeaveHandler())

	// Every gateway event feeds the event counter.
	a.s.AddHandler(func(_ *discordgo.Session, e *discordgo.Event) {
		if e.Type != "" {
			TotalDiscordEvents.WithLabelValues(e.Type).Inc()
		}
	})

	// Interaction create handler.
	a.s.AddHandler(a.interactionHandler())
	return nil
}

func (a *App) readyHandler() func(s *discordgo.Session, r *discordgo.Ready) {
	return func(s *discordgo.Session, r *discordgo.Ready) {
		a.Info(fmt.Sprintf("Logged in as %s#%s", r.User.Username, r.User.Discriminator))

		if err := s.UpdateListeningStatus("for support tickets"); err != nil {
			a.Warn("Could not set presence", slog.String(logging.KeyError, err.Error()))
		}

		// The ready event fires on every (re)connection, so each one gets a
		// full reconciliation pass.
		go a.recovery.Run(context.Background())
	}
}

// disconnectHandler retries the gateway connection a bounded number of times.
// Exhausting the retries exits the process; the recovery pass on the next
// start makes the restart safe.
func (a *App) disconnectHandler() func(s *discordgo.Session, d *discordgo.Disconnect) {
	return func(s *discordgo.Session, _ *discordgo.Disconnect) {
		a.Warn("Disconnected from Discord gateway")

		for attempt := 1; attempt <= reconnectAttempts; attempt++ {
			time.Sleep(reconnectDelay)

			if err := s.Open(); err != nil {
				a.Error("Error reconnecting to Discord",
					slog.Int("attempt", attempt),
					slog.String(logging.KeyError, err.Error()))
				continue
			}

			a.Info("Reconnected to Discord gateway", slog.Int("attempt", attempt))
			return
		}

		a.Error("Exhausted reconnect attempts, exiting")
		os.Exit(1)
	}
}

func (a *App) guildJoinedHandler() func(s *discordgo.Session, g *discordgo.GuildCreate) {
	return func(_ *discordgo.Session, g *discordgo.GuildCreate) {
		a.Info(fmt.Sprintf("Joined guild %s", g.Name))

		// Increment the total number of guilds.
		TotalDiscordGuilds.Inc()
	}
}

func (a *App) guildLeaveHandler() func(s *discordgo.Session, g *discordgo.GuildDelete) {
	return func(_ *discordgo.Session, g *discordgo.GuildDelete) {
		a.Info(fmt.Sprintf("Left guild %s", g.ID))

		// Decrement the total number of guilds.
		TotalDiscordGuilds.Dec()
	}
}

func (a *App) generateServer() {
	a.svr = &http.Server{
		Addr:    ":" + MonitoringPort,
		Handler: a.r,
	}
}

func (a *App) runServer() {
	go func() {
		slog.Info("Starting monitoring server")
		if err := a.svr.ListenAndServe(); err != nil {
			a.Error("Error starting monitoring server", slog.String(logging.KeyError, err.Error()))
			a.Warn("Monitoring server will not be available")
		}
	}()
}

func (a *App) Session() *discordgo.Session {
	return a.s
}
