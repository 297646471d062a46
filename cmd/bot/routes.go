package main

import (
	"net/http"

	"github.com/kestrelbot/kestrel/pkg/request"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// PathMetrics is the path for metrics.
	PathMetrics = "/metrics"

	// PathHealth is the path for health check.
	PathHealth = "/health"

	// PathAuthCallback is the login callback.
	PathAuthCallback = "/auth/callback"

	// PathLogout destroys the current session.
	PathLogout = "/api/logout"

	// PathPanels lists and creates ticket panels.
	PathPanels = "/api/panels"

	// PathPanelByID removes a single panel.
	PathPanelByID = "/api/panels/{id}"

	// PathTickets lists tickets.
	PathTickets = "/api/tickets"

	// PathTicketPriority updates a ticket's priority.
	PathTicketPriority = "/api/tickets/{id}/priority"

	// PathStats aggregates ticket counts.
	PathStats = "/api/stats"

	// PathSettings reads and updates the deployment settings.
	PathSettings = "/api/settings"
)

func (a *App) setupRoutes() {
	a.r.HandleFunc(PathMetrics, promhttp.Handler().ServeHTTP).Methods(http.MethodGet)
	a.r.HandleFunc(PathHealth, middlewareHttp(a.healthCheck(), authOptionNone, a)).Methods(http.MethodGet)

	a.r.HandleFunc(PathAuthCallback, middlewareHttp(a.authCallbackHandler, authOptionNone, a)).Methods(http.MethodGet)
	a.r.HandleFunc(PathLogout, middlewareHttp(a.logoutHandler, authOptionNone, a)).Methods(http.MethodPost)

	a.r.HandleFunc(PathPanels, middlewareHttp(a.listPanelsHandler, authOptionSession, a)).Methods(http.MethodGet)
	a.r.HandleFunc(PathPanels, middlewareHttp(a.createPanelHandler, authOptionAdmin, a)).Methods(http.MethodPost)
	a.r.HandleFunc(PathPanelByID, middlewareHttp(a.deletePanelHandler, authOptionAdmin, a)).Methods(http.MethodDelete)

	a.r.HandleFunc(PathTickets, middlewareHttp(a.listTicketsHandler, authOptionSession, a)).Methods(http.MethodGet)
	a.r.HandleFunc(PathTicketPriority, middlewareHttp(a.setTicketPriorityHandler, authOptionAdmin, a)).Methods(http.MethodPatch)
	a.r.HandleFunc(PathStats, middlewareHttp(a.statsHandler, authOptionSession, a)).Methods(http.MethodGet)

	a.r.HandleFunc(PathSettings, middlewareHttp(a.getSettingsHandler, authOptionSession, a)).Methods(http.MethodGet)
	a.r.HandleFunc(PathSettings, middlewareHttp(a.updateSettingsHandler, authOptionAdmin, a)).Methods(http.MethodPost)

	// NotFoundHandler is the handler for 404.
	a.r.NotFoundHandler = request.NotFoundHandler(a.Logger)

	// MethodNotAllowedHandler is the handler for 405.
	a.r.MethodNotAllowedHandler = request.MethodNotAllowedHandler(a.Logger)
}
