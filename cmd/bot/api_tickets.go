package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/kestrelbot/kestrel/pkg/dataaccess"
	"github.com/kestrelbot/kestrel/pkg/entities"
	"github.com/kestrelbot/kestrel/pkg/logging"
	"github.com/kestrelbot/kestrel/pkg/request"
)

func (a *App) listTicketsHandler(w http.ResponseWriter, r *http.Request) {
	tickets, err := a.tickets.ListTickets(r.Context())
	if err != nil {
		a.Error("Error listing tickets", slog.String(logging.KeyError, err.Error()))
		a.writeMessage(w, http.StatusInternalServerError, request.ErrInternalServer.Error())
		return
	}
	if tickets == nil {
		tickets = []*entities.Ticket{}
	}
	a.writeJSON(w, http.StatusOK, tickets)
}

// ticketStats is the aggregate returned by the stats endpoint.
type ticketStats struct {
	Total  int `json:"total"`
	Open   int `json:"open"`
	Closed int `json:"closed"`
}

func (a *App) statsHandler(w http.ResponseWriter, r *http.Request) {
	tickets, err := a.tickets.ListTickets(r.Context())
	if err != nil {
		a.Error("Error listing tickets", slog.String(logging.KeyError, err.Error()))
		a.writeMessage(w, http.StatusInternalServerError, request.ErrInternalServer.Error())
		return
	}

	stats := ticketStats{Total: len(tickets)}
	for _, t := range tickets {
		switch t.Status {
		case entities.TicketStatusOpen:
			stats.Open++
		case entities.TicketStatusClosed:
			stats.Closed++
		}
	}
	a.writeJSON(w, http.StatusOK, stats)
}

// setPriorityInput is the accepted body for a priority update.
type setPriorityInput struct {
	Priority string `json:"priority"`
}

func (a *App) setTicketPriorityHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		a.writeMessage(w, http.StatusBadRequest, "Invalid ticket id")
		return
	}

	var input setPriorityInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || !entities.ValidPriority(input.Priority) {
		a.writeMessage(w, http.StatusBadRequest, "Invalid priority")
		return
	}

	ticket, err := a.tickets.SetPriority(r.Context(), id, input.Priority)
	if err != nil {
		if errors.Is(err, dataaccess.ErrNotFound) {
			a.writeMessage(w, http.StatusNotFound, "Ticket not found")
			return
		}
		a.Error("Error setting ticket priority", slog.String(logging.KeyError, err.Error()))
		a.writeMessage(w, http.StatusInternalServerError, request.ErrInternalServer.Error())
		return
	}

	a.writeJSON(w, http.StatusOK, ticket)
}
