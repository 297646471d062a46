package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/kestrelbot/kestrel/pkg/entities"
	"github.com/kestrelbot/kestrel/pkg/logging"
	"github.com/kestrelbot/kestrel/pkg/request"
)

// writeJSON writes v as the JSON response body with the given status.
func (a *App) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.Error("Error encoding response", slog.String(logging.KeyError, err.Error()))
	}
}

// writeMessage writes a plain message envelope with the given status.
func (a *App) writeMessage(w http.ResponseWriter, status int, msg string) {
	a.writeJSON(w, status, request.NewMessage(msg))
}

// republishPanels pushes the current panel set to the selection message. It
// runs detached from the request so a slow Discord call never holds up the
// API response.
func (a *App) republishPanels() {
	go func() {
		if err := a.publisher.Republish(context.Background()); err != nil {
			a.Error("Error republishing panel message", slog.String(logging.KeyError, err.Error()))
		}
	}()
}

func (a *App) listPanelsHandler(w http.ResponseWriter, r *http.Request) {
	panels, err := a.panels.ListPanels(r.Context())
	if err != nil {
		a.Error("Error listing panels", slog.String(logging.KeyError, err.Error()))
		a.writeMessage(w, http.StatusInternalServerError, request.ErrInternalServer.Error())
		return
	}
	if panels == nil {
		panels = []*entities.Panel{}
	}
	a.writeJSON(w, http.StatusOK, panels)
}

// createPanelInput is the accepted body for panel creation.
type createPanelInput struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	Emoji           string `json:"emoji"`
	ButtonLabel     string `json:"button_label"`
	SupportTeamRole string `json:"support_team_role"`
	CreatedMessage  string `json:"created_message"`
}

func (a *App) createPanelHandler(w http.ResponseWriter, r *http.Request) {
	var input createPanelInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		a.writeMessage(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if input.Title == "" {
		a.writeMessage(w, http.StatusBadRequest, "Invalid input")
		return
	}

	id, err := a.panels.NextPanelID(r.Context())
	if err != nil {
		a.Error("Error getting next panel id", slog.String(logging.KeyError, err.Error()))
		a.writeMessage(w, http.StatusInternalServerError, request.ErrInternalServer.Error())
		return
	}

	panel := &entities.Panel{
		ID:              id,
		Title:           input.Title,
		Description:     input.Description,
		Emoji:           input.Emoji,
		ButtonLabel:     input.ButtonLabel,
		SupportTeamRole: input.SupportTeamRole,
		CreatedMessage:  input.CreatedMessage,
	}

	if err := a.panels.SavePanel(r.Context(), panel); err != nil {
		a.Error("Error saving panel", slog.String(logging.KeyError, err.Error()))
		a.writeMessage(w, http.StatusInternalServerError, request.ErrInternalServer.Error())
		return
	}

	a.Info(fmt.Sprintf("Created panel: %s", panel.Title), slog.Int("panel_id", panel.ID))
	a.republishPanels()
	a.writeJSON(w, http.StatusCreated, panel)
}

func (a *App) deletePanelHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		a.writeMessage(w, http.StatusBadRequest, "Invalid panel id")
		return
	}

	if err := a.panels.DeletePanel(r.Context(), id); err != nil {
		a.Error("Error deleting panel", slog.String(logging.KeyError, err.Error()))
		a.writeMessage(w, http.StatusInternalServerError, request.ErrInternalServer.Error())
		return
	}

	a.republishPanels()
	w.WriteHeader(http.StatusNoContent)
}
