package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kestrelbot/kestrel/pkg/dataaccess"
	"github.com/kestrelbot/kestrel/pkg/entities"
	"github.com/kestrelbot/kestrel/pkg/logging"
	"github.com/kestrelbot/kestrel/pkg/request"
)

func (a *App) getSettingsHandler(w http.ResponseWriter, r *http.Request) {
	settings, err := a.settings.GetSettings(r.Context())
	if err != nil {
		if errors.Is(err, dataaccess.ErrNotFound) {
			// No settings yet reads as an empty object, matching the lazy
			// upsert semantics of updates.
			a.writeJSON(w, http.StatusOK, new(entities.Settings))
			return
		}
		a.Error("Error getting settings", slog.String(logging.KeyError, err.Error()))
		a.writeMessage(w, http.StatusInternalServerError, request.ErrInternalServer.Error())
		return
	}
	a.writeJSON(w, http.StatusOK, settings)
}

func (a *App) updateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	var input entities.Settings
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		a.writeMessage(w, http.StatusBadRequest, "Invalid input")
		return
	}

	if input.GuildID == "" {
		input.GuildID = GuildId
	}

	// The last published message id is owned by the publisher; a dashboard
	// update never clears it.
	if input.LastPanelMessageID == "" {
		if current, err := a.settings.GetSettings(r.Context()); err == nil {
			input.LastPanelMessageID = current.LastPanelMessageID
		}
	}

	updated, err := a.settings.UpdateSettings(r.Context(), &input)
	if err != nil {
		a.Error("Error updating settings", slog.String(logging.KeyError, err.Error()))
		a.writeMessage(w, http.StatusInternalServerError, request.ErrInternalServer.Error())
		return
	}

	// The selection message may now belong in a different channel.
	a.republishPanels()
	a.writeJSON(w, http.StatusOK, updated)
}
