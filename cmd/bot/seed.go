package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kestrelbot/kestrel/pkg/dataaccess"
	"github.com/kestrelbot/kestrel/pkg/entities"
)

// defaultPanels are the four categories every fresh deployment starts with.
var defaultPanels = []*entities.Panel{
	{
		Title:           "General Support",
		Description:     "General help and questions",
		Emoji:           "💬",
		ButtonLabel:     "Open Ticket",
		SupportTeamRole: DefaultStaffRoleId,
	},
	{
		Title:           "Bug Report",
		Description:     "Report a bug or issue",
		Emoji:           "🐛",
		ButtonLabel:     "Open Ticket",
		SupportTeamRole: DefaultStaffRoleId,
	},
	{
		Title:           "Billing Support",
		Description:     "Billing related questions",
		Emoji:           "💳",
		ButtonLabel:     "Open Ticket",
		SupportTeamRole: DefaultStaffRoleId,
	},
	{
		Title:           "Report",
		Description:     "Report a problem or complaint",
		Emoji:           "⚠️",
		ButtonLabel:     "Open Ticket",
		SupportTeamRole: DefaultStaffRoleId,
	},
}

// seedDefaults creates the default panels that do not exist yet and writes the
// default open category on first start. Seeding is keyed by panel title so
// operator edits to other fields survive restarts.
func (a *App) seedDefaults(ctx context.Context) error {
	existing, err := a.panels.ListPanels(ctx)
	if err != nil {
		return fmt.Errorf("error listing panels: %w", err)
	}

	byTitle := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		byTitle[p.Title] = struct{}{}
	}

	for _, panel := range defaultPanels {
		if _, ok := byTitle[panel.Title]; ok {
			continue
		}

		id, err := a.panels.NextPanelID(ctx)
		if err != nil {
			return fmt.Errorf("error getting next panel id: %w", err)
		}

		seeded := *panel
		seeded.ID = id
		if err := a.panels.SavePanel(ctx, &seeded); err != nil {
			return fmt.Errorf("error seeding panel %q: %w", panel.Title, err)
		}
		a.Info(fmt.Sprintf("Created panel: %s", panel.Title))
	}

	settings, err := a.settings.GetSettings(ctx)
	if err != nil {
		if !errors.Is(err, dataaccess.ErrNotFound) {
			return fmt.Errorf("error getting settings: %w", err)
		}
		settings = new(entities.Settings)
	}

	if settings.CategoryOpenID == "" {
		settings.CategoryOpenID = DefaultCategoryOpenId
		if settings.GuildID == "" {
			settings.GuildID = GuildId
		}
		if _, err := a.settings.UpdateSettings(ctx, settings); err != nil {
			return fmt.Errorf("error writing default settings: %w", err)
		}
		a.Info("Configured default open category", slog.String("category_id", DefaultCategoryOpenId))
	}

	return nil
}
