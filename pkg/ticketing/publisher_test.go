package ticketing

import (
	"context"
	"testing"

	"github.com/kestrelbot/kestrel/pkg/entities"
	"github.com/kestrelbot/kestrel/pkg/logging"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		GuildID:                     "guild-1",
		DefaultPanelChannelID:       "panel-chan",
		AutoPinChannelID:            "pin-chan",
		FallbackTranscriptChannelID: "fallback-chan",
		DefaultStaffRoleID:          "staff-role",
		DefaultWelcomeMessage:       "Welcome! A staff member will be with you shortly.",
	}
}

func TestRepublishReplacesOldMessage(t *testing.T) {
	l, err := logging.CommonLogger(logging.NewConfig(`tests`))
	require.NoError(t, err, "Failed to create logger")

	gw := newFakeGateway()
	gw.addChannel("panel-chan", "support")
	panels := newFakePanelDal(
		&entities.Panel{ID: 1, Title: "General", Description: "General help"},
		&entities.Panel{ID: 2, Title: "Billing", Description: "Billing issues", Emoji: "💳"},
	)
	settings := newFakeSettingsDal(&entities.Settings{LastPanelMessageID: "old-msg"})

	p := NewPublisher(l, gw, panels, settings, testConfig())
	require.NoError(t, p.Republish(context.Background()))

	// The stale message is removed and exactly one replacement is live.
	require.Equal(t, []string{"panel-chan/old-msg"}, gw.deletedMessages)
	sent := gw.sentTo("panel-chan")
	require.Len(t, sent, 1)
	require.Equal(t, sent[0].ID, settings.settings.LastPanelMessageID)
}

func TestRepublishEmptyPanelSetSendsNothing(t *testing.T) {
	l, err := logging.CommonLogger(logging.NewConfig(`tests`))
	require.NoError(t, err, "Failed to create logger")

	gw := newFakeGateway()
	gw.addChannel("panel-chan", "support")
	settings := newFakeSettingsDal(&entities.Settings{LastPanelMessageID: "old-msg"})

	p := NewPublisher(l, gw, newFakePanelDal(), settings, testConfig())
	require.NoError(t, p.Republish(context.Background()))

	require.Empty(t, gw.sentTo("panel-chan"))
	// The persisted id is untouched when no message was sent.
	require.Empty(t, settings.setIDs)
}

func TestRepublishMissingChannelIsNotFatal(t *testing.T) {
	l, err := logging.CommonLogger(logging.NewConfig(`tests`))
	require.NoError(t, err, "Failed to create logger")

	gw := newFakeGateway()
	panels := newFakePanelDal(&entities.Panel{ID: 1, Title: "General"})
	settings := newFakeSettingsDal(&entities.Settings{})

	p := NewPublisher(l, gw, panels, settings, testConfig())
	require.NoError(t, p.Republish(context.Background()))

	require.Empty(t, gw.sentTo("panel-chan"))
	require.Empty(t, settings.setIDs)
}

func TestRepublishPrefersConfiguredChannel(t *testing.T) {
	l, err := logging.CommonLogger(logging.NewConfig(`tests`))
	require.NoError(t, err, "Failed to create logger")

	gw := newFakeGateway()
	gw.addChannel("custom-chan", "announcements")
	panels := newFakePanelDal(&entities.Panel{ID: 1, Title: "General"})
	settings := newFakeSettingsDal(&entities.Settings{PanelChannelID: "custom-chan"})

	p := NewPublisher(l, gw, panels, settings, testConfig())
	require.NoError(t, p.Republish(context.Background()))

	require.Len(t, gw.sentTo("custom-chan"), 1)
}
