package entities

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTicketChannelName(t *testing.T) {
	tests := []struct {
		name     string
		username string
		ms       int64
		want     string
	}{
		{
			name:     "TrailingSixDigits",
			username: "Wolf",
			ms:       1712345678901,
			want:     "ticket-wolf-678901",
		},
		{
			name:     "ShortClock",
			username: "ada",
			ms:       42,
			want:     "ticket-ada-42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, TicketChannelName(tt.username, tt.ms))
		})
	}
}

func TestParsePanelOptionValue(t *testing.T) {
	id, err := ParsePanelOptionValue("panel_12")
	require.NoError(t, err)
	require.Equal(t, 12, id)

	_, err = ParsePanelOptionValue("panel_abc")
	require.Error(t, err)

	_, err = ParsePanelOptionValue("close_ticket")
	require.Error(t, err)
}

func TestValidPriority(t *testing.T) {
	for _, p := range []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent} {
		require.True(t, ValidPriority(p))
	}
	require.False(t, ValidPriority("critical"))
	require.False(t, ValidPriority(""))
}
