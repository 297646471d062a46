package ticketing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/kestrelbot/kestrel/pkg/entities"
	"github.com/kestrelbot/kestrel/pkg/logging"
	"github.com/stretchr/testify/require"
)

func newTestLifecycle(t *testing.T, gw *fakeGateway, tickets *fakeTicketDal, panels *fakePanelDal, settings *fakeSettingsDal) *Lifecycle {
	t.Helper()

	l, err := logging.CommonLogger(logging.NewConfig(`tests`))
	require.NoError(t, err, "Failed to create logger")

	lc := NewLifecycle(l, gw, tickets, panels, settings, testConfig())
	lc.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 123_000_000, time.UTC) }
	// Deletions run inline so tests observe them without waiting.
	lc.schedule = func(_ time.Duration, fn func()) { fn() }
	return lc
}

func TestOpenTicketCreatesChannelThenRow(t *testing.T) {
	gw := newFakeGateway()
	tickets := newFakeTicketDal()
	panels := newFakePanelDal(&entities.Panel{ID: 1, Title: "General", SupportTeamRole: "general-role"})
	settings := newFakeSettingsDal(&entities.Settings{CategoryOpenID: "cat-open"})
	lc := newTestLifecycle(t, gw, tickets, panels, settings)

	ticket, channel, err := lc.OpenTicket(context.Background(), "user-1", "Alice", 1)
	require.NoError(t, err)
	require.NotNil(t, channel)

	require.Equal(t, 1, ticket.ID)
	require.Equal(t, entities.TicketStatusOpen, ticket.Status)
	require.Equal(t, entities.PriorityMedium, ticket.Priority)
	require.Equal(t, channel.ID, ticket.ChannelID)
	require.Nil(t, ticket.ClosedAt)

	require.Len(t, gw.created, 1)
	created := gw.created[0]
	require.Equal(t, "cat-open", created.ParentID)
	require.Equal(t, entities.TicketChannelName("Alice", lc.now().UnixMilli()), created.Name)

	// @everyone denied, creator allowed, staff role allowed, panel role allowed.
	require.Len(t, created.PermissionOverwrites, 4)
	require.Equal(t, "guild-1", created.PermissionOverwrites[0].ID)
	require.Equal(t, int64(discordgo.PermissionViewChannel), created.PermissionOverwrites[0].Deny)
	require.Equal(t, "user-1", created.PermissionOverwrites[1].ID)
	require.Equal(t, "staff-role", created.PermissionOverwrites[2].ID)
	require.Equal(t, "general-role", created.PermissionOverwrites[3].ID)

	// The welcome message lands in the new channel with both controls.
	sent := gw.sentTo(channel.ID)
	require.Len(t, sent, 1)

	stored, err := tickets.GetTicketByChannel(context.Background(), channel.ID)
	require.NoError(t, err)
	require.Equal(t, "user-1", stored.CreatorID)
}

func TestOpenTicketChannelCreateFailureLeavesNoRow(t *testing.T) {
	gw := newFakeGateway()
	gw.createErr = errors.New("missing permissions")
	tickets := newFakeTicketDal()
	lc := newTestLifecycle(t, gw, tickets, newFakePanelDal(), newFakeSettingsDal(&entities.Settings{}))

	_, _, err := lc.OpenTicket(context.Background(), "user-1", "Alice", 1)
	require.Error(t, err)

	all, err := tickets.ListTickets(context.Background())
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestOpenTicketRowSaveFailureReturnsError(t *testing.T) {
	gw := newFakeGateway()
	tickets := newFakeTicketDal()
	tickets.saveErr = errors.New("write concern failed")
	lc := newTestLifecycle(t, gw, tickets, newFakePanelDal(), newFakeSettingsDal(&entities.Settings{}))

	_, _, err := lc.OpenTicket(context.Background(), "user-1", "Alice", 1)
	require.Error(t, err)

	// The channel already exists; the error surfaces the inconsistency.
	require.Len(t, gw.created, 1)
}

func TestOpenTicketUnknownPanelUsesGenericCategory(t *testing.T) {
	gw := newFakeGateway()
	tickets := newFakeTicketDal()
	lc := newTestLifecycle(t, gw, tickets, newFakePanelDal(), newFakeSettingsDal(&entities.Settings{}))

	ticket, channel, err := lc.OpenTicket(context.Background(), "user-1", "Alice", 99)
	require.NoError(t, err)
	require.Equal(t, 99, ticket.PanelID)

	sent := gw.sentTo(channel.ID)
	require.Len(t, sent, 1)
}

func TestOpenTicketAssignsSequentialIDs(t *testing.T) {
	gw := newFakeGateway()
	tickets := newFakeTicketDal(&entities.Ticket{ID: 7, ChannelID: "existing"})
	lc := newTestLifecycle(t, gw, tickets, newFakePanelDal(), newFakeSettingsDal(&entities.Settings{}))

	ticket, _, err := lc.OpenTicket(context.Background(), "user-1", "Alice", 1)
	require.NoError(t, err)
	require.Equal(t, 8, ticket.ID)
}

func TestOpenTicketConcurrentOpensGetDistinctIDs(t *testing.T) {
	gw := newFakeGateway()
	tickets := newFakeTicketDal()
	// Stretch each allocation so concurrent opens overlap in flight.
	tickets.idDelay = 5 * time.Millisecond
	lc := newTestLifecycle(t, gw, tickets, newFakePanelDal(), newFakeSettingsDal(&entities.Settings{}))

	const opens = 4

	ids := make(chan int, opens)
	errs := make(chan error, opens)
	var wg sync.WaitGroup
	for i := 0; i < opens; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ticket, _, err := lc.OpenTicket(context.Background(), fmt.Sprintf("user-%d", n), "Alice", 1)
			if err != nil {
				errs <- err
				return
			}
			ids <- ticket.ID
		}(i)
	}
	wg.Wait()
	close(ids)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	seen := make(map[int]int)
	for id := range ids {
		seen[id]++
	}
	require.Len(t, seen, opens)
	for id, count := range seen {
		require.Equal(t, 1, count, "ticket id %d assigned %d times", id, count)
	}
}

func TestOpenTicketIDAllocationFailureLeavesNoChannel(t *testing.T) {
	gw := newFakeGateway()
	tickets := newFakeTicketDal()
	tickets.idErr = errors.New("store down")
	lc := newTestLifecycle(t, gw, tickets, newFakePanelDal(), newFakeSettingsDal(&entities.Settings{}))

	_, _, err := lc.OpenTicket(context.Background(), "user-1", "Alice", 1)
	require.Error(t, err)
	require.Empty(t, gw.created)

	all, err := tickets.ListTickets(context.Background())
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestClaimTicketDeniedWithoutStaffRole(t *testing.T) {
	gw := newFakeGateway()
	gw.members["user-2"] = &discordgo.Member{
		User:  &discordgo.User{ID: "user-2"},
		Roles: []string{"unrelated-role"},
	}
	tickets := newFakeTicketDal(&entities.Ticket{ID: 1, ChannelID: "chan-1", Status: entities.TicketStatusOpen})
	lc := newTestLifecycle(t, gw, tickets, newFakePanelDal(), newFakeSettingsDal(&entities.Settings{}))

	res, err := lc.ClaimTicket(context.Background(), "chan-1", "user-2")
	require.NoError(t, err)
	require.False(t, res.Allowed)

	// A denied claim changes nothing: no announcement, no claimer.
	require.Empty(t, gw.sentTo("chan-1"))
	stored, err := tickets.GetTicketByChannel(context.Background(), "chan-1")
	require.NoError(t, err)
	require.Empty(t, stored.ClaimerID)
}

func TestClaimTicketAllowedAnnouncesAndPersists(t *testing.T) {
	gw := newFakeGateway()
	gw.members["staff-1"] = &discordgo.Member{
		User:  &discordgo.User{ID: "staff-1"},
		Roles: []string{"staff-role"},
	}
	tickets := newFakeTicketDal(&entities.Ticket{ID: 1, ChannelID: "chan-1", Status: entities.TicketStatusOpen})
	lc := newTestLifecycle(t, gw, tickets, newFakePanelDal(), newFakeSettingsDal(&entities.Settings{}))

	res, err := lc.ClaimTicket(context.Background(), "chan-1", "staff-1")
	require.NoError(t, err)
	require.True(t, res.Allowed)

	sent := gw.sentTo("chan-1")
	require.Len(t, sent, 1)
	require.Equal(t, "Ticket claimed by <@staff-1>", sent[0].Content)

	stored, err := tickets.GetTicketByChannel(context.Background(), "chan-1")
	require.NoError(t, err)
	require.Equal(t, "staff-1", stored.ClaimerID)
	require.Equal(t, entities.TicketStatusOpen, stored.Status)
}

func TestClaimTicketUsesConfiguredStaffRoles(t *testing.T) {
	gw := newFakeGateway()
	gw.members["mod-1"] = &discordgo.Member{
		User:  &discordgo.User{ID: "mod-1"},
		Roles: []string{"mod-role"},
	}
	tickets := newFakeTicketDal(&entities.Ticket{ID: 1, ChannelID: "chan-1", Status: entities.TicketStatusOpen})
	settings := newFakeSettingsDal(&entities.Settings{StaffRoles: []string{"mod-role"}})
	lc := newTestLifecycle(t, gw, tickets, newFakePanelDal(), settings)

	res, err := lc.ClaimTicket(context.Background(), "chan-1", "mod-1")
	require.NoError(t, err)
	require.True(t, res.Allowed)
}

func TestClaimTicketAllowsPanelSupportTeamRole(t *testing.T) {
	gw := newFakeGateway()
	gw.members["helper-1"] = &discordgo.Member{
		User:  &discordgo.User{ID: "helper-1"},
		Roles: []string{"billing-role"},
	}
	tickets := newFakeTicketDal(&entities.Ticket{ID: 1, PanelID: 3, ChannelID: "chan-1", Status: entities.TicketStatusOpen})
	panels := newFakePanelDal(&entities.Panel{ID: 3, Title: "Billing", SupportTeamRole: "billing-role"})
	lc := newTestLifecycle(t, gw, tickets, panels, newFakeSettingsDal(&entities.Settings{StaffRoles: []string{"mod-role"}}))

	// The panel's support team can work the channel, so it can claim too.
	res, err := lc.ClaimTicket(context.Background(), "chan-1", "helper-1")
	require.NoError(t, err)
	require.True(t, res.Allowed)

	sent := gw.sentTo("chan-1")
	require.Len(t, sent, 1)
	require.Equal(t, "Ticket claimed by <@helper-1>", sent[0].Content)
}

func TestClaimTicketDeniesOtherPanelsSupportTeamRole(t *testing.T) {
	gw := newFakeGateway()
	gw.members["helper-1"] = &discordgo.Member{
		User:  &discordgo.User{ID: "helper-1"},
		Roles: []string{"billing-role"},
	}
	tickets := newFakeTicketDal(&entities.Ticket{ID: 1, PanelID: 2, ChannelID: "chan-1", Status: entities.TicketStatusOpen})
	panels := newFakePanelDal(
		&entities.Panel{ID: 2, Title: "Bugs", SupportTeamRole: "bugs-role"},
		&entities.Panel{ID: 3, Title: "Billing", SupportTeamRole: "billing-role"},
	)
	lc := newTestLifecycle(t, gw, tickets, panels, newFakeSettingsDal(&entities.Settings{StaffRoles: []string{"mod-role"}}))

	res, err := lc.ClaimTicket(context.Background(), "chan-1", "helper-1")
	require.NoError(t, err)
	require.False(t, res.Allowed)
}

func TestCloseTicketUnknownChannelIsNoOp(t *testing.T) {
	gw := newFakeGateway()
	tickets := newFakeTicketDal()
	lc := newTestLifecycle(t, gw, tickets, newFakePanelDal(), newFakeSettingsDal(&entities.Settings{}))

	require.NoError(t, lc.CloseTicket(context.Background(), "ghost-chan"))
	require.Empty(t, gw.deletedChannels)
}

func TestCloseTicketDeliversTranscriptsAndDeletesChannel(t *testing.T) {
	gw := newFakeGateway()
	gw.addChannel("chan-1", "ticket-alice-123456")
	gw.messages["chan-1"] = []*discordgo.Message{
		userMessage("2", "user-1", "alice", "thanks!", time.Now()),
		userMessage("1", "staff-1", "bob", "how can I help?", time.Now()),
	}
	tickets := newFakeTicketDal(&entities.Ticket{
		ID: 3, ChannelID: "chan-1", CreatorID: "user-1", CreatorName: "alice",
		Status: entities.TicketStatusOpen,
	})
	settings := newFakeSettingsDal(&entities.Settings{TranscriptChannelID: "tc-chan"})
	lc := newTestLifecycle(t, gw, tickets, newFakePanelDal(), settings)

	require.NoError(t, lc.CloseTicket(context.Background(), "chan-1"))

	stored, err := tickets.GetTicketByChannel(context.Background(), "chan-1")
	require.NoError(t, err)
	require.Equal(t, entities.TicketStatusClosed, stored.Status)
	require.NotNil(t, stored.ClosedAt)

	// Creator DM, configured channel, and fallback channel each get a copy.
	require.Len(t, gw.dms["user-1"], 1)
	require.Len(t, gw.dms["user-1"][0].Files, 1)
	require.Equal(t, "ticket-3-transcript.html", gw.dms["user-1"][0].Files[0].Name)
	require.Len(t, gw.sentTo("tc-chan"), 1)
	require.Len(t, gw.sentTo("fallback-chan"), 1)

	require.Equal(t, []string{"chan-1"}, gw.deletedChannels)
}

func TestCloseTicketTranscriptFetchFailureStillCloses(t *testing.T) {
	gw := newFakeGateway()
	gw.addChannel("chan-1", "ticket-alice-123456")
	gw.messagesErr = errors.New("rate limited")
	tickets := newFakeTicketDal(&entities.Ticket{
		ID: 3, ChannelID: "chan-1", CreatorID: "user-1", Status: entities.TicketStatusOpen,
	})
	lc := newTestLifecycle(t, gw, tickets, newFakePanelDal(), newFakeSettingsDal(&entities.Settings{}))

	require.NoError(t, lc.CloseTicket(context.Background(), "chan-1"))

	stored, err := tickets.GetTicketByChannel(context.Background(), "chan-1")
	require.NoError(t, err)
	require.Equal(t, entities.TicketStatusClosed, stored.Status)
	require.Empty(t, gw.dms["user-1"])
	require.Equal(t, []string{"chan-1"}, gw.deletedChannels)
}

func TestCloseTicketDMFailureDoesNotBlockOtherDeliveries(t *testing.T) {
	gw := newFakeGateway()
	gw.addChannel("chan-1", "ticket-alice-123456")
	gw.dmErr = errors.New("DMs disabled")
	tickets := newFakeTicketDal(&entities.Ticket{
		ID: 3, ChannelID: "chan-1", CreatorID: "user-1", Status: entities.TicketStatusOpen,
	})
	lc := newTestLifecycle(t, gw, tickets, newFakePanelDal(), newFakeSettingsDal(&entities.Settings{}))

	require.NoError(t, lc.CloseTicket(context.Background(), "chan-1"))
	require.Len(t, gw.sentTo("fallback-chan"), 1)
}

func TestCloseTicketDelaysChannelDeletion(t *testing.T) {
	gw := newFakeGateway()
	gw.addChannel("chan-1", "ticket-alice-123456")
	tickets := newFakeTicketDal(&entities.Ticket{
		ID: 3, ChannelID: "chan-1", CreatorID: "user-1", Status: entities.TicketStatusOpen,
	})
	lc := newTestLifecycle(t, gw, tickets, newFakePanelDal(), newFakeSettingsDal(&entities.Settings{}))
	lc.cfg.DeleteDelay = 5 * time.Second

	var delay time.Duration
	var deferred func()
	lc.schedule = func(d time.Duration, fn func()) {
		delay = d
		deferred = fn
	}

	require.NoError(t, lc.CloseTicket(context.Background(), "chan-1"))

	// Deletion is scheduled after the closure notice, not run inline.
	require.Equal(t, 5*time.Second, delay)
	require.Empty(t, gw.deletedChannels)
	deferred()
	require.Equal(t, []string{"chan-1"}, gw.deletedChannels)
}

// TestTicketLifecycleEndToEnd walks one ticket through open, claim and close
// and checks the full audit trail at the end.
func TestTicketLifecycleEndToEnd(t *testing.T) {
	gw := newFakeGateway()
	gw.members["staff-1"] = &discordgo.Member{
		User:  &discordgo.User{ID: "staff-1"},
		Roles: []string{"staff-role"},
	}
	tickets := newFakeTicketDal()
	panels := newFakePanelDal(&entities.Panel{ID: 1, Title: "General"})
	settings := newFakeSettingsDal(&entities.Settings{CategoryOpenID: "CAT1"})
	lc := newTestLifecycle(t, gw, tickets, panels, settings)

	ticket, channel, err := lc.OpenTicket(context.Background(), "U1", "alice", 1)
	require.NoError(t, err)
	require.Equal(t, "CAT1", gw.created[0].ParentID)

	res, err := lc.ClaimTicket(context.Background(), channel.ID, "staff-1")
	require.NoError(t, err)
	require.True(t, res.Allowed)

	require.NoError(t, lc.CloseTicket(context.Background(), channel.ID))

	stored, err := tickets.GetTicketByChannel(context.Background(), channel.ID)
	require.NoError(t, err)
	require.Equal(t, ticket.ID, stored.ID)
	require.Equal(t, entities.TicketStatusClosed, stored.Status)
	require.Equal(t, "staff-1", stored.ClaimerID)
	require.NotNil(t, stored.ClosedAt)
	require.Equal(t, []string{channel.ID}, gw.deletedChannels)
	require.Len(t, gw.dms["U1"], 1)
}
