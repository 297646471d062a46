package ticketing

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/kestrelbot/kestrel/pkg/custom"
	"github.com/kestrelbot/kestrel/pkg/dataaccess"
	"github.com/kestrelbot/kestrel/pkg/entities"
)

// fakeGateway is an in-memory ChannelGateway. Channels and messages created
// through it are observable by the tests.
type fakeGateway struct {
	mu sync.Mutex

	botID string

	channels map[string]*discordgo.Channel
	messages map[string][]*discordgo.Message

	created         []discordgo.GuildChannelCreateData
	pinned          []string
	deletedMessages []string
	deletedChannels []string
	dms             map[string][]*discordgo.MessageSend
	members         map[string]*discordgo.Member

	nextID int

	createErr   error
	channelErr  map[string]error
	messagesErr error
	sendErr     error
	memberErr   error
	dmErr       error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		botID:      "bot-1",
		channels:   make(map[string]*discordgo.Channel),
		messages:   make(map[string][]*discordgo.Message),
		dms:        make(map[string][]*discordgo.MessageSend),
		members:    make(map[string]*discordgo.Member),
		channelErr: make(map[string]error),
	}
}

func (g *fakeGateway) addChannel(id, name string) *discordgo.Channel {
	ch := &discordgo.Channel{ID: id, Name: name, Type: discordgo.ChannelTypeGuildText}
	g.channels[id] = ch
	return ch
}

func (g *fakeGateway) CreateGuildChannel(_ context.Context, _ string, data discordgo.GuildChannelCreateData) (*discordgo.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.created = append(g.created, data)
	g.nextID++
	ch := &discordgo.Channel{
		ID:       fmt.Sprintf("chan-%d", g.nextID),
		Name:     data.Name,
		ParentID: data.ParentID,
		Type:     data.Type,
	}
	g.channels[ch.ID] = ch
	return ch, nil
}

func (g *fakeGateway) Channel(_ context.Context, channelID string) (*discordgo.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.channelErr[channelID]; err != nil {
		return nil, err
	}
	return g.channels[channelID], nil
}

func (g *fakeGateway) ChannelMessages(_ context.Context, channelID string, limit int) ([]*discordgo.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.messagesErr != nil {
		return nil, g.messagesErr
	}
	msgs := g.messages[channelID]
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func (g *fakeGateway) SendMessage(ctx context.Context, channelID, content string) (*discordgo.Message, error) {
	return g.SendComplex(ctx, channelID, &discordgo.MessageSend{Content: content})
}

func (g *fakeGateway) SendComplex(_ context.Context, channelID string, data *discordgo.MessageSend) (*discordgo.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sendErr != nil {
		return nil, g.sendErr
	}
	g.nextID++
	msg := &discordgo.Message{
		ID:        fmt.Sprintf("msg-%d", g.nextID),
		ChannelID: channelID,
		Content:   data.Content,
		Author:    &discordgo.User{ID: g.botID, Bot: true},
	}
	// Newest first, as the platform returns them.
	g.messages[channelID] = append([]*discordgo.Message{msg}, g.messages[channelID]...)
	return msg, nil
}

func (g *fakeGateway) PinMessage(_ context.Context, channelID, messageID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pinned = append(g.pinned, channelID+"/"+messageID)
	return nil
}

func (g *fakeGateway) DeleteMessage(_ context.Context, channelID, messageID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deletedMessages = append(g.deletedMessages, channelID+"/"+messageID)
	return nil
}

func (g *fakeGateway) DeleteChannel(_ context.Context, channelID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deletedChannels = append(g.deletedChannels, channelID)
	delete(g.channels, channelID)
	return nil
}

func (g *fakeGateway) GuildMember(_ context.Context, _, userID string) (*discordgo.Member, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.memberErr != nil {
		return nil, g.memberErr
	}
	if m, ok := g.members[userID]; ok {
		return m, nil
	}
	return &discordgo.Member{User: &discordgo.User{ID: userID}}, nil
}

func (g *fakeGateway) DirectMessage(_ context.Context, userID string, data *discordgo.MessageSend) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.dmErr != nil {
		return g.dmErr
	}
	g.dms[userID] = append(g.dms[userID], data)
	return nil
}

func (g *fakeGateway) BotUserID() string {
	return g.botID
}

func (g *fakeGateway) sentTo(channelID string) []*discordgo.Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.messages[channelID]
}

// fakePanelDal is an in-memory PanelDal.
type fakePanelDal struct {
	panels  map[int]*entities.Panel
	listErr error
}

func newFakePanelDal(panels ...*entities.Panel) *fakePanelDal {
	d := &fakePanelDal{panels: make(map[int]*entities.Panel)}
	for _, p := range panels {
		d.panels[p.ID] = p
	}
	return d
}

func (d *fakePanelDal) ListPanels(context.Context) ([]*entities.Panel, error) {
	if d.listErr != nil {
		return nil, d.listErr
	}
	ids := make([]int, 0, len(d.panels))
	for id := range d.panels {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]*entities.Panel, 0, len(ids))
	for _, id := range ids {
		out = append(out, d.panels[id])
	}
	return out, nil
}

func (d *fakePanelDal) GetPanel(_ context.Context, id int) (*entities.Panel, error) {
	if p, ok := d.panels[id]; ok {
		return p, nil
	}
	return nil, dataaccess.ErrNotFound
}

func (d *fakePanelDal) SavePanel(_ context.Context, p *entities.Panel) error {
	d.panels[p.ID] = p
	return nil
}

func (d *fakePanelDal) DeletePanel(_ context.Context, id int) error {
	delete(d.panels, id)
	return nil
}

func (d *fakePanelDal) NextPanelID(context.Context) (int, error) {
	max := 0
	for id := range d.panels {
		if id > max {
			max = id
		}
	}
	return max + 1, nil
}

// fakeTicketDal is an in-memory TicketDal. Id allocation mimics the counter
// document: it is atomic under the mutex, and idDelay can stretch the critical
// section to mimic a store roundtrip.
type fakeTicketDal struct {
	mu      sync.Mutex
	tickets []*entities.Ticket
	nextID  int
	idDelay time.Duration
	idErr   error
	saveErr error
	listErr error
}

func newFakeTicketDal(tickets ...*entities.Ticket) *fakeTicketDal {
	return &fakeTicketDal{tickets: tickets}
}

func (d *fakeTicketDal) ListTickets(context.Context) ([]*entities.Ticket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*entities.Ticket(nil), d.tickets...), nil
}

func (d *fakeTicketDal) ListOpenTickets(context.Context) ([]*entities.Ticket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.listErr != nil {
		return nil, d.listErr
	}
	var out []*entities.Ticket
	for _, t := range d.tickets {
		if t.Status == entities.TicketStatusOpen {
			out = append(out, t)
		}
	}
	return out, nil
}

func (d *fakeTicketDal) GetTicketByChannel(_ context.Context, channelID string) (*entities.Ticket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range d.tickets {
		if t.ChannelID == channelID {
			return t, nil
		}
	}
	return nil, dataaccess.ErrNotFound
}

func (d *fakeTicketDal) NextTicketID(context.Context) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.idErr != nil {
		return 0, d.idErr
	}
	if d.idDelay > 0 {
		time.Sleep(d.idDelay)
	}
	if d.nextID == 0 {
		for _, t := range d.tickets {
			if t.ID > d.nextID {
				d.nextID = t.ID
			}
		}
	}
	d.nextID++
	return d.nextID, nil
}

func (d *fakeTicketDal) SaveTicket(_ context.Context, ticket *entities.Ticket) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.saveErr != nil {
		return d.saveErr
	}
	for i, t := range d.tickets {
		if t.ChannelID == ticket.ChannelID {
			d.tickets[i] = ticket
			return nil
		}
	}
	d.tickets = append(d.tickets, ticket)
	return nil
}

func (d *fakeTicketDal) CloseTicket(_ context.Context, id int, closedAt time.Time) (*entities.Ticket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range d.tickets {
		if t.ID == id {
			t.Status = entities.TicketStatusClosed
			stamp := custom.Datetime(closedAt)
			t.ClosedAt = &stamp
			return t, nil
		}
	}
	return nil, dataaccess.ErrNotFound
}

func (d *fakeTicketDal) SetPriority(_ context.Context, id int, priority string) (*entities.Ticket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range d.tickets {
		if t.ID == id {
			t.Priority = priority
			return t, nil
		}
	}
	return nil, dataaccess.ErrNotFound
}

// fakeSettingsDal is an in-memory SettingsDal.
type fakeSettingsDal struct {
	mu       sync.Mutex
	settings *entities.Settings
	setIDs   []string
}

func newFakeSettingsDal(s *entities.Settings) *fakeSettingsDal {
	return &fakeSettingsDal{settings: s}
}

func (d *fakeSettingsDal) GetSettings(context.Context) (*entities.Settings, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.settings == nil {
		return nil, dataaccess.ErrNotFound
	}
	copied := *d.settings
	return &copied, nil
}

func (d *fakeSettingsDal) UpdateSettings(_ context.Context, s *entities.Settings) (*entities.Settings, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.settings = s
	return s, nil
}

func (d *fakeSettingsDal) SetLastPanelMessageID(_ context.Context, messageID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.settings == nil {
		d.settings = new(entities.Settings)
	}
	d.settings.LastPanelMessageID = messageID
	d.setIDs = append(d.setIDs, messageID)
	return nil
}
