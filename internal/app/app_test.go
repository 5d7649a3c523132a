package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"pantrybot/internal/config"
	"pantrybot/internal/transport"
)

type fakeAdapter struct {
	guilds  map[string][]transport.Member
	dms     map[string][]string
	texts   map[string][]string
	started bool
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		guilds: map[string][]transport.Member{},
		dms:    map[string][]string{},
		texts:  map[string][]string{},
	}
}

func (f *fakeAdapter) Start(ctx context.Context, out chan<- transport.Update) error {
	f.started = true
	return nil
}

func (f *fakeAdapter) Stop(ctx context.Context) error { return nil }

func (f *fakeAdapter) SendDM(ctx context.Context, userID, text string) error {
	f.dms[userID] = append(f.dms[userID], text)
	return nil
}

func (f *fakeAdapter) SendText(ctx context.Context, channelID, text string) error {
	f.texts[channelID] = append(f.texts[channelID], text)
	return nil
}

func (f *fakeAdapter) Members(ctx context.Context, guildID string) ([]transport.Member, error) {
	return f.guilds[guildID], nil
}

func (f *fakeAdapter) Guilds(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(f.guilds))
	for id := range f.guilds {
		ids = append(ids, id)
	}
	return ids, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Token:      "tok",
		GuildID:    "g1",
		TrackerURL: "https://script.example/exec",
		Secret:     "s",
		ListenAddr: ":0",
		Schedule: config.Schedule{
			PromptDays: []string{"sunday"},
			PromptHour: 19,
		},
	}
}

func newTestApp(t *testing.T, cfg *config.Config, adapter transport.Adapter) *App {
	t.Helper()
	a, err := newWithAdapter(cfg, adapter, zerolog.Nop())
	if err != nil {
		t.Fatalf("newWithAdapter: %v", err)
	}
	return a
}

func TestRosterExcludesBots(t *testing.T) {
	t.Parallel()
	f := newFakeAdapter()
	f.guilds["g1"] = []transport.Member{
		{ID: "1", Username: "alice"},
		{ID: "2", Username: "beep", Bot: true},
		{ID: "3", Username: "bob"},
	}
	a := newTestApp(t, testConfig(), f)

	got, err := a.roster(context.Background())
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("roster = %v, want bots excluded", got)
	}
	for _, m := range got {
		if m.Bot {
			t.Fatalf("bot %s in roster", m.ID)
		}
	}
}

func TestRosterPrefersStaticList(t *testing.T) {
	t.Parallel()
	f := newFakeAdapter()
	cfg := testConfig()
	cfg.MemberIDs = []string{"7", "8"}
	a := newTestApp(t, cfg, f)

	got, err := a.roster(context.Background())
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	if len(got) != 2 || got[0].ID != "7" || got[1].ID != "8" {
		t.Fatalf("roster = %v, want the configured ids", got)
	}
}

func TestResolveScansAllGuilds(t *testing.T) {
	t.Parallel()
	f := newFakeAdapter()
	f.guilds["g1"] = []transport.Member{{ID: "1", Username: "alice", Discriminator: "1111"}}
	f.guilds["g2"] = []transport.Member{{ID: "2", Username: "bob", Discriminator: "2222"}}
	a := newTestApp(t, testConfig(), f)

	m, ok := a.Resolve(context.Background(), "bob#2222")
	if !ok || m.ID != "2" {
		t.Fatalf("Resolve = %v, %v", m, ok)
	}

	if _, ok := a.Resolve(context.Background(), "bob#9999"); ok {
		t.Fatal("resolved a member with a wrong discriminator")
	}
	if _, ok := a.Resolve(context.Background(), "no-separator"); ok {
		t.Fatal("resolved a malformed handle")
	}
}

func TestDeliverDMRunsOnChatDomainQueue(t *testing.T) {
	t.Parallel()
	f := newFakeAdapter()
	a := newTestApp(t, testConfig(), f)

	a.DeliverDM("42", "hello")
	if len(f.dms["42"]) != 0 {
		t.Fatal("DeliverDM sent inline; it must only enqueue")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.taskWorker(ctx)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(f.dms["42"]) == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("dms = %v, want one delivery", f.dms)
}

func TestHandleCommandRequest(t *testing.T) {
	t.Parallel()
	f := newFakeAdapter()
	a := newTestApp(t, testConfig(), f)

	msg := &transport.Message{ChannelID: "ch", AuthorID: "42", Text: "!request", Direct: true}
	a.handleUpdate(context.Background(), transport.Update{Kind: transport.UpdateMessage, Message: msg})

	if got := f.dms["42"]; len(got) != 1 || !strings.Contains(got[0], "Submit Food Requests") {
		t.Fatalf("dms = %v, want the request help", got)
	}
}

func TestHandleCommandTest(t *testing.T) {
	t.Parallel()
	f := newFakeAdapter()
	a := newTestApp(t, testConfig(), f)

	msg := &transport.Message{ChannelID: "ch", AuthorID: "42", Text: "!test", Direct: true}
	a.handleUpdate(context.Background(), transport.Update{Kind: transport.UpdateMessage, Message: msg})

	if got := f.texts["ch"]; len(got) != 1 || !strings.Contains(got[0], "Bot is working") {
		t.Fatalf("texts = %v, want the test reply", got)
	}
}

func TestNonRosteredDMIgnored(t *testing.T) {
	t.Parallel()
	f := newFakeAdapter()
	cfg := testConfig()
	cfg.MemberIDs = []string{"7"}
	a := newTestApp(t, cfg, f)

	msg := &transport.Message{ChannelID: "ch", AuthorID: "42", Text: "!test", Direct: true}
	a.handleUpdate(context.Background(), transport.Update{Kind: transport.UpdateMessage, Message: msg})

	if len(f.texts["ch"]) != 0 {
		t.Fatalf("texts = %v, want DM from non-member ignored", f.texts)
	}
}

func TestGuildChannelMessageIgnored(t *testing.T) {
	t.Parallel()
	f := newFakeAdapter()
	a := newTestApp(t, testConfig(), f)

	msg := &transport.Message{ChannelID: "ch", AuthorID: "42", Text: "!test", Direct: false}
	a.handleUpdate(context.Background(), transport.Update{Kind: transport.UpdateMessage, Message: msg})

	if len(f.texts["ch"]) != 0 {
		t.Fatal("non-direct message reached the command path")
	}
}

func TestMemberJoinQueuesWelcome(t *testing.T) {
	t.Parallel()
	f := newFakeAdapter()
	a := newTestApp(t, testConfig(), f)

	a.handleUpdate(context.Background(), transport.Update{
		Kind: transport.UpdateMemberJoin,
		Join: &transport.Member{ID: "9", Username: "carol"},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.taskWorker(ctx)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(f.dms["9"]) == 1 {
			if !strings.Contains(f.dms["9"][0], "Food Request Time") {
				t.Fatalf("welcome = %q", f.dms["9"][0])
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("dms = %v, want a welcome DM", f.dms)
}
