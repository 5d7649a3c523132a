// Package app wires the services together and owns the chat domain: the
// inbound update loop and the task queue that serializes campaign runs and
// cross-domain deliveries.
package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"pantrybot/internal/broadcast"
	"pantrybot/internal/config"
	"pantrybot/internal/intake"
	"pantrybot/internal/metrics"
	"pantrybot/internal/notify"
	"pantrybot/internal/schedule"
	"pantrybot/internal/tracker"
	"pantrybot/internal/transport"
	"pantrybot/internal/transport/discord"
)

const botName = "pantrybot"

type App struct {
	cfg     *config.Config
	log     zerolog.Logger
	adapter transport.Adapter

	dispatcher *broadcast.Dispatcher
	intake     *intake.Service
	sched      *schedule.Service
	notifySrv  *notify.Server
	metrics    *metrics.Metrics

	// tasks is the chat domain's scheduling queue. Campaign runs and DMs
	// handed off from the HTTP domain execute here, one at a time.
	tasks   chan func(context.Context)
	updates chan transport.Update
}

func New(cfg *config.Config, log zerolog.Logger) (*App, error) {
	adapter, err := discord.New(discord.Config{Token: cfg.Token}, log.With().Str("svc", "discord").Logger())
	if err != nil {
		return nil, err
	}
	return newWithAdapter(cfg, adapter, log)
}

// newWithAdapter is the seam tests use to substitute a fake transport.
func newWithAdapter(cfg *config.Config, adapter transport.Adapter, log zerolog.Logger) (*App, error) {
	a := &App{
		cfg:     cfg,
		log:     log,
		adapter: adapter,
		metrics: metrics.New(),
		tasks:   make(chan func(context.Context), 64),
		updates: make(chan transport.Update, 256),
	}

	client := tracker.New(cfg.TrackerURL, cfg.Secret, log.With().Str("svc", "tracker").Logger())
	fwd := &measuredForwarder{inner: client, metrics: a.metrics}

	a.intake = intake.New(
		intake.Config{OperatorID: cfg.OperatorID},
		fwd,
		adapter,
		func(d string) { a.metrics.IntakeMessagesTotal.WithLabelValues(d).Inc() },
		log.With().Str("svc", "intake").Logger(),
	)

	a.dispatcher = broadcast.New(
		broadcast.Config{SendDelay: time.Second},
		adapter,
		a.metrics.BroadcastOutcome,
		log.With().Str("svc", "broadcast").Logger(),
	)

	sc, err := cfg.ScheduleConfig()
	if err != nil {
		return nil, err
	}
	a.sched = schedule.New(sc,
		func() { a.enqueue("prompt campaign", a.runPrompt) },
		func() { a.enqueue("summary campaign", a.runSummary) },
		log.With().Str("svc", "schedule").Logger(),
	)

	a.notifySrv = notify.NewServer(
		notify.Config{
			ListenAddr: cfg.ListenAddr,
			Secret:     cfg.Secret,
			BotName:    botName,
			SheetURL:   cfg.SheetURL,
		},
		a, a, a.metrics,
		log.With().Str("svc", "notify").Logger(),
	)
	return a, nil
}

// Run blocks until ctx is cancelled or the HTTP listener fails.
func (a *App) Run(ctx context.Context) error {
	if err := a.adapter.Start(ctx, a.updates); err != nil {
		return err
	}
	if err := a.sched.Start(ctx); err != nil {
		return err
	}

	httpErr := make(chan error, 1)
	go func() {
		if err := a.notifySrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
	}()

	go a.taskWorker(ctx)

	a.log.Info().Msg("running")
	defer a.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-httpErr:
			return err
		case up := <-a.updates:
			a.handleUpdate(ctx, up)
		}
	}
}

func (a *App) shutdown() {
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.notifySrv.Shutdown(sctx); err != nil {
		a.log.Warn().Err(err).Msg("notify listener shutdown failed")
	}
	if err := a.adapter.Stop(sctx); err != nil {
		a.log.Warn().Err(err).Msg("adapter stop failed")
	}
}

// taskWorker drains the chat domain queue sequentially, so a long broadcast
// and a handed-off delivery never interleave their sends.
func (a *App) taskWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-a.tasks:
			t(ctx)
		}
	}
}

func (a *App) enqueue(name string, task func(context.Context)) {
	select {
	case a.tasks <- task:
	default:
		a.log.Warn().Str("task", name).Msg("task queue full; dropping")
	}
}

func (a *App) handleUpdate(ctx context.Context, up transport.Update) {
	switch up.Kind {
	case transport.UpdateMessage:
		msg := up.Message
		if msg == nil || !msg.Direct {
			return
		}
		if !a.fromRosteredMember(msg.AuthorID) {
			a.log.Debug().Str("user", msg.AuthorID).Msg("DM from non-member ignored")
			return
		}
		if strings.HasPrefix(strings.TrimSpace(msg.Text), intake.CommandPrefix) {
			a.handleCommand(ctx, msg)
			return
		}
		a.intake.Handle(ctx, msg)
	case transport.UpdateMemberJoin:
		m := up.Join
		if m == nil || m.Bot {
			return
		}
		a.log.Info().Str("user", m.ID).Str("name", m.Username).Msg("member joined")
		a.enqueue("welcome", func(ctx context.Context) {
			if err := a.adapter.SendDM(ctx, m.ID, promptMessage); err != nil {
				a.log.Warn().Str("user", m.ID).Err(err).Msg("welcome DM failed")
			}
		})
	}
}

// fromRosteredMember gates DM intake to the configured roster when one is
// set; with a dynamic roster every non-bot DM is accepted.
func (a *App) fromRosteredMember(userID string) bool {
	if len(a.cfg.MemberIDs) == 0 {
		return true
	}
	for _, id := range a.cfg.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// roster returns the current broadcast targets: the static configured list,
// or all non-bot members of the primary guild queried at dispatch time.
func (a *App) roster(ctx context.Context) ([]transport.Member, error) {
	if len(a.cfg.MemberIDs) > 0 {
		out := make([]transport.Member, 0, len(a.cfg.MemberIDs))
		for _, id := range a.cfg.MemberIDs {
			out = append(out, transport.Member{ID: id})
		}
		return out, nil
	}
	members, err := a.adapter.Members(ctx, a.cfg.GuildID)
	if err != nil {
		return nil, err
	}
	out := make([]transport.Member, 0, len(members))
	for _, m := range members {
		if !m.Bot {
			out = append(out, m)
		}
	}
	return out, nil
}

func (a *App) runPrompt(ctx context.Context) {
	a.runCampaign(ctx, "prompt", promptMessage)
}

func (a *App) runSummary(ctx context.Context) {
	a.runCampaign(ctx, "summary", summaryMessage)
}

func (a *App) runCampaign(ctx context.Context, name, text string) {
	targets, err := a.roster(ctx)
	if err != nil {
		a.log.Error().Str("campaign", name).Err(err).Msg("roster lookup failed; campaign skipped")
		return
	}
	a.dispatcher.Run(ctx, name, targets, text)
}

// Resolve implements notify.Resolver: split the composite handle and scan
// the live membership of every known guild for a name+discriminator match.
func (a *App) Resolve(ctx context.Context, handle string) (transport.Member, bool) {
	i := strings.LastIndex(handle, "#")
	if i <= 0 {
		return transport.Member{}, false
	}
	name, disc := handle[:i], handle[i+1:]

	guilds, err := a.adapter.Guilds(ctx)
	if err != nil {
		a.log.Warn().Err(err).Msg("guild listing failed")
		return transport.Member{}, false
	}
	for _, g := range guilds {
		members, err := a.adapter.Members(ctx, g)
		if err != nil {
			a.log.Warn().Str("guild", g).Err(err).Msg("member listing failed")
			continue
		}
		for _, m := range members {
			if m.Username == name && m.Discriminator == disc {
				return m, true
			}
		}
	}
	return transport.Member{}, false
}

// DeliverDM implements notify.Deliverer: the HTTP domain never calls the
// transport directly, it hands the send into the chat domain's queue.
func (a *App) DeliverDM(userID, text string) {
	a.enqueue("status delivery", func(ctx context.Context) {
		if err := a.adapter.SendDM(ctx, userID, text); err != nil {
			a.log.Warn().Str("user", userID).Err(err).Msg("status delivery failed")
		}
	})
}

// measuredForwarder counts tracker outcomes without the client knowing
// about metrics.
type measuredForwarder struct {
	inner   intake.Forwarder
	metrics *metrics.Metrics
}

func (f *measuredForwarder) Submit(ctx context.Context, user string, items []string) tracker.Result {
	res := f.inner.Submit(ctx, user, items)
	outcome := "ok"
	if !res.Success {
		outcome = "failed"
	}
	f.metrics.ForwardsTotal.WithLabelValues(outcome).Inc()
	return res
}
