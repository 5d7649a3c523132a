// Package broadcast fans one message out to a roster of direct channels.
package broadcast

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"pantrybot/internal/transport"
)

// DirectSender is the slice of the transport the dispatcher needs.
type DirectSender interface {
	SendDM(ctx context.Context, userID, text string) error
}

// Tally is the final outcome of one run. Blocked recipients and transport
// errors collapse into Failed; the distinction survives only in the logs.
type Tally struct {
	Delivered int
	Failed    int
}

type Config struct {
	// Delay between consecutive sends, to stay under transport rate limits.
	SendDelay time.Duration
}

type Dispatcher struct {
	cfg     Config
	sender  DirectSender
	log     zerolog.Logger
	onSent  func(campaign string, delivered bool)
}

// New creates a Dispatcher. onSent may be nil; when set it is invoked once
// per recipient outcome (used for metrics).
func New(cfg Config, sender DirectSender, onSent func(campaign string, delivered bool), log zerolog.Logger) *Dispatcher {
	if cfg.SendDelay <= 0 {
		cfg.SendDelay = time.Second
	}
	return &Dispatcher{cfg: cfg, sender: sender, onSent: onSent, log: log}
}

// Run sends text to every target sequentially, waiting the configured delay
// between sends. A failure never aborts the loop; every remaining target
// still gets its send. Returns the delivered/failed tally.
func (d *Dispatcher) Run(ctx context.Context, campaign string, targets []transport.Member, text string) Tally {
	runID := uuid.New().String()
	log := d.log.With().Str("run", runID).Str("campaign", campaign).Logger()
	log.Info().Int("targets", len(targets)).Msg("broadcast started")

	// Burst 1 so the first send goes out immediately and every send after
	// waits one full delay.
	lim := rate.NewLimiter(rate.Every(d.cfg.SendDelay), 1)

	var tally Tally
	start := time.Now()
	for _, m := range targets {
		if err := lim.Wait(ctx); err != nil {
			log.Warn().Err(err).Msg("broadcast interrupted")
			break
		}
		err := d.sender.SendDM(ctx, m.ID, text)
		switch {
		case err == nil:
			tally.Delivered++
			log.Info().Str("user", m.ID).Msg("delivered")
		case errors.Is(err, transport.ErrBlocked):
			tally.Failed++
			log.Warn().Str("user", m.ID).Msg("recipient blocks DMs; skipped")
		default:
			tally.Failed++
			log.Warn().Str("user", m.ID).Err(err).Msg("send failed")
		}
		if d.onSent != nil {
			d.onSent(campaign, err == nil)
		}
	}

	ev := log.Info()
	if tally.Failed > 0 {
		ev = log.Warn()
	}
	ev.Int("delivered", tally.Delivered).
		Int("failed", tally.Failed).
		Dur("took", time.Since(start)).
		Msg("broadcast finished")
	return tally
}
