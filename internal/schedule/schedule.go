// Package schedule decides when the recurring campaigns fire.
//
// A cron job wakes the service at the top of every hour and compares the
// local wall clock against two static tables. The match is on exact hour
// equality and Start evaluates once immediately, so a restart inside a
// matching hour still fires (and may re-fire a run the previous process
// already sent). Hours the process slept through are skipped, no catch-up.
package schedule

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Window is one (weekday, hour) slot.
type Window struct {
	Day  time.Weekday
	Hour int
}

type Config struct {
	// Prompt campaign: fires when weekday is in PromptDays and hour equals PromptHour.
	PromptDays []time.Weekday
	PromptHour int
	// Summary campaign: ordered slots, first match wins.
	SummarySlots []Window
}

type Service struct {
	cfg Config
	log zerolog.Logger

	onPrompt  func()
	onSummary func()
	now       func() time.Time

	c *cron.Cron
}

func New(cfg Config, onPrompt, onSummary func(), log zerolog.Logger) *Service {
	return &Service{
		cfg:       cfg,
		log:       log,
		onPrompt:  onPrompt,
		onSummary: onSummary,
		now:       time.Now,
	}
}

func (s *Service) Start(ctx context.Context) error {
	s.c = cron.New()
	// Top of every hour, local time.
	if _, err := s.c.AddFunc("0 * * * *", s.tick); err != nil {
		return err
	}
	s.c.Start()
	s.log.Info().
		Int("prompt_days", len(s.cfg.PromptDays)).
		Int("prompt_hour", s.cfg.PromptHour).
		Int("summary_slots", len(s.cfg.SummarySlots)).
		Msg("schedule started")
	go func() {
		<-ctx.Done()
		s.c.Stop()
	}()
	// Evaluate the current hour right away so a restart inside a matching
	// window does not wait for the next top of hour.
	s.tick()
	return nil
}

func (s *Service) tick() {
	now := s.now()
	prompt, summary := s.cfg.Evaluate(now)
	if prompt {
		s.log.Info().Time("at", now).Msg("prompt window matched")
		s.onPrompt()
	}
	if summary {
		s.log.Info().Time("at", now).Msg("summary window matched")
		s.onSummary()
	}
}

// Evaluate reports which campaigns the given instant triggers.
// Summary slots are checked in order and the first match wins, so two
// overlapping slots cannot both fire in the same tick.
func (c Config) Evaluate(now time.Time) (prompt, summary bool) {
	for _, d := range c.PromptDays {
		if now.Weekday() == d && now.Hour() == c.PromptHour {
			prompt = true
			break
		}
	}
	for _, w := range c.SummarySlots {
		if now.Weekday() == w.Day && now.Hour() == w.Hour {
			summary = true
			break
		}
	}
	return prompt, summary
}
