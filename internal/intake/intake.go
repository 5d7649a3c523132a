// Package intake turns one free-text direct message into a tracked
// request submission, or a classified non-item response.
package intake

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"pantrybot/internal/tracker"
	"pantrybot/internal/transport"
)

// CommandPrefix marks messages handled by the command path, not the parser.
const CommandPrefix = "!"

// DefaultMaxItems is the advisory threshold; exceeding it warns the sender
// but never truncates or stops the submission.
const DefaultMaxItems = 20

const (
	parseFailureReply = "❌ I couldn't parse any items from your message. Try: `grapes, kale, lettuce`"
	forwardFailFmt    = "❌ Failed to add requests: %s\nPlease contact the Kitchen Manager."
)

// Forwarder submits a normalized request to the external tracker.
type Forwarder interface {
	Submit(ctx context.Context, user string, items []string) tracker.Result
}

// Sender is the slice of the transport the responder needs.
type Sender interface {
	SendText(ctx context.Context, channelID, text string) error
	SendDM(ctx context.Context, userID, text string) error
}

type Config struct {
	// OperatorID, when set, receives a copy of every accepted submission.
	OperatorID string
	MaxItems   int
}

type Service struct {
	cfg    Config
	fwd    Forwarder
	sender Sender
	log    zerolog.Logger

	// onHandled, when set, is invoked once per message with its disposition
	// (easter_egg, parse_failure, forwarded, forward_failed).
	onHandled func(disposition string)
}

func New(cfg Config, fwd Forwarder, sender Sender, onHandled func(string), log zerolog.Logger) *Service {
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = DefaultMaxItems
	}
	return &Service{cfg: cfg, fwd: fwd, sender: sender, onHandled: onHandled, log: log}
}

// Items splits free text on commas, trims each segment and drops empties.
// Duplicates are kept as-is. Applying Items twice to its own joined output
// yields the same list.
func Items(content string) []string {
	parts := strings.Split(content, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	return items
}

// Handle processes one direct message from a non-self sender. Messages
// starting with the command prefix are ignored here; the command path owns
// them.
func (s *Service) Handle(ctx context.Context, msg *transport.Message) {
	content := strings.TrimSpace(msg.Text)
	if strings.HasPrefix(content, CommandPrefix) {
		return
	}

	if c := Classify(content); c != nil {
		s.log.Info().Str("user", msg.AuthorID).Str("classifier", c.Name).Msg("easter egg intercepted")
		s.reply(ctx, msg, c.Reply)
		s.handled("easter_egg")
		return
	}

	items := Items(content)
	if len(items) > s.cfg.MaxItems {
		// Advisory only; the submission still goes through untruncated.
		s.reply(ctx, msg, fmt.Sprintf("⚠️ That's a lot of items (%d). Submitting anyway.", len(items)))
	}
	if len(items) == 0 {
		s.reply(ctx, msg, parseFailureReply)
		s.handled("parse_failure")
		return
	}

	handle := msg.AuthorName + "#" + msg.AuthorDiscriminator
	res := s.fwd.Submit(ctx, handle, items)
	if !res.Success {
		s.log.Warn().Str("user", handle).Str("err", res.Err).Msg("submission rejected")
		s.reply(ctx, msg, fmt.Sprintf(forwardFailFmt, res.Err))
		s.handled("forward_failed")
		return
	}

	s.log.Info().Str("user", handle).Int("items", len(items)).Msg("submission accepted")
	s.reply(ctx, msg, confirmation(items))
	s.notifyOperator(ctx, handle, items)
	s.handled("forwarded")
}

func confirmation(items []string) string {
	var b strings.Builder
	b.WriteString("✅ **Added to request tracker:**\n")
	for _, it := range items {
		b.WriteString("• ")
		b.WriteString(it)
		b.WriteString("\n")
	}
	b.WriteString("\nThank you!")
	return b.String()
}

// notifyOperator copies the accepted list to the operator. Failures are
// logged only and never surface to the original sender.
func (s *Service) notifyOperator(ctx context.Context, handle string, items []string) {
	if s.cfg.OperatorID == "" {
		return
	}
	text := fmt.Sprintf("📥 %s submitted:\n%s", handle, "• "+strings.Join(items, "\n• "))
	if err := s.sender.SendDM(ctx, s.cfg.OperatorID, text); err != nil {
		s.log.Warn().Str("operator", s.cfg.OperatorID).Err(err).Msg("operator notification failed")
	}
}

func (s *Service) reply(ctx context.Context, msg *transport.Message, text string) {
	if err := s.sender.SendText(ctx, msg.ChannelID, text); err != nil {
		s.log.Warn().Str("channel", msg.ChannelID).Err(err).Msg("reply failed")
	}
}

func (s *Service) handled(disposition string) {
	if s.onHandled != nil {
		s.onHandled(disposition)
	}
}
