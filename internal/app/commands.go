package app

import (
	"context"
	"strings"

	"pantrybot/internal/transport"
)

// handleCommand owns the '!'-prefixed path the intake parser skips.
func (a *App) handleCommand(ctx context.Context, msg *transport.Message) {
	fields := strings.Fields(strings.TrimSpace(msg.Text))
	if len(fields) == 0 {
		return
	}
	switch strings.ToLower(fields[0]) {
	case "!request":
		if err := a.adapter.SendDM(ctx, msg.AuthorID, requestHelpMessage); err != nil {
			a.log.Warn().Str("user", msg.AuthorID).Err(err).Msg("request help DM failed")
		}
	case "!test":
		if err := a.adapter.SendText(ctx, msg.ChannelID, testReply); err != nil {
			a.log.Warn().Str("channel", msg.ChannelID).Err(err).Msg("test reply failed")
		}
	default:
		// Unknown commands are ignored, same as the parser ignores them.
	}
}
