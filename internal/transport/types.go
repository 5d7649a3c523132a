package transport

import (
	"context"
	"errors"
)

type UpdateKind string

const (
	UpdateMessage    UpdateKind = "message"
	UpdateMemberJoin UpdateKind = "member_join"
)

type Update struct {
	Kind    UpdateKind
	Message *Message
	Join    *Member
}

// Message is one inbound chat message, normalized away from the SDK types.
type Message struct {
	ChannelID           string
	AuthorID            string
	AuthorName          string
	AuthorDiscriminator string
	Text                string
	Direct              bool // true for DM channels
}

// Member is an identity from the platform's live roster.
// The core never persists members; it queries the adapter at dispatch time.
type Member struct {
	ID            string
	Username      string
	Discriminator string
	Bot           bool
}

// Handle is the "name#discriminator" composite used on the tracker wire.
func (m Member) Handle() string {
	return m.Username + "#" + m.Discriminator
}

// ErrBlocked marks a recipient whose DMs are closed to the bot.
// Non-retryable; the dispatcher tallies it separately from transport errors.
var ErrBlocked = errors.New("recipient blocks direct messages")

type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	// SendDM delivers text to a user's direct channel, creating it if needed.
	SendDM(ctx context.Context, userID, text string) error
	// SendText delivers text to an already-known channel.
	SendText(ctx context.Context, channelID, text string) error

	// Members returns the current membership of one guild, bots included.
	Members(ctx context.Context, guildID string) ([]Member, error)
	// Guilds lists the ids of all guilds the bot is connected to.
	Guilds(ctx context.Context) ([]string, error)
}
