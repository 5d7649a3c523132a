// Package discord adapts the discordgo session to the transport boundary.
package discord

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"pantrybot/internal/transport"
)

type Config struct {
	Token string
}

type Adapter struct {
	cfg     Config
	log     zerolog.Logger
	session *discordgo.Session

	runMu     sync.Mutex
	running   bool
	runCancel context.CancelFunc

	// droppedUpdates counts updates dropped because the consumer was slower
	// than the gateway. Logged periodically to avoid per-update log spam.
	droppedUpdates uint64
}

func New(cfg Config, log zerolog.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("discord token is empty")
	}
	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent
	return &Adapter{cfg: cfg, log: log, session: s}, nil
}

func (a *Adapter) Start(ctx context.Context, out chan<- transport.Update) error {
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return nil
	}
	a.running = true
	rctx, cancel := context.WithCancel(ctx)
	a.runCancel = cancel
	a.runMu.Unlock()

	a.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || (s.State.User != nil && m.Author.ID == s.State.User.ID) {
			return
		}
		up := transport.Update{
			Kind: transport.UpdateMessage,
			Message: &transport.Message{
				ChannelID:           m.ChannelID,
				AuthorID:            m.Author.ID,
				AuthorName:          m.Author.Username,
				AuthorDiscriminator: m.Author.Discriminator,
				Text:                m.Content,
				Direct:              m.GuildID == "",
			},
		}
		a.push(out, up)
	})

	a.session.AddHandler(func(s *discordgo.Session, g *discordgo.GuildMemberAdd) {
		if g.User == nil {
			return
		}
		up := transport.Update{
			Kind: transport.UpdateMemberJoin,
			Join: &transport.Member{
				ID:            g.User.ID,
				Username:      g.User.Username,
				Discriminator: g.User.Discriminator,
				Bot:           g.User.Bot,
			},
		}
		a.push(out, up)
	})

	if err := a.session.Open(); err != nil {
		a.runMu.Lock()
		a.running = false
		a.runCancel = nil
		a.runMu.Unlock()
		cancel()
		return err
	}
	a.log.Info().Msg("gateway connected")

	// Periodic summary for dropped updates (avoid noisy per-update logs).
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-rctx.Done():
				if n := atomic.SwapUint64(&a.droppedUpdates, 0); n > 0 {
					a.log.Warn().Uint64("count", n).Msg("incoming updates dropped (channel full)")
				}
				return
			case <-ticker.C:
				if n := atomic.SwapUint64(&a.droppedUpdates, 0); n > 0 {
					a.log.Warn().Uint64("count", n).Msg("incoming updates dropped (channel full)")
				}
			}
		}
	}()

	return nil
}

func (a *Adapter) push(out chan<- transport.Update, up transport.Update) {
	select {
	case out <- up:
	default:
		atomic.AddUint64(&a.droppedUpdates, 1)
	}
}

func (a *Adapter) Stop(ctx context.Context) error {
	a.runMu.Lock()
	cancel := a.runCancel
	a.runCancel = nil
	wasRunning := a.running
	a.running = false
	a.runMu.Unlock()

	if !wasRunning {
		return nil
	}
	if cancel != nil {
		cancel()
	}
	err := a.session.Close()
	a.log.Info().Msg("gateway closed")
	return err
}

func (a *Adapter) SendDM(ctx context.Context, userID, text string) error {
	ch, err := a.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return normalizeSendErr(err)
	}
	_, err = a.session.ChannelMessageSend(ch.ID, text, discordgo.WithContext(ctx))
	return normalizeSendErr(err)
}

func (a *Adapter) SendText(ctx context.Context, channelID, text string) error {
	_, err := a.session.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx))
	return normalizeSendErr(err)
}

// Members pages through the guild member list; Discord caps one page at 1000.
func (a *Adapter) Members(ctx context.Context, guildID string) ([]transport.Member, error) {
	var all []transport.Member
	after := ""
	for {
		page, err := a.session.GuildMembers(guildID, after, 1000, discordgo.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		for _, gm := range page {
			if gm.User == nil {
				continue
			}
			all = append(all, transport.Member{
				ID:            gm.User.ID,
				Username:      gm.User.Username,
				Discriminator: gm.User.Discriminator,
				Bot:           gm.User.Bot,
			})
		}
		if len(page) < 1000 {
			return all, nil
		}
		after = page[len(page)-1].User.ID
	}
}

func (a *Adapter) Guilds(ctx context.Context) ([]string, error) {
	a.session.State.RLock()
	defer a.session.State.RUnlock()
	ids := make([]string, 0, len(a.session.State.Guilds))
	for _, g := range a.session.State.Guilds {
		ids = append(ids, g.ID)
	}
	return ids, nil
}

// normalizeSendErr maps Discord's "cannot DM this user" REST error onto the
// transport sentinel so callers can classify without knowing the SDK.
func normalizeSendErr(err error) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Message != nil &&
		rest.Message.Code == discordgo.ErrCodeCannotSendMessagesToThisUser {
		return transport.ErrBlocked
	}
	return err
}
