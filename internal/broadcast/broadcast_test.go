package broadcast

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"pantrybot/internal/transport"
)

type fakeSender struct {
	sent    []string
	failFor map[string]error
	stamps  []time.Time
}

func (f *fakeSender) SendDM(ctx context.Context, userID, text string) error {
	f.sent = append(f.sent, userID)
	f.stamps = append(f.stamps, time.Now())
	if err, ok := f.failFor[userID]; ok {
		return err
	}
	return nil
}

func members(ids ...string) []transport.Member {
	out := make([]transport.Member, 0, len(ids))
	for _, id := range ids {
		out = append(out, transport.Member{ID: id})
	}
	return out
}

func TestRunDeliversToAllTargets(t *testing.T) {
	t.Parallel()
	f := &fakeSender{}
	d := New(Config{SendDelay: time.Millisecond}, f, nil, zerolog.Nop())

	tally := d.Run(context.Background(), "prompt", members("a", "b", "c"), "hi")

	if len(f.sent) != 3 {
		t.Fatalf("sent %d messages, want 3", len(f.sent))
	}
	if tally.Delivered != 3 || tally.Failed != 0 {
		t.Fatalf("tally = %+v, want {3 0}", tally)
	}
}

func TestRunBlockedRecipientDoesNotAbort(t *testing.T) {
	t.Parallel()
	f := &fakeSender{failFor: map[string]error{
		"b": transport.ErrBlocked,
		"c": errors.New("gateway timeout"),
	}}
	d := New(Config{SendDelay: time.Millisecond}, f, nil, zerolog.Nop())

	tally := d.Run(context.Background(), "prompt", members("a", "b", "c", "d"), "hi")

	if len(f.sent) != 4 {
		t.Fatalf("sent %d messages, want 4 (failures must not stop the loop)", len(f.sent))
	}
	if tally.Delivered != 2 || tally.Failed != 2 {
		t.Fatalf("tally = %+v, want {2 2}", tally)
	}
	if got := tally.Delivered + tally.Failed; got != 4 {
		t.Fatalf("delivered+failed = %d, want 4", got)
	}
}

func TestRunWaitsBetweenSends(t *testing.T) {
	t.Parallel()
	f := &fakeSender{}
	delay := 30 * time.Millisecond
	d := New(Config{SendDelay: delay}, f, nil, zerolog.Nop())

	d.Run(context.Background(), "prompt", members("a", "b", "c"), "hi")

	for i := 1; i < len(f.stamps); i++ {
		if gap := f.stamps[i].Sub(f.stamps[i-1]); gap < delay-5*time.Millisecond {
			t.Fatalf("gap between send %d and %d was %v, want >= %v", i-1, i, gap, delay)
		}
	}
}

func TestRunReportsPerRecipientOutcome(t *testing.T) {
	t.Parallel()
	f := &fakeSender{failFor: map[string]error{"b": transport.ErrBlocked}}
	var outcomes []bool
	d := New(Config{SendDelay: time.Millisecond}, f, func(campaign string, delivered bool) {
		outcomes = append(outcomes, delivered)
	}, zerolog.Nop())

	d.Run(context.Background(), "summary", members("a", "b"), "hi")

	if len(outcomes) != 2 || !outcomes[0] || outcomes[1] {
		t.Fatalf("outcomes = %v, want [true false]", outcomes)
	}
}

func TestRunCancelledContextStops(t *testing.T) {
	t.Parallel()
	f := &fakeSender{}
	d := New(Config{SendDelay: time.Hour}, f, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	tally := d.Run(ctx, "prompt", members("a", "b", "c"), "hi")

	// First send goes out before the limiter blocks; the rest are cut off.
	if tally.Delivered+tally.Failed >= 3 {
		t.Fatalf("expected run to stop early, tally = %+v", tally)
	}
}
