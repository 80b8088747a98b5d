package sweeper

import (
	"errors"
	"testing"
	"time"

	"github.com/csml-dev/csml-engine/internal/events"
)

type fakeExpirer struct {
	deleted int
	err     error
	calls   int
}

func (f *fakeExpirer) DeleteExpired() (int, error) {
	f.calls++
	return f.deleted, f.err
}

func TestRunOnce_PublishesStartAndComplete(t *testing.T) {
	bus := events.New()
	sub := bus.Subscribe(8)
	defer bus.Unsubscribe(sub)

	sw := New(nil, &fakeExpirer{deleted: 3}, bus, time.Hour)

	n, err := sw.RunOnce()
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if n != 3 {
		t.Fatalf("got %d deleted, want 3", n)
	}

	start := <-sub
	if start.Kind != events.KindSweepStart {
		t.Fatalf("got kind %q, want sweep_start", start.Kind)
	}
	complete := <-sub
	if complete.Kind != events.KindSweepComplete {
		t.Fatalf("got kind %q, want sweep_complete", complete.Kind)
	}
	if complete.Data["deleted"] != 3 {
		t.Fatalf("got deleted=%v, want 3", complete.Data["deleted"])
	}
}

func TestRunOnce_PropagatesError(t *testing.T) {
	wantErr := errors.New("boom")
	sw := New(nil, &fakeExpirer{err: wantErr}, events.New(), time.Hour)

	_, err := sw.RunOnce()
	if !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want %v", err, wantErr)
	}
}

func TestStartStop_Idempotent(t *testing.T) {
	expirer := &fakeExpirer{}
	sw := New(nil, expirer, events.New(), time.Hour)

	sw.Start()
	sw.Start() // no-op, must not panic or double-schedule
	sw.Stop()
	sw.Stop() // no-op

	if expirer.calls != 0 {
		t.Fatalf("got %d sweep calls before the interval elapsed, want 0", expirer.calls)
	}
}
