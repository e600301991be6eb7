package host

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/danmuck/groupctl/internal/testutil/testlog"
)

func blocking(name string, started *atomic.Int32) Func {
	return Func{ID: name, Fn: func(ctx context.Context) error {
		started.Add(1)
		<-ctx.Done()
		return ctx.Err()
	}}
}

func TestHostRunsAllComponentsUntilCancelled(t *testing.T) {
	testlog.Start(t)
	var started atomic.Int32
	h := New()
	if err := h.Add(blocking("a", &started), blocking("b", &started), blocking("c", &started)); err != nil {
		t.Fatalf("add: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	deadline := time.Now().Add(time.Second)
	for started.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if started.Load() != 3 {
		t.Fatalf("expected all components started, got %d", started.Load())
	}
	if err := h.Add(blocking("late", &started)); !errors.Is(err, ErrHostRunning) {
		t.Fatalf("expected ErrHostRunning, got %v", err)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("clean shutdown returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("host did not stop")
	}
}

func TestHostFailureStopsOtherComponents(t *testing.T) {
	testlog.Start(t)
	var started atomic.Int32
	boom := errors.New("boom")
	h := New()
	_ = h.Add(
		blocking("steady", &started),
		Func{ID: "failing", Fn: func(context.Context) error { return boom }},
	)

	done := make(chan error, 1)
	go func() { done <- h.Run(context.Background()) }()
	select {
	case err := <-done:
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("host did not stop after component failure")
	}
}

func TestHostRejectsNilAndDuplicates(t *testing.T) {
	testlog.Start(t)
	var started atomic.Int32
	h := New()
	if err := h.Add(nil); !errors.Is(err, ErrNilComponent) {
		t.Fatalf("expected ErrNilComponent, got %v", err)
	}
	if err := h.Add(blocking("a", &started)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := h.Add(blocking("a", &started)); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
	if names := h.Names(); len(names) != 1 || names[0] != "a" {
		t.Fatalf("unexpected names: %v", names)
	}
}

func TestHostRunTwiceFails(t *testing.T) {
	testlog.Start(t)
	h := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.Run(ctx); err != nil {
		t.Fatalf("empty host run: %v", err)
	}
	if err := h.Run(ctx); !errors.Is(err, ErrHostRunning) {
		t.Fatalf("expected ErrHostRunning on second run, got %v", err)
	}
}
