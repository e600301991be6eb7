package scene

import (
	"context"
	"testing"
	"time"

	"github.com/danmuck/groupctl/internal/testutil/testlog"
)

func TestMonitorWithoutDescriptionHasNoScene(t *testing.T) {
	testlog.Start(t)
	m := NewMonitor(MonitorConfig{Description: "  "})
	if m.Scene() != nil {
		t.Fatalf("expected nil scene for empty description")
	}
	m.StartSceneMonitor()
	m.StartWorldGeometryMonitor()
	m.StartStateMonitor()
	if m.Ready() {
		t.Fatalf("monitor without scene must not report ready")
	}
}

func TestMonitorReadyAfterAllSubMonitors(t *testing.T) {
	testlog.Start(t)
	m := NewMonitor(MonitorConfig{Description: "<robot/>", Semantic: "<srdf/>"})
	if m.Scene() == nil || m.Scene().Semantic != "<srdf/>" {
		t.Fatalf("unexpected scene: %+v", m.Scene())
	}
	m.StartSceneMonitor()
	m.StartWorldGeometryMonitor()
	if m.Ready() {
		t.Fatalf("ready before state monitor started")
	}
	m.StartStateMonitor()
	if !m.Ready() {
		t.Fatalf("expected ready")
	}
	m.Stop()
	m.Stop()
	if m.Ready() {
		t.Fatalf("stopped monitor must not report ready")
	}
}

func TestMonitorRunTicksUntilCancelled(t *testing.T) {
	testlog.Start(t)
	m := NewMonitor(MonitorConfig{Description: "<robot/>", UpdateInterval: 5 * time.Millisecond})
	m.PublishDebugInformation(true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	deadline := time.Now().Add(time.Second)
	for m.Updates() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("run did not exit after cancel")
	}
	if m.Updates() < 2 {
		t.Fatalf("expected at least two updates, got %d", m.Updates())
	}
}
