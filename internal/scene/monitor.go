// Package scene owns the shared planning-scene state handle.
//
// The monitor is the only piece of the shared context with its own
// internally synchronized state: readiness flips once all sub-monitors have
// started and is observed concurrently by the registry, the health surfaces
// and every capability.
package scene

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	logs "github.com/danmuck/groupctl/internal/logging"
)

var ErrMonitorStopped = errors.New("scene: monitor stopped")

// Scene is the parsed robot model the monitor maintains.
type Scene struct {
	Description string
	Semantic    string
	LoadedAt    time.Time
}

// MonitorConfig configures a scene monitor.
type MonitorConfig struct {
	Description    string
	Semantic       string
	UpdateInterval time.Duration
}

// Monitor maintains the scene and tracks readiness of its sub-monitors.
type Monitor struct {
	scene    *Scene
	interval time.Duration

	sceneStarted atomic.Bool
	worldStarted atomic.Bool
	stateStarted atomic.Bool
	stopped      atomic.Bool
	debug        atomic.Bool
	updates      atomic.Uint64

	stopOnce sync.Once
	done     chan struct{}
}

// NewMonitor builds a monitor. An empty description leaves the scene
// unconfigured; Scene then returns nil.
func NewMonitor(cfg MonitorConfig) *Monitor {
	m := &Monitor{
		interval: cfg.UpdateInterval,
		done:     make(chan struct{}),
	}
	if m.interval <= 0 {
		m.interval = time.Second
	}
	if strings.TrimSpace(cfg.Description) != "" {
		m.scene = &Scene{
			Description: cfg.Description,
			Semantic:    cfg.Semantic,
			LoadedAt:    time.Now(),
		}
	}
	return m
}

// Scene returns the configured scene, or nil when no description was given.
func (m *Monitor) Scene() *Scene {
	if m == nil {
		return nil
	}
	return m.scene
}

func (m *Monitor) StartSceneMonitor() {
	m.sceneStarted.Store(true)
	logs.Debugf("scene.Monitor.StartSceneMonitor")
}

func (m *Monitor) StartWorldGeometryMonitor() {
	m.worldStarted.Store(true)
	logs.Debugf("scene.Monitor.StartWorldGeometryMonitor")
}

func (m *Monitor) StartStateMonitor() {
	m.stateStarted.Store(true)
	logs.Debugf("scene.Monitor.StartStateMonitor")
}

// Ready reports whether the scene is configured and every sub-monitor started.
func (m *Monitor) Ready() bool {
	if m == nil || m.scene == nil || m.stopped.Load() {
		return false
	}
	return m.sceneStarted.Load() && m.worldStarted.Load() && m.stateStarted.Load()
}

// PublishDebugInformation toggles per-update debug logging.
func (m *Monitor) PublishDebugInformation(on bool) {
	m.debug.Store(on)
}

// Updates returns the number of completed update ticks.
func (m *Monitor) Updates() uint64 {
	return m.updates.Load()
}

func (m *Monitor) Name() string {
	return "scene_monitor"
}

// Run drives periodic scene updates until ctx is cancelled or Stop is called.
func (m *Monitor) Run(ctx context.Context) error {
	if m.scene == nil {
		return nil
	}
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-m.done:
			return nil
		case <-ticker.C:
			n := m.updates.Add(1)
			if m.debug.Load() {
				logs.Debugf("scene.Monitor.Run update=%d ready=%v", n, m.Ready())
			}
		}
	}
}

// Stop halts the monitor; Ready reports false afterwards.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		m.stopped.Store(true)
		close(m.done)
		logs.Debugf("scene.Monitor.Stop updates=%d", m.updates.Load())
	})
}
