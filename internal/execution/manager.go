// Package execution holds the trajectory execution dependency of the shared
// context. Only its lifecycle surface is modelled: the manager exists when
// execution is allowed and exposes a controller manager that the execution
// host schedules alongside the group process.
package execution

import (
	"context"
	"sync/atomic"
	"time"

	logs "github.com/danmuck/groupctl/internal/logging"
)

// Manager owns trajectory execution resources.
type Manager struct {
	controllers *ControllerManager
}

func NewManager(controllerPoll time.Duration) *Manager {
	if controllerPoll <= 0 {
		controllerPoll = time.Second
	}
	return &Manager{controllers: &ControllerManager{poll: controllerPoll}}
}

// ControllerManager returns the schedulable controller-manager handle.
func (m *Manager) ControllerManager() *ControllerManager {
	if m == nil {
		return nil
	}
	return m.controllers
}

// ControllerManager tracks controller availability for execution.
type ControllerManager struct {
	poll    time.Duration
	running atomic.Bool
	polls   atomic.Uint64
}

func (c *ControllerManager) Name() string {
	return "controller_manager"
}

// Running reports whether Run is active.
func (c *ControllerManager) Running() bool {
	return c.running.Load()
}

// Polls returns the number of controller polls since start.
func (c *ControllerManager) Polls() uint64 {
	return c.polls.Load()
}

func (c *ControllerManager) Run(ctx context.Context) error {
	c.running.Store(true)
	defer c.running.Store(false)
	logs.Debugf("execution.ControllerManager.Run start poll=%s", c.poll)

	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logs.Debugf("execution.ControllerManager.Run stop polls=%d", c.polls.Load())
			return nil
		case <-ticker.C:
			c.polls.Add(1)
		}
	}
}
