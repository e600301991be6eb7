// Package host drives the long-lived components of the process.
//
// Every component runs on its own goroutine, so dispatch is parallel across
// components. A component's Run is called exactly once, so nothing inside
// one component runs concurrently unless the component does it itself.
package host

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	logs "github.com/danmuck/groupctl/internal/logging"
	"golang.org/x/sync/errgroup"
)

var (
	ErrHostRunning   = errors.New("host: already running")
	ErrNilComponent  = errors.New("host: component is nil")
	ErrDuplicateName = errors.New("host: duplicate component name")
)

// Component is a schedulable unit. Run blocks until ctx is cancelled or the
// component fails.
type Component interface {
	Name() string
	Run(ctx context.Context) error
}

// Host runs a fixed set of components until shutdown.
type Host struct {
	mu         sync.Mutex
	components []Component
	names      map[string]struct{}
	running    bool
}

func New() *Host {
	return &Host{names: make(map[string]struct{})}
}

// Add registers components. It must be called before Run.
func (h *Host) Add(components ...Component) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return ErrHostRunning
	}
	for _, c := range components {
		if c == nil {
			return ErrNilComponent
		}
		name := strings.TrimSpace(c.Name())
		if _, ok := h.names[name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateName, name)
		}
		h.names[name] = struct{}{}
		h.components = append(h.components, c)
	}
	return nil
}

// Names lists registered components in registration order.
func (h *Host) Names() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.components))
	for _, c := range h.components {
		out = append(out, c.Name())
	}
	return out
}

// Run starts every component and blocks until ctx is cancelled or one
// component returns an error. The first such error is returned after all
// components have stopped; a clean shutdown returns nil.
func (h *Host) Run(ctx context.Context) error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return ErrHostRunning
	}
	h.running = true
	components := append([]Component(nil), h.components...)
	h.mu.Unlock()

	logs.Infof("host.Host.Run start components=%d", len(components))
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range components {
		c := c
		g.Go(func() error {
			logs.Debugf("host.Host.Run component=%q start", c.Name())
			err := c.Run(gctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				logs.Errorf("host.Host.Run component=%q failed err=%v", c.Name(), err)
				return fmt.Errorf("host: %s: %w", c.Name(), err)
			}
			logs.Debugf("host.Host.Run component=%q stopped", c.Name())
			return nil
		})
	}
	err := g.Wait()
	logs.Infof("host.Host.Run stopped")
	return err
}

// Func adapts a function into a Component.
type Func struct {
	ID string
	Fn func(ctx context.Context) error
}

func (f Func) Name() string { return f.ID }
func (f Func) Run(ctx context.Context) error { return f.Fn(ctx) }
