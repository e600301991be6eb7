// Package builtin registers the default group capabilities into the default
// plugin catalog. Import it for side effects.
package builtin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/danmuck/groupctl/internal/capability"
	logs "github.com/danmuck/groupctl/internal/logging"
	"github.com/danmuck/groupctl/internal/plugins"
)

const requiresHostAPI = "^1.0"

var (
	ErrNotInitialized     = errors.New("builtin: capability not initialized")
	ErrAlreadyInitialized = errors.New("builtin: capability already initialized")
	ErrSceneUnavailable   = errors.New("builtin: planning scene unavailable")
)

var descriptions = map[capability.Name]string{
	"group/ApplyPlanningSceneService": "applies planning scene diffs",
	"group/CartesianPathService":      "computes cartesian paths",
	"group/ClearOctomapService":       "clears the octomap",
	"group/ExecuteTrajectoryAction":   "executes trajectories",
	"group/GetPlanningSceneService":   "serves the planning scene",
	"group/KinematicsService":         "answers IK and FK queries",
	"group/MoveAction":                "plans and executes motions",
	"group/PlanService":               "plans motions",
	"group/QueryPlannersService":      "lists planners",
	"group/StateValidationService":    "validates robot states",
}

// executors need the execution manager to do anything useful.
var executors = map[capability.Name]bool{
	"group/ExecuteTrajectoryAction": true,
	"group/MoveAction":              true,
}

func init() {
	for _, name := range capability.DefaultNames() {
		name := name
		plugins.Register(plugins.Descriptor{
			Name:        name,
			Requires:    requiresHostAPI,
			Description: descriptions[name],
			New: func() (capability.Capability, error) {
				return New(name), nil
			},
		})
	}
}

// Capability is the stock implementation behind every default name.
type Capability struct {
	name capability.Name

	mu       sync.Mutex
	gc       *capability.Context
	passive  bool
	released atomic.Bool
}

func New(name capability.Name) *Capability {
	return &Capability{name: name}
}

func (c *Capability) Name() capability.Name {
	return c.name
}

func (c *Capability) Initialize(_ context.Context, gc *capability.Context) error {
	if gc == nil {
		return fmt.Errorf("%s: %w", c.name, capability.ErrNilScene)
	}
	if gc.Scene().Scene() == nil {
		return fmt.Errorf("%s: %w", c.name, ErrSceneUnavailable)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gc != nil {
		return ErrAlreadyInitialized
	}
	c.gc = gc
	c.passive = executors[c.name] && gc.Execution() == nil
	if c.passive {
		logs.Infof("builtin.%s execution disabled, running passive", c.name)
	}
	logs.Debugf("builtin.Capability.Initialize name=%q instance=%s", c.name, gc.InstanceID())
	return nil
}

// Initialized reports whether Initialize succeeded and Release has not run.
func (c *Capability) Initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gc != nil
}

// Passive is true for execution capabilities started without an execution
// manager.
func (c *Capability) Passive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.passive
}

func (c *Capability) Released() bool {
	return c.released.Load()
}

func (c *Capability) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gc == nil {
		return ErrNotInitialized
	}
	c.gc = nil
	c.released.Store(true)
	logs.Debugf("builtin.Capability.Release name=%q", c.name)
	return nil
}
