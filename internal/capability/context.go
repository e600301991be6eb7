package capability

import (
	"errors"

	"github.com/danmuck/groupctl/internal/execution"
	"github.com/danmuck/groupctl/internal/scene"
	"github.com/google/uuid"
)

var ErrNilScene = errors.New("capability: scene monitor is nil")

// Context is the shared state every capability is initialized against.
// Fields are fixed by NewContext; only the scene monitor's own readiness
// changes afterwards.
type Context struct {
	instanceID     string
	scene          *scene.Monitor
	execution      *execution.Manager
	allowExecution bool
	debug          bool
}

// NewContext builds the shared context. exec may be nil when trajectory
// execution is disabled.
func NewContext(sm *scene.Monitor, exec *execution.Manager, allowExecution, debug bool) (*Context, error) {
	if sm == nil {
		return nil, ErrNilScene
	}
	if !allowExecution {
		exec = nil
	}
	return &Context{
		instanceID:     uuid.NewString(),
		scene:          sm,
		execution:      exec,
		allowExecution: allowExecution,
		debug:          debug,
	}, nil
}

func (c *Context) InstanceID() string { return c.instanceID }
func (c *Context) Scene() *scene.Monitor { return c.scene }
func (c *Context) Execution() *execution.Manager { return c.execution }
func (c *Context) AllowExecution() bool { return c.allowExecution }
func (c *Context) Debug() bool { return c.debug }

// Status reports whether the state handle finished initializing.
func (c *Context) Status() bool {
	if c == nil {
		return false
	}
	return c.scene.Ready()
}
