package group

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/danmuck/groupctl/internal/capability"
	logs "github.com/danmuck/groupctl/internal/logging"
	"github.com/danmuck/groupctl/internal/observability"
	"github.com/danmuck/groupctl/internal/plugins"
)

var (
	ErrFatalStartup      = errors.New("group: fatal startup error")
	ErrAlreadyConfigured = errors.New("group: registry already configured")
	ErrNilContext        = errors.New("group: shared context is nil")
	ErrInitialize        = errors.New("group: capability initialize failed")
)

const (
	StatusNotReady       = "not ready"
	StatusNoCapabilities = "ready, no capabilities"
)

// LoadFailure records one capability that could not be activated.
type LoadFailure struct {
	Name capability.Name
	Err  error
}

// Report is the outcome of a configuration pass.
type Report struct {
	Active   []capability.Name
	Failures []LoadFailure
}

// Registry owns the active capability instances.
type Registry struct {
	mu          sync.RWMutex
	catalog     *plugins.Catalog
	hostVersion string
	gc          *capability.Context
	active      map[capability.Name]capability.Capability
	loadOrder   []capability.Name
	failures    []LoadFailure
	configured  bool
}

// NewRegistry creates a registry loading from catalog at the given host API
// version.
func NewRegistry(catalog *plugins.Catalog, hostVersion string) *Registry {
	if strings.TrimSpace(hostVersion) == "" {
		hostVersion = plugins.HostAPIVersion
	}
	return &Registry{
		catalog:     catalog,
		hostVersion: hostVersion,
		active:      make(map[capability.Name]capability.Capability),
	}
}

// Configure runs the single configuration pass. Only loader construction
// and a missing context are fatal; every per-capability failure is recorded
// in the report and skipped. Load order is unspecified.
func (r *Registry) Configure(ctx context.Context, spec capability.Spec, gc *capability.Context) (Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.configured {
		return Report{}, ErrAlreadyConfigured
	}
	if gc == nil {
		return Report{}, fmt.Errorf("%w: %w", ErrFatalStartup, ErrNilContext)
	}

	loader, err := plugins.NewLoader(r.catalog, r.hostVersion)
	if err != nil {
		logs.Errorf("group.Registry.Configure cannot create plugin loader err=%v", err)
		return Report{}, fmt.Errorf("%w: %w", ErrFatalStartup, err)
	}
	r.configured = true
	r.gc = gc

	final := spec.Resolve()
	for name := range final {
		c, err := loader.Load(name)
		if err != nil {
			r.failures = append(r.failures, LoadFailure{Name: name, Err: err})
			continue
		}
		if err := c.Initialize(ctx, gc); err != nil {
			err = fmt.Errorf("%w: %w: %s: %w", plugins.ErrCapabilityLoad, ErrInitialize, name, err)
			logs.Errorf("group.Registry.Configure capability=%q err=%v", name, err)
			if rerr := release(c); rerr != nil {
				logs.Warnf("group.Registry.Configure capability=%q release err=%v", name, rerr)
			}
			r.failures = append(r.failures, LoadFailure{Name: name, Err: err})
			continue
		}
		r.active[name] = c
		r.loadOrder = append(r.loadOrder, name)
	}

	observability.SetCapabilitiesActive(len(r.active))
	report := Report{Active: r.sortedActive(), Failures: append([]LoadFailure(nil), r.failures...)}
	logs.Infof("%s", summary(report.Active))
	return report, nil
}

func summary(active []capability.Name) string {
	const rule = "********************************************************"
	var b strings.Builder
	b.WriteString("\n\n" + rule + "\n")
	b.WriteString("* Group using:\n")
	for _, n := range active {
		b.WriteString("*     - " + string(n) + "\n")
	}
	b.WriteString(rule)
	return b.String()
}

// Status reports readiness for operators.
func (r *Registry) Status() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.gc.Status() {
		return StatusNotReady
	}
	if len(r.active) == 0 {
		return StatusNoCapabilities
	}
	return fmt.Sprintf("ready, %d capabilities active", len(r.active))
}

// Ready reports whether the shared context finished initializing.
func (r *Registry) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gc.Status()
}

// Active lists active capability names sorted for display.
func (r *Registry) Active() []capability.Name {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedActive()
}

func (r *Registry) Failures() []LoadFailure {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]LoadFailure(nil), r.failures...)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.active)
}

// Get returns an active capability by name.
func (r *Registry) Get(name capability.Name) (capability.Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.active[name]
	return c, ok
}

// Close releases every capability. It must run before the shared context is
// torn down.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for i := len(r.loadOrder) - 1; i >= 0; i-- {
		name := r.loadOrder[i]
		if err := release(r.active[name]); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", name, err))
		}
		delete(r.active, name)
	}
	r.loadOrder = nil
	observability.SetCapabilitiesActive(0)
	logs.Debugf("group.Registry.Close released")
	return errors.Join(errs...)
}

func (r *Registry) sortedActive() []capability.Name {
	out := make([]capability.Name, 0, len(r.active))
	for n := range r.active {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func release(c capability.Capability) error {
	if rel, ok := c.(capability.Releaser); ok {
		return rel.Release()
	}
	return nil
}
