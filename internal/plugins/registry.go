package plugins

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/danmuck/groupctl/internal/capability"
)

// Catalog maps capability names to their descriptors.
type Catalog struct {
	mu    sync.RWMutex
	items map[capability.Name]registered
}

type registered struct {
	desc     Descriptor
	requires *semver.Constraints
}

func NewCatalog() *Catalog {
	return &Catalog{items: make(map[capability.Name]registered)}
}

var defaultCatalog = NewCatalog()

// Default returns the process-wide catalog populated by builtin packages.
func Default() *Catalog {
	return defaultCatalog
}

// Register adds a descriptor to the default catalog and panics on error.
// It is meant for package init functions.
func Register(desc Descriptor) {
	if err := defaultCatalog.Register(desc); err != nil {
		panic(err)
	}
}

// Register adds a descriptor.
func (c *Catalog) Register(desc Descriptor) error {
	name := capability.Name(strings.TrimSpace(string(desc.Name)))
	if name == "" || desc.New == nil {
		return fmt.Errorf("%w: name and factory are required", ErrInvalidDescriptor)
	}
	desc.Name = name

	var constraint *semver.Constraints
	if req := strings.TrimSpace(desc.Requires); req != "" {
		parsed, err := semver.NewConstraint(req)
		if err != nil {
			return fmt.Errorf("%w: %s requires %q: %v", ErrInvalidDescriptor, name, req, err)
		}
		constraint = parsed
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	c.items[name] = registered{desc: desc, requires: constraint}
	return nil
}

// Lookup returns the descriptor registered under name.
func (c *Catalog) Lookup(name capability.Name) (Descriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.items[name]
	return r.desc, ok
}

// Names lists registered names sorted for display.
func (c *Catalog) Names() []capability.Name {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]capability.Name, 0, len(c.items))
	for n := range c.items {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Catalog) lookup(name capability.Name) (registered, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.items[name]
	return r, ok
}
