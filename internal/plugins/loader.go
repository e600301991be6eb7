package plugins

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/danmuck/groupctl/internal/capability"
	logs "github.com/danmuck/groupctl/internal/logging"
	"github.com/danmuck/groupctl/internal/observability"
)

// Loader turns capability names into live instances.
type Loader struct {
	catalog *Catalog
	host    *semver.Version
}

// NewLoader prepares a loader over catalog. Any error here is fatal for
// startup: no capability could ever be loaded.
func NewLoader(catalog *Catalog, hostVersion string) (*Loader, error) {
	if catalog == nil {
		return nil, fmt.Errorf("%w: catalog is nil", ErrFatalStartup)
	}
	if catalog.Len() == 0 {
		return nil, fmt.Errorf("%w: no capability classes registered", ErrFatalStartup)
	}
	v, err := semver.NewVersion(strings.TrimSpace(hostVersion))
	if err != nil {
		return nil, fmt.Errorf("%w: host api version %q: %v", ErrFatalStartup, hostVersion, err)
	}
	logs.Debugf("plugins.NewLoader classes=%d host_api=%s", catalog.Len(), v)
	return &Loader{catalog: catalog, host: v}, nil
}

// Load instantiates one capability. Errors wrap ErrCapabilityLoad and never
// affect other names.
func (l *Loader) Load(name capability.Name) (capability.Capability, error) {
	logs.Infof("Loading '%s'...", name)
	c, err := l.load(name)
	if err != nil {
		observability.RecordCapabilityLoad(string(name), "failed")
		logs.Errorf("plugins.Loader.Load failed capability=%q err=%v", name, err)
		return nil, err
	}
	observability.RecordCapabilityLoad(string(name), "loaded")
	logs.Debugf("plugins.Loader.Load ok capability=%q", name)
	return c, nil
}

func (l *Loader) load(name capability.Name) (c capability.Capability, err error) {
	r, ok := l.catalog.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %w: %s", ErrCapabilityLoad, ErrUnknownCapability, name)
	}
	if r.requires != nil && !r.requires.Check(l.host) {
		return nil, fmt.Errorf(
			"%w: %w: %s requires %q, host provides %s",
			ErrCapabilityLoad, ErrIncompatibleVersion, name, r.desc.Requires, l.host,
		)
	}

	defer func() {
		if p := recover(); p != nil {
			c = nil
			err = fmt.Errorf("%w: %w: %s panicked: %v", ErrCapabilityLoad, ErrConstruction, name, p)
		}
	}()
	c, err = r.desc.New()
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %s: %w", ErrCapabilityLoad, ErrConstruction, name, err)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: %w: %s factory returned nil", ErrCapabilityLoad, ErrConstruction, name)
	}
	if c.Name() != name {
		return nil, fmt.Errorf("%w: %w: requested %s, got %s", ErrCapabilityLoad, ErrNameMismatch, name, c.Name())
	}
	return c, nil
}
