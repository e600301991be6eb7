package plugins

import (
	"errors"

	"github.com/danmuck/groupctl/internal/capability"
)

// HostAPIVersion is the capability API version this host provides.
const HostAPIVersion = "1.4.0"

var (
	ErrFatalStartup = errors.New("plugins: loader unavailable")

	ErrCapabilityLoad      = errors.New("plugins: capability load failed")
	ErrUnknownCapability   = errors.New("plugins: unknown capability")
	ErrIncompatibleVersion = errors.New("plugins: incompatible capability version")
	ErrConstruction        = errors.New("plugins: capability construction failed")
	ErrNameMismatch        = errors.New("plugins: capability name mismatch")

	ErrInvalidDescriptor = errors.New("plugins: invalid descriptor")
	ErrDuplicate         = errors.New("plugins: capability already registered")
)

// Factory constructs one capability instance.
type Factory func() (capability.Capability, error)

// Descriptor describes a loadable capability class.
type Descriptor struct {
	Name capability.Name
	// Requires is a semver constraint on HostAPIVersion, e.g. "^1.2".
	// Empty means any host version.
	Requires    string
	Description string
	New         Factory
}
