package capability

import (
	"context"
	"sort"
)

// Name identifies a capability. Equality is exact string match; the
// "group/" prefix is convention only.
type Name string

// Capability is a pluggable unit of optional process functionality.
type Capability interface {
	Name() Name
	Initialize(ctx context.Context, gc *Context) error
}

// Releaser is implemented by capabilities that hold resources past
// initialization. Release runs before the shared context is torn down.
type Releaser interface {
	Release() error
}

// Spec is the startup capability request. It is read once and never mutated.
type Spec struct {
	Defaults  []Name
	Additions []Name
	Removals  []Name
}

// Set is an unordered, duplicate-insensitive collection of names.
type Set map[Name]struct{}

func NewSet(names ...Name) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (s Set) Has(n Name) bool {
	_, ok := s[n]
	return ok
}

func (s Set) Len() int {
	return len(s)
}

// Sorted returns the members ordered by name. It exists for reporting; load
// order never follows it.
func (s Set) Sorted() []Name {
	out := make([]Name, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings converts names for logging and JSON surfaces.
func Strings(names []Name) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return out
}

// Default capabilities, loaded unless listed in disable_capabilities.
var defaultNames = []Name{
	"group/CartesianPathService",
	"group/KinematicsService",
	"group/ExecuteTrajectoryAction",
	"group/MoveAction",
	"group/PlanService",
	"group/QueryPlannersService",
	"group/StateValidationService",
	"group/GetPlanningSceneService",
	"group/ApplyPlanningSceneService",
	"group/ClearOctomapService",
}

// DefaultNames returns a copy of the built-in default set.
func DefaultNames() []Name {
	out := make([]Name, len(defaultNames))
	copy(out, defaultNames)
	return out
}
