// Package rmtree decides which packages can be removed together with a root
// package and in which order.
//
// The main types are:
//   - [Index]: the installed-package collaborator the planner queries
//   - [Analyzer]: computes a [LivenessTable] for a root
//   - [RemovalPlan]: the ordered deletion list plus the retained set
//   - [Executor]: applies a plan through a [Remover]
//
// Example usage:
//
//	analyzer := rmtree.NewAnalyzer(index)
//	analysis, err := analyzer.Analyze(ctx, "wget", set.NewStrings())
//	if err != nil {
//	    return err
//	}
//	plan := analysis.Plan()
//	report := rmtree.NewExecutor(index).Execute(ctx, plan, dryRun)
package rmtree

import (
	"context"

	"github.com/juju/collections/set"
)

// Ignored is the sentinel blocker recorded for dependencies the caller asked
// to keep.
const Ignored = "ignored"

// Package is a resolved package as reported by an [Index].
type Package struct {
	Name         string
	Version      string
	Dependencies []string
	Installed    bool
	Outdated     bool
}

// Index is the read side of the package database.
//
// Implementations must be safe for concurrent reads: [Analyzer] may look up
// reverse dependencies of several packages in parallel.
type Index interface {
	// Resolve returns the package called name. Unknown names return an error
	// matching [ErrPackageUnavailable].
	Resolve(name string) (Package, error)

	// TransitiveDependencies returns the distinct names transitively required
	// by name, excluding name, in a deterministic traversal order.
	TransitiveDependencies(name string) ([]string, error)

	// ReverseDependencies returns the installed packages that declare name as
	// a direct dependency.
	ReverseDependencies(name string) ([]string, error)

	// IsInstalled reports whether name is currently installed.
	IsInstalled(name string) bool

	// IsOutdated reports whether name is installed at an outdated version.
	IsOutdated(name string) bool
}

// Remover physically uninstalls a package. Removing an already removed
// package is not an error. The returned size is the number of bytes
// reclaimed, if known.
type Remover interface {
	Remove(ctx context.Context, name string) (int64, error)
}

// BlockingSet holds the names (or [Ignored]) that keep a dependency
// installed. An empty set means the dependency is removable.
type BlockingSet = set.Strings

// LivenessTable maps every closure member to its [BlockingSet].
type LivenessTable map[string]BlockingSet

// Removable reports whether dep is known and has no blockers.
func (t LivenessTable) Removable(dep string) bool {
	blockers, ok := t[dep]

	return ok && blockers.IsEmpty()
}

// RemovalPlan is the outcome of planning one root.
type RemovalPlan struct {
	// Root is the package the plan was computed for.
	Root string

	// Order lists packages to remove, root first. Every entry's blockers
	// were already earlier in Order when it was appended.
	Order []string

	// Retained maps closure members that stay installed to the reason.
	Retained map[string]BlockingSet
}
