package rmtree

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/juju/collections/set"
	"golang.org/x/sync/errgroup"
)

const defaultWorkers = 8

// Analyzer computes which dependencies of a root are still needed by
// packages outside the removal batch.
//
// An Analyzer holds no state between calls; every [Analyzer.Analyze] gets
// its own caches, so one Analyzer can serve several roots.
type Analyzer struct {
	index    Index
	logger   *slog.Logger
	workers  int
	progress func(done, total int)
}

// AnalyzerOption configures an [Analyzer].
type AnalyzerOption func(*Analyzer)

// WithLogger sets the logger used for cascade diagnostics.
func WithLogger(logger *slog.Logger) AnalyzerOption {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithWorkers bounds the number of concurrent reverse-dependency lookups.
func WithWorkers(n int) AnalyzerOption {
	return func(a *Analyzer) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithProgress registers a callback invoked after each closure member has
// been evaluated.
func WithProgress(fn func(done, total int)) AnalyzerOption {
	return func(a *Analyzer) {
		a.progress = fn
	}
}

// NewAnalyzer returns an Analyzer querying index.
func NewAnalyzer(index Index, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		index:   index,
		logger:  slog.New(slog.DiscardHandler),
		workers: defaultWorkers,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Analysis is the result of analysing one root.
//
// Liveness is only meaningful once Analyze has returned; it is mutated in
// place while cascades propagate.
type Analysis struct {
	Root     string
	Closure  []string
	Liveness LivenessTable

	users map[string]set.Strings
}

// Analyze resolves root, computes its installed dependency closure and
// evaluates every member's external users. Members named in ignore that
// would otherwise be orphaned are retained with the [Ignored] blocker.
func (a *Analyzer) Analyze(ctx context.Context, root string, ignore set.Strings) (*Analysis, error) {
	if _, err := a.index.Resolve(root); err != nil {
		return nil, fmt.Errorf("resolving %s: %w", root, err)
	}

	r := &run{
		index:  a.index,
		logger: a.logger.With("root", root),
		root:   root,
		users:  make(map[string]set.Strings),
		direct: make(map[string][]string),
		table:  make(LivenessTable),
	}

	closure, err := r.closure(root)
	if err != nil {
		return nil, err
	}

	r.closureSet = set.NewStrings(closure...)
	r.candidates = set.NewStrings(closure...)

	if err := r.prefetchUsers(ctx, closure, a.workers); err != nil {
		return nil, err
	}

	for i, dep := range closure {
		users, err := r.usersOf(dep)
		if err != nil {
			return nil, err
		}

		external := set.NewStrings()

		for _, user := range users.Values() {
			if user != root && !r.closureSet.Contains(user) {
				external.Add(user)
			}
		}

		if ignore.Contains(dep) && external.IsEmpty() {
			external.Add(Ignored)
		}

		r.table[dep] = external

		if !external.IsEmpty() {
			r.logger.Debug("dependency still used", "dep", dep, "by", external.SortedValues())

			if err := r.revisit(dep); err != nil {
				return nil, err
			}
		}

		if a.progress != nil {
			a.progress(i+1, len(closure))
		}
	}

	return &Analysis{
		Root:     root,
		Closure:  closure,
		Liveness: r.table,
		users:    r.users,
	}, nil
}

// run carries the caches of a single Analyze call.
type run struct {
	index  Index
	logger *slog.Logger
	root   string

	closureSet set.Strings
	candidates set.Strings

	users  map[string]set.Strings
	direct map[string][]string
	table  LivenessTable
}

// closure returns the installed transitive dependencies of name.
func (r *run) closure(name string) ([]string, error) {
	names, err := r.index.TransitiveDependencies(name)
	if err != nil {
		return nil, fmt.Errorf("dependencies of %s: %w", name, err)
	}

	installed := make([]string, 0, len(names))
	seen := set.NewStrings()

	for _, dep := range names {
		if seen.Contains(dep) || dep == name {
			continue
		}

		seen.Add(dep)

		pkg, err := r.index.Resolve(dep)
		if err != nil {
			return nil, fmt.Errorf("resolving %s (required by %s): %w", dep, name, err)
		}

		if pkg.Installed || pkg.Outdated {
			installed = append(installed, pkg.Name)
		}
	}

	return installed, nil
}

// prefetchUsers loads reverse dependencies for every name concurrently. The
// cascade only starts after all lookups are known.
func (r *run) prefetchUsers(ctx context.Context, names []string, workers int) error {
	results := make([][]string, len(names))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	for i, name := range names {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			users, err := r.index.ReverseDependencies(name)
			if err != nil {
				return fmt.Errorf("users of %s: %w", name, err)
			}

			results[i] = users

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}

	for i, name := range names {
		r.users[name] = set.NewStrings(results[i]...)
	}

	return nil
}

func (r *run) usersOf(name string) (set.Strings, error) {
	if users, ok := r.users[name]; ok {
		return users, nil
	}

	names, err := r.index.ReverseDependencies(name)
	if err != nil {
		return nil, fmt.Errorf("users of %s: %w", name, err)
	}

	users := set.NewStrings(names...)
	r.users[name] = users

	return users, nil
}

func (r *run) directDependencies(name string) ([]string, error) {
	if deps, ok := r.direct[name]; ok {
		return deps, nil
	}

	pkg, err := r.index.Resolve(name)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", name, err)
	}

	r.direct[name] = pkg.Dependencies

	return pkg.Dependencies, nil
}

// neighbors lists the users of name followed by its direct dependencies.
func (r *run) neighbors(name string) ([]string, error) {
	users, err := r.usersOf(name)
	if err != nil {
		return nil, err
	}

	deps, err := r.directDependencies(name)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, users.Size()+len(deps))
	out = append(out, users.SortedValues()...)
	out = append(out, deps...)

	return out, nil
}

type revisitFrame struct {
	name      string
	neighbors []string
	next      int
}

// revisit propagates the unremovability of dep to every closure member that
// was evaluated as removable and is adjacent to it, in either direction,
// depth first. A member leaves candidates before it is expanded, so each is
// expanded at most once even on cyclic graphs.
//
// Propagating to the users of dep is conservative: a user of a retained
// package does not itself need to stay installed. It is kept so results match
// what existing installations have seen.
func (r *run) revisit(dep string) error {
	if !r.candidates.Contains(dep) {
		return nil
	}

	r.candidates.Remove(dep)

	neighbors, err := r.neighbors(dep)
	if err != nil {
		return err
	}

	stack := []*revisitFrame{{name: dep, neighbors: neighbors}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]

		if top.next == len(top.neighbors) {
			stack = stack[:len(stack)-1]

			continue
		}

		next := top.neighbors[top.next]
		top.next++

		if !r.table.Removable(next) || !r.candidates.Contains(next) {
			continue
		}

		r.table[next].Add(top.name)
		r.candidates.Remove(next)
		r.logger.Debug("cascade", "dep", next, "blocked_by", top.name)

		neighbors, err := r.neighbors(next)
		if err != nil {
			return err
		}

		stack = append(stack, &revisitFrame{name: next, neighbors: neighbors})
	}

	return nil
}
