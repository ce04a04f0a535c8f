package pkgdb

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/calvinalkan/rmtree/internal/fs"
	"github.com/calvinalkan/rmtree/internal/rmtree"
)

const (
	cacheSize          = 1024
	defaultLockTimeout = 10 * time.Second
)

// DB is a package database loaded into memory. It is safe for concurrent
// use.
type DB struct {
	fsys        fs.FS
	locker      *fs.Locker
	path        string
	format      format
	cellar      string
	logger      *slog.Logger
	lockTimeout time.Duration

	mu       sync.RWMutex
	packages map[string]rmtree.Package
	names    []string

	users *lru.Cache[string, []string]
}

// Option configures a [DB].
type Option func(*options)

type options struct {
	cellar      string
	logger      *slog.Logger
	lockTimeout time.Duration
}

// WithCellar sets the directory holding one subdirectory per installed
// package. [DB.Remove] deletes the package's subdirectory. Without a cellar
// only the database is updated.
func WithCellar(dir string) Option {
	return func(o *options) {
		o.cellar = dir
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithLockTimeout bounds how long [DB.Remove] waits for the database lock.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.lockTimeout = d
		}
	}
}

// Open loads the database at path.
func Open(fsys fs.FS, path string, opts ...Option) (*DB, error) {
	o := options{
		logger:      slog.New(slog.DiscardHandler),
		lockTimeout: defaultLockTimeout,
	}

	for _, opt := range opts {
		opt(&o)
	}

	f, err := formatOf(path)
	if err != nil {
		return nil, err
	}

	doc, err := readDocument(fsys, path)
	if err != nil {
		return nil, err
	}

	users, err := lru.New[string, []string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	db := &DB{
		fsys:        fsys,
		locker:      fs.NewLocker(fsys),
		path:        path,
		format:      f,
		cellar:      o.cellar,
		logger:      o.logger,
		lockTimeout: o.lockTimeout,
		users:       users,
	}
	db.replace(doc)

	db.logger.Debug("database loaded", "path", path, "packages", len(db.names))

	return db, nil
}

// replace swaps in doc and drops every cached lookup. Callers hold db.mu or
// own db exclusively.
func (db *DB) replace(doc document) {
	db.packages = make(map[string]rmtree.Package, len(doc.Packages))
	db.names = db.names[:0]

	for _, rec := range doc.Packages {
		db.packages[rec.Name] = rmtree.Package{
			Name:         rec.Name,
			Version:      rec.Version,
			Dependencies: slices.Clone(rec.Dependencies),
			Installed:    rec.Installed,
			Outdated:     rec.Outdated,
		}
		db.names = append(db.names, rec.Name)
	}

	slices.Sort(db.names)
	db.users.Purge()
}

// Resolve returns the package called name.
func (db *DB) Resolve(name string) (rmtree.Package, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	pkg, ok := db.packages[name]
	if !ok {
		return rmtree.Package{}, fmt.Errorf("%w: %s", rmtree.ErrPackageUnavailable, name)
	}

	pkg.Dependencies = slices.Clone(pkg.Dependencies)

	return pkg, nil
}

// TransitiveDependencies walks declared dependencies depth first in
// declaration order, through packages that are not installed. Names the
// database does not know are listed but not expanded; resolving them fails.
func (db *DB) TransitiveDependencies(name string) ([]string, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if _, ok := db.packages[name]; !ok {
		return nil, fmt.Errorf("%w: %s", rmtree.ErrPackageUnavailable, name)
	}

	seen := map[string]bool{name: true}

	var out []string

	var walk func(string)

	walk = func(n string) {
		for _, dep := range db.packages[n].Dependencies {
			if seen[dep] {
				continue
			}

			seen[dep] = true
			out = append(out, dep)

			if _, ok := db.packages[dep]; ok {
				walk(dep)
			}
		}
	}

	walk(name)

	return out, nil
}

// ReverseDependencies returns the installed packages declaring name as a
// direct dependency, sorted.
func (db *DB) ReverseDependencies(name string) ([]string, error) {
	if users, ok := db.users.Get(name); ok {
		return slices.Clone(users), nil
	}

	db.mu.RLock()

	users := []string{}

	for _, candidate := range db.names {
		pkg := db.packages[candidate]
		if (pkg.Installed || pkg.Outdated) && slices.Contains(pkg.Dependencies, name) {
			users = append(users, candidate)
		}
	}

	// Stored under the read lock: Remove purges under the write lock.
	db.users.Add(name, users)
	db.mu.RUnlock()

	return slices.Clone(users), nil
}

// IsInstalled reports whether name is installed. Unknown names are not.
func (db *DB) IsInstalled(name string) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.packages[name].Installed
}

// IsOutdated reports whether name is installed at an outdated version.
func (db *DB) IsOutdated(name string) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.packages[name].Outdated
}

func (db *DB) cellarDir(name string) string {
	return filepath.Join(db.cellar, name)
}

var (
	_ rmtree.Index   = (*DB)(nil)
	_ rmtree.Remover = (*DB)(nil)
)
