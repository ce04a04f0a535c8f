package rmtree_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/calvinalkan/rmtree/internal/rmtree"
)

var errDiskFull = errors.New("disk full")

// memIndex is an in-memory [rmtree.Index] and [rmtree.Remover] for tests.
type memIndex struct {
	mu       sync.Mutex
	packages map[string]*rmtree.Package
	failing  map[string]bool
	removed  []string
}

// newIndex builds an index from "name: dep dep ..." style edges. Every
// package is installed.
func newIndex(t *testing.T, graph map[string][]string) *memIndex {
	t.Helper()

	idx := &memIndex{
		packages: make(map[string]*rmtree.Package),
		failing:  make(map[string]bool),
	}

	for name, deps := range graph {
		idx.packages[name] = &rmtree.Package{
			Name:         name,
			Dependencies: deps,
			Installed:    true,
		}
	}

	for name, deps := range graph {
		for _, dep := range deps {
			if _, ok := idx.packages[dep]; !ok {
				t.Fatalf("%s depends on undeclared package %s", name, dep)
			}
		}
	}

	return idx
}

func (m *memIndex) uninstall(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.packages[name].Installed = false
}

func (m *memIndex) Resolve(name string) (rmtree.Package, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pkg, ok := m.packages[name]
	if !ok {
		return rmtree.Package{}, fmt.Errorf("%w: %s", rmtree.ErrPackageUnavailable, name)
	}

	return *pkg, nil
}

func (m *memIndex) TransitiveDependencies(name string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.packages[name]; !ok {
		return nil, fmt.Errorf("%w: %s", rmtree.ErrPackageUnavailable, name)
	}

	seen := map[string]bool{name: true}

	var out []string

	var walk func(string)

	walk = func(n string) {
		for _, dep := range m.packages[n].Dependencies {
			if seen[dep] {
				continue
			}

			seen[dep] = true
			out = append(out, dep)
			walk(dep)
		}
	}

	walk(name)

	return out, nil
}

func (m *memIndex) ReverseDependencies(name string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var users []string

	for _, pkg := range m.packages {
		if pkg.Installed && slices.Contains(pkg.Dependencies, name) {
			users = append(users, pkg.Name)
		}
	}

	slices.Sort(users)

	return users, nil
}

func (m *memIndex) IsInstalled(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	pkg, ok := m.packages[name]

	return ok && pkg.Installed
}

func (m *memIndex) IsOutdated(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	pkg, ok := m.packages[name]

	return ok && pkg.Outdated
}

func (m *memIndex) Remove(_ context.Context, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failing[name] {
		return 0, errDiskFull
	}

	if pkg, ok := m.packages[name]; ok {
		pkg.Installed = false
	}

	m.removed = append(m.removed, name)

	return 100, nil
}

var (
	_ rmtree.Index   = (*memIndex)(nil)
	_ rmtree.Remover = (*memIndex)(nil)
)
