package pkgdb

import (
	"context"
	"fmt"

	"github.com/calvinalkan/rmtree/internal/rmtree"
)

// Remove uninstalls name. Under an exclusive lock on "<database>.lock" the
// database is re-read from disk, the package is marked not installed and
// the file is rewritten atomically. With a cellar configured, the package's
// cellar directory is deleted afterwards and its size is returned.
//
// Removing a package that is already uninstalled is not an error.
func (db *DB) Remove(ctx context.Context, name string) (int64, error) {
	lockCtx, cancel := context.WithTimeout(ctx, db.lockTimeout)
	defer cancel()

	lock, err := db.locker.LockContext(lockCtx, db.path+".lock")
	if err != nil {
		return 0, fmt.Errorf("locking %s: %w", db.path, err)
	}

	defer func() {
		if closeErr := lock.Close(); closeErr != nil {
			db.logger.Warn("releasing database lock", "path", db.path, "error", closeErr)
		}
	}()

	doc, err := readDocument(db.fsys, db.path)
	if err != nil {
		return 0, err
	}

	found := false

	for i := range doc.Packages {
		if doc.Packages[i].Name == name {
			doc.Packages[i].Installed = false
			doc.Packages[i].Outdated = false
			found = true

			break
		}
	}

	if !found {
		return 0, fmt.Errorf("%w: %s", rmtree.ErrPackageUnavailable, name)
	}

	data, err := encode(db.format, doc)
	if err != nil {
		return 0, fmt.Errorf("encoding %s: %w", db.path, err)
	}

	if err := db.fsys.WriteFileAtomic(db.path, data); err != nil {
		return 0, err
	}

	db.mu.Lock()
	db.replace(doc)
	db.mu.Unlock()

	if db.cellar == "" {
		return 0, nil
	}

	dir := db.cellarDir(name)

	size, err := db.fsys.DiskUsage(dir)
	if err != nil {
		return 0, err
	}

	if err := db.fsys.RemoveAll(dir); err != nil {
		return 0, fmt.Errorf("removing %s: %w", dir, err)
	}

	db.logger.Debug("cellar removed", "package", name, "dir", dir, "bytes", size)

	return size, nil
}
