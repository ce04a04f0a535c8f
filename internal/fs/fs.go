// Package fs provides the filesystem operations the package database and
// cellar need, behind an interface so tests can substitute failures.
//
// The main types are:
//   - [FS]: interface for filesystem operations
//   - [File]: interface for open files (satisfied by [os.File])
//   - [Real]: production implementation using [os] package
//   - [Locker]: flock(2) based advisory locks
//
// Example usage:
//
//	fsys := fs.NewReal()
//	lock, err := fs.NewLocker(fsys).LockContext(ctx, "installed.json.lock")
//	if err != nil {
//	    return err
//	}
//	defer lock.Close()
//
//	data, err := fsys.ReadFile("installed.json")
package fs

import (
	"io"
	"os"
)

// File represents an open file descriptor.
type File interface {
	io.ReadWriteCloser

	// Fd returns the file descriptor. Used for flock.
	Fd() uintptr

	// Stat returns the [os.FileInfo] for this file. See [os.File.Stat].
	Stat() (os.FileInfo, error)
}

// FS defines the filesystem operations used by rmtree.
type FS interface {
	// OpenFile opens a file with specified flags and permissions. See [os.OpenFile].
	OpenFile(path string, flag int, perm os.FileMode) (File, error)

	// ReadFile reads an entire file into memory. See [os.ReadFile].
	ReadFile(path string) ([]byte, error)

	// WriteFileAtomic replaces path with data via temp file + rename, so
	// readers never observe a partial database.
	WriteFileAtomic(path string, data []byte) error

	// MkdirAll creates a directory and all parents. See [os.MkdirAll].
	MkdirAll(path string, perm os.FileMode) error

	// Stat returns file info. See [os.Stat].
	Stat(path string) (os.FileInfo, error)

	// DiskUsage returns the total size in bytes of the regular files under
	// path. A missing path has size 0.
	DiskUsage(path string) (int64, error)

	// RemoveAll deletes a path and any children. See [os.RemoveAll].
	// No error if path doesn't exist.
	RemoveAll(path string) error
}

var _ File = (*os.File)(nil)
