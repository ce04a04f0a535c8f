package fs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func Test_Locker_TryLock_Returns_ErrWouldBlock_When_Path_Is_Locked(t *testing.T) {
	t.Parallel()

	locker := NewLocker(NewReal())
	path := filepath.Join(t.TempDir(), "lock")

	lock1, err := locker.TryLock(path)
	if err != nil {
		t.Fatalf("TryLock(%q): %v", path, err)
	}
	t.Cleanup(func() { _ = lock1.Close() })

	lock2, err := locker.TryLock(path)
	if !errors.Is(err, ErrWouldBlock) {
		t.Fatalf("TryLock(%q) while locked: err=%v, want %v", path, err, ErrWouldBlock)
	}
	if lock2 != nil {
		_ = lock2.Close()
		t.Fatalf("TryLock(%q) while locked: want lock=nil, got non-nil", path)
	}

	if err := lock1.Close(); err != nil {
		t.Fatalf("Close(): %v", err)
	}

	lock3, err := locker.TryLock(path)
	if err != nil {
		t.Fatalf("TryLock(%q) after release: %v", path, err)
	}
	if err := lock3.Close(); err != nil {
		t.Fatalf("Close(): %v", err)
	}
}

func Test_Locker_LockContext_Returns_ErrWouldBlock_When_Context_Expires(t *testing.T) {
	t.Parallel()

	locker := NewLocker(NewReal())
	path := filepath.Join(t.TempDir(), "lock")

	held, err := locker.TryLock(path)
	if err != nil {
		t.Fatalf("TryLock(%q): %v", path, err)
	}
	defer held.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = locker.LockContext(ctx, path)
	if !errors.Is(err, ErrWouldBlock) {
		t.Fatalf("LockContext(%q): err=%v, want %v", path, err, ErrWouldBlock)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("LockContext(%q): err=%v, want %v", path, err, context.DeadlineExceeded)
	}
}

func Test_Locker_LockContext_Acquires_When_Holder_Releases(t *testing.T) {
	t.Parallel()

	locker := NewLocker(NewReal())
	path := filepath.Join(t.TempDir(), "lock")

	held, err := locker.TryLock(path)
	if err != nil {
		t.Fatalf("TryLock(%q): %v", path, err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = held.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	lock, err := locker.LockContext(ctx, path)
	if err != nil {
		t.Fatalf("LockContext(%q): %v", path, err)
	}
	if err := lock.Close(); err != nil {
		t.Fatalf("Close(): %v", err)
	}
}

func Test_Locker_Creates_Parent_Directories_When_Missing(t *testing.T) {
	t.Parallel()

	locker := NewLocker(NewReal())
	path := filepath.Join(t.TempDir(), "a", "b", "installed.json.lock")

	lock, err := locker.TryLock(path)
	if err != nil {
		t.Fatalf("TryLock(%q): %v", path, err)
	}
	defer lock.Close()

	if _, err := NewReal().Stat(path); err != nil {
		t.Fatalf("Stat(%q): %v", path, err)
	}
}

func Test_Lock_Close_Is_Idempotent(t *testing.T) {
	t.Parallel()

	locker := NewLocker(NewReal())
	path := filepath.Join(t.TempDir(), "lock")

	lock, err := locker.TryLock(path)
	if err != nil {
		t.Fatalf("TryLock(%q): %v", path, err)
	}

	if err := lock.Close(); err != nil {
		t.Fatalf("Close(): %v", err)
	}
	if err := lock.Close(); err != nil {
		t.Fatalf("Close() second: %v", err)
	}
}

func Test_FlockRetryEINTR_Retries_When_Interrupted(t *testing.T) {
	t.Parallel()

	calls := 0
	flock := func(int, int) error {
		calls++
		if calls < 3 {
			return unix.EINTR
		}

		return nil
	}

	if err := flockRetryEINTR(flock, 0, unix.LOCK_EX); err != nil {
		t.Fatalf("flockRetryEINTR: %v", err)
	}

	if got, want := calls, 3; got != want {
		t.Fatalf("calls=%d, want=%d", got, want)
	}
}
