package layout

import (
	"os"
	"path/filepath"
	"syscall"

	"pygr/internal/errs"
)

// RootLock is the advisory lock profile.Generations.Publish holds
// across the allocate-generation-number -> create-generation ->
// swap-current sequence (and Rollback across its swap), implemented as
// a flock(2) on a sentinel file under the root so two invocations
// against the same root never interleave a generation swap. The lock
// is released when Publish returns; the declarative state file is
// written after that, outside the lock.
type RootLock struct {
	file *os.File
}

// Acquire takes an exclusive, blocking flock on "<root>/.lock". It
// does not time out: a held lock is expected to be released quickly,
// and the specification only asks that concurrent invocations be
// serialized, not that callers poll.
func Acquire(l Layout) (*RootLock, error) {
	path := filepath.Join(l.Root, ".lock")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, errs.Wrap(errs.LockHeld, "LAYOUT_LOCK_OPEN", err, "opening lock file %q", path)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		_ = f.Close()
		return nil, errs.Wrap(errs.LockHeld, "LAYOUT_LOCK_ACQUIRE", err, "acquiring lock on %q", path)
	}
	return &RootLock{file: f}, nil
}

// TryAcquire is the non-blocking variant; it returns a LockHeld error
// immediately if another process holds the lock.
func TryAcquire(l Layout) (*RootLock, error) {
	path := filepath.Join(l.Root, ".lock")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, errs.Wrap(errs.LockHeld, "LAYOUT_LOCK_OPEN", err, "opening lock file %q", path)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		return nil, errs.Wrap(errs.LockHeld, "LAYOUT_LOCK_BUSY", err, "root %q is locked by another pygr invocation", l.Root)
	}
	return &RootLock{file: f}, nil
}

// Release drops the lock and closes the underlying file.
func (rl *RootLock) Release() error {
	if rl == nil || rl.file == nil {
		return nil
	}
	_ = syscall.Flock(int(rl.file.Fd()), syscall.LOCK_UN)
	return rl.file.Close()
}
