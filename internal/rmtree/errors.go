package rmtree

import (
	"errors"
	"fmt"
	"strings"
)

// Error variables for planning and execution.
var (
	ErrPackageUnavailable     = errors.New("package unavailable")
	ErrBlockedByExternalUsers = errors.New("package is required by other installed packages")
	ErrNotInstalled           = errors.New("package is not currently installed")
	ErrRemovalFailed          = errors.New("removal failed")
	ErrUserDeclined           = errors.New("user quit")
)

// BlockedError reports a root that other installed packages still depend on.
type BlockedError struct {
	Root  string
	Users []string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("%s can't be removed because other packages depend on it: %s",
		e.Root, strings.Join(e.Users, ", "))
}

// Is makes errors.Is(err, ErrBlockedByExternalUsers) work.
func (e *BlockedError) Is(target error) bool {
	return target == ErrBlockedByExternalUsers
}

// RemovalError reports a single package the [Remover] failed to uninstall.
type RemovalError struct {
	Name string
	Err  error
}

func (e *RemovalError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrRemovalFailed, e.Name, e.Err)
}

func (e *RemovalError) Unwrap() []error {
	return []error{ErrRemovalFailed, e.Err}
}
