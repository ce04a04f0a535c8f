package rmtree

import (
	"fmt"
	"slices"
)

// CheckRoot verifies that root may be planned for removal.
//
// The checks run in order: root must resolve, it must have no installed
// users unless force is set, and it must be installed (or outdated, which
// implies installed). Force bypasses only the user check.
func CheckRoot(index Index, root string, force bool) error {
	if _, err := index.Resolve(root); err != nil {
		return fmt.Errorf("resolving %s: %w", root, err)
	}

	if !force {
		users, err := index.ReverseDependencies(root)
		if err != nil {
			return fmt.Errorf("users of %s: %w", root, err)
		}

		if len(users) > 0 {
			users = slices.Clone(users)
			slices.Sort(users)

			return &BlockedError{Root: root, Users: users}
		}
	}

	if !index.IsInstalled(root) && !index.IsOutdated(root) {
		return fmt.Errorf("%w: %s", ErrNotInstalled, root)
	}

	return nil
}
