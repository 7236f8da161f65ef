// Package filex has small filesystem helpers.
package filex

import (
	"fmt"
	"os"
)

// EnsurePrivateDir creates dir and its parents with owner-only permissions.
// An existing directory is left as it is; an existing file is an error.
func EnsurePrivateDir(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}
