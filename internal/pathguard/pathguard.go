// Package pathguard confines file references to a base directory.
//
// Both the registry loader and the run recorder resolve caller-supplied
// relative paths through Resolve before touching the filesystem. A path
// that leaves the base, whether through "..", an absolute path, or a
// symlink, is rejected with an *EscapeError.
package pathguard

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EscapeError reports a path that resolves outside its base directory.
type EscapeError struct {
	Base string
	Path string
}

func (e *EscapeError) Error() string {
	return fmt.Sprintf("path %q escapes base directory %q", e.Path, e.Base)
}

// IsEscape reports whether err is (or wraps) an *EscapeError.
func IsEscape(err error) bool {
	var ee *EscapeError
	return errors.As(err, &ee)
}

// Resolve joins rel onto base and returns the absolute result if it is a
// strict descendant of base. Absolute rel values are always rejected, even
// when they name a path inside base.
//
// The lexical check happens first and needs no filesystem access. When
// the target already exists its symlinks are resolved and checked again
// against the resolved base; nothing is opened either way.
func Resolve(base, rel string) (string, error) {
	if rel == "" || filepath.IsAbs(rel) || strings.HasPrefix(filepath.ToSlash(rel), "/") {
		return "", &EscapeError{Base: base, Path: rel}
	}

	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("resolving base directory %q: %w", base, err)
	}

	candidate := filepath.Join(absBase, filepath.FromSlash(rel))

	if !within(absBase, candidate) {
		return "", &EscapeError{Base: base, Path: rel}
	}

	realTarget, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		// Missing targets are the caller's concern.
		return candidate, nil
	}
	realBase, err := filepath.EvalSymlinks(absBase)
	if err != nil {
		realBase = absBase
	}
	if !within(realBase, realTarget) {
		return "", &EscapeError{Base: base, Path: rel}
	}
	return candidate, nil
}

// within reports whether target is strictly below base. Both must be
// absolute and clean.
func within(base, target string) bool {
	r, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	if r == "." || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return false
	}
	return !filepath.IsAbs(r)
}

// Exists reports whether path names an existing file or directory.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
