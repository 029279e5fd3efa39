package fileops

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// Resolver turns client-supplied names into absolute paths confined to a
// single base directory. The base is canonicalized once at construction and
// never changes, so a Resolver is safe for concurrent use.
type Resolver struct {
	base string
}

// NewResolver creates a Resolver for baseDir.
//
// The directory is expanded ("~/"), made absolute and canonicalized with all
// symlinks evaluated. It must exist and be a directory; otherwise an *Error of
// KindDirectoryUnavailable is returned.
//
// Usage example:
//
//	resolver, err := fileops.NewResolver("~/notes")
//	if err != nil {
//	    return fmt.Errorf("invalid base directory: %w", err)
//	}
func NewResolver(baseDir string) (*Resolver, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, NewError(KindDirectoryUnavailable, baseDir, fmt.Errorf("base directory cannot be empty"))
	}

	absBase, err := filepath.Abs(ExpandPath(baseDir))
	if err != nil {
		return nil, NewError(KindDirectoryUnavailable, baseDir, err)
	}

	canonical, err := filepath.EvalSymlinks(absBase)
	if err != nil {
		return nil, NewError(KindDirectoryUnavailable, baseDir, err)
	}

	info, err := os.Stat(canonical)
	if err != nil {
		return nil, NewError(KindDirectoryUnavailable, baseDir, err)
	}
	if !info.IsDir() {
		return nil, NewError(KindDirectoryUnavailable, baseDir, fmt.Errorf("not a directory"))
	}

	return &Resolver{base: canonical}, nil
}

// Base returns the canonical base directory.
func (r *Resolver) Base() string {
	return r.base
}

// Resolve validates name and returns the canonical absolute path it refers to.
//
// The steps are:
//  1. Static checks via ValidateName (traversal segments, absolute paths,
//     null bytes, empty names)
//  2. Join onto the base and canonicalize, evaluating every symlink on the
//     longest existing prefix
//  3. Segment-wise ancestry check of the canonical result against the base
//
// Canonicalization happens before the ancestry check, so a symlink inside the
// base that points outside of it is rejected. Every failure is an *Error of
// KindPathTraversal whose message carries only name.
//
// A path that does not exist yet still resolves (its missing tail is appended
// lexically); callers opening it will see fs.ErrNotExist.
func (r *Resolver) Resolve(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", NewError(KindPathTraversal, name, err)
	}

	joined := filepath.Join(r.base, filepath.FromSlash(name))

	canonical, err := canonicalize(joined, 0)
	if err != nil {
		return "", NewError(KindPathTraversal, name, err)
	}

	if !IsWithinDirectory(canonical, r.base) {
		return "", NewError(KindPathTraversal, name, fmt.Errorf("resolves outside base directory"))
	}

	return canonical, nil
}

// Rel returns path relative to the base directory. path must come from Resolve.
func (r *Resolver) Rel(path string) (string, error) {
	rel, err := filepath.Rel(r.base, path)
	if err != nil {
		return "", err
	}
	if !IsWithinDirectory(path, r.base) {
		return "", fmt.Errorf("path is not within base directory")
	}
	return rel, nil
}

// maxLinkHops bounds how many dangling symlinks canonicalize follows by hand.
const maxLinkHops = 40

// canonicalize evaluates symlinks on the longest existing prefix of path and
// appends the missing remainder unchanged. A dangling symlink is followed to
// its target so the ancestry check sees where it would point.
func canonicalize(path string, hops int) (string, error) {
	if hops > maxLinkHops {
		return "", fmt.Errorf("too many levels of symbolic links")
	}

	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if !isMissing(err) {
		return "", err
	}

	parent := filepath.Dir(path)
	if parent == path {
		return "", err
	}

	resolvedParent, err := canonicalize(parent, hops)
	if err != nil {
		return "", err
	}

	candidate := filepath.Join(resolvedParent, filepath.Base(path))
	if target, err := os.Readlink(candidate); err == nil {
		if !filepath.IsAbs(target) {
			target = filepath.Join(resolvedParent, target)
		}
		return canonicalize(target, hops+1)
	}
	return candidate, nil
}

// isMissing reports errors meaning "nothing is there": the entry is absent or
// an intermediate component is a regular file.
func isMissing(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}
