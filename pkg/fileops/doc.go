// Package fileops confines client-supplied file names to a single base directory.
//
// Every name passes through Resolver.Resolve before any file is opened.
// Resolution rejects names that try to leave the base directory, however the
// attempt is spelled.
//
// # Resolution Steps
//
// 1. **Static checks**: ValidateName() - empty names, null bytes, absolute
// paths, drive letters, and ".." segments (literal or percent-encoded)
// 2. **Canonicalization**: join onto the base and evaluate every symlink on the
// longest existing prefix, following dangling links by hand
// 3. **Ancestry**: IsWithinDirectory() - segment-wise comparison via
// filepath.Rel, never a string prefix test
//
// # Example: Resolving a Request
//
//	resolver, err := fileops.NewResolver(baseDir)
//	if err != nil {
//	    return fmt.Errorf("base directory: %w", err)
//	}
//
//	path, err := resolver.Resolve(name)
//	if errors.Is(err, fileops.ErrPathTraversal) {
//	    // security relevant: report, never fall back to "not found"
//	}
//
// # Errors
//
// Failures are *Error values carrying a Kind. Each Kind has a sentinel
// (ErrPathTraversal, ErrNotFound, ErrNotAFile, ErrDirectoryUnavailable,
// ErrReadError) that matches with errors.Is. Messages name only the
// client-supplied input, never a resolved path.
package fileops
