package fileops

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ValidateName performs the static checks on a client-supplied file name,
// before anything touches the filesystem.
//
// The function rejects:
//   - Empty names, names made only of separators, and names that clean to "."
//   - Null bytes anywhere in the name
//   - Absolute paths, leading separators, and volume or drive prefixes ("C:")
//   - Any ".." segment, split on both '/' and '\', either literal or
//     percent-encoded ("%2e%2e")
//
// Names such as "..foo" or "notes..txt" are accepted: only whole segments count.
//
// Usage example:
//
//	if err := fileops.ValidateName("../../etc/passwd"); err != nil {
//	    return err // path traversal
//	}
func ValidateName(name string) error {
	if strings.Trim(name, `/\`) == "" {
		return fmt.Errorf("name cannot be empty")
	}

	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("name contains null bytes")
	}

	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return fmt.Errorf("absolute paths not allowed")
	}
	if filepath.VolumeName(name) != "" || hasDrivePrefix(name) {
		return fmt.Errorf("volume names not allowed")
	}

	if hasParentSegment(name) {
		return fmt.Errorf("path traversal not allowed")
	}

	if filepath.Clean(filepath.FromSlash(name)) == "." {
		return fmt.Errorf("name refers to the base directory itself")
	}

	return nil
}

// IsWithinDirectory reports whether target is baseDir or one of its
// descendants. The comparison is segment-wise via filepath.Rel, so
// "/srv/base-evil" is not inside "/srv/base". Both paths should already be
// absolute and canonical.
func IsWithinDirectory(target, baseDir string) bool {
	rel, err := filepath.Rel(baseDir, target)
	if err != nil {
		return false
	}
	if filepath.IsAbs(rel) {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ExpandPath expands a path that starts with "~/" to the user's home directory.
//
// Usage example:
//
//	expanded := fileops.ExpandPath("~/Documents")
//	// Returns something like "/home/user/Documents"
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// IsReservedDirectory checks if the path is a system or credential directory
// that should never be exposed, even read-only.
//
// The function checks:
//   - The filesystem root
//   - System directories (like /etc, /proc, C:\Windows)
//   - Credential directories in the user's home (~/.ssh, ~/.gnupg)
//   - Symlinks are resolved first so an alias cannot hide a reserved target
func IsReservedDirectory(path string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return true // If we can't resolve it, treat as reserved
	}
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		absPath = resolved
	}
	absPath = filepath.Clean(absPath)

	if absPath == filepath.VolumeName(absPath)+string(filepath.Separator) {
		return true
	}

	for _, reserved := range getReservedDirectories() {
		if resolved, err := filepath.EvalSymlinks(reserved); err == nil {
			reserved = resolved
		}
		reserved = filepath.Clean(reserved)

		if strings.EqualFold(absPath, reserved) {
			return true
		}
		if IsWithinDirectory(absPath, reserved) && !isUserTempDirectory(absPath) {
			return true
		}
	}

	return false
}

// getReservedDirectories returns platform-specific reserved directories
func getReservedDirectories() []string {
	var reservedDirs []string

	switch runtime.GOOS {
	case "windows":
		reservedDirs = []string{
			`C:\Windows`,
			`C:\Program Files`,
			`C:\Program Files (x86)`,
			`C:\ProgramData\Microsoft`,
		}

	case "darwin":
		reservedDirs = []string{
			"/System",
			"/bin",
			"/sbin",
			"/usr/bin",
			"/usr/sbin",
			"/etc",
			"/private/etc",
			"/var/db",
			"/var/root",
		}

	default:
		reservedDirs = []string{
			"/bin",
			"/sbin",
			"/usr/bin",
			"/usr/sbin",
			"/etc",
			"/boot",
			"/dev",
			"/proc",
			"/sys",
			"/var/lib",
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		reservedDirs = append(reservedDirs,
			filepath.Join(home, ".ssh"),
			filepath.Join(home, ".gnupg"),
		)
	}

	return reservedDirs
}

// isUserTempDirectory detects temp directories that live under a reserved prefix
// (macOS keeps per-user temp dirs under /var/folders).
func isUserTempDirectory(path string) bool {
	temp := filepath.Clean(os.TempDir())
	if resolved, err := filepath.EvalSymlinks(temp); err == nil {
		temp = resolved
	}
	return IsWithinDirectory(path, temp)
}

func splitSegments(name string) []string {
	return strings.FieldsFunc(name, func(r rune) bool {
		return r == '/' || r == '\\'
	})
}

// hasParentSegment reports whether any segment of name is "..", decoding
// percent-escapes repeatedly ("%252e%252e" is caught too).
func hasParentSegment(name string) bool {
	for _, segment := range splitSegments(name) {
		if segment == ".." {
			return true
		}
		decoded, err := url.PathUnescape(segment)
		if err == nil && decoded != segment && hasParentSegment(decoded) {
			return true
		}
	}
	return false
}

func hasDrivePrefix(name string) bool {
	if len(name) < 2 || name[1] != ':' {
		return false
	}
	c := name[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
