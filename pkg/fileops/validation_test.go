package fileops

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// Tests for ValidateName

func TestValidateName(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expectError bool
		errorText   string
	}{
		{
			name:        "simple file",
			input:       "test.txt",
			expectError: false,
		},
		{
			name:        "nested file",
			input:       "docs/readme.md",
			expectError: false,
		},
		{
			name:        "leading dot segment",
			input:       "./test.txt",
			expectError: false,
		},
		{
			name:        "double dot inside file name",
			input:       "notes..txt",
			expectError: false,
		},
		{
			name:        "double dot prefix on file name",
			input:       "..hidden-ish",
			expectError: false,
		},
		{
			name:        "empty",
			input:       "",
			expectError: true,
			errorText:   "name cannot be empty",
		},
		{
			name:        "only slashes",
			input:       "///",
			expectError: true,
			errorText:   "name cannot be empty",
		},
		{
			name:        "only backslashes",
			input:       `\\`,
			expectError: true,
			errorText:   "name cannot be empty",
		},
		{
			name:        "single dot",
			input:       ".",
			expectError: true,
			errorText:   "base directory itself",
		},
		{
			name:        "dot slash dot",
			input:       "./.",
			expectError: true,
			errorText:   "base directory itself",
		},
		{
			name:        "null byte",
			input:       "test.txt\x00.md",
			expectError: true,
			errorText:   "null bytes",
		},
		{
			name:        "absolute unix path",
			input:       "/etc/passwd",
			expectError: true,
			errorText:   "absolute paths not allowed",
		},
		{
			name:        "leading backslash",
			input:       `\windows\win.ini`,
			expectError: true,
			errorText:   "absolute paths not allowed",
		},
		{
			name:        "drive letter",
			input:       `C:\Windows\win.ini`,
			expectError: true,
			errorText:   "volume names not allowed",
		},
		{
			name:        "drive relative",
			input:       "c:secret.txt",
			expectError: true,
			errorText:   "volume names not allowed",
		},
		{
			name:        "parent directory",
			input:       "../secret.txt",
			expectError: true,
			errorText:   "path traversal not allowed",
		},
		{
			name:        "parent directory in middle",
			input:       "docs/../../secret.txt",
			expectError: true,
			errorText:   "path traversal not allowed",
		},
		{
			name:        "bare parent",
			input:       "..",
			expectError: true,
			errorText:   "path traversal not allowed",
		},
		{
			name:        "backslash traversal",
			input:       `docs\..\..\secret.txt`,
			expectError: true,
			errorText:   "path traversal not allowed",
		},
		{
			name:        "percent encoded traversal",
			input:       "%2e%2e/secret.txt",
			expectError: true,
			errorText:   "path traversal not allowed",
		},
		{
			name:        "percent encoded separator",
			input:       "..%2fsecret.txt",
			expectError: true,
			errorText:   "path traversal not allowed",
		},
		{
			name:        "double encoded traversal",
			input:       "%252e%252e/secret.txt",
			expectError: true,
			errorText:   "path traversal not allowed",
		},
		{
			name:        "mixed case encoding",
			input:       "%2E%2e",
			expectError: true,
			errorText:   "path traversal not allowed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)

			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got none")
				} else if !strings.Contains(err.Error(), tt.errorText) {
					t.Errorf("Expected error containing %q, got: %v", tt.errorText, err)
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				}
			}
		})
	}
}

// Tests for IsWithinDirectory

func TestIsWithinDirectory(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix path fixtures")
	}

	tests := []struct {
		name   string
		target string
		base   string
		want   bool
	}{
		{"same directory", "/srv/base", "/srv/base", true},
		{"direct child", "/srv/base/file.txt", "/srv/base", true},
		{"nested child", "/srv/base/a/b/c.txt", "/srv/base", true},
		{"child named with dots", "/srv/base/..foo", "/srv/base", true},
		{"parent", "/srv", "/srv/base", false},
		{"sibling sharing prefix", "/srv/base-evil/file.txt", "/srv/base", false},
		{"sibling exact prefix", "/srv/base-evil", "/srv/base", false},
		{"unrelated", "/etc/passwd", "/srv/base", false},
		{"root", "/", "/srv/base", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsWithinDirectory(tt.target, tt.base); got != tt.want {
				t.Errorf("IsWithinDirectory(%q, %q) = %v, want %v", tt.target, tt.base, got, tt.want)
			}
		})
	}
}

// Tests for ExpandPath

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		input string
		want  string
	}{
		{"~/docs", filepath.Join(home, "docs")},
		{"/abs/path", "/abs/path"},
		{"relative/path", "relative/path"},
		{"~user/docs", "~user/docs"},
	}

	for _, tt := range tests {
		if got := ExpandPath(tt.input); got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// Tests for IsReservedDirectory

func TestIsReservedDirectory(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux reserved directory fixtures")
	}

	tests := []struct {
		path string
		want bool
	}{
		{"/", true},
		{"/etc", true},
		{"/etc/ssl", true},
		{"/proc/self", true},
		{"/usr/bin", true},
		{os.TempDir(), false},
		{t.TempDir(), false},
	}

	for _, tt := range tests {
		if got := IsReservedDirectory(tt.path); got != tt.want {
			t.Errorf("IsReservedDirectory(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestIsReservedDirectoryHomeCredentials(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	if !IsReservedDirectory(filepath.Join(home, ".ssh")) {
		t.Error("~/.ssh should be reserved")
	}
}

func BenchmarkValidateName(b *testing.B) {
	for i := 0; i < b.N; i++ {
		ValidateName("docs/../%2e%2e/secret.txt")
	}
}
