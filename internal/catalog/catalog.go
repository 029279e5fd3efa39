// Package catalog implements the two read-only operations exposed over the
// base directory: listing its visible files and reading one of them.
//
// Every call works directly against the filesystem. Nothing is cached, and a
// Catalog holds no mutable state, so one instance serves concurrent requests.
package catalog

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"dirmcp/internal/logging"
	"dirmcp/pkg/fileops"
)

// DefaultMaxFileSize is used when no WithMaxFileSize option is given.
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

// FileEntry is one visible file in the base directory.
type FileEntry struct {
	Name string `json:"name"`
}

// FileContent is the result of reading a file. Size and modification time
// come from the same open handle the content was read from.
type FileContent struct {
	Name         string    `json:"name"`
	Content      string    `json:"content"`
	SizeBytes    int64     `json:"sizeBytes"`
	LastModified time.Time `json:"lastModified"`
}

// Catalog lists and reads files confined to one base directory.
type Catalog struct {
	resolver    *fileops.Resolver
	logger      *logging.AppLogger
	maxFileSize int64
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithMaxFileSize limits reads to n bytes. n <= 0 disables the limit.
func WithMaxFileSize(n int64) Option {
	return func(c *Catalog) {
		c.maxFileSize = n
	}
}

// New creates a Catalog over baseDir. It fails with a DirectoryUnavailable
// error when baseDir does not exist or is not a directory.
func New(baseDir string, logger *logging.AppLogger, opts ...Option) (*Catalog, error) {
	resolver, err := fileops.NewResolver(baseDir)
	if err != nil {
		return nil, err
	}

	c := &Catalog{
		resolver:    resolver,
		logger:      logger,
		maxFileSize: DefaultMaxFileSize,
	}
	for _, opt := range opts {
		opt(c)
	}

	logger.Debug("Catalog ready", "base", resolver.Base(), "maxFileSize", c.maxFileSize)
	return c, nil
}

// BaseDir returns the canonical base directory.
func (c *Catalog) BaseDir() string {
	return c.resolver.Base()
}

// ListFiles returns the visible regular files directly inside the base
// directory, sorted by name.
//
// Hidden entries (leading dot), directories, special files, and symlinks that
// do not resolve to an in-bounds regular file are left out. An empty directory
// yields an empty, non-nil slice.
func (c *Catalog) ListFiles() ([]FileEntry, error) {
	start := time.Now()
	defer c.logger.LogPerformance("list_files", start)

	// os.ReadDir returns entries sorted by filename.
	entries, err := os.ReadDir(c.resolver.Base())
	if err != nil {
		c.logger.Error("Failed to read base directory", "error", err)
		return nil, fileops.NewError(fileops.KindDirectoryUnavailable, ".", err)
	}

	files := make([]FileEntry, 0, len(entries))
	var skipped int
	for _, entry := range entries {
		if !c.isListable(entry) {
			skipped++
			continue
		}
		files = append(files, FileEntry{Name: entry.Name()})
	}

	c.logger.Debug("Listed base directory", "files", len(files), "skipped", skipped)
	return files, nil
}

func (c *Catalog) isListable(entry fs.DirEntry) bool {
	name := entry.Name()
	if strings.HasPrefix(name, ".") || entry.IsDir() {
		return false
	}

	resolved, err := c.resolver.Resolve(name)
	if err != nil {
		c.logger.Debug("Skipping entry that does not resolve", "name", name, "error", err)
		return false
	}
	if rel, err := c.resolver.Rel(resolved); err != nil || isHidden(rel) {
		return false
	}

	info, err := os.Stat(resolved)
	if err != nil {
		c.logger.Debug("Skipping entry that cannot be stat'ed", "name", name, "error", err)
		return false
	}
	return info.Mode().IsRegular()
}

// ReadFile returns the text content and metadata of name.
//
// Errors are *fileops.Error values:
//   - PathTraversal when name tries to leave the base directory
//   - NotFound when nothing exists at the resolved path, or the path is
//     hidden (any segment starting with a dot)
//   - NotAFile for directories and special files
//   - DirectoryUnavailable when the base directory has gone away
//   - ReadError for I/O failures, files over the size limit, and content
//     that is not valid UTF-8 (binary files are rejected, never passed through)
func (c *Catalog) ReadFile(name string) (*FileContent, error) {
	start := time.Now()
	defer c.logger.LogPerformance("read_file", start)

	resolved, err := c.resolver.Resolve(name)
	if err != nil {
		c.logger.Warn("Rejected path traversal attempt", "name", name)
		return nil, err
	}

	rel, err := c.resolver.Rel(resolved)
	if err != nil {
		c.logger.Warn("Rejected path traversal attempt", "name", name)
		return nil, fileops.NewError(fileops.KindPathTraversal, name, err)
	}

	// Hidden files are reported as missing so their existence is not revealed.
	if isHidden(rel) {
		c.logger.Debug("Refusing hidden path", "name", name)
		return nil, fileops.NewError(fileops.KindNotFound, name, nil)
	}

	// The os.Root confines the open itself, on top of the resolver's checks.
	root, err := os.OpenRoot(c.resolver.Base())
	if err != nil {
		c.logger.Error("Failed to open base directory", "error", err)
		return nil, fileops.NewError(fileops.KindDirectoryUnavailable, name, err)
	}
	defer root.Close()

	// Lstat before opening so FIFOs and devices are refused without blocking.
	info, err := root.Lstat(rel)
	if err != nil {
		return nil, c.openError(name, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fileops.NewError(fileops.KindNotAFile, name, nil)
	}

	f, err := root.Open(rel)
	if err != nil {
		return nil, c.openError(name, err)
	}
	defer f.Close()

	info, err = f.Stat()
	if err != nil {
		return nil, fileops.NewError(fileops.KindReadError, name, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fileops.NewError(fileops.KindNotAFile, name, nil)
	}
	if c.maxFileSize > 0 && info.Size() > c.maxFileSize {
		return nil, fileops.NewError(fileops.KindReadError, name,
			fmt.Errorf("file size %d bytes exceeds limit %d bytes", info.Size(), c.maxFileSize))
	}

	content, err := readAll(f, c.maxFileSize)
	if err != nil {
		return nil, fileops.NewError(fileops.KindReadError, name, err)
	}
	if !utf8.Valid(content) {
		return nil, fileops.NewError(fileops.KindReadError, name, fmt.Errorf("content is not valid UTF-8 text"))
	}

	c.logger.Debug("Read file", "name", name, "size", info.Size())
	return &FileContent{
		Name:         name,
		Content:      string(content),
		SizeBytes:    info.Size(),
		LastModified: info.ModTime(),
	}, nil
}

// openError maps a failed Lstat/Open inside the root to an error kind.
func (c *Catalog) openError(name string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, syscall.ENOTDIR):
		return fileops.NewError(fileops.KindNotFound, name, err)
	case isRootEscape(err):
		c.logger.Warn("Rejected path traversal attempt", "name", name)
		return fileops.NewError(fileops.KindPathTraversal, name, err)
	default:
		return fileops.NewError(fileops.KindReadError, name, err)
	}
}

// isRootEscape reports the error os.Root returns when a path would leave it.
// The os package does not export a sentinel for it.
func isRootEscape(err error) bool {
	return err != nil && strings.Contains(err.Error(), "path escapes from parent")
}

// isHidden reports whether any segment of the canonical relative path starts
// with a dot.
func isHidden(rel string) bool {
	for _, segment := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(segment, ".") && segment != "." {
			return true
		}
	}
	return false
}

// readAll reads f, refusing to go past limit bytes when the file grows
// between Stat and the read.
func readAll(f *os.File, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(f)
	}
	content, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(content)) > limit {
		return nil, fmt.Errorf("file grew past limit %d bytes while reading", limit)
	}
	return content, nil
}
