package fileops

import (
	"errors"
	"fmt"
	"io/fs"
)

// Kind classifies why a file operation against the base directory failed.
type Kind int

const (
	// KindUnknown is reported by KindOf for errors that did not originate here.
	KindUnknown Kind = iota
	// KindPathTraversal means the requested name tried to leave the base directory.
	KindPathTraversal
	// KindNotFound means the name is in bounds but nothing exists there.
	KindNotFound
	// KindNotAFile means the name refers to a directory or a special file.
	KindNotAFile
	// KindDirectoryUnavailable means the base directory itself cannot be used.
	KindDirectoryUnavailable
	// KindReadError means an in-bounds regular file could not be read as text.
	KindReadError
)

// Sentinel errors, one per Kind. An *Error matches its sentinel with errors.Is.
var (
	ErrPathTraversal        = errors.New("path traversal")
	ErrNotFound             = errors.New("not found")
	ErrNotAFile             = errors.New("not a file")
	ErrDirectoryUnavailable = errors.New("directory unavailable")
	ErrReadError            = errors.New("read error")
)

func (k Kind) String() string {
	switch k {
	case KindPathTraversal:
		return "PathTraversal"
	case KindNotFound:
		return "NotFound"
	case KindNotAFile:
		return "NotAFile"
	case KindDirectoryUnavailable:
		return "DirectoryUnavailable"
	case KindReadError:
		return "ReadError"
	default:
		return "Unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindPathTraversal:
		return ErrPathTraversal
	case KindNotFound:
		return ErrNotFound
	case KindNotAFile:
		return ErrNotAFile
	case KindDirectoryUnavailable:
		return ErrDirectoryUnavailable
	case KindReadError:
		return ErrReadError
	default:
		return nil
	}
}

// Error is the structured failure returned by Resolver and by the catalog built
// on top of it. Name is always the client-supplied input; resolved paths are
// never part of the message.
type Error struct {
	Kind Kind
	Name string
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %q", e.Kind.sentinel(), e.Name)
	if e.Kind == KindPathTraversal || e.Err == nil {
		return msg
	}
	return msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's Kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// NewError builds an *Error for name. A *fs.PathError cause is reduced to its
// underlying error so the absolute path it carries is dropped.
func NewError(kind Kind, name string, cause error) *Error {
	return &Error{Kind: kind, Name: name, Err: stripPath(cause)}
}

func stripPath(err error) error {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}
