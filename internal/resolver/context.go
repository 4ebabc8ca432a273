package resolver

import (
	"net/url"
	"path"
	"path/filepath"
)

// FileKind distinguishes the shapes a file identity can take.
type FileKind int

const (
	// FileNone means no file is active.
	FileNone FileKind = iota
	// FileDisk is a buffer backed by a file on disk.
	FileDisk
	// FileUntitled is an unsaved buffer that has never been written.
	FileUntitled
	// FileResource is any other addressable resource, identified by URI.
	FileResource
)

func (k FileKind) String() string {
	switch k {
	case FileDisk:
		return "disk"
	case FileUntitled:
		return "untitled"
	case FileResource:
		return "resource"
	default:
		return "none"
	}
}

const (
	untitledScheme  = "untitled:"
	unsavedPrefix   = "unsaved-"
	unknownResource = "Unknown"
)

// FileRef identifies the active file of a resolution.
type FileRef struct {
	Kind FileKind
	// Path is the absolute filesystem path of a disk file.
	Path string
	// Label is the per-buffer label of an untitled buffer, e.g. "2".
	Label string
	// URI is the full string form of a non-file resource.
	URI string
}

// DiskFile returns a reference to a file on disk.
func DiskFile(path string) FileRef {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return FileRef{Kind: FileDisk, Path: path}
}

// UntitledFile returns a reference to an unsaved buffer.
func UntitledFile(label string) FileRef {
	return FileRef{Kind: FileUntitled, Label: label}
}

// ResourceFile returns a reference to a non-file resource.
func ResourceFile(uri string) FileRef {
	return FileRef{Kind: FileResource, URI: uri}
}

// Name is the value of {{filename}} for the reference.
func (f FileRef) Name() string {
	switch f.Kind {
	case FileDisk:
		return filepath.Base(f.Path)
	case FileUntitled:
		return unsavedPrefix + f.Label
	case FileResource:
		return resourceBase(f.URI)
	default:
		return ""
	}
}

// FullPath is the value of {{filepath}} for the reference.
func (f FileRef) FullPath() string {
	switch f.Kind {
	case FileDisk:
		return f.Path
	case FileUntitled:
		return untitledScheme + f.Label
	case FileResource:
		return f.URI
	default:
		return ""
	}
}

func resourceBase(uri string) string {
	p := uri
	if u, err := url.Parse(uri); err == nil {
		p = u.Path
		if p == "" {
			p = u.Opaque
		}
	}
	base := path.Base(p)
	if base == "." || base == "/" || base == "" {
		return unknownResource
	}
	return base
}

// Context is the live editing state consulted by the system pass. It is
// built fresh for every resolution.
type Context struct {
	Selection string
	File      FileRef
}
