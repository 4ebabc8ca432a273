// Package editor provides the editing surfaces that resolved text is
// inserted into, and the context they expose to the resolver.
package editor

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	apperrors "github.com/dpshade/prompt-manager/internal/errors"
	"github.com/dpshade/prompt-manager/internal/resolver"
)

// Surface is an editing target.
type Surface interface {
	// Context returns the live state used by the system pass.
	Context() resolver.Context
	// Insert places text at the surface's caret.
	Insert(text string) error
}

// Caret is a 1-based line and column position. Columns count runes.
type Caret struct {
	Line int
	Col  int
}

// ParseCaret parses "line:col" or "line".
func ParseCaret(s string) (*Caret, error) {
	linePart, colPart, hasCol := strings.Cut(s, ":")
	line, err := strconv.Atoi(linePart)
	if err != nil || line < 1 {
		return nil, apperrors.ValidationError(fmt.Sprintf("invalid caret %q, want line:col", s))
	}
	col := 1
	if hasCol {
		col, err = strconv.Atoi(colPart)
		if err != nil || col < 1 {
			return nil, apperrors.ValidationError(fmt.Sprintf("invalid caret %q, want line:col", s))
		}
	}
	return &Caret{Line: line, Col: col}, nil
}

// LineRange is an inclusive 1-based range of lines.
type LineRange struct {
	From int
	To   int
}

// ParseLineRange parses "a-b" or a single line number.
func ParseLineRange(s string) (LineRange, error) {
	fromPart, toPart, isRange := strings.Cut(s, "-")
	from, err := strconv.Atoi(strings.TrimSpace(fromPart))
	to := from
	if err == nil && isRange {
		to, err = strconv.Atoi(strings.TrimSpace(toPart))
	}
	if err != nil || from < 1 || to < from {
		return LineRange{}, apperrors.ValidationError(fmt.Sprintf("invalid line range %q, want a-b", s))
	}
	return LineRange{From: from, To: to}, nil
}

// FileSurface is a file on disk acting as the active buffer.
type FileSurface struct {
	Path      string
	Selection string
	// Caret is where Insert places text. Nil means end of file.
	Caret *Caret
}

// OpenFile returns a surface for path. The file must exist.
func OpenFile(path string) (*FileSurface, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeFileNotFound, fmt.Sprintf("cannot open %s", path))
	}
	return &FileSurface{Path: path}, nil
}

// SelectLines sets the selection to the given lines of the file.
func (f *FileSurface) SelectLines(r LineRange) error {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeFileNotFound, fmt.Sprintf("cannot read %s", f.Path))
	}
	lines := strings.SplitAfter(string(data), "\n")
	if strings.HasSuffix(string(data), "\n") {
		lines = lines[:len(lines)-1]
	}
	if r.From > len(lines) {
		return apperrors.ValidationError(fmt.Sprintf("line %d is past the end of %s (%d lines)", r.From, f.Path, len(lines)))
	}
	to := min(r.To, len(lines))
	f.Selection = strings.TrimSuffix(strings.Join(lines[r.From-1:to], ""), "\n")
	return nil
}

// Context implements Surface.
func (f *FileSurface) Context() resolver.Context {
	return resolver.Context{
		Selection: f.Selection,
		File:      resolver.DiskFile(f.Path),
	}
}

// Insert implements Surface. It fails if the file is gone or the caret is
// outside the file.
func (f *FileSurface) Insert(text string) error {
	info, err := os.Stat(f.Path)
	if err != nil {
		return apperrors.InsertError(f.Path, err)
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return apperrors.InsertError(f.Path, err)
	}

	offset := len(data)
	if f.Caret != nil {
		offset, err = byteOffset(data, *f.Caret)
		if err != nil {
			return apperrors.InsertError(f.Path, err)
		}
	}

	var buf bytes.Buffer
	buf.Grow(len(data) + len(text))
	buf.Write(data[:offset])
	buf.WriteString(text)
	buf.Write(data[offset:])

	if err := os.WriteFile(f.Path, buf.Bytes(), info.Mode().Perm()); err != nil {
		return apperrors.InsertError(f.Path, err)
	}
	return nil
}

// byteOffset converts a caret into an offset in data. A column one past the
// end of a line is allowed.
func byteOffset(data []byte, c Caret) (int, error) {
	offset := 0
	for line := 1; line < c.Line; line++ {
		nl := bytes.IndexByte(data[offset:], '\n')
		if nl < 0 {
			return 0, fmt.Errorf("line %d is past the end of the file", c.Line)
		}
		offset += nl + 1
	}

	end := len(data)
	if nl := bytes.IndexByte(data[offset:], '\n'); nl >= 0 {
		end = offset + nl
	}
	lineBytes := data[offset:end]
	if c.Col-1 > utf8.RuneCount(lineBytes) {
		return 0, fmt.Errorf("column %d is past the end of line %d", c.Col, c.Line)
	}

	for col := 1; col < c.Col; col++ {
		_, size := utf8.DecodeRune(data[offset:end])
		offset += size
	}
	return offset, nil
}

// StreamSurface writes inserted text to a stream. It stands in for
// buffers that have no file, such as untitled buffers and remote
// resources.
type StreamSurface struct {
	W         io.Writer
	Selection string
	File      resolver.FileRef
}

// Context implements Surface.
func (s *StreamSurface) Context() resolver.Context {
	return resolver.Context{Selection: s.Selection, File: s.File}
}

// Insert implements Surface.
func (s *StreamSurface) Insert(text string) error {
	if _, err := io.WriteString(s.W, text); err != nil {
		return apperrors.InsertError(s.File.Kind.String()+" buffer", err)
	}
	return nil
}
