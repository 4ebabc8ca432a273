package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/dpshade/prompt-manager/internal/errors"
	"github.com/dpshade/prompt-manager/internal/models"
)

// LibraryVersion is written into every export document.
const LibraryVersion = "1.0.0"

// Format selects the encoding of an export document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml" or "yml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", apperrors.ValidationError(fmt.Sprintf("unknown export format %q", s))
	}
}

// Library returns the export document for the current templates.
func (s *Store) Library() models.Library {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return models.Library{
		Prompts:    cloneAll(s.templates),
		Categories: categoriesOf(s.templates),
		Version:    LibraryVersion,
		ExportedAt: s.now(),
	}
}

// WriteLibrary encodes the export document to w.
func (s *Store) WriteLibrary(w io.Writer, format Format) error {
	lib := s.Library()

	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(lib); err != nil {
			return apperrors.StorageError("export", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(lib); err != nil {
			return apperrors.StorageError("export", err)
		}
		return nil
	}
}

// Export writes the export document to path.
func (s *Store) Export(path string, format Format) error {
	f, err := os.Create(path)
	if err != nil {
		return apperrors.StorageError("export", err)
	}
	if err := s.WriteLibrary(f, format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return apperrors.StorageError("export", err)
	}
	s.logger.Info().Str("path", path).Str("format", string(format)).Msg("Exported templates")
	return nil
}

// Import appends the templates of the document at path. Each imported
// template gets a fresh id; all other fields are kept.
func (s *Store) Import(path string) ([]*models.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.StorageError("import", err)
	}

	lib, err := DecodeLibrary(data)
	if err != nil {
		return nil, err
	}
	return s.ImportLibrary(lib)
}

// DecodeLibrary parses an export document written as JSON or, failing
// that, as YAML.
func DecodeLibrary(data []byte) (models.Library, error) {
	var lib models.Library
	jsonErr := json.Unmarshal(data, &lib)
	if jsonErr == nil {
		return lib, nil
	}
	if yamlErr := yaml.Unmarshal(data, &lib); yamlErr == nil && lib.Prompts != nil {
		return lib, nil
	}
	return models.Library{}, apperrors.Wrap(jsonErr, apperrors.ErrCodeInvalidFormat, "import file is not a template library")
}

// ImportLibrary appends the templates of lib with fresh ids.
func (s *Store) ImportLibrary(lib models.Library) ([]*models.Template, error) {
	imported := make([]*models.Template, 0, len(lib.Prompts))
	for _, p := range lib.Prompts {
		if p == nil {
			continue
		}
		t := p.Clone()
		t.ID = s.newID()
		if t.CreatedAt.IsZero() {
			t.CreatedAt = s.now()
		}
		normalize(t)
		imported = append(imported, t)
	}

	err := s.mutate(func(list []*models.Template) ([]*models.Template, error) {
		return append(list, imported...), nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int("count", len(imported)).Msg("Imported templates")
	return cloneAll(imported), nil
}
