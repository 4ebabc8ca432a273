// Package storage keeps the template library in a single JSON file shared
// by every running instance.
//
// The in-memory copy answers all reads. Every mutation rewrites the whole
// file. There is no cross-process locking: when two instances write, the
// last write replaces the file entirely and the other instance's unseen
// changes are lost. Instances pick up each other's writes through Sync,
// which reloads only when the file's modification time is strictly newer
// than the one recorded at the last load or save.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	apperrors "github.com/dpshade/prompt-manager/internal/errors"
	"github.com/dpshade/prompt-manager/internal/logging"
	"github.com/dpshade/prompt-manager/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned when no template has the requested id.
var ErrNotFound = errors.New("template not found")

// ErrBusy is returned by ForceSync when the file stays busy with a write or
// load of this instance.
var ErrBusy = errors.New("template file is busy")

const (
	forceSyncAttempts = 5
	forceSyncBackoff  = 10 * time.Millisecond
)

// ChangeReason says why listeners were notified.
type ChangeReason string

const (
	ReasonExternal ChangeReason = "external"
	ReasonForced   ChangeReason = "forced"
)

// ChangeEvent is delivered to OnChange listeners after a reload.
type ChangeEvent struct {
	Reason  ChangeReason
	Count   int
	ModTime time.Time
}

// Store is the template repository.
type Store struct {
	path string

	mu        sync.RWMutex
	templates []*models.Template
	lastMod   time.Time

	// syncing is set while this instance is writing or reloading, so the
	// change observer ignores the notifications it causes.
	syncing atomic.Bool

	listenersMu sync.Mutex
	listeners   []func(ChangeEvent)

	now    func() time.Time
	newID  func() string
	newer  func(current, known time.Time) bool
	seed   []models.CreateInput
	logger zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator sets the id generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithMtimeComparator replaces the "is the file newer" test used by Sync.
func WithMtimeComparator(newer func(current, known time.Time) bool) Option {
	return func(s *Store) { s.newer = newer }
}

// WithSeed replaces the templates written on first run. An empty slice
// starts the library empty.
func WithSeed(seed []models.CreateInput) Option {
	return func(s *Store) { s.seed = seed }
}

// Open creates a Store for path and loads it.
func Open(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, apperrors.ValidationError("storage path is required")
	}

	s := &Store{
		path:   path,
		now:    time.Now,
		newID:  uuid.NewString,
		newer:  func(current, known time.Time) bool { return current.After(known) },
		seed:   DefaultTemplates,
		logger: logging.GetLogger("storage"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, apperrors.StorageError("create directory", err)
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Syncing reports whether the store is writing or reloading its file.
func (s *Store) Syncing() bool {
	return s.syncing.Load()
}

// Load reads the backing file. A missing or unreadable file is treated as a
// first run: the library is seeded and written back.
func (s *Store) Load() error {
	s.syncing.Store(true)
	defer s.syncing.Store(false)

	templates, mod, err := s.readFile()
	if err == nil {
		s.mu.Lock()
		s.templates = templates
		s.lastMod = mod
		s.mu.Unlock()
		s.logger.Debug().Int("count", len(templates)).Str("path", s.path).Msg("Loaded templates")
		return nil
	}

	if !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("Template file unreadable, starting fresh")
		backup := s.path + ".corrupt"
		if rerr := os.Rename(s.path, backup); rerr == nil {
			s.logger.Warn().Str("backup", backup).Msg("Kept unreadable file")
		}
	}

	return s.seedLibrary()
}

func (s *Store) seedLibrary() error {
	now := s.now()
	seeded := make([]*models.Template, 0, len(s.seed))
	for _, in := range s.seed {
		seeded = append(seeded, s.newTemplate(in, now))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeLocked(seeded); err != nil {
		// Keep the seed in memory so the session is usable.
		s.templates = seeded
		return err
	}
	s.templates = seeded
	s.logger.Info().Int("count", len(seeded)).Msg("Seeded default templates")
	return nil
}

func (s *Store) readFile() ([]*models.Template, time.Time, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, time.Time{}, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, time.Time{}, err
	}

	var templates []*models.Template
	if err := json.Unmarshal(data, &templates); err != nil {
		return nil, time.Time{}, apperrors.Wrap(err, apperrors.ErrCodeFileCorrupted, "template file is not valid JSON")
	}
	for _, t := range templates {
		normalize(t)
	}
	return templates, info.ModTime(), nil
}

// writeLocked persists templates. s.mu must be held for writing.
func (s *Store) writeLocked(templates []*models.Template) error {
	s.syncing.Store(true)
	defer s.syncing.Store(false)

	if templates == nil {
		templates = []*models.Template{}
	}
	data, err := json.MarshalIndent(templates, "", "  ")
	if err != nil {
		return apperrors.StorageError("encode", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		s.logger.Error().Err(err).Str("path", s.path).Msg("Failed to save templates")
		return apperrors.StorageError("save", err)
	}
	if info, err := os.Stat(s.path); err == nil {
		s.lastMod = info.ModTime()
	}
	return nil
}

// mutate applies fn to a copy of the library and persists it. The
// in-memory library changes only if the write succeeds.
func (s *Store) mutate(fn func([]*models.Template) ([]*models.Template, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(slices.Clone(s.templates))
	if err != nil {
		return err
	}
	if err := s.writeLocked(next); err != nil {
		return err
	}
	s.templates = next
	return nil
}

func (s *Store) newTemplate(in models.CreateInput, now time.Time) *models.Template {
	t := &models.Template{
		ID:          s.newID(),
		Title:       in.Title,
		Content:     in.Content,
		Description: in.Description,
		Category:    in.Category,
		Tags:        slices.Clone(in.Tags),
		Variables:   slices.Clone(in.Variables),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	normalize(t)
	return t
}

func normalize(t *models.Template) {
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if t.Variables == nil {
		t.Variables = []models.Variable{}
	}
	if t.UpdatedAt.Before(t.CreatedAt) {
		t.UpdatedAt = t.CreatedAt
	}
}

// touch bumps UpdatedAt without letting it fall behind CreatedAt.
func (s *Store) touch(t *models.Template) {
	t.UpdatedAt = s.now()
	if t.UpdatedAt.Before(t.CreatedAt) {
		t.UpdatedAt = t.CreatedAt
	}
}

func indexOf(templates []*models.Template, id string) int {
	return slices.IndexFunc(templates, func(t *models.Template) bool { return t.ID == id })
}

func notFound(id string) error {
	return apperrors.Wrap(ErrNotFound, apperrors.ErrCodeNotFound, fmt.Sprintf("template %s not found", id))
}

// List returns every template in storage order.
func (s *Store) List() []*models.Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.templates)
}

// ByCategory returns the templates whose category equals name.
func (s *Store) ByCategory(name string) []*models.Template {
	return s.filter(func(t *models.Template) bool { return t.Category == name })
}

// Search returns templates whose title, content, description or any tag
// contains query, ignoring case.
func (s *Store) Search(query string) []*models.Template {
	q := strings.ToLower(query)
	return s.filter(func(t *models.Template) bool {
		if strings.Contains(strings.ToLower(t.Title), q) ||
			strings.Contains(strings.ToLower(t.Content), q) ||
			strings.Contains(strings.ToLower(t.Description), q) {
			return true
		}
		for _, tag := range t.Tags {
			if strings.Contains(strings.ToLower(tag), q) {
				return true
			}
		}
		return false
	})
}

func (s *Store) filter(keep func(*models.Template) bool) []*models.Template {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Template
	for _, t := range s.templates {
		if keep(t) {
			out = append(out, t.Clone())
		}
	}
	return out
}

// Get returns the template with id.
func (s *Store) Get(id string) (*models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := indexOf(s.templates, id); i >= 0 {
		return s.templates[i].Clone(), nil
	}
	return nil, notFound(id)
}

// Categories returns the distinct category names, sorted.
func (s *Store) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return categoriesOf(s.templates)
}

func categoriesOf(templates []*models.Template) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, t := range templates {
		if t.Category == "" || seen[t.Category] {
			continue
		}
		seen[t.Category] = true
		out = append(out, t.Category)
	}
	sort.Strings(out)
	return out
}

// Create adds a template and persists the library.
func (s *Store) Create(in models.CreateInput) (*models.Template, error) {
	t := s.newTemplate(in, s.now())
	err := s.mutate(func(list []*models.Template) ([]*models.Template, error) {
		return append(list, t), nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("id", t.ID).Str("title", t.Title).Msg("Created template")
	return t.Clone(), nil
}

// Update merges the set fields of in into the template with in.ID.
func (s *Store) Update(in models.UpdateInput) (*models.Template, error) {
	var updated *models.Template
	err := s.mutate(func(list []*models.Template) ([]*models.Template, error) {
		i := indexOf(list, in.ID)
		if i < 0 {
			return nil, notFound(in.ID)
		}
		t := list[i].Clone()
		t.Apply(in)
		normalize(t)
		s.touch(t)
		list[i] = t
		updated = t
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("id", in.ID).Msg("Updated template")
	return updated.Clone(), nil
}

// Delete removes the template with id.
func (s *Store) Delete(id string) error {
	err := s.mutate(func(list []*models.Template) ([]*models.Template, error) {
		i := indexOf(list, id)
		if i < 0 {
			return nil, notFound(id)
		}
		return slices.Delete(list, i, i+1), nil
	})
	if err != nil {
		return err
	}
	s.logger.Info().Str("id", id).Msg("Deleted template")
	return nil
}

// IncrementUsage records one use of the template with id.
func (s *Store) IncrementUsage(id string) (*models.Template, error) {
	var updated *models.Template
	err := s.mutate(func(list []*models.Template) ([]*models.Template, error) {
		i := indexOf(list, id)
		if i < 0 {
			return nil, notFound(id)
		}
		t := list[i].Clone()
		t.UsageCount++
		s.touch(t)
		list[i] = t
		updated = t
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return updated.Clone(), nil
}

// OnChange registers fn to run after the library is reloaded from disk.
func (s *Store) OnChange(fn func(ChangeEvent)) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) notify(ev ChangeEvent) {
	s.listenersMu.Lock()
	listeners := slices.Clone(s.listeners)
	s.listenersMu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

// Sync reloads the library if another instance has written the file since
// this one last loaded or saved it. It reports whether a reload happened.
func (s *Store) Sync() (bool, error) {
	if s.syncing.Load() {
		return false, nil
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, apperrors.StorageError("stat", err)
	}

	s.mu.RLock()
	known := s.lastMod
	s.mu.RUnlock()

	if !s.newer(info.ModTime(), known) {
		return false, nil
	}

	s.logger.Debug().Time("mtime", info.ModTime()).Time("known", known).Msg("Template file changed")
	if err := s.reload(ReasonExternal); err != nil {
		if errors.Is(err, ErrBusy) {
			// The in-flight write will set lastMod; the next signal decides.
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ForceSync reloads the library unconditionally. If a write or load is in
// flight it retries briefly, then gives up with ErrBusy.
func (s *Store) ForceSync() error {
	var err error
	for attempt := 0; attempt < forceSyncAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(forceSyncBackoff)
		}
		err = s.reload(ReasonForced)
		if !errors.Is(err, ErrBusy) {
			return err
		}
	}
	s.logger.Warn().Int("attempts", forceSyncAttempts).Msg("Forced sync gave up, file busy")
	return apperrors.Wrap(err, apperrors.ErrCodeStorageFailure, "template file is busy, try again")
}

func (s *Store) reload(reason ChangeReason) error {
	if !s.syncing.CompareAndSwap(false, true) {
		return ErrBusy
	}

	templates, mod, err := s.readFile()
	if err != nil {
		s.syncing.Store(false)
		s.logger.Warn().Err(err).Msg("Reload failed, keeping current templates")
		return apperrors.StorageError("reload", err)
	}

	s.mu.Lock()
	s.templates = templates
	s.lastMod = mod
	s.mu.Unlock()
	s.syncing.Store(false)

	s.logger.Info().Str("reason", string(reason)).Int("count", len(templates)).Msg("Templates reloaded")
	s.notify(ChangeEvent{Reason: reason, Count: len(templates), ModTime: mod})
	return nil
}

func cloneAll(templates []*models.Template) []*models.Template {
	out := make([]*models.Template, len(templates))
	for i, t := range templates {
		out[i] = t.Clone()
	}
	return out
}
