// Package service implements the command-style entry points shared by the
// CLI and the HTTP API.
package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sahilm/fuzzy"

	"github.com/dpshade/prompt-manager/internal/clipboard"
	"github.com/dpshade/prompt-manager/internal/editor"
	"github.com/dpshade/prompt-manager/internal/errors"
	"github.com/dpshade/prompt-manager/internal/logging"
	"github.com/dpshade/prompt-manager/internal/models"
	"github.com/dpshade/prompt-manager/internal/resolver"
	"github.com/dpshade/prompt-manager/internal/storage"
	"github.com/dpshade/prompt-manager/internal/validation"
	"github.com/dpshade/prompt-manager/internal/watch"
)

// Service provides the template operations
type Service struct {
	store     *storage.Store
	clipboard clipboard.Clipboard
	notifier  resolver.Notifier
	now       func() time.Time
	logger    zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClipboard replaces the system clipboard.
func WithClipboard(c clipboard.Clipboard) Option {
	return func(s *Service) { s.clipboard = c }
}

// WithNotifier sets where resolution advisories go.
func WithNotifier(n resolver.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithClock sets the clock used for date defaults.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service over store.
func New(store *storage.Store, opts ...Option) *Service {
	logger := logging.GetLogger("service")
	s := &Service{
		store:     store,
		clipboard: clipboard.System{},
		notifier:  resolver.LogNotifier{Logger: logger},
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the underlying repository.
func (s *Service) Store() *storage.Store {
	return s.store
}

// ListTemplates returns all templates, or those in category when set.
func (s *Service) ListTemplates(category string) []*models.Template {
	if category != "" {
		return s.store.ByCategory(category)
	}
	return s.store.List()
}

// SearchTemplates does a case-insensitive substring search.
func (s *Service) SearchTemplates(query string) []*models.Template {
	if query == "" {
		return s.store.List()
	}
	return s.store.Search(query)
}

// FindTemplates ranks templates by fuzzy match against title, category,
// tags and description.
func (s *Service) FindTemplates(query string) []*models.Template {
	templates := s.store.List()
	if query == "" {
		return templates
	}

	searchStrings := make([]string, len(templates))
	for i, t := range templates {
		searchStrings[i] = fmt.Sprintf("%s %s %s %s",
			t.Title,
			t.Category,
			strings.Join(t.Tags, " "),
			t.Description)
	}

	matches := fuzzy.Find(query, searchStrings)
	results := make([]*models.Template, 0, len(matches))
	for _, match := range matches {
		results = append(results, templates[match.Index])
	}
	return results
}

// GetTemplate returns a template by id
func (s *Service) GetTemplate(id string) (*models.Template, error) {
	return s.store.Get(id)
}

// Categories returns the sorted category names
func (s *Service) Categories() []string {
	return s.store.Categories()
}

// CreateTemplate validates and stores a new template
func (s *Service) CreateTemplate(in models.CreateInput) (*models.Template, error) {
	result := validation.ValidateCreate(in)
	if !result.Valid {
		return nil, result.ToAppError()
	}
	s.logWarnings(result)
	return s.store.Create(in)
}

// UpdateTemplate validates and applies a partial update
func (s *Service) UpdateTemplate(in models.UpdateInput) (*models.Template, error) {
	result := validation.ValidateUpdate(in)
	if !result.Valid {
		return nil, result.ToAppError()
	}
	s.logWarnings(result)
	return s.store.Update(in)
}

// DeleteTemplate removes a template
func (s *Service) DeleteTemplate(id string) error {
	return s.store.Delete(id)
}

func (s *Service) logWarnings(result *validation.ValidationResult) {
	for _, w := range result.Warnings {
		s.logger.Warn().Str("field", w.Field).Msg(w.Message)
	}
}

// Import appends the templates of an export document
func (s *Service) Import(path string) ([]*models.Template, error) {
	done := logging.LogOperationStart(s.logger, "import")
	defer done()
	return s.store.Import(path)
}

// Export writes an export document to path
func (s *Service) Export(path string, format storage.Format) error {
	done := logging.LogOperationStart(s.logger, "export")
	defer done()
	return s.store.Export(path, format)
}

// WriteLibrary writes an export document to w
func (s *Service) WriteLibrary(w io.Writer, format storage.Format) error {
	return s.store.WriteLibrary(w, format)
}

// ForceSync reloads the library from disk
func (s *Service) ForceSync() error {
	return s.store.ForceSync()
}

// WatchOptions selects the change triggers for Watch.
type WatchOptions struct {
	Notify       bool
	PollInterval time.Duration
	Debounce     time.Duration
}

// Watch keeps the library in step with writes from other instances until
// ctx is done.
func (s *Service) Watch(ctx context.Context, opts WatchOptions) error {
	triggers := watch.Triggers(s.store.Path(), opts.Notify, opts.PollInterval)
	if len(triggers) == 0 {
		return errors.ValidationError("no change trigger enabled")
	}

	observer := watch.New(func(source string) {
		if _, err := s.store.Sync(); err != nil {
			s.logger.Warn().Err(err).Str("trigger", source).Msg("Sync failed")
		}
	}, triggers,
		watch.WithDebounce(opts.Debounce),
		watch.WithSuppress(s.store.Syncing),
	)

	s.logger.Info().Str("path", s.store.Path()).Int("triggers", len(triggers)).Msg("Watching template file")
	return observer.Run(ctx)
}

func (s *Service) resolver(collector resolver.Collector, extra resolver.Notifier) *resolver.Resolver {
	notifier := s.notifier
	if extra != nil {
		notifier = resolver.MultiNotifier{s.notifier, extra}
	}
	return resolver.New(collector, notifier, resolver.WithClock(s.now))
}

// Preview resolves a template against rc without inserting it or
// counting a use.
func (s *Service) Preview(ctx context.Context, id string, rc resolver.Context, collector resolver.Collector) (resolver.Result, error) {
	return s.PreviewNotify(ctx, id, rc, collector, nil)
}

// PreviewNotify is Preview with advisories also sent to n, for callers
// that report them per request.
func (s *Service) PreviewNotify(ctx context.Context, id string, rc resolver.Context, collector resolver.Collector, n resolver.Notifier) (resolver.Result, error) {
	t, err := s.store.Get(id)
	if err != nil {
		return resolver.Result{}, err
	}
	return s.resolver(collector, n).ResolveTemplate(ctx, t, rc), nil
}

// ResolveAndInsert resolves a template and inserts the text at the
// surface's caret. A cancelled resolution inserts nothing. Insertion
// failures are returned to the caller.
func (s *Service) ResolveAndInsert(ctx context.Context, id string, surface editor.Surface, collector resolver.Collector) (resolver.Result, error) {
	res, err := s.Preview(ctx, id, surface.Context(), collector)
	if err != nil || res.Cancelled {
		return res, err
	}

	if err := surface.Insert(res.Content); err != nil {
		return res, err
	}
	s.recordUse(id)
	return res, nil
}

// ResolveToClipboard resolves a template and copies the text. A cancelled
// resolution copies nothing.
func (s *Service) ResolveToClipboard(ctx context.Context, id string, rc resolver.Context, collector resolver.Collector) (resolver.Result, error) {
	res, err := s.Preview(ctx, id, rc, collector)
	if err != nil || res.Cancelled {
		return res, err
	}

	if err := s.clipboard.Write(res.Content); err != nil {
		return res, errors.ClipboardError(err)
	}
	s.recordUse(id)
	return res, nil
}

// ReadClipboard returns the clipboard text, for use as a selection.
func (s *Service) ReadClipboard() (string, error) {
	text, err := s.clipboard.Read()
	if err != nil {
		return "", errors.ClipboardError(err)
	}
	return text, nil
}

// recordUse bumps the usage count. The text has already been delivered, so
// a failure here is only logged.
func (s *Service) recordUse(id string) {
	if _, err := s.store.IncrementUsage(id); err != nil {
		s.logger.Warn().Err(err).Str("id", id).Msg("Failed to record template use")
	}
}
