// Package resolver turns template content into final text.
//
// Resolution runs in two ordered passes. The system pass fills
// {{selection}}, {{filename}} and {{filepath}} from the editing context and
// always runs. The user pass collects a value for every declared variable
// whose type is not a system type, in declaration order, and only runs when
// such declarations exist.
//
// A single field never fails the resolution: skipped, invalid or broken
// input falls back to the declaration's default. Abandoning the whole
// collection yields an empty, cancelled Result which callers must not
// insert or copy.
package resolver

import (
	"context"
	"errors"
	"time"

	"github.com/dpshade/prompt-manager/internal/logging"
	"github.com/dpshade/prompt-manager/internal/models"
	"github.com/rs/zerolog"
)

const defaultMaxAttempts = 3

// errAborted stops the user pass when the whole collection is cancelled.
var errAborted = errors.New("collection cancelled")

// Result is the outcome of one resolution.
type Result struct {
	Content string
	// Substituted counts the distinct placeholders that were replaced.
	Substituted int
	// Cancelled is set when the user abandoned the collection. Content is
	// empty in that case.
	Cancelled bool
	// Values holds the user variable values that were chosen.
	Values map[string]string
}

// Resolver runs the resolution pipeline. It keeps no state between calls.
type Resolver struct {
	collector   Collector
	notifier    Notifier
	now         func() time.Time
	maxAttempts int
	logger      zerolog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock sets the clock used for date defaults.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithMaxAttempts caps how often an invalid value is re-prompted.
func WithMaxAttempts(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithLogger overrides the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// New creates a Resolver. A nil collector skips every field and a nil
// notifier discards advisories.
func New(collector Collector, notifier Notifier, opts ...Option) *Resolver {
	if collector == nil {
		collector = NoInputCollector
	}
	if notifier == nil {
		notifier = discardNotifier{}
	}
	r := &Resolver{
		collector:   collector,
		notifier:    notifier,
		now:         time.Now,
		maxAttempts: defaultMaxAttempts,
		logger:      logging.GetLogger("resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve runs both passes over content.
func (r *Resolver) Resolve(ctx context.Context, content string, vars []models.Variable, rc Context) Result {
	out, substituted := ResolveSystem(content, rc, r.notifier)

	if !hasUserVariables(vars) {
		r.logger.Debug().Int("substituted", substituted).Msg("No user variables, system pass only")
		return Result{Content: out, Substituted: substituted}
	}

	out, values, n, err := r.resolveUser(ctx, out, vars)
	if errors.Is(err, errAborted) {
		r.logger.Info().Msg("Variable collection cancelled")
		return Result{Cancelled: true}
	}

	return Result{
		Content:     out,
		Substituted: substituted + n,
		Values:      values,
	}
}

// ResolveTemplate resolves a stored template.
func (r *Resolver) ResolveTemplate(ctx context.Context, t *models.Template, rc Context) Result {
	return r.Resolve(ctx, t.Content, t.Variables, rc)
}

func hasUserVariables(vars []models.Variable) bool {
	for _, v := range vars {
		if !v.Type.IsSystem() {
			return true
		}
	}
	return false
}
