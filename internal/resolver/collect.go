package resolver

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dpshade/prompt-manager/internal/models"
)

// Request describes one value the collector is asked for.
type Request struct {
	Name        string
	Type        models.VariableType
	Description string
	Placeholder string
	Default     string
	Required    bool
	Options     []string
	// Attempt starts at 1 and grows when earlier input was rejected.
	Attempt int
	// Problem explains why the previous attempt was rejected.
	Problem string
}

// OutcomeKind tells the resolver what the collector did with a request.
type OutcomeKind int

const (
	// Skipped means no value was supplied for this field only.
	Skipped OutcomeKind = iota
	// Supplied means Outcome.Value holds the user's input.
	Supplied
	// Aborted means the whole collection was abandoned.
	Aborted
)

// Outcome is the result of collecting one value.
type Outcome struct {
	Kind  OutcomeKind
	Value string
}

// Value returns an outcome carrying v.
func Value(v string) Outcome { return Outcome{Kind: Supplied, Value: v} }

// Skip returns the "no value supplied" outcome.
func Skip() Outcome { return Outcome{Kind: Skipped} }

// Abort returns the "cancel everything" outcome.
func Abort() Outcome { return Outcome{Kind: Aborted} }

// Collector gathers the value of one user variable.
type Collector interface {
	Collect(ctx context.Context, req Request) (Outcome, error)
}

// CollectorFunc adapts a function to Collector.
type CollectorFunc func(ctx context.Context, req Request) (Outcome, error)

// Collect calls f.
func (f CollectorFunc) Collect(ctx context.Context, req Request) (Outcome, error) {
	return f(ctx, req)
}

// PresetCollector answers from a fixed map. Names without an entry are
// skipped, so they fall back to their defaults.
type PresetCollector map[string]string

// Collect implements Collector.
func (p PresetCollector) Collect(_ context.Context, req Request) (Outcome, error) {
	if v, ok := p[req.Name]; ok {
		return Value(v), nil
	}
	return Skip(), nil
}

// NoInputCollector skips every field.
var NoInputCollector Collector = PresetCollector(nil)

// Notifier surfaces non-blocking advisories.
type Notifier interface {
	Warn(msg string)
	Error(msg string)
}

type discardNotifier struct{}

func (discardNotifier) Warn(string)  {}
func (discardNotifier) Error(string) {}

// LogNotifier writes advisories to a zerolog logger.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Warn implements Notifier.
func (l LogNotifier) Warn(msg string) { l.Logger.Warn().Msg(msg) }

// Error implements Notifier.
func (l LogNotifier) Error(msg string) { l.Logger.Error().Msg(msg) }

// RecordingNotifier keeps every advisory it receives.
type RecordingNotifier struct {
	mu       sync.Mutex
	warnings []string
	errors   []string
}

// Warn implements Notifier.
func (r *RecordingNotifier) Warn(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, msg)
}

// Error implements Notifier.
func (r *RecordingNotifier) Error(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
}

// Warnings returns a copy of the recorded warnings.
func (r *RecordingNotifier) Warnings() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.warnings...)
}

// Errors returns a copy of the recorded errors.
func (r *RecordingNotifier) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errors...)
}

// MultiNotifier fans advisories out to several notifiers.
type MultiNotifier []Notifier

// Warn implements Notifier.
func (m MultiNotifier) Warn(msg string) {
	for _, n := range m {
		n.Warn(msg)
	}
}

// Error implements Notifier.
func (m MultiNotifier) Error(msg string) {
	for _, n := range m {
		n.Error(msg)
	}
}
