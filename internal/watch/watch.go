// Package watch reports changes to a single file. Several triggers can feed
// one Observer; their events are merged and debounced before the change
// callback runs.
package watch

import (
	"context"
	"sync"
	"time"

	"github.com/dpshade/prompt-manager/internal/logging"
	"github.com/rs/zerolog"
)

// DefaultDebounce is the quiet period before a burst of events is handled.
const DefaultDebounce = 100 * time.Millisecond

// Trigger produces change signals until ctx is done.
type Trigger interface {
	Name() string
	Run(ctx context.Context, fire func()) error
}

// Observer merges the signals of its triggers.
type Observer struct {
	triggers []Trigger
	debounce time.Duration
	onChange func(source string)
	suppress func() bool
	logger   zerolog.Logger
}

// Option configures an Observer.
type Option func(*Observer)

// WithDebounce sets the quiet period.
func WithDebounce(d time.Duration) Option {
	return func(o *Observer) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// WithSuppress drops signals that arrive while suppress returns true.
func WithSuppress(suppress func() bool) Option {
	return func(o *Observer) { o.suppress = suppress }
}

// New creates an Observer that calls onChange with the name of the trigger
// that fired last in each burst.
func New(onChange func(source string), triggers []Trigger, opts ...Option) *Observer {
	o := &Observer{
		triggers: triggers,
		debounce: DefaultDebounce,
		onChange: onChange,
		suppress: func() bool { return false },
		logger:   logging.GetLogger("watch"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run blocks until ctx is done. A trigger that fails is logged and the
// others keep running.
func (o *Observer) Run(ctx context.Context) error {
	signals := make(chan string, 16)

	var wg sync.WaitGroup
	for _, t := range o.triggers {
		wg.Add(1)
		go func(t Trigger) {
			defer wg.Done()
			fire := func() {
				select {
				case signals <- t.Name():
				default:
					// A signal is already queued.
				}
			}
			if err := t.Run(ctx, fire); err != nil && ctx.Err() == nil {
				o.logger.Warn().Err(err).Str("trigger", t.Name()).Msg("Trigger stopped")
			}
		}(t)
	}
	defer wg.Wait()

	timer := time.NewTimer(o.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	pending := ""
	for {
		select {
		case <-ctx.Done():
			return nil

		case source := <-signals:
			if o.suppress() {
				o.logger.Trace().Str("trigger", source).Msg("Ignoring own write")
				continue
			}
			if pending == "" {
				timer.Reset(o.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(o.debounce)
			}
			pending = source

		case <-timer.C:
			source := pending
			pending = ""
			o.logger.Debug().Str("trigger", source).Msg("File changed")
			o.onChange(source)
		}
	}
}

// Triggers returns the triggers for path. The OS watch is included when
// useNotify is set and polling when interval is positive.
func Triggers(path string, useNotify bool, interval time.Duration) []Trigger {
	var triggers []Trigger
	if useNotify {
		triggers = append(triggers, FSNotifyTrigger{Path: path})
	}
	if interval > 0 {
		triggers = append(triggers, PollTrigger{Path: path, Interval: interval})
	}
	return triggers
}
