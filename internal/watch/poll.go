package watch

import (
	"context"
	"os"
	"time"
)

// DefaultPollInterval is how often PollTrigger stats the file.
const DefaultPollInterval = time.Second

// PollTrigger fires when the file's modification time differs from the
// previous poll. It backs up FSNotifyTrigger on filesystems that drop
// notifications.
type PollTrigger struct {
	Path     string
	Interval time.Duration
}

// Name implements Trigger.
func (p PollTrigger) Name() string { return "poll" }

// Run implements Trigger.
func (p PollTrigger) Run(ctx context.Context, fire func()) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	last := modTime(p.Path)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			current := modTime(p.Path)
			if !current.Equal(last) {
				last = current
				fire()
			}
		}
	}
}

func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
