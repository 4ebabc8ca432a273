package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chanTrigger fires whenever a value is sent on its channel.
type chanTrigger struct {
	name string
	ch   chan struct{}
}

func (c chanTrigger) Name() string { return c.name }

func (c chanTrigger) Run(ctx context.Context, fire func()) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.ch:
			fire()
		}
	}
}

type recorder struct {
	mu      sync.Mutex
	sources []string
}

func (r *recorder) onChange(source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append(r.sources, source)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sources)
}

func runObserver(t *testing.T, o *Observer) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = o.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestBurstIsDebounced(t *testing.T) {
	a := chanTrigger{name: "a", ch: make(chan struct{})}
	b := chanTrigger{name: "b", ch: make(chan struct{})}
	rec := &recorder{}
	runObserver(t, New(rec.onChange, []Trigger{a, b}, WithDebounce(50*time.Millisecond)))

	a.ch <- struct{}{}
	b.ch <- struct{}{}
	a.ch <- struct{}{}

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 1, rec.count())

	b.ch <- struct{}{}
	require.Eventually(t, func() bool { return rec.count() == 2 }, time.Second, 10*time.Millisecond)
}

func TestSuppressedSignalsAreDropped(t *testing.T) {
	a := chanTrigger{name: "a", ch: make(chan struct{})}
	var busy atomic.Bool
	busy.Store(true)
	rec := &recorder{}
	runObserver(t, New(rec.onChange, []Trigger{a},
		WithDebounce(20*time.Millisecond),
		WithSuppress(busy.Load),
	))

	a.ch <- struct{}{}
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, rec.count())

	busy.Store(false)
	a.ch <- struct{}{}
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 10*time.Millisecond)
}

func TestPollTriggerFiresOnMtimeChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0644))

	rec := &recorder{}
	runObserver(t, New(rec.onChange,
		[]Trigger{PollTrigger{Path: path, Interval: 20 * time.Millisecond}},
		WithDebounce(10*time.Millisecond),
	))

	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, rec.count(), "unchanged file does not fire")

	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))
	require.Eventually(t, func() bool { return rec.count() >= 1 }, time.Second, 10*time.Millisecond)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, "poll", rec.sources[0])
}

func TestFSNotifyTriggerFiresForTargetOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0644))

	rec := &recorder{}
	runObserver(t, New(rec.onChange, []Trigger{FSNotifyTrigger{Path: path}}, WithDebounce(10*time.Millisecond)))
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0644))
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, rec.count())

	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"x"}]`), 0644))
	require.Eventually(t, func() bool { return rec.count() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestTriggers(t *testing.T) {
	assert.Len(t, Triggers("/tmp/p.json", true, time.Second), 2)
	assert.Len(t, Triggers("/tmp/p.json", false, time.Second), 1)
	assert.Empty(t, Triggers("/tmp/p.json", false, 0))
}
