package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpshade/prompt-manager/internal/clipboard"
	"github.com/dpshade/prompt-manager/internal/editor"
	apperrors "github.com/dpshade/prompt-manager/internal/errors"
	"github.com/dpshade/prompt-manager/internal/models"
	"github.com/dpshade/prompt-manager/internal/resolver"
	"github.com/dpshade/prompt-manager/internal/storage"
)

type fixture struct {
	svc   *Service
	store *storage.Store
	clip  *clipboard.Memory
	notes *resolver.RecordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "prompts.json"), storage.WithSeed(nil))
	require.NoError(t, err)

	f := &fixture{
		store: store,
		clip:  &clipboard.Memory{},
		notes: &resolver.RecordingNotifier{},
	}
	f.svc = New(store,
		WithClipboard(f.clip),
		WithNotifier(f.notes),
		WithClock(func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }),
	)
	return f
}

func (f *fixture) greeting(t *testing.T) *models.Template {
	t.Helper()
	tpl, err := f.svc.CreateTemplate(models.CreateInput{
		Title:    "Greeting",
		Content:  "Hi {{name}}, selection={{selection}}",
		Category: "General",
		Variables: []models.Variable{
			{Name: "name", Type: models.VariableText, DefaultValue: "Bob"},
		},
	})
	require.NoError(t, err)
	return tpl
}

func TestCreateTemplateValidates(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateTemplate(models.CreateInput{Title: "", Category: "x"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
	assert.Empty(t, f.svc.ListTemplates(""))
}

func TestUpdateTemplateValidates(t *testing.T) {
	f := newFixture(t)
	tpl := f.greeting(t)

	empty := ""
	_, err := f.svc.UpdateTemplate(models.UpdateInput{ID: tpl.ID, Category: &empty})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))

	fav := true
	updated, err := f.svc.UpdateTemplate(models.UpdateInput{ID: tpl.ID, IsFavorite: &fav})
	require.NoError(t, err)
	assert.True(t, updated.IsFavorite)
}

func TestResolveAndInsert(t *testing.T) {
	f := newFixture(t)
	tpl := f.greeting(t)

	var out bytes.Buffer
	surface := &editor.StreamSurface{W: &out, Selection: "X", File: resolver.UntitledFile("1")}

	res, err := f.svc.ResolveAndInsert(context.Background(), tpl.ID, surface, resolver.NoInputCollector)
	require.NoError(t, err)
	assert.Equal(t, "Hi Bob, selection=X", out.String())
	assert.Equal(t, 2, res.Substituted)

	got, err := f.svc.GetTemplate(tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.UsageCount)
}

func TestResolveAndInsertIntoFile(t *testing.T) {
	f := newFixture(t)
	tpl, err := f.svc.CreateTemplate(models.CreateInput{
		Title: "Header", Content: "// {{filename}}\n", Category: "Code",
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "main.go")
	require.NoError(t, os.WriteFile(path, []byte("package main\n"), 0644))
	surface, err := editor.OpenFile(path)
	require.NoError(t, err)
	surface.Caret = &editor.Caret{Line: 1, Col: 1}

	_, err = f.svc.ResolveAndInsert(context.Background(), tpl.ID, surface, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "// main.go\npackage main\n", string(data))
}

func TestCancelledResolutionInsertsNothing(t *testing.T) {
	f := newFixture(t)
	tpl := f.greeting(t)

	var out bytes.Buffer
	surface := &editor.StreamSurface{W: &out}
	abort := resolver.CollectorFunc(func(context.Context, resolver.Request) (resolver.Outcome, error) {
		return resolver.Abort(), nil
	})

	res, err := f.svc.ResolveAndInsert(context.Background(), tpl.ID, surface, abort)
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Empty(t, out.String())

	got, err := f.svc.GetTemplate(tpl.ID)
	require.NoError(t, err)
	assert.Zero(t, got.UsageCount)
}

type brokenSurface struct{}

func (brokenSurface) Context() resolver.Context { return resolver.Context{} }
func (brokenSurface) Insert(string) error {
	return apperrors.InsertError("gone", errors.New("buffer closed"))
}

func TestInsertFailureReachesCaller(t *testing.T) {
	f := newFixture(t)
	tpl := f.greeting(t)

	_, err := f.svc.ResolveAndInsert(context.Background(), tpl.ID, brokenSurface{}, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInsertFailed))

	got, err := f.svc.GetTemplate(tpl.ID)
	require.NoError(t, err)
	assert.Zero(t, got.UsageCount)
}

func TestResolveToClipboard(t *testing.T) {
	f := newFixture(t)
	tpl := f.greeting(t)

	_, err := f.svc.ResolveToClipboard(context.Background(), tpl.ID,
		resolver.Context{Selection: "sel"}, resolver.PresetCollector{"name": "Ann"})
	require.NoError(t, err)
	assert.Equal(t, "Hi Ann, selection=sel", f.clip.Text)

	f.clip.Err = errors.New("no display")
	_, err = f.svc.ResolveToClipboard(context.Background(), tpl.ID, resolver.Context{}, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeClipboardFailure))
}

func TestPreviewDoesNotCountUse(t *testing.T) {
	f := newFixture(t)
	tpl := f.greeting(t)

	res, err := f.svc.Preview(context.Background(), tpl.ID, resolver.Context{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hi Bob, selection=", res.Content)
	assert.Len(t, f.notes.Warnings(), 1, "empty selection advisory")

	got, err := f.svc.GetTemplate(tpl.ID)
	require.NoError(t, err)
	assert.Zero(t, got.UsageCount)

	_, err = f.svc.Preview(context.Background(), "missing", resolver.Context{}, nil)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestFindTemplatesIsFuzzy(t *testing.T) {
	f := newFixture(t)
	for _, title := range []string{"Code Review", "Bug Fix", "Explain Code"} {
		_, err := f.svc.CreateTemplate(models.CreateInput{Title: title, Content: "x", Category: "Dev"})
		require.NoError(t, err)
	}

	results := f.svc.FindTemplates("cdrvw")
	require.NotEmpty(t, results)
	assert.Equal(t, "Code Review", results[0].Title)

	assert.Len(t, f.svc.FindTemplates(""), 3)
	assert.Len(t, f.svc.SearchTemplates("code"), 2)
}

func TestWatchPicksUpOtherInstance(t *testing.T) {
	f := newFixture(t)
	other, err := storage.Open(f.store.Path(), storage.WithSeed(nil))
	require.NoError(t, err)

	changed := make(chan storage.ChangeEvent, 1)
	f.store.OnChange(func(ev storage.ChangeEvent) {
		select {
		case changed <- ev:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- f.svc.Watch(ctx, WatchOptions{PollInterval: 20 * time.Millisecond, Debounce: 10 * time.Millisecond})
	}()
	time.Sleep(50 * time.Millisecond)

	_, err = other.Create(models.CreateInput{Title: "Elsewhere", Content: "x", Category: "Dev"})
	require.NoError(t, err)
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(f.store.Path(), later, later))

	select {
	case ev := <-changed:
		assert.Equal(t, storage.ReasonExternal, ev.Reason)
	case <-time.After(2 * time.Second):
		t.Fatal("no change event")
	}
	assert.Len(t, f.svc.ListTemplates(""), 1)

	cancel()
	assert.NoError(t, <-done)
}

func TestWatchNeedsATrigger(t *testing.T) {
	f := newFixture(t)
	err := f.svc.Watch(context.Background(), WatchOptions{})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
}

func TestPreviewNotifyFansOutAdvisories(t *testing.T) {
	f := newFixture(t)
	tpl := f.greeting(t)

	extra := &resolver.RecordingNotifier{}
	_, err := f.svc.PreviewNotify(context.Background(), tpl.ID, resolver.Context{}, nil, extra)
	require.NoError(t, err)

	assert.Equal(t, []string{resolver.EmptySelectionAdvisory}, extra.Warnings())
	assert.Equal(t, []string{resolver.EmptySelectionAdvisory}, f.notes.Warnings())
}
