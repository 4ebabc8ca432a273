package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpshade/prompt-manager/internal/clipboard"
	"github.com/dpshade/prompt-manager/internal/models"
	"github.com/dpshade/prompt-manager/internal/resolver"
	"github.com/dpshade/prompt-manager/internal/service"
	"github.com/dpshade/prompt-manager/internal/storage"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestServer(t *testing.T) (*httptest.Server, *service.Service) {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "prompts.json"), storage.WithSeed(nil))
	require.NoError(t, err)
	svc := service.New(store, service.WithClipboard(&clipboard.Memory{}))

	srv := httptest.NewServer(NewAPIServer(svc, "").Handler())
	t.Cleanup(srv.Close)
	return srv, svc
}

func do(t *testing.T, method, url, body string) (*http.Response, envelope) {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func createGreeting(t *testing.T, svc *service.Service) *models.Template {
	t.Helper()
	tpl, err := svc.CreateTemplate(models.CreateInput{
		Title:    "Greeting",
		Content:  "Hi {{name}} from {{filename}}: {{selection}}",
		Category: "General",
		Variables: []models.Variable{
			{Name: "name", Type: models.VariableText, DefaultValue: "Bob"},
		},
	})
	require.NoError(t, err)
	return tpl
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, env := do(t, http.MethodGet, srv.URL+"/api/v1/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)
	assert.Contains(t, string(env.Data), `"status": "ok"`)
}

func TestTemplateCRUD(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, env := do(t, http.MethodPost, srv.URL+"/api/v1/templates",
		`{"title":"Note","content":"Note: {{text}}","category":"Writing"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.Template
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.NotEmpty(t, created.ID)

	resp, env = do(t, http.MethodGet, srv.URL+"/api/v1/templates/"+created.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got models.Template
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "Note", got.Title)

	resp, env = do(t, http.MethodPut, srv.URL+"/api/v1/templates/"+created.ID, `{"title":"Memo"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "Memo", got.Title)
	assert.Equal(t, "Writing", got.Category)

	resp, _ = do(t, http.MethodDelete, srv.URL+"/api/v1/templates/"+created.ID, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = do(t, http.MethodGet, srv.URL+"/api/v1/templates/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, env.Success)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestCreateRejectsInvalidTemplate(t *testing.T) {
	srv, svc := newTestServer(t)

	resp, env := do(t, http.MethodPost, srv.URL+"/api/v1/templates", `{"title":"","category":"x"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Empty(t, svc.ListTemplates(""))

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/v1/templates", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListFiltersByCategoryAndQuery(t *testing.T) {
	srv, svc := newTestServer(t)
	createGreeting(t, svc)
	_, err := svc.CreateTemplate(models.CreateInput{Title: "Fix", Content: "fix it", Category: "Debugging"})
	require.NoError(t, err)

	var list []models.Template
	_, env := do(t, http.MethodGet, srv.URL+"/api/v1/templates?category=Debugging", "")
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Fix", list[0].Title)

	_, env = do(t, http.MethodGet, srv.URL+"/api/v1/templates?q=greet", "")
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Greeting", list[0].Title)

	_, env = do(t, http.MethodGet, srv.URL+"/api/v1/templates?q=nothing-matches", "")
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestResolveUsesPresetsAndContext(t *testing.T) {
	srv, svc := newTestServer(t)
	tpl := createGreeting(t, svc)

	resp, env := do(t, http.MethodPost, srv.URL+"/api/v1/templates/"+tpl.ID+"/resolve",
		`{"selection":"x := 1","untitled":"3","values":{"name":"Ann"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res ResolveResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "Hi Ann from unsaved-3: x := 1", res.Content)
	assert.Equal(t, 3, res.Substituted)

	got, err := svc.GetTemplate(tpl.ID)
	require.NoError(t, err)
	assert.Zero(t, got.UsageCount)
}

func TestResolveFallsBackWithoutBody(t *testing.T) {
	srv, svc := newTestServer(t)
	tpl := createGreeting(t, svc)

	resp, env := do(t, http.MethodPost, srv.URL+"/api/v1/templates/"+tpl.ID+"/resolve", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res ResolveResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "Hi Bob from : ", res.Content)
}

func TestResolveRejectsTwoFiles(t *testing.T) {
	srv, svc := newTestServer(t)
	tpl := createGreeting(t, svc)

	resp, _ := do(t, http.MethodPost, srv.URL+"/api/v1/templates/"+tpl.ID+"/resolve",
		`{"untitled":"1","uri":"git://a/b"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExportYAML(t *testing.T) {
	srv, svc := newTestServer(t)
	createGreeting(t, svc)

	resp, err := http.Get(srv.URL + "/api/v1/export?format=yaml")
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/yaml", resp.Header.Get("Content-Type"))

	lib, err := storage.DecodeLibrary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, lib.Prompts, 1)
	assert.Equal(t, []string{"General"}, lib.Categories)
}

func TestCategoriesAndSync(t *testing.T) {
	srv, svc := newTestServer(t)
	createGreeting(t, svc)

	_, env := do(t, http.MethodGet, srv.URL+"/api/v1/categories", "")
	assert.JSONEq(t, `["General"]`, string(env.Data))

	resp, env := do(t, http.MethodPost, srv.URL+"/api/v1/sync", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"templates":1}`, string(env.Data))
}

func TestUnknownMethodIsRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodPatch, srv.URL+"/api/v1/health", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestOpenAPISpecListsRoutes(t *testing.T) {
	spec := getOpenAPISpec()
	paths := spec["paths"].(map[string]map[string]interface{})

	assert.Contains(t, paths, "/templates/{id}/resolve")
	assert.Contains(t, paths["/templates/{id}"], "put")
	assert.Len(t, paths, 7)
}

func TestResolveReportsAdvisories(t *testing.T) {
	srv, svc := newTestServer(t)
	tpl := createGreeting(t, svc)

	resp, env := do(t, http.MethodPost, srv.URL+"/api/v1/templates/"+tpl.ID+"/resolve", `{"values":{"name":"Ann"}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res ResolveResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, []string{resolver.EmptySelectionAdvisory}, res.Warnings)
	assert.Empty(t, res.Errors)
}
