package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/newswire/internal/domain"
	"github.com/phrazzld/newswire/internal/mocks"
	"github.com/phrazzld/newswire/internal/scraper"
	"github.com/phrazzld/newswire/internal/task"
)

// fakeEngine implements TaskEngine with function fields, defaulting to a
// successful enqueue of a fixed handle.
type fakeEngine struct {
	handle     task.Handle
	enqueueErr error

	StatusFn func(handle task.Handle) (*task.JobStatus, error)
	CancelFn func(handle task.Handle) error
	HealthFn func(ctx context.Context) (*task.Outcome, error)

	gotURL     string
	gotSchema  string
	gotURLs    []string
	gotIDs     []uuid.UUID
	gotPending bool
	gotLimit   int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{handle: uuid.New()}
}

func (f *fakeEngine) EnqueueProcess(url, schemaName string) (task.Handle, error) {
	f.gotURL, f.gotSchema = url, schemaName
	return f.handle, f.enqueueErr
}

func (f *fakeEngine) EnqueueProcessBatch(urls []string, schemaName string) (task.Handle, error) {
	f.gotURLs, f.gotSchema = urls, schemaName
	return f.handle, f.enqueueErr
}

func (f *fakeEngine) EnqueuePublish(documentID uuid.UUID) (task.Handle, error) {
	f.gotIDs = []uuid.UUID{documentID}
	return f.handle, f.enqueueErr
}

func (f *fakeEngine) EnqueuePublishBatch(documentIDs []uuid.UUID, publishPending bool, limit int) (task.Handle, error) {
	f.gotIDs, f.gotPending, f.gotLimit = documentIDs, publishPending, limit
	return f.handle, f.enqueueErr
}

func (f *fakeEngine) EnqueueProcessAndPublish(url, schemaName string) (task.Handle, error) {
	f.gotURL, f.gotSchema = url, schemaName
	return f.handle, f.enqueueErr
}

func (f *fakeEngine) Status(handle task.Handle) (*task.JobStatus, error) {
	if f.StatusFn != nil {
		return f.StatusFn(handle)
	}
	return nil, task.ErrUnknownHandle
}

func (f *fakeEngine) Cancel(handle task.Handle) error {
	if f.CancelFn != nil {
		return f.CancelFn(handle)
	}
	return nil
}

func (f *fakeEngine) HealthCheck(ctx context.Context) (*task.Outcome, error) {
	if f.HealthFn != nil {
		return f.HealthFn(ctx)
	}
	return &task.Outcome{Status: task.OutcomeHealthy}, nil
}

func testSources() SourceDirectory {
	registry := scraper.NewRegistry()
	registry.Register(&mocks.MockExtractor{Source: "g1", Domains: []string{"g1.globo.com"}})
	return registry
}

func newTaskRouter(engine TaskEngine) http.Handler {
	handler := NewTaskHandler(engine, testSources())
	router := chi.NewRouter()
	router.Post("/api/process", handler.Process)
	router.Post("/api/process/batch", handler.ProcessBatch)
	router.Post("/api/process-and-publish", handler.ProcessAndPublish)
	router.Post("/api/publish", handler.Publish)
	router.Post("/api/publish/batch", handler.PublishBatch)
	router.Get("/api/tasks/{taskID}", handler.GetTask)
	router.Delete("/api/tasks/{taskID}", handler.CancelTask)
	return router
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestTaskHandler_Process(t *testing.T) {
	engine := newFakeEngine()
	router := newTaskRouter(engine)

	rec := doJSON(t, router, http.MethodPost, "/api/process",
		`{"url": "https://g1.globo.com/news/1", "schema_name": "g1"}`)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp TaskAcceptedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, engine.handle.String(), resp.TaskID)
	assert.Equal(t, task.TypeProcess, resp.Type)
	assert.Equal(t, string(task.StatusQueued), resp.State)

	assert.Equal(t, "https://g1.globo.com/news/1", engine.gotURL)
	assert.Equal(t, "g1", engine.gotSchema)
}

func TestTaskHandler_ProcessInvalidBody(t *testing.T) {
	router := newTaskRouter(newFakeEngine())

	rec := doJSON(t, router, http.MethodPost, "/api/process", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskHandler_ProcessMissingURL(t *testing.T) {
	router := newTaskRouter(newFakeEngine())

	rec := doJSON(t, router, http.MethodPost, "/api/process", `{"schema_name": "g1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Validation error")
}

func TestTaskHandler_ProcessSchemaKnownByFileName(t *testing.T) {
	// The schema listing reports file names; those must be accepted even
	// when the schema's source name differs.
	registry := scraper.NewRegistry()
	registry.Register(&mocks.MockExtractor{
		Source:  "g1",
		Schema:  "g1-noticias",
		Domains: []string{"g1.globo.com"},
	})
	engine := newFakeEngine()
	handler := NewTaskHandler(engine, registry)
	router := chi.NewRouter()
	router.Post("/api/process", handler.Process)

	rec := doJSON(t, router, http.MethodPost, "/api/process",
		`{"url": "https://g1.globo.com/news/1", "schema_name": "g1-noticias"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "g1-noticias", engine.gotSchema)
}

func TestTaskHandler_ProcessUnknownSchema(t *testing.T) {
	router := newTaskRouter(newFakeEngine())

	rec := doJSON(t, router, http.MethodPost, "/api/process",
		`{"url": "https://g1.globo.com/news/1", "schema_name": "nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Unknown schema")
}

func TestTaskHandler_ProcessQueueFull(t *testing.T) {
	engine := newFakeEngine()
	engine.enqueueErr = task.ErrQueueFull
	router := newTaskRouter(engine)

	rec := doJSON(t, router, http.MethodPost, "/api/process",
		`{"url": "https://g1.globo.com/news/1"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestTaskHandler_ProcessEngineStopped(t *testing.T) {
	engine := newFakeEngine()
	engine.enqueueErr = task.ErrEngineStopped
	router := newTaskRouter(engine)

	rec := doJSON(t, router, http.MethodPost, "/api/process",
		`{"url": "https://g1.globo.com/news/1"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestTaskHandler_ProcessBatch(t *testing.T) {
	engine := newFakeEngine()
	router := newTaskRouter(engine)

	rec := doJSON(t, router, http.MethodPost, "/api/process/batch",
		`{"urls": ["https://g1.globo.com/1", "https://g1.globo.com/2"]}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Len(t, engine.gotURLs, 2)
}

func TestTaskHandler_ProcessBatchEmpty(t *testing.T) {
	router := newTaskRouter(newFakeEngine())

	rec := doJSON(t, router, http.MethodPost, "/api/process/batch", `{"urls": []}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskHandler_ProcessBatchTooLarge(t *testing.T) {
	router := newTaskRouter(newFakeEngine())

	urls := make([]string, 51)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://g1.globo.com/news/%d", i)
	}
	body, err := json.Marshal(map[string]any{"urls": urls})
	require.NoError(t, err)

	rec := doJSON(t, router, http.MethodPost, "/api/process/batch", string(body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskHandler_Publish(t *testing.T) {
	engine := newFakeEngine()
	router := newTaskRouter(engine)

	id := uuid.New()
	rec := doJSON(t, router, http.MethodPost, "/api/publish",
		fmt.Sprintf(`{"document_id": %q}`, id))

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, engine.gotIDs, 1)
	assert.Equal(t, id, engine.gotIDs[0])
}

func TestTaskHandler_PublishInvalidID(t *testing.T) {
	router := newTaskRouter(newFakeEngine())

	rec := doJSON(t, router, http.MethodPost, "/api/publish", `{"document_id": "not-a-uuid"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskHandler_PublishBatchPending(t *testing.T) {
	engine := newFakeEngine()
	router := newTaskRouter(engine)

	rec := doJSON(t, router, http.MethodPost, "/api/publish/batch",
		`{"publish_pending": true, "limit": 25}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, engine.gotPending)
	assert.Equal(t, 25, engine.gotLimit)
	assert.Empty(t, engine.gotIDs)
}

func TestTaskHandler_PublishBatchExplicitIDs(t *testing.T) {
	engine := newFakeEngine()
	router := newTaskRouter(engine)

	rec := doJSON(t, router, http.MethodPost, "/api/publish/batch",
		fmt.Sprintf(`{"document_ids": [%q, %q]}`, uuid.New(), uuid.New()))

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Len(t, engine.gotIDs, 2)
	assert.False(t, engine.gotPending)
}

func TestTaskHandler_PublishBatchModeConflict(t *testing.T) {
	router := newTaskRouter(newFakeEngine())

	rec := doJSON(t, router, http.MethodPost, "/api/publish/batch",
		fmt.Sprintf(`{"document_ids": [%q], "publish_pending": true}`, uuid.New()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "mutually exclusive")
}

func TestTaskHandler_PublishBatchNoMode(t *testing.T) {
	router := newTaskRouter(newFakeEngine())

	rec := doJSON(t, router, http.MethodPost, "/api/publish/batch", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskHandler_PublishBatchLimitOutOfRange(t *testing.T) {
	router := newTaskRouter(newFakeEngine())

	rec := doJSON(t, router, http.MethodPost, "/api/publish/batch",
		`{"publish_pending": true, "limit": 101}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskHandler_GetTask(t *testing.T) {
	engine := newFakeEngine()
	handle := uuid.New()
	engine.StatusFn = func(got task.Handle) (*task.JobStatus, error) {
		require.Equal(t, handle, got)
		return &task.JobStatus{
			Handle:   got,
			Type:     task.TypeProcess,
			State:    task.StatusSucceeded,
			Attempts: 1,
			Result:   &task.Outcome{Status: task.OutcomeSuccess, Title: "Headline"},
		}, nil
	}
	router := newTaskRouter(engine)

	rec := doJSON(t, router, http.MethodGet, "/api/tasks/"+handle.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status task.JobStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, task.StatusSucceeded, status.State)
	require.NotNil(t, status.Result)
	assert.Equal(t, "Headline", status.Result.Title)
}

func TestTaskHandler_GetTaskNotFound(t *testing.T) {
	router := newTaskRouter(newFakeEngine())

	rec := doJSON(t, router, http.MethodGet, "/api/tasks/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskHandler_GetTaskInvalidID(t *testing.T) {
	router := newTaskRouter(newFakeEngine())

	rec := doJSON(t, router, http.MethodGet, "/api/tasks/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskHandler_CancelTask(t *testing.T) {
	engine := newFakeEngine()
	handle := uuid.New()
	router := newTaskRouter(engine)

	rec := doJSON(t, router, http.MethodDelete, "/api/tasks/"+handle.String(), "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), "cancel_requested")
}

func TestTaskHandler_CancelTaskNotFound(t *testing.T) {
	engine := newFakeEngine()
	engine.CancelFn = func(task.Handle) error { return task.ErrUnknownHandle }
	router := newTaskRouter(engine)

	rec := doJSON(t, router, http.MethodDelete, "/api/tasks/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskHandler_CancelTaskAlreadyFinished(t *testing.T) {
	engine := newFakeEngine()
	engine.CancelFn = func(task.Handle) error {
		return fmt.Errorf("%w: job is succeeded", task.ErrJobFinished)
	}
	router := newTaskRouter(engine)

	rec := doJSON(t, router, http.MethodDelete, "/api/tasks/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	engine := newFakeEngine()
	engine.HealthFn = func(context.Context) (*task.Outcome, error) {
		return &task.Outcome{Status: task.OutcomeHealthy, Sources: []string{"g1"}}, nil
	}
	handler := NewHealthHandler(engine)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.Health(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), string(task.OutcomeHealthy))
}

func TestHealthHandler_EngineDown(t *testing.T) {
	engine := newFakeEngine()
	engine.HealthFn = func(context.Context) (*task.Outcome, error) {
		return nil, task.ErrHealthTimeout
	}
	handler := NewHealthHandler(engine)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.Health(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestContentHandler_Stats(t *testing.T) {
	store := mocks.NewMockArticleStore()
	store.Seed(&domain.Article{URL: "https://g1.globo.com/1", Title: "A", Content: "Body."})
	handler := NewContentHandler(store, testSources(), t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	handler.GetStats(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)
}

func TestContentHandler_ListRecentLimitOutOfRange(t *testing.T) {
	handler := NewContentHandler(mocks.NewMockArticleStore(), testSources(), t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/api/articles/recent?limit=500", nil)
	rec := httptest.NewRecorder()
	handler.ListRecent(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContentHandler_ListSources(t *testing.T) {
	handler := NewContentHandler(mocks.NewMockArticleStore(), testSources(), t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/api/sources", nil)
	rec := httptest.NewRecorder()
	handler.ListSources(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "g1")
}

func TestContentHandler_ListRecent(t *testing.T) {
	store := mocks.NewMockArticleStore()
	for i := 0; i < 3; i++ {
		store.Seed(&domain.Article{
			URL:     fmt.Sprintf("https://g1.globo.com/%d", i),
			Title:   "Headline",
			Content: "Body.",
		})
	}
	handler := NewContentHandler(store, testSources(), t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/api/articles/recent?limit=2", nil)
	rec := httptest.NewRecorder()
	handler.ListRecent(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Articles []json.RawMessage `json:"articles"`
		Total    int               `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
}

func TestContentHandler_ListSchemas(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeTestSchemaFile(dir, "g1"))
	handler := NewContentHandler(mocks.NewMockArticleStore(), testSources(), dir)

	req := httptest.NewRequest(http.MethodGet, "/api/schemas", nil)
	rec := httptest.NewRecorder()
	handler.ListSchemas(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "g1")
}

func writeTestSchemaFile(dir, name string) error {
	content := strings.Join([]string{
		"source: " + name,
		"source_config:",
		"  domains:",
		"    - g1.globo.com",
		"",
	}, "\n")
	return os.WriteFile(filepath.Join(dir, name+".yaml"), []byte(content), 0o644)
}
