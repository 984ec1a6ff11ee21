package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/article-summaries/internal/config"
	queuememory "github.com/JakeFAU/article-summaries/internal/queue/memory"
	"github.com/JakeFAU/article-summaries/internal/schema"
	"github.com/JakeFAU/article-summaries/internal/storage/memory"
	"github.com/JakeFAU/article-summaries/internal/summary"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	server *Server
	store  *memory.SummaryStore
	queue  *queuememory.Queue
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	store := memory.NewSummaryStore()
	q := queuememory.NewQueue(10)
	cfg := config.Config{Environment: "dev", Server: config.ServerConfig{RequestTimeoutSeconds: 5}}
	return testEnv{
		server: NewServer(store, q, &fakeClock{now: testNow}, cfg, zap.NewNop()),
		store:  store,
		queue:  q,
	}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func seed(t *testing.T, store *memory.SummaryStore, url string) summary.Summary {
	t.Helper()
	s, err := store.Create(context.Background(), url, testNow)
	require.NoError(t, err)
	return s
}

func TestServer_CreateSummary(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := do(t, env.server.Handler(), http.MethodPost, "/summaries/", `{"url": "https://foo.bar"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	resp := decode[schema.SummaryResponse](t, rec)
	require.Equal(t, int64(1), resp.ID)
	require.Equal(t, "https://foo.bar/", resp.URL)

	stored, err := env.store.Get(context.Background(), resp.ID)
	require.NoError(t, err)
	require.Equal(t, summary.StatusPending, stored.Status)
	require.Empty(t, stored.Summary)
	require.Equal(t, testNow, stored.CreatedAt)

	task, err := env.queue.Dequeue(context.Background())
	require.NoError(t, err)
	require.Equal(t, resp.ID, task.SummaryID)
	require.Equal(t, "https://foo.bar/", task.URL)
	require.Equal(t, testNow.Unix(), task.Submitted)
}

func TestServer_CreateSummary_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		errType string
		loc     []any
	}{
		{name: "empty body", body: "", errType: schema.TypeMissing, loc: []any{"body"}},
		{name: "missing url", body: `{}`, errType: schema.TypeMissing, loc: []any{"body", "url"}},
		{name: "bad scheme", body: `{"url": "invalid://url"}`, errType: schema.TypeURLScheme, loc: []any{"body", "url"}},
		{name: "not a url", body: `{"url": "foo"}`, errType: schema.TypeURLParsing, loc: []any{"body", "url"}},
		{name: "invalid json", body: `{"url":`, errType: schema.TypeJSONInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)
			rec := do(t, env.server.Handler(), http.MethodPost, "/summaries", tt.body)

			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			verr := decode[schema.ValidationError](t, rec)
			require.Len(t, verr.Detail, 1)
			require.Equal(t, tt.errType, verr.Detail[0].Type)
			if tt.loc != nil {
				require.Equal(t, tt.loc, verr.Detail[0].Loc)
			}
			require.Zero(t, env.queue.Len())
			records, err := env.store.List(context.Background())
			require.NoError(t, err)
			require.Empty(t, records)
		})
	}
}

func TestServer_CreateSummary_EnqueueFailureStillCreates(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.ErrorLevel)
	store := memory.NewSummaryStore()
	server := NewServer(store, failingEnqueuer{}, &fakeClock{now: testNow}, config.Config{}, zap.New(core))

	rec := do(t, server.Handler(), http.MethodPost, "/summaries/", `{"url": "https://foo.bar/story"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	stored, err := store.Get(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, summary.StatusPending, stored.Status)
	require.Equal(t, 1, logs.FilterMessage("enqueue summary task failed").Len())
}

func TestServer_GetSummary(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	created := seed(t, env.store, "https://foo.bar/")

	rec := do(t, env.server.Handler(), http.MethodGet, "/summaries/1/", "")

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[schema.SummaryRecord](t, rec)
	require.Equal(t, created.ID, got.ID)
	require.Equal(t, "https://foo.bar/", got.URL)
	require.Empty(t, got.Summary)
	require.Equal(t, summary.StatusPending, got.Status)
	require.True(t, testNow.Equal(got.CreatedAt))
}

func TestServer_GetSummary_Idempotent(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	seed(t, env.store, "https://foo.bar/")

	first := do(t, env.server.Handler(), http.MethodGet, "/summaries/1/", "")
	second := do(t, env.server.Handler(), http.MethodGet, "/summaries/1/", "")

	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	require.Equal(t, first.Body.Bytes(), second.Body.Bytes())
}

func TestServer_GetSummary_Errors(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rec := do(t, env.server.Handler(), http.MethodGet, "/summaries/999/", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"detail":"Summary not found"}`, rec.Body.String())

	rec = do(t, env.server.Handler(), http.MethodGet, "/summaries/0/", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	verr := decode[schema.ValidationError](t, rec)
	require.Len(t, verr.Detail, 1)
	require.Equal(t, schema.TypeGreaterThan, verr.Detail[0].Type)
	require.Equal(t, []any{"path", "id"}, verr.Detail[0].Loc)
	require.Equal(t, "Input should be greater than 0", verr.Detail[0].Msg)

	rec = do(t, env.server.Handler(), http.MethodGet, "/summaries/abc", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	verr = decode[schema.ValidationError](t, rec)
	require.Equal(t, schema.TypeIntParsing, verr.Detail[0].Type)
}

func TestServer_ListSummaries(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rec := do(t, env.server.Handler(), http.MethodGet, "/summaries/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())

	seed(t, env.store, "https://a.example/")
	seed(t, env.store, "https://b.example/")
	seed(t, env.store, "https://c.example/")

	for _, path := range []string{"/summaries", "/summaries/"} {
		rec = do(t, env.server.Handler(), http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[[]schema.SummaryRecord](t, rec)
		require.Len(t, got, 3)
		for i, rec := range got {
			require.Equal(t, int64(i+1), rec.ID)
		}
		require.Equal(t, "https://b.example/", got[1].URL)
	}
}

func TestServer_UpdateSummary(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	seed(t, env.store, "https://foo.bar/")

	rec := do(t, env.server.Handler(), http.MethodPut, "/summaries/1/",
		`{"url": "https://foo.bar/updated", "summary": "updated!"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[schema.SummaryRecord](t, rec)
	require.Equal(t, int64(1), got.ID)
	require.Equal(t, "https://foo.bar/updated", got.URL)
	require.Equal(t, "updated!", got.Summary)
	require.Equal(t, summary.StatusCompleted, got.Status)

	stored, err := env.store.Get(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "updated!", stored.Summary)
}

func TestServer_UpdateSummary_Errors(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	seed(t, env.store, "https://foo.bar/")

	rec := do(t, env.server.Handler(), http.MethodPut, "/summaries/999/",
		`{"url": "https://foo.bar", "summary": "updated!"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"detail":"Summary not found"}`, rec.Body.String())

	rec = do(t, env.server.Handler(), http.MethodPut, "/summaries/1/", `{}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	verr := decode[schema.ValidationError](t, rec)
	require.Len(t, verr.Detail, 2)
	require.Equal(t, []any{"body", "url"}, verr.Detail[0].Loc)
	require.Equal(t, []any{"body", "summary"}, verr.Detail[1].Loc)

	rec = do(t, env.server.Handler(), http.MethodPut, "/summaries/0/", `{}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	verr = decode[schema.ValidationError](t, rec)
	require.Len(t, verr.Detail, 3)
	require.Equal(t, []any{"path", "id"}, verr.Detail[0].Loc)

	rec = do(t, env.server.Handler(), http.MethodPut, "/summaries/1/",
		`{"url": "invalid://url", "summary": "updated!"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	verr = decode[schema.ValidationError](t, rec)
	require.Len(t, verr.Detail, 1)
	require.Equal(t, schema.TypeURLScheme, verr.Detail[0].Type)
	require.Equal(t, "URL scheme should be 'http' or 'https'", verr.Detail[0].Msg)

	stored, err := env.store.Get(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "https://foo.bar/", stored.URL)
	require.Empty(t, stored.Summary)
}

func TestServer_DeleteSummary(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	seed(t, env.store, "https://foo.bar/")

	rec := do(t, env.server.Handler(), http.MethodDelete, "/summaries/1/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"id":1,"url":"https://foo.bar/"}`, rec.Body.String())

	rec = do(t, env.server.Handler(), http.MethodGet, "/summaries/1/", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, env.server.Handler(), http.MethodDelete, "/summaries/1/", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"detail":"Summary not found"}`, rec.Body.String())

	rec = do(t, env.server.Handler(), http.MethodDelete, "/summaries/0/", "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestServer_Ping_UsesContextSettings(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := do(t, env.server.Handler(), http.MethodGet, "/ping", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"ping":"pong!","environment":"dev","testing":false}`, rec.Body.String())

	env.server.OverrideSettings(config.Config{Environment: "dev", Testing: true})
	rec = do(t, env.server.Handler(), http.MethodGet, "/ping/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"ping":"pong!","environment":"dev","testing":true}`, rec.Body.String())
}

func TestServer_Probes(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	require.Equal(t, http.StatusOK, do(t, env.server.Handler(), http.MethodGet, "/healthz", "").Code)
	require.Equal(t, http.StatusOK, do(t, env.server.Handler(), http.MethodGet, "/readyz", "").Code)

	rec := do(t, env.server.Handler(), http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")

	down := NewServer(&brokenStore{err: errors.New("connection refused")}, nil, &fakeClock{now: testNow}, config.Config{}, zap.NewNop())
	rec = do(t, down.Handler(), http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_StoreErrorReturns500(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.ErrorLevel)
	server := NewServer(&brokenStore{err: errors.New("connection reset")}, nil, &fakeClock{now: testNow}, config.Config{}, zap.New(core))

	rec := do(t, server.Handler(), http.MethodGet, "/summaries/1", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"detail":"Internal Server Error"}`, rec.Body.String())

	rec = do(t, server.Handler(), http.MethodPost, "/summaries", `{"url":"https://foo.bar"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, 2, logs.Len())
}

func TestServer_RecoversFromPanic(t *testing.T) {
	t.Parallel()

	server := NewServer(&brokenStore{panics: true}, nil, &fakeClock{now: testNow}, config.Config{}, zap.NewNop())

	rec := do(t, server.Handler(), http.MethodGet, "/summaries", "")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"detail":"Internal Server Error"}`, rec.Body.String())
}

func TestServer_RequestID(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "trace-123")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	require.Equal(t, "trace-123", rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "bad id with spaces")
	rec = httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	generated := rec.Header().Get("X-Request-ID")
	require.NotEmpty(t, generated)
	require.NotContains(t, generated, " ")
}

func TestServer_UnknownRoute(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rec := do(t, env.server.Handler(), http.MethodGet, "/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"detail":"Not Found"}`, rec.Body.String())

	rec = do(t, env.server.Handler(), http.MethodPatch, "/summaries/1", "")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_BodyTooLarge(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	body := `{"url":"https://foo.bar/` + strings.Repeat("a", maxBodyBytes) + `"}`

	rec := do(t, env.server.Handler(), http.MethodPost, "/summaries", body)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestTimeoutMiddleware_RespondsWithJSON(t *testing.T) {
	t.Parallel()

	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Partial", "yes")
		<-r.Context().Done()
	})
	rec := do(t, timeoutMiddleware(10*time.Millisecond)(slow), http.MethodGet, "/summaries", "")

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Empty(t, rec.Header().Get("X-Partial"))
	require.JSONEq(t, `{"detail":"Request timed out"}`, rec.Body.String())
}

func TestTimeoutMiddleware_KeepsHandlerContentType(t *testing.T) {
	t.Parallel()

	fast := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("draining"))
	})
	rec := do(t, timeoutMiddleware(time.Second)(fast), http.MethodGet, "/readyz", "")

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Equal(t, "draining", rec.Body.String())
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

type failingEnqueuer struct{}

func (failingEnqueuer) Enqueue(context.Context, summary.Task) error {
	return errors.New("queue unavailable")
}

// brokenStore fails (or panics on) every call.
type brokenStore struct {
	err    error
	panics bool
}

func (b *brokenStore) fail() error {
	if b.panics {
		panic("store exploded")
	}
	return b.err
}

func (b *brokenStore) Create(context.Context, string, time.Time) (summary.Summary, error) {
	return summary.Summary{}, b.fail()
}

func (b *brokenStore) Get(context.Context, int64) (summary.Summary, error) {
	return summary.Summary{}, b.fail()
}

func (b *brokenStore) List(context.Context) ([]summary.Summary, error) {
	return nil, b.fail()
}

func (b *brokenStore) Update(context.Context, int64, string, string) (summary.Summary, error) {
	return summary.Summary{}, b.fail()
}

func (b *brokenStore) Delete(context.Context, int64) (summary.Summary, error) {
	return summary.Summary{}, b.fail()
}

func (b *brokenStore) CompleteSummary(context.Context, int64, string) error {
	return b.fail()
}

func (b *brokenStore) FailSummary(context.Context, int64, string) error {
	return b.fail()
}

func (b *brokenStore) Ping(context.Context) error {
	return b.fail()
}
