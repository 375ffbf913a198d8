package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Knouxai/Knoux-versa-sub002/internal/domain"
	"github.com/Knouxai/Knoux-versa-sub002/internal/execution"
	"github.com/Knouxai/Knoux-versa-sub002/internal/infra"
	"github.com/Knouxai/Knoux-versa-sub002/internal/middleware"
	"github.com/Knouxai/Knoux-versa-sub002/internal/storage"
	"github.com/Knouxai/Knoux-versa-sub002/internal/transform"
)

type memoryJobs struct {
	mu      sync.Mutex
	jobs    map[string]domain.JobRecord
	creates int
}

func newMemoryJobs() *memoryJobs {
	return &memoryJobs{jobs: make(map[string]domain.JobRecord)}
}

func (m *memoryJobs) Create(_ context.Context, job domain.JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	job.CreatedAt = time.Now()
	m.jobs[job.ID] = job
	return nil
}

func (m *memoryJobs) Finish(_ context.Context, job domain.JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.jobs[job.ID]
	if !ok {
		return domain.ErrNotFound
	}
	cur.Status = job.Status
	cur.ResultKey = job.ResultKey
	cur.ErrorMessage = job.ErrorMessage
	cur.ProcessingTimeMs = job.ProcessingTimeMs
	m.jobs[job.ID] = cur
	return nil
}

func (m *memoryJobs) GetByID(_ context.Context, id string) (domain.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return domain.JobRecord{}, domain.ErrNotFound
	}
	return job, nil
}

func (m *memoryJobs) ListRecent(_ context.Context, limit int) ([]domain.JobRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.JobRecord, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryJobs) ToolStats(_ context.Context, since time.Time) ([]domain.ToolStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byTool := map[string]*domain.ToolStats{}
	var order []string
	for _, j := range m.jobs {
		if j.CreatedAt.Before(since) {
			continue
		}
		s, ok := byTool[j.ToolID]
		if !ok {
			s = &domain.ToolStats{ToolID: j.ToolID}
			byTool[j.ToolID] = s
			order = append(order, j.ToolID)
		}
		s.Total++
		switch j.Status {
		case domain.JobStatusSucceeded:
			s.Succeeded++
		case domain.JobStatusFailed:
			s.Failed++
		case domain.JobStatusCancelled:
			s.Cancelled++
		}
	}
	sort.Strings(order)
	out := make([]domain.ToolStats, 0, len(order))
	for _, id := range order {
		out = append(out, *byTool[id])
	}
	return out, nil
}

func testConfig() *infra.Config {
	return &infra.Config{
		JWTSecret:      "test-secret",
		VIPKeys:        []string{"gold-key"},
		VIPTokenTTL:    time.Hour,
		StorageBaseURL: "http://localhost:8080/static",
		MaxImageBytes:  1 << 20,
		TaskTimeout:    5 * time.Second,
		CacheTTL:       time.Minute,
	}
}

func newTestApp(t *testing.T) (*App, *memoryJobs, *storage.FileStore) {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	jobs := newMemoryJobs()
	app, err := NewApp(Options{
		Config:    testConfig(),
		Transport: execution.NewLocalTransport(execution.LocalOptions{}),
		Storage:   store,
		Jobs:      jobs,
	})
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	return app, jobs, store
}

func pngDataURL(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 10), G: 90, B: uint8(y * 10), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return transform.EncodeDataURL("image/png", buf.Bytes())
}

func postJSON(t *testing.T, h http.HandlerFunc, v any, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, m := range mutate {
		m(req)
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func withLocale(locale string) func(*http.Request) {
	return func(r *http.Request) {
		*r = *r.WithContext(context.WithValue(r.Context(), middleware.LocaleKey, locale))
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestNewAppRequiresDependencies(t *testing.T) {
	if _, err := NewApp(Options{}); err == nil {
		t.Fatalf("expected error without config")
	}
	if _, err := NewApp(Options{Config: testConfig()}); err == nil {
		t.Fatalf("expected error without transport")
	}
}

func TestHealth(t *testing.T) {
	app, _, _ := newTestApp(t)
	rec := httptest.NewRecorder()
	app.Health(rec, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode[map[string]any](t, rec)
	if body["status"] != "ok" || body["history"] != true || body["cache"] != "ok" {
		t.Fatalf("unexpected body %v", body)
	}

	app.Cache = brokenCache{}
	rec = httptest.NewRecorder()
	app.Health(rec, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
	body = decode[map[string]any](t, rec)
	if rec.Code != http.StatusOK || body["status"] != "degraded" || body["cache"] != "unreachable" {
		t.Fatalf("unexpected degraded body %d %v", rec.Code, body)
	}
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}
func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}
func (brokenCache) Delete(context.Context, string) error { return errors.New("connection refused") }

func TestToolsLocalizesNames(t *testing.T) {
	app, _, _ := newTestApp(t)

	rec := httptest.NewRecorder()
	app.Tools(rec, httptest.NewRequest(http.MethodGet, "/v1/tools", nil))
	en := decode[domain.CatalogResponse](t, rec)
	if len(en.Tools) == 0 || len(en.Categories) == 0 {
		t.Fatalf("empty catalog: %+v", en)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/tools", nil)
	withLocale("ar")(req)
	rec = httptest.NewRecorder()
	app.Tools(rec, req)
	ar := decode[domain.CatalogResponse](t, rec)
	if ar.Tools[0].Name != ar.Tools[0].NameAR || ar.Tools[0].Name == en.Tools[0].Name {
		t.Fatalf("expected arabic names, got %q", ar.Tools[0].Name)
	}
	if tool, _ := app.Catalog.Tool(en.Tools[0].ID); tool.Name != en.Tools[0].Name {
		t.Fatalf("catalog mutated by localization")
	}
}

func TestVIPAuth(t *testing.T) {
	app, _, _ := newTestApp(t)

	rec := postJSON(t, app.VIPAuth, domain.VIPAuthRequest{VIPKey: "gold-key"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	resp := decode[domain.VIPAuthResponse](t, rec)
	if !resp.Success {
		t.Fatalf("expected success")
	}
	claims, err := middleware.VerifyVIPToken("test-secret", resp.SessionToken)
	if err != nil {
		t.Fatalf("token does not verify: %v", err)
	}
	if strings.Contains(claims.Subject, "gold-key") {
		t.Fatalf("subject leaks the key: %q", claims.Subject)
	}

	rec = postJSON(t, app.VIPAuth, domain.VIPAuthRequest{VIPKey: "wrong"}, withLocale("ar"))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if resp := decode[domain.VIPAuthResponse](t, rec); resp.Success || resp.Error != "مفتاح VIP هذا غير صالح." {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestTransformSucceedsAndRecordsHistory(t *testing.T) {
	app, jobs, store := newTestApp(t)

	rec := postJSON(t, app.Transform, domain.TransformPayload{
		JobID:   "job-enhance",
		Image:   pngDataURL(t, 12, 8),
		ToolID:  "enhance",
		Quality: domain.QualityHigh,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	resp := decode[domain.TransformResponse](t, rec)
	if !resp.Success || resp.JobID != "job-enhance" || !strings.HasPrefix(resp.ResultImage, "data:image/png;base64,") {
		t.Fatalf("unexpected response %+v", resp)
	}

	job, err := jobs.GetByID(context.Background(), "job-enhance")
	if err != nil {
		t.Fatalf("job not recorded: %v", err)
	}
	if job.Status != domain.JobStatusSucceeded || job.Quality != domain.QualityHigh || job.ResultKey == "" {
		t.Fatalf("unexpected job %+v", job)
	}
	if _, err := store.Read(context.Background(), job.ResultKey); err != nil {
		t.Fatalf("result not stored: %v", err)
	}
}

func TestTransformServesIdenticalRequestFromCache(t *testing.T) {
	app, jobs, _ := newTestApp(t)
	payload := domain.TransformPayload{Image: pngDataURL(t, 6, 6), ToolID: "background-blur"}

	payload.JobID = "first"
	first := decode[domain.TransformResponse](t, postJSON(t, app.Transform, payload))
	payload.JobID = "second"
	rec := postJSON(t, app.Transform, payload)
	second := decode[domain.TransformResponse](t, rec)

	if !second.Success || second.JobID != "second" || second.ResultImage != first.ResultImage {
		t.Fatalf("unexpected cached response %+v", second)
	}
	if jobs.creates != 1 {
		t.Fatalf("cached request should not run again, creates = %d", jobs.creates)
	}
}

func TestTransformRejections(t *testing.T) {
	app, jobs, _ := newTestApp(t)
	img := pngDataURL(t, 4, 4)

	tests := []struct {
		name     string
		payload  domain.TransformPayload
		locale   string
		wantCode int
		wantKind string
	}{
		{
			name:     "missing prompt",
			payload:  domain.TransformPayload{JobID: "r1", Image: img, ToolID: "style-transfer"},
			wantCode: http.StatusUnprocessableEntity,
			wantKind: "missing_prompt",
		},
		{
			name:     "missing selection",
			payload:  domain.TransformPayload{JobID: "r2", Image: img, ToolID: "remove-replace", Prompt: "replace"},
			wantCode: http.StatusUnprocessableEntity,
			wantKind: "missing_selection",
		},
		{
			name:     "unknown tool",
			payload:  domain.TransformPayload{JobID: "r3", Image: img, ToolID: "teleport"},
			wantCode: http.StatusBadRequest,
			wantKind: "unknown_tool",
		},
		{
			name:     "vip tool without session",
			payload:  domain.TransformPayload{JobID: "r4", Image: img, ToolID: "vip-magic", Prompt: "gold", IsVIP: true},
			wantCode: http.StatusForbidden,
			wantKind: "vip_required",
		},
		{
			name:     "remote url",
			payload:  domain.TransformPayload{JobID: "r5", Image: "https://example.com/a.png", ToolID: "enhance"},
			wantCode: http.StatusUnsupportedMediaType,
			wantKind: "unsupported_format",
		},
		{
			name:     "arabic message",
			payload:  domain.TransformPayload{JobID: "r6", Image: img, ToolID: "style-transfer", Prompt: "  "},
			locale:   "ar",
			wantCode: http.StatusUnprocessableEntity,
			wantKind: "missing_prompt",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var mutate []func(*http.Request)
			if tc.locale != "" {
				mutate = append(mutate, withLocale(tc.locale))
			}
			rec := postJSON(t, app.Transform, tc.payload, mutate...)
			if rec.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tc.wantCode, rec.Body.String())
			}
			body := decode[map[string]any](t, rec)
			if body["code"] != tc.wantKind || body["success"] != false {
				t.Fatalf("unexpected body %v", body)
			}
			if tc.locale == "ar" && body["error"] != "يرجى وصف ما تريد أن تفعله هذه الأداة." {
				t.Fatalf("expected arabic message, got %v", body["error"])
			}
		})
	}

	job, err := jobs.GetByID(context.Background(), "r1")
	if err != nil || job.Status != domain.JobStatusFailed {
		t.Fatalf("failed job not recorded: %+v, %v", job, err)
	}
}

func TestTransformVIPSession(t *testing.T) {
	app, _, _ := newTestApp(t)
	token, err := middleware.SignVIPToken("test-secret", "vip:test", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("SignVIPToken: %v", err)
	}
	payload := domain.TransformPayload{JobID: "vip-1", Image: pngDataURL(t, 4, 4), ToolID: "vip-magic", Prompt: "gold"}

	payload.VIPToken = "forged"
	if rec := postJSON(t, app.Transform, payload); rec.Code != http.StatusForbidden {
		t.Fatalf("forged token: status = %d", rec.Code)
	}

	payload.VIPToken = token
	if rec := postJSON(t, app.Transform, payload); rec.Code != http.StatusOK {
		t.Fatalf("body token: status = %d body %s", rec.Code, rec.Body.String())
	}

	payload.JobID, payload.VIPToken, payload.Quality = "vip-2", "", domain.QualityUltra
	rec := postJSON(t, app.Transform, payload, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
		claims, _ := middleware.VerifyVIPToken("test-secret", token)
		*r = *r.WithContext(middleware.ContextWithVIP(r.Context(), claims))
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("header token: status = %d body %s", rec.Code, rec.Body.String())
	}

	payload.JobID = "vip-3"
	guarded := middleware.VIPSession("test-secret")(http.HandlerFunc(app.Transform))
	rec = postJSON(t, guarded.ServeHTTP, payload, func(r *http.Request) {
		r.Header.Set("Authorization", "bearer "+token)
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("lowercase scheme: status = %d body %s", rec.Code, rec.Body.String())
	}
}

func TestTransformBadPayloads(t *testing.T) {
	app, _, _ := newTestApp(t)

	rec := httptest.NewRecorder()
	app.Transform(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json: status = %d", rec.Code)
	}

	if rec := postJSON(t, app.Transform, domain.TransformPayload{JobID: "../etc", ToolID: "enhance"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad job id: status = %d", rec.Code)
	}

	app.MaxBodyBytes = 64
	rec = postJSON(t, app.Transform, domain.TransformPayload{JobID: "big", Image: pngDataURL(t, 16, 16), ToolID: "enhance"})
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized body: status = %d", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{&transform.ValidationError{Kind: transform.KindImageTooLarge}, http.StatusRequestEntityTooLarge},
		{&transform.ValidationError{Kind: transform.KindInvalidSetting}, http.StatusUnprocessableEntity},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		if got, _ := statusFor(tc.err); got != tc.code {
			t.Fatalf("statusFor(%v) = %d, want %d", tc.err, got, tc.code)
		}
	}
}

func TestTransformEventsStreamsUntilDone(t *testing.T) {
	app, _, _ := newTestApp(t)
	r := chi.NewRouter()
	r.Get("/v1/transform/{jobId}/events", app.TransformEvents)
	srv := httptest.NewServer(r)
	defer srv.Close()

	app.Hub.Publish("evt-1", 0.4)
	resp, err := http.Get(srv.URL + "/v1/transform/evt-1/events")
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	var events []string
	var progress []float64
	err = execution.ReadEvents(resp.Body, func(event string, data []byte) bool {
		events = append(events, event)
		var ev domain.ProgressEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Errorf("bad event data %q", data)
			return false
		}
		if event == "progress" {
			progress = append(progress, ev.Progress)
			if len(progress) == 1 {
				app.Hub.Publish("evt-1", 0.8)
			} else {
				app.Hub.Finish("evt-1")
			}
		}
		return event != "done"
	})
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if len(progress) != 2 || progress[0] != 0.4 || progress[1] != 0.8 {
		t.Fatalf("unexpected progress %v", progress)
	}
	if events[len(events)-1] != "done" {
		t.Fatalf("stream should end with done, got %v", events)
	}
}

func TestTransformEventsRejectsBadID(t *testing.T) {
	app, _, _ := newTestApp(t)
	r := chi.NewRouter()
	r.Get("/v1/transform/{jobId}/events", app.TransformEvents)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/transform/a.b/events", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestJobsEndpoints(t *testing.T) {
	app, jobs, _ := newTestApp(t)
	_ = jobs.Create(context.Background(), domain.JobRecord{ID: "j1", ToolID: "enhance", Status: domain.JobStatusRunning})
	_ = jobs.Finish(context.Background(), domain.JobRecord{ID: "j1", Status: domain.JobStatusSucceeded, ResultKey: "results/j1.png"})

	r := chi.NewRouter()
	r.Get("/v1/jobs", app.ListJobs)
	r.Get("/v1/jobs/{jobId}", app.GetJob)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/jobs/j1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	dto := decode[jobDTO](t, rec)
	if dto.ResultURL != "http://localhost:8080/static/results/j1.png" || dto.Status != "succeeded" {
		t.Fatalf("unexpected dto %+v", dto)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/jobs/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing: status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/jobs?limit=500", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit: status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/jobs?limit=5", nil))
	list := decode[map[string][]jobDTO](t, rec)
	if len(list["items"]) != 1 {
		t.Fatalf("unexpected list %+v", list)
	}

	app.Jobs = nil
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/jobs", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("disabled: status = %d", rec.Code)
	}
}

func TestStorageLoader(t *testing.T) {
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := store.Write(context.Background(), "results/a.png", []byte("png")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	load := StorageLoader(store, "http://localhost/static")
	data, err := load(context.Background(), "http://localhost/static/results/a.png")
	if err != nil || string(data) != "png" {
		t.Fatalf("load own url: %q, %v", data, err)
	}
	if _, err := load(context.Background(), "https://evil.example.com/a.png"); err == nil {
		t.Fatalf("foreign url should be rejected")
	}
}

func TestUsageStats(t *testing.T) {
	app, jobs, _ := newTestApp(t)
	ctx := context.Background()
	_ = jobs.Create(ctx, domain.JobRecord{ID: "a", ToolID: "enhance", Status: domain.JobStatusRunning})
	_ = jobs.Finish(ctx, domain.JobRecord{ID: "a", Status: domain.JobStatusSucceeded})
	_ = jobs.Create(ctx, domain.JobRecord{ID: "b", ToolID: "enhance", Status: domain.JobStatusRunning})
	_ = jobs.Finish(ctx, domain.JobRecord{ID: "b", Status: domain.JobStatusFailed})
	_ = jobs.Create(ctx, domain.JobRecord{ID: "c", ToolID: "upscale", Status: domain.JobStatusRunning})

	if app.Stats == nil {
		t.Fatalf("stats should default to the job repository")
	}

	rec := httptest.NewRecorder()
	app.UsageStats(rec, httptest.NewRequest(http.MethodGet, "/v1/stats?hours=1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	summary := decode[domain.StatsSummary](t, rec)
	if summary.Total != 3 || len(summary.Tools) != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if got := summary.Tools[0]; got.ToolID != "enhance" || got.Succeeded != 1 || got.Failed != 1 {
		t.Fatalf("unexpected enhance stats %+v", got)
	}

	rec = httptest.NewRecorder()
	app.UsageStats(rec, httptest.NewRequest(http.MethodGet, "/v1/stats?hours=0", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad hours: status = %d", rec.Code)
	}

	app.Stats = nil
	rec = httptest.NewRecorder()
	app.UsageStats(rec, httptest.NewRequest(http.MethodGet, "/v1/stats", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("disabled: status = %d", rec.Code)
	}
}

func TestOpenAPIDescribesRoutes(t *testing.T) {
	app, _, _ := newTestApp(t)
	rec := httptest.NewRecorder()
	app.OpenAPIJSON(rec, httptest.NewRequest(http.MethodGet, "/v1/openapi.json", nil))
	doc := decode[struct {
		Paths map[string]any `json:"paths"`
	}](t, rec)
	for _, p := range []string{"/v1/transform", "/v1/transform/{jobId}/events", "/v1/vip/auth", "/v1/stats"} {
		if _, ok := doc.Paths[p]; !ok {
			t.Errorf("path %s missing from description", p)
		}
	}

	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}
	req := httptest.NewRequest(http.MethodGet, "/v1/openapi.json", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	app.OpenAPIJSON(rec, req)
	if rec.Code != http.StatusNotModified || rec.Body.Len() != 0 {
		t.Fatalf("conditional get: status = %d, body %d bytes", rec.Code, rec.Body.Len())
	}

	rec = httptest.NewRecorder()
	app.OpenAPIDocs(rec, httptest.NewRequest(http.MethodGet, "/v1/docs", nil))
	if !strings.Contains(rec.Body.String(), "/v1/openapi.json") || !strings.Contains(rec.Body.String(), `dir="ltr"`) {
		t.Fatalf("docs page should load the description: %s", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/docs", nil)
	withLocale("ar")(req)
	rec = httptest.NewRecorder()
	app.OpenAPIDocs(rec, req)
	if !strings.Contains(rec.Body.String(), `lang="ar" dir="rtl"`) {
		t.Fatalf("arabic docs page should be right to left: %s", rec.Body.String())
	}
}
