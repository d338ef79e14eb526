package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"fill-nodes-go/internal/artifact"
	"fill-nodes-go/internal/config"
	"fill-nodes-go/internal/diagnostics"
	"fill-nodes-go/internal/node"
	"fill-nodes-go/pkg/models"
)

type stubGatherer struct {
	report *diagnostics.Report
	err    error
}

func (s *stubGatherer) Gather(ctx context.Context) (*diagnostics.Report, error) {
	return s.report, s.err
}

type stubMetrics map[string]interface{}

func (s stubMetrics) GetMetrics() map[string]interface{} { return s }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		RequestTimeout:     5 * time.Second,
		MaxRequestBodySize: 1 << 20,
		OutputDir:          t.TempDir(),
	}
}

func sampleReport() *diagnostics.Report {
	report := diagnostics.NewReport()
	report.Set("Python version", "3.11.9")
	report.Set("CPU", "AMD Ryzen 9 7950X 16-Core Processor")
	report.Set("Env: CUDA_HOME", diagnostics.NotSet)
	return report
}

func newTestHandler(t *testing.T, cfg *config.Config, g SystemInfoGatherer) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	writer := artifact.NewWriter()
	return NewHandler(Dependencies{
		Saver:    writer,
		Gatherer: g,
		Metrics:  stubMetrics{"saves_succeeded": 3},
		Nodes:    node.Registry(writer),
	}, cfg)
}

func TestSystemInfo(t *testing.T) {
	tests := []struct {
		name       string
		gatherer   *stubGatherer
		wantStatus int
		wantBody   string
	}{
		{
			name:       "report",
			gatherer:   &stubGatherer{report: sampleReport()},
			wantStatus: http.StatusOK,
			wantBody:   `{"Python version":"3.11.9","CPU":"AMD Ryzen 9 7950X 16-Core Processor","Env: CUDA_HOME":"Not set"}`,
		},
		{
			name:       "gather failure",
			gatherer:   &stubGatherer{err: errors.New("gather diagnostics: context canceled")},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"gather diagnostics: context canceled"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestHandler(t, testConfig(t), tt.gatherer)

			req := httptest.NewRequest(http.MethodGet, "/fl_system_info", nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Body.String(); got != tt.wantBody {
				t.Errorf("body = %s, want %s", got, tt.wantBody)
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
				t.Errorf("Content-Type = %q", ct)
			}
		})
	}
}

func TestRegisterSystemInfo_OnGroup(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterSystemInfo(r.Group("/api"), &stubGatherer{report: sampleReport()})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/fl_system_info", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := body["CPU"]; !ok {
		t.Errorf("report missing CPU: %v", body)
	}
}

func postArtifact(t *testing.T, handler http.Handler, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/artifacts", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestSaveArtifact(t *testing.T) {
	cfg := testConfig(t)
	handler := newTestHandler(t, cfg, &stubGatherer{report: sampleReport()})

	rec := postArtifact(t, handler, map[string]interface{}{
		"job_id":   "job42",
		"category": "renders",
		"format":   "png",
		"image":    map[string]interface{}{"height": 1, "width": 1, "channels": 3, "data": []float32{0, 0, 0}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var result artifact.SaveResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := filepath.Join(cfg.OutputDir, "renders", "job42.png")
	if result.SavedPath != want {
		t.Errorf("saved_path = %q, want %q", result.SavedPath, want)
	}
	if result.JobID != "job42" || result.Category != "renders" {
		t.Errorf("unexpected result %+v", result)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("artifact not written: %v", err)
	}
}

func TestSaveArtifact_Errors(t *testing.T) {
	validImage := map[string]interface{}{"height": 1, "width": 1, "channels": 3, "data": []float32{0, 0, 0}}

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
	}{
		{
			name:       "missing job id",
			body:       map[string]interface{}{"category": "renders", "image": validImage},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unsupported format",
			body:       map[string]interface{}{"job_id": "a", "category": "renders", "format": "gif", "image": validImage},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "quality out of range",
			body:       map[string]interface{}{"job_id": "a", "category": "renders", "format": "jpg", "quality": 101, "image": validImage},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "path traversal",
			body:       map[string]interface{}{"job_id": "a", "category": "../escape", "image": validImage},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "shape mismatch",
			body: map[string]interface{}{"job_id": "a", "category": "renders",
				"image": map[string]interface{}{"height": 2, "width": 2, "channels": 3, "data": []float32{0}}},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "overflowing shape",
			body: map[string]interface{}{"job_id": "a", "category": "renders",
				"image": map[string]interface{}{"height": int64(1) << 62, "width": 4, "channels": 1, "data": []float32{}}},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			handler := newTestHandler(t, cfg, &stubGatherer{report: sampleReport()})

			rec := postArtifact(t, handler, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}

			var resp models.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Error != http.StatusText(tt.wantStatus) || resp.Message == "" {
				t.Errorf("unexpected error body %+v", resp)
			}

			entries, err := os.ReadDir(cfg.OutputDir)
			if err != nil {
				t.Fatalf("read output dir: %v", err)
			}
			if len(entries) != 0 {
				t.Errorf("rejected request touched the output dir: %v", entries)
			}
		})
	}
}

func TestSaveArtifact_BodyTooLarge(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxRequestBodySize = 64
	handler := newTestHandler(t, cfg, &stubGatherer{report: sampleReport()})

	rec := postArtifact(t, handler, map[string]interface{}{
		"job_id":   "job42",
		"category": "renders",
		"image":    map[string]interface{}{"height": 4, "width": 4, "channels": 3, "data": make([]float32, 48)},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	handler := newTestHandler(t, testConfig(t), &stubGatherer{report: sampleReport()})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp models.HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "available" || resp.Version != serviceVersion {
		t.Errorf("unexpected health %+v", resp)
	}
	if resp.Metrics["saves_succeeded"] != float64(3) {
		t.Errorf("metrics = %v", resp.Metrics)
	}
}

func TestListNodes(t *testing.T) {
	handler := newTestHandler(t, testConfig(t), &stubGatherer{report: sampleReport()})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nodes", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var nodes []node.Descriptor
	if err := json.Unmarshal(rec.Body.Bytes(), &nodes); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("got %d nodes, want 2", len(nodes))
	}
	if nodes[0].Name != node.ImageSaverName || nodes[0].CachePolicy != node.AlwaysStale {
		t.Errorf("unexpected first node %+v", nodes[0])
	}
}

func TestRequestID(t *testing.T) {
	handler := newTestHandler(t, testConfig(t), &stubGatherer{report: sampleReport()})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "trace-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "trace-123" {
		t.Errorf("X-Request-ID = %q, want propagated value", got)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if got := rec.Header().Get(requestIDHeader); len(got) != 36 {
		t.Errorf("generated X-Request-ID = %q, want a UUID", got)
	}
}

func TestDetermineStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"canceled", context.Canceled, http.StatusTooManyRequests},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := determineStatusCode(tt.err); got != tt.want {
				t.Errorf("determineStatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
