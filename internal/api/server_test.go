package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/docoutline/internal/config"
	"github.com/dgallion1/docoutline/internal/doctree"
	"github.com/dgallion1/docoutline/internal/outline"
	"github.com/dgallion1/docoutline/internal/parser"
	"github.com/dgallion1/docoutline/internal/pipeline"
	"github.com/dgallion1/docoutline/internal/stats"
	"github.com/dgallion1/docoutline/internal/store"
)

const testKey = "secret"

// sizeClassifier labels lines set at 14pt or larger as H1.
type sizeClassifier struct{}

func (sizeClassifier) Classify(l outline.LineRecord) (string, error) {
	if l.FontSize >= 14 {
		return "H1", nil
	}
	return "BODY", nil
}

// fakeParse turns each input line into a 14pt line; "broken" fails.
func fakeParse(data []byte, filename string) (*doctree.Document, error) {
	if string(data) == "broken" {
		return nil, fmt.Errorf("%w: open %s: no xref", parser.ErrParse, filename)
	}
	blk := &doctree.Block{}
	for i, s := range strings.Split(string(data), "\n") {
		y := float64(40 + 20*i)
		blk.Lines = append(blk.Lines, &doctree.Line{Runs: []*doctree.Run{{
			Text: s,
			Size: 14,
			BBox: doctree.BBox{X0: 72, Y0: y, X1: 200, Y1: y + 14},
		}}})
	}
	return &doctree.Document{Pages: []*doctree.Page{{Number: 1, Blocks: []*doctree.Block{blk}}}}, nil
}

type testEnv struct {
	srv     *Server
	orch    *pipeline.Orchestrator
	results *store.Store
}

func newTestEnv(t *testing.T, withStore bool, start bool) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{APIKey: testKey, MaxUploadBytes: 1024}

	var results *store.Store
	if withStore {
		var err error
		results, err = store.Open(filepath.Join(t.TempDir(), "results.db"))
		if err != nil {
			t.Fatalf("open store: %v", err)
		}
		t.Cleanup(func() { results.Close() })
	}

	lat := stats.NewLatency(time.Hour)
	w := pipeline.NewWorker(fakeParse, &outline.Extractor{Classifier: sizeClassifier{}}, results, lat, log)
	orch := pipeline.NewOrchestrator(w, 1, 2, time.Hour, log)
	if start {
		orch.Start(context.Background())
		t.Cleanup(orch.Stop)
	}
	return &testEnv{
		srv:     NewServer(orch, w, results, lat, log, cfg),
		orch:    orch,
		results: results,
	}
}

func multipartBody(t *testing.T, field string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile(field, name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		fw.Write([]byte(content))
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+testKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) upload(t *testing.T, path, name, content string) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, "file", map[string]string{name: content})
	return e.do(t, http.MethodPost, path, body, ct)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealth_NoAuth(t *testing.T) {
	env := newTestEnv(t, false, false)
	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("unexpected health response: %d %s", rec.Code, rec.Body.String())
	}
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t, false, false)
	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"wrong scheme", "Basic " + testKey},
		{"wrong key", "Bearer nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			env.srv.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestOutline_Sync(t *testing.T) {
	env := newTestEnv(t, false, false)
	rec := env.upload(t, "/api/outline", "../../etc/paper.pdf", "Introduction\nMethods")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	res := decode[outline.Result](t, rec)
	if len(res.Outline) != 2 || res.Outline[0].Text != "Introduction" || res.Outline[1].Level != "H1" {
		t.Errorf("unexpected outline: %+v", res.Outline)
	}
	if rec.Header().Get("X-Cache") != "miss" {
		t.Errorf("expected cache miss, got %q", rec.Header().Get("X-Cache"))
	}
	if rec.Header().Get("X-Content-Hash") != store.ContentHash([]byte("Introduction\nMethods")) {
		t.Error("expected content hash header")
	}
}

func TestOutline_Errors(t *testing.T) {
	env := newTestEnv(t, false, false)
	tests := []struct {
		name    string
		file    string
		content string
		want    int
	}{
		{"unsupported", "notes.docx", "x", http.StatusBadRequest},
		{"parse failure", "bad.pdf", "broken", http.StatusUnprocessableEntity},
		{"too large", "big.pdf", strings.Repeat("a", 2048), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.upload(t, "/api/outline", tt.file, tt.content)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestOutline_MissingFile(t *testing.T) {
	env := newTestEnv(t, false, false)
	body, ct := multipartBody(t, "other", map[string]string{"a.pdf": "x"})
	rec := env.do(t, http.MethodPost, "/api/outline", body, ct)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestJobs_SubmitAndPoll(t *testing.T) {
	env := newTestEnv(t, false, true)
	rec := env.upload(t, "/api/outline/jobs", "doc.pdf", "Summary")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	accepted := decode[map[string]any](t, rec)
	jobID, _ := accepted["job_id"].(string)
	if jobID == "" || accepted["poll_url"] != "/api/outline/jobs/"+jobID {
		t.Fatalf("unexpected accept body: %v", accepted)
	}

	var snap pipeline.JobSnapshot
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec = env.do(t, http.MethodGet, "/api/outline/jobs/"+jobID, nil, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		snap = decode[pipeline.JobSnapshot](t, rec)
		if snap.Status.Done() {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if snap.Status != pipeline.StatusCompleted {
		t.Fatalf("expected completed job, got %q (%s)", snap.Status, snap.Error)
	}
	if snap.Result == nil || len(snap.Result.Outline) != 1 || snap.Result.Outline[0].Text != "Summary" {
		t.Errorf("unexpected job result: %+v", snap.Result)
	}
}

func TestJobs_UnknownID(t *testing.T) {
	env := newTestEnv(t, false, false)
	rec := env.do(t, http.MethodGet, "/api/outline/jobs/nope", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestJobs_QueueFull(t *testing.T) {
	// Workers are not started and the queue holds two jobs.
	env := newTestEnv(t, false, false)
	for i := range 2 {
		if rec := env.upload(t, "/api/outline/jobs", "a.pdf", "x"); rec.Code != http.StatusAccepted {
			t.Fatalf("submit %d: expected 202, got %d", i, rec.Code)
		}
	}
	if rec := env.upload(t, "/api/outline/jobs", "a.pdf", "x"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestJobs_Batch(t *testing.T) {
	env := newTestEnv(t, false, false)
	body, ct := multipartBody(t, "files", map[string]string{
		"one.pdf":   "Alpha",
		"skip.html": "<p>",
	})
	rec := env.do(t, http.MethodPost, "/api/outline/jobs/batch", body, ct)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[struct {
		Jobs []map[string]any `json:"jobs"`
	}](t, rec)
	if len(resp.Jobs) != 2 {
		t.Fatalf("expected 2 entries, got %v", resp.Jobs)
	}
	for _, j := range resp.Jobs {
		switch j["filename"] {
		case "one.pdf":
			if j["job_id"] == nil {
				t.Errorf("expected job_id for one.pdf: %v", j)
			}
		case "skip.html":
			if j["error"] == nil {
				t.Errorf("expected error for skip.html: %v", j)
			}
		default:
			t.Errorf("unexpected entry %v", j)
		}
	}
}

func TestJobs_BatchNoFiles(t *testing.T) {
	env := newTestEnv(t, false, false)
	body, ct := multipartBody(t, "files", nil)
	if rec := env.do(t, http.MethodPost, "/api/outline/jobs/batch", body, ct); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestResults_CacheLifecycle(t *testing.T) {
	env := newTestEnv(t, true, false)
	content := "Cached Heading"
	hash := store.ContentHash([]byte(content))

	if rec := env.upload(t, "/api/outline", "a.pdf", content); rec.Code != http.StatusOK {
		t.Fatalf("first upload: %d", rec.Code)
	}
	rec := env.upload(t, "/api/outline", "b.pdf", content)
	if rec.Header().Get("X-Cache") != "hit" {
		t.Errorf("expected cache hit on second upload, got %q", rec.Header().Get("X-Cache"))
	}

	rec = env.do(t, http.MethodGet, "/api/results/"+hash, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decode[store.Record](t, rec); got.Filename != "a.pdf" || got.Result.Title == "" {
		t.Errorf("unexpected record: %+v", got)
	}

	rec = env.do(t, http.MethodGet, "/api/results", nil, "")
	if list := decode[map[string][]store.Record](t, rec); len(list["results"]) != 1 {
		t.Errorf("expected one listed result, got %v", list)
	}

	if rec := env.do(t, http.MethodDelete, "/api/results/"+hash, nil, ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/results/"+hash, nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestResults_StoreDisabled(t *testing.T) {
	env := newTestEnv(t, false, false)
	for _, path := range []string{"/api/results", "/api/results/abc"} {
		if rec := env.do(t, http.MethodGet, path, nil, ""); rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, rec.Code)
		}
	}
}

func TestStats(t *testing.T) {
	env := newTestEnv(t, false, false)
	env.upload(t, "/api/outline", "a.pdf", "Heading")
	env.upload(t, "/api/outline", "b.pdf", "broken")

	rec := env.do(t, http.MethodGet, "/api/stats", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decode[struct {
		Latency    stats.Snapshot `json:"latency"`
		QueueDepth int            `json:"queue_depth"`
	}](t, rec)
	if resp.Latency.Processed != 1 || resp.Latency.Failed != 1 {
		t.Errorf("expected processed=1 failed=1, got %+v", resp.Latency)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct{ in, want string }{
		{"report.pdf", "report.pdf"},
		{"../../etc/passwd.pdf", "passwd.pdf"},
		{`C:\Users\me\doc.pdf`, "doc.pdf"},
		{"a..b.pdf", "a_b.pdf"},
		{"", "unnamed"},
		{"/", "unnamed"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
