package daemon

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"

	"videoforge/internal/config"
	"videoforge/internal/logging"
	"videoforge/internal/media/ffmpeg"
	"videoforge/internal/queue"
	"videoforge/internal/testsupport"
	"videoforge/internal/workflow"
)

type stubEngine struct{}

func (stubEngine) ProbeDuration(context.Context, string) (float64, error) { return 10, nil }

func (stubEngine) Encode(_ context.Context, job ffmpeg.EncodeJob, progress func(ffmpeg.Progress)) error {
	if progress != nil {
		progress(ffmpeg.Progress{Percent: 50, CurrentKbps: 1200})
	}
	return os.WriteFile(job.OutputPath, []byte("encoded"), 0o644)
}

type testEnv struct {
	cfg    *config.Config
	store  *queue.Store
	daemon *Daemon
}

func newTestEnv(t *testing.T, opts ...testsupport.ConfigOption) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, store, stubEngine{}, logger)
	d, err := New(cfg, store, logger, mgr)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)
	return &testEnv{cfg: cfg, store: store, daemon: d}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.daemon.apiSrv.router.ServeHTTP(w, req)
	return w
}

func uploadRequest(t *testing.T, field, name string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, name)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
