package telemetry

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"sta-hq/verdict/pkg/config"
)

func TestNew_MountsEndpoints(t *testing.T) {
	cfg := config.NewDefaultConfig()
	var logs bytes.Buffer

	tel, err := New(context.Background(), &cfg.Telemetry, "test", Options{LogWriter: &logs})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer tel.Shutdown(context.Background())

	mux := http.NewServeMux()
	tel.Mount(mux, "test", "", "")
	h := tel.Handler(mux)

	for _, path := range []string{cfg.Telemetry.Metrics.Path, cfg.Telemetry.Health.Path} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}

	tel.Logger().Info("hello")
	if logs.Len() == 0 {
		t.Error("logger wrote nothing to LogWriter")
	}
}

func TestNew_InvalidLogging(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Telemetry.Logging.Level = "chatty"

	if _, err := New(context.Background(), &cfg.Telemetry, "test"); err == nil {
		t.Error("New() error = nil, want error")
	}
}
