package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sta-hq/verdict/pkg/escalation"
	"sta-hq/verdict/pkg/registry"
)

func storeWithRules(t *testing.T, n int) *registry.Store {
	t.Helper()
	b := registry.NewBuilder()
	b.SetPack(registry.PackInfo{ID: "sta-test", Version: "1.0.0"})
	for i := 0; i < n; i++ {
		err := b.Register(registry.Rule{
			ID:                 string(rune('A' + i)),
			SignalID:           "exposure",
			ViolationType:      "equation_break",
			EscalationLevelMin: escalation.LevelAdvisory,
		})
		if err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}
	return registry.NewStore(b.Build())
}

func TestChecker_Readiness(t *testing.T) {
	c := New(time.Second)
	c.RegisterCheck("ok", func(ctx context.Context) error { return nil })

	status := c.CheckReadiness(context.Background())
	if status.Status != StatusReady {
		t.Errorf("Status = %q, want ready", status.Status)
	}

	c.RegisterCheck("broken", func(ctx context.Context) error { return errors.New("down") })
	status = c.CheckReadiness(context.Background())
	if status.Status != StatusDegraded {
		t.Errorf("Status = %q, want degraded", status.Status)
	}
	if got := status.Checks["broken"]; got.Status != StatusUnhealthy || got.Message != "down" {
		t.Errorf("broken check = %+v", got)
	}
	if got := status.Checks["ok"]; got.Status != StatusOK {
		t.Errorf("ok check = %+v", got)
	}
}

func TestChecker_Timeout(t *testing.T) {
	c := New(10 * time.Millisecond)
	c.RegisterCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		return nil
	})

	status := c.CheckReadiness(context.Background())
	if got := status.Checks["slow"]; got.Status != StatusUnhealthy || got.Message != ErrCheckTimeout.Error() {
		t.Errorf("slow check = %+v, want timeout", got)
	}
}

func TestChecker_ListChecks(t *testing.T) {
	c := New(0)
	c.RegisterCheck("b", func(context.Context) error { return nil })
	c.RegisterCheck("a", func(context.Context) error { return nil })
	c.UnregisterCheck("b")

	got := c.ListChecks()
	if len(got) != 1 || got[0] != "a" {
		t.Errorf("ListChecks() = %v, want [a]", got)
	}
}

func TestRegistryCheck(t *testing.T) {
	empty := registry.NewStore(nil)
	if err := RegistryCheck(empty)(context.Background()); err == nil {
		t.Error("RegistryCheck(empty) = nil, want error")
	}

	loaded := storeWithRules(t, 2)
	if err := RegistryCheck(loaded)(context.Background()); err != nil {
		t.Errorf("RegistryCheck(loaded) = %v", err)
	}
}

func TestLivenessHandler_ReportsRegistry(t *testing.T) {
	store := storeWithRules(t, 3)
	c := New(time.Second)
	c.SetRegistryInfo(StoreInfo(store))

	mux := http.NewServeMux()
	Register(mux, "/healthz", c, "1.2.3", "abc", "today")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got HealthStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Registry == nil {
		t.Fatal("Registry missing from response")
	}
	if got.Registry.Version != store.Current().Version() {
		t.Errorf("Registry.Version = %q, want %q", got.Registry.Version, store.Current().Version())
	}
	if got.Registry.Rules != 3 || got.Registry.PackID != "sta-test" {
		t.Errorf("Registry = %+v", got.Registry)
	}
}

func TestReadinessHandler_Unavailable(t *testing.T) {
	c := New(time.Second)
	c.RegisterCheck("registry", RegistryCheck(registry.NewStore(nil)))

	mux := http.NewServeMux()
	Register(mux, "/healthz", c, "dev", "", "")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestHandlers_MethodNotAllowed(t *testing.T) {
	c := New(time.Second)
	rec := httptest.NewRecorder()
	c.LivenessHandler()(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestVersionHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	VersionHandler("1.0.0", "abc", "now")(rec, httptest.NewRequest(http.MethodGet, "/version", nil))

	var info VersionInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if info.Version != "1.0.0" || info.GoVersion == "" {
		t.Errorf("VersionInfo = %+v", info)
	}
}
