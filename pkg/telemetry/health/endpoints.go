package health

import (
	"encoding/json"
	"net/http"
	"runtime"
)

// VersionInfo contains build and version information.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// LivenessHandler returns a handler that reports the process is alive along
// with the active registry snapshot.
//
// Example response:
//
//	{
//	    "status": "ok",
//	    "registry": {"pack_id": "sta-financial", "version": "9f2c41d07a3b5e11", "rules": 12, ...},
//	    "timestamp": "2026-10-14T10:30:00Z"
//	}
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowed(w, r) {
			return
		}
		writeJSON(w, r, http.StatusOK, c.CheckLiveness(r.Context()))
	}
}

// ReadinessHandler returns a handler that runs every registered check.
//
// Returns:
//   - 200 OK: all checks passed
//   - 503 Service Unavailable: at least one check failed
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowed(w, r) {
			return
		}

		status := c.CheckReadiness(r.Context())
		code := http.StatusOK
		if status.Status != StatusReady {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, r, code, status)
	}
}

// VersionHandler returns a handler serving build information.
func VersionHandler(version, commit, buildTime string) http.HandlerFunc {
	info := VersionInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !allowed(w, r) {
			return
		}
		writeJSON(w, r, http.StatusOK, info)
	}
}

// Register mounts the liveness handler at path, readiness at path+"/ready"
// and build information at "/version".
func Register(mux *http.ServeMux, path string, checker *Checker, version, commit, buildTime string) {
	mux.HandleFunc(path, checker.LivenessHandler())
	mux.HandleFunc(path+"/ready", checker.ReadinessHandler())
	mux.HandleFunc("/version", VersionHandler(version, commit, buildTime))
}

func allowed(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if r.Method != http.MethodHead {
		_ = json.NewEncoder(w).Encode(v)
	}
}
