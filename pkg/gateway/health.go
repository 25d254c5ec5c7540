package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coderoom/engine/internal/logger"
)

// response is the standard envelope for health endpoints.
type response struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		logger.Error("gateway: failed to encode JSON response", "error", err)
		http.Error(w, `{"status":"error","error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func healthyResponse(data any) response {
	return response{Status: "healthy", Timestamp: time.Now().UTC(), Data: data}
}

func unhealthyResponse(errMsg string) response {
	return response{Status: "unhealthy", Timestamp: time.Now().UTC(), Error: errMsg}
}

// startedAt records process start for the /health uptime fields.
var startedAt = time.Now().UTC()

// livenessData mirrors internal/cli/health.Response's Data shape so the
// CLI's status command can decode it directly.
type livenessData struct {
	Service   string `json:"service"`
	StartedAt string `json:"started_at"`
	Uptime    string `json:"uptime"`
	UptimeSec int64  `json:"uptime_sec"`
}

// liveness answers GET /health: is the process running at all.
func liveness(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(startedAt)
	writeJSON(w, http.StatusOK, healthyResponse(livenessData{
		Service:   "coderoom-engine",
		StartedAt: startedAt.Format(time.RFC3339),
		Uptime:    uptime.String(),
		UptimeSec: int64(uptime.Seconds()),
	}))
}

// readiness answers GET /health/ready: is the room store reachable.
// readinessChecker is set by NewRouter to the store's health check.
type readinessChecker func() error

func readiness(check readinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check == nil {
			writeJSON(w, http.StatusOK, healthyResponse(nil))
			return
		}
		if err := check(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse(err.Error()))
			return
		}
		writeJSON(w, http.StatusOK, healthyResponse(nil))
	}
}
