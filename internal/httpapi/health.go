package httpapi

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/applywizz/portal/internal/httputil"
)

// HealthReporter describes the running process.
type HealthReporter struct {
	version string
	started time.Time
	proc    *process.Process
}

// NewHealthReporter captures the start time of the process.
func NewHealthReporter(version string) *HealthReporter {
	if version == "" {
		version = "dev"
	}
	proc, _ := process.NewProcess(int32(os.Getpid()))
	return &HealthReporter{version: version, started: time.Now(), proc: proc}
}

// Report returns the health payload.
func (hr *HealthReporter) Report() map[string]interface{} {
	out := map[string]interface{}{
		"status":     "healthy",
		"service":    "applywizz-portal",
		"version":    hr.version,
		"uptime":     time.Since(hr.started).Round(time.Second).String(),
		"goroutines": runtime.NumGoroutine(),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}
	if hr.proc != nil {
		if mem, err := hr.proc.MemoryInfo(); err == nil {
			out["rss_bytes"] = mem.RSS
		}
		if cpu, err := hr.proc.CPUPercent(); err == nil {
			out["cpu_percent"] = cpu
		}
	}
	return out
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.Health.Report())
}
