package server

import (
	"time"

	"github.com/shirou/gopsutil/v4/mem"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/edgecomet/seoeditor/internal/common/httputil"
)

const HealthStatusOK = "ok"

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status        string       `json:"status"`
	UptimeSeconds int          `json:"uptime_seconds"`
	StartedAt     string       `json:"started_at"`
	Memory        *MemoryStats `json:"memory,omitempty"`
}

// MemoryStats is host memory as reported by gopsutil
type MemoryStats struct {
	TotalBytes  uint64  `json:"total_bytes"`
	UsedBytes   uint64  `json:"used_bytes"`
	UsedPercent float64 `json:"used_percent"`
}

// handleHealth handles GET /health
func (s *Server) handleHealth(ctx *fasthttp.RequestCtx) {
	resp := HealthResponse{
		Status:        HealthStatusOK,
		UptimeSeconds: int(time.Since(s.startTime).Seconds()),
		StartedAt:     s.startTime.Format(time.RFC3339),
	}

	// Memory stats are informational; the endpoint stays healthy without them
	if v, err := mem.VirtualMemory(); err == nil {
		resp.Memory = &MemoryStats{
			TotalBytes:  v.Total,
			UsedBytes:   v.Used,
			UsedPercent: v.UsedPercent,
		}
	} else {
		requestLogger(ctx, s.logger).Debug("Failed to read host memory", zap.Error(err))
	}

	httputil.JSONData(ctx, resp)
}
