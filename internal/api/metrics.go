package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/gray-logic-device/internal/infrastructure/influxdb"
)

// SystemMetrics represents the complete metrics response.
type SystemMetrics struct {
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Runtime       RuntimeMetrics  `json:"runtime"`
	MainLoop      LoopMetrics     `json:"main_loop"`
	WebSocket     WSMetrics       `json:"websocket"`
	Cloud         CloudMetrics    `json:"cloud"`
	Registries    RegistryMetrics `json:"registries"`
	Database      DatabaseMetrics `json:"database"`
	Telemetry     *influxdb.Stats `json:"telemetry,omitempty"`
	AuditDropped  uint64          `json:"audit_dropped"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// LoopMetrics contains scheduler counters.
type LoopMetrics struct {
	Ticks    uint64 `json:"ticks"`
	Overruns uint64 `json:"overruns"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// CloudMetrics contains cloud link statistics.
type CloudMetrics struct {
	Connected bool `json:"connected"`
	Queued    int  `json:"queued"`
}

// RegistryMetrics counts registered items.
type RegistryMetrics struct {
	Properties    int `json:"properties"`
	Notifications int `json:"notifications"`
	RPCEndpoints  int `json:"rpc_endpoints"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleMetrics returns runtime, loop and link metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Registries: RegistryMetrics{
			Properties:    s.properties.Len(),
			Notifications: len(s.notifications.Snapshot()),
			RPCEndpoints:  len(s.rpc.Endpoints()),
		},
	}

	if s.hub != nil {
		metrics.WebSocket.ConnectedClients = s.hub.ClientCount()
	}
	if s.runtime != nil {
		metrics.MainLoop.Ticks, metrics.MainLoop.Overruns = s.runtime.Stats()
	}
	if s.link != nil {
		metrics.Cloud = CloudMetrics{
			Connected: s.link.IsConnected(),
			Queued:    s.link.QueueLen(),
		}
	}
	if s.db != nil {
		dbStats := s.db.Stats()
		metrics.Database = DatabaseMetrics{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	if s.telemetry != nil {
		stats := s.telemetry.Stats()
		metrics.Telemetry = &stats
	}
	if s.audit != nil {
		metrics.AuditDropped = s.audit.Dropped()
	}

	writeJSON(w, http.StatusOK, metrics)
}
