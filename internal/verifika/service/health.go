package service

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/bluesystem/verifika/internal/verifika/cache"
	"github.com/bluesystem/verifika/internal/verifika/store"
)

// CacheChecker is the part of the cache the health checks read.
type CacheChecker interface {
	Ping(ctx context.Context) (time.Duration, error)
	Stats(ctx context.Context) cache.Stats
}

type HealthService struct {
	Store   store.Store
	Cache   CacheChecker
	Service string
	Version string
	Env     string
	Started time.Time
}

type HealthSummary struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
	Env     string `json:"environment"`
	Uptime  string `json:"uptime"`
}

func (s *HealthService) Summary() HealthSummary {
	return HealthSummary{
		Status:  "ok",
		Service: s.Service,
		Version: s.Version,
		Env:     s.Env,
		Uptime:  time.Since(s.Started).Round(time.Second).String(),
	}
}

// Check is the outcome of pinging one dependency.
type Check struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
	Details   any    `json:"details,omitempty"`
}

func (c Check) OK() bool { return c.Status == "ok" }

func check(latency time.Duration, err error) Check {
	if err != nil {
		return Check{Status: "error", Error: err.Error()}
	}
	return Check{Status: "ok", LatencyMS: latency.Milliseconds()}
}

type poolStats struct {
	Open         int   `json:"open"`
	InUse        int   `json:"in_use"`
	Idle         int   `json:"idle"`
	WaitCount    int64 `json:"wait_count"`
	WaitDuration int64 `json:"wait_duration_ms"`
}

// Database pings the store and reports pool usage.
func (s *HealthService) Database(ctx context.Context) Check {
	start := time.Now()
	err := s.Store.Ping(ctx)
	c := check(time.Since(start), err)
	st := s.Store.Stats()
	c.Details = poolStats{
		Open:         st.OpenConnections,
		InUse:        st.InUse,
		Idle:         st.Idle,
		WaitCount:    st.WaitCount,
		WaitDuration: st.WaitDuration.Milliseconds(),
	}
	return c
}

// Redis pings the cache and reports its pool and server counters.
func (s *HealthService) Redis(ctx context.Context) Check {
	c := check(s.Cache.Ping(ctx))
	if c.OK() {
		c.Details = s.Cache.Stats(ctx)
	}
	return c
}

type MemoryStats struct {
	AllocMB      uint64 `json:"alloc_mb"`
	SysMB        uint64 `json:"sys_mb"`
	HeapInUseMB  uint64 `json:"heap_inuse_mb"`
	NumGC        uint32 `json:"num_gc"`
	NumGoroutine int    `json:"goroutines"`
}

type HealthReport struct {
	HealthSummary
	Database Check       `json:"database"`
	Redis    Check       `json:"redis"`
	Memory   MemoryStats `json:"memory"`
}

// Ready reports whether both dependencies answer.
func (r HealthReport) Ready() bool { return r.Database.OK() && r.Redis.OK() }

func (s *HealthService) Detailed(ctx context.Context) HealthReport {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	const mb = 1 << 20
	r := HealthReport{
		HealthSummary: s.Summary(),
		Database:      s.Database(ctx),
		Redis:         s.Redis(ctx),
		Memory: MemoryStats{
			AllocMB:      m.Alloc / mb,
			SysMB:        m.Sys / mb,
			HeapInUseMB:  m.HeapInuse / mb,
			NumGC:        m.NumGC,
			NumGoroutine: runtime.NumGoroutine(),
		},
	}
	if !r.Ready() {
		r.Status = "degraded"
	}
	return r
}

// Metrics is a point-in-time view of the process.
type Metrics struct {
	Timestamp        time.Time `json:"timestamp"`
	UptimeSeconds    float64   `json:"uptime_seconds"`
	MemorySysBytes   uint64    `json:"memory_sys_bytes"`
	HeapSysBytes     uint64    `json:"memory_heap_total_bytes"`
	HeapAllocBytes   uint64    `json:"memory_heap_used_bytes"`
	HeapUsagePercent int       `json:"memory_heap_usage_percent"`
	Goroutines       int       `json:"goroutines"`
	GCCount          uint32    `json:"gc_count"`
	GCPauseTotalNS   uint64    `json:"gc_pause_total_ns"`
	GoVersion        string    `json:"go_version"`
	PID              int       `json:"process_id"`
}

// Sample is one named numeric reading.
type Sample struct {
	Name  string
	Value float64
}

// Samples returns the numeric readings in a fixed order.
func (m Metrics) Samples() []Sample {
	return []Sample{
		{"uptime_seconds", m.UptimeSeconds},
		{"memory_sys_bytes", float64(m.MemorySysBytes)},
		{"memory_heap_total_bytes", float64(m.HeapSysBytes)},
		{"memory_heap_used_bytes", float64(m.HeapAllocBytes)},
		{"memory_heap_usage_percent", float64(m.HeapUsagePercent)},
		{"goroutines", float64(m.Goroutines)},
		{"gc_count", float64(m.GCCount)},
		{"gc_pause_total_ns", float64(m.GCPauseTotalNS)},
		{"process_id", float64(m.PID)},
	}
}

func (s *HealthService) Metrics() Metrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	usage := 0
	if m.HeapSys > 0 {
		usage = int(m.HeapAlloc * 100 / m.HeapSys)
	}
	return Metrics{
		Timestamp:        time.Now().UTC(),
		UptimeSeconds:    time.Since(s.Started).Seconds(),
		MemorySysBytes:   m.Sys,
		HeapSysBytes:     m.HeapSys,
		HeapAllocBytes:   m.HeapAlloc,
		HeapUsagePercent: usage,
		Goroutines:       runtime.NumGoroutine(),
		GCCount:          m.NumGC,
		GCPauseTotalNS:   m.PauseTotalNs,
		GoVersion:        runtime.Version(),
		PID:              os.Getpid(),
	}
}
