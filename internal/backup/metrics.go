package backup

import (
	"encoding/json"
	"sync"
	"time"
)

// MetricsCollector accumulates in-process counters for backup operations.
// It is safe for concurrent use by the worker pool and the sweep loop.
type MetricsCollector struct {
	mu sync.Mutex

	jobsCreated   int64
	jobsCompleted int64
	jobsFailed    int64
	bytesStored   int64

	sweepsRun       int64
	sweepTriggered  int64
	sweepFailures   int64
	lastSweepAt     time.Time
	lastCompletedAt time.Time

	stageDurations map[string]time.Duration
}

// MetricsSnapshot is a point-in-time copy of the collected counters
type MetricsSnapshot struct {
	JobsCreated     int64                    `json:"jobs_created"`
	JobsCompleted   int64                    `json:"jobs_completed"`
	JobsFailed      int64                    `json:"jobs_failed"`
	BytesStored     int64                    `json:"bytes_stored"`
	SweepsRun       int64                    `json:"sweeps_run"`
	SweepTriggered  int64                    `json:"sweep_triggered"`
	SweepFailures   int64                    `json:"sweep_failures"`
	LastSweepAt     *time.Time               `json:"last_sweep_at,omitempty"`
	LastCompletedAt *time.Time               `json:"last_completed_at,omitempty"`
	StageDurations  map[string]time.Duration `json:"stage_durations,omitempty"`
}

// NewMetricsCollector creates an empty MetricsCollector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		stageDurations: make(map[string]time.Duration),
	}
}

// RecordJobCreated counts one accepted backup request
func (m *MetricsCollector) RecordJobCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobsCreated++
}

// RecordJobCompleted counts one completed pipeline and its artifact size
func (m *MetricsCollector) RecordJobCompleted(sizeBytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobsCompleted++
	m.bytesStored += sizeBytes
	m.lastCompletedAt = time.Now()
}

// RecordJobFailed counts one failed pipeline
func (m *MetricsCollector) RecordJobFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobsFailed++
}

// RecordStageDuration accumulates time spent in a pipeline stage
func (m *MetricsCollector) RecordStageDuration(stage string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stageDurations[stage] += d
}

// RecordSweep counts one scheduler sweep and its outcomes
func (m *MetricsCollector) RecordSweep(triggered, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepsRun++
	m.sweepTriggered += int64(triggered)
	m.sweepFailures += int64(failed)
	m.lastSweepAt = time.Now()
}

// Snapshot returns a copy of the current counters
func (m *MetricsCollector) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := MetricsSnapshot{
		JobsCreated:    m.jobsCreated,
		JobsCompleted:  m.jobsCompleted,
		JobsFailed:     m.jobsFailed,
		BytesStored:    m.bytesStored,
		SweepsRun:      m.sweepsRun,
		SweepTriggered: m.sweepTriggered,
		SweepFailures:  m.sweepFailures,
		StageDurations: make(map[string]time.Duration, len(m.stageDurations)),
	}
	for stage, d := range m.stageDurations {
		snap.StageDurations[stage] = d
	}
	if !m.lastSweepAt.IsZero() {
		t := m.lastSweepAt
		snap.LastSweepAt = &t
	}
	if !m.lastCompletedAt.IsZero() {
		t := m.lastCompletedAt
		snap.LastCompletedAt = &t
	}
	return snap
}

// JSON renders the snapshot as indented JSON for operator inspection
func (m *MetricsCollector) JSON() ([]byte, error) {
	return json.MarshalIndent(m.Snapshot(), "", "  ")
}
