package backup

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCollectorCounters(t *testing.T) {
	m := NewMetricsCollector()

	m.RecordJobCreated()
	m.RecordJobCreated()
	m.RecordJobCompleted(1024)
	m.RecordJobFailed()
	m.RecordStageDuration("dump", 2*time.Second)
	m.RecordStageDuration("dump", time.Second)
	m.RecordSweep(3, 1)

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.JobsCreated)
	assert.Equal(t, int64(1), snap.JobsCompleted)
	assert.Equal(t, int64(1), snap.JobsFailed)
	assert.Equal(t, int64(1024), snap.BytesStored)
	assert.Equal(t, 3*time.Second, snap.StageDurations["dump"])
	assert.Equal(t, int64(1), snap.SweepsRun)
	assert.Equal(t, int64(3), snap.SweepTriggered)
	assert.Equal(t, int64(1), snap.SweepFailures)
	assert.NotNil(t, snap.LastSweepAt)
	assert.NotNil(t, snap.LastCompletedAt)
}

func TestMetricsCollectorEmptySnapshot(t *testing.T) {
	snap := NewMetricsCollector().Snapshot()

	assert.Zero(t, snap.JobsCreated)
	assert.Nil(t, snap.LastSweepAt)
	assert.Nil(t, snap.LastCompletedAt)
}

func TestMetricsCollectorConcurrentAccess(t *testing.T) {
	m := NewMetricsCollector()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.RecordJobCreated()
				m.RecordJobCompleted(1)
			}
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	assert.Equal(t, int64(1000), snap.JobsCreated)
	assert.Equal(t, int64(1000), snap.BytesStored)
}

func TestMetricsCollectorJSON(t *testing.T) {
	m := NewMetricsCollector()
	m.RecordJobCompleted(2048)

	data, err := m.JSON()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.EqualValues(t, 1, decoded["jobs_completed"])
	assert.EqualValues(t, 2048, decoded["bytes_stored"])
}
