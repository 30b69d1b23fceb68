package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_EmptySnapshot(t *testing.T) {
	snap := NewCollector().Snapshot()

	assert.Nil(t, snap.Sliced)
	assert.Nil(t, snap.Skipped)
	assert.Nil(t, snap.Failed)
	assert.Nil(t, snap.Hierarchy)
	assert.GreaterOrEqual(t, snap.ElapsedSeconds, 0.0)
}

func TestCollector_RecordWrite(t *testing.T) {
	c := NewCollector()
	c.RecordWrite(OpSliced, 10*time.Millisecond, 1024, 200)
	c.RecordWrite(OpSliced, 30*time.Millisecond, 2048, 150)
	c.RecordTiming(OpSkipped, time.Millisecond)

	snap := c.Snapshot()
	require.NotNil(t, snap.Sliced)
	assert.Equal(t, int64(2), snap.Sliced.Count)
	assert.Equal(t, int64(40), snap.Sliced.TotalTimeMs)
	assert.Equal(t, 20.0, snap.Sliced.AvgTimeMs)
	assert.Equal(t, int64(10), snap.Sliced.MinTimeMs)
	assert.Equal(t, int64(30), snap.Sliced.MaxTimeMs)
	assert.Equal(t, int64(3072), snap.Sliced.TotalBytes)
	assert.Equal(t, int64(350), snap.Sliced.TotalProps)

	require.NotNil(t, snap.Skipped)
	assert.Equal(t, int64(1), snap.Skipped.Count)
	assert.Zero(t, snap.Skipped.TotalBytes)
	assert.Nil(t, snap.Failed)
}

func TestCollector_Concurrent(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordWrite(OpHierarchy, time.Millisecond, 10, 1)
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	require.NotNil(t, snap.Hierarchy)
	assert.Equal(t, int64(50), snap.Hierarchy.Count)
	assert.Equal(t, int64(500), snap.Hierarchy.TotalBytes)
}
