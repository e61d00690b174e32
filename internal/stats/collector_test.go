package stats

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorConcurrent(t *testing.T) {
	c := NewCollector()
	const goroutines = 100
	const opsPerGoroutine = 1000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			for range opsPerGoroutine {
				c.AddFilesCopied(1)
				c.AddFilesFailed(1)
				c.AddFilesSkipped(1)
				c.AddBytesCopied(256)
				c.AddBytesPunched(4096)
				c.AddHolesPunched(1)
			}
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	expected := int64(goroutines * opsPerGoroutine)
	assert.Equal(t, expected, s.FilesCopied)
	assert.Equal(t, expected, s.FilesFailed)
	assert.Equal(t, expected, s.FilesSkipped)
	assert.Equal(t, expected*256, s.BytesCopied)
	assert.Equal(t, expected*4096, s.BytesPunched)
	assert.Equal(t, expected, s.HolesPunched)
}

func TestSnapshotString(t *testing.T) {
	s := Snapshot{
		FilesCopied:  8,
		FilesFailed:  1,
		FilesSkipped: 1,
		BytesCopied:  4096,
		HolesPunched: 3,
		BytesPunched: 1 << 20,
	}
	expected := "copied=8 failed=1 skipped=1 bytes=4096 holes=3 punched=1048576"
	assert.Equal(t, expected, s.String())
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		expected string
		input    int64
	}{
		{"0 B", 0},
		{"512 B", 512},
		{"1.0 KiB", 1024},
		{"1.5 KiB", 1536},
		{"1.0 MiB", 1048576},
		{"1.0 GiB", 1073741824},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			require.Equal(t, tt.expected, FormatBytes(tt.input))
		})
	}
}

func TestSetTotals(t *testing.T) {
	c := NewCollector()
	c.SetTotals(100, 1024*1024)
	s := c.Snapshot()
	assert.Equal(t, int64(100), s.FilesTotal)
	assert.Equal(t, int64(1024*1024), s.BytesTotal)
}

func TestTickAndRollingSpeed(t *testing.T) {
	c := NewCollector()

	for range 5 {
		c.AddBytesCopied(1000)
		c.Tick()
	}
	assert.InDelta(t, 1000.0, c.RollingSpeed(5), 0.01)
}

func TestRollingSpeedPartialWindow(t *testing.T) {
	c := NewCollector()

	c.AddBytesCopied(500)
	c.Tick()
	c.AddBytesCopied(500)
	c.Tick()

	// Ask for 10 but only have 2.
	assert.InDelta(t, 500.0, c.RollingSpeed(10), 0.01)
}

func TestRollingSpeedNoSamples(t *testing.T) {
	c := NewCollector()
	assert.Equal(t, 0.0, c.RollingSpeed(5))
}

func TestRingWraparound(t *testing.T) {
	c := NewCollector()
	for range ringSize + 10 {
		c.AddBytesCopied(100)
		c.Tick()
	}
	assert.InDelta(t, 100.0, c.RollingSpeed(ringSize), 0.01)
}

func TestETA(t *testing.T) {
	c := NewCollector()
	c.SetTotals(1, 12000)
	c.AddBytesPunched(2000)

	for range 5 {
		c.AddBytesCopied(1000)
		c.Tick()
	}

	// 12000 - 5000 copied - 2000 punched at 1000/s.
	assert.InDelta(t, 5.0, c.ETA().Seconds(), 1.0)
}

func TestETANoSpeed(t *testing.T) {
	c := NewCollector()
	c.SetTotals(100, 10000)
	assert.Equal(t, time.Duration(0), c.ETA())
}

func TestSnapshotIncludesElapsed(t *testing.T) {
	c := NewCollector()
	time.Sleep(10 * time.Millisecond)
	assert.Greater(t, c.Snapshot().Elapsed, time.Duration(0))
}

func TestSparklineData(t *testing.T) {
	c := NewCollector()
	assert.Empty(t, c.SparklineData(5))

	for i := range 3 {
		c.AddBytesCopied(int64(i+1) * 100)
		c.Tick()
	}
	assert.Equal(t, []int64{100, 200, 300}, c.SparklineData(5))
	assert.Equal(t, []int64{200, 300}, c.SparklineData(2))
}
