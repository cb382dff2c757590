package ymodem

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type progressCall struct {
	name        string
	transferred int64
	total       int64
	rate        float64
}

func TestProgressTrackerRateLimits(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	var calls []progressCall
	pt := NewProgressTracker(func(name string, transferred, total int64, rate float64) {
		calls = append(calls, progressCall{name, transferred, total, rate})
	}, time.Second, clock)

	pt.Start("fw.bin", 4096)
	pt.Add(1024)
	assert.Empty(t, calls, "no update before the interval")

	clock.Advance(time.Second)
	pt.Add(1024)
	require.Len(t, calls, 1)
	assert.Equal(t, progressCall{"fw.bin", 2048, 4096, 2048}, calls[0])

	clock.Advance(2 * time.Second)
	pt.Add(1024)
	require.Len(t, calls, 2)
	assert.Equal(t, int64(3072), calls[1].transferred)
	assert.InDelta(t, 512, calls[1].rate, 0.001)
	assert.Equal(t, int64(3072), pt.Transferred())
}

func TestProgressTrackerComplete(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	var calls []progressCall
	pt := NewProgressTracker(func(name string, transferred, total int64, rate float64) {
		calls = append(calls, progressCall{name, transferred, total, rate})
	}, 0, clock)

	pt.Start("fw.bin", 0)
	pt.Add(500)
	clock.Advance(4 * time.Second)
	pt.Add(500)

	duration := pt.Complete()
	assert.Equal(t, 4*time.Second, duration)
	require.NotEmpty(t, calls)
	last := calls[len(calls)-1]
	assert.Equal(t, int64(1000), last.transferred)
	assert.InDelta(t, 250, last.rate, 0.001)
}

func TestProgressTrackerRestart(t *testing.T) {
	t.Parallel()
	pt := NewProgressTracker(nil, time.Millisecond, newFakeClock())
	pt.Start("a", 10)
	pt.Add(10)
	pt.Start("b", 20)
	assert.Zero(t, pt.Transferred())
	assert.Zero(t, pt.Complete())
}
