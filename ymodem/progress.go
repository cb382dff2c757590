package ymodem

import (
	"sync"
	"time"
)

// ProgressTracker rate-limits progress callbacks for a single file.
type ProgressTracker struct {
	mu sync.Mutex

	filename         string
	bytesTransferred int64
	bytesTotal       int64
	startTime        time.Time
	lastUpdate       time.Time
	lastBytes        int64

	clock          Clock
	callback       func(string, int64, int64, float64)
	updateInterval time.Duration
}

// NewProgressTracker creates a new progress tracker. A nil clock means SystemClock.
func NewProgressTracker(callback func(string, int64, int64, float64), interval time.Duration, clock Clock) *ProgressTracker {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	if clock == nil {
		clock = SystemClock{}
	}

	return &ProgressTracker{
		clock:          clock,
		callback:       callback,
		updateInterval: interval,
	}
}

// Start begins tracking a new file transfer.
func (pt *ProgressTracker) Start(filename string, bytesTotal int64) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	pt.filename = filename
	pt.bytesTotal = bytesTotal
	pt.bytesTransferred = 0
	pt.startTime = pt.clock.Now()
	pt.lastUpdate = pt.startTime
	pt.lastBytes = 0
}

// Add records n more acknowledged bytes and reports if the interval has passed.
func (pt *ProgressTracker) Add(n int64) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	pt.bytesTransferred += n

	now := pt.clock.Now()
	if now.Sub(pt.lastUpdate) < pt.updateInterval {
		return
	}

	elapsed := now.Sub(pt.lastUpdate).Seconds()
	var rate float64
	if elapsed > 0 {
		rate = float64(pt.bytesTransferred-pt.lastBytes) / elapsed
	}

	if pt.callback != nil {
		pt.callback(pt.filename, pt.bytesTransferred, pt.bytesTotal, rate)
	}

	pt.lastUpdate = now
	pt.lastBytes = pt.bytesTransferred
}

// Complete sends a final update and returns the transfer duration.
func (pt *ProgressTracker) Complete() time.Duration {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	duration := pt.clock.Now().Sub(pt.startTime)

	if pt.callback != nil {
		var rate float64
		if duration > 0 {
			rate = float64(pt.bytesTransferred) / duration.Seconds()
		}
		pt.callback(pt.filename, pt.bytesTransferred, pt.bytesTotal, rate)
	}

	return duration
}

// Transferred returns the bytes recorded so far.
func (pt *ProgressTracker) Transferred() int64 {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.bytesTransferred
}
