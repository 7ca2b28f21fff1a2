package capture

import "time"

// fpsEstimator counts frames and produces a rate once per interval.
type fpsEstimator struct {
	interval time.Duration
	start    time.Time
	count    int
}

func newFPSEstimator(interval time.Duration, now time.Time) *fpsEstimator {
	if interval <= 0 {
		interval = time.Second
	}
	return &fpsEstimator{interval: interval, start: now}
}

// observe adds frames and, when at least one interval has passed since the
// window opened, returns count/elapsed and starts a new window.
func (e *fpsEstimator) observe(now time.Time, frames int) (float64, bool) {
	e.count += frames
	elapsed := now.Sub(e.start)
	if elapsed < e.interval {
		return 0, false
	}
	fps := float64(e.count) / elapsed.Seconds()
	e.count = 0
	e.start = now
	return fps, true
}
