package logging

import "time"

// ProgressSampler throttles "processed N of M" logs to at most one per
// interval, always letting the final update through.
type ProgressSampler struct {
	interval time.Duration
	now      func() time.Time
	start    time.Time
	next     time.Duration
}

// NewProgressSampler constructs a sampler that emits once per interval
// (default 2s) measured from the first call to Start.
func NewProgressSampler(interval time.Duration) *ProgressSampler {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &ProgressSampler{interval: interval, now: time.Now}
}

// Start records the reference time. Calling ShouldLog without Start starts
// the clock implicitly.
func (s *ProgressSampler) Start() {
	if s == nil {
		return
	}
	s.start = s.now()
	s.next = s.interval
}

// Elapsed returns the time since Start.
func (s *ProgressSampler) Elapsed() time.Duration {
	if s == nil || s.start.IsZero() {
		return 0
	}
	return s.now().Sub(s.start)
}

// ShouldLog reports whether a progress update for processed of total should
// be logged now.
func (s *ProgressSampler) ShouldLog(processed, total int) bool {
	if s == nil {
		return true
	}
	if s.start.IsZero() {
		s.Start()
	}
	if total > 0 && processed >= total {
		return true
	}
	elapsed := s.Elapsed()
	if elapsed < s.next {
		return false
	}
	for s.next <= elapsed {
		s.next += s.interval
	}
	return true
}
