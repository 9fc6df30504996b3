package overlay

import (
	"sync"
	"sync/atomic"
	"time"
)

// statsHistorySize bounds the per-session draw duration history.
const statsHistorySize = 100

// statsEnabled is the process-wide statistics toggle. Capture is
// enabled by default; hosts that want the last bit of per-frame cost
// back can turn it off at startup.
var statsEnabled atomic.Bool

func init() {
	statsEnabled.Store(true)
}

// SetStatisticsEnabled toggles draw-time statistics capture globally.
// When disabled, the dispatcher skips timing capture entirely.
//
// SetStatisticsEnabled is safe for concurrent use, but is intended to
// be called once at startup.
func SetStatisticsEnabled(enabled bool) {
	statsEnabled.Store(enabled)
}

// StatisticsEnabled reports whether draw-time statistics capture is on.
func StatisticsEnabled() bool {
	return statsEnabled.Load()
}

// DrawStats is a bounded ring of draw duration samples for one
// session. It is diagnostic only: the dispatcher never makes control
// decisions from it.
//
// DrawStats is safe for concurrent use.
type DrawStats struct {
	mu   sync.Mutex
	buf  [statsHistorySize]time.Duration
	head int // index of the next write
	n    int // number of valid samples
	last time.Duration
	max  time.Duration
}

// record appends a sample, evicting the oldest once the history is
// full.
func (s *DrawStats) record(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf[s.head] = d
	s.head = (s.head + 1) % statsHistorySize
	if s.n < statsHistorySize {
		s.n++
	}
	s.last = d
	if d > s.max {
		s.max = d
	}
}

// Last returns the most recent draw duration.
func (s *DrawStats) Last() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Max returns the largest draw duration ever recorded.
func (s *DrawStats) Max() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.max
}

// Len returns the number of samples currently held (at most 100).
func (s *DrawStats) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

// Samples returns the history, oldest first.
func (s *DrawStats) Samples() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, s.n)
	start := s.head - s.n
	if start < 0 {
		start += statsHistorySize
	}
	for i := 0; i < s.n; i++ {
		out[i] = s.buf[(start+i)%statsHistorySize]
	}
	return out
}
