// Package progress simulates a percentage for long-running statement parsing,
// where the remote model reports no real progress.
package progress

import (
	"sync"
	"time"
)

const (
	// DefaultInterval is the tick period of the simulation.
	DefaultInterval = 300 * time.Millisecond

	// Ceiling is where the simulation stalls until the operation finishes.
	Ceiling = 90.0

	// Complete is the value reported once the operation succeeds.
	Complete = 100.0
)

// Step advances p by one tick: a tenth of the remaining distance to the
// ceiling, at least one point, never past the ceiling.
func Step(p float64) float64 {
	if p >= Ceiling {
		return p
	}
	inc := (Ceiling - p) / 10
	if inc < 1 {
		inc = 1
	}
	if p+inc > Ceiling {
		return Ceiling
	}
	return p + inc
}

// Simulator drives a monotonically increasing percentage on a wall-clock ticker.
type Simulator struct {
	interval time.Duration
	onChange func(float64)

	mu    sync.Mutex
	value float64
	stop  chan struct{}
	done  chan struct{}
}

// NewSimulator creates a stopped simulator. onChange, if set, is called after
// every value change from the ticking goroutine or the caller.
func NewSimulator(interval time.Duration, onChange func(float64)) *Simulator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Simulator{interval: interval, onChange: onChange}
}

// Start resets the value to zero and begins ticking. Calling Start while
// running restarts the simulation.
func (s *Simulator) Start() {
	s.halt()

	s.mu.Lock()
	s.value = 0
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stop, s.done
	s.mu.Unlock()

	s.notify(0)
	go s.run(stop, done)
}

// Finish stops ticking and reports 100 on success or 0 on failure.
func (s *Simulator) Finish(success bool) {
	s.halt()

	v := 0.0
	if success {
		v = Complete
	}
	s.mu.Lock()
	s.value = v
	s.mu.Unlock()
	s.notify(v)
}

// Value returns the current percentage.
func (s *Simulator) Value() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Running reports whether the ticker is active.
func (s *Simulator) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

func (s *Simulator) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			next := Step(s.value)
			changed := next != s.value
			s.value = next
			s.mu.Unlock()
			if changed {
				s.notify(next)
			}
		}
	}
}

// halt stops a running ticker and waits for its goroutine to exit.
func (s *Simulator) halt() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (s *Simulator) notify(v float64) {
	if s.onChange != nil {
		s.onChange(v)
	}
}
