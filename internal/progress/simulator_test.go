package progress

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStep(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 9},
		{9, 17.1},
		{85, 86},
		{89.5, 90},
		{90, 90},
		{95, 95},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, Step(tt.in), 1e-9, "Step(%v)", tt.in)
	}
}

func TestStep_MonotonicAndBounded(t *testing.T) {
	p := 0.0
	for i := 0; i < 200; i++ {
		next := Step(p)
		assert.GreaterOrEqual(t, next, p)
		assert.LessOrEqual(t, next, Ceiling)
		p = next
	}
	assert.Equal(t, Ceiling, p)
}

func TestSimulator_TicksThenFinishes(t *testing.T) {
	var mu sync.Mutex
	var seen []float64
	s := NewSimulator(time.Millisecond, func(v float64) {
		mu.Lock()
		seen = append(seen, v)
		mu.Unlock()
	})

	s.Start()
	assert.True(t, s.Running())
	assert.Eventually(t, func() bool { return s.Value() > 0 }, time.Second, time.Millisecond)

	s.Finish(true)
	assert.False(t, s.Running())
	assert.Equal(t, Complete, s.Value())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0.0, seen[0])
	assert.Equal(t, Complete, seen[len(seen)-1])
	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i], seen[i-1])
	}
}

func TestSimulator_FailureResetsToZero(t *testing.T) {
	s := NewSimulator(time.Millisecond, nil)

	s.Start()
	assert.Eventually(t, func() bool { return s.Value() > 0 }, time.Second, time.Millisecond)
	s.Finish(false)

	assert.Equal(t, 0.0, s.Value())
	assert.False(t, s.Running())
}

func TestSimulator_RestartAndIdleFinish(t *testing.T) {
	s := NewSimulator(0, nil)
	assert.Equal(t, DefaultInterval, s.interval)

	// Finishing an idle simulator must not block.
	s.Finish(true)
	assert.Equal(t, Complete, s.Value())

	s.Start()
	assert.Equal(t, 0.0, s.Value())
	s.Start()
	assert.True(t, s.Running())
	s.Finish(false)
}
