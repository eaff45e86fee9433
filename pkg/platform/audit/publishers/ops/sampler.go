package ops

import (
	"math/rand/v2"
	"sync"
)

// Sampler keeps a fraction of ops events per action. High-volume actions
// such as routine attempt creation can be thinned without losing rare ones.
type Sampler struct {
	mu           sync.RWMutex
	defaultRate  float64
	rateByAction map[string]float64
	roll         func() float64
}

func clamp(rate float64) float64 {
	return min(max(rate, 0), 1)
}

func NewSampler(defaultRate float64) *Sampler {
	return &Sampler{
		defaultRate:  clamp(defaultRate),
		rateByAction: make(map[string]float64),
		roll:         rand.Float64,
	}
}

// SetRate overrides the default rate for one action.
func (s *Sampler) SetRate(action string, rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateByAction[action] = clamp(rate)
}

// Keep reports whether an event for action should be recorded.
func (s *Sampler) Keep(action string) bool {
	s.mu.RLock()
	rate, ok := s.rateByAction[action]
	if !ok {
		rate = s.defaultRate
	}
	s.mu.RUnlock()
	switch rate {
	case 0:
		return false
	case 1:
		return true
	}
	return s.roll() < rate
}
