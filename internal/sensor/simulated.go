package sensor

import (
	"math"
	"math/rand"
	"sync"
)

// Simulation constants: a room around 25 °C with slow drift and jitter.
const (
	simBase   = 25.0
	simDrift  = 2.0
	simJitter = 0.5
)

// SimulatedSensor produces plausible room temperatures without hardware.
// The random source is seeded so runs are reproducible when needed.
type SimulatedSensor struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSimulatedSensor creates a SimulatedSensor with the given seed.
func NewSimulatedSensor(seed int64) *SimulatedSensor {
	return &SimulatedSensor{rnd: rand.New(rand.NewSource(seed))}
}

// Read returns base ± drift ± jitter, rounded to two decimal places.
func (s *SimulatedSensor) Read() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := simBase + s.uniform(simDrift)
	v := base + s.uniform(simJitter)
	return math.Round(v*100) / 100, nil
}

// uniform returns a value in [-span, span).
func (s *SimulatedSensor) uniform(span float64) float64 {
	return (s.rnd.Float64()*2 - 1) * span
}
