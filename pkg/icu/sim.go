package icu

import (
	"sync"

	"usdist/pkg/port"
)

// Sim is a software capture unit. The counter only moves when told to, so
// tests can place edges at exact tick counts.
type Sim struct {
	mu       sync.Mutex
	cfg      Config
	enabled  bool
	edge     port.Edge
	counter  uint16
	captured uint16
	callback func()
	clears   int
}

// NewSim returns a disabled simulated capture unit.
func NewSim() *Sim {
	return &Sim{}
}

// Init implements Timer.
func (s *Sim) Init(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg = cfg
	s.edge = cfg.Edge
	s.enabled = true
}

// SetCallback implements Timer.
func (s *Sim) SetCallback(handler func()) {
	s.mu.Lock()
	s.callback = handler
	s.mu.Unlock()
}

// ClearCounter implements Timer.
func (s *Sim) ClearCounter() {
	s.mu.Lock()
	s.counter = 0
	s.clears++
	s.mu.Unlock()
}

// SetEdge implements Timer.
func (s *Sim) SetEdge(edge port.Edge) {
	s.mu.Lock()
	s.edge = edge
	s.mu.Unlock()
}

// CapturedValue implements Timer.
func (s *Sim) CapturedValue() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captured
}

// Advance moves the counter forward by ticks, wrapping at 16 bits.
func (s *Sim) Advance(ticks uint16) {
	s.mu.Lock()
	s.counter += ticks
	s.mu.Unlock()
}

// SetCounter sets the running counter.
func (s *Sim) SetCounter(v uint16) {
	s.mu.Lock()
	s.counter = v
	s.mu.Unlock()
}

// Counter returns the running counter.
func (s *Sim) Counter() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter
}

// Edge returns the edge armed for the next capture.
func (s *Sim) Edge() port.Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.edge
}

// Config returns the configuration passed to Init.
func (s *Sim) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Clears returns how many times ClearCounter was called.
func (s *Sim) Clears() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clears
}

// Capture presents an edge to the unit. If the unit is enabled and armed
// for that edge the counter is latched, the handler runs and Capture
// returns true.
func (s *Sim) Capture(edge port.Edge) bool {
	s.mu.Lock()
	if !s.enabled || (s.edge != port.EdgeBoth && s.edge != edge) {
		s.mu.Unlock()
		return false
	}
	s.captured = s.counter
	cb := s.callback
	s.mu.Unlock()

	if cb != nil {
		cb()
	}
	return true
}
