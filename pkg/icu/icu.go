// Package icu is an input capture unit: it latches the value of a running
// tick counter at the moment a configured edge appears on an input line and
// then calls a registered handler.
package icu

import (
	"errors"
	"time"

	"usdist/pkg/port"
)

var ErrInvalidPrescaler = errors.New("invalid prescaler")

// Prescaler divides the clock source of the tick counter.
type Prescaler uint16

// The prescaler values of the reference 16-bit capture unit.
const (
	NoPrescaling Prescaler = 1
	Prescale8    Prescaler = 8
	Prescale64   Prescaler = 64
	Prescale256  Prescaler = 256
	Prescale1024 Prescaler = 1024
)

// Valid reports whether p is one of the supported prescaler values.
func (p Prescaler) Valid() bool {
	switch p {
	case NoPrescaling, Prescale8, Prescale64, Prescale256, Prescale1024:
		return true
	}
	return false
}

// ParsePrescaler validates an integer prescaler read from a configuration.
func ParsePrescaler(v int) (Prescaler, error) {
	p := Prescaler(v)
	if v <= 0 || v > 1024 || !p.Valid() {
		return 0, ErrInvalidPrescaler
	}
	return p, nil
}

// Tick returns the duration of one counter tick for a clock of clockHz.
func (p Prescaler) Tick(clockHz uint32) time.Duration {
	if clockHz == 0 {
		return 0
	}
	return time.Duration(p) * time.Second / time.Duration(clockHz)
}

// Config is the static configuration of a capture unit.
type Config struct {
	// ClockHz is the frequency of the clock source before prescaling.
	ClockHz uint32
	// Prescaler divides ClockHz.
	Prescaler Prescaler
	// Edge is the first edge to capture.
	Edge port.Edge
}

// Tick returns the counter resolution of the configuration.
func (c Config) Tick() time.Duration {
	return c.Prescaler.Tick(c.ClockHz)
}

// Timer is the capture unit as seen by a consumer.
//
// Init must be called exactly once before any capture can be delivered;
// edges seen before Init are dropped. Handlers registered with SetCallback
// run on the capture goroutine, one at a time per unit, and must not block.
type Timer interface {
	// Init sets the counting rate and the first edge to detect and enables
	// capturing.
	Init(cfg Config)
	// SetCallback installs the capture handler, replacing any previous one.
	SetCallback(handler func())
	// ClearCounter restarts the running counter at zero.
	ClearCounter()
	// SetEdge selects the edge that triggers the next capture.
	SetEdge(edge port.Edge)
	// CapturedValue returns the counter value latched by the most recent
	// capture. The value is unspecified before the first capture.
	CapturedValue() uint16
}
