// Package ultrasonic drives an HC-SR04 style echo sensor.
//
// A measurement cycle has two halves. A trigger pulse makes the sensor emit a
// burst and raise its echo output until the reflection returns. The capture
// unit reports the rising edge of the echo, the sensor restarts the counter
// and arms the falling edge; the falling edge latches the counter, which is
// the echo pulse width in ticks.
//
// The width is written from the capture goroutine and read by the caller of
// ReadDistance without locking. A read that races a capture in progress
// returns the width of the previous cycle, never a partial one.
package ultrasonic

import (
	"sync/atomic"
	"time"

	"usdist/pkg/icu"
	"usdist/pkg/port"
	"usdist/pkg/timing"
)

// DefaultTriggerPulse is the trigger pulse width; the sensor needs at least 10 µs.
const DefaultTriggerPulse = 10 * time.Microsecond

// Phase tells which edge of the echo pulse is timed next.
type Phase uint32

const (
	AwaitingRisingEdge Phase = iota
	AwaitingFallingEdge
)

func (p Phase) String() string {
	if p == AwaitingFallingEdge {
		return "awaiting falling edge"
	}
	return "awaiting rising edge"
}

// Output is the trigger line of the sensor.
type Output interface {
	// Output sets the pin direction to output.
	Output()
	// Write drives the pin.
	Write(l port.Level)
}

// Config holds the compile time constants of the reference design.
type Config struct {
	ClockHz      uint32
	Prescaler    icu.Prescaler
	TriggerPulse time.Duration
	// SpeedOfSound in m/s.
	SpeedOfSound uint32
}

// DefaultConfig is an 8 MHz clock divided by 8, giving a 1 µs tick.
func DefaultConfig() Config {
	return Config{
		ClockHz:      8_000_000,
		Prescaler:    icu.Prescale8,
		TriggerPulse: DefaultTriggerPulse,
		SpeedOfSound: DefaultSpeedOfSound,
	}
}

// Sensor is the echo timing state machine.
type Sensor struct {
	timer   icu.Timer
	trigger Output
	delay   timing.Delayer
	cfg     Config
	conv    Converter

	// phase is only changed by OnEdgeCaptured
	phase atomic.Uint32
	// width is the last completed echo pulse width in ticks
	width atomic.Uint32
	// cycles counts completed echo pulses
	cycles atomic.Uint32
}

// New creates a sensor. Zero config values are replaced by DefaultConfig.
func New(timer icu.Timer, trigger Output, delay timing.Delayer, cfg Config) *Sensor {
	def := DefaultConfig()
	if cfg.ClockHz == 0 {
		cfg.ClockHz = def.ClockHz
	}
	if cfg.Prescaler == 0 {
		cfg.Prescaler = def.Prescaler
	}
	if cfg.TriggerPulse == 0 {
		cfg.TriggerPulse = def.TriggerPulse
	}
	if cfg.SpeedOfSound == 0 {
		cfg.SpeedOfSound = def.SpeedOfSound
	}

	return &Sensor{
		timer:   timer,
		trigger: trigger,
		delay:   delay,
		cfg:     cfg,
		conv:    NewConverter(cfg.Prescaler.Tick(cfg.ClockHz), cfg.SpeedOfSound),
	}
}

// Init configures the capture unit for the rising edge, registers the edge
// handler and drives the trigger line low. It must run once, after the edge
// source of the capture unit is able to deliver events.
func (s *Sensor) Init() {
	s.timer.Init(icu.Config{
		ClockHz:   s.cfg.ClockHz,
		Prescaler: s.cfg.Prescaler,
		Edge:      port.EdgeRising,
	})
	s.timer.SetCallback(s.OnEdgeCaptured)

	s.trigger.Output()
	s.trigger.Write(port.Low)
}

// Trigger sends the trigger pulse.
func (s *Sensor) Trigger() {
	s.trigger.Write(port.High)
	s.delay.Delay(s.cfg.TriggerPulse)
	s.trigger.Write(port.Low)
}

// ReadDistance triggers a new measurement and returns the distance in cm of
// the most recently completed echo, which is usually the one of the
// previous trigger.
func (s *Sensor) ReadDistance() uint16 {
	s.Trigger()
	return s.Distance()
}

// Distance returns the distance in cm of the last completed echo.
func (s *Sensor) Distance() uint16 {
	return s.conv.Centimeters(s.PulseWidth())
}

// OnEdgeCaptured is the capture handler.
func (s *Sensor) OnEdgeCaptured() {
	switch Phase(s.phase.Load()) {
	case AwaitingRisingEdge:
		s.timer.ClearCounter()
		s.timer.SetEdge(port.EdgeFalling)
		s.phase.Store(uint32(AwaitingFallingEdge))
	case AwaitingFallingEdge:
		s.width.Store(uint32(s.timer.CapturedValue()))
		s.cycles.Add(1)
		s.timer.SetEdge(port.EdgeRising)
		s.phase.Store(uint32(AwaitingRisingEdge))
	}
}

// Phase returns the current phase of the state machine.
func (s *Sensor) Phase() Phase {
	return Phase(s.phase.Load())
}

// PulseWidth returns the last completed echo pulse width in ticks.
func (s *Sensor) PulseWidth() uint16 {
	return uint16(s.width.Load())
}

// Cycles returns the number of completed echo pulses.
func (s *Sensor) Cycles() uint32 {
	return s.cycles.Load()
}

// Converter returns the tick to centimetre conversion in use.
func (s *Sensor) Converter() Converter {
	return s.conv
}
