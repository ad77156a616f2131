// Package emu emulates an HC-SR04 sensor for running without hardware.
//
// The trigger pin and the echo line are handed out like the pins of a gpio
// driver. A high to low transition of the trigger produces a rising edge on
// the echo line and, unless the echo is suppressed, a falling edge whose
// distance in time encodes the configured object distance. Timestamps are
// synthetic, so the width of the emulated pulse is exact.
package emu

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"usdist/pkg/port"
	"usdist/pkg/raspberry"
)

var ErrUnknownPin = errors.New("pin not wired to the emulated sensor")

const (
	// responseDelay is the time between trigger and echo start of the sensor.
	responseDelay = 450 * time.Microsecond
	// cycle separates the timestamps of two measurements.
	cycle = 60 * time.Millisecond
	// MaxEcho is the echo pulse width of the sensor when nothing is detected.
	MaxEcho = 38 * time.Millisecond
)

// Sensor is an emulated HC-SR04 wired to a trigger and an echo pin.
type Sensor struct {
	trigger, echo int
	// speed of sound in m/s
	speed uint32

	mu       sync.Mutex
	distance float64
	silent   bool
	now      time.Duration
	level    port.Level
	triggers int

	line *echoLine
}

// New creates an emulated sensor placing an object at distance cm.
func New(trigger, echo int, distance float64, speedOfSound uint32) *Sensor {
	return &Sensor{trigger: trigger, echo: echo, distance: distance, speed: speedOfSound}
}

// SetDistance moves the emulated object to d cm.
func (s *Sensor) SetDistance(d float64) {
	s.mu.Lock()
	s.distance = d
	s.mu.Unlock()
}

// SetSilent suppresses the falling edge of the echo, as if the
// sensor never finished its measurement.
func (s *Sensor) SetSilent(silent bool) {
	s.mu.Lock()
	s.silent = silent
	s.mu.Unlock()
}

// Triggers returns the number of trigger pulses seen.
func (s *Sensor) Triggers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.triggers
}

// Echo returns the echo pulse width for the current distance.
func (s *Sensor) Echo() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.echoLocked()
}

func (s *Sensor) echoLocked() time.Duration {
	if s.speed == 0 || s.distance <= 0 {
		return 0
	}

	// distance in cm, speed in m/s: 2*d/100/v seconds
	w := time.Duration(2 * s.distance / 100 / float64(s.speed) * float64(time.Second))
	if w > MaxEcho {
		w = MaxEcho
	}
	return w
}

// NewPin returns the trigger pin.
func (s *Sensor) NewPin(p int) (raspberry.Pin, error) {
	if p != s.trigger {
		return nil, fmt.Errorf("%w: %v", ErrUnknownPin, p)
	}
	return &triggerPin{s: s}, nil
}

// NewEdgeLine returns the echo line.
func (s *Sensor) NewEdgeLine(p int, _ string) (raspberry.EdgeLine, error) {
	if p != s.echo {
		return nil, fmt.Errorf("%w: %v", ErrUnknownPin, p)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.line != nil {
		return nil, fmt.Errorf("%w: %v", raspberry.ErrPinInUse, p)
	}
	s.line = &echoLine{pin: p, C: make(chan port.Event, 8)}
	return s.line, nil
}

// Close releases the echo line.
func (s *Sensor) Close() error {
	s.mu.Lock()
	l := s.line
	s.mu.Unlock()

	if l != nil {
		return l.Close()
	}
	return nil
}

// write handles a level change of the trigger.
func (s *Sensor) write(l port.Level) {
	s.mu.Lock()
	prev := s.level
	s.level = l
	if prev != port.High || l != port.Low {
		s.mu.Unlock()
		return
	}

	s.triggers++
	s.now += cycle
	start := s.now + responseDelay
	width := s.echoLocked()
	silent := s.silent
	line := s.line
	s.mu.Unlock()

	if line == nil {
		return
	}
	line.send(port.Event{Type: port.EdgeRising, Timestamp: start})
	if !silent {
		line.send(port.Event{Type: port.EdgeFalling, Timestamp: start + width})
	}
}

// triggerPin is the trigger input of the emulated sensor.
type triggerPin struct {
	s *Sensor
}

func (p *triggerPin) Pin() int { return p.s.trigger }
func (p *triggerPin) Output()  {}
func (p *triggerPin) Input()   {}

func (p *triggerPin) Write(l port.Level) { p.s.write(l) }

func (p *triggerPin) Read() port.Level {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	return p.s.level
}

func (p *triggerPin) Close() error { return nil }

// echoLine is the echo output of the emulated sensor.
type echoLine struct {
	pin    int
	mu     sync.Mutex
	closed bool
	drops  uint32
	C      chan port.Event
}

func (l *echoLine) Pin() int { return l.pin }

func (l *echoLine) Events() <-chan port.Event { return l.C }

// send drops the event when nobody consumes the line, like a missed interrupt.
func (l *echoLine) send(e port.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	select {
	case l.C <- e:
	default:
		l.drops++
	}
}

// Drops returns the number of events nobody consumed.
func (l *echoLine) Drops() uint32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.drops
}

func (l *echoLine) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.closed {
		l.closed = true
		close(l.C)
	}
	return nil
}
