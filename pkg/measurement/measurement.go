// Package measurement checks the readings of the echo sensor.
//
// The sensor itself never reports a failure: without an echo it keeps
// returning the last distance. Handler wraps it and tells the caller
// when a reading is stale or outside the range of the sensor.
package measurement

import (
	"errors"
	"time"
)

var (
	ErrNoEcho     = errors.New("no echo since last measurement")
	ErrOutOfRange = errors.New("distance out of sensor range")
)

const (
	// Unit of all distances.
	Unit = "cm"

	// measuring range of the HC-SR04 in cm
	dMin = 2
	dMax = 400
)

// Ranger is the echo sensor.
type Ranger interface {
	// ReadDistance triggers a measurement and returns the last completed distance.
	ReadDistance() uint16
	// PulseWidth returns the last completed echo width in ticks.
	PulseWidth() uint16
	// Cycles returns the number of completed echoes.
	Cycles() uint32
}

// Handler reads the sensor and validates the reading.
type Handler struct {
	r         Ranger
	triggered bool
	lastCycle uint32
	lastValue Measurement
}

// Measurement is one reading of the sensor.
type Measurement struct {
	Time       time.Time
	Distance   uint16
	PulseWidth uint16
	Unit       string
}

// New generates a new handler for the sensor.
func New(r Ranger) *Handler {
	return &Handler{r: r}
}

// Get triggers the sensor and returns the last completed reading.
// The reading is returned even when an error is reported:
//   - ErrNoEcho: no echo completed since the previous Get, the value is stale
//   - ErrOutOfRange: the distance is outside dMin..dMax
func (h *Handler) Get() (Measurement, error) {
	c := h.r.Cycles()
	stale := h.triggered && c == h.lastCycle
	h.triggered = true
	h.lastCycle = c

	m := Measurement{
		Time:       time.Now(),
		Distance:   h.r.ReadDistance(),
		PulseWidth: h.r.PulseWidth(),
		Unit:       Unit,
	}
	h.lastValue = m

	if stale {
		return m, ErrNoEcho
	}
	if m.Distance < dMin || m.Distance > dMax {
		return m, ErrOutOfRange
	}
	return m, nil
}

// Last returns the reading of the previous Get.
func (h *Handler) Last() Measurement {
	return h.lastValue
}
