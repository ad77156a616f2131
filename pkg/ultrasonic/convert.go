package ultrasonic

import (
	"math"
	"time"
)

// DefaultSpeedOfSound is the speed of sound in air at about 28 °C in m/s.
// With a 1 µs tick it gives 0.0174 cm per tick (ticks/57.5).
const DefaultSpeedOfSound = 348

// Converter turns an echo pulse width in ticks into centimetres.
//
// The echo travels to the object and back, so
//
//	distance = ticks * tick * speedOfSound / 2
//
// With tick in ns and speed in m/s one unit of the product is 1e-7 cm.
// The ratio is kept as integers to avoid float rounding on small boards.
type Converter struct {
	num uint64
	den uint64
}

// NewConverter returns the converter for a counter tick and a speed of
// sound in m/s.
func NewConverter(tick time.Duration, speedOfSound uint32) Converter {
	return Converter{
		num: uint64(tick) * uint64(speedOfSound),
		den: 2 * 10_000_000,
	}
}

// Centimeters converts ticks to centimetres, rounded half up.
// Results beyond the uint16 range are clamped.
func (c Converter) Centimeters(ticks uint16) uint16 {
	if c.den == 0 {
		return 0
	}

	cm := (uint64(ticks)*c.num + c.den/2) / c.den
	if cm > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(cm)
}

// Factor returns the scale factor in centimetres per tick.
func (c Converter) Factor() float64 {
	if c.den == 0 {
		return 0
	}
	return float64(c.num) / float64(c.den)
}
