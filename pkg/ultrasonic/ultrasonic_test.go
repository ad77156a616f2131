package ultrasonic

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"usdist/pkg/icu"
	"usdist/pkg/port"
	"usdist/pkg/timing"
)

// fakePin records the trigger line.
type fakePin struct {
	output bool
	writes []port.Level
}

func (p *fakePin) Output()            { p.output = true }
func (p *fakePin) Write(l port.Level) { p.writes = append(p.writes, l) }

type recorder struct {
	delays []time.Duration
}

func (r *recorder) Delay(d time.Duration) { r.delays = append(r.delays, d) }

func newSensor(c *qt.C) (*Sensor, *icu.Sim, *fakePin, *recorder) {
	sim := icu.NewSim()
	pin := &fakePin{}
	rec := &recorder{}
	s := New(sim, pin, rec, DefaultConfig())
	s.Init()
	c.Assert(sim.Edge(), qt.Equals, port.EdgeRising)
	return s, sim, pin, rec
}

// echo simulates a complete echo pulse of the given width.
func echo(c *qt.C, sim *icu.Sim, ticks uint16) {
	c.Assert(sim.Capture(port.EdgeRising), qt.IsTrue)
	sim.Advance(ticks)
	c.Assert(sim.Capture(port.EdgeFalling), qt.IsTrue)
}

func TestInit(t *testing.T) {
	c := qt.New(t)
	_, sim, pin, _ := newSensor(c)

	c.Assert(pin.output, qt.IsTrue)
	c.Assert(pin.writes, qt.DeepEquals, []port.Level{port.Low})
	c.Assert(sim.Config(), qt.Equals, icu.Config{ClockHz: 8_000_000, Prescaler: icu.Prescale8, Edge: port.EdgeRising})
}

func TestNewDefaults(t *testing.T) {
	c := qt.New(t)
	s := New(icu.NewSim(), &fakePin{}, timing.Sleep{}, Config{})
	c.Assert(s.cfg, qt.Equals, DefaultConfig())
	c.Assert(s.Converter().Factor(), qt.Equals, 0.0174)
}

func TestTriggerPulse(t *testing.T) {
	c := qt.New(t)
	s, _, pin, rec := newSensor(c)
	pin.writes = nil

	s.Trigger()
	c.Assert(pin.writes, qt.DeepEquals, []port.Level{port.High, port.Low})
	c.Assert(rec.delays, qt.DeepEquals, []time.Duration{10 * time.Microsecond})
}

func TestEdgeSequence(t *testing.T) {
	c := qt.New(t)
	s, sim, _, _ := newSensor(c)
	c.Assert(s.Phase(), qt.Equals, AwaitingRisingEdge)

	sim.SetCounter(4321)
	c.Assert(sim.Capture(port.EdgeRising), qt.IsTrue)
	c.Assert(s.Phase(), qt.Equals, AwaitingFallingEdge)
	c.Assert(sim.Counter(), qt.Equals, uint16(0))
	c.Assert(sim.Edge(), qt.Equals, port.EdgeFalling)

	sim.Advance(777)
	c.Assert(sim.Capture(port.EdgeFalling), qt.IsTrue)
	c.Assert(s.PulseWidth(), qt.Equals, uint16(777))
	c.Assert(s.Phase(), qt.Equals, AwaitingRisingEdge)
	c.Assert(sim.Edge(), qt.Equals, port.EdgeRising)
	c.Assert(s.Cycles(), qt.Equals, uint32(1))
}

func TestSecondRisingEdgeIgnored(t *testing.T) {
	c := qt.New(t)
	s, sim, _, _ := newSensor(c)
	echo(c, sim, 500)

	c.Assert(sim.Capture(port.EdgeRising), qt.IsTrue)
	sim.Advance(300)
	c.Assert(sim.Capture(port.EdgeRising), qt.IsFalse)

	c.Assert(s.PulseWidth(), qt.Equals, uint16(500))
	c.Assert(s.Phase(), qt.Equals, AwaitingFallingEdge)
	c.Assert(sim.Clears(), qt.Equals, 2)
}

func TestEndToEnd(t *testing.T) {
	c := qt.New(t)
	s, sim, _, _ := newSensor(c)

	echo(c, sim, 1160)
	c.Assert(s.PulseWidth(), qt.Equals, uint16(1160))
	c.Assert(s.ReadDistance(), qt.Equals, uint16(20))
}

func TestNoFallingEdgeKeepsLastValue(t *testing.T) {
	c := qt.New(t)
	s, sim, _, _ := newSensor(c)

	echo(c, sim, 2900)
	want := s.ReadDistance()
	c.Assert(want, qt.Equals, uint16(50))

	c.Assert(sim.Capture(port.EdgeRising), qt.IsTrue)
	sim.Advance(10000)
	for i := 0; i < 5; i++ {
		c.Assert(s.ReadDistance(), qt.Equals, want)
	}
	c.Assert(s.Phase(), qt.Equals, AwaitingFallingEdge)
}

func TestReadDistanceIdempotent(t *testing.T) {
	c := qt.New(t)
	s, sim, _, _ := newSensor(c)
	echo(c, sim, 3456)

	first := s.ReadDistance()
	c.Assert(s.ReadDistance(), qt.Equals, first)
}

func TestZeroWidth(t *testing.T) {
	c := qt.New(t)
	s, sim, _, _ := newSensor(c)
	c.Assert(s.ReadDistance(), qt.Equals, uint16(0))

	echo(c, sim, 0)
	c.Assert(s.ReadDistance(), qt.Equals, uint16(0))
}

func TestPhaseString(t *testing.T) {
	c := qt.New(t)
	c.Assert(AwaitingRisingEdge.String(), qt.Equals, "awaiting rising edge")
	c.Assert(AwaitingFallingEdge.String(), qt.Equals, "awaiting falling edge")
}

// TestConcurrentCaptures runs the capture handler on another goroutine while
// the foreground reads. Every read must be one of the written widths.
func TestConcurrentCaptures(t *testing.T) {
	c := qt.New(t)
	s, sim, _, _ := newSensor(c)

	valid := map[uint16]bool{0: true}
	widths := []uint16{1000, 2000, 3000}
	for _, w := range widths {
		valid[s.Converter().Centimeters(w)] = true
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			sim.Capture(port.EdgeRising)
			sim.Advance(widths[i%len(widths)])
			sim.Capture(port.EdgeFalling)
		}
	}()

	for i := 0; i < 1000; i++ {
		d := s.Distance()
		c.Assert(valid[d], qt.IsTrue, qt.Commentf("distance %d", d))
	}
	<-done
	c.Assert(s.Cycles(), qt.Equals, uint32(1000))
}
