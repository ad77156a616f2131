package icu

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"usdist/pkg/port"
)

func TestPrescalerTick(t *testing.T) {
	c := qt.New(t)
	c.Assert(Prescale8.Tick(8_000_000), qt.Equals, time.Microsecond)
	c.Assert(NoPrescaling.Tick(1_000_000), qt.Equals, time.Microsecond)
	c.Assert(Prescale64.Tick(16_000_000), qt.Equals, 4*time.Microsecond)
	c.Assert(Prescale8.Tick(0), qt.Equals, time.Duration(0))
	c.Assert(Config{ClockHz: 8_000_000, Prescaler: Prescale8}.Tick(), qt.Equals, time.Microsecond)
}

func TestParsePrescaler(t *testing.T) {
	c := qt.New(t)
	for _, v := range []int{1, 8, 64, 256, 1024} {
		p, err := ParsePrescaler(v)
		c.Assert(err, qt.IsNil)
		c.Assert(int(p), qt.Equals, v)
	}
	for _, v := range []int{0, -8, 2, 100, 70000} {
		_, err := ParsePrescaler(v)
		c.Assert(err, qt.Equals, ErrInvalidPrescaler, qt.Commentf("value %d", v))
	}
}

func TestSimCapturesOnlyArmedEdge(t *testing.T) {
	c := qt.New(t)
	s := NewSim()
	calls := 0
	s.SetCallback(func() { calls++ })

	s.SetCounter(5)
	c.Assert(s.Capture(port.EdgeRising), qt.IsFalse, qt.Commentf("disabled before Init"))

	s.Init(Config{ClockHz: 8_000_000, Prescaler: Prescale8, Edge: port.EdgeRising})
	c.Assert(s.Capture(port.EdgeFalling), qt.IsFalse)
	c.Assert(s.Capture(port.EdgeRising), qt.IsTrue)
	c.Assert(s.CapturedValue(), qt.Equals, uint16(5))
	c.Assert(calls, qt.Equals, 1)

	s.SetEdge(port.EdgeFalling)
	s.Advance(10)
	c.Assert(s.Capture(port.EdgeFalling), qt.IsTrue)
	c.Assert(s.CapturedValue(), qt.Equals, uint16(15))
	c.Assert(calls, qt.Equals, 2)
}

func TestSimCounter(t *testing.T) {
	c := qt.New(t)
	s := NewSim()
	s.SetCounter(65535)
	s.Advance(2)
	c.Assert(s.Counter(), qt.Equals, uint16(1))
	s.ClearCounter()
	c.Assert(s.Counter(), qt.Equals, uint16(0))
	c.Assert(s.Clears(), qt.Equals, 1)
}

func TestSimCallbackReplaced(t *testing.T) {
	c := qt.New(t)
	s := NewSim()
	s.Init(Config{Edge: port.EdgeBoth})
	var got []string
	s.SetCallback(func() { got = append(got, "first") })
	s.SetCallback(func() { got = append(got, "second") })
	s.Capture(port.EdgeRising)
	c.Assert(got, qt.DeepEquals, []string{"second"})
}

// TestLineTimerMeasuresPulse wires a LineTimer to a rising/falling handler like the echo sensor does.
func TestLineTimerMeasuresPulse(t *testing.T) {
	c := qt.New(t)
	rx := make(chan port.Event)
	lt := NewLineTimer(rx)
	defer lt.Close()

	widths := make(chan uint16, 4)
	rising := true
	lt.SetCallback(func() {
		if rising {
			lt.ClearCounter()
			lt.SetEdge(port.EdgeFalling)
		} else {
			widths <- lt.CapturedValue()
			lt.SetEdge(port.EdgeRising)
		}
		rising = !rising
	})

	// dropped: not yet initialised. The second send only completes once the
	// first event has been handled.
	rx <- port.Event{Type: port.EdgeRising, Timestamp: time.Millisecond}
	rx <- port.Event{Type: port.EdgeFalling, Timestamp: time.Millisecond}

	lt.Init(Config{ClockHz: 8_000_000, Prescaler: Prescale8, Edge: port.EdgeRising})

	// falling edge while armed for rising is ignored
	rx <- port.Event{Type: port.EdgeFalling, Timestamp: 2 * time.Millisecond}
	rx <- port.Event{Type: port.EdgeRising, Timestamp: 10 * time.Millisecond}
	rx <- port.Event{Type: port.EdgeFalling, Timestamp: 10*time.Millisecond + 1160*time.Microsecond}

	select {
	case w := <-widths:
		c.Assert(w, qt.Equals, uint16(1160))
	case <-time.After(time.Second):
		c.Fatal("no capture")
	}

	rx <- port.Event{Type: port.EdgeRising, Timestamp: 20 * time.Millisecond}
	rx <- port.Event{Type: port.EdgeFalling, Timestamp: 20*time.Millisecond + 580*time.Microsecond}

	select {
	case w := <-widths:
		c.Assert(w, qt.Equals, uint16(580))
	case <-time.After(time.Second):
		c.Fatal("no capture")
	}
}

func TestLineTimerCounterWraps(t *testing.T) {
	c := qt.New(t)
	lt := &LineTimer{}
	lt.tick.Store(int64(time.Microsecond))
	lt.base.Store(0)
	c.Assert(lt.counterAt(65535*time.Microsecond), qt.Equals, uint16(65535))
	c.Assert(lt.counterAt(65536*time.Microsecond), qt.Equals, uint16(0))
	c.Assert(lt.counterAt(65540*time.Microsecond), qt.Equals, uint16(4))
}

func TestLineTimerStopsOnClosedSource(t *testing.T) {
	c := qt.New(t)
	rx := make(chan port.Event)
	lt := NewLineTimer(rx)
	close(rx)

	select {
	case <-lt.done:
	case <-time.After(time.Second):
		c.Fatal("run loop still active")
	}
	c.Assert(lt.Close(), qt.IsNil)
}
