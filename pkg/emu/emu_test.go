package emu_test

import (
	"errors"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"usdist/pkg/emu"
	"usdist/pkg/icu"
	"usdist/pkg/port"
	"usdist/pkg/raspberry"
	"usdist/pkg/timing"
	"usdist/pkg/ultrasonic"
)

var _ raspberry.GPIO = (*emu.Sensor)(nil)

func noDelay(time.Duration) {}

func waitCycles(c *qt.C, s *ultrasonic.Sensor, n uint32) {
	deadline := time.Now().Add(time.Second)
	for s.Cycles() < n {
		if time.Now().After(deadline) {
			c.Fatalf("waiting for %d cycles, got %d", n, s.Cycles())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestEcho(t *testing.T) {
	c := qt.New(t)
	s := emu.New(23, 24, 20, ultrasonic.DefaultSpeedOfSound)
	c.Assert(s.Echo().Round(time.Microsecond), qt.Equals, 1149*time.Microsecond)

	s.SetDistance(10000)
	c.Assert(s.Echo(), qt.Equals, emu.MaxEcho)

	s.SetDistance(0)
	c.Assert(s.Echo(), qt.Equals, time.Duration(0))
}

func TestUnknownPins(t *testing.T) {
	c := qt.New(t)
	s := emu.New(23, 24, 20, ultrasonic.DefaultSpeedOfSound)

	_, err := s.NewPin(24)
	c.Assert(errors.Is(err, emu.ErrUnknownPin), qt.IsTrue)
	_, err = s.NewEdgeLine(23, "none")
	c.Assert(errors.Is(err, emu.ErrUnknownPin), qt.IsTrue)

	_, err = s.NewEdgeLine(24, "none")
	c.Assert(err, qt.IsNil)
	_, err = s.NewEdgeLine(24, "none")
	c.Assert(errors.Is(err, raspberry.ErrPinInUse), qt.IsTrue)
	c.Assert(s.Close(), qt.IsNil)
}

func TestTriggerProducesPulse(t *testing.T) {
	c := qt.New(t)
	s := emu.New(23, 24, 50, ultrasonic.DefaultSpeedOfSound)
	trig, err := s.NewPin(23)
	c.Assert(err, qt.IsNil)
	line, err := s.NewEdgeLine(24, "pulldown")
	c.Assert(err, qt.IsNil)
	defer s.Close()

	trig.Write(port.High)
	c.Assert(trig.Read(), qt.Equals, port.High)
	trig.Write(port.Low)
	c.Assert(s.Triggers(), qt.Equals, 1)

	rising := <-line.Events()
	falling := <-line.Events()
	c.Assert(rising.Type, qt.Equals, port.EdgeRising)
	c.Assert(falling.Type, qt.Equals, port.EdgeFalling)
	c.Assert(falling.Timestamp-rising.Timestamp, qt.Equals, s.Echo())

	// low to low is no trigger
	trig.Write(port.Low)
	c.Assert(s.Triggers(), qt.Equals, 1)
}

func TestMeasureWithLineTimer(t *testing.T) {
	c := qt.New(t)
	s := emu.New(23, 24, 20, ultrasonic.DefaultSpeedOfSound)
	trig, err := s.NewPin(23)
	c.Assert(err, qt.IsNil)
	line, err := s.NewEdgeLine(24, "none")
	c.Assert(err, qt.IsNil)

	lt := icu.NewLineTimer(line.Events())
	defer lt.Close()
	defer s.Close()

	sensor := ultrasonic.New(lt, trig, timing.Func(noDelay), ultrasonic.DefaultConfig())
	sensor.Init()

	// the echo of this trigger may or may not be complete when it returns
	d := sensor.ReadDistance()
	c.Assert(d == 0 || d == 20, qt.IsTrue, qt.Commentf("distance %d", d))
	waitCycles(c, sensor, 1)
	c.Assert(sensor.PulseWidth(), qt.Equals, uint16(1149))
	c.Assert(sensor.ReadDistance(), qt.Equals, uint16(20))

	waitCycles(c, sensor, 2)
	s.SetDistance(100)
	sensor.Trigger()
	waitCycles(c, sensor, 3)
	c.Assert(sensor.Distance(), qt.Equals, uint16(100))
}

func TestSilentEchoKeepsLastDistance(t *testing.T) {
	c := qt.New(t)
	s := emu.New(23, 24, 35, ultrasonic.DefaultSpeedOfSound)
	trig, _ := s.NewPin(23)
	line, _ := s.NewEdgeLine(24, "none")

	lt := icu.NewLineTimer(line.Events())
	defer lt.Close()
	defer s.Close()

	sensor := ultrasonic.New(lt, trig, timing.Func(noDelay), ultrasonic.DefaultConfig())
	sensor.Init()

	sensor.Trigger()
	waitCycles(c, sensor, 1)
	want := sensor.Distance()
	c.Assert(want, qt.Equals, uint16(35))

	s.SetSilent(true)
	s.SetDistance(80)
	for i := 0; i < 3; i++ {
		c.Assert(sensor.ReadDistance(), qt.Equals, want)
	}

	deadline := time.Now().Add(time.Second)
	for sensor.Phase() != ultrasonic.AwaitingFallingEdge {
		if time.Now().After(deadline) {
			c.Fatal("rising edge not captured")
		}
		time.Sleep(time.Millisecond)
	}
	c.Assert(sensor.ReadDistance(), qt.Equals, want)
	c.Assert(sensor.Cycles(), qt.Equals, uint32(1))
}

func TestDropsUnconsumedEvents(t *testing.T) {
	c := qt.New(t)
	s := emu.New(23, 24, 20, ultrasonic.DefaultSpeedOfSound)
	line, err := s.NewEdgeLine(24, "none")
	c.Assert(err, qt.IsNil)
	defer line.Close()
	trigger, err := s.NewPin(23)
	c.Assert(err, qt.IsNil)

	d, ok := line.(raspberry.Dropper)
	c.Assert(ok, qt.IsTrue)

	// two events per trigger, nobody reads the line
	for i := 0; i < 5; i++ {
		trigger.Write(port.High)
		trigger.Write(port.Low)
	}
	c.Assert(len(line.Events()), qt.Equals, 8)
	c.Assert(d.Drops(), qt.Equals, uint32(2))
}
