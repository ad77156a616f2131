//go:build linux

package raspberry

import (
	"sync/atomic"

	"github.com/warthog618/gpiod"
	"github.com/womat/debug"

	"usdist/pkg/port"
)

func init() {
	register("gpiod", func(chip string) (GPIO, error) { return OpenChip(chip) })
}

// Chip represents a single GPIO chip that controls a set of lines.
type Chip struct {
	gpiodChip *gpiod.Chip
	pins      pins
}

// LinePin is a requested output line.
type LinePin struct {
	chip      *Chip
	gpiodLine *gpiod.Line
	offset    int
}

// Line is a requested input line watched for both edges.
type Line struct {
	chip      *Chip
	gpiodLine *gpiod.Line
	offset    int
	// drops counts events lost because C was full
	drops uint32
	// send edge changes to channel
	C chan port.Event
}

// OpenChip opens a GPIO character device, e.g. gpiochip0.
func OpenChip(name string) (*Chip, error) {
	c, err := gpiod.NewChip(name)
	if err != nil {
		return nil, err
	}
	return &Chip{gpiodChip: c}, nil
}

// NewPin requests control of a single line as output, initially low.
func (c *Chip) NewPin(p int) (Pin, error) {
	if err := c.pins.claim(p); err != nil {
		return nil, err
	}

	l, err := c.gpiodChip.RequestLine(p, gpiod.AsOutput(0))
	if err != nil {
		c.pins.release(p)
		return nil, err
	}
	return &LinePin{chip: c, gpiodLine: l, offset: p}, nil
}

// NewEdgeLine requests control of a single line and watches it for edge changes.
// The events carry the kernel timestamp of the edge and are not debounced:
// the interval between two edges is the measured value.
func (c *Chip) NewEdgeLine(p int, pull string) (EdgeLine, error) {
	var err error

	line := &Line{
		chip:   c,
		offset: p,
		C:      make(chan port.Event, eventBuffer),
	}

	// handler runs on the event goroutine of gpiod and must not block
	handler := func(evt gpiod.LineEvent) {
		e := port.Event{Timestamp: evt.Timestamp}

		switch evt.Type {
		case gpiod.LineEventRisingEdge:
			e.Type = port.EdgeRising
		case gpiod.LineEventFallingEdge:
			e.Type = port.EdgeFalling
		default:
			return
		}

		select {
		case line.C <- e:
		default:
			atomic.AddUint32(&line.drops, 1)
		}
	}

	if err = c.pins.claim(p); err != nil {
		return nil, err
	}

	switch pull {
	case "pullup":
		line.gpiodLine, err = c.gpiodChip.RequestLine(p, gpiod.WithEventHandler(handler),
			gpiod.WithBothEdges, gpiod.AsInput, gpiod.WithPullUp)
	case "pulldown":
		line.gpiodLine, err = c.gpiodChip.RequestLine(p, gpiod.WithEventHandler(handler),
			gpiod.WithBothEdges, gpiod.AsInput, gpiod.WithPullDown)
	case "none", "":
		line.gpiodLine, err = c.gpiodChip.RequestLine(p, gpiod.WithEventHandler(handler),
			gpiod.WithBothEdges, gpiod.AsInput)
	default:
		err = ErrInvalidParam
	}

	if err != nil {
		c.pins.release(p)
		return nil, err
	}
	return line, nil
}

// Close releases the Chip.
//
// It does not release any lines which may be requested - they must be closed
// independently.
func (c *Chip) Close() error {
	return c.gpiodChip.Close()
}

// Pin returns the line offset.
func (p *LinePin) Pin() int {
	return p.offset
}

// Output sets the line as output, driven low.
func (p *LinePin) Output() {
	if err := p.gpiodLine.Reconfigure(gpiod.AsOutput(0)); err != nil {
		debug.ErrorLog.Printf("line %v: can't set output: %v", p.offset, err)
	}
}

// Input sets the line as input.
func (p *LinePin) Input() {
	if err := p.gpiodLine.Reconfigure(gpiod.AsInput); err != nil {
		debug.ErrorLog.Printf("line %v: can't set input: %v", p.offset, err)
	}
}

// Write sets the line value.
func (p *LinePin) Write(l port.Level) {
	if err := p.gpiodLine.SetValue(int(l)); err != nil {
		debug.ErrorLog.Printf("line %v: can't set value: %v", p.offset, err)
	}
}

// Read returns the line value.
func (p *LinePin) Read() port.Level {
	v, err := p.gpiodLine.Value()
	if err != nil {
		debug.ErrorLog.Printf("line %v: can't read value: %v", p.offset, err)
		return port.Low
	}
	return port.LevelOf(v)
}

// Close reverts the line to input and releases it.
func (p *LinePin) Close() error {
	_ = p.gpiodLine.Reconfigure(gpiod.AsInput)
	defer p.chip.pins.release(p.offset)
	return p.gpiodLine.Close()
}

// Pin returns the line offset.
func (l *Line) Pin() int {
	return l.offset
}

// Events implements EdgeLine.
func (l *Line) Events() <-chan port.Event {
	return l.C
}

// Drops returns the number of events lost because the channel was full.
func (l *Line) Drops() uint32 {
	return atomic.LoadUint32(&l.drops)
}

// Close releases all resources held by the requested line.
//
// Note that this includes waiting for any running event handler to return.
// As a consequence the Close must not be called from the context of the event
// handler - the Close should be called from a different goroutine.
func (l *Line) Close() error {
	if err := l.gpiodLine.Close(); err != nil {
		return err
	}
	l.chip.pins.release(l.offset)
	if d := l.Drops(); d > 0 {
		debug.ErrorLog.Printf("line %v: %v edge events dropped", l.offset, d)
	}
	close(l.C)
	return nil
}
