//go:build linux

package raspberry

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/warthog618/gpio"
	"github.com/womat/debug"

	"usdist/pkg/port"
)

func init() {
	register("gpiomem", func(string) (GPIO, error) { return OpenMem() })
}

// MemGPIO accesses the gpio registers through /dev/gpiomem.
type MemGPIO struct {
	pins pins
	// start is the time base of edge timestamps
	start time.Time
}

// MemPin is a pin of the memory mapped driver.
type MemPin struct {
	owner   *MemGPIO
	gpioPin *gpio.Pin
}

// MemLine is a memory mapped pin watched for edges.
// The timestamp is taken when the watch handler runs, so it carries the
// interrupt latency of the kernel.
type MemLine struct {
	owner   *MemGPIO
	gpioPin *gpio.Pin
	drops   uint32
	once    sync.Once
	C       chan port.Event
}

// OpenMem maps the GPIO memory range from /dev/gpiomem.
func OpenMem() (*MemGPIO, error) {
	if err := gpio.Open(); err != nil {
		return nil, err
	}
	return &MemGPIO{start: time.Now()}, nil
}

// Close removes the interrupt handlers and unmaps GPIO memory
func (c *MemGPIO) Close() error {
	return gpio.Close()
}

// NewPin creates a new pin object.
func (c *MemGPIO) NewPin(p int) (Pin, error) {
	if err := c.pins.claim(p); err != nil {
		return nil, err
	}
	return &MemPin{owner: c, gpioPin: gpio.NewPin(p)}, nil
}

// NewEdgeLine watches the pin for changes to level.
// There can only be one watcher on the pin at a time.
func (c *MemGPIO) NewEdgeLine(p int, pull string) (EdgeLine, error) {
	if err := c.pins.claim(p); err != nil {
		return nil, err
	}

	l := &MemLine{owner: c, gpioPin: gpio.NewPin(p), C: make(chan port.Event, eventBuffer)}
	l.gpioPin.Input()

	switch pull {
	case "pullup":
		l.gpioPin.PullUp()
	case "pulldown":
		l.gpioPin.PullDown()
	case "none", "":
	default:
		c.pins.release(p)
		return nil, ErrInvalidParam
	}

	handler := func(pin *gpio.Pin) {
		e := port.Event{Timestamp: time.Since(c.start), Type: port.EdgeFalling}
		if pin.Read() == gpio.High {
			e.Type = port.EdgeRising
		}

		select {
		case l.C <- e:
		default:
			atomic.AddUint32(&l.drops, 1)
		}
	}

	if err := l.gpioPin.Watch(gpio.EdgeBoth, handler); err != nil {
		c.pins.release(p)
		return nil, err
	}
	return l, nil
}

// Pin returns the pin number that this Pin represents.
func (p *MemPin) Pin() int {
	return p.gpioPin.Pin()
}

// Output sets pin as Output.
func (p *MemPin) Output() {
	p.gpioPin.Output()
}

// Input sets pin as Input.
func (p *MemPin) Input() {
	p.gpioPin.Input()
}

// Write sets the pin state (high/low).
func (p *MemPin) Write(l port.Level) {
	if l == port.High {
		p.gpioPin.High()
		return
	}
	p.gpioPin.Low()
}

// Read pin state (high/low)
func (p *MemPin) Read() port.Level {
	if p.gpioPin.Read() == gpio.High {
		return port.High
	}
	return port.Low
}

// Close sets the pin back to input and releases it.
func (p *MemPin) Close() error {
	p.gpioPin.Input()
	p.owner.pins.release(p.Pin())
	return nil
}

// Pin returns the pin number of the line.
func (l *MemLine) Pin() int {
	return l.gpioPin.Pin()
}

// Events implements EdgeLine.
func (l *MemLine) Events() <-chan port.Event {
	return l.C
}

// Drops returns the number of events lost because the channel was full.
func (l *MemLine) Drops() uint32 {
	return atomic.LoadUint32(&l.drops)
}

// Close removes any watch from the pin.
func (l *MemLine) Close() error {
	l.once.Do(func() {
		l.gpioPin.Unwatch()
		l.owner.pins.release(l.Pin())
		if d := l.Drops(); d > 0 {
			debug.ErrorLog.Printf("pin %v: %v edge events dropped", l.Pin(), d)
		}
		close(l.C)
	})
	return nil
}
