package raspberry

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/womat/debug"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"usdist/pkg/port"
)

func init() {
	register("periph", func(string) (GPIO, error) { return OpenPeriph() })
}

// edgePoll bounds WaitForEdge so that a watch loop notices Close.
const edgePoll = 100 * time.Millisecond

// PeriphGPIO uses the periph.io host drivers.
type PeriphGPIO struct {
	pins  pins
	start time.Time
}

// PeriphPin is a pin of the periph driver.
type PeriphPin struct {
	owner *PeriphGPIO
	pin   gpio.PinIO
	level gpio.Level
}

// PeriphLine watches a periph pin for edges.
type PeriphLine struct {
	owner *PeriphGPIO
	pin   gpio.PinIO
	quit  chan struct{}
	done  chan struct{}
	once  sync.Once
	C     chan port.Event
}

// OpenPeriph initializes the periph host drivers.
func OpenPeriph() (*PeriphGPIO, error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	return &PeriphGPIO{start: time.Now()}, nil
}

// Close is a no-op, periph drivers stay loaded for the process lifetime.
func (g *PeriphGPIO) Close() error {
	return nil
}

func (g *PeriphGPIO) byNumber(p int) (gpio.PinIO, error) {
	pin := gpioreg.ByName(strconv.Itoa(p))
	if pin == nil {
		return nil, fmt.Errorf("%w: no GPIO pin named %v", ErrInvalidParam, p)
	}
	return pin, nil
}

// NewPin creates a new pin object.
func (g *PeriphGPIO) NewPin(p int) (Pin, error) {
	pin, err := g.byNumber(p)
	if err != nil {
		return nil, err
	}
	if err = g.pins.claim(p); err != nil {
		return nil, err
	}
	return &PeriphPin{owner: g, pin: pin}, nil
}

// NewEdgeLine watches the pin for both edges.
func (g *PeriphGPIO) NewEdgeLine(p int, pull string) (EdgeLine, error) {
	pin, err := g.byNumber(p)
	if err != nil {
		return nil, err
	}

	var pp gpio.Pull
	switch pull {
	case "pullup":
		pp = gpio.PullUp
	case "pulldown":
		pp = gpio.PullDown
	case "none", "":
		pp = gpio.Float
	default:
		return nil, ErrInvalidParam
	}

	if err = g.pins.claim(p); err != nil {
		return nil, err
	}
	if err = pin.In(pp, gpio.BothEdges); err != nil {
		g.pins.release(p)
		return nil, err
	}

	l := &PeriphLine{
		owner: g,
		pin:   pin,
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
		C:     make(chan port.Event, eventBuffer),
	}

	go l.watch()
	return l, nil
}

// Pin returns the BCM number.
func (p *PeriphPin) Pin() int {
	return p.pin.Number()
}

// Output sets pin as Output and keeps the last written level.
func (p *PeriphPin) Output() {
	if err := p.pin.Out(p.level); err != nil {
		debug.ErrorLog.Printf("pin %v: can't set output: %v", p.Pin(), err)
	}
}

// Input sets pin as Input.
func (p *PeriphPin) Input() {
	if err := p.pin.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		debug.ErrorLog.Printf("pin %v: can't set input: %v", p.Pin(), err)
	}
}

// Write sets the pin state.
func (p *PeriphPin) Write(l port.Level) {
	p.level = gpio.Level(l == port.High)
	if err := p.pin.Out(p.level); err != nil {
		debug.ErrorLog.Printf("pin %v: can't write: %v", p.Pin(), err)
	}
}

// Read pin state (high/low)
func (p *PeriphPin) Read() port.Level {
	if p.pin.Read() == gpio.High {
		return port.High
	}
	return port.Low
}

// Close halts the pin and releases it.
func (p *PeriphPin) Close() error {
	defer p.owner.pins.release(p.Pin())
	return p.pin.Halt()
}

// Pin returns the BCM number.
func (l *PeriphLine) Pin() int {
	return l.pin.Number()
}

// Events implements EdgeLine.
func (l *PeriphLine) Events() <-chan port.Event {
	return l.C
}

// Close stops watching and waits until the watch loop is terminated.
func (l *PeriphLine) Close() error {
	var err error
	l.once.Do(func() {
		close(l.quit)
		err = l.pin.Halt()
		<-l.done
		l.owner.pins.release(l.Pin())
		close(l.C)
	})
	return err
}

// watch waits for edges and sends them to C.
func (l *PeriphLine) watch() {
	defer close(l.done)

	for {
		select {
		case <-l.quit:
			return
		default:
		}

		if !l.pin.WaitForEdge(edgePoll) {
			continue
		}

		e := port.Event{Timestamp: time.Since(l.owner.start), Type: port.EdgeFalling}
		if l.pin.Read() == gpio.High {
			e.Type = port.EdgeRising
		}

		select {
		case l.C <- e:
		default:
			debug.ErrorLog.Printf("pin %v: edge event dropped", l.Pin())
		}
	}
}
