// Package raspberry gives access to the gpio ports of a Raspberry Pi.
//
// Several drivers are available; all of them provide plain digital pins and
// edge lines. An edge line reports every level change of an input with a
// timestamp.
package raspberry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"usdist/pkg/port"
)

var (
	ErrInvalidParam  = errors.New("invalid parameters")
	ErrUnknownDriver = errors.New("unknown gpio driver")
	ErrPinInUse      = errors.New("pin already used")
)

// Pin is a single digital pin.
type Pin interface {
	// Pin returns the BCM number of the pin.
	Pin() int
	// Output sets the pin as output.
	Output()
	// Input sets the pin as input.
	Input()
	// Write sets the output level.
	Write(l port.Level)
	// Read returns the current level.
	Read() port.Level
	// Close releases the pin.
	Close() error
}

// EdgeLine is an input watched for level changes.
type EdgeLine interface {
	// Pin returns the BCM number of the line.
	Pin() int
	// Events returns the channel of edge events. It is closed by Close.
	Events() <-chan port.Event
	// Close stops watching and releases the line.
	Close() error
}

// Dropper is implemented by edge lines which count events lost because
// nobody consumed them in time.
type Dropper interface {
	Drops() uint32
}

// GPIO is an opened gpio driver.
type GPIO interface {
	// NewPin requests a digital pin. The pin number is the BCM GPIO number.
	NewPin(p int) (Pin, error)
	// NewEdgeLine requests an input watched for both edges.
	// Pull is one of pullup, pulldown and none.
	NewEdgeLine(p int, pull string) (EdgeLine, error)
	// Close releases the driver.
	Close() error
}

// opener opens a driver for the named gpio chip.
type opener func(chip string) (GPIO, error)

var (
	dl      sync.Mutex
	drivers = map[string]opener{}
)

// register makes a driver available to Open. It is called from init.
func register(name string, o opener) {
	dl.Lock()
	defer dl.Unlock()
	drivers[name] = o
}

// Open opens the named driver. The chip is the gpio character device,
// e.g. gpiochip0, for drivers using it.
func Open(driver, chip string) (GPIO, error) {
	dl.Lock()
	o, ok := drivers[driver]
	dl.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	return o(chip)
}

// Drivers returns the names of the drivers available on this platform.
func Drivers() []string {
	dl.Lock()
	defer dl.Unlock()

	names := make([]string, 0, len(drivers))
	for n := range drivers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// eventBuffer is the capacity of the edge event channels.
const eventBuffer = 64

// pins keeps track of requested pin numbers of a driver.
type pins struct {
	mu   sync.Mutex
	used map[int]bool
}

func (p *pins) claim(n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.used == nil {
		p.used = map[int]bool{}
	}
	if p.used[n] {
		return fmt.Errorf("%w: %v", ErrPinInUse, n)
	}
	p.used[n] = true
	return nil
}

func (p *pins) release(n int) {
	p.mu.Lock()
	delete(p.used, n)
	p.mu.Unlock()
}
