//go:build linux

package raspberry

import (
	"github.com/stianeikeland/go-rpio/v4"

	"usdist/pkg/port"
)

func init() {
	register("rpio", func(chip string) (GPIO, error) { return OpenRpio(chip) })
}

// RpioGPIO drives output pins through go-rpio. The register interface has
// no edge timestamps, so edge lines are requested from the gpio chip.
type RpioGPIO struct {
	*Chip
}

// RpioPin is a pin of the go-rpio driver.
type RpioPin struct {
	owner *RpioGPIO
	pin   rpio.Pin
}

// OpenRpio maps the gpio registers and opens the chip for edge lines.
func OpenRpio(chip string) (*RpioGPIO, error) {
	if err := rpio.Open(); err != nil {
		return nil, err
	}

	c, err := OpenChip(chip)
	if err != nil {
		_ = rpio.Close()
		return nil, err
	}
	return &RpioGPIO{Chip: c}, nil
}

// NewPin creates a new pin object.
func (g *RpioGPIO) NewPin(p int) (Pin, error) {
	if err := g.pins.claim(p); err != nil {
		return nil, err
	}
	return &RpioPin{owner: g, pin: rpio.Pin(p)}, nil
}

// Close unmaps the registers and releases the chip.
func (g *RpioGPIO) Close() error {
	err := g.Chip.Close()
	if e := rpio.Close(); e != nil && err == nil {
		err = e
	}
	return err
}

// Pin returns the BCM number.
func (p *RpioPin) Pin() int {
	return int(p.pin)
}

// Output sets pin as Output.
func (p *RpioPin) Output() {
	p.pin.Output()
}

// Input sets pin as Input.
func (p *RpioPin) Input() {
	p.pin.Input()
}

// Write sets the pin state.
func (p *RpioPin) Write(l port.Level) {
	if l == port.High {
		p.pin.High()
		return
	}
	p.pin.Low()
}

// Read pin state (high/low)
func (p *RpioPin) Read() port.Level {
	if p.pin.Read() == rpio.High {
		return port.High
	}
	return port.Low
}

// Close sets the pin back to input and releases it.
func (p *RpioPin) Close() error {
	p.pin.Input()
	p.owner.pins.release(p.Pin())
	return nil
}
