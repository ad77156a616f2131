package app

import (
	"fmt"
	"io"
	"os"

	"usdist/pkg/emu"
	"usdist/pkg/icu"
	"usdist/pkg/lcd"
	"usdist/pkg/measurement"
	"usdist/pkg/raspberry"
	"usdist/pkg/timing"
	"usdist/pkg/ultrasonic"

	"github.com/womat/debug"
)

// driverEmu selects the emulated sensor instead of a gpio driver.
const driverEmu = "emu"

// openGPIO opens the configured gpio driver.
func (app *App) openGPIO() (raspberry.GPIO, error) {
	c := app.config.Sensor
	if c.Driver == driverEmu {
		debug.InfoLog.Printf("emulate sensor, object distance %v cm", c.Distance)
		return emu.New(c.Trigger, c.Echo, c.Distance, c.SpeedOfSound), nil
	}

	return raspberry.Open(c.Driver, c.Chip)
}

// openSensor wires trigger pin, echo line, capture unit and echo timing.
// The capture unit must listen on the echo line before the sensor is initialized.
func (app *App) openSensor() (err error) {
	c := app.config.Sensor

	if app.gpio, err = app.openGPIO(); err != nil {
		debug.ErrorLog.Printf("can't open gpio driver %q: %v", c.Driver, err)
		return err
	}

	if app.trigger, err = app.gpio.NewPin(c.Trigger); err != nil {
		debug.ErrorLog.Printf("can't open trigger pin %v: %v", c.Trigger, err)
		return err
	}

	if app.echo, err = app.gpio.NewEdgeLine(c.Echo, c.Pull); err != nil {
		debug.ErrorLog.Printf("can't open echo line %v: %v", c.Echo, err)
		return err
	}

	app.timer = icu.NewLineTimer(app.echo.Events())
	app.sensor = ultrasonic.New(app.timer, app.trigger, timing.BusyWait{}, ultrasonic.Config{
		ClockHz:      c.Clock,
		Prescaler:    c.Prescaler,
		TriggerPulse: c.TriggerPulse,
		SpeedOfSound: c.SpeedOfSound,
	})
	app.sensor.Init()
	app.measurement = measurement.New(app.sensor)

	debug.DebugLog.Printf("sensor trigger %v echo %v, %v cm/tick", c.Trigger, c.Echo, app.sensor.Converter().Factor())
	return nil
}

// openDisplay opens the configured display. The memory mirror is always present.
func (app *App) openDisplay() error {
	c := app.config.Display
	app.mirror = lcd.NewMemory(c.Rows, c.Cols)

	switch c.Type {
	case "none":
		app.display = app.mirror
	case "terminal":
		app.display = lcd.Multi{app.mirror, lcd.NewTerminal(os.Stdout)}
	case "hd44780":
		d, err := app.openHD44780()
		if err != nil {
			return err
		}
		app.display = lcd.Multi{app.mirror, d}
	default:
		return fmt.Errorf("unknown display type %q", c.Type)
	}

	return nil
}

func (app *App) openHD44780() (*lcd.HD44780, error) {
	c := app.config.Display
	nums := []int{c.HD44780.RS, c.HD44780.E, c.HD44780.D4, c.HD44780.D5, c.HD44780.D6, c.HD44780.D7}
	pins := make([]lcd.Pin, 0, len(nums))

	for _, n := range nums {
		p, err := app.gpio.NewPin(n)
		if err != nil {
			return nil, fmt.Errorf("display pin %v: %w", n, err)
		}
		app.pins = append(app.pins, io.Closer(p))
		pins = append(pins, p)
	}

	d := lcd.NewHD44780(pins[0], pins[1], pins[2], pins[3], pins[4], pins[5], c.Rows, c.Cols, timing.BusyWait{})
	d.Init()
	return d, nil
}
