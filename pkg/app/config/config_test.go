package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"usdist/pkg/icu"
)

func writeConfig(c *qt.C, s string) string {
	name := filepath.Join(c.TempDir(), "usdist.yaml")
	c.Assert(os.WriteFile(name, []byte(s), 0o644), qt.IsNil)
	return name
}

func TestLoadConfig(t *testing.T) {
	c := qt.New(t)
	cfg := NewConfig()
	cfg.Flag.ConfigFile = writeConfig(c, `
sensor:
  driver: emu
  trigger: 5
  echo: 6
  clock: 16000000
  prescaler: 64
  triggerpulse: 12
  interval: 250
  distance: 42.5
display:
  type: none
debug:
  file: stdout
  flag: trace
mqtt:
  connection: tcp://127.0.0.1:1883
  interval: 30
  delta: 3
`)
	c.Assert(cfg.LoadConfig(), qt.IsNil)

	c.Assert(cfg.Sensor.Driver, qt.Equals, "emu")
	c.Assert(cfg.Sensor.Trigger, qt.Equals, 5)
	c.Assert(cfg.Sensor.Echo, qt.Equals, 6)
	c.Assert(cfg.Sensor.Prescaler, qt.Equals, icu.Prescale64)
	c.Assert(cfg.Sensor.Prescaler.Tick(cfg.Sensor.Clock), qt.Equals, 4*time.Microsecond)
	c.Assert(cfg.Sensor.TriggerPulse, qt.Equals, 12*time.Microsecond)
	c.Assert(cfg.Sensor.Interval, qt.Equals, 250*time.Millisecond)
	c.Assert(cfg.Sensor.Distance, qt.Equals, 42.5)
	// not in the file
	c.Assert(cfg.Sensor.SpeedOfSound, qt.Equals, uint32(348))
	c.Assert(cfg.Sensor.Chip, qt.Equals, "gpiochip0")

	c.Assert(cfg.Display.Type, qt.Equals, "none")
	c.Assert(cfg.Debug.File, qt.Equals, os.Stdout)
	c.Assert(cfg.MQTT.Connection, qt.Equals, "tcp://127.0.0.1:1883")
	c.Assert(cfg.MQTT.Interval, qt.Equals, 30*time.Second)
	c.Assert(cfg.MQTT.Delta, qt.Equals, uint16(3))
	c.Assert(cfg.Webserver.Webservices["data"], qt.IsTrue)
}

func TestLoadConfigFlagOverwritesDebug(t *testing.T) {
	c := qt.New(t)
	cfg := NewConfig()
	cfg.Flag.ConfigFile = writeConfig(c, "debug:\n  flag: standard\n")
	cfg.Flag.Debug = "debug"
	c.Assert(cfg.LoadConfig(), qt.IsNil)
	c.Assert(cfg.Debug.FlagString, qt.Equals, "debug")
	c.Assert(cfg.Debug.File, qt.Equals, os.Stderr)
}

func TestLoadConfigInvalid(t *testing.T) {
	c := qt.New(t)

	for _, test := range []struct {
		name string
		yaml string
		err  error
	}{
		{"prescaler", "sensor:\n  prescaler: 3\n", icu.ErrInvalidPrescaler},
		{"clock", "sensor:\n  clock: 0\n", ErrInvalidClock},
		{"pins", "sensor:\n  trigger: 4\n  echo: 4\n", ErrInvalidPins},
		{"display", "display:\n  type: oled\n", ErrInvalidDisplay},
		{"interval", "sensor:\n  interval: 0\n", ErrInvalidPeriod},
		{"negative cols", "display:\n  type: none\n  cols: -1\n", ErrInvalidDisplay},
		{"zero rows", "display:\n  type: terminal\n  rows: 0\n", ErrInvalidDisplay},
		{"negative rows", "display:\n  type: none\n  rows: -2\n", ErrInvalidDisplay},
		{"hd44780 rows", "display:\n  type: hd44780\n  rows: 5\n", ErrInvalidDisplay},
	} {
		c.Run(test.name, func(c *qt.C) {
			cfg := NewConfig()
			cfg.Flag.ConfigFile = writeConfig(c, test.yaml)
			err := cfg.LoadConfig()
			c.Assert(errors.Is(err, test.err), qt.IsTrue, qt.Commentf("%v", err))
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	c := qt.New(t)
	cfg := NewConfig()
	cfg.Flag.ConfigFile = filepath.Join(c.TempDir(), "missing.yaml")
	c.Assert(errors.Is(cfg.LoadConfig(), os.ErrNotExist), qt.IsTrue)
}
