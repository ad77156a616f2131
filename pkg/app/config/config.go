package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/womat/debug"
	"gopkg.in/yaml.v2"

	"usdist/pkg/icu"
)

var (
	ErrInvalidPins    = errors.New("trigger and echo must use different pins")
	ErrInvalidClock   = errors.New("clock must not be zero")
	ErrInvalidDisplay = errors.New("invalid display")
	ErrInvalidPeriod  = errors.New("measuring interval must be positive")
)

// Config defines the struct of global config and the struct of the configuration file
type Config struct {
	Sensor    SensorConfig    `yaml:"sensor"`
	Display   DisplayConfig   `yaml:"display"`
	Flag      FlagConfig      `yaml:"-"`
	Debug     DebugConfig     `yaml:"debug"`
	Webserver WebserverConfig `yaml:"webserver"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
}

// FlagConfig defines the configured flags (parameters)
type FlagConfig struct {
	Version    bool
	Debug      string
	ConfigFile string
}

// SensorConfig defines the wiring and timing of the ultrasonic sensor.
type SensorConfig struct {
	// Driver is the gpio driver: gpiod, gpiomem, rpio, periph or emu.
	Driver string `yaml:"driver"`
	// Chip is the gpio character device used by gpiod based drivers.
	Chip    string `yaml:"chip"`
	Trigger int    `yaml:"trigger"`
	Echo    int    `yaml:"echo"`
	// Pull is the terminator of the echo line: pullup, pulldown or none.
	Pull string `yaml:"pull"`
	// Clock in Hz and Prescaler define the tick of the capture unit.
	Clock        uint32        `yaml:"clock"`
	PrescalerInt int           `yaml:"prescaler"`
	Prescaler    icu.Prescaler `yaml:"-"`
	// TriggerPulseInt is the trigger pulse width in µs.
	TriggerPulseInt int           `yaml:"triggerpulse"`
	TriggerPulse    time.Duration `yaml:"-"`
	// IntervalInt is the time between two measurements in ms.
	IntervalInt int           `yaml:"interval"`
	Interval    time.Duration `yaml:"-"`
	// SpeedOfSound in m/s.
	SpeedOfSound uint32 `yaml:"speedofsound"`
	// Distance is the object distance in cm of the emulated sensor.
	Distance float64 `yaml:"distance"`
}

// DisplayConfig defines the character display.
type DisplayConfig struct {
	// Type is none, terminal or hd44780.
	Type    string        `yaml:"type"`
	Rows    int           `yaml:"rows"`
	Cols    int           `yaml:"cols"`
	HD44780 HD44780Config `yaml:"hd44780"`
}

// HD44780Config defines the pins of a 4-bit HD44780 bus.
type HD44780Config struct {
	RS int `yaml:"rs"`
	E  int `yaml:"e"`
	D4 int `yaml:"d4"`
	D5 int `yaml:"d5"`
	D6 int `yaml:"d6"`
	D7 int `yaml:"d7"`
}

// WebserverConfig defines the struct of the webserver and webservice configuration and configuration file
type WebserverConfig struct {
	URL         string          `yaml:"url"`
	Webservices map[string]bool `yaml:"webservices"`
}

// MQTTConfig defines the struct of the mqtt client configuration and configuration file
type MQTTConfig struct {
	Connection  string        `yaml:"connection"`
	Interval    time.Duration `yaml:"-"`
	IntervalInt int           `yaml:"interval"`
	Topic       string        `yaml:"topic"`
	// Delta is the change of distance in cm which is published immediately.
	Delta uint16 `yaml:"delta"`
}

// DebugConfig defines the struct of the debug configuration and configuration file
type DebugConfig struct {
	File       io.WriteCloser `yaml:"-"`
	Flag       int            `yaml:"-"`
	FlagString string         `yaml:"flag"`
	FileString string         `yaml:"file"`
}

func NewConfig() *Config {
	return &Config{
		Sensor: SensorConfig{
			Driver:          "gpiod",
			Chip:            "gpiochip0",
			Trigger:         23,
			Echo:            24,
			Pull:            "pulldown",
			Clock:           8_000_000,
			PrescalerInt:    8,
			TriggerPulseInt: 10,
			IntervalInt:     100,
			SpeedOfSound:    348,
			Distance:        20,
		},
		Display: DisplayConfig{
			Type: "terminal",
			Rows: 2,
			Cols: 16,
			HD44780: HD44780Config{
				RS: 7, E: 8, D4: 25, D5: 12, D6: 16, D7: 20,
			},
		},
		Flag: FlagConfig{},
		Debug: DebugConfig{
			FileString: "stderr",
			FlagString: "standard",
		},
		Webserver: WebserverConfig{
			URL: "http://0.0.0.0:4000",
			Webservices: map[string]bool{
				"version": true,
				"health":  true,
				"data":    true,
				"display": true,
			},
		},
		MQTT: MQTTConfig{
			Connection:  "",
			IntervalInt: 60,
			Interval:    60 * time.Second,
			Topic:       "usdist/distance",
			Delta:       5,
		},
	}
}

func (c *Config) LoadConfig() error {
	if err := c.readConfigFile(); err != nil {
		return fmt.Errorf("error reading config file %q: %w", c.Flag.ConfigFile, err)
	}

	if c.Flag.Debug != "" {
		c.Debug.FlagString = c.Flag.Debug
	}
	if err := c.setDebugConfig(); err != nil {
		return fmt.Errorf("unable to open debug file %q: %w", c.Debug.FileString, err)
	}

	return c.setSensorConfig()
}

func (c *Config) readConfigFile() error {
	file, err := os.Open(c.Flag.ConfigFile)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	decoder := yaml.NewDecoder(file)
	if err = decoder.Decode(c); err != nil {
		return err
	}

	return nil
}

// setSensorConfig converts and validates the integer settings of the config file.
func (c *Config) setSensorConfig() (err error) {
	if c.Sensor.Prescaler, err = icu.ParsePrescaler(c.Sensor.PrescalerInt); err != nil {
		return fmt.Errorf("prescaler %v: %w", c.Sensor.PrescalerInt, err)
	}
	if c.Sensor.Clock == 0 {
		return ErrInvalidClock
	}
	if c.Sensor.Trigger == c.Sensor.Echo {
		return ErrInvalidPins
	}
	if c.Sensor.IntervalInt <= 0 {
		return ErrInvalidPeriod
	}

	switch c.Display.Type {
	case "none", "terminal", "hd44780":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDisplay, c.Display.Type)
	}
	if c.Display.Rows <= 0 || c.Display.Cols <= 0 {
		return fmt.Errorf("%w: %v rows, %v cols", ErrInvalidDisplay, c.Display.Rows, c.Display.Cols)
	}
	// the HD44780 addresses at most 4 rows
	if c.Display.Type == "hd44780" && c.Display.Rows > 4 {
		return fmt.Errorf("%w: hd44780 with %v rows", ErrInvalidDisplay, c.Display.Rows)
	}

	c.Sensor.TriggerPulse = time.Duration(c.Sensor.TriggerPulseInt) * time.Microsecond
	c.Sensor.Interval = time.Duration(c.Sensor.IntervalInt) * time.Millisecond
	c.MQTT.Interval = time.Duration(c.MQTT.IntervalInt) * time.Second

	return nil
}

func (c *Config) setDebugConfig() (err error) {
	// defines Debug section of global.Config
	switch c.Debug.FlagString {
	case "trace", "full":
		c.Debug.Flag = debug.Full
	case "debug":
		c.Debug.Flag = debug.Warning | debug.Info | debug.Error | debug.Fatal | debug.Debug
	case "standard":
		c.Debug.Flag = debug.Standard
	}

	switch c.Debug.FileString {
	case "stderr":
		c.Debug.File = os.Stderr
	case "stdout":
		c.Debug.File = os.Stdout
	default:
		if c.Debug.File, err = os.OpenFile(c.Debug.FileString, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666); err != nil {
			return
		}
	}

	return
}
