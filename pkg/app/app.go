package app

import (
	"io"
	"net/url"
	"sync"

	"usdist/pkg/app/config"
	"usdist/pkg/icu"
	"usdist/pkg/lcd"
	"usdist/pkg/measurement"
	"usdist/pkg/mqtt"
	"usdist/pkg/raspberry"
	"usdist/pkg/ultrasonic"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// App is the main application struct.
// App is where the application is wired up.
type App struct {
	// web is the fiber web framework instance
	web *fiber.App

	// config is the application configuration
	config *config.Config

	// urlParsed contains the parsed Config.Url parameter
	// and makes it easier to get params out of e.g.
	// url: https://0.0.0.0:7844/?minTls=1.2&bodyLimit=50MB
	urlParsed *url.URL

	// mqtt is the handler to the mqtt broker
	mqtt *mqtt.Handler

	// gpio is the handler to the gpio driver (or the emulated sensor)
	gpio raspberry.GPIO
	// trigger is the trigger pin of the sensor
	trigger raspberry.Pin
	// echo is the watched echo line of the sensor
	echo raspberry.EdgeLine
	// timer is the capture unit fed by the echo line
	timer *icu.LineTimer
	// sensor is the echo timing state machine
	sensor *ultrasonic.Sensor
	// measurement validates the readings of sensor
	measurement *measurement.Handler

	// display shows the distance, mirror keeps a copy for the web api
	display lcd.Display
	mirror  *lcd.Memory
	// pins are the display pins which have to be released on Close
	pins []io.Closer

	// last is the last measurement of the ranger loop
	last struct {
		sync.RWMutex
		data measurement.Measurement
		err  error
	}

	// mqttData is the last measurement sent to the mqtt broker
	mqttData struct {
		sync.Mutex
		data measurement.Measurement
	}

	// shutdown signals application shutdown
	shutdown     chan struct{}
	shutdownOnce sync.Once

	// quit stops the ranger loop
	quit chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// New checks the Web server URL and initialize the main app structure
func New(config *config.Config) (*App, error) {
	u, err := url.Parse(config.Webserver.URL)
	if err != nil {
		debug.ErrorLog.Printf("Error parsing url %q: %s", config.Webserver.URL, err.Error())
		return &App{}, err
	}

	return &App{
		config:    config,
		urlParsed: u,

		web:  fiber.New(fiber.Config{DisableStartupMessage: true}),
		mqtt: mqtt.New(),

		shutdown: make(chan struct{}),
		quit:     make(chan struct{}),
	}, err
}

// Run starts the application.
func (app *App) Run() error {
	if err := app.init(); err != nil {
		return err
	}

	go app.mqtt.Service()
	go app.runWebServer()

	app.wg.Add(1)
	go app.ranger()

	return nil
}

// init initializes the application.
func (app *App) init() (err error) {
	if err = app.openSensor(); err != nil {
		return err
	}

	if err = app.openDisplay(); err != nil {
		debug.ErrorLog.Printf("can't open display: %v", err)
		return err
	}

	if err = app.mqtt.Connect(app.config.MQTT.Connection, MODULE); err != nil {
		debug.ErrorLog.Printf("can't open mqtt broker %v", err)
		return err
	}

	// initDefaultRoutes should be always called last because it may access things like app.sensor
	// which must be initialized before
	app.initDefaultRoutes()

	return nil
}

// Shutdown returns the read only shutdown channel.
// Shutdown is closed when the application can't continue, e.g. the web server
// failed to listen. (see cmd/usdist.go)
func (app *App) Shutdown() <-chan struct{} {
	return app.shutdown
}

// signalShutdown closes the shutdown channel once.
func (app *App) signalShutdown() {
	app.shutdownOnce.Do(func() { close(app.shutdown) })
}

// Close stops the ranger loop and releases web server, mqtt and gpio.
func (app *App) Close() error {
	app.once.Do(app.close)
	return nil
}

func (app *App) close() {
	if app.quit != nil {
		close(app.quit)
	}
	app.wg.Wait()

	if app.web != nil {
		_ = app.web.Shutdown()
	}
	if app.mqtt != nil {
		_ = app.mqtt.Close()
	}

	for _, p := range app.pins {
		_ = p.Close()
	}
	if app.timer != nil {
		_ = app.timer.Close()
	}
	if app.echo != nil {
		_ = app.echo.Close()
	}
	if app.trigger != nil {
		_ = app.trigger.Close()
	}
	if app.gpio != nil {
		_ = app.gpio.Close()
	}
}
