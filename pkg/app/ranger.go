package app

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"usdist/pkg/measurement"
	"usdist/pkg/mqtt"

	"github.com/womat/debug"
)

const (
	banner = "DISTANCE:     CM"
	// position and width of the distance on the display
	numberRow   = 0
	numberCol   = 10
	numberWidth = 4
	// numberMax is the largest distance fitting in numberWidth columns
	numberMax = 9999
)

// ranger shows the banner and measures until Close is called.
func (app *App) ranger() {
	defer app.wg.Done()

	app.showBanner()

	t := time.NewTicker(app.config.Sensor.Interval)
	defer t.Stop()

	for {
		app.measure()

		select {
		case <-app.quit:
			return
		case <-t.C:
		}
	}
}

func (app *App) showBanner() {
	app.display.MoveCursor(0, 0)
	app.display.DisplayString(banner)
}

// measure reads the sensor once, shows the distance and saves the measurement
// to app main structure.
func (app *App) measure() {
	m, err := app.measurement.Get()
	switch {
	case errors.Is(err, measurement.ErrNoEcho):
		debug.DebugLog.Printf("no echo, last distance %v cm", m.Distance)
	case err != nil:
		debug.DebugLog.Printf("distance %v cm: %v", m.Distance, err)
	default:
		debug.TraceLog.Printf("distance %v cm, pulse width %v ticks", m.Distance, m.PulseWidth)
	}

	app.render(m.Distance)

	app.last.Lock()
	app.last.data = m
	app.last.err = err
	app.last.Unlock()

	if err == nil {
		app.validateMeasurement(m)
	}
}

// render writes the distance behind the banner. Shorter numbers are padded
// with blanks to erase the digits of the previous value, larger ones are
// shown as numberMax.
func (app *App) render(d uint16) {
	if d > numberMax {
		d = numberMax
	}
	app.display.MoveCursor(numberRow, numberCol)
	app.display.DisplayNumber(int(d))
	for n := len(strconv.Itoa(int(d))); n < numberWidth; n++ {
		app.display.DisplayCharacter(' ')
	}
}

// lastMeasurement returns the last measurement and its validation error.
func (app *App) lastMeasurement() (measurement.Measurement, error) {
	app.last.RLock()
	defer app.last.RUnlock()
	return app.last.data, app.last.err
}

// validateMeasurement checks the measurement by deltaT and the distance delta
// and sends it to mqtt if one of them is exceeded.
func (app *App) validateMeasurement(m measurement.Measurement) {
	app.mqttData.Lock()
	defer app.mqttData.Unlock()

	deltaT := m.Time.Sub(app.mqttData.data.Time)
	deltaD := m.Distance - app.mqttData.data.Distance
	if m.Distance < app.mqttData.data.Distance {
		deltaD = app.mqttData.data.Distance - m.Distance
	}

	if deltaT >= app.config.MQTT.Interval || deltaD >= app.config.MQTT.Delta {
		app.sendMQTT(app.config.MQTT.Topic, m)
		app.mqttData.data = m
	}
}

// sendMQTT send message struct to the mqtt broker.
func (app *App) sendMQTT(topic string, message interface{}) {
	app.wg.Add(1)
	go func(t string, r interface{}) {
		defer app.wg.Done()
		debug.TraceLog.Printf("prepare mqtt message %v %v", t, r)

		b, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			debug.ErrorLog.Printf("sendMQTT marshal: %v", err)
			return
		}

		select {
		case app.mqtt.C <- mqtt.Message{
			Qos:      0,
			Retained: true,
			Topic:    t,
			Payload:  b,
		}:
		case <-app.quit:
		}
	}(topic, message)
}
