package app

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

type dataResponse struct {
	TimeStamp  time.Time // timestamp of the last measurement
	Distance   uint16    // distance to the object
	Unit       string    // unit of distance, always cm
	PulseWidth uint16    // echo pulse width in timer ticks
	Cycles     uint32    // number of completed echoes
	Error      string    `json:",omitempty"` // reason why the distance is not valid
}

// runWebServer starts the applications web server and listens for web requests.
//  It's designed to run in a separate go function to not block the main go function.
//  e.g.: go runWebServer()
//  See app.Run()
//  If the web server can't listen, the application is shut down.
func (app *App) runWebServer() {
	if err := app.web.Listen(app.urlParsed.Host); err != nil {
		debug.ErrorLog.Printf("web server %v: %v", app.urlParsed.Host, err)
		app.signalShutdown()
	}
}

// HandleData returns the last measurement.
func (app *App) HandleData() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request data")

		m, err := app.lastMeasurement()
		r := dataResponse{
			TimeStamp:  m.Time,
			Distance:   m.Distance,
			Unit:       m.Unit,
			PulseWidth: m.PulseWidth,
			Cycles:     app.sensor.Cycles(),
		}
		if err != nil {
			r.Error = err.Error()
		}
		return ctx.JSON(r)
	}
}

// HandleDisplay returns the lines shown on the display.
func (app *App) HandleDisplay() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request display")

		return ctx.JSON(fiber.Map{
			"type":  app.config.Display.Type,
			"lines": app.mirror.Lines(),
		})
	}
}
