package lcd

import (
	"strconv"
	"time"

	"usdist/pkg/port"
	"usdist/pkg/timing"
)

// HD44780 commands.
const (
	cmdClear        = 0x01
	cmdEntryMode    = 0x06 // increment, no shift
	cmdDisplayOn    = 0x0C // display on, cursor off, blink off
	cmdFunctionSet  = 0x28 // 4-bit bus, 2 lines, 5x8 font
	cmdSetDDRAMAddr = 0x80
)

// rowOffsets are the DDRAM addresses of the first character of each row.
var rowOffsets = [4]byte{0x00, 0x40, 0x14, 0x54}

// Pin is an output line of the display bus.
type Pin interface {
	Output()
	Write(l port.Level)
}

// HD44780 is a character LCD on a 4-bit parallel bus (RW tied to ground).
type HD44780 struct {
	rs, en Pin
	data   [4]Pin // D4..D7
	delay  timing.Delayer
	rows   int
	cols   int
}

// NewHD44780 creates the driver. Call Init before use.
func NewHD44780(rs, en Pin, d4, d5, d6, d7 Pin, rows, cols int, delay timing.Delayer) *HD44780 {
	return &HD44780{
		rs:    rs,
		en:    en,
		data:  [4]Pin{d4, d5, d6, d7},
		delay: delay,
		rows:  rows,
		cols:  cols,
	}
}

// Init runs the 4-bit initialisation by instruction of the datasheet and
// clears the display.
func (d *HD44780) Init() {
	d.rs.Output()
	d.en.Output()
	for _, p := range d.data {
		p.Output()
	}
	d.rs.Write(port.Low)
	d.en.Write(port.Low)

	d.delay.Delay(50 * time.Millisecond)

	d.nibble(0x3)
	d.delay.Delay(4100 * time.Microsecond)
	d.nibble(0x3)
	d.delay.Delay(100 * time.Microsecond)
	d.nibble(0x3)
	d.nibble(0x2)

	d.command(cmdFunctionSet)
	d.command(cmdDisplayOn)
	d.Clear()
	d.command(cmdEntryMode)
}

// Clear blanks the display and homes the cursor.
func (d *HD44780) Clear() {
	d.command(cmdClear)
	d.delay.Delay(2 * time.Millisecond)
}

func (d *HD44780) DisplayString(s string) {
	for i := 0; i < len(s); i++ {
		d.DisplayCharacter(s[i])
	}
}

// MoveCursor ignores positions outside the display.
func (d *HD44780) MoveCursor(row, col int) {
	if row < 0 || row >= d.rows || row >= len(rowOffsets) || col < 0 || col >= d.cols {
		return
	}
	d.command(cmdSetDDRAMAddr | (rowOffsets[row] + byte(col)))
}

func (d *HD44780) DisplayNumber(v int) {
	d.DisplayString(strconv.Itoa(v))
}

func (d *HD44780) DisplayCharacter(ch byte) {
	d.rs.Write(port.High)
	d.send(ch)
}

func (d *HD44780) command(b byte) {
	d.rs.Write(port.Low)
	d.send(b)
}

// send writes the high nibble first.
func (d *HD44780) send(b byte) {
	d.nibble(b >> 4)
	d.nibble(b & 0x0F)
	d.delay.Delay(40 * time.Microsecond)
}

// nibble puts 4 bits on D4..D7 and pulses enable; the display latches on
// the falling edge.
func (d *HD44780) nibble(n byte) {
	for i, p := range d.data {
		p.Write(port.Level((n >> i) & 1))
	}
	d.en.Write(port.High)
	d.delay.Delay(time.Microsecond)
	d.en.Write(port.Low)
	d.delay.Delay(time.Microsecond)
}
