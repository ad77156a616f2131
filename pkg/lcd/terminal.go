package lcd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/womat/debug"
)

// Terminal renders the display on an ANSI terminal, with the top left
// character of the display at the top left of the screen.
type Terminal struct {
	w io.Writer
}

// NewTerminal clears the screen and returns the display.
func NewTerminal(w io.Writer) *Terminal {
	t := &Terminal{w: w}
	t.write("\x1b[2J\x1b[H")
	return t
}

func (t *Terminal) write(s string) {
	if _, err := io.WriteString(t.w, s); err != nil {
		debug.ErrorLog.Printf("terminal display: %v", err)
	}
}

func (t *Terminal) DisplayString(s string) {
	t.write(s)
}

func (t *Terminal) MoveCursor(row, col int) {
	t.write(fmt.Sprintf("\x1b[%d;%dH", row+1, col+1))
}

func (t *Terminal) DisplayNumber(v int) {
	t.write(strconv.Itoa(v))
}

func (t *Terminal) DisplayCharacter(ch byte) {
	t.write(string([]byte{ch}))
}
