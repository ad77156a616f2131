// Package lcd drives character displays.
package lcd

// Display is a character display addressed by row and column.
type Display interface {
	DisplayString(s string)
	MoveCursor(row, col int)
	DisplayNumber(v int)
	DisplayCharacter(ch byte)
}

// Multi writes to several displays at once.
type Multi []Display

func (m Multi) DisplayString(s string) {
	for _, d := range m {
		d.DisplayString(s)
	}
}

func (m Multi) MoveCursor(row, col int) {
	for _, d := range m {
		d.MoveCursor(row, col)
	}
}

func (m Multi) DisplayNumber(v int) {
	for _, d := range m {
		d.DisplayNumber(v)
	}
}

func (m Multi) DisplayCharacter(ch byte) {
	for _, d := range m {
		d.DisplayCharacter(ch)
	}
}
