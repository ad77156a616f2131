package lcd

import (
	"strconv"
	"strings"
	"sync"
)

// Memory is a display kept in memory. It mirrors what a real module shows.
type Memory struct {
	mu       sync.Mutex
	cells    [][]byte
	row, col int
}

// NewMemory returns a blank display of rows x cols characters.
func NewMemory(rows, cols int) *Memory {
	m := &Memory{cells: make([][]byte, rows)}
	for i := range m.cells {
		m.cells[i] = []byte(strings.Repeat(" ", cols))
	}
	return m
}

func (m *Memory) DisplayString(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < len(s); i++ {
		m.put(s[i])
	}
}

// MoveCursor ignores positions outside the display.
func (m *Memory) MoveCursor(row, col int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row < 0 || row >= len(m.cells) || col < 0 || col >= len(m.cells[row]) {
		return
	}
	m.row, m.col = row, col
}

func (m *Memory) DisplayNumber(v int) {
	m.DisplayString(strconv.Itoa(v))
}

func (m *Memory) DisplayCharacter(ch byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(ch)
}

// put writes at the cursor; characters beyond the end of a row are lost.
func (m *Memory) put(ch byte) {
	if m.row >= len(m.cells) || m.col >= len(m.cells[m.row]) {
		return
	}
	m.cells[m.row][m.col] = ch
	m.col++
}

// Lines returns the content of the display, one string per row.
func (m *Memory) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	lines := make([]string, len(m.cells))
	for i, r := range m.cells {
		lines[i] = string(r)
	}
	return lines
}
