// Package port holds the definition of a physical port
package port

import "time"

// Edge indicates the type of change to the line level.
type Edge int

const (
	// EdgeNone indicates no edge detection.
	EdgeNone Edge = iota
	// EdgeRising indicates a low to high transition.
	EdgeRising
	// EdgeFalling indicates a high to low transition.
	EdgeFalling
	// EdgeBoth indicates both transitions.
	EdgeBoth
)

// String returns the lower case name of the edge.
func (e Edge) String() string {
	switch e {
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	case EdgeBoth:
		return "both"
	default:
		return "none"
	}
}

// Event is a single edge seen on an input line.
type Event struct {
	// Timestamp indicates the time the event was detected.
	// Only differences between timestamps of the same line are meaningful.
	Timestamp time.Duration
	// The type of state change event this structure represents.
	Type Edge
}

// Level is the logical level of a pin.
type Level int

const (
	// Low indicates a logical 0.
	Low Level = 0
	// High indicates a logical 1.
	High Level = 1
)

// LevelOf converts a line value (0 or 1) to a Level.
func LevelOf(v int) Level {
	if v == 0 {
		return Low
	}
	return High
}
