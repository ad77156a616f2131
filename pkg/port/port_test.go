package port

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestEdgeString(t *testing.T) {
	c := qt.New(t)
	c.Assert(EdgeRising.String(), qt.Equals, "rising")
	c.Assert(EdgeFalling.String(), qt.Equals, "falling")
	c.Assert(EdgeBoth.String(), qt.Equals, "both")
	c.Assert(EdgeNone.String(), qt.Equals, "none")
}

func TestLevelOf(t *testing.T) {
	c := qt.New(t)
	c.Assert(LevelOf(0), qt.Equals, Low)
	c.Assert(LevelOf(1), qt.Equals, High)
	c.Assert(LevelOf(7), qt.Equals, High)
}
