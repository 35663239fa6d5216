package geometry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnionArea_Empty(t *testing.T) {
	require.Zero(t, UnionArea(nil))
	require.Zero(t, UnionArea([]Rect{}))
}

func TestUnionArea_SingleRect(t *testing.T) {
	require.EqualValues(t, 200*100, UnionArea([]Rect{
		{X: 10, Y: 20, Width: 200, Height: 100},
	}))
}

func TestUnionArea_IdenticalRectsCountOnce(t *testing.T) {
	r := Rect{X: 5, Y: 5, Width: 40, Height: 30}
	require.EqualValues(t, r.Area(), UnionArea([]Rect{r, r}))
}

func TestUnionArea_DisjointRectsSum(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	b := Rect{X: 100, Y: 100, Width: 20, Height: 5}
	require.EqualValues(t, a.Area()+b.Area(), UnionArea([]Rect{a, b}))
}

func TestUnionArea_PartialOverlap(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	b := Rect{X: 5, Y: 5, Width: 10, Height: 10}
	// 100 + 100 - 25 overlapping
	require.EqualValues(t, 175, UnionArea([]Rect{a, b}))
}

func TestUnionArea_TilingCoversScreenExactly(t *testing.T) {
	screen := Size{Width: 1920, Height: 1080}
	var tiles []Rect
	const cols, rows = 4, 3
	w, h := screen.Width/cols, screen.Height/rows
	for i := 0; i < cols; i++ {
		for j := 0; j < rows; j++ {
			tiles = append(tiles, Rect{X: i * w, Y: j * h, Width: w, Height: h})
		}
	}
	require.EqualValues(t, screen.Area(), UnionArea(tiles))
}

func TestUnionArea_ZeroSizedRectsContributeNothing(t *testing.T) {
	require.Zero(t, UnionArea([]Rect{
		{X: 0, Y: 0, Width: 0, Height: 100},
		{X: 0, Y: 0, Width: 100, Height: 0},
		{X: 3, Y: 4, Width: -5, Height: 6},
	}))

	// Mixed with a real rectangle they still contribute nothing.
	require.EqualValues(t, 50, UnionArea([]Rect{
		{X: 0, Y: 0, Width: 0, Height: 100},
		{X: 0, Y: 0, Width: 10, Height: 5},
	}))
}

func TestUnionArea_SharedEdgesNoDoubleCount(t *testing.T) {
	// Two rectangles sharing a vertical edge.
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	b := Rect{X: 10, Y: 0, Width: 10, Height: 10}
	require.EqualValues(t, 200, UnionArea([]Rect{a, b}))

	// And a horizontal edge.
	c := Rect{X: 0, Y: 10, Width: 10, Height: 10}
	require.EqualValues(t, 200, UnionArea([]Rect{a, c}))
}

func TestUnionArea_NestedRects(t *testing.T) {
	outer := Rect{X: 0, Y: 0, Width: 100, Height: 100}
	inner := Rect{X: 25, Y: 25, Width: 10, Height: 10}
	require.EqualValues(t, outer.Area(), UnionArea([]Rect{outer, inner}))
}

func TestRect_Clip(t *testing.T) {
	screen := Rect{X: 0, Y: 0, Width: 1920, Height: 1080}

	// Fully inside: unchanged.
	r := Rect{X: 100, Y: 100, Width: 200, Height: 200}
	require.Equal(t, r, r.Clip(screen))

	// Sticking out left/top.
	r = Rect{X: -50, Y: -20, Width: 100, Height: 100}
	require.Equal(t, Rect{X: 0, Y: 0, Width: 50, Height: 80}, r.Clip(screen))

	// Fully outside becomes empty.
	r = Rect{X: 2000, Y: 0, Width: 100, Height: 100}
	require.True(t, r.Clip(screen).IsEmpty())

	// Overhanging right/bottom.
	r = Rect{X: 1900, Y: 1000, Width: 100, Height: 200}
	require.Equal(t, Rect{X: 1900, Y: 1000, Width: 20, Height: 80}, r.Clip(screen))
}
