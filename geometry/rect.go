// Package geometry provides the screen-space rectangle math used by
// the occlusion monitor.
package geometry

type Size struct {
	Width  int
	Height int
}

func (s Size) Area() int64 {
	return int64(s.Width) * int64(s.Height)
}

// Rect is an axis-aligned rectangle in screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

func (r Rect) Area() int64 {
	if r.IsEmpty() {
		return 0
	}
	return int64(r.Width) * int64(r.Height)
}

// Clip intersects the rectangle with the given bounds; the result is
// empty if they do not overlap.
func (r Rect) Clip(bounds Rect) Rect {
	x1 := max(r.X, bounds.X)
	y1 := max(r.Y, bounds.Y)
	x2 := min(r.X+r.Width, bounds.X+bounds.Width)
	y2 := min(r.Y+r.Height, bounds.Y+bounds.Height)
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}
