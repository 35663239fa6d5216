package geometry

import (
	"sort"
)

const (
	sweepClose = -1
	sweepOpen  = +1
)

// sweepEvent marks a horizontal edge of a rectangle: the sweep line
// opens the rectangle's x-range at its top and closes it at its
// bottom. x1/x2 are indices into the rank-compressed x coordinates.
type sweepEvent struct {
	y   int
	dir int
	x1  int
	x2  int
}

type sweepEvents []sweepEvent

var _ sort.Interface = (sweepEvents)(nil)

func (s sweepEvents) Len() int {
	return len(s)
}

// Closes sort before opens at equal y, so a rectangle's own bottom
// edge never double-counts the row it ends on.
func (s sweepEvents) Less(i, j int) bool {
	a, b := s[i], s[j]
	if a.y != b.y {
		return a.y < b.y
	}
	if a.dir != b.dir {
		return a.dir < b.dir
	}
	if a.x1 != b.x1 {
		return a.x1 < b.x1
	}
	return a.x2 < b.x2
}

func (s sweepEvents) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

// UnionArea computes the area of the union of the given rectangles by
// sweeping top to bottom over rank-compressed x coordinates. Empty
// rectangles contribute nothing; overlaps are counted once.
func UnionArea(rects []Rect) int64 {
	xs := make([]int, 0, 2*len(rects))
	n := 0
	for _, r := range rects {
		if r.IsEmpty() {
			continue
		}
		n++
		xs = append(xs, r.X, r.X+r.Width)
	}
	if n == 0 {
		return 0
	}

	// Rank-compress: duplicates collapse, ranks index the intervals
	// between consecutive unique coordinates.
	sort.Ints(xs)
	xs = compactInts(xs)
	rank := make(map[int]int, len(xs))
	for i, x := range xs {
		rank[x] = i
	}

	events := make(sweepEvents, 0, 2*n)
	for _, r := range rects {
		if r.IsEmpty() {
			continue
		}
		x1, x2 := rank[r.X], rank[r.X+r.Width]
		events = append(events,
			sweepEvent{y: r.Y, dir: sweepOpen, x1: x1, x2: x2},
			sweepEvent{y: r.Y + r.Height, dir: sweepClose, x1: x1, x2: x2},
		)
	}
	sort.Sort(events)

	// coverage[i] counts rectangles currently spanning the interval
	// xs[i]..xs[i+1]; coveredWidth tracks the summed width of the
	// intervals with non-zero coverage.
	coverage := make([]int, len(xs)-1)
	var area int64
	var coveredWidth int64
	prevY := events[0].y
	for _, e := range events {
		area += int64(e.y-prevY) * coveredWidth
		for i := e.x1; i < e.x2; i++ {
			before := coverage[i]
			coverage[i] += e.dir
			width := int64(xs[i+1] - xs[i])
			switch {
			case before == 0 && coverage[i] > 0:
				coveredWidth += width
			case before > 0 && coverage[i] == 0:
				coveredWidth -= width
			}
		}
		prevY = e.y
	}
	return area
}

func compactInts(sorted []int) []int {
	out := sorted[:0]
	for i, v := range sorted {
		if i == 0 || v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
