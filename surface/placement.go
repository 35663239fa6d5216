// Package surface abstracts the display: the render stage hands it one
// decoded picture at a time, already placed according to the resolution
// policy. Implementations are single-goroutine affine; the render loop
// is the only caller.
package surface

import (
	"fmt"
	"strings"

	"github.com/xaionaro-go/avwallpaper/geometry"
)

// Policy selects how a video frame is placed onto the screen.
type Policy int

const (
	// PolicyFit scales the video to the largest size that fits the
	// screen while preserving the aspect ratio, centered.
	PolicyFit Policy = iota
	// PolicyKeep presents the video at its native size, centered; it
	// may be smaller or larger than the screen.
	PolicyKeep
	// PolicyScale stretches the video to the full screen, ignoring
	// the aspect ratio.
	PolicyScale
)

func (p Policy) String() string {
	switch p {
	case PolicyFit:
		return "fit"
	case PolicyKeep:
		return "keep"
	case PolicyScale:
		return "scale"
	}
	return fmt.Sprintf("unknown_policy_%d", int(p))
}

func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fit":
		return PolicyFit, nil
	case "keep":
		return PolicyKeep, nil
	case "scale":
		return PolicyScale, nil
	}
	return 0, fmt.Errorf("unknown placement policy '%s' (expected: keep, scale or fit)", s)
}

// Place computes the destination rectangle for a video of the given
// size on the given screen. An unknown screen size (zero) degrades to
// the video's native rectangle at the origin.
func Place(video geometry.Size, screen geometry.Size, policy Policy) geometry.Rect {
	if video.Width <= 0 || video.Height <= 0 {
		return geometry.Rect{}
	}
	if screen.Width <= 0 || screen.Height <= 0 {
		return geometry.Rect{Width: video.Width, Height: video.Height}
	}

	switch policy {
	case PolicyScale:
		return geometry.Rect{Width: screen.Width, Height: screen.Height}
	case PolicyKeep:
		return geometry.Rect{
			X:      screen.Width/2 - video.Width/2,
			Y:      screen.Height/2 - video.Height/2,
			Width:  video.Width,
			Height: video.Height,
		}
	}

	// Fit: limited by whichever dimension runs out first.
	w := screen.Width
	h := w * video.Height / video.Width
	if h > screen.Height {
		h = screen.Height
		w = h * video.Width / video.Height
	}
	return geometry.Rect{
		X:      screen.Width/2 - w/2,
		Y:      screen.Height/2 - h/2,
		Width:  w,
		Height: h,
	}
}
