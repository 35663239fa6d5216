// Package winsys defines the windowing-system collaborator: the
// occlusion monitor only needs the screen dimensions and the list of
// top-level windows, so the actual X11/Wayland plumbing stays outside
// this module and is injected by the embedder.
package winsys

import (
	"context"

	"github.com/xaionaro-go/avwallpaper/geometry"
)

// Window is one top-level window as reported by the windowing system.
type Window struct {
	// Visible reports whether the window is currently mapped (not
	// minimized/unmapped).
	Visible bool
	Rect    geometry.Rect
}

// WindowSystem enumerates the screen and its top-level windows.
//
// Implementations are expected to silently skip windows that disappear
// between enumeration and attribute fetch; such races are not errors.
type WindowSystem interface {
	ScreenSize(ctx context.Context) (geometry.Size, error)
	Windows(ctx context.Context) ([]Window, error)
}

// Static is a fixed-content WindowSystem, mostly useful in tests.
type Static struct {
	Screen  geometry.Size
	Content []Window
}

var _ WindowSystem = (*Static)(nil)

func (s *Static) ScreenSize(ctx context.Context) (geometry.Size, error) {
	return s.Screen, nil
}

func (s *Static) Windows(ctx context.Context) ([]Window, error) {
	return append([]Window(nil), s.Content...), nil
}
