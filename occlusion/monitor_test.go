package occlusion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/avwallpaper/geometry"
	"github.com/xaionaro-go/avwallpaper/playpause"
	"github.com/xaionaro-go/avwallpaper/winsys"
)

func newTestMonitor(ws winsys.WindowSystem) (*Monitor, *playpause.State) {
	pause := playpause.New(playpause.Config{})
	return NewMonitor(ws, pause, Config{}), pause
}

func TestCoveragePercent_EmptyScreen(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMonitor(&winsys.Static{
		Screen: geometry.Size{Width: 1920, Height: 1080},
	})

	percent, err := m.CoveragePercent(ctx)
	require.NoError(t, err)
	require.Zero(t, percent)
}

func TestCoveragePercent_IgnoresInvisibleAndOffscreen(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMonitor(&winsys.Static{
		Screen: geometry.Size{Width: 1000, Height: 1000},
		Content: []winsys.Window{
			{Visible: false, Rect: geometry.Rect{X: 0, Y: 0, Width: 1000, Height: 1000}},
			{Visible: true, Rect: geometry.Rect{X: 5000, Y: 5000, Width: 100, Height: 100}},
			{Visible: true, Rect: geometry.Rect{X: 0, Y: 0, Width: 500, Height: 500}},
		},
	})

	percent, err := m.CoveragePercent(ctx)
	require.NoError(t, err)
	require.Equal(t, 25, percent)
}

func TestCoveragePercent_ClipsToScreen(t *testing.T) {
	ctx := context.Background()
	// A window half off-screen only counts its on-screen half.
	m, _ := newTestMonitor(&winsys.Static{
		Screen: geometry.Size{Width: 1000, Height: 1000},
		Content: []winsys.Window{
			{Visible: true, Rect: geometry.Rect{X: -500, Y: 0, Width: 1000, Height: 1000}},
		},
	})

	percent, err := m.CoveragePercent(ctx)
	require.NoError(t, err)
	require.Equal(t, 50, percent)
}

func TestCheckOnce_TilingTriggersPauseAndUncoverResumes(t *testing.T) {
	ctx := context.Background()
	ws := &winsys.Static{
		Screen: geometry.Size{Width: 800, Height: 600},
		Content: []winsys.Window{
			{Visible: true, Rect: geometry.Rect{X: 0, Y: 0, Width: 400, Height: 600}},
			{Visible: true, Rect: geometry.Rect{X: 400, Y: 0, Width: 400, Height: 600}},
		},
	}
	m, pause := newTestMonitor(ws)

	m.checkOnce(ctx)
	require.True(t, pause.IsPaused())

	// Pausing again while paused is a no-op, not an error.
	m.checkOnce(ctx)
	require.True(t, pause.IsPaused())

	ws.Content = nil
	m.checkOnce(ctx)
	require.False(t, pause.IsPaused())
}

func TestCheckOnce_BelowThresholdKeepsRunning(t *testing.T) {
	ctx := context.Background()
	m, pause := newTestMonitor(&winsys.Static{
		Screen: geometry.Size{Width: 1000, Height: 1000},
		Content: []winsys.Window{
			{Visible: true, Rect: geometry.Rect{X: 0, Y: 0, Width: 700, Height: 1000}},
		},
	})

	// Exactly at the threshold (70%): pause requires strictly more.
	m.checkOnce(ctx)
	require.False(t, pause.IsPaused())
}
