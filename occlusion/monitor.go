// Package occlusion decides whether playback should be suspended
// because too much of the screen is covered by other windows.
package occlusion

import (
	"context"
	"fmt"
	"time"

	"github.com/xaionaro-go/avwallpaper/geometry"
	"github.com/xaionaro-go/avwallpaper/logger"
	"github.com/xaionaro-go/avwallpaper/playpause"
	"github.com/xaionaro-go/avwallpaper/winsys"
)

const (
	// DefaultThresholdPercent: covered screen share above which
	// playback is paused.
	DefaultThresholdPercent = 70

	// DefaultCheckInterval between coverage polls.
	DefaultCheckInterval = 100 * time.Millisecond
)

type Config struct {
	ThresholdPercent int
	CheckInterval    time.Duration
}

func (cfg Config) withDefaults() Config {
	if cfg.ThresholdPercent == 0 {
		cfg.ThresholdPercent = DefaultThresholdPercent
	}
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = DefaultCheckInterval
	}
	return cfg
}

// Monitor periodically measures screen coverage and drives the shared
// pause state. It never touches the packet/picture queues.
type Monitor struct {
	Config Config
	WinSys winsys.WindowSystem
	Pause  *playpause.State
}

func NewMonitor(
	winSys winsys.WindowSystem,
	pause *playpause.State,
	cfg Config,
) *Monitor {
	return &Monitor{
		Config: cfg.withDefaults(),
		WinSys: winSys,
		Pause:  pause,
	}
}

// CoveragePercent computes which percentage of the screen is covered
// by visible windows (union area, overlaps counted once).
func (m *Monitor) CoveragePercent(ctx context.Context) (int, error) {
	screen, err := m.WinSys.ScreenSize(ctx)
	if err != nil {
		return 0, fmt.Errorf("unable to get the screen size: %w", err)
	}
	if screen.Area() <= 0 {
		return 0, fmt.Errorf("the screen reports a non-positive area: %dx%d", screen.Width, screen.Height)
	}

	windows, err := m.WinSys.Windows(ctx)
	if err != nil {
		return 0, fmt.Errorf("unable to enumerate the windows: %w", err)
	}

	bounds := geometry.Rect{Width: screen.Width, Height: screen.Height}
	rects := make([]geometry.Rect, 0, len(windows))
	for _, w := range windows {
		if !w.Visible {
			continue
		}
		clipped := w.Rect.Clip(bounds)
		if clipped.IsEmpty() {
			continue
		}
		rects = append(rects, clipped)
	}

	percent := 100 * geometry.UnionArea(rects) / screen.Area()
	return int(percent), nil
}

func (m *Monitor) checkOnce(ctx context.Context) {
	percent, err := m.CoveragePercent(ctx)
	if err != nil {
		// A failed poll never flips the pause state; we just try
		// again next interval.
		logger.Errorf(ctx, "unable to measure the screen coverage: %v", err)
		return
	}
	logger.Tracef(ctx, "screen coverage: %d%%", percent)
	m.Pause.Request(ctx, percent > m.Config.ThresholdPercent)
}

// ServeLoop polls at the configured interval until the context is
// canceled.
func (m *Monitor) ServeLoop(ctx context.Context) {
	logger.Debugf(ctx, "ServeLoop")
	defer logger.Debugf(ctx, "/ServeLoop")

	t := time.NewTicker(m.Config.CheckInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.checkOnce(ctx)
		}
	}
}
