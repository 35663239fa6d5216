// Package avsync implements the presentation-timing controller: a
// predicted continuous presentation clock that absorbs decode jitter
// instead of reacting to each frame's raw interval.
package avsync

import (
	"context"
	"time"

	"github.com/xaionaro-go/avwallpaper/internal"
	"github.com/xaionaro-go/xsync"
)

const (
	// SeedDelay is the assumed inter-frame delay until the PTS stream
	// provides a usable one (40ms, i.e. 25 fps).
	SeedDelay = 40 * time.Millisecond

	// MaxFrameDelta: PTS steps at least this large are treated as
	// discontinuities (seek, loop restart) and ignored.
	MaxFrameDelta = time.Second

	// DropThreshold: a frame scheduled less than this far in the
	// future is considered late and should be dropped, not presented.
	DropThreshold = 10 * time.Millisecond
)

// Clock tracks the predicted presentation instant of the next frame
// (frame timer), the last seen PTS and the last accepted inter-frame
// delay. It is safe for concurrent use: the render loop calls Delay
// while the pause path calls Advance.
type Clock struct {
	// Now is the time source; overridable in tests. Defaults to
	// time.Now.
	Now func() time.Time

	locker     xsync.Mutex
	lastPTS    time.Duration
	lastDelay  time.Duration
	frameTimer time.Time
}

func NewClock() *Clock {
	c := &Clock{
		Now:       time.Now,
		lastDelay: SeedDelay,
	}
	c.frameTimer = c.Now()
	return c
}

// Delay consumes one frame's PTS and returns the true delay: how far
// in the future the frame's predicted presentation instant lies. A
// negative or over-large PTS step (first frame, discontinuity, seek)
// reuses the previous delay unchanged.
func (c *Clock) Delay(ctx context.Context, pts time.Duration) time.Duration {
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &c.locker, func() time.Duration {
		delta := pts - c.lastPTS
		if delta <= 0 || delta >= MaxFrameDelta {
			delta = c.lastDelay
		}
		internal.Assert(ctx, delta > 0)
		c.lastDelay = delta
		c.lastPTS = pts

		c.frameTimer = c.frameTimer.Add(delta)
		return c.frameTimer.Sub(c.Now())
	})
}

// Advance shifts the frame timer forward, e.g. by the duration of a
// pause, so that the schedule resumes as though no time had elapsed.
func (c *Clock) Advance(ctx context.Context, d time.Duration) {
	c.locker.Do(xsync.WithNoLogging(ctx, true), func() {
		c.frameTimer = c.frameTimer.Add(d)
	})
}

// FrameTimer reports the predicted presentation instant of the frame
// consumed most recently.
func (c *Clock) FrameTimer(ctx context.Context) time.Time {
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &c.locker, func() time.Time {
		return c.frameTimer
	})
}
