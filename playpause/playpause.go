// Package playpause holds the shared pause-state pair consumed by the
// render loop and driven by the occlusion monitor and/or an external
// toggle (e.g. SIGUSR1 from the CLI).
package playpause

import (
	"context"
	"time"

	"github.com/go-ng/xatomic"
	"github.com/xaionaro-go/avwallpaper/logger"
	"github.com/xaionaro-go/xsync"
)

// DefaultWaitStep bounds each individual pause wait, so that a paused
// renderer still periodically re-checks shutdown.
const DefaultWaitStep = 40 * time.Millisecond

type Config struct {
	// ShiftClockOnToggle controls whether a resume coming from the
	// external toggle shifts the presentation clock by the paused
	// duration, the way occlusion-triggered resumes always do.
	ShiftClockOnToggle bool
}

// State is the pause-state pair: a boolean plus the instant pausing
// began. Transitions are idempotent; each actual change closes the
// current change-channel so waiters re-check immediately.
type State struct {
	Config Config

	// Now is the time source; overridable in tests.
	Now func() time.Time

	// OnResume receives the paused duration whenever a resume is
	// supposed to shift the presentation schedule.
	OnResume func(ctx context.Context, pausedFor time.Duration)

	locker     xsync.Mutex
	paused     bool
	pauseStart time.Time
	changeChan *chan struct{}
}

func New(cfg Config) *State {
	return &State{
		Config:     cfg,
		Now:        time.Now,
		changeChan: ptr(make(chan struct{})),
	}
}

// Request moves the state towards paused/running; requesting the
// current state is a no-op. This is the occlusion monitor's entry
// point, so a resume always shifts the clock.
func (s *State) Request(ctx context.Context, pause bool) {
	s.change(ctx, pause, true)
}

// Toggle flips the state (external pause toggle); the clock shift on
// resume is applied only if configured.
func (s *State) Toggle(ctx context.Context) {
	s.locker.Do(ctx, func() {
		s.changeLocked(ctx, !s.paused, s.Config.ShiftClockOnToggle)
	})
}

func (s *State) change(ctx context.Context, pause bool, shiftClock bool) {
	s.locker.Do(xsync.WithNoLogging(ctx, true), func() {
		s.changeLocked(ctx, pause, shiftClock)
	})
}

func (s *State) changeLocked(ctx context.Context, pause bool, shiftClock bool) {
	if s.paused == pause {
		return
	}

	now := s.Now()
	var pausedFor time.Duration
	if pause {
		s.pauseStart = now
	} else {
		pausedFor = now.Sub(s.pauseStart)
	}
	s.paused = pause
	logger.Debugf(ctx, "paused: %t (pausedFor: %v)", pause, pausedFor)

	close(*xatomic.SwapPointer(&s.changeChan, ptr(make(chan struct{}))))

	if !pause && shiftClock && pausedFor > 0 && s.OnResume != nil {
		s.OnResume(ctx, pausedFor)
	}
}

func (s *State) IsPaused() bool {
	ctx := context.TODO()
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &s.locker, func() bool {
		return s.paused
	})
}

// GetChangeChan returns a channel closed on the next state change.
func (s *State) GetChangeChan() <-chan struct{} {
	return *xatomic.LoadPointer(&s.changeChan)
}

// AwaitResumed blocks while the state is paused, in bounded steps so
// shutdown is observed within one step even without a state change.
// Returns false if the context was canceled while waiting.
func (s *State) AwaitResumed(ctx context.Context) bool {
	for s.IsPaused() {
		select {
		case <-ctx.Done():
			return false
		default:
		}

		t := time.NewTimer(DefaultWaitStep)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-s.GetChangeChan():
			t.Stop()
		case <-t.C:
		}
	}
	return true
}

func ptr[T any](in T) *T {
	return &in
}
