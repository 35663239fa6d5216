// Package player owns the playback session: the demux and decode
// stages feeding bounded queues, and the render loop that presents
// pictures on the caller's goroutine (the one that owns the display
// surface).
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/xaionaro-go/avwallpaper/avsync"
	"github.com/xaionaro-go/avwallpaper/decode"
	"github.com/xaionaro-go/avwallpaper/geometry"
	"github.com/xaionaro-go/avwallpaper/logger"
	"github.com/xaionaro-go/avwallpaper/occlusion"
	"github.com/xaionaro-go/avwallpaper/packet"
	"github.com/xaionaro-go/avwallpaper/picture"
	"github.com/xaionaro-go/avwallpaper/playpause"
	"github.com/xaionaro-go/avwallpaper/queue"
	"github.com/xaionaro-go/avwallpaper/surface"
	"github.com/xaionaro-go/avwallpaper/winsys"
	"golang.org/x/sync/errgroup"
)

const (
	PacketQueueCapacity  = 128
	PictureQueueCapacity = 8
)

// Source is what the demux stage reads from.
type Source interface {
	ReadUnit(ctx context.Context) (packet.Unit, error)
	SeekToStart(ctx context.Context) error
}

// Decoder is what the decode stage feeds and drains.
type Decoder interface {
	SendUnit(ctx context.Context, u packet.Unit) error
	ReceivePicture(ctx context.Context) (picture.Picture, error)
	Flush(ctx context.Context) error
}

type Config struct {
	// Loop restarts the media from its first frame on EOF instead of
	// ending the session.
	Loop bool

	Placement surface.Policy

	// ShiftClockOnToggle: see playpause.Config.
	ShiftClockOnToggle bool

	// WinSys enables the occlusion monitor when non-nil.
	WinSys    winsys.WindowSystem
	Occlusion occlusion.Config
}

// Session wires one source+decoder+surface triple together. Build it
// with New and drive it with Serve; a Session is single-use.
type Session struct {
	Config Config

	Source  Source
	Decoder Decoder
	Surface surface.Surface

	Clock        *avsync.Clock
	Pause        *playpause.State
	PacketQueue  *queue.Queue[packet.Unit]
	PictureQueue *queue.Queue[picture.Picture]

	unitsDemuxed    atomic.Uint64
	picturesDecoded atomic.Uint64
	framesRendered  atomic.Uint64
	framesDropped   atomic.Uint64
}

func New(
	ctx context.Context,
	src Source,
	dec Decoder,
	surf surface.Surface,
	cfg Config,
) *Session {
	s := &Session{
		Config:  cfg,
		Source:  src,
		Decoder: dec,
		Surface: surf,

		Clock:        avsync.NewClock(),
		Pause:        playpause.New(playpause.Config{ShiftClockOnToggle: cfg.ShiftClockOnToggle}),
		PacketQueue:  queue.New(PacketQueueCapacity, packet.Unit.GetSize),
		PictureQueue: queue.New(PictureQueueCapacity, picture.Picture.GetSize),
	}
	s.Pause.OnResume = func(ctx context.Context, pausedFor time.Duration) {
		logger.Debugf(ctx, "resumed after %v, shifting the presentation schedule", pausedFor)
		s.Clock.Advance(ctx, pausedFor)
	}
	return s
}

// Serve runs the whole pipeline. The demux and decode stages (and the
// occlusion monitor, if enabled) get their own goroutines; rendering
// happens on the calling goroutine. Serve returns when the media ends
// (non-loop mode), the context is canceled, or a stage fails.
func (s *Session) Serve(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "Serve")
	defer func() { logger.Debugf(ctx, "/Serve: %v", _err) }()

	ctx, cancelFn := context.WithCancel(ctx)
	defer cancelFn()

	// cancellation wakes every producer/consumer blocked on a queue
	defer context.AfterFunc(ctx, s.PacketQueue.Close)()
	defer context.AfterFunc(ctx, s.PictureQueue.Close)()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.demuxLoop(gCtx) })
	g.Go(func() error { return s.decodeLoop(gCtx) })
	if s.Config.WinSys != nil {
		monitor := occlusion.NewMonitor(s.Config.WinSys, s.Pause, s.Config.Occlusion)
		g.Go(func() error {
			monitor.ServeLoop(gCtx)
			return nil
		})
	}

	renderErr := s.renderLoop(ctx)
	cancelFn()
	stagesErr := g.Wait()

	// the stages have joined, so nothing produces anymore; return
	// whatever is still buffered to the pools instead of leaving it
	// to the finalizers
	s.PacketQueue.Drain(packet.Unit.Release)
	s.PictureQueue.Drain(picture.Picture.Release)

	switch {
	case renderErr != nil:
		return renderErr
	case stagesErr != nil && !errors.Is(stagesErr, context.Canceled):
		return stagesErr
	}
	return nil
}

func (s *Session) demuxLoop(ctx context.Context) (_err error) {
	logger.Tracef(ctx, "demuxLoop")
	defer func() { logger.Tracef(ctx, "/demuxLoop: %v", _err) }()
	defer s.PacketQueue.Close()

	for {
		unit, err := s.Source.ReadUnit(ctx)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			if !s.Config.Loop {
				return nil
			}
			// the backward seek lands on a keyframe, so decoding
			// continues cleanly without a decoder reset
			if err := s.Source.SeekToStart(ctx); err != nil {
				return fmt.Errorf("unable to restart the media: %w", err)
			}
			continue
		case errors.Is(err, context.Canceled):
			return err
		default:
			return fmt.Errorf("unable to read the next encoded unit: %w", err)
		}

		if err := s.PacketQueue.Push(unit); err != nil {
			unit.Release()
			if errors.Is(err, queue.ErrClosed) {
				return nil
			}
			return err
		}
		s.unitsDemuxed.Add(1)
	}
}

func (s *Session) decodeLoop(ctx context.Context) (_err error) {
	logger.Tracef(ctx, "decodeLoop")
	defer func() { logger.Tracef(ctx, "/decodeLoop: %v", _err) }()
	defer s.PictureQueue.Close()

	for {
		unit, err := s.PacketQueue.Pop()
		if err != nil { // closed and drained
			if err := s.Decoder.Flush(ctx); err != nil {
				return err
			}
			// the picture queue may already be closed too (e.g. the
			// whole session is unwinding), which is still a clean end
			if err := s.pushDecodedPictures(ctx); err != nil && !errors.Is(err, queue.ErrClosed) {
				return err
			}
			return nil
		}

		if err := s.Decoder.SendUnit(ctx, unit); err != nil {
			// a broken unit ends the stream instead of killing the
			// process; the wallpaper just stops on its last frame
			logger.Errorf(ctx, "decode error, ending the stream: %v", err)
			return nil
		}

		if err := s.pushDecodedPictures(ctx); err != nil {
			if errors.Is(err, queue.ErrClosed) {
				return nil
			}
			return err
		}
	}
}

// pushDecodedPictures drains every picture the decoder has ready and
// pushes them downstream.
func (s *Session) pushDecodedPictures(ctx context.Context) error {
	for {
		pic, err := s.Decoder.ReceivePicture(ctx)
		switch {
		case err == nil:
		case errors.Is(err, decode.ErrDrained):
			return nil
		case errors.Is(err, io.EOF):
			return nil
		default:
			logger.Errorf(ctx, "decode error, ending the stream: %v", err)
			return nil
		}

		if err := s.PictureQueue.Push(pic); err != nil {
			pic.Release()
			return err
		}
		s.picturesDecoded.Add(1)
	}
}

func (s *Session) renderLoop(ctx context.Context) (_err error) {
	logger.Tracef(ctx, "renderLoop")
	defer func() { logger.Tracef(ctx, "/renderLoop: %v", _err) }()

	for {
		if !s.Pause.AwaitResumed(ctx) {
			return nil
		}

		pic, err := s.PictureQueue.Pop()
		if err != nil { // closed and drained: the stream has ended
			return nil
		}

		trueDelay := s.Clock.Delay(ctx, pic.PTS)
		if trueDelay < avsync.DropThreshold {
			logger.Tracef(ctx, "dropping a late picture (pts=%v, delay=%v)", pic.PTS, trueDelay)
			pic.Release()
			s.framesDropped.Add(1)
			continue
		}

		if !s.sleep(ctx, trueDelay.Round(time.Millisecond)) {
			pic.Release()
			return nil
		}

		dst := surface.Place(
			geometry.Size{Width: pic.Width(), Height: pic.Height()},
			s.Surface.Bounds(),
			s.Config.Placement,
		)
		err = s.Surface.Draw(ctx, pic, dst)
		pic.Release()
		if err != nil {
			return fmt.Errorf("unable to present a picture: %w", err)
		}
		s.framesRendered.Add(1)
	}
}

// sleep waits for d; reports false if the context was canceled first.
func (s *Session) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	select {
	case <-ctx.Done():
		t.Stop()
		return false
	case <-t.C:
		return true
	}
}

// TogglePause flips the pause state, e.g. on SIGUSR1.
func (s *Session) TogglePause(ctx context.Context) {
	s.Pause.Toggle(ctx)
}

type Stats struct {
	UnitsDemuxed    uint64
	PicturesDecoded uint64
	FramesRendered  uint64
	FramesDropped   uint64

	PacketQueueLen   int
	PacketQueueBytes int
	PictureQueueLen  int
}

func (s *Session) GetStats() Stats {
	return Stats{
		UnitsDemuxed:    s.unitsDemuxed.Load(),
		PicturesDecoded: s.picturesDecoded.Load(),
		FramesRendered:  s.framesRendered.Load(),
		FramesDropped:   s.framesDropped.Load(),

		PacketQueueLen:   s.PacketQueue.Len(),
		PacketQueueBytes: s.PacketQueue.Size(),
		PictureQueueLen:  s.PictureQueue.Len(),
	}
}
