// Package mediasource opens a local media file and hands out its
// encoded video units one at a time. It also knows how to rewind the
// file to its first frame, which is how looped playback is built.
package mediasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
	"github.com/davecgh/go-spew/spew"
	"github.com/xaionaro-go/avwallpaper/internal"
	"github.com/xaionaro-go/avwallpaper/logger"
	"github.com/xaionaro-go/avwallpaper/packet"
	"github.com/xaionaro-go/unsafetools"
	"github.com/xaionaro-go/xcontext"
	"github.com/xaionaro-go/xsync"
)

type Config struct {
	CustomOptions map[string]string
}

// Source is an opened media file with one selected video stream.
//
// ReadUnit and SeekToStart serialize on an internal lock; the format
// context is not safe for concurrent use.
type Source struct {
	*astiav.FormatContext

	URL string

	locker      xsync.Mutex
	closer      *astikit.Closer
	videoStream *astiav.Stream
}

func NewFromFile(
	ctx context.Context,
	path string,
	cfg Config,
) (_ *Source, _err error) {
	logger.Tracef(ctx, "NewFromFile(ctx, '%s')", path)
	defer func() { logger.Tracef(ctx, "/NewFromFile(ctx, '%s'): %v", path, _err) }()
	if path == "" {
		return nil, fmt.Errorf("the provided path is empty")
	}

	s := &Source{
		URL:    path,
		closer: astikit.NewCloser(),
	}
	defer func() {
		if _err != nil {
			s.closer.Close()
		}
	}()

	var dict *astiav.Dictionary
	if len(cfg.CustomOptions) > 0 {
		dict = astiav.NewDictionary()
		internal.SetFinalizerFree(ctx, dict)
		for k, v := range cfg.CustomOptions {
			logger.Debugf(ctx, "input option '%s' = '%s'", k, v)
			dict.Set(k, v, 0)
		}
	}

	s.FormatContext = astiav.AllocFormatContext()
	if s.FormatContext == nil {
		return nil, fmt.Errorf("unable to allocate a format context")
	}
	s.closer.Add(s.FormatContext.Free)

	if err := s.FormatContext.OpenInput(path, nil, dict); err != nil {
		return nil, fmt.Errorf("unable to open input '%s': %w", path, err)
	}
	s.closer.Add(s.FormatContext.CloseInput)

	if err := s.FormatContext.FindStreamInfo(nil); err != nil {
		return nil, fmt.Errorf("unable to get stream info: %w", err)
	}

	for _, stream := range s.FormatContext.Streams() {
		if stream.CodecParameters().MediaType() != astiav.MediaTypeVideo {
			continue
		}
		logger.Debugf(ctx, "video stream #%d: %s", stream.Index(), spew.Sdump(unsafetools.FieldByNameInValue(reflect.ValueOf(stream.CodecParameters()), "c").Elem().Elem().Interface()))
		s.videoStream = stream
		break
	}
	if s.videoStream == nil {
		return nil, fmt.Errorf("'%s' contains no video stream", path)
	}

	return s, nil
}

func (s *Source) VideoStream() *astiav.Stream {
	return s.videoStream
}

func (s *Source) VideoStreamIndex() int {
	return s.videoStream.Index()
}

func (s *Source) TimeBase() astiav.Rational {
	return s.videoStream.TimeBase()
}

func (s *Source) FrameRate() astiav.Rational {
	return s.FormatContext.GuessFrameRate(s.videoStream, nil)
}

// ReadUnit reads the next encoded unit. Units that belong to streams
// other than the selected video stream are skipped. Returns io.EOF
// when the file is exhausted.
func (s *Source) ReadUnit(
	ctx context.Context,
) (packet.Unit, error) {
	return xsync.DoR2(xsync.WithNoLogging(ctx, true), &s.locker, func() (packet.Unit, error) {
		return s.readUnitLocked(ctx)
	})
}

func (s *Source) readUnitLocked(
	ctx context.Context,
) (packet.Unit, error) {
	for {
		if err := ctx.Err(); err != nil {
			return packet.Unit{}, err
		}

		pkt := packet.Pool.Get()
		err := s.FormatContext.ReadFrame(pkt)
		switch {
		case err == nil:
		case errors.Is(err, astiav.ErrEof):
			packet.Pool.Put(pkt)
			return packet.Unit{}, io.EOF
		case errors.Is(err, astiav.ErrEio):
			packet.Pool.Put(pkt)
			return packet.Unit{}, io.EOF
		default:
			packet.Pool.Put(pkt)
			return packet.Unit{}, fmt.Errorf("unable to read an encoded unit: %T:%w", err, err)
		}

		if pkt.StreamIndex() != s.videoStream.Index() {
			packet.Pool.Put(pkt)
			continue
		}

		return packet.BuildUnit(pkt), nil
	}
}

// SeekToStart rewinds to the first frame of the video stream. The
// backward flag makes libav land on the keyframe at or before zero, so
// decoding can resume without artifacts.
func (s *Source) SeekToStart(
	ctx context.Context,
) (_err error) {
	logger.Tracef(ctx, "SeekToStart")
	defer func() { logger.Tracef(ctx, "/SeekToStart: %v", _err) }()
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &s.locker, func() error {
		if err := s.FormatContext.SeekFrame(s.videoStream.Index(), 0, astiav.NewSeekFlags(astiav.SeekFlagBackward)); err != nil {
			return fmt.Errorf("unable to seek '%s' to its start: %w", s.URL, err)
		}
		return nil
	})
}

func (s *Source) Close(
	ctx context.Context,
) error {
	ctx = xcontext.DetachDone(ctx)
	logger.Debugf(ctx, "closing '%s'", s.URL)
	return xsync.DoR1(ctx, &s.locker, func() error {
		s.closer.Close()
		return nil
	})
}
