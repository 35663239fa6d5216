// Package picture wraps decoded video pictures (planar frames plus
// their presentation timestamp), pooling the underlying astiav frames.
package picture

import (
	"math"
	"time"

	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/avwallpaper/pool"
)

var Pool = pool.NewPool(
	astiav.AllocFrame,
	func(f *astiav.Frame) { f.Unref() },
	func(f *astiav.Frame) { f.Free() },
)

const (
	// see https://ffmpeg.org/doxygen/trunk/group__lavu__time.html#ga2eaefe702f95f619ea6f2d08afa01be1
	avNoPTSValue = uint64(0x8000000000000000)
)

const (
	NoPTS = time.Duration(math.MinInt64)
)

// DurationFromTimestamp converts a stream-time-base timestamp into a
// wallclock duration.
func DurationFromTimestamp(t int64, timeBase astiav.Rational) time.Duration {
	if uint64(t) == avNoPTSValue {
		return NoPTS
	}

	return time.Duration(float64(t) * timeBase.Float64() * float64(time.Second))
}

// Picture is one decoded picture. The Frame always lives in
// host-addressable memory by the time a Picture is constructed;
// FromHardware only records that the decode stage had to download it
// from a device first.
type Picture struct {
	Frame        *astiav.Frame
	PTS          time.Duration
	FromHardware bool
}

// BuildPicture wraps a decoded frame; the PTS is derived from the
// frame's best-effort timestamp in the given stream time base.
func BuildPicture(
	frame *astiav.Frame,
	timeBase astiav.Rational,
	fromHardware bool,
) Picture {
	return Picture{
		Frame:        frame,
		PTS:          DurationFromTimestamp(frame.BestEffortTimestamp(), timeBase),
		FromHardware: fromHardware,
	}
}

func (p Picture) Width() int {
	return p.Frame.Width()
}

func (p Picture) Height() int {
	return p.Frame.Height()
}

// GetSize is the per-item weight used by the picture queue; pictures
// are counted, not byte-sized, so every picture weighs 1.
func (p Picture) GetSize() int {
	return 1
}

// Release returns the underlying frame to the pool. Must be called
// exactly once, after drawing or dropping the picture.
func (p Picture) Release() {
	Pool.Put(p.Frame)
}
