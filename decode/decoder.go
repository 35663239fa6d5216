// Package decode turns encoded units into decoded pictures, optionally
// through a hardware decoder. Pictures always leave this package in
// host-addressable memory: device-backed frames are downloaded before
// they are handed out.
package decode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
	"github.com/facebookincubator/go-belt"
	"github.com/xaionaro-go/avwallpaper/logger"
	"github.com/xaionaro-go/avwallpaper/packet"
	"github.com/xaionaro-go/avwallpaper/picture"
	"github.com/xaionaro-go/xcontext"
	"github.com/xaionaro-go/xsync"
)

// ErrDrained is returned by ReceivePicture when the decoder has no
// picture ready and needs more input.
var ErrDrained = errors.New("the decoder is drained; feed it more input")

type Config struct {
	HardwareDeviceType astiav.HardwareDeviceType
	HardwareDeviceName string
	FrameRate          astiav.Rational
}

// Decoder wraps one video codec context. Not safe for concurrent use
// of the same operation; Send/Receive/Flush serialize on an internal
// lock.
type Decoder struct {
	Config

	codec        *astiav.Codec
	codecContext *astiav.CodecContext
	stream       *astiav.Stream

	hardwareDeviceContext *astiav.HardwareDeviceContext
	hardwarePixelFormat   astiav.PixelFormat

	locker xsync.Mutex
	closer *astikit.Closer
}

func New(
	ctx context.Context,
	stream *astiav.Stream,
	cfg Config,
) (_ret *Decoder, _err error) {
	codecParameters := stream.CodecParameters()
	ctx = belt.WithField(ctx, "codec_id", codecParameters.CodecID())
	ctx = belt.WithField(ctx, "hw_dev_type", cfg.HardwareDeviceType)
	logger.Tracef(ctx, "New(ctx, stream#%d, %#+v)", stream.Index(), cfg)
	defer func() { logger.Tracef(ctx, "/New(ctx, stream#%d, %#+v): %p %v", stream.Index(), cfg, _ret, _err) }()

	d := &Decoder{
		Config: cfg,
		stream: stream,
		closer: astikit.NewCloser(),
	}
	defer func() {
		if _err != nil {
			logger.Debugf(ctx, "got an error, closing the decoder: %v", _err)
			_ = d.Close(ctx)
		}
	}()

	d.codec = astiav.FindDecoder(codecParameters.CodecID())
	if d.codec == nil {
		return nil, fmt.Errorf("unable to find a decoder for codec ID %v", codecParameters.CodecID())
	}
	logger.Debugf(ctx, "codec name: '%s' (%s)", d.codec.Name(), d.codec.ID())

	d.codecContext = astiav.AllocCodecContext(d.codec)
	if d.codecContext == nil {
		return nil, fmt.Errorf("unable to allocate a codec context")
	}
	d.closer.Add(d.codecContext.Free)

	if err := codecParameters.ToCodecContext(d.codecContext); err != nil {
		return nil, fmt.Errorf("unable to copy the codec parameters into the codec context: %w", err)
	}
	if cfg.FrameRate.Num() != 0 {
		d.codecContext.SetFramerate(cfg.FrameRate)
	}

	if cfg.HardwareDeviceType != astiav.HardwareDeviceTypeNone {
		if err := d.initHardware(ctx, cfg.HardwareDeviceType, cfg.HardwareDeviceName); err != nil {
			return nil, fmt.Errorf("unable to init the hardware decoder: %w", err)
		}
	}

	if err := d.codecContext.Open(d.codec, nil); err != nil {
		return nil, fmt.Errorf("unable to open the codec context: %w", err)
	}

	return d, nil
}

func (d *Decoder) initHardware(
	ctx context.Context,
	hardwareDeviceType astiav.HardwareDeviceType,
	hardwareDeviceName string,
) (_err error) {
	logger.Tracef(ctx, "initHardware(%s, '%s')", hardwareDeviceType, hardwareDeviceName)
	defer func() { logger.Tracef(ctx, "/initHardware(%s, '%s'): %v", hardwareDeviceType, hardwareDeviceName, _err) }()

	for _, hwCfg := range d.codec.HardwareConfigs() {
		logger.Tracef(ctx, "hw config: %v %v %v", hwCfg.PixelFormat(), hwCfg.MethodFlags(), hwCfg.HardwareDeviceType())
		if hwCfg.HardwareDeviceType() != hardwareDeviceType {
			continue
		}
		if !hwCfg.MethodFlags().Has(astiav.CodecHardwareConfigMethodFlagHwDeviceCtx) {
			continue
		}
		d.hardwarePixelFormat = hwCfg.PixelFormat()
		break
	}
	if d.hardwarePixelFormat == astiav.PixelFormatNone {
		return fmt.Errorf("codec '%s' does not support hardware device type '%s' through a device context", d.codec.Name(), hardwareDeviceType)
	}

	d.codecContext.SetPixelFormatCallback(func(pfs []astiav.PixelFormat) astiav.PixelFormat {
		for _, pf := range pfs {
			if pf == d.hardwarePixelFormat {
				return pf
			}
		}
		logger.Errorf(ctx, "unable to find an appropriate pixel format among %v", pfs)
		return astiav.PixelFormatNone
	})

	var err error
	d.hardwareDeviceContext, err = astiav.CreateHardwareDeviceContext(
		hardwareDeviceType,
		hardwareDeviceName,
		nil,
		0,
	)
	if err != nil {
		return fmt.Errorf("unable to create hardware (%s:%s) device context: %w", hardwareDeviceType, hardwareDeviceName, err)
	}
	d.closer.Add(d.hardwareDeviceContext.Free)
	d.codecContext.SetHardwareDeviceContext(d.hardwareDeviceContext)
	return nil
}

func (d *Decoder) IsHardwareAccelerated() bool {
	return d.hardwareDeviceContext != nil
}

func (d *Decoder) TimeBase() astiav.Rational {
	return d.stream.TimeBase()
}

// SendUnit feeds one encoded unit to the codec. The unit's packet is
// returned to the pool whether or not the send succeeds.
//
// The caller drains every ready picture after each send, so the codec
// never reports EAGAIN here; any failure (EAGAIN included) would lose
// the unit and therefore ends the stream.
func (d *Decoder) SendUnit(
	ctx context.Context,
	u packet.Unit,
) error {
	defer u.Release()
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &d.locker, func() error {
		if err := d.codecContext.SendPacket(u.Packet); err != nil {
			return fmt.Errorf("unable to send the encoded unit to the decoder: %w", err)
		}
		return nil
	})
}

// Flush tells the codec no more input is coming; subsequent
// ReceivePicture calls drain the delayed pictures and then return
// io.EOF.
func (d *Decoder) Flush(
	ctx context.Context,
) error {
	logger.Debugf(ctx, "flushing the decoder")
	return xsync.DoR1(xsync.WithNoLogging(ctx, true), &d.locker, func() error {
		if err := d.codecContext.SendPacket(nil); err != nil {
			if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
				return nil
			}
			return fmt.Errorf("unable to flush the decoder: %w", err)
		}
		return nil
	})
}

// ReceivePicture fetches the next decoded picture. It returns
// ErrDrained when the codec wants more input and io.EOF after a Flush
// once everything is drained. The returned picture must be Release-d
// by the consumer.
func (d *Decoder) ReceivePicture(
	ctx context.Context,
) (picture.Picture, error) {
	return xsync.DoR2(xsync.WithNoLogging(ctx, true), &d.locker, func() (picture.Picture, error) {
		return d.receivePictureLocked(ctx)
	})
}

func (d *Decoder) receivePictureLocked(
	ctx context.Context,
) (picture.Picture, error) {
	f := picture.Pool.Get()
	if err := d.codecContext.ReceiveFrame(f); err != nil {
		picture.Pool.Put(f)
		switch {
		case errors.Is(err, astiav.ErrEagain):
			return picture.Picture{}, ErrDrained
		case errors.Is(err, astiav.ErrEof):
			return picture.Picture{}, io.EOF
		default:
			return picture.Picture{}, fmt.Errorf("unable to receive a picture from the decoder: %w", err)
		}
	}

	fromHardware := d.hardwarePixelFormat != astiav.PixelFormatNone &&
		f.PixelFormat() == d.hardwarePixelFormat
	if !fromHardware {
		return picture.BuildPicture(f, d.stream.TimeBase(), false), nil
	}

	hostFrame, err := d.downloadLocked(ctx, f)
	picture.Pool.Put(f)
	if err != nil {
		return picture.Picture{}, err
	}
	return picture.BuildPicture(hostFrame, d.stream.TimeBase(), true), nil
}

// downloadLocked copies a device-backed frame into host memory. The
// transfer does not carry timestamps, so the PTS is copied by hand.
func (d *Decoder) downloadLocked(
	ctx context.Context,
	deviceFrame *astiav.Frame,
) (*astiav.Frame, error) {
	logger.Tracef(ctx, "downloading a picture from the hardware device")
	hostFrame := picture.Pool.Get()
	if err := deviceFrame.TransferHardwareData(hostFrame); err != nil {
		picture.Pool.Put(hostFrame)
		return nil, fmt.Errorf("unable to transfer the picture from the hardware device to the host: %w", err)
	}
	hostFrame.SetPts(deviceFrame.BestEffortTimestamp())
	return hostFrame, nil
}

func (d *Decoder) Close(
	ctx context.Context,
) error {
	ctx = xcontext.DetachDone(ctx)
	logger.Debugf(ctx, "closing the decoder")
	return xsync.DoR1(ctx, &d.locker, func() error {
		d.closer.Close()
		return nil
	})
}

// HardwareDeviceTypeFromString maps a user-facing name like "vaapi" or
// "cuda" to the libav device type; unknown names map to none.
func HardwareDeviceTypeFromString(
	ctx context.Context,
	s string,
) astiav.HardwareDeviceType {
	normalizeString := func(s string) string {
		return strings.ToLower(strings.Trim(s, " "))
	}
	s = normalizeString(s)
	for _, candidate := range []astiav.HardwareDeviceType{
		astiav.HardwareDeviceTypeCUDA,
		astiav.HardwareDeviceTypeD3D11VA,
		astiav.HardwareDeviceTypeDRM,
		astiav.HardwareDeviceTypeDXVA2,
		astiav.HardwareDeviceTypeMediaCodec,
		astiav.HardwareDeviceTypeOpenCL,
		astiav.HardwareDeviceTypeQSV,
		astiav.HardwareDeviceTypeVAAPI,
		astiav.HardwareDeviceTypeVDPAU,
		astiav.HardwareDeviceTypeVideoToolbox,
		astiav.HardwareDeviceTypeVulkan,
	} {
		if normalizeString(candidate.String()) == s {
			return candidate
		}
	}
	return astiav.HardwareDeviceTypeNone
}
