package surface

import (
	"context"
	"image"
	"image/draw"

	"github.com/anthonynsimon/bild/transform"
	"github.com/xaionaro-go/avwallpaper/geometry"
	"github.com/xaionaro-go/avwallpaper/logger"
	"github.com/xaionaro-go/avwallpaper/picture"
)

// ImageSurface renders into an in-memory RGBA canvas. It backs
// headless operation and tests, and embedders can forward the canvas
// to an actual window/root-window blitter via OnPresent.
type ImageSurface struct {
	// OnPresent, if set, is invoked after each completed draw with
	// the full canvas.
	OnPresent func(ctx context.Context, canvas *image.RGBA)

	// ToImage converts a picture into an image; overridable in tests.
	// Defaults to FrameImage.
	ToImage func(pic picture.Picture) (image.Image, error)

	size   geometry.Size
	canvas *image.RGBA
}

var _ Surface = (*ImageSurface)(nil)

func NewImageSurface(size geometry.Size) *ImageSurface {
	return &ImageSurface{
		ToImage: FrameImage,
		size:    size,
		canvas:  image.NewRGBA(image.Rect(0, 0, size.Width, size.Height)),
	}
}

func (s *ImageSurface) Bounds() geometry.Size {
	return s.size
}

// Canvas exposes the most recently presented content.
func (s *ImageSurface) Canvas() *image.RGBA {
	return s.canvas
}

func (s *ImageSurface) Draw(ctx context.Context, pic picture.Picture, dst geometry.Rect) error {
	img, err := s.ToImage(pic)
	if err != nil {
		return err
	}

	ComposeInto(s.canvas, img, dst)

	if s.OnPresent != nil {
		s.OnPresent(ctx, s.canvas)
	}
	return nil
}

func (s *ImageSurface) Close(ctx context.Context) error {
	logger.Debugf(ctx, "Close")
	return nil
}

// ComposeInto clears the canvas and blits img scaled into dst (the
// clear/copy part of a present cycle). dst may stick out of the
// canvas; the out-of-bounds part is simply not stored.
func ComposeInto(canvas *image.RGBA, img image.Image, dst geometry.Rect) {
	draw.Draw(canvas, canvas.Bounds(), image.Black, image.Point{}, draw.Src)
	if dst.IsEmpty() {
		return
	}

	scaled := img
	srcBounds := img.Bounds()
	if srcBounds.Dx() != dst.Width || srcBounds.Dy() != dst.Height {
		scaled = transform.Resize(img, dst.Width, dst.Height, transform.Linear)
	}
	target := image.Rect(dst.X, dst.Y, dst.X+dst.Width, dst.Y+dst.Height)
	draw.Draw(canvas, target, scaled, scaled.Bounds().Min, draw.Src)
}
