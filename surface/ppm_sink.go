package surface

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/xaionaro-go/avwallpaper/geometry"
	"github.com/xaionaro-go/avwallpaper/logger"
	"github.com/xaionaro-go/avwallpaper/picture"
)

// PPMSink "presents" pictures by writing them as numbered binary PPM
// files into a directory. Made for debugging the decode path without
// any display at all.
type PPMSink struct {
	// ToImage converts a picture into an image; overridable in tests.
	// Defaults to FrameImage.
	ToImage func(pic picture.Picture) (image.Image, error)

	dir string
	seq int
}

var _ Surface = (*PPMSink)(nil)

func NewPPMSink(dir string) *PPMSink {
	return &PPMSink{
		ToImage: FrameImage,
		dir:     dir,
	}
}

// Bounds reports a zero size: frames are dumped at their native
// resolution, no placement applies.
func (s *PPMSink) Bounds() geometry.Size {
	return geometry.Size{}
}

func (s *PPMSink) Draw(ctx context.Context, pic picture.Picture, _ geometry.Rect) error {
	img, err := s.ToImage(pic)
	if err != nil {
		return err
	}

	path := filepath.Join(s.dir, fmt.Sprintf("frame_%04d.ppm", s.seq))
	s.seq++

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create '%s': %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := WritePPM(w, img); err != nil {
		return fmt.Errorf("unable to write '%s': %w", path, err)
	}
	return w.Flush()
}

func (s *PPMSink) Close(ctx context.Context) error {
	logger.Debugf(ctx, "Close: dumped %d frames", s.seq)
	return nil
}

// WritePPM serializes an image as a binary (P6) PPM.
func WritePPM(w *bufio.Writer, img image.Image) error {
	bounds := img.Bounds()
	if _, err := fmt.Fprintf(w, "P6\n%d %d\n255\n", bounds.Dx(), bounds.Dy()); err != nil {
		return err
	}
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			if err := w.WriteByte(byte(r >> 8)); err != nil {
				return err
			}
			if err := w.WriteByte(byte(g >> 8)); err != nil {
				return err
			}
			if err := w.WriteByte(byte(b >> 8)); err != nil {
				return err
			}
		}
	}
	return nil
}
