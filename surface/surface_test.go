package surface

import (
	"bufio"
	"bytes"
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/avwallpaper/geometry"
	"github.com/xaionaro-go/avwallpaper/picture"
)

func TestPlace_Keep(t *testing.T) {
	dst := Place(
		geometry.Size{Width: 640, Height: 360},
		geometry.Size{Width: 1920, Height: 1080},
		PolicyKeep,
	)
	require.Equal(t, geometry.Rect{X: 640, Y: 360, Width: 640, Height: 360}, dst)
}

func TestPlace_Scale(t *testing.T) {
	dst := Place(
		geometry.Size{Width: 640, Height: 480},
		geometry.Size{Width: 1920, Height: 1080},
		PolicyScale,
	)
	require.Equal(t, geometry.Rect{Width: 1920, Height: 1080}, dst)
}

func TestPlace_FitLimitedByHeight(t *testing.T) {
	// 4:3 video on a 16:9 screen: height is the limiting dimension.
	dst := Place(
		geometry.Size{Width: 640, Height: 480},
		geometry.Size{Width: 1920, Height: 1080},
		PolicyFit,
	)
	require.Equal(t, 1080, dst.Height)
	require.Equal(t, 1440, dst.Width)
	require.Equal(t, (1920-1440)/2, dst.X)
	require.Zero(t, dst.Y)
}

func TestPlace_FitLimitedByWidth(t *testing.T) {
	// Ultra-wide video: width is the limiting dimension.
	dst := Place(
		geometry.Size{Width: 2560, Height: 720},
		geometry.Size{Width: 1920, Height: 1080},
		PolicyFit,
	)
	require.Equal(t, 1920, dst.Width)
	require.Equal(t, 540, dst.Height)
	require.Zero(t, dst.X)
	require.Equal(t, (1080-540)/2, dst.Y)
}

func TestPlace_UnknownScreenDegradesToNative(t *testing.T) {
	for _, policy := range []Policy{PolicyKeep, PolicyScale, PolicyFit} {
		dst := Place(geometry.Size{Width: 640, Height: 360}, geometry.Size{}, policy)
		require.Equal(t, geometry.Rect{Width: 640, Height: 360}, dst, policy.String())
	}
}

func TestParsePolicy(t *testing.T) {
	for s, expected := range map[string]Policy{
		"keep":  PolicyKeep,
		"scale": PolicyScale,
		"fit":   PolicyFit,
		" Fit ": PolicyFit,
	} {
		p, err := ParsePolicy(s)
		require.NoError(t, err, s)
		require.Equal(t, expected, p, s)
	}

	_, err := ParsePolicy("stretch")
	require.Error(t, err)
}

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestComposeInto_CentersAndClears(t *testing.T) {
	canvas := image.NewRGBA(image.Rect(0, 0, 100, 100))
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}

	ComposeInto(canvas, solidImage(50, 50, white), geometry.Rect{X: 25, Y: 25, Width: 50, Height: 50})

	require.Equal(t, white, canvas.RGBAAt(50, 50))
	require.Equal(t, color.RGBA{A: 255}, canvas.RGBAAt(0, 0))
	require.Equal(t, color.RGBA{A: 255}, canvas.RGBAAt(99, 99))

	// The next draw clears the previous content.
	ComposeInto(canvas, solidImage(10, 10, white), geometry.Rect{X: 0, Y: 0, Width: 10, Height: 10})
	require.Equal(t, color.RGBA{A: 255}, canvas.RGBAAt(50, 50))
	require.Equal(t, white, canvas.RGBAAt(5, 5))
}

func TestComposeInto_ScalesToDst(t *testing.T) {
	canvas := image.NewRGBA(image.Rect(0, 0, 40, 40))
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}

	ComposeInto(canvas, solidImage(4, 4, white), geometry.Rect{X: 0, Y: 0, Width: 40, Height: 40})
	require.Equal(t, white, canvas.RGBAAt(0, 0))
	require.Equal(t, white, canvas.RGBAAt(39, 39))
	require.Equal(t, white, canvas.RGBAAt(20, 20))
}

func TestImageSurface_DrawUsesInjectedConverter(t *testing.T) {
	ctx := context.Background()
	s := NewImageSurface(geometry.Size{Width: 20, Height: 20})

	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	s.ToImage = func(picture.Picture) (image.Image, error) {
		return solidImage(10, 10, white), nil
	}

	presented := 0
	s.OnPresent = func(_ context.Context, canvas *image.RGBA) { presented++ }

	err := s.Draw(ctx, picture.Picture{}, geometry.Rect{X: 5, Y: 5, Width: 10, Height: 10})
	require.NoError(t, err)
	require.Equal(t, 1, presented)
	require.Equal(t, white, s.Canvas().RGBAAt(10, 10))
	require.Equal(t, color.RGBA{A: 255}, s.Canvas().RGBAAt(0, 0))
}

func TestWritePPM(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(1, 0, color.RGBA{G: 255, A: 255})

	require.NoError(t, WritePPM(w, img))
	require.NoError(t, w.Flush())

	require.Equal(t, []byte("P6\n2 1\n255\n\xff\x00\x00\x00\xff\x00"), buf.Bytes())
}

func TestPPMSink_DrawWritesNumberedFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s := NewPPMSink(dir)
	s.ToImage = func(picture.Picture) (image.Image, error) {
		return solidImage(2, 2, color.RGBA{R: 1, G: 2, B: 3, A: 255}), nil
	}

	require.NoError(t, s.Draw(ctx, picture.Picture{}, geometry.Rect{}))
	require.NoError(t, s.Draw(ctx, picture.Picture{}, geometry.Rect{}))

	for _, name := range []string{"frame_0000.ppm", "frame_0001.ppm"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)
		require.True(t, bytes.HasPrefix(data, []byte("P6\n2 2\n255\n")), name)
	}
}
