package surface

import (
	"context"
	"fmt"
	"image"

	"github.com/xaionaro-go/avwallpaper/geometry"
	"github.com/xaionaro-go/avwallpaper/picture"
)

// Surface presents decoded pictures. Draw corresponds to the usual
// clear/copy/present triple: the previous content is discarded, the
// picture is blitted into dst and the result becomes visible.
//
// Surfaces are not safe for concurrent use; the render loop owns them.
type Surface interface {
	// Bounds reports the drawable size; Place uses it as the screen
	// size.
	Bounds() geometry.Size

	Draw(ctx context.Context, pic picture.Picture, dst geometry.Rect) error

	Close(ctx context.Context) error
}

// FrameImage converts a decoded (host-memory) picture into an
// image.Image, guessing the layout from the frame's pixel format.
func FrameImage(pic picture.Picture) (image.Image, error) {
	img, err := pic.Frame.Data().GuessImageFormat()
	if err != nil {
		return nil, fmt.Errorf("unable to guess the image format: %w", err)
	}
	if err := pic.Frame.Data().ToImage(img); err != nil {
		return nil, fmt.Errorf("unable to convert the frame into an image: %w", err)
	}
	return img, nil
}
