package internal

import (
	"context"
	"runtime"

	"github.com/xaionaro-go/avwallpaper/logger"
)

// SetFinalizerFree frees a libav-backed object when the GC collects the
// Go wrapper. Used as a safety net for objects whose ownership does not
// pass through a queue.
func SetFinalizerFree[T interface{ Free() }](
	ctx context.Context,
	freer T,
) {
	runtime.SetFinalizer(freer, func(freer T) {
		logger.Debugf(ctx, "freeing %T", freer)
		freer.Free()
	})
}
