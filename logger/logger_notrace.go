//go:build !debug_trace
// +build !debug_trace

// logger_notrace.go makes trace logging a no-op unless the debug_trace
// build tag is set; the render loop calls Tracef per frame.

package logger

import (
	"context"
)

// Tracef is just a shorthand for Logf(ctx, logger.LevelTrace, ...)
func Tracef(ctx context.Context, format string, args ...any) {}
