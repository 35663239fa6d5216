package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asticode/go-astiav"
	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/avwallpaper/decode"
	"github.com/xaionaro-go/avwallpaper/geometry"
	"github.com/xaionaro-go/avwallpaper/mediasource"
	"github.com/xaionaro-go/avwallpaper/occlusion"
	"github.com/xaionaro-go/avwallpaper/player"
	"github.com/xaionaro-go/avwallpaper/surface"
	"github.com/xaionaro-go/avwallpaper/winsys"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/typing"
)

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "syntax: %s [flags] <media-file>\n", os.Args[0])
		pflag.PrintDefaults()
	}

	loggerLevel := logger.LevelWarning
	pflag.Var(&loggerLevel, "log-level", "Log level")
	once := pflag.Bool("once", false, "play the media once instead of looping it")
	windowed := pflag.Bool("windowed", false, "play in a regular window instead of the desktop background")
	borderless := pflag.Bool("borderless", false, "with --windowed: no window decorations")
	keep := pflag.Bool("keep", false, "keep the video at its native size, centered")
	scale := pflag.Bool("scale", false, "stretch the video over the whole screen, ignoring its aspect ratio")
	fit := pflag.Bool("fit", false, "scale the video as large as possible while preserving its aspect ratio (the default)")
	resolutionFlag := pflag.String("resolution", "", "override the output resolution, e.g. 1920x1080")
	hwDev := pflag.String("hwdev", "", "hardware acceleration device type, e.g. vaapi, vdpau or cuda")
	pauseSignal := pflag.Bool("pause-signal", false, "toggle pause on SIGUSR1")
	noToggleShift := pflag.Bool("no-toggle-clock-shift", false, "do not shift the presentation schedule when resuming via the pause toggle")
	threshold := pflag.Int("threshold", occlusion.DefaultThresholdPercent, "screen coverage percentage above which playback pauses")
	checkInterval := pflag.Duration("check-interval", occlusion.DefaultCheckInterval, "how often to measure screen coverage")
	dumpDir := pflag.String("dump-dir", "", "write decoded frames as PPM files into this directory instead of displaying them")
	netPprofAddr := pflag.String("net-pprof-listen-addr", "", "an address to listen for incoming net/pprof connections")
	pflag.Parse()
	if len(pflag.Args()) != 1 {
		pflag.Usage()
		os.Exit(1)
	}
	mediaPath := pflag.Arg(0)

	ctx := withLogger(context.Background(), loggerLevel)
	ctx, cancelFn := context.WithCancel(ctx)
	defer belt.Flush(ctx)
	l := logger.FromCtx(ctx)

	if *netPprofAddr != "" {
		observability.Go(ctx, func(ctx context.Context) {
			l.Error(http.ListenAndServe(*netPprofAddr, nil))
		})
	}

	placement := surface.PolicyFit
	switch {
	case *keep && *scale, *keep && *fit, *scale && *fit:
		l.Fatalf("--keep, --scale and --fit are mutually exclusive")
	case *keep:
		placement = surface.PolicyKeep
	case *scale:
		placement = surface.PolicyScale
	}
	if *borderless && !*windowed {
		l.Fatalf("--borderless requires --windowed")
	}

	var resolution typing.Optional[geometry.Size]
	if *resolutionFlag != "" {
		size, err := parseResolution(*resolutionFlag)
		if err != nil {
			l.Fatal(err)
		}
		resolution = typing.Opt(size)
	}

	hwDevType := decode.HardwareDeviceTypeFromString(ctx, *hwDev)
	if *hwDev != "" && hwDevType == astiav.HardwareDeviceTypeNone {
		l.Fatalf("unknown hardware device type '%s' (expected one of: cuda, d3d11va, drm, dxva2, mediacodec, opencl, qsv, vaapi, vdpau, videotoolbox, vulkan)", *hwDev)
	}

	l.Debugf("opening '%s'...", mediaPath)
	src, err := mediasource.NewFromFile(ctx, mediaPath, mediasource.Config{})
	if err != nil {
		l.Fatal(err)
	}
	defer src.Close(ctx)

	dec, err := decode.New(ctx, src.VideoStream(), decode.Config{
		HardwareDeviceType: hwDevType,
		HardwareDeviceName: "",
		FrameRate:          src.FrameRate(),
	})
	if err != nil {
		l.Fatal(err)
	}
	defer dec.Close(ctx)

	videoSize := geometry.Size{
		Width:  src.VideoStream().CodecParameters().Width(),
		Height: src.VideoStream().CodecParameters().Height(),
	}
	screenSize := videoSize
	if resolution.IsSet() {
		screenSize = resolution.Get()
	}

	var surf surface.Surface
	if *dumpDir != "" {
		if err := os.MkdirAll(*dumpDir, 0755); err != nil {
			l.Fatal(err)
		}
		surf = surface.NewPPMSink(*dumpDir)
	} else {
		surf = surface.NewImageSurface(screenSize)
	}
	defer surf.Close(ctx)

	cfg := player.Config{
		Loop:               !*once,
		Placement:          placement,
		ShiftClockOnToggle: !*noToggleShift,
		Occlusion: occlusion.Config{
			ThresholdPercent: *threshold,
			CheckInterval:    *checkInterval,
		},
	}
	// occlusion tracking only makes sense in background mode, where
	// other windows can cover the output
	if !*windowed {
		cfg.WinSys = &winsys.Static{Screen: screenSize}
	}

	sess := player.New(ctx, src, dec, surf, cfg)

	sigCh := make(chan os.Signal, 16)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	if *pauseSignal {
		signal.Notify(sigCh, syscall.SIGUSR1)
	}
	observability.Go(ctx, func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigCh:
				if sig == syscall.SIGUSR1 {
					l.Debugf("got SIGUSR1, toggling pause")
					sess.TogglePause(ctx)
					continue
				}
				l.Infof("got %v, shutting down", sig)
				cancelFn()
			}
		}
	})

	observability.Go(ctx, func(ctx context.Context) {
		t := time.NewTicker(5 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				statsJSON, err := json.Marshal(sess.GetStats())
				if err != nil {
					l.Error(err)
					continue
				}
				l.Debugf("stats: %s", statsJSON)
			}
		}
	})

	if err := sess.Serve(ctx); err != nil {
		l.Fatal(err)
	}
	cancelFn()
}

func parseResolution(s string) (geometry.Size, error) {
	var size geometry.Size
	if _, err := fmt.Sscanf(s, "%dx%d", &size.Width, &size.Height); err != nil {
		return geometry.Size{}, fmt.Errorf("unable to parse resolution '%s' (expected WxH, e.g. 1920x1080): %w", s, err)
	}
	if size.Width <= 0 || size.Height <= 0 {
		return geometry.Size{}, fmt.Errorf("resolution '%s' must be positive", s)
	}
	return size, nil
}
