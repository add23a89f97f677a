package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"hq-shutter-pi/pkg/button"
	"hq-shutter-pi/pkg/camera"
	"hq-shutter-pi/pkg/config"
	"hq-shutter-pi/pkg/console"
	"hq-shutter-pi/pkg/process"
	"hq-shutter-pi/pkg/storage"
	"hq-shutter-pi/pkg/utils"
)

var (
	configPath = flag.String("config", "config.yaml", "path to config file")
	devName    = flag.String("device", "", "override camera device path")
	buttonPin  = flag.Int("pin", -1, "override shutter button GPIO pin (BCM)")
	photosDir  = flag.String("dir", "", "override photos directory")

	logger *zap.SugaredLogger
)

func init() {
	logger = utils.GetLogger()
	flag.Parse()
}

func main() {
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal(err)
	}
	if *devName != "" {
		cfg.Camera.Device = *devName
	}
	if *buttonPin >= 0 {
		cfg.Button.Pin = *buttonPin
	}
	if *photosDir != "" {
		cfg.Storage.Dir = *photosDir
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if !cfg.Clock.Skip {
		utils.CheckClock(cfg.Clock.NTPServer, cfg.MaxClockOffset())
	}

	store, err := storage.New(cfg.Storage.Dir)
	if err != nil {
		logger.Fatal(err)
	}
	logger.Infof("photos directory: %s", store.Dir())

	// no camera, no usable session
	dev, err := camera.OpenV4L2(cfg.Camera.Device)
	if err != nil {
		logger.Fatal(err)
	}

	session := camera.NewSession(
		dev,
		camera.PreviewProfile(
			camera.Size{Width: cfg.Camera.PreviewWidth, Height: cfg.Camera.PreviewHeight},
			camera.Size{Width: cfg.Camera.LoresWidth, Height: cfg.Camera.LoresHeight},
		),
		camera.StillProfile(
			camera.Size{Width: cfg.Camera.StillWidth, Height: cfg.Camera.StillHeight},
		),
		store,
		camera.Options{
			SettleDelay:  cfg.SettleDelay(),
			FrameTimeout: cfg.FrameTimeout(),
		},
	)
	defer func() {
		if err := session.Shutdown(); err != nil {
			logger.Warnf("session shutdown: %s", err)
		}
	}()

	presses := make(chan time.Time, 1)
	watcher := button.NewWatcher(button.NewLine(cfg.Button.Mock), cfg.Button.Pin, cfg.Debounce(), presses)
	var pressFeed <-chan time.Time
	if err := watcher.Start(ctx); err != nil {
		logger.Warnf("%s; button functionality will not be available", err)
	} else {
		pressFeed = presses
		defer func() {
			if err := watcher.Stop(); err != nil {
				logger.Warnf("button stop: %s", err)
			}
		}()
	}

	dispatcher := console.New(session, process.Passthrough{}, store, pressFeed, cfg.Button.Pin, os.Stdin, os.Stdout)
	if err := dispatcher.Run(ctx); err != nil {
		logger.Fatal(err)
	}
}
