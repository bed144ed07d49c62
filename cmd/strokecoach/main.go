// Command strokecoach runs the client-side coaching pipeline: webcam
// capture with a motion gate, remote shot classification, voice
// feedback, and a live dashboard.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/strokelab/strokecoach/internal/config"
	"github.com/strokelab/strokecoach/internal/log"
	"github.com/strokelab/strokecoach/internal/metrics"
	"github.com/strokelab/strokecoach/pkg/capture"
	"github.com/strokelab/strokecoach/pkg/classifier"
	"github.com/strokelab/strokecoach/pkg/coach"
	"github.com/strokelab/strokecoach/pkg/framebuf"
	"github.com/strokelab/strokecoach/pkg/pose"
	"github.com/strokelab/strokecoach/pkg/session"
	"github.com/strokelab/strokecoach/pkg/speech"
	"github.com/strokelab/strokecoach/pkg/web"
)

func main() {
	configPath := flag.String("config", "strokecoach.yaml", "Path to YAML config file")
	autostart := flag.Bool("autostart", true, "Start a capture session immediately")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log.Init(cfg.Server.LogLevel)
	logger := log.L()

	if err := run(cfg, *autostart); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, autostart bool) error {
	logger := log.L()

	if cfg.Server.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(cfg.Server.MetricsAddr); err != nil {
				logger.Error("metrics listener exited", "error", err)
			}
		}()
	}

	cls, err := classifier.NewClient(
		classifier.WithBaseURL(cfg.Backend.BaseURL),
		classifier.WithTimeout(cfg.Backend.Timeout),
	)
	if err != nil {
		return fmt.Errorf("classifier: %w", err)
	}
	defer cls.Close()

	bufCfg := framebuf.DefaultConfig()
	bufCfg.Capacity = cfg.Capture.WindowSize
	bufCfg.MinInterval = cfg.Capture.CaptureInterval
	bufCfg.MotionRatio = cfg.Capture.MotionRatio
	buf := framebuf.New(bufCfg)

	poses, err := pose.NewLifecycle(pose.DefaultBuilders(cfg.Pose.ModelDir))
	if err != nil {
		return fmt.Errorf("pose: %w", err)
	}

	var player *speech.Player
	coordOpts := []coach.CoordinatorOption{}
	if !cfg.Speech.Disabled {
		tts := speech.NewTTSClient(cfg.Backend.BaseURL)
		player = speech.NewPlayer(tts, speech.NewExecEngine())
		coordOpts = append(coordOpts, coach.WithSpeaker(player))
	}

	coord := coach.NewCoordinator(cls, buf, coordOpts...)

	openCamera := func() (capture.Source, error) {
		return capture.OpenWebcam(cfg.Camera.DeviceID, cfg.Camera.Width, cfg.Camera.Height)
	}
	sessOpts := []session.Option{
		session.WithSchedulerOptions(capture.WithPoseInterval(cfg.Capture.PoseInterval)),
	}
	if player != nil {
		sessOpts = append(sessOpts, session.WithAudio(player))
	}
	sess := session.NewController(openCamera, buf, poses, coord, sessOpts...)

	srv := web.NewServer(coord.Prediction(), coord.History(), sess)
	coord.SetResultHook(srv.Publish)
	coord.SetErrorHandler(srv.PublishError)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if autostart {
		if err := sess.Start(ctx); err != nil {
			// The dashboard can still start a session later once the
			// camera frees up.
			logger.Warn("session autostart failed", "error", err)
		}
	}

	srv.StartAsync(cfg.Server.DashboardAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())

	sess.Stop()
	if err := srv.Shutdown(); err != nil {
		logger.Warn("dashboard shutdown failed", "error", err)
	}
	return nil
}
