package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/giongto35/camview/pkg/capture/camera"
	"github.com/giongto35/camview/pkg/config"
	"github.com/giongto35/camview/pkg/graphics"
	"github.com/giongto35/camview/pkg/logger"
	"github.com/giongto35/camview/pkg/monitoring"
	cos "github.com/giongto35/camview/pkg/os"
	"github.com/giongto35/camview/pkg/pipeline"
	"github.com/giongto35/camview/pkg/render"
	"github.com/giongto35/camview/pkg/thread"
	_ "github.com/pion/mediadevices/pkg/driver/camera"
	"github.com/spf13/pflag"
)

var Version = "?"

const (
	pollInterval  = 10 * time.Millisecond
	statsInterval = 5 * time.Second
)

func run() {
	flags := config.NewFlags("camview")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	conf, path, err := config.Load(flags)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewConsole(conf.Log.Debug, conf.Log.Tag, conf.Log.NoColor, nil)
	if conf.Log.JSON {
		log = logger.New(conf.Log.Debug)
	}
	log.Info().Msgf("version %s", Version)
	if path != "" {
		log.Info().Str("path", path).Msg("config")
	}
	log.Debug().Msgf("conf: %+v", *conf)

	if err = app(conf, path, flags, log); err != nil {
		log.Error().Err(err).Msg("camview")
		os.Exit(1)
	}
}

func app(conf *config.Config, path string, flags *config.Flags, log *logger.Logger) error {
	opts, err := conf.Render.Options()
	if err != nil {
		return err
	}

	dev, err := graphics.NewSDL(graphics.Config{
		Title:     conf.Window.Title,
		Width:     conf.Window.Width,
		Height:    conf.Window.Height,
		Resizable: conf.Window.Resizable,
		HighDPI:   conf.Window.HighDPI,
		VSync:     conf.Render.VSync,
		GL:        graphics.GLConfig{AutoContext: true},
	}, log)
	if err != nil {
		return err
	}
	link := render.NewDisplayLink(dev.RefreshRate(), conf.Render.Divisor)
	log.Info().Msgf("display link every %v", link.Interval())

	cam := camera.New(log)
	for _, d := range cam.List() {
		log.Info().Str("id", d.ID).Msgf("camera %v", d.Label)
	}

	p, err := pipeline.New(cam, dev, link, pipeline.Config{
		Capture: conf.Capture.Source(),
		Slots:   conf.Capture.Slots,
		Render:  opts,
	}, log)
	if err != nil {
		_ = dev.Destroy()
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			log.Warn().Err(err).Msg("pipeline close")
		}
	}()

	metrics, stats := pipeline.NewMetrics(p), pipeline.NewStats()
	p.Subscribe(metrics)
	p.Subscribe(stats)

	if conf.Monitoring.IsEnabled() {
		mon := monitoring.New(conf.Monitoring, metrics.Registry(), log)
		if err = mon.Run(); err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := mon.Shutdown(ctx); err != nil {
				log.Warn().Err(err).Msg("monitoring shutdown")
			}
		}()
	}

	if path != "" {
		w, err := config.Watch(path, flags, log, func(c *config.Config) {
			logger.SetDebug(c.Log.Debug)
			p.SetDebug(c.Render.Debug)
			p.SetAutoresize(c.Render.Autoresize)
			p.SetFrameRate(c.Capture.FrameRate)
		})
		if err != nil {
			log.Warn().Err(err).Msg("config changes won't be tracked")
		} else {
			defer func() { _ = w.Close() }()
		}
	}

	if err = p.Start(); err != nil {
		return err
	}

	done := cos.ExpectTermination()
	events := time.NewTicker(pollInterval)
	defer events.Stop()
	report := time.NewTicker(statsInterval)
	defer report.Stop()

	for {
		select {
		case <-done:
			log.Info().Msg("terminated")
			return nil
		case <-report.C:
			log.Debug().Msg(stats.String())
		case <-events.C:
			quit := false
			dev.PollEvents(func(e graphics.Event) {
				switch e.Kind {
				case graphics.EventQuit:
					quit = true
				case graphics.EventResize:
					p.NotifyResize()
				case graphics.EventMinimize:
					if err := p.Suspend(); err != nil {
						log.Warn().Err(err).Msg("suspend")
					}
				case graphics.EventRestore:
					if err := p.Resume(); err != nil {
						log.Warn().Err(err).Msg("resume")
					}
				case graphics.EventToggleDebug:
					on := !p.Surface().Debug()
					p.SetDebug(on)
					log.Info().Msgf("debug %v", on)
				case graphics.EventLogStats:
					p.LogStats()
					log.Info().Msg(stats.String())
				case graphics.EventTouch:
					p.NotifyTouch(e.Touch)
				}
			})
			if quit {
				return nil
			}
		}
	}
}

func main() {
	thread.Wrap(run)
}
