package main

import (
	"context"
	"io"
	"time"

	"github.com/goliatone/go-assistant/cron"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// ServeCmd runs the HTTP API.
type ServeCmd struct {
	Addr      string `help:"Listen address, overrides server.addr."`
	AccessLog bool   `help:"Write an access log line per request." name:"access-log"`
}

func (c *ServeCmd) Run(ctx context.Context, g *globals) error {
	cfg := g.cfg
	if c.Addr != "" {
		cfg.Server.Addr = c.Addr
	}
	logger := g.logger

	a, err := newApp(cfg, logger, withBus())
	if err != nil {
		return err
	}
	defer a.Close()

	scheduler := cron.NewScheduler(cron.WithLogger(logger))
	a.scheduler = scheduler
	if cfg.Session.Sweep != "" {
		if _, err := a.manager.Schedule(scheduler, cfg.Session.Sweep); err != nil {
			return err
		}
	}

	var accessLog io.Writer
	if c.AccessLog {
		accessLog = g.out
	}
	srv := newServer(a, accessLog)

	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		return a.bus.Run(gctx)
	})
	grp.Go(func() error {
		if err := scheduler.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return scheduler.Stop(stopCtx)
	})
	grp.Go(func() error {
		logger.Info("listening addr=%s scripts=%d", cfg.Server.Addr, len(a.scripts.Names()))
		return srv.Listen(cfg.Server.Addr)
	})
	grp.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		a.manager.Close(context.Background())
		return srv.ShutdownWithTimeout(shutdownTimeout)
	})
	return grp.Wait()
}
