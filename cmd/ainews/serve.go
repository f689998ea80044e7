package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pevans/ainews/api"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 30 * time.Second

func handleServe(a *app, args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", a.cfg.API.Addr, "Address to listen on")
	poll := fs.Duration("poll-interval", a.cfg.API.PollInterval, "Re-fetch every source on this interval (0 disables)")
	fs.Parse(args)

	ctx, cancel := signalContext()
	defer cancel()

	service, err := a.syncService()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	cfg := api.ServerConfig{
		Store:    a.store,
		Syncer:   service,
		Exporter: a.exporter(),
		Sources:  a.cfg.Sources,
		SiteName: a.cfg.Site.SiteName,
		Log:      a.log,
	}

	runner, closeModel, err := a.classifierRunner(ctx)
	if err != nil {
		a.log.WithError(err).Warn("classifier disabled")
	} else {
		defer closeModel()
		cfg.Runner = runner
	}

	if a.log.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &http.Server{
		Addr:    *addr,
		Handler: api.NewServer(cfg).SetupRouter(),
	}

	if *poll > 0 {
		go service.Run(ctx, a.cfg.Sources, *poll)
	}

	errChan := make(chan error, 1)
	go func() {
		a.log.WithField("addr", *addr).Info("API server listening")
		errChan <- server.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "Error: server failed: %v\n", err)
			return 1
		}
	case <-ctx.Done():
		a.log.Info("shutting down")
		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.log.WithError(err).Warn("shutdown did not complete")
		}
	}

	return 0
}
