package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/robertmeta/alist-cli/api"
	"github.com/robertmeta/alist-cli/feed"
	"github.com/robertmeta/alist-cli/syncer"
)

func serve(c *cli.Context) error {
	s, cfg, err := openStore(c)
	if err != nil {
		return err
	}
	defer s.Close()

	addr := cfg.Addr
	if c.IsSet("addr") {
		addr = c.String("addr")
	}

	logger := newLogger(c)
	fetcher := feed.NewFetcher(cfg.FeedBaseURL, cfg.HTTPTimeout)
	svc := syncer.NewService(logger.With().Str("component", "syncer").Logger(), fetcher, s)
	srv := api.NewServer(logger.With().Str("component", "api").Logger(), s, svc)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Str("db", cfg.DBPath).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			stop()
		}
	}()

	<-shutdownCtx.Done()
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctx)

	select {
	case err := <-errCh:
		return cli.Exit(err.Error(), ExitGeneralError)
	default:
		return nil
	}
}
