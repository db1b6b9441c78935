package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"match-collector/internal/collector"
	"match-collector/internal/config"
	"match-collector/internal/constants"
	fxmodules "match-collector/internal/fx"
	"match-collector/internal/repository"
	"match-collector/internal/server"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runCollector),
	).Run()
}

func runCollector(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	c *collector.Collector,
	status *server.StatusServer,
	runs *repository.RunRepository,
	cfg *config.Config,
	db *sql.DB,
	logger zerolog.Logger,
) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	var srv *http.Server
	if cfg.StatusAddr != "" {
		srv = &http.Server{
			Addr:              cfg.StatusAddr,
			Handler:           status.Handler(),
			ReadHeaderTimeout: constants.ExternalAPITimeout,
		}
	}

	run := func(ctx context.Context) error {
		err := c.Run(ctx)

		p := c.Progress()
		if ferr := runs.Finish(context.Background(), repository.Run{
			ID:       p.RunID,
			Requests: p.Requests,
			Counts:   p.Counts,
			Error:    p.Error,
		}); ferr != nil {
			logger.Warn().Err(ferr).Msg("failed to record run result")
		}
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			runID := c.Progress().RunID
			if err := runs.Start(startCtx, runID, time.Now()); err != nil {
				return err
			}

			logger.Info().
				Str("run_id", runID).
				Str("region", cfg.Region).
				Str("store", cfg.StoreBackend).
				Ints("queues", cfg.RankedQueues).
				Strs("modes", cfg.GameModes).
				Time("cutoff", cfg.PatchCutoff).
				Float64("rate_limit", cfg.RateLimitPerSecond).
				Int("max_matches", cfg.MaxMatches).
				Msg("collector starting")

			var serve func() error
			var stopServe func()
			if srv != nil {
				ln, err := net.Listen("tcp", srv.Addr)
				if err != nil {
					return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
				}
				logger.Info().Str("addr", ln.Addr().String()).Msg("status server starting")

				serve = func() error {
					if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return fmt.Errorf("status server failed: %w", err)
					}
					return nil
				}
				stopServe = func() {
					shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
					defer cancelShutdown()
					if err := srv.Shutdown(shutdownCtx); err != nil {
						logger.Error().Err(err).Msg("status server shutdown failed")
					}
				}
			}

			go func() {
				defer close(done)
				err := supervise(ctx, run, serve, stopServe)
				if err != nil {
					logger.Error().Err(err).Msg("collector stopped with error")
				}
				if serr := shutdowner.Shutdown(fx.ExitCode(exitCode(err))); serr != nil {
					logger.Debug().Err(serr).Msg("shutdown already in progress")
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			logger.Info().Msg("shutting down collector")
			cancel()

			select {
			case <-done:
			case <-stopCtx.Done():
				logger.Warn().Msg("collector did not stop in time")
			}

			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
			}
			logger.Info().Msg("collector stopped")
			return nil
		},
	})
}

// supervise runs the collector alongside the optional status server. The
// server is stopped once the collector returns, and a server failure cancels
// the collector. The first error of either is returned.
func supervise(ctx context.Context, run func(context.Context) error, serve func() error, stopServe func()) error {
	g, gctx := errgroup.WithContext(ctx)
	if serve != nil {
		g.Go(serve)
	}
	g.Go(func() error {
		err := run(gctx)
		if stopServe != nil {
			stopServe()
		}
		return err
	})
	return g.Wait()
}

func exitCode(err error) int {
	if err != nil {
		return 1
	}
	return 0
}
