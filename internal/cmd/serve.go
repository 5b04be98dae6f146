package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pcrwatch/pcrwatch/internal/config"
	"github.com/pcrwatch/pcrwatch/internal/core/market"
	"github.com/pcrwatch/pcrwatch/internal/core/service"
	"github.com/pcrwatch/pcrwatch/internal/core/session"
	"github.com/pcrwatch/pcrwatch/internal/core/store"
	errwrap "github.com/pcrwatch/pcrwatch/internal/errors"
	"github.com/pcrwatch/pcrwatch/internal/observability"
	"github.com/pcrwatch/pcrwatch/internal/scheduler"
	"github.com/pcrwatch/pcrwatch/internal/server"
	"github.com/pcrwatch/pcrwatch/internal/server/handlers"
)

var (
	serverPort int
	serverHost string
)

// storeHealthChecker pings the snapshot database.
type storeHealthChecker struct {
	store *store.Store
}

func (c storeHealthChecker) CheckHealth(ctx context.Context) error {
	if c.store == nil || c.store.DB == nil {
		return errwrap.NewInternalError("store not initialized")
	}
	if err := c.store.DB.PingContext(ctx); err != nil {
		return errwrap.NewDatabaseError("store ping failed: " + err.Error())
	}
	return nil
}

// sessionHealthChecker reports unhealthy while the upstream failure streak
// has the circuit breaker engaged.
type sessionHealthChecker struct {
	sessions  *session.Store
	threshold int
}

func (c sessionHealthChecker) CheckHealth(ctx context.Context) error {
	if c.sessions == nil {
		return errwrap.NewInternalError("session store not initialized")
	}
	if c.threshold > 0 && c.sessions.Failures() >= c.threshold {
		return errwrap.NewUpstreamError("upstream failure streak active")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the scraper service and HTTP API",
	Long: `Start the scheduled option-chain scraper and the HTTP API with graceful
shutdown support.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Config reload (placeholder - restart recommended)

The service cleanly stops the scheduler, the HTTP server, and the store, and
flushes logs on shutdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "configuration load failed")
		}

		observability.InitServerLogger(appName, cfg.Logging.Level)
		logger := observability.ServerLogger

		logger.Info("Initializing service",
			zap.String("service", appName),
			zap.String("version", versionInfo.Version),
			zap.String("upstream", cfg.Upstream.BaseURL),
			zap.Strings("symbols", cfg.Upstream.Symbols),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port))

		st, err := store.Open(cmd.Context(), cfg.Store)
		if err != nil {
			return errwrap.WrapDatabaseError(cmd.Context(), err, "store open failed")
		}
		if err := st.Migrate(cmd.Context()); err != nil {
			_ = st.Close()
			return errwrap.WrapDatabaseError(cmd.Context(), err, "store migration failed")
		}

		fetcher, sessions := buildFetcher(cfg, logger)
		svc := service.New(fetcher, st, logger)

		hours, err := market.New(market.Config{
			MIC:        cfg.Market.MIC,
			Timezone:   cfg.Market.Timezone,
			Open:       cfg.Market.Open,
			Close:      cfg.Market.Close,
			AlwaysOpen: cfg.Market.AlwaysOpen,
		})
		if err != nil {
			_ = st.Close()
			return errwrap.WrapInternal(cmd.Context(), err, "market hours configuration failed")
		}

		hm := handlers.NewHealthManager(versionInfo.Version)
		hm.RegisterChecker("store", storeHealthChecker{store: st})
		hm.RegisterChecker("session", sessionHealthChecker{
			sessions:  sessions,
			threshold: cfg.Retry.StreakThreshold,
		})

		pcrHandlers := handlers.NewPCRHandlers(svc, cfg.Upstream.Symbols)
		srv := server.New(cfg.Server, pcrHandlers, hm)

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		schedCtx, stopScheduler := context.WithCancel(cmd.Context())
		defer stopScheduler()

		// Graceful shutdown handlers (LIFO order - last registered, first executed)
		// Handler 1: Flush logger (executed last)
		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Flushing logger...")
			if err := logger.Sync(); err != nil {
				// Sync errors are often benign (stdout/stderr already closed)
				logger.Warn("Logger sync returned error (may be benign)",
					zap.Error(err))
			}
			return nil
		})

		// Handler 2: Close the store
		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Closing snapshot store...")
			if err := st.Close(); err != nil {
				return errwrap.WrapDatabaseError(ctx, err, "store close failed")
			}
			return nil
		})

		// Handler 3: Shutdown HTTP server
		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			logger.Info("HTTP server stopped gracefully")
			return nil
		})

		// Handler 4: Stop the scheduler (executed first)
		signals.OnShutdown(func(ctx context.Context) error {
			logger.Info("Stopping scheduler...")
			stopScheduler()
			return nil
		})

		// Config reload handler (SIGHUP)
		signals.OnReload(func(ctx context.Context) error {
			logger.Info("Received SIGHUP: attempting config reload")

			if err := viper.ReadInConfig(); err != nil {
				if _, ok := err.(viper.ConfigFileNotFoundError); ok {
					logger.Info("No config file found - using defaults and environment variables")
					return nil
				}
				logger.Error("Failed to reload config file",
					zap.String("file", viper.ConfigFileUsed()),
					zap.Error(err))
				return errwrap.WrapInternal(ctx, err, "config reload failed")
			}

			logger.Info("Configuration reloaded successfully",
				zap.String("file", viper.ConfigFileUsed()))

			// TODO: propagate pace/retry changes to the running pipeline
			// instead of recommending a restart.

			return nil
		})

		// Enable double-tap force quit (Ctrl+C within 2 seconds)
		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			logger.Warn("Failed to enable double-tap force quit",
				zap.Error(err))
		}

		errChan := make(chan error, 1)

		if cfg.Scheduler.Enabled {
			sched := &scheduler.Scheduler{
				Refresher:      svc,
				Hours:          hours,
				Symbols:        cfg.Upstream.Symbols,
				Interval:       cfg.Scheduler.Interval,
				StartJitterMax: cfg.Scheduler.StartJitterMax,
				SymbolGap:      cfg.Scheduler.SymbolGap,
				Logger:         logger,
			}
			go func() {
				logger.Info("Starting scheduler...",
					zap.Duration("interval", cfg.Scheduler.Interval),
					zap.Strings("symbols", cfg.Upstream.Symbols))
				if err := sched.Run(schedCtx); err != nil && err != context.Canceled {
					logger.Error("Scheduler stopped", zap.Error(err))
				}
			}()
		} else {
			logger.Info("Scheduler disabled; serving cached and on-demand data only")
		}

		go func() {
			logger.Info("Starting HTTP server...",
				zap.String("host", cfg.Server.Host),
				zap.Int("port", cfg.Server.Port))
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()

		go func() {
			if err := signals.Listen(cmd.Context()); err != nil {
				logger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "server error")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
