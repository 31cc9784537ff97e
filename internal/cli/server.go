package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"task-tracker-api/internal/auth"
	"task-tracker-api/internal/config"
	"task-tracker-api/internal/delayed"
	"task-tracker-api/internal/handlers"
	"task-tracker-api/internal/logging"
	"task-tracker-api/internal/realtime"
	"task-tracker-api/internal/routes"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the API server",
	Long: `Start the tracker API server on the configured host and port. The
delayed sweep runs on sweep.interval while the server is up.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.Server.Port = port
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize: %w", err)
		}
		defer a.Close()

		if logger.IsLevelEnabled(logrus.DebugLevel) {
			gin.SetMode(gin.DebugMode)
		} else {
			gin.SetMode(gin.ReleaseMode)
		}

		hub := realtime.NewHub(logger)
		taskHandler := handlers.NewTaskHandler(a.tasks, a.support, a.detector, hub, logger)
		taskHandler.SweepOnList = cfg.Sweep.OnList

		router := routes.Setup(routes.Deps{
			Config: cfg,
			Logger: logger,
			Tokens: auth.NewTokens(cfg.Auth),
			Users:  a.users,
			Tasks:  taskHandler,
			Hub:    hub,
		})

		scheduler := delayed.NewScheduler(a.detector, cfg.Sweep.Interval, logger, taskHandler.PublishSweep)
		scheduler.Start(ctx)
		defer scheduler.Stop()

		if configPath != "" {
			watcher := config.NewWatcher(cfg, configPath, func(err error) {
				logger.WithError(err).Warn("config reload failed")
			})
			watcher.OnChange(logging.ApplyLevel(logger))
			if err := watcher.Start(); err != nil {
				logger.WithError(err).Warn("config watcher not started")
			}
			defer watcher.Stop()
		}

		srv := &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		errCh := make(chan error, 1)
		go func() {
			logger.WithField("addr", srv.Addr).Info("server starting")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
		case <-ctx.Done():
		}

		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		logger.Info("server exited")
		return nil
	},
}

func init() {
	serverCmd.Flags().Int("port", 0, "override server.port")
}
