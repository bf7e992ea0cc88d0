package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mcoot/typerace/internal/api"
	"github.com/mcoot/typerace/internal/config"
	eventsredis "github.com/mcoot/typerace/internal/events/redis"
	"github.com/mcoot/typerace/internal/factory"
	"github.com/mcoot/typerace/internal/transport/ws"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the room coordinator server",
		Long: `Start the HTTP server hosting the WebSocket game channel at /ws and
the read-only inspection API under /api/v1.

Settings come from the optional --config file, then TYPERACE_* environment
variables (e.g. TYPERACE_SERVER_PORT, TYPERACE_MIRROR_REDIS_URL).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg, err := config.Load(cfg.ConfigFile)
			if err != nil {
				return err
			}
			if cfg.Verbose {
				appCfg.Logging.Level = "debug"
			}
			return runServer(cmd.Context(), appCfg, cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&cfg.ConfigFile, "config", "c", cfg.ConfigFile, "Config file path (env: TYPERACE_CONFIG)")

	return cmd
}

// runServer serves until ctx is cancelled, then shuts down gracefully
func runServer(ctx context.Context, appCfg config.Config, logOut io.Writer) error {
	logger := config.NewLogger(appCfg.Logging, logOut)
	slog.SetDefault(logger)

	factoryCfg := factory.Config{
		Logger:    logger,
		WebSocket: wsOptions(appCfg.WebSocket),
	}
	if appCfg.Mirror.RedisURL != "" {
		redisCfg := eventsredis.DefaultConfig()
		redisCfg.URL = appCfg.Mirror.RedisURL
		factoryCfg.RedisConfig = &redisCfg
		factoryCfg.MirrorQueueSize = appCfg.Mirror.QueueSize
		factoryCfg.MirrorTimeout = appCfg.Mirror.PublishTimeout
	}

	app, err := factory.New(factoryCfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("error releasing resources", slog.String("error", err.Error()))
		}
	}()

	router := api.NewRouter(api.RouterConfig{
		Logger:         logger,
		SessionHandler: app.SessionHandler,
		WSServer:       app.WSServer,
	})
	server := api.NewServer(router, serverConfig(appCfg.Server), logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started", slog.String("addr", server.Addr()))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := server.Shutdown(context.WithoutCancel(ctx)); err != nil {
			return err
		}
	}

	logger.Info("server stopped")
	return nil
}

func serverConfig(c config.ServerConfig) api.ServerConfig {
	return api.ServerConfig{
		Host:            c.Host,
		Port:            c.Port,
		ReadTimeout:     c.ReadTimeout,
		WriteTimeout:    c.WriteTimeout,
		ShutdownTimeout: c.ShutdownTimeout,
	}
}

func wsOptions(c config.WebSocketConfig) ws.Options {
	return ws.Options{
		ReadLimit:      c.ReadLimit,
		WriteWait:      c.WriteWait,
		PongWait:       c.PongWait,
		SendBuffer:     c.SendBuffer,
		AllowedOrigins: c.AllowedOrigins,
	}
}
