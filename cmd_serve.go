package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"prompt-runner/internal/router"
	"prompt-runner/internal/service"
	"prompt-runner/internal/telemetry"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (overrides server.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	shutdownTracing, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("初始化链路追踪失败: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	// 初始化服务
	svc, err := service.NewServiceContext(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.Close()

	port := cfg.Server.Port
	if servePort > 0 {
		port = servePort
	}
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router.SetupRouter(svc),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("服务启动", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("启动服务失败: %w", err)
	case <-ctx.Done():
	}

	logger.Info("正在关闭服务")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}
