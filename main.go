package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/dmorgan81/fusionbot/internal/config"
	"github.com/dmorgan81/fusionbot/internal/handler"
	"github.com/dmorgan81/fusionbot/internal/inject"
	"github.com/dmorgan81/fusionbot/internal/log"
	"github.com/dmorgan81/fusionbot/internal/web"
	"github.com/joho/godotenv"
	"github.com/samber/do"
)

func main() {
	dotenv := godotenv.Load()

	cfg, err := config.Load(os.Getenv("FUSIONBOT_CONFIG"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := log.New(log.Writer(os.Stderr, cfg.Log.File), log.ParseLevel(cfg.Log.Level))
	if dotenv != nil {
		logger.Debug("no .env loaded", "error", dotenv)
	}
	ctx := log.NewContext(context.Background(), logger)
	injector := inject.Setup(ctx, cfg)

	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		handler := do.MustInvoke[*handler.Handler](injector)
		lambda.StartWithOptions(handler.Handle, lambda.WithContext(ctx), lambda.WithEnableSIGTERM(func() {
			_ = injector.Shutdown()
		}))
		return
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           do.MustInvoke[*web.Server](injector),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", "addr", cfg.Server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	_ = injector.Shutdown()
}
