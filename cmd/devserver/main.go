// Command devserver runs the dialogue engine as a local HTTP service.
// Follow-ups are kept in memory and read back from /followups/{userID}.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"chatbank-agent/internal/app"
	"chatbank-agent/internal/config"
	"chatbank-agent/internal/integrations/notify"
	"chatbank-agent/internal/logger"
	"chatbank-agent/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	log, err := logger.NewStructured(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		slog.Error("failed to create logger", "err", err)
		os.Exit(1)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	outbox := notify.NewOutbox(log)
	a, err := app.New(ctx, cfg, app.Deps{AWS: awsCfg, Deliver: outbox.Deliver, Log: log})
	if err != nil {
		slog.Error("failed to build app", "err", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.New(a.Handler, outbox, a.Recipients, log).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("dev server listening", map[string]interface{}{"addr": cfg.Server.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", map[string]interface{}{"error": err.Error()})
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", map[string]interface{}{"error": err.Error()})
	}
	if err := a.Close(shutdownCtx); err != nil {
		log.Warn("metrics shutdown", map[string]interface{}{"error": err.Error()})
	}
}
