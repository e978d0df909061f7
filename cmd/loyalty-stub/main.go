// Command loyalty-stub runs an in-memory double of the spa backend's
// admin loyalty API for local development of the console and the SPA.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/priroda-spa/loyalty-console/internal/config"
	"github.com/priroda-spa/loyalty-console/internal/logger"
	"github.com/priroda-spa/loyalty-console/internal/stub"
)

func main() {
	cfg, err := config.NewStub()
	if err != nil {
		panic(err)
	}
	logger.Init(cfg.Stage)
	defer logger.Sync()

	store := stub.NewStore()
	store.Seed()

	server := &http.Server{
		Addr:    cfg.StubAddr,
		Handler: stub.NewRouter(store, cfg.AdminToken),
	}

	go func() {
		logger.Info("stub backend listening",
			zap.String("addr", cfg.StubAddr),
			zap.Bool("auth_required", cfg.AdminToken != ""))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("stub backend failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down stub backend")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
}
