package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/courrier-mf/courrier/internal/config"
	"github.com/courrier-mf/courrier/internal/server"
	"github.com/courrier-mf/courrier/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	logger.Infof("config loaded: keycloak=%v mongo=%v redis=%v minio=%v jwt_secret_set=%v",
		cfg.Keycloak.URL != "", cfg.MongoDB.URI != "", cfg.Redis.Addr() != "", cfg.MinIO.Endpoint != "", cfg.JWT.Secret != "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, closeDeps := server.Connect(ctx, cfg)
	defer closeDeps(context.Background())

	srv, err := server.New(ctx, cfg, deps)
	if err != nil {
		logger.Fatalf("failed to build server: %v", err)
	}
	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
