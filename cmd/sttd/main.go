package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis"
	"gorm.io/gorm"

	"github.com/talkie-app/sttd/internal/app"
	"github.com/talkie-app/sttd/internal/config"
	"github.com/talkie-app/sttd/internal/database"
	"github.com/talkie-app/sttd/internal/server"
	"github.com/talkie-app/sttd/pkg/Logger"
)

// Entry point for the STT daemon: loads config, wires engines and
// storage, and serves the command/streaming API.
func main() {
	// fetch cfg
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	// load global logger
	logger := Logger.New(cfg.Debug)
	logger.Info("Logger initialized")

	// optional persistence
	var db *gorm.DB
	if cfg.DB.Enabled {
		db, err = database.InitDB(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		if err := database.MigrateDB(db); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
	}
	var rc *redis.Client
	if cfg.Redis.Enabled {
		rc, err = database.NewRedis(cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
	}

	a, err := app.NewApp(cfg, logger, db, rc)
	if err != nil {
		log.Fatalf("Failed to wire application: %v", err)
	}

	// compose router
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	server.InitializeRoutes(router, a.GetServerDependencies())

	// listen with graceful exit
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router.Handler(),
	}
	go func() {
		logger.Infof("sttd listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server exiting: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// 5 secs then cancel
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Shutdown err %v", err)
	}
	// free every live model and recognizer before exit
	a.Shutdown()
	logger.Info("Shutdown system")
}
