package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Scrimzay/snakechat/internal/chat"
	"github.com/Scrimzay/snakechat/internal/config"
	"github.com/Scrimzay/snakechat/internal/hub"
	"github.com/Scrimzay/snakechat/internal/server"
	"github.com/Scrimzay/snakechat/internal/world"
	"github.com/gin-gonic/gin"
)

func main() {
	log.Println("=== STARTING SNAKE CHAT ===")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Config error: ", err)
	}
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("Creating world...")
	gameWorld := world.New(world.Config{
		BoardSize:  cfg.BoardSize,
		CellSize:   cfg.CellSize,
		FoodReward: cfg.FoodReward,
	})

	broadcaster := hub.NewBroadcaster()
	go broadcaster.Run(ctx)

	loop := world.NewLoop(gameWorld, broadcaster, cfg.TickInterval)
	go loop.Run(ctx)

	app := &server.App{
		Hub:       broadcaster,
		Chat:      chat.NewRelay(chat.NewRegistry(), broadcaster),
		World:     gameWorld,
		StaticDir: cfg.StaticDir,
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.SetupRouter(app),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Println("Shutdown error:", err)
		}
	}()

	log.Printf("Server running on http://localhost:%s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("Server failed: ", err)
	}
	log.Println("Server stopped")
}
