package server

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/Scrimzay/snakechat/internal/chat"
	"github.com/Scrimzay/snakechat/internal/hub"
	"github.com/Scrimzay/snakechat/internal/world"
	"github.com/gin-gonic/gin"
)

// App bundles the shared state every handler works against.
type App struct {
	Hub       *hub.Broadcaster
	Chat      *chat.Relay
	World     *world.World
	StaticDir string

	PongWait       time.Duration // zero means 60s
	MaxMessageSize int64         // zero means 64 KiB
}

func SetupRouter(app *App) *gin.Engine {
	r := gin.Default()
	r.Static("/static", app.StaticDir)
	r.StaticFile("/", filepath.Join(app.StaticDir, "index.html"))
	r.StaticFile("/game", filepath.Join(app.StaticDir, "game.html"))

	r.GET("/ws", HandleWebsocket(app))

	api := r.Group("/api")
	api.GET("/users", usersHandler(app))
	api.GET("/game", gameHandler(app))

	r.GET("/healthz", healthHandler(app))

	return r
}

func usersHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, app.Chat.Roster())
	}
}

func gameHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, app.World.GameState())
	}
}

func healthHandler(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"clients": app.Hub.Count(),
			"players": app.World.PlayerCount(),
		})
	}
}
