package server

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/Scrimzay/snakechat/internal/types"
	"github.com/Scrimzay/snakechat/internal/world"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// pongWait must stay above the hub's ping period.
	pongWait       = 60 * time.Second
	maxMessageSize = 64 << 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

type playerJoinedMsg struct {
	PlayerID string         `json:"playerId" msgpack:"playerId"`
	Username string         `json:"username" msgpack:"username"`
	Players  []world.Player `json:"players" msgpack:"players"`
}

type playerLeftMsg struct {
	PlayerID string         `json:"playerId" msgpack:"playerId"`
	Players  []world.Player `json:"players,omitempty" msgpack:"players,omitempty"`
}

func HandleWebsocket(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		codec, err := types.CodecFor(c.Query("codec"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Println("WS upgrade error:", err)
			return
		}

		conn.SetReadLimit(app.readLimit())
		wait := app.pongWait()
		conn.SetReadDeadline(time.Now().Add(wait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wait))
		})

		id := uuid.NewString()
		app.Hub.Register(id, conn, codec)
		log.Printf("New user connected: %s (%s)", id, codec.Name())
		defer app.disconnect(id)

		if err := app.Hub.SendTo(id, types.EventConnected, types.ConnectedMsg{ID: id}); err != nil {
			log.Println("Welcome send error:", err)
			return
		}

		for {
			msgType, msg, err := conn.ReadMessage()
			if err != nil {
				// timeouts land here too: no pong within the wait means the peer is gone
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("WS read error for %s: %v", id, err)
				}
				return
			}
			if msgType != codec.MessageType() {
				continue
			}

			in, err := codec.Decode(msg)
			if err != nil {
				log.Println("Frame parse error:", err)
				continue
			}
			app.dispatch(id, in)
		}
	}
}

func (app *App) dispatch(id string, in types.Inbound) {
	switch in.Event {
	case types.EventJoin:
		var p types.JoinPayload
		if !app.bind(id, in, &p) {
			return
		}
		if err := app.Chat.Join(id, p.Username, p.Avatar); err != nil {
			app.reject(id, err)
		}

	case types.EventMessage:
		var p types.MessagePayload
		if app.bind(id, in, &p) {
			app.Chat.Message(id, p.Message)
		}

	case types.EventTyping:
		var p types.TypingPayload
		if app.bind(id, in, &p) {
			app.Chat.Typing(id, p.IsTyping)
		}

	case types.EventJoinGame:
		var p types.JoinGamePayload
		if !app.bind(id, in, &p) {
			return
		}
		name := types.TrimName(p.Username)
		if name == "" {
			name = app.Chat.DisplayName(id)
		}
		app.joinGame(id, name)

	case types.EventPlayerMove:
		var p types.MovePayload
		if !app.bind(id, in, &p) {
			return
		}
		// moves from spectators are dropped silently
		if err := app.World.SetDirection(id, p.Direction); errors.Is(err, world.ErrBadDirection) {
			app.reject(id, err)
		}

	case types.EventLeaveGame:
		if app.World.LeaveGame(id) {
			app.Hub.Broadcast(types.EventPlayerLeft, playerLeftMsg{
				PlayerID: id,
				Players:  app.World.Snapshot().Players,
			})
		}

	default:
		log.Printf("Unknown event %q from %s", in.Event, id)
	}
}

func (app *App) pongWait() time.Duration {
	if app.PongWait > 0 {
		return app.PongWait
	}
	return pongWait
}

func (app *App) readLimit() int64 {
	if app.MaxMessageSize > 0 {
		return app.MaxMessageSize
	}
	return maxMessageSize
}

func (app *App) joinGame(id, name string) {
	player := app.World.JoinGame(id, name)

	if err := app.Hub.SendTo(id, types.EventGameState, app.World.GameState()); err != nil {
		log.Printf("gameState send to %s failed: %v", id, err)
	}
	app.Hub.Broadcast(types.EventPlayerJoined, playerJoinedMsg{
		PlayerID: id,
		Username: player.Username,
		Players:  app.World.Snapshot().Players,
	})
	log.Printf("%s joined the game", player.Username)
}

// disconnect tears down both the game and chat records for id.
func (app *App) disconnect(id string) {
	app.Hub.Unregister(id)

	if app.World.LeaveGame(id) {
		app.Hub.Broadcast(types.EventPlayerLeft, playerLeftMsg{PlayerID: id})
	}
	app.Chat.Leave(id)
	log.Printf("%s disconnected", id)
}

func (app *App) bind(id string, in types.Inbound, v any) bool {
	if err := in.Bind(v); err != nil {
		log.Printf("Bad %s payload from %s: %v", in.Event, id, err)
		app.reject(id, err)
		return false
	}
	return true
}

func (app *App) reject(id string, err error) {
	if sendErr := app.Hub.SendTo(id, types.EventError, types.ErrorMsg{Message: err.Error()}); sendErr != nil {
		log.Printf("Error send to %s failed: %v", id, sendErr)
	}
}
