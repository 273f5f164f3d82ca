package server

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Scrimzay/snakechat/internal/chat"
	"github.com/Scrimzay/snakechat/internal/hub"
	"github.com/Scrimzay/snakechat/internal/types"
	"github.com/Scrimzay/snakechat/internal/world"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type rawEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) (*httptest.Server, *App) {
	t.Helper()
	return newTestServerWith(t, hub.DefaultOptions(), 0)
}

func newTestServerWith(t *testing.T, opts hub.Options, pongWait time.Duration) (*httptest.Server, *App) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>chat</h1>"), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}

	b := hub.NewBroadcasterWithOptions(opts)
	cfg := world.DefaultConfig()
	cfg.Seed = 1
	app := &App{
		Hub:       b,
		Chat:      chat.NewRelay(chat.NewRegistry(), b),
		World:     world.New(cfg),
		StaticDir: dir,
		PongWait:  pongWait,
	}
	srv := httptest.NewServer(SetupRouter(app))
	t.Cleanup(srv.Close)
	return srv, app
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s: %v", event, err)
	}
	frame, err := json.Marshal(rawEnvelope{Event: event, Data: payload})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("write %s: %v", event, err)
	}
}

// waitFor reads until event arrives, skipping everything else.
func waitFor(t *testing.T, conn *websocket.Conn, event string, v any) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		conn.SetReadDeadline(deadline)
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", event, err)
		}
		var env rawEnvelope
		if err := json.Unmarshal(msg, &env); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		if env.Event != event {
			continue
		}
		if v != nil {
			if err := json.Unmarshal(env.Data, v); err != nil {
				t.Fatalf("decode %s data: %v", event, err)
			}
		}
		return
	}
}

func connectAndJoin(t *testing.T, srv *httptest.Server, name string) (*websocket.Conn, string) {
	t.Helper()
	conn := dial(t, srv, "")
	var hello types.ConnectedMsg
	waitFor(t, conn, types.EventConnected, &hello)
	if hello.ID == "" {
		t.Fatalf("expected connected event to carry an id")
	}

	send(t, conn, types.EventJoin, name)
	var roster []types.UserEntry
	waitFor(t, conn, types.EventUserList, &roster)
	return conn, hello.ID
}

func TestJoinBroadcastsPresence(t *testing.T) {
	srv, _ := newTestServer(t)
	alice, _ := connectAndJoin(t, srv, "alice")

	bob := dial(t, srv, "")
	waitFor(t, bob, types.EventConnected, nil)
	send(t, bob, types.EventJoin, types.JoinPayload{Username: "bob", Avatar: map[string]any{"hat": "blue"}})

	var joined types.PresenceMsg
	waitFor(t, alice, types.EventUserJoined, &joined)
	if joined.Username != "bob" || joined.Message != "bob joined the chat" {
		t.Fatalf("unexpected presence %+v", joined)
	}
	if _, err := time.Parse(time.RFC3339, joined.Timestamp); err != nil {
		t.Fatalf("timestamp %q is not ISO-8601: %v", joined.Timestamp, err)
	}

	var roster []types.UserEntry
	waitFor(t, alice, types.EventUserList, &roster)
	if len(roster) != 2 {
		t.Fatalf("expected roster of 2, got %+v", roster)
	}
}

func TestChatMessageReachesEveryone(t *testing.T) {
	srv, _ := newTestServer(t)
	alice, aliceID := connectAndJoin(t, srv, "alice")
	bob, _ := connectAndJoin(t, srv, "bob")

	send(t, alice, types.EventMessage, types.MessagePayload{Message: "hi bob"})

	for _, conn := range []*websocket.Conn{alice, bob} {
		var msg types.ChatMsg
		waitFor(t, conn, types.EventMessage, &msg)
		if msg.Username != "alice" || msg.Message != "hi bob" || msg.ID != aliceID {
			t.Fatalf("unexpected chat message %+v", msg)
		}
	}
}

func TestBlankNameIsRejected(t *testing.T) {
	srv, app := newTestServer(t)
	conn := dial(t, srv, "")
	waitFor(t, conn, types.EventConnected, nil)

	send(t, conn, types.EventJoin, "   ")

	var e types.ErrorMsg
	waitFor(t, conn, types.EventError, &e)
	if e.Message == "" {
		t.Fatalf("expected an error message")
	}
	if app.Chat.Registry().Count() != 0 {
		t.Fatalf("blank join must not register a session")
	}
}

func TestJoinGameAndMove(t *testing.T) {
	srv, app := newTestServer(t)
	conn, id := connectAndJoin(t, srv, "alice")

	send(t, conn, types.EventJoinGame, types.JoinGamePayload{})

	var state world.GameState
	waitFor(t, conn, types.EventGameState, &state)
	if !state.GameRunning || len(state.Players) != 1 {
		t.Fatalf("unexpected game state %+v", state)
	}
	if state.Players[0].Username != "alice" {
		t.Fatalf("expected chat name to be reused, got %q", state.Players[0].Username)
	}

	var joined playerJoinedMsg
	waitFor(t, conn, types.EventPlayerJoined, &joined)
	if joined.PlayerID != id {
		t.Fatalf("expected playerJoined for %s, got %s", id, joined.PlayerID)
	}

	send(t, conn, types.EventPlayerMove, types.MovePayload{Direction: types.Point{X: 20, Y: 20}})
	waitFor(t, conn, types.EventError, nil)

	send(t, conn, types.EventPlayerMove, types.MovePayload{Direction: types.Point{Y: -20}})
	deadline := time.Now().Add(2 * time.Second)
	for {
		p, ok := app.World.GetPlayer(id)
		if ok && p.Direction == (types.Point{Y: -20}) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("direction never applied, player %+v", p)
		}
		time.Sleep(5 * time.Millisecond)
	}

	send(t, conn, types.EventLeaveGame, nil)
	var left playerLeftMsg
	waitFor(t, conn, types.EventPlayerLeft, &left)
	if left.PlayerID != id || app.World.PlayerCount() != 0 {
		t.Fatalf("expected player to leave, got %+v", left)
	}
}

func TestDisconnectTearsDownChatAndGame(t *testing.T) {
	srv, app := newTestServer(t)
	alice, aliceID := connectAndJoin(t, srv, "alice")
	bob, _ := connectAndJoin(t, srv, "bob")

	send(t, alice, types.EventJoinGame, types.JoinGamePayload{Username: "ally"})
	waitFor(t, bob, types.EventPlayerJoined, nil)

	alice.Close()

	var left playerLeftMsg
	waitFor(t, bob, types.EventPlayerLeft, &left)
	if left.PlayerID != aliceID {
		t.Fatalf("expected playerLeft for alice, got %+v", left)
	}

	var gone types.PresenceMsg
	waitFor(t, bob, types.EventUserLeft, &gone)
	if gone.Username != "alice" {
		t.Fatalf("expected alice to leave, got %+v", gone)
	}

	if app.World.PlayerCount() != 0 || app.Chat.Registry().Count() != 1 {
		t.Fatalf("expected only bob left, players=%d sessions=%d", app.World.PlayerCount(), app.Chat.Registry().Count())
	}
}

func TestMsgpackClient(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv, "?codec=msgpack")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, frame, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if kind != websocket.BinaryMessage {
		t.Fatalf("expected binary frame, got %d", kind)
	}
	in, err := types.MsgPack.Decode(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var hello types.ConnectedMsg
	if err := in.Bind(&hello); err != nil || in.Event != types.EventConnected || hello.ID == "" {
		t.Fatalf("unexpected welcome %q %+v (%v)", in.Event, hello, err)
	}

	out, err := types.MsgPack.Encode(types.EventJoin, types.JoinPayload{Username: "packed"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, out); err != nil {
		t.Fatalf("write: %v", err)
	}

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		in, err := types.MsgPack.Decode(frame)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if in.Event != types.EventUserJoined {
			continue
		}
		var joined types.PresenceMsg
		if err := in.Bind(&joined); err != nil {
			t.Fatalf("bind: %v", err)
		}
		if joined.Username != "packed" {
			t.Fatalf("unexpected presence %+v", joined)
		}
		return
	}
}

func TestUnknownCodecRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/ws?codec=xml")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSilentClientIsDropped(t *testing.T) {
	opts := hub.DefaultOptions()
	opts.PingPeriod = 20 * time.Millisecond
	srv, app := newTestServerWith(t, opts, 300*time.Millisecond)

	watcher, _ := connectAndJoin(t, srv, "watcher")

	silent, silentID := connectAndJoin(t, srv, "silent")
	send(t, silent, types.EventJoinGame, types.JoinGamePayload{})
	waitFor(t, silent, types.EventGameState, nil)
	// silent stops reading here, so it never answers another ping

	var left playerLeftMsg
	waitFor(t, watcher, types.EventPlayerLeft, &left)
	if left.PlayerID != silentID {
		t.Fatalf("expected playerLeft for %s, got %+v", silentID, left)
	}
	var gone types.PresenceMsg
	waitFor(t, watcher, types.EventUserLeft, &gone)
	if gone.Username != "silent" {
		t.Fatalf("expected silent to leave, got %+v", gone)
	}

	if app.World.PlayerCount() != 0 || app.Chat.Registry().Count() != 1 {
		t.Fatalf("expected only watcher left, players=%d sessions=%d", app.World.PlayerCount(), app.Chat.Registry().Count())
	}
}

func TestOversizedFrameClosesConnection(t *testing.T) {
	srv, app := newTestServer(t)
	conn := dial(t, srv, "")
	waitFor(t, conn, types.EventConnected, nil)

	frame, err := types.JSON.Encode(types.EventJoin, types.JoinPayload{
		Username: "big",
		Avatar:   strings.Repeat("x", maxMessageSize+1),
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// the server may reset the connection before the whole frame is written
	_ = conn.WriteMessage(websocket.TextMessage, frame)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsCloseError(err, websocket.CloseMessageTooBig) || !isTimeout(err) {
				break
			}
			t.Fatalf("connection was not closed: %v", err)
		}
	}

	if app.Chat.Registry().Count() != 0 {
		t.Fatalf("oversized join must not register a session")
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
