package types

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// Inbound events
const (
	EventJoin       = "join"
	EventMessage    = "message"
	EventTyping     = "typing"
	EventJoinGame   = "joinGame"
	EventPlayerMove = "playerMove"
	EventLeaveGame  = "leaveGame"
)

// Outbound events
const (
	EventConnected    = "connected"
	EventError        = "error"
	EventUserJoined   = "userJoined"
	EventUserLeft     = "userLeft"
	EventUserList     = "userList"
	EventGameState    = "gameState"
	EventGameUpdate   = "gameUpdate"
	EventPlayerJoined = "playerJoined"
	EventPlayerLeft   = "playerLeft"
)

type Point struct {
	X int `json:"x" msgpack:"x"`
	Y int `json:"y" msgpack:"y"`
}

// JoinPayload accepts either a bare name or {username, avatar}.
type JoinPayload struct {
	Username string `json:"username" msgpack:"username"`
	Avatar   any    `json:"avatar,omitempty" msgpack:"avatar,omitempty"`
}

func (p *JoinPayload) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*p = JoinPayload{Username: name}
		return nil
	}

	type plain JoinPayload
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = JoinPayload(v)
	return nil
}

func (p *JoinPayload) DecodeMsgpack(dec *msgpack.Decoder) error {
	v, err := dec.DecodeInterface()
	if err != nil {
		return err
	}

	switch raw := v.(type) {
	case string:
		*p = JoinPayload{Username: raw}
	case map[string]interface{}:
		name, _ := raw["username"].(string)
		*p = JoinPayload{Username: name, Avatar: raw["avatar"]}
	case nil:
		*p = JoinPayload{}
	default:
		return fmt.Errorf("join payload: unexpected %T", v)
	}
	return nil
}

type MessagePayload struct {
	Message string `json:"message" msgpack:"message"`
}

type TypingPayload struct {
	IsTyping bool `json:"isTyping" msgpack:"isTyping"`
}

type JoinGamePayload struct {
	Username string `json:"username" msgpack:"username"`
}

type MovePayload struct {
	Direction Point `json:"direction" msgpack:"direction"`
}

type ConnectedMsg struct {
	ID string `json:"id" msgpack:"id"`
}

type ErrorMsg struct {
	Message string `json:"message" msgpack:"message"`
}

// PresenceMsg is sent as userJoined / userLeft.
type PresenceMsg struct {
	Username  string `json:"username" msgpack:"username"`
	Avatar    any    `json:"avatar,omitempty" msgpack:"avatar,omitempty"`
	Message   string `json:"message" msgpack:"message"`
	Timestamp string `json:"timestamp" msgpack:"timestamp"`
}

type UserEntry struct {
	Username string `json:"username" msgpack:"username"`
	Avatar   any    `json:"avatar" msgpack:"avatar"`
}

type ChatMsg struct {
	Username  string `json:"username" msgpack:"username"`
	Avatar    any    `json:"avatar" msgpack:"avatar"`
	Message   string `json:"message" msgpack:"message"`
	Timestamp string `json:"timestamp" msgpack:"timestamp"`
	ID        string `json:"id" msgpack:"id"`
}

type TypingMsg struct {
	Username string `json:"username" msgpack:"username"`
	IsTyping bool   `json:"isTyping" msgpack:"isTyping"`
}

// TrimName normalises a display name coming off the wire.
func TrimName(name string) string {
	return strings.TrimSpace(name)
}
