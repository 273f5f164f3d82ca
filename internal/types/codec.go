package types

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

var ErrUnknownCodec = errors.New("unknown codec")

// Codec frames events for one connection. JSON goes out as text frames,
// msgpack as binary frames; both carry {event, data}.
type Codec interface {
	Name() string
	MessageType() int
	Encode(event string, payload any) ([]byte, error)
	Decode(msg []byte) (Inbound, error)
}

// Inbound is a decoded envelope whose data is bound lazily per event.
type Inbound struct {
	Event string
	bind  func(v any) error
}

// Bind decodes the event data into v. Missing data leaves v untouched.
func (in Inbound) Bind(v any) error {
	if in.bind == nil {
		return nil
	}
	return in.bind(v)
}

var (
	JSON    Codec = jsonCodec{}
	MsgPack Codec = msgpackCodec{}
)

// CodecFor resolves the ?codec= query value. Empty means JSON.
func CodecFor(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON, nil
	case "msgpack":
		return MsgPack, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

type jsonCodec struct{}

type jsonEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func (jsonCodec) Name() string     { return "json" }
func (jsonCodec) MessageType() int { return websocket.TextMessage }

func (jsonCodec) Encode(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", event, err)
	}
	return json.Marshal(jsonEnvelope{Event: event, Data: data})
}

func (jsonCodec) Decode(msg []byte) (Inbound, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return Inbound{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Event == "" {
		return Inbound{}, errors.New("decode envelope: missing event")
	}

	in := Inbound{Event: env.Event}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		data := env.Data
		in.bind = func(v any) error { return json.Unmarshal(data, v) }
	}
	return in, nil
}

type msgpackCodec struct{}

type msgpackEnvelope struct {
	Event string             `msgpack:"event"`
	Data  msgpack.RawMessage `msgpack:"data,omitempty"`
}

func (msgpackCodec) Name() string     { return "msgpack" }
func (msgpackCodec) MessageType() int { return websocket.BinaryMessage }

func (msgpackCodec) Encode(event string, payload any) ([]byte, error) {
	data, err := msgpack.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", event, err)
	}
	return msgpack.Marshal(msgpackEnvelope{Event: event, Data: data})
}

func (msgpackCodec) Decode(msg []byte) (Inbound, error) {
	var env msgpackEnvelope
	if err := msgpack.Unmarshal(msg, &env); err != nil {
		return Inbound{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Event == "" {
		return Inbound{}, errors.New("decode envelope: missing event")
	}

	in := Inbound{Event: env.Event}
	if len(env.Data) > 0 {
		data := env.Data
		in.bind = func(v any) error { return msgpack.Unmarshal(data, v) }
	}
	return in, nil
}
