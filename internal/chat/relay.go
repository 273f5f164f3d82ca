package chat

import (
	"errors"
	"log"
	"time"

	"github.com/Scrimzay/snakechat/internal/types"
)

var ErrEmptyName = errors.New("display name must not be empty")

const anonymous = "Anonymous"

type Publisher interface {
	Broadcast(event string, payload any)
	BroadcastExcept(exclude, event string, payload any)
	SendTo(id, event string, payload any) error
}

// Relay fans chat traffic and presence out to every connection. It keeps no
// history.
type Relay struct {
	registry *Registry
	pub      Publisher
	now      func() time.Time
}

func NewRelay(registry *Registry, pub Publisher) *Relay {
	return &Relay{registry: registry, pub: pub, now: time.Now}
}

func (r *Relay) Registry() *Registry {
	return r.registry
}

// Join registers id and announces it. Blank names are rejected.
func (r *Relay) Join(id, username string, avatar any) error {
	username = types.TrimName(username)
	if username == "" {
		return ErrEmptyName
	}

	r.registry.Register(id, username, avatar)
	log.Printf("%s joined the chat", username)
	r.announceJoin(Session{ID: id, Username: username, Avatar: avatar})
	return nil
}

// Leave removes id and announces it if it had joined.
func (r *Relay) Leave(id string) bool {
	s, ok := r.registry.Remove(id)
	if !ok {
		return false
	}
	log.Printf("%s left the chat", s.Username)
	r.announceLeave(s)
	return true
}

// DisplayName falls back to Anonymous for connections that never joined.
func (r *Relay) DisplayName(id string) string {
	if s, ok := r.registry.Get(id); ok {
		return s.Username
	}
	return anonymous
}

func (r *Relay) Message(id, text string) {
	msg := types.ChatMsg{
		Username:  anonymous,
		Message:   text,
		Timestamp: r.timestamp(),
		ID:        id,
	}
	if s, ok := r.registry.Get(id); ok {
		msg.Username = s.Username
		msg.Avatar = s.Avatar
	}

	r.pub.Broadcast(types.EventMessage, msg)
	log.Printf("Message from %s: %s", msg.Username, text)
}

func (r *Relay) Typing(id string, isTyping bool) {
	r.pub.BroadcastExcept(id, types.EventTyping, types.TypingMsg{
		Username: r.DisplayName(id),
		IsTyping: isTyping,
	})
}
