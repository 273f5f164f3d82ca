package chat

import (
	"fmt"
	"log"

	"github.com/Scrimzay/snakechat/internal/types"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

func (r *Relay) timestamp() string {
	return r.now().UTC().Format(timestampLayout)
}

// Roster is the current user list in wire form.
func (r *Relay) Roster() []types.UserEntry {
	sessions := r.registry.ListAll()
	list := make([]types.UserEntry, 0, len(sessions))
	for _, s := range sessions {
		list = append(list, types.UserEntry{Username: s.Username, Avatar: s.Avatar})
	}
	return list
}

func (r *Relay) announceJoin(s Session) {
	r.pub.Broadcast(types.EventUserJoined, types.PresenceMsg{
		Username:  s.Username,
		Avatar:    s.Avatar,
		Message:   fmt.Sprintf("%s joined the chat", s.Username),
		Timestamp: r.timestamp(),
	})

	roster := r.Roster()
	if err := r.pub.SendTo(s.ID, types.EventUserList, roster); err != nil {
		log.Printf("Roster send to %s failed: %v", s.ID, err)
	}
	r.pub.Broadcast(types.EventUserList, roster)
}

func (r *Relay) announceLeave(s Session) {
	r.pub.Broadcast(types.EventUserLeft, types.PresenceMsg{
		Username:  s.Username,
		Message:   fmt.Sprintf("%s left the chat", s.Username),
		Timestamp: r.timestamp(),
	})
	r.pub.Broadcast(types.EventUserList, r.Roster())
}
