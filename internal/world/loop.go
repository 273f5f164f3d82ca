package world

import (
	"context"
	"log"
	"runtime/debug"
	"time"

	"github.com/Scrimzay/snakechat/internal/types"
)

type Publisher interface {
	Broadcast(event string, payload any)
}

// Loop drives the world on a fixed period. A single goroutine owns the ticker,
// so a slow tick delays the next one instead of overlapping it.
type Loop struct {
	world    *World
	pub      Publisher
	interval time.Duration
}

func NewLoop(w *World, pub Publisher, interval time.Duration) *Loop {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Loop{world: w, pub: pub, interval: interval}
}

func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	log.Printf("Game loop running every %v", l.interval)

	for {
		select {
		case <-ctx.Done():
			log.Println("Game loop stopped")
			return
		case <-ticker.C:
			l.Step()
		}
	}
}

// Step runs one tick and broadcasts the result. Returns whether anything was sent.
func (l *Loop) Step() (sent bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC in game tick: %v\nStack trace:\n%s", r, debug.Stack())
			sent = false
		}
	}()

	snap, ok := l.world.Tick()
	if !ok {
		return false
	}
	l.pub.Broadcast(types.EventGameUpdate, snap)
	return true
}
