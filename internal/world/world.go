package world

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/Scrimzay/snakechat/internal/types"
)

var (
	ErrNotPlaying   = errors.New("player is not in the game")
	ErrBadDirection = errors.New("direction must be a non-zero axis-aligned vector")
)

type Config struct {
	BoardSize  int // edge length in units, square board
	CellSize   int
	FoodReward int
	Seed       int64 // 0 seeds from the clock
}

func DefaultConfig() Config {
	return Config{
		BoardSize:  400,
		CellSize:   20,
		FoodReward: 10,
	}
}

// World is the single shared game room. Every mutation of players and food
// happens under Mu so ticks and inbound events never interleave.
type World struct {
	Mu        sync.Mutex
	cfg       Config
	players   map[string]*Player
	food      Point
	rng       *rand.Rand
	tickCount uint64
	joinSeq   uint64
}

func New(cfg Config) *World {
	def := DefaultConfig()
	if cfg.CellSize <= 0 {
		cfg.CellSize = def.CellSize
	}
	if cfg.BoardSize < 2*cfg.CellSize || cfg.BoardSize%cfg.CellSize != 0 {
		log.Printf("Board size %d unusable with cell %d, using %d", cfg.BoardSize, cfg.CellSize, def.BoardSize)
		cfg.BoardSize = def.BoardSize
		cfg.CellSize = def.CellSize
	}
	if cfg.FoodReward < 0 {
		cfg.FoodReward = def.FoodReward
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	w := &World{
		cfg:     cfg,
		players: make(map[string]*Player),
		rng:     rand.New(rand.NewSource(seed)),
	}
	w.food = w.spawnFoodLocked()
	return w
}

func (w *World) Config() Config {
	return w.cfg
}

// JoinGame puts id on the board with a fresh one-segment snake. Joining again
// replaces the previous snake.
func (w *World) JoinGame(id, name string) Player {
	name = types.TrimName(name)
	if name == "" {
		name = "Anonymous"
	}

	w.Mu.Lock()
	defer w.Mu.Unlock()

	w.joinSeq++
	p := &Player{
		ID:       id,
		Username: name,
		Color:    fmt.Sprintf("hsl(%d, 70%%, 50%%)", w.rng.Intn(360)),
		seq:      w.joinSeq,
	}
	w.respawnLocked(p)
	w.players[id] = p
	return p.clone()
}

// SetDirection trusts the client on reversals; only the vector shape is checked.
func (w *World) SetDirection(id string, dir Point) error {
	norm, ok := w.normalizeDirection(dir)
	if !ok {
		return ErrBadDirection
	}

	w.Mu.Lock()
	defer w.Mu.Unlock()

	p, ok := w.players[id]
	if !ok {
		return ErrNotPlaying
	}
	p.Direction = norm
	return nil
}

// LeaveGame reports whether a player was removed.
func (w *World) LeaveGame(id string) bool {
	w.Mu.Lock()
	defer w.Mu.Unlock()

	if _, ok := w.players[id]; !ok {
		return false
	}
	delete(w.players, id)
	return true
}

func (w *World) GetPlayer(id string) (Player, bool) {
	w.Mu.Lock()
	defer w.Mu.Unlock()

	p, ok := w.players[id]
	if !ok {
		return Player{}, false
	}
	return p.clone(), true
}

func (w *World) PlayerCount() int {
	w.Mu.Lock()
	defer w.Mu.Unlock()
	return len(w.players)
}

func (w *World) Food() Point {
	w.Mu.Lock()
	defer w.Mu.Unlock()
	return w.food
}

// Safe read for broadcasting
func (w *World) Snapshot() Snapshot {
	w.Mu.Lock()
	defer w.Mu.Unlock()
	return w.snapshotLocked()
}

func (w *World) GameState() GameState {
	w.Mu.Lock()
	defer w.Mu.Unlock()

	snap := w.snapshotLocked()
	return GameState{
		Players:     snap.Players,
		Food:        snap.Food,
		Tick:        snap.Tick,
		GameRunning: len(w.players) > 0,
	}
}

func (w *World) orderedLocked() []*Player {
	list := make([]*Player, 0, len(w.players))
	for _, p := range w.players {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].seq < list[j].seq })
	return list
}

func (w *World) snapshotLocked() Snapshot {
	ordered := w.orderedLocked()
	players := make([]Player, 0, len(ordered))
	for _, p := range ordered {
		players = append(players, p.clone())
	}
	return Snapshot{Players: players, Food: w.food, Tick: w.tickCount}
}

func (w *World) respawnLocked(p *Player) {
	p.Snake = []Point{w.randomCellLocked()}
	p.Direction = DefaultDirection(w.cfg.CellSize)
	p.Score = 0
}
