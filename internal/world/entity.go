package world

import "github.com/Scrimzay/snakechat/internal/types"

type Point = types.Point

// Player is one snake on the board. Snake is head-first and never empty.
type Player struct {
	ID        string  `json:"id" msgpack:"id"`
	Username  string  `json:"username" msgpack:"username"`
	Snake     []Point `json:"snake" msgpack:"snake"`
	Direction Point   `json:"direction" msgpack:"direction"`
	Score     int     `json:"score" msgpack:"score"`
	Color     string  `json:"color" msgpack:"color"`

	seq uint64 // join order
}

func (p *Player) Head() Point {
	return p.Snake[0]
}

func (p *Player) clone() Player {
	c := *p
	c.Snake = append([]Point(nil), p.Snake...)
	return c
}

// hitsBody checks next against every segment except the current head.
func (p *Player) hitsBody(next Point) bool {
	for _, seg := range p.Snake[1:] {
		if seg == next {
			return true
		}
	}
	return false
}

type Snapshot struct {
	Players []Player `json:"players" msgpack:"players"`
	Food    Point    `json:"food" msgpack:"food"`
	Tick    uint64   `json:"tick" msgpack:"tick"`
}

// GameState is what a player receives right after joining.
type GameState struct {
	Players     []Player `json:"players" msgpack:"players"`
	Food        Point    `json:"food" msgpack:"food"`
	Tick        uint64   `json:"tick" msgpack:"tick"`
	GameRunning bool     `json:"gameRunning" msgpack:"gameRunning"`
}

// Rightward, one cell per tick.
func DefaultDirection(cell int) Point {
	return Point{X: cell, Y: 0}
}
