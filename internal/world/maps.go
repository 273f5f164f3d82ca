package world

// Board geometry. Coordinates are in units, always multiples of CellSize,
// within [0, BoardSize) on both axes.

func (w *World) cells() int {
	return w.cfg.BoardSize / w.cfg.CellSize
}

func (w *World) randomCellLocked() Point {
	n := w.cells()
	return Point{
		X: w.rng.Intn(n) * w.cfg.CellSize,
		Y: w.rng.Intn(n) * w.cfg.CellSize,
	}
}

// wrap applies the toroidal edge: leaving one side re-enters on the other.
func (w *World) wrap(p Point) Point {
	size := w.cfg.BoardSize
	p.X = ((p.X % size) + size) % size
	p.Y = ((p.Y % size) + size) % size
	return p
}

func (w *World) normalizeDirection(d Point) (Point, bool) {
	cell := w.cfg.CellSize
	switch {
	case d.X != 0 && d.Y == 0:
		if d.X > 0 {
			return Point{X: cell}, true
		}
		return Point{X: -cell}, true
	case d.Y != 0 && d.X == 0:
		if d.Y > 0 {
			return Point{Y: cell}, true
		}
		return Point{Y: -cell}, true
	default:
		return Point{}, false
	}
}

// spawnFoodLocked picks a random free cell. A full board falls back to any cell.
func (w *World) spawnFoodLocked() Point {
	occupied := make(map[Point]struct{})
	for _, p := range w.players {
		for _, seg := range p.Snake {
			occupied[seg] = struct{}{}
		}
	}

	n := w.cells()
	free := make([]Point, 0, n*n-len(occupied))
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			c := Point{X: x * w.cfg.CellSize, Y: y * w.cfg.CellSize}
			if _, taken := occupied[c]; !taken {
				free = append(free, c)
			}
		}
	}

	if len(free) == 0 {
		return w.randomCellLocked()
	}
	return free[w.rng.Intn(len(free))]
}
