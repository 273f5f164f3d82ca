package world

// Tick advances every player one cell. With nobody playing it does nothing and
// reports false so callers skip the broadcast.
func (w *World) Tick() (Snapshot, bool) {
	w.Mu.Lock()
	defer w.Mu.Unlock()

	if len(w.players) == 0 {
		return Snapshot{}, false
	}

	w.tickCount++
	for _, p := range w.orderedLocked() {
		w.stepLocked(p)
	}
	return w.snapshotLocked(), true
}

func (w *World) stepLocked(p *Player) {
	head := p.Head()
	next := w.wrap(Point{X: head.X + p.Direction.X, Y: head.Y + p.Direction.Y})

	// Self collision is the only way to die; the snake restarts in place.
	if p.hitsBody(next) {
		w.respawnLocked(p)
		return
	}

	p.Snake = append([]Point{next}, p.Snake...)
	if next == w.food {
		p.Score += w.cfg.FoodReward
		w.food = w.spawnFoodLocked()
		return
	}
	p.Snake = p.Snake[:len(p.Snake)-1]
}
