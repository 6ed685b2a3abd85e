package world

import (
	"tickbot.dev/internal/sim/tasks"
	"tickbot.dev/internal/sim/walk"
)

// Walk queues a waypoint path. The anchor must be the player's tile or one
// next to it; consecutive waypoints are joined with straight segments.
func (w *World) Walk(path walk.Path, run bool) {
	p := w.player
	if err := path.Validate(); err != nil {
		w.logf("walk rejected: %v", err)
		return
	}
	if walk.Chebyshev(p.pos, path.Anchor) > 1 {
		w.logf("walk rejected: anchor %v is not at player %v", path.Anchor, p.pos)
		return
	}
	var tiles []walk.Point
	cur := p.pos
	for _, wp := range append([]walk.Point{path.Anchor}, path.Decode()...) {
		tiles = append(tiles, lineTiles(cur, wp)...)
		cur = wp
	}
	p.work = nil
	p.move = &tasks.MovementTask{Kind: tasks.KindWalk, Tiles: tiles, Run: run, StartedTick: w.tick}
}

// WalkDirect queues a straight line toward to. Collisions end it early.
func (w *World) WalkDirect(from, to walk.Point) {
	p := w.player
	p.work = nil
	p.move = &tasks.MovementTask{Kind: tasks.KindWalk, Tiles: lineTiles(p.pos, to), Direct: true, StartedTick: w.tick}
}

// lineTiles steps diagonally until one axis lines up, then straight. from is
// excluded, to is included.
func lineTiles(from, to walk.Point) []walk.Point {
	var out []walk.Point
	cur := from
	for cur != to {
		cur.X += sign(to.X - cur.X)
		cur.Y += sign(to.Y - cur.Y)
		out = append(out, cur)
	}
	return out
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func (w *World) canStep(from, to walk.Point) bool {
	if walk.Chebyshev(from, to) != 1 || w.Blocked(to) {
		return false
	}
	if from.X != to.X && from.Y != to.Y {
		if w.Blocked(walk.Point{X: to.X, Y: from.Y}) || w.Blocked(walk.Point{X: from.X, Y: to.Y}) {
			return false
		}
	}
	return true
}

func (w *World) systemMovement() {
	p := w.player
	mt := p.move
	if mt == nil {
		return
	}
	steps := 1
	if mt.Run {
		steps = 2
	}
	for i := 0; i < steps; i++ {
		next, ok := mt.Next()
		if !ok {
			break
		}
		if !w.canStep(p.pos, next) {
			mt.Tiles = nil
			break
		}
		p.pos = next
	}
	if mt.Done() {
		p.move = nil
	}
	w.maybeRecenter()
}
