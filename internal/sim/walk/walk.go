// Package walk turns a world-coordinate destination into a bounded waypoint
// path inside the currently loaded map window and hands it to the movement
// system.
//
// The region's step primitive returns tiles ordered target to start. The
// encoder anchors the path on the start tile and keeps at most MaxWaypoints
// signed byte offsets, in walking order, for the tiles nearest the anchor.
package walk

import "log"

const (
	DefaultWindowSize   = 96
	DefaultMaxWaypoints = 25
)

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Point) Add(o Point) Point { return Point{X: p.X + o.X, Y: p.Y + o.Y} }
func (p Point) Sub(o Point) Point { return Point{X: p.X - o.X, Y: p.Y - o.Y} }

// Region is the loaded map window.
type Region interface {
	// Origin is the world coordinate of local (0,0).
	Origin() Point
	// Size is the side length of the square window.
	Size() int
	// StepCount finds a path between two local tiles. Tiles come back ordered
	// target to start, both ends included. ok is false when no path exists.
	StepCount(start, target Point) (steps []Point, ok bool)
}

type Actor interface {
	Pos() Point
	Busy() bool
}

// Mover is the movement dispatch primitive.
type Mover interface {
	Walk(p Path, run bool)
	// WalkDirect queues an unvalidated straight-line walk.
	WalkDirect(from, to Point)
}

// neighborOffsets is the fixed retry order used when the target tile itself
// has no path.
var neighborOffsets = [...]Point{
	{X: 0, Y: -1},
	{X: 0, Y: 1},
	{X: -1, Y: 0},
	{X: 1, Y: 0},
	{X: -1, Y: -1},
	{X: -1, Y: 1},
	{X: 1, Y: -1},
	{X: 1, Y: 1},
}

// NeighborOffsets returns a copy of the fallback search order.
func NeighborOffsets() []Point {
	out := make([]Point, len(neighborOffsets))
	copy(out, neighborOffsets[:])
	return out
}

// Clamp pulls a local coordinate into [0, size-1] on both axes.
func Clamp(p Point, size int) Point {
	return Point{X: clampInt(p.X, 0, size-1), Y: clampInt(p.Y, 0, size-1)}
}

func inWindow(p Point, size int) bool {
	return p.X >= 0 && p.X < size && p.Y >= 0 && p.Y < size
}

type Status int

const (
	Planned Status = iota
	Busy
	Unreachable
	NoRegion
)

func (s Status) String() string {
	switch s {
	case Planned:
		return "planned"
	case Busy:
		return "busy"
	case Unreachable:
		return "unreachable"
	case NoRegion:
		return "no_region"
	default:
		return "unknown"
	}
}

// Plan is a computed route. Target is the local tile the path actually ends
// on, which differs from the requested one after clamping or neighbour
// fallback.
type Plan struct {
	Path    Path
	Target  Point
	Clamped bool
	// Neighbor is the offset from the clamped target that produced the path,
	// zero when the target itself was reachable.
	Neighbor Point
	Fallback bool
}

// Route computes a plan from world position from to world position to without
// dispatching anything.
func Route(region Region, from, to Point, maxWaypoints int) (Plan, Status) {
	if region == nil {
		return Plan{}, NoRegion
	}
	size := region.Size()
	origin := region.Origin()
	start := from.Sub(origin)
	dest := to.Sub(origin)

	var plan Plan
	if !inWindow(dest, size) {
		dest = Clamp(dest, size)
		plan.Clamped = true
	}
	plan.Target = dest

	steps, ok := region.StepCount(start, dest)
	if !ok || len(steps) == 0 {
		for _, off := range neighborOffsets {
			adj := dest.Add(off)
			if !inWindow(adj, size) {
				continue
			}
			steps, ok = region.StepCount(start, adj)
			if ok && len(steps) > 0 {
				plan.Target = adj
				plan.Neighbor = off
				plan.Fallback = true
				break
			}
		}
		if !ok || len(steps) == 0 {
			return plan, Unreachable
		}
	}

	plan.Path = Encode(steps, origin, maxWaypoints)
	return plan, Planned
}

// Walker dispatches routes for one actor.
type Walker struct {
	Actor        Actor
	Region       Region
	Mover        Mover
	MaxWaypoints int
	Run          bool
	Log          *log.Logger
}

// WalkTo walks toward world tile (x, y). It returns false when the actor is
// busy or no path was found; in the latter case a direct walk toward the
// original target is still dispatched.
func (w *Walker) WalkTo(x, y int) bool {
	if w.Actor.Busy() {
		return false
	}
	from := w.Actor.Pos()
	to := Point{X: x, Y: y}

	plan, status := Route(w.Region, from, to, w.maxWaypoints())
	switch status {
	case NoRegion:
		w.Mover.WalkDirect(from, to)
		return true
	case Unreachable:
		if w.Log != nil {
			w.Log.Printf("no path from %v to %v; walking direct", from, to)
		}
		w.Mover.WalkDirect(from, to)
		return false
	}
	w.Mover.Walk(plan.Path, w.Run)
	return true
}

// WalkToSimple walks a straight line with no pathfinding.
func (w *Walker) WalkToSimple(x, y int) {
	if w.Actor.Busy() {
		return
	}
	w.Mover.WalkDirect(w.Actor.Pos(), Point{X: x, Y: y})
}

// WalkPath dispatches a caller-built waypoint path.
func (w *Walker) WalkPath(p Path) {
	if w.Actor.Busy() {
		return
	}
	w.Mover.Walk(p, w.Run)
}

func (w *Walker) maxWaypoints() int {
	if w.MaxWaypoints <= 0 {
		return DefaultMaxWaypoints
	}
	return w.MaxWaypoints
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Chebyshev is the tile distance where diagonal steps cost one.
func Chebyshev(a, b Point) int {
	dx, dy := a.X-b.X, a.Y-b.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}
