package tasks

import "tickbot.dev/internal/sim/walk"

type Kind string

const (
	KindWalk   Kind = "WALK"
	KindGather Kind = "GATHER"
	KindBury   Kind = "BURY"
	KindPickup Kind = "PICKUP"
	KindDrop   Kind = "DROP"
)

// MovementTask is a queued walk. Tiles are consumed from the front, one per
// tick, two when running.
type MovementTask struct {
	Kind        Kind
	Tiles       []walk.Point
	Run         bool
	Direct      bool
	StartedTick uint64
}

func (m *MovementTask) Done() bool { return m == nil || len(m.Tiles) == 0 }

// Next pops the next tile.
func (m *MovementTask) Next() (walk.Point, bool) {
	if m.Done() {
		return walk.Point{}, false
	}
	p := m.Tiles[0]
	m.Tiles = m.Tiles[1:]
	return p, true
}

type WorkTask struct {
	Kind Kind

	// GATHER
	ObjectPos walk.Point
	// BURY
	ItemIndex int
	ItemID    int
	// PICKUP
	ItemPos walk.Point

	StartedTick uint64
	WorkTicks   int // elapsed ticks on this unit of work
	NeedTicks   int
}

// Tick advances the work by one tick and reports whether it has completed.
func (w *WorkTask) Tick() bool {
	w.WorkTicks++
	return w.WorkTicks >= w.NeedTicks
}
