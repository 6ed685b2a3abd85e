// Package world is a small tick-driven host for bots: one player on a tile
// map with gatherable objects, NPCs, ground items and a bank. All state is
// owned by the simulation goroutine; other goroutines go through Exec.
package world

import (
	"fmt"
	"log"
	"sync"
	"time"

	"tickbot.dev/internal/botapi"
	"tickbot.dev/internal/sim/catalogs"
	"tickbot.dev/internal/sim/sched"
	"tickbot.dev/internal/sim/walk"
)

const (
	skillBank  = "bank"
	maxFatigue = 100
)

type Object struct {
	Def      catalogs.ObjectDef
	Pos      walk.Point
	Depleted bool
}

type NPC struct {
	Index int
	ID    int
	Pos   walk.Point
}

type GroundItem struct {
	ID  int
	Pos walk.Point
}

type World struct {
	cfg   Config
	cats  *catalogs.Catalogs
	log   *log.Logger
	sched *sched.Scheduler
	grid  *walk.Grid

	walls    map[walk.Point]bool
	objects  []*Object
	objectAt map[walk.Point]*Object
	npcs     []*NPC
	items    []*GroundItem
	player   *Player
	tick     uint64

	exec     chan *execReq
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	subMu   sync.Mutex
	subs    map[int]chan string
	nextSub int
}

func New(cfg Config, cats *catalogs.Catalogs, clock sched.Clock, logger *log.Logger) (*World, error) {
	cfg.applyDefaults()
	if cats == nil {
		return nil, fmt.Errorf("world: nil catalogs")
	}
	w := &World{
		cfg:      cfg,
		cats:     cats,
		log:      logger,
		sched:    sched.New(clock, logger),
		grid:     walk.NewGrid(cfg.Origin, cfg.WindowSize),
		walls:    map[walk.Point]bool{},
		objectAt: map[walk.Point]*Object{},
		exec:     make(chan *execReq, 64),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		subs:     map[int]chan string{},
	}

	l := cats.Layout
	for _, xy := range l.Walls {
		w.walls[walk.Point{X: xy[0], Y: xy[1]}] = true
	}
	for _, pl := range l.Objects {
		if err := w.PlaceObject(pl.ID, walk.Point{X: pl.X, Y: pl.Y}); err != nil {
			return nil, err
		}
	}
	for i, pl := range l.NPCs {
		w.npcs = append(w.npcs, &NPC{Index: i + 1, ID: pl.ID, Pos: walk.Point{X: pl.X, Y: pl.Y}})
	}
	for _, pl := range l.Items {
		w.items = append(w.items, &GroundItem{ID: pl.ID, Pos: walk.Point{X: pl.X, Y: pl.Y}})
	}

	if w.Blocked(cfg.Spawn) {
		return nil, fmt.Errorf("world: spawn %v is blocked", cfg.Spawn)
	}
	w.player = newPlayer(w, cfg.Spawn, cfg.InventoryCapacity)
	for _, ic := range l.Bank {
		w.player.bank[ic.ID] += ic.Count
	}
	w.reloadGrid()
	w.maybeRecenter()
	return w, nil
}

func (w *World) Scheduler() *sched.Scheduler      { return w.sched }
func (w *World) Player() *Player                  { return w.player }
func (w *World) Catalogs() *catalogs.Catalogs     { return w.cats }
func (w *World) Region() walk.Region              { return w.grid }
func (w *World) Grid() *walk.Grid                 { return w.grid }
func (w *World) CurrentTick() uint64              { return w.tick }
func (w *World) TickRateHz() int                  { return w.cfg.TickRateHz }
func (w *World) TickInterval() time.Duration      { return time.Second / time.Duration(w.cfg.TickRateHz) }
func (w *World) ticks(n int) time.Duration        { return time.Duration(n) * w.TickInterval() }
func (w *World) objectAtPos(p walk.Point) *Object { return w.objectAt[p] }

// Blocked reports whether a world tile is a wall or a blocking object.
func (w *World) Blocked(p walk.Point) bool {
	if w.walls[p] {
		return true
	}
	o := w.objectAt[p]
	return o != nil && o.Def.Blocking
}

// SetWall adds or removes a wall tile.
func (w *World) SetWall(p walk.Point, blocked bool) {
	if blocked {
		w.walls[p] = true
	} else {
		delete(w.walls, p)
	}
	w.grid.SetBlockedWorld(p, w.Blocked(p))
}

// PlaceObject puts a catalog object on a free tile.
func (w *World) PlaceObject(id int, p walk.Point) error {
	def, ok := w.cats.Object(id)
	if !ok {
		return fmt.Errorf("world: unknown object %d", id)
	}
	if _, taken := w.objectAt[p]; taken {
		return fmt.Errorf("world: tile %v already has an object", p)
	}
	o := &Object{Def: def, Pos: p}
	w.objects = append(w.objects, o)
	w.objectAt[p] = o
	w.grid.SetBlockedWorld(p, w.Blocked(p))
	return nil
}

// DropGroundItem places an item on a tile.
func (w *World) DropGroundItem(id int, p walk.Point) {
	w.items = append(w.items, &GroundItem{ID: id, Pos: p})
}

func (w *World) Objects() []botapi.Object {
	out := make([]botapi.Object, 0, len(w.objects))
	for _, o := range w.objects {
		if o.Depleted {
			continue
		}
		out = append(out, botapi.Object{ID: o.Def.ID, Pos: o.Pos})
	}
	return out
}

func (w *World) NPCs() []botapi.NPC {
	out := make([]botapi.NPC, 0, len(w.npcs))
	for _, n := range w.npcs {
		out = append(out, botapi.NPC{Index: n.Index, ID: n.ID, Pos: n.Pos})
	}
	return out
}

func (w *World) GroundItems() []botapi.GroundItem {
	out := make([]botapi.GroundItem, 0, len(w.items))
	for _, it := range w.items {
		out = append(out, botapi.GroundItem{ID: it.ID, Pos: it.Pos})
	}
	return out
}

// reloadGrid rebuilds the window's blocked mask from walls and objects.
func (w *World) reloadGrid() {
	origin, size := w.grid.Origin(), w.grid.Size()
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			local := walk.Point{X: x, Y: y}
			w.grid.SetBlocked(local, w.Blocked(local.Add(origin)))
		}
	}
}

// maybeRecenter moves the window once the player gets within a sixth of its
// size from an edge. Origins snap to multiples of 8.
func (w *World) maybeRecenter() {
	size := w.grid.Size()
	margin := size / 6
	local := w.player.pos.Sub(w.grid.Origin())
	if local.X >= margin && local.X < size-margin && local.Y >= margin && local.Y < size-margin {
		return
	}
	origin := walk.Point{X: snap8(w.player.pos.X - size/2), Y: snap8(w.player.pos.Y - size/2)}
	if origin == w.grid.Origin() {
		return
	}
	w.grid.Recenter(origin)
	w.reloadGrid()
	w.logf("region recentered at %v", origin)
}

func snap8(v int) int {
	if v < 0 {
		return -((-v + 7) / 8 * 8)
	}
	return v / 8 * 8
}

func (w *World) logf(format string, args ...any) {
	if w.log == nil {
		return
	}
	w.log.Printf(format, args...)
}

var _ botapi.World = (*World)(nil)
