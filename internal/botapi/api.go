// Package botapi is the facade bots use to observe and drive the controlled
// player: position and skill queries, inventory and bank helpers, entity
// searches, and pathfinding walks.
package botapi

import (
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/samber/lo"

	"tickbot.dev/internal/sim/walk"
)

const (
	objectSearchRadius = 1000
	itemSearchRadius   = 20

	sleepFatigue  = 99
	resetFatigue  = 95
	bankWithdrawN = 28
)

type Deps struct {
	Player       Player
	World        World
	Rand         *rand.Rand
	MaxWaypoints int
	Run          bool
	Log          *log.Logger
}

type API struct {
	player Player
	world  World
	walker *walk.Walker
	rng    *rand.Rand
}

func New(d Deps) *API {
	rng := d.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	var region walk.Region
	if d.World != nil {
		region = d.World.Region()
	}
	return &API{
		player: d.Player,
		world:  d.World,
		rng:    rng,
		walker: &walk.Walker{
			Actor:        d.Player,
			Region:       region,
			Mover:        d.World,
			MaxWaypoints: d.MaxWaypoints,
			Run:          d.Run,
			Log:          d.Log,
		},
	}
}

// ---- player ----

func (a *API) Pos() walk.Point { return a.player.Pos() }
func (a *API) X() int          { return a.player.Pos().X }
func (a *API) Y() int          { return a.player.Pos().Y }

func (a *API) Level(skill string) int { return a.player.Level(skill) }
func (a *API) XP(skill string) int    { return a.player.XP(skill) }
func (a *API) IsBusy() bool           { return a.player.Working() }
func (a *API) IsMoving() bool         { return a.player.Moving() }
func (a *API) Fatigue() int           { return a.player.Fatigue() }
func (a *API) NeedsSleep() bool       { return a.player.Fatigue() >= sleepFatigue }
func (a *API) ResetFatigue()          { a.player.SetFatigue(0) }

// HandleFatigue resets fatigue once it is high and reports whether it did.
func (a *API) HandleFatigue() bool {
	if a.player.Fatigue() >= resetFatigue {
		a.ResetFatigue()
		return true
	}
	return false
}

// ---- walking ----

// WalkTo pathfinds to world tile (x, y). See walk.Walker.WalkTo.
func (a *API) WalkTo(x, y int) bool { return a.walker.WalkTo(x, y) }

func (a *API) WalkToSimple(x, y int) { a.walker.WalkToSimple(x, y) }

func (a *API) WalkPath(p walk.Path) { a.walker.WalkPath(p) }

// Plan computes the route WalkTo would take without dispatching it.
func (a *API) Plan(x, y int) (walk.Plan, walk.Status) {
	return walk.Route(a.walker.Region, a.player.Pos(), walk.Point{X: x, Y: y}, a.walker.MaxWaypoints)
}

func (a *API) DistanceTo(x, y int) int {
	return walk.Chebyshev(a.player.Pos(), walk.Point{X: x, Y: y})
}

func (a *API) DistanceToPos(p walk.Point) int { return walk.Chebyshev(a.player.Pos(), p) }

func (a *API) IsAt(x, y, radius int) bool { return a.DistanceTo(x, y) <= radius }

// ---- inventory ----

func (a *API) InventoryCount(id int) int { return a.player.Inventory().Count(id) }
func (a *API) HasItem(id int) bool       { return a.InventoryCount(id) > 0 }
func (a *API) HasItems(id, n int) bool   { return a.InventoryCount(id) >= n }
func (a *API) InventorySize() int        { return a.player.Inventory().Size() }
func (a *API) InventoryIndex(id int) int { return a.player.Inventory().Index(id) }

func (a *API) InventoryFull() bool {
	inv := a.player.Inventory()
	return inv.Size() >= inv.Capacity()
}

func (a *API) InventoryEmpty() bool { return a.player.Inventory().Size() == 0 }

func (a *API) InventoryItem(i int) (int, bool) { return a.player.Inventory().Get(i) }

// FirstIndexOf is the first slot holding any of ids, trying ids in order.
func (a *API) FirstIndexOf(ids ...int) int {
	for _, id := range ids {
		if i := a.InventoryIndex(id); i >= 0 {
			return i
		}
	}
	return -1
}

// CountAll sums the inventory count of every id.
func (a *API) CountAll(ids ...int) int {
	return lo.SumBy(ids, a.InventoryCount)
}

func (a *API) DropItem(index int) bool {
	if index < 0 || a.IsBusy() {
		return false
	}
	return a.world.DropItem(index)
}

func (a *API) DropItemByID(id int) bool { return a.DropItem(a.InventoryIndex(id)) }

func (a *API) UseItem(index int) bool {
	if index < 0 || a.IsBusy() {
		return false
	}
	return a.world.UseItem(index)
}

func (a *API) UseItemByID(id int) bool { return a.UseItem(a.InventoryIndex(id)) }

// ---- bank ----

func (a *API) OpenBank()        { a.world.OpenBank() }
func (a *API) CloseBank()       { a.world.CloseBank() }
func (a *API) IsBankOpen() bool { return a.world.BankOpen() }

func (a *API) BankCount(id int) int { return a.world.BankCount(id) }

// Deposit opens the bank first if needed.
func (a *API) Deposit(id, n int) int {
	if !a.world.BankOpen() {
		a.world.OpenBank()
	}
	return a.world.Deposit(id, n)
}

func (a *API) DepositAll(ids ...int) int {
	total := 0
	for _, id := range ids {
		if c := a.InventoryCount(id); c > 0 {
			total += a.Deposit(id, c)
		}
	}
	return total
}

func (a *API) Withdraw(id, n int) int {
	if !a.world.BankOpen() {
		a.world.OpenBank()
	}
	return a.world.Withdraw(id, n)
}

// WithdrawAll takes as many of id as fit, capped at a full inventory load.
func (a *API) WithdrawAll(id int) int {
	n := a.BankCount(id)
	if n > bankWithdrawN {
		n = bankWithdrawN
	}
	if n == 0 {
		return 0
	}
	return a.Withdraw(id, n)
}

// ---- entities ----

// NearestObject is the closest live object with one of ids.
func (a *API) NearestObject(ids ...int) (Object, bool) {
	return a.nearestObject(ids, nil)
}

// NearestObjectInArea only considers objects inside area.
func (a *API) NearestObjectInArea(ids []int, area Area) (Object, bool) {
	return a.nearestObject(ids, &area)
}

func (a *API) nearestObject(ids []int, area *Area) (Object, bool) {
	me := a.player.Pos()
	best, bestDist, found := Object{}, math.MaxInt, false
	for _, o := range a.world.Objects() {
		if !lo.Contains(ids, o.ID) {
			continue
		}
		if area != nil && !area.Contains(o.Pos) {
			continue
		}
		d := walk.Chebyshev(me, o.Pos)
		if d > objectSearchRadius {
			continue
		}
		if d < bestDist {
			best, bestDist, found = o, d, true
		}
	}
	return best, found
}

func (a *API) ObjectAt(x, y int) (Object, bool) {
	p := walk.Point{X: x, Y: y}
	return lo.Find(a.world.Objects(), func(o Object) bool { return o.Pos == p })
}

func (a *API) InteractObject(o Object) bool {
	if a.IsBusy() {
		return false
	}
	return a.world.InteractObject(o.Pos)
}

func (a *API) UseItemOnObject(index int, o Object) bool {
	if index < 0 || a.IsBusy() {
		return false
	}
	return a.world.UseItemOnObject(index, o.Pos)
}

func (a *API) NearestNPC(ids ...int) (NPC, bool) {
	me := a.player.Pos()
	best, bestDist, found := NPC{}, math.MaxInt, false
	for _, n := range a.world.NPCs() {
		if !lo.Contains(ids, n.ID) {
			continue
		}
		if d := walk.Chebyshev(me, n.Pos); d < bestDist {
			best, bestDist, found = n, d, true
		}
	}
	return best, found
}

func (a *API) NPCsInRadius(radius int, ids ...int) []NPC {
	me := a.player.Pos()
	return lo.Filter(a.world.NPCs(), func(n NPC, _ int) bool {
		return lo.Contains(ids, n.ID) && walk.Chebyshev(me, n.Pos) <= radius
	})
}

func (a *API) NearestGroundItem(ids ...int) (GroundItem, bool) {
	me := a.player.Pos()
	best, bestDist, found := GroundItem{}, math.MaxInt, false
	for _, it := range a.world.GroundItems() {
		if !lo.Contains(ids, it.ID) {
			continue
		}
		d := walk.Chebyshev(me, it.Pos)
		if d > itemSearchRadius {
			continue
		}
		if d < bestDist {
			best, bestDist, found = it, d, true
		}
	}
	return best, found
}

func (a *API) PickupItem(it GroundItem) bool {
	if a.IsBusy() || a.InventoryFull() {
		return false
	}
	return a.world.Pickup(it)
}

// ---- misc ----

func (a *API) Message(text string) { a.player.SendMessage(text) }

// Random returns an int in [min, max].
func (a *API) Random(min, max int) int {
	if max <= min {
		return min
	}
	return min + a.rng.Intn(max-min+1)
}

// RandomDelay is Random as a duration in milliseconds.
func (a *API) RandomDelay(minMs, maxMs int) time.Duration {
	return time.Duration(a.Random(minMs, maxMs)) * time.Millisecond
}
