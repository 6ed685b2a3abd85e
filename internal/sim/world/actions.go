package world

import (
	"strings"
	"time"

	"tickbot.dev/internal/botapi"
	"tickbot.dev/internal/sim/tasks"
	"tickbot.dev/internal/sim/walk"
)

const (
	msgNothing  = "Nothing interesting happens."
	msgTooFar   = "I can't reach that!"
	msgFull     = "Your inventory is too full to hold any more."
	msgTooTired = "You are too tired to gain experience, get some rest!"
)

// InteractObject performs an object's primary action. Gatherable objects
// start a timed action; bank chests open the bank.
func (w *World) InteractObject(pos walk.Point) bool {
	p := w.player
	if p.work != nil {
		return false
	}
	o := w.objectAtPos(pos)
	if o == nil || o.Depleted {
		p.SendMessage(msgNothing)
		return false
	}
	if walk.Chebyshev(p.pos, pos) > 1 {
		p.SendMessage(msgTooFar)
		return false
	}
	if o.Def.Skill == skillBank {
		w.OpenBank()
		return true
	}
	if o.Def.Product == 0 {
		p.SendMessage(msgNothing)
		return false
	}
	if p.inv.Full() {
		p.SendMessage(msgFull)
		return false
	}
	if p.fatigue >= maxFatigue {
		p.SendMessage(msgTooTired)
		return false
	}
	p.move = nil
	p.work = &tasks.WorkTask{
		Kind:        tasks.KindGather,
		ObjectPos:   pos,
		StartedTick: w.tick,
		NeedTicks:   w.cfg.ActionTicks,
	}
	return true
}

// UseItemOnObject only does something for bank chests, where it deposits
// every carried item of that kind.
func (w *World) UseItemOnObject(index int, pos walk.Point) bool {
	p := w.player
	id, ok := p.inv.Get(index)
	if !ok || p.work != nil {
		return false
	}
	o := w.objectAtPos(pos)
	if o == nil || o.Depleted || o.Def.Skill != skillBank {
		p.SendMessage(msgNothing)
		return false
	}
	if walk.Chebyshev(p.pos, pos) > 1 {
		p.SendMessage(msgTooFar)
		return false
	}
	w.OpenBank()
	return w.Deposit(id, p.inv.Count(id)) > 0
}

// UseItem buries buryable items; anything else does nothing.
func (w *World) UseItem(index int) bool {
	p := w.player
	id, ok := p.inv.Get(index)
	if !ok || p.work != nil {
		return false
	}
	def, _ := w.cats.Item(id)
	if def.BuryXP <= 0 {
		p.SendMessage(msgNothing)
		return false
	}
	p.move = nil
	p.work = &tasks.WorkTask{
		Kind:        tasks.KindBury,
		ItemIndex:   index,
		ItemID:      id,
		StartedTick: w.tick,
		NeedTicks:   w.cfg.ActionTicks,
	}
	p.SendMessage("You dig a hole in the ground")
	return true
}

func (w *World) DropItem(index int) bool {
	p := w.player
	if p.work != nil {
		return false
	}
	id, ok := p.inv.RemoveAt(index)
	if !ok {
		return false
	}
	w.DropGroundItem(id, p.pos)
	p.work = &tasks.WorkTask{Kind: tasks.KindDrop, StartedTick: w.tick, NeedTicks: 1}
	return true
}

// Pickup takes a ground item on or next to the player's tile.
func (w *World) Pickup(item botapi.GroundItem) bool {
	p := w.player
	if p.work != nil {
		return false
	}
	if walk.Chebyshev(p.pos, item.Pos) > 1 {
		p.SendMessage(msgTooFar)
		return false
	}
	idx := -1
	for i, it := range w.items {
		if it.ID == item.ID && it.Pos == item.Pos {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	if !p.inv.Add(item.ID) {
		p.SendMessage(msgFull)
		return false
	}
	w.items = append(w.items[:idx], w.items[idx+1:]...)
	p.work = &tasks.WorkTask{Kind: tasks.KindPickup, ItemPos: item.Pos, StartedTick: w.tick, NeedTicks: 1}
	return true
}

func (w *World) OpenBank()      { w.player.bankOpen = true }
func (w *World) CloseBank()     { w.player.bankOpen = false }
func (w *World) BankOpen() bool { return w.player.bankOpen }

func (w *World) BankCount(id int) int { return w.player.bank[id] }

// Deposit moves up to n of id into the bank. The bank must be open.
func (w *World) Deposit(id, n int) int {
	p := w.player
	if !p.bankOpen || n <= 0 {
		return 0
	}
	moved := p.inv.Remove(id, n)
	p.bank[id] += moved
	return moved
}

// Withdraw moves up to n of id into free inventory slots.
func (w *World) Withdraw(id, n int) int {
	p := w.player
	if !p.bankOpen || n <= 0 {
		return 0
	}
	moved := 0
	for moved < n && p.bank[id] > 0 && p.inv.Add(id) {
		p.bank[id]--
		moved++
	}
	if p.bank[id] == 0 {
		delete(p.bank, id)
	}
	return moved
}

func (w *World) systemWork() {
	p := w.player
	wt := p.work
	if wt == nil || !wt.Tick() {
		return
	}
	p.work = nil
	switch wt.Kind {
	case tasks.KindGather:
		w.finishGather(wt)
	case tasks.KindBury:
		w.finishBury(wt)
	}
}

func (w *World) finishGather(wt *tasks.WorkTask) {
	p := w.player
	o := w.objectAtPos(wt.ObjectPos)
	if o == nil || o.Depleted {
		return
	}
	if !p.inv.Add(o.Def.Product) {
		p.SendMessage(msgFull)
		return
	}
	p.addXP(o.Def.Skill, o.Def.XP)
	p.SetFatigue(p.fatigue + 1)
	p.SendMessage("You get some " + strings.ToLower(w.cats.ItemName(o.Def.Product)))

	if o.Def.Depletes {
		o.Depleted = true
		w.sched.Add(w.ticks(o.Def.RespawnTicks), func() (time.Duration, bool) {
			o.Depleted = false
			return 0, false
		})
	}
}

func (w *World) finishBury(wt *tasks.WorkTask) {
	p := w.player
	idx := wt.ItemIndex
	if id, ok := p.inv.Get(idx); !ok || id != wt.ItemID {
		idx = p.inv.Index(wt.ItemID)
	}
	if _, ok := p.inv.RemoveAt(idx); !ok {
		return
	}
	def, _ := w.cats.Item(wt.ItemID)
	p.addXP("prayer", def.BuryXP)
	p.SendMessage("You bury the " + strings.ToLower(w.cats.ItemName(wt.ItemID)))
}
