package world

import (
	"tickbot.dev/internal/botapi"
	"tickbot.dev/internal/sim/tasks"
	"tickbot.dev/internal/sim/walk"
)

const maxMessages = 100

type Player struct {
	w    *World
	pos  walk.Point
	move *tasks.MovementTask
	work *tasks.WorkTask

	inv      *Inventory
	bank     map[int]int
	bankOpen bool
	fatigue  int
	xp       map[string]int
	messages []string
}

func newPlayer(w *World, pos walk.Point, capacity int) *Player {
	return &Player{
		w:    w,
		pos:  pos,
		inv:  NewInventory(capacity),
		bank: map[int]int{},
		xp:   map[string]int{},
	}
}

func (p *Player) Pos() walk.Point { return p.pos }

// Busy reports an action or a walk in progress.
func (p *Player) Busy() bool { return p.Working() || p.Moving() }

func (p *Player) Working() bool               { return p.work != nil }
func (p *Player) Moving() bool                { return !p.move.Done() }
func (p *Player) Fatigue() int                { return p.fatigue }
func (p *Player) XP(skill string) int         { return p.xp[skill] }
func (p *Player) Level(skill string) int      { return LevelForXP(p.xp[skill]) }
func (p *Player) Items() *Inventory           { return p.inv }
func (p *Player) Inventory() botapi.Inventory { return p.inv }

// WorkKind is the kind of the action in progress, empty when idle.
func (p *Player) WorkKind() tasks.Kind {
	if p.work == nil {
		return ""
	}
	return p.work.Kind
}

func (p *Player) SetFatigue(v int) {
	if v < 0 {
		v = 0
	}
	if v > maxFatigue {
		v = maxFatigue
	}
	p.fatigue = v
}

func (p *Player) addXP(skill string, n int) {
	if skill == "" || n <= 0 {
		return
	}
	before := p.Level(skill)
	p.xp[skill] += n
	if after := p.Level(skill); after > before {
		p.SendMessage("@gre@You just advanced a " + skill + " level!")
	}
}

// SendMessage appends to the chat log and forwards to subscribers.
func (p *Player) SendMessage(text string) {
	p.messages = append(p.messages, text)
	if n := len(p.messages); n > maxMessages {
		p.messages = append(p.messages[:0], p.messages[n-maxMessages:]...)
	}
	p.w.publish(text)
}

func (p *Player) Messages() []string {
	out := make([]string, len(p.messages))
	copy(out, p.messages)
	return out
}

func (p *Player) BankItems() map[int]int {
	out := make(map[int]int, len(p.bank))
	for id, n := range p.bank {
		out[id] = n
	}
	return out
}

var _ botapi.Player = (*Player)(nil)
