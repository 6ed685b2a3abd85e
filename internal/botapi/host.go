package botapi

import "tickbot.dev/internal/sim/walk"

// Object is a world object as seen by a bot.
type Object struct {
	ID  int        `json:"id"`
	Pos walk.Point `json:"pos"`
}

type NPC struct {
	Index int        `json:"index"`
	ID    int        `json:"id"`
	Pos   walk.Point `json:"pos"`
}

type GroundItem struct {
	ID  int        `json:"id"`
	Pos walk.Point `json:"pos"`
}

// Area is an inclusive rectangle in world coordinates.
type Area struct {
	MinX, MaxX int
	MinY, MaxY int
}

func (a Area) Contains(p walk.Point) bool {
	return p.X >= a.MinX && p.X <= a.MaxX && p.Y >= a.MinY && p.Y <= a.MaxY
}

type Inventory interface {
	Size() int
	Capacity() int
	Count(id int) int
	// Get returns the item id in slot i.
	Get(i int) (id int, ok bool)
	// Index is the first slot holding id, or -1.
	Index(id int) int
}

// Player is the controlled character.
type Player interface {
	walk.Actor
	// Working reports an action in progress.
	Working() bool
	Moving() bool
	Fatigue() int
	SetFatigue(v int)
	Level(skill string) int
	XP(skill string) int
	Inventory() Inventory
	SendMessage(text string)
}

// World is what a bot can see and do besides walking.
type World interface {
	walk.Mover
	Region() walk.Region

	Objects() []Object
	NPCs() []NPC
	GroundItems() []GroundItem

	InteractObject(pos walk.Point) bool
	UseItemOnObject(index int, pos walk.Point) bool
	DropItem(index int) bool
	UseItem(index int) bool
	Pickup(item GroundItem) bool

	OpenBank()
	CloseBank()
	BankOpen() bool
	// Deposit and Withdraw return how many items moved.
	Deposit(id, n int) int
	Withdraw(id, n int) int
	BankCount(id int) int
}
