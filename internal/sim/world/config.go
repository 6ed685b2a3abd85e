package world

import (
	"tickbot.dev/internal/sim/tuning"
	"tickbot.dev/internal/sim/walk"
)

type Config struct {
	TickRateHz        int
	WindowSize        int
	Origin            walk.Point
	Spawn             walk.Point
	InventoryCapacity int
	// ActionTicks is how long one gather or bury takes.
	ActionTicks int
}

func ConfigFromTuning(t tuning.Tuning) Config {
	return Config{
		TickRateHz:        t.TickRateHz,
		WindowSize:        t.WindowSize,
		Origin:            walk.Point{X: t.World.OriginX, Y: t.World.OriginY},
		Spawn:             walk.Point{X: t.World.SpawnX, Y: t.World.SpawnY},
		InventoryCapacity: t.World.InventoryCapacity,
		ActionTicks:       t.World.ActionTicks,
	}
}

func (c *Config) applyDefaults() {
	if c.TickRateHz <= 0 {
		c.TickRateHz = 5
	}
	if c.WindowSize <= 0 {
		c.WindowSize = walk.DefaultWindowSize
	}
	if c.InventoryCapacity <= 0 {
		c.InventoryCapacity = 30
	}
	if c.ActionTicks <= 0 {
		c.ActionTicks = 3
	}
}
