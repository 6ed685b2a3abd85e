package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz   int `yaml:"tick_rate_hz"`
	WindowSize   int `yaml:"window_size"`
	MaxWaypoints int `yaml:"max_waypoints"`

	Bot   BotTuning   `yaml:"bot"`
	World WorldTuning `yaml:"world"`
}

type BotTuning struct {
	InitialDelayMs int   `yaml:"initial_delay_ms"`
	PausePollMs    int   `yaml:"pause_poll_ms"`
	BlockedRetryMs int   `yaml:"blocked_retry_ms"`
	StuckAfterMs   int   `yaml:"stuck_after_ms"`
	Seed           int64 `yaml:"seed"`
}

type WorldTuning struct {
	OriginX           int `yaml:"origin_x"`
	OriginY           int `yaml:"origin_y"`
	SpawnX            int `yaml:"spawn_x"`
	SpawnY            int `yaml:"spawn_y"`
	InventoryCapacity int `yaml:"inventory_capacity"`
	ActionTicks       int `yaml:"action_ticks"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: "1.0",
		TickRateHz:      5,
		WindowSize:      96,
		MaxWaypoints:    25,
		Bot: BotTuning{
			InitialDelayMs: 100,
			PausePollMs:    200,
			BlockedRetryMs: 400,
			StuckAfterMs:   15000,
			Seed:           1,
		},
		World: WorldTuning{
			OriginX:           48,
			OriginY:           384,
			SpawnX:            120,
			SpawnY:            432,
			InventoryCapacity: 30,
			ActionTicks:       3,
		},
	}
}

// Load reads a tuning file. Zero or missing fields keep their defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	var file Tuning
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.merge(file)
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.WindowSize < 2 {
		return fmt.Errorf("window_size must be >= 2 (got %d)", t.WindowSize)
	}
	if t.MaxWaypoints < 1 || t.MaxWaypoints > 127 {
		return fmt.Errorf("max_waypoints must be in [1,127] (got %d)", t.MaxWaypoints)
	}
	if t.TickRateHz <= 0 {
		return fmt.Errorf("tick_rate_hz must be > 0 (got %d)", t.TickRateHz)
	}
	return nil
}

func (t *Tuning) merge(f Tuning) {
	if f.ProtocolVersion != "" {
		t.ProtocolVersion = f.ProtocolVersion
	}
	setInt(&t.TickRateHz, f.TickRateHz)
	setInt(&t.WindowSize, f.WindowSize)
	setInt(&t.MaxWaypoints, f.MaxWaypoints)

	setInt(&t.Bot.InitialDelayMs, f.Bot.InitialDelayMs)
	setInt(&t.Bot.PausePollMs, f.Bot.PausePollMs)
	setInt(&t.Bot.BlockedRetryMs, f.Bot.BlockedRetryMs)
	setInt(&t.Bot.StuckAfterMs, f.Bot.StuckAfterMs)
	if f.Bot.Seed != 0 {
		t.Bot.Seed = f.Bot.Seed
	}

	setInt(&t.World.OriginX, f.World.OriginX)
	setInt(&t.World.OriginY, f.World.OriginY)
	setInt(&t.World.SpawnX, f.World.SpawnX)
	setInt(&t.World.SpawnY, f.World.SpawnY)
	setInt(&t.World.InventoryCapacity, f.World.InventoryCapacity)
	setInt(&t.World.ActionTicks, f.World.ActionTicks)
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
