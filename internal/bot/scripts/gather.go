// Package scripts holds the skill behaviours started by chat commands.
package scripts

import (
	"fmt"
	"time"

	"tickbot.dev/internal/bot"
	"tickbot.dev/internal/botapi"
)

type Phase string

const (
	PhaseIdle    Phase = "IDLE"
	PhaseWalking Phase = "WALKING"
	PhaseWorking Phase = "WORKING"
	PhaseBanking Phase = "BANKING"
)

// GatherState is the part of a gathering run worth reporting.
type GatherState struct {
	Phase     Phase
	Target    botapi.Object
	HasTarget bool
	Banked    int
	Dropped   int
	// Since is when the script last issued an action.
	Since time.Time
}

type Options struct {
	// StuckAfter resets the script to Idle when the player has been busy
	// or moving this long without the script acting. Zero disables it.
	StuckAfter time.Duration
	// AutoRest resets fatigue instead of waiting for the player to sleep.
	AutoRest bool
}

// Gatherer is the shared loop for woodcutting, mining and fishing: find the
// nearest object, walk next to it, interact, and bank or drop when full.
type Gatherer struct {
	profile GatherProfile
	api     *botapi.API
	opts    Options
	state   GatherState
}

func NewGatherer(api *botapi.API, p GatherProfile, opts Options) *Gatherer {
	return &Gatherer{profile: p, api: api, opts: opts}
}

// NewGatherTask wraps a Gatherer in a task with the usual start and stop
// chatter.
func NewGatherTask(env *bot.Env, api *botapi.API, p GatherProfile, opts Options) (*bot.Task, *Gatherer) {
	g := NewGatherer(api, p, opts)
	t := bot.NewTask(env, p.Name, g, bot.Hooks{OnStart: g.onStart, OnStop: g.onStop})
	return t, g
}

func (g *Gatherer) Profile() GatherProfile { return g.profile }
func (g *Gatherer) State() GatherState     { return g.state }

// SetArea limits the object search; nil clears it.
func (g *Gatherer) SetArea(a *botapi.Area) { g.profile.Area = a }

func (g *Gatherer) onStart(t *bot.Task) {
	g.state = GatherState{Phase: PhaseIdle, Since: t.Now()}
	t.Message(fmt.Sprintf("%s started! Looking for %s %v.", g.profile.Name, g.profile.Noun, g.profile.ObjectIDs))
	if g.profile.DropWhenFull {
		t.Message("Products will be dropped when inventory is full.")
	} else {
		t.Message("Products will be banked when inventory is full.")
	}
}

func (g *Gatherer) onStop(t *bot.Task) {
	if g.api.IsBankOpen() {
		g.api.CloseBank()
	}
	t.Message(fmt.Sprintf("%s stopped. Total banked: %d", g.profile.Name, g.state.Banked))
}

func (g *Gatherer) setPhase(t *bot.Task, p Phase) {
	g.state.Phase = p
	g.state.Since = t.Now()
}

func (g *Gatherer) Step(t *bot.Task) (bot.Outcome, error) {
	a := g.api
	if g.opts.AutoRest && a.HandleFatigue() {
		t.Logf("fatigue reset")
	}
	if a.NeedsSleep() {
		t.Message("Fatigue is full! Please sleep.")
		return bot.Continue(5 * time.Second), nil
	}

	if a.IsBusy() || a.IsMoving() {
		if g.opts.StuckAfter > 0 && g.state.Phase != PhaseIdle && t.Now().Sub(g.state.Since) > g.opts.StuckAfter {
			t.Logf("stuck in %s for %s; resetting", g.state.Phase, t.Now().Sub(g.state.Since))
			g.state.HasTarget = false
			g.setPhase(t, PhaseIdle)
		}
		return bot.Continue(a.RandomDelay(300, 500)), nil
	}

	if a.InventoryFull() {
		if g.profile.DropWhenFull {
			return g.dropProducts(t), nil
		}
		return g.bankProducts(t), nil
	}

	if a.IsBankOpen() {
		a.CloseBank()
		return bot.Continue(a.RandomDelay(300, 500)), nil
	}
	return g.gather(t), nil
}

func (g *Gatherer) gather(t *bot.Task) bot.Outcome {
	a := g.api
	var (
		target botapi.Object
		ok     bool
	)
	if g.profile.Area != nil {
		target, ok = a.NearestObjectInArea(g.profile.ObjectIDs, *g.profile.Area)
	} else {
		target, ok = a.NearestObject(g.profile.ObjectIDs...)
	}
	if !ok {
		g.state.HasTarget = false
		t.Logf("No %s found nearby! Looking for IDs: %v", g.profile.Noun, g.profile.ObjectIDs)
		g.setPhase(t, PhaseIdle)
		return bot.Continue(a.RandomDelay(2000, 3000))
	}
	g.state.Target, g.state.HasTarget = target, true

	if a.DistanceToPos(target.Pos) > 1 {
		g.setPhase(t, PhaseWalking)
		a.WalkTo(target.Pos.X, target.Pos.Y)
		return bot.Continue(a.RandomDelay(600, 1000))
	}

	g.setPhase(t, PhaseWorking)
	a.InteractObject(target)
	return bot.Continue(a.RandomDelay(1500, 2500))
}

func (g *Gatherer) bankProducts(t *bot.Task) bot.Outcome {
	a := g.api
	g.setPhase(t, PhaseBanking)
	if !a.IsBankOpen() {
		a.OpenBank()
		return bot.Continue(a.RandomDelay(600, 800))
	}
	for _, id := range g.profile.ProductIDs {
		if n := a.InventoryCount(id); n > 0 {
			g.state.Banked += a.Deposit(id, n)
			return bot.Continue(a.RandomDelay(300, 500))
		}
	}
	// Full of something that is not ours; banking will not help.
	if a.InventoryFull() {
		a.CloseBank()
		t.Message("Inventory is full of other items.")
		return bot.StopBecause("inventory full")
	}
	a.CloseBank()
	g.setPhase(t, PhaseIdle)
	return bot.Continue(a.RandomDelay(300, 500))
}

func (g *Gatherer) dropProducts(t *bot.Task) bot.Outcome {
	a := g.api
	idx := a.FirstIndexOf(g.profile.ProductIDs...)
	if idx < 0 {
		t.Message("Inventory is full of other items.")
		return bot.StopBecause("inventory full")
	}
	if a.DropItem(idx) {
		g.state.Dropped++
	}
	return bot.Continue(a.RandomDelay(300, 500))
}
