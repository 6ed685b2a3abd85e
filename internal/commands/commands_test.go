package commands

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"tickbot.dev/internal/bot"
	"tickbot.dev/internal/botapi"
	"tickbot.dev/internal/protocol"
	"tickbot.dev/internal/sim/catalogs"
	"tickbot.dev/internal/sim/sched"
	"tickbot.dev/internal/sim/tuning"
	"tickbot.dev/internal/sim/world"
)

type fixture struct {
	h   *Handler
	reg *bot.Registry
	w   *world.World
	clk *sched.ManualClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cats, err := catalogs.Default()
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	clk := sched.NewManualClock(time.Unix(1_700_000_000, 0))
	w, err := world.New(world.ConfigFromTuning(tuning.Defaults()), cats, clk, nil)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	reg := bot.NewRegistry(nil, nil)
	api := botapi.New(botapi.Deps{Player: w.Player(), World: w, Rand: rand.New(rand.NewSource(3))})
	env := &bot.Env{Sched: w.Scheduler(), Chat: w.Player(), Timing: bot.DefaultTiming()}
	return &fixture{
		h:   New(Config{Registry: reg, API: api, Env: env}),
		reg: reg,
		w:   w,
		clk: clk,
	}
}

func (f *fixture) run(d time.Duration) {
	for elapsed := time.Duration(0); elapsed < d; elapsed += f.w.TickInterval() {
		f.w.StepOnce(f.clk.Advance(f.w.TickInterval()))
	}
}

func joined(r Reply) string { return strings.Join(r.Lines, "\n") }

func mustOK(t *testing.T, r Reply, want string) {
	t.Helper()
	if !r.OK {
		t.Fatalf("reply failed (%s):\n%s", r.Code, joined(r))
	}
	if !strings.Contains(joined(r), want) {
		t.Fatalf("reply missing %q:\n%s", want, joined(r))
	}
}

func mustFail(t *testing.T, r Reply, code string) {
	t.Helper()
	if r.OK || r.Code != code {
		t.Fatalf("ok=%v code=%q want %q:\n%s", r.OK, r.Code, code, joined(r))
	}
}

func TestHandle_UnknownAndEmpty(t *testing.T) {
	f := newFixture(t)
	mustFail(t, f.h.Handle("::dance"), protocol.ErrBadRequest)
	mustFail(t, f.h.Handle("   "), protocol.ErrBadRequest)
	mustOK(t, f.h.Handle("bot"), "=== Bot Commands ===")
	mustOK(t, f.h.Handle("bot whatever"), "::stopbot")
}

func TestList_EmptyThenRegistered(t *testing.T) {
	f := newFixture(t)
	mustOK(t, f.h.Handle("bot list"), "No bots registered.")
	mustOK(t, f.h.Handle("wc oak"), "Started oak woodcutting!")
	r := f.h.Handle("::bot list")
	mustOK(t, r, "@whi@- Woodcutting Bot: @gre@RUNNING")
	if r.Lines[0] != "@cya@=== Registered Bots ===" {
		t.Fatalf("header=%q", r.Lines[0])
	}
}

func TestQuickStart_ReplacesActive(t *testing.T) {
	f := newFixture(t)
	mustOK(t, f.h.Handle("woodcut"), "Started normal woodcutting!")
	f.run(time.Second)
	wc := f.reg.Get("woodcutting bot")
	if wc == nil || !wc.IsRunning() {
		t.Fatalf("woodcutting not running")
	}
	mustOK(t, f.h.Handle("mine iron"), "Started iron mining bot!")
	if wc.IsRunning() {
		t.Fatalf("woodcutting survived quick start")
	}
	if a := f.reg.Active(); a == nil || a.Name() != "Mining Bot" {
		t.Fatalf("active=%v", a)
	}
	mustOK(t, f.h.Handle("fish lobster"), "Started cage fishing bot!")
	mustOK(t, f.h.Handle("mine bogus"), "Started copper mining bot!")
	running := 0
	for _, task := range f.reg.All() {
		if task.IsRunning() {
			running++
		}
	}
	if running != 1 {
		t.Fatalf("running=%d", running)
	}
}

func TestWoodcut_Location(t *testing.T) {
	f := newFixture(t)
	mustOK(t, f.h.Handle("wc willow varrock"), "Started willow woodcutting at varrock!")
	a := f.h.Gatherer("Woodcutting Bot").Profile().Area
	if a == nil || a.MinX != 100 || a.MaxY != 550 {
		t.Fatalf("area=%+v", a)
	}
	r := f.h.Handle("wc normal atlantis")
	mustOK(t, r, "Unknown location: atlantis")
	if f.h.Gatherer("Woodcutting Bot").Profile().Area != nil {
		t.Fatalf("unknown location set an area")
	}
}

func TestBotStartStop(t *testing.T) {
	f := newFixture(t)
	mustFail(t, f.h.Handle("bot start"), protocol.ErrBadRequest)
	mustFail(t, f.h.Handle("bot start nobody"), protocol.ErrInvalidTarget)
	mustOK(t, f.h.Handle("bot stop"), "No active bot to stop.")

	f.h.Handle("mine")
	mustOK(t, f.h.Handle("bot stop"), "Stopped active bot: Mining Bot")
	mustFail(t, f.h.Handle("bot stop mining bot"), protocol.ErrInvalidTarget)
	mustOK(t, f.h.Handle("bot start Mining Bot"), "Started bot: Mining Bot")
	if !f.reg.Get("mining bot").IsRunning() {
		t.Fatalf("restart failed")
	}
	mustOK(t, f.h.Handle("bot stop mining bot"), "Stopped bot: mining bot")
}

func TestBotPauseResume(t *testing.T) {
	f := newFixture(t)
	mustFail(t, f.h.Handle("bot pause"), protocol.ErrConflict)
	f.h.Handle("fish")
	task := f.reg.Get("fishing bot")

	mustOK(t, f.h.Handle("bot pause"), "Bot paused: Fishing Bot")
	if !task.IsPaused() {
		t.Fatalf("not paused")
	}
	mustOK(t, f.h.Handle("bot list"), "@yel@PAUSED")
	mustOK(t, f.h.Handle("bot pause"), "Bot resumed: Fishing Bot")
	mustOK(t, f.h.Handle("bot pause fishing bot"), "Bot paused")
	mustOK(t, f.h.Handle("bot resume fishing bot"), "Bot resumed")
	if task.IsPaused() {
		t.Fatalf("still paused")
	}
	mustFail(t, f.h.Handle("bot resume ghost"), protocol.ErrInvalidTarget)
}

func TestBotStatus(t *testing.T) {
	f := newFixture(t)
	mustOK(t, f.h.Handle("bot status"), "No active bot.")
	f.h.Handle("wc")
	f.run(2 * time.Second)
	r := f.h.Handle("bot status")
	mustOK(t, r, "@whi@Name: @gre@Woodcutting Bot")
	mustOK(t, r, "@whi@Runtime: @gre@00:00:02")
	if len(r.Lines) != 5 {
		t.Fatalf("lines=%v", r.Lines)
	}
	mustOK(t, f.h.Handle("bot report"), "Active Bot: Woodcutting Bot")
}

func TestBotArea(t *testing.T) {
	f := newFixture(t)
	mustFail(t, f.h.Handle("botarea varrock"), protocol.ErrConflict)
	f.h.Handle("prayer")
	mustFail(t, f.h.Handle("botarea varrock"), protocol.ErrConflict)

	f.h.Handle("wc")
	g := f.h.Gatherer("woodcutting bot")
	mustOK(t, f.h.Handle("botarea"), "Current area: Unbounded")
	mustOK(t, f.h.Handle("botarea seersvillage"), "Area set to: SEERSVILLAGE")
	if a := g.Profile().Area; a == nil || a.MinX != 480 {
		t.Fatalf("area=%+v", a)
	}
	mustOK(t, f.h.Handle("botarea"), "Current area: 480-550, 420-480")
	mustFail(t, f.h.Handle("botarea narnia"), protocol.ErrInvalidTarget)
	mustFail(t, f.h.Handle("botarea 1 2 3"), protocol.ErrBadRequest)
	mustFail(t, f.h.Handle("botarea a b c d"), protocol.ErrBadRequest)
	mustOK(t, f.h.Handle("botarea 100 130 410 440"), "Area set: 100-130, 410-440")
	if a := g.Profile().Area; a == nil || *a != (botapi.Area{MinX: 100, MaxX: 130, MinY: 410, MaxY: 440}) {
		t.Fatalf("area=%+v", a)
	}
	mustOK(t, f.h.Handle("botarea CLEAR"), "Area bounds cleared.")
	if g.Profile().Area != nil {
		t.Fatalf("area not cleared")
	}
}

func TestPrayerAndStopBot(t *testing.T) {
	f := newFixture(t)
	f.h.Handle("wc")
	mustOK(t, f.h.Handle("pray"), "Started prayer bot! Will bury bones.")
	if a := f.reg.Active(); a == nil || a.Name() != "Prayer Bot" {
		t.Fatalf("active=%v", a)
	}
	if f.reg.Get("woodcutting bot").IsRunning() {
		t.Fatalf("woodcutting still running")
	}
	mustOK(t, f.h.Handle("stopbot"), "All bots stopped.")
	if f.reg.Active() != nil {
		t.Fatalf("active after stopbot")
	}
}
