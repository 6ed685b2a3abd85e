package scripts

import (
	"math/rand"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"tickbot.dev/internal/bot"
	"tickbot.dev/internal/botapi"
	"tickbot.dev/internal/sim/catalogs"
	"tickbot.dev/internal/sim/sched"
	"tickbot.dev/internal/sim/walk"
	"tickbot.dev/internal/sim/world"
)

const objectsJSON = `[
  {"id": 1, "name": "Tree", "skill": "woodcutting", "product": 14, "blocking": true, "xp": 25, "depletes": true, "respawn_ticks": 5},
  {"id": 100, "name": "Copper Rock", "skill": "mining", "product": 150, "blocking": true, "xp": 17, "depletes": true, "respawn_ticks": 5}
]`

const itemsJSON = `[
  {"id": 14, "name": "Logs"},
  {"id": 150, "name": "Copper Ore"},
  {"id": 20, "name": "Bones", "bury_xp": 4}
]`

type rig struct {
	w    *world.World
	clk  *sched.ManualClock
	api  *botapi.API
	env  *bot.Env
	sink *bot.MemorySink
}

func newRig(t *testing.T, layout string, capacity, actionTicks int) *rig {
	t.Helper()
	cats, err := catalogs.LoadFS(fstest.MapFS{
		"objects.json": {Data: []byte(objectsJSON)},
		"items.json":   {Data: []byte(itemsJSON)},
		"layout.json":  {Data: []byte(layout)},
	})
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	clk := sched.NewManualClock(time.Unix(1_700_000_000, 0))
	w, err := world.New(world.Config{
		TickRateHz:        5,
		Spawn:             walk.Point{X: 40, Y: 40},
		InventoryCapacity: capacity,
		ActionTicks:       actionTicks,
	}, cats, clk, nil)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	sink := &bot.MemorySink{}
	return &rig{
		w:    w,
		clk:  clk,
		sink: sink,
		api:  botapi.New(botapi.Deps{Player: w.Player(), World: w, Rand: rand.New(rand.NewSource(7))}),
		env:  &bot.Env{Sched: w.Scheduler(), Sink: sink, Chat: w.Player(), Timing: bot.DefaultTiming()},
	}
}

func (r *rig) run(d time.Duration) {
	for elapsed := time.Duration(0); elapsed < d; elapsed += r.w.TickInterval() {
		r.w.StepOnce(r.clk.Advance(r.w.TickInterval()))
	}
}

func (r *rig) sawMessage(sub string) bool {
	for _, m := range r.w.Player().Messages() {
		if strings.Contains(m, sub) {
			return true
		}
	}
	return false
}

func TestGatherer_ChopsAndBanks(t *testing.T) {
	r := newRig(t, `{"objects": [{"id": 1, "x": 46, "y": 40}, {"id": 1, "x": 46, "y": 44}]}`, 2, 2)
	task, g := NewGatherTask(r.env, r.api, Woodcutting("normal"), Options{StuckAfter: 15 * time.Second})
	task.Start()
	if !r.sawMessage("Woodcutting Bot started!") {
		t.Fatalf("missing start message: %v", r.w.Player().Messages())
	}
	r.run(90 * time.Second)

	if !task.IsRunning() {
		t.Fatalf("task stopped: reason=%q err=%v", task.StopReason(), task.LastError())
	}
	if g.State().Banked < 2 || r.api.BankCount(14) != g.State().Banked {
		t.Fatalf("banked=%d bank=%d", g.State().Banked, r.api.BankCount(14))
	}
	if r.api.XP("woodcutting") == 0 {
		t.Fatalf("no woodcutting xp")
	}
	task.Stop()
	if r.api.IsBankOpen() {
		t.Fatalf("bank left open after stop")
	}
	if !r.sawMessage("Total banked:") {
		t.Fatalf("missing stop summary")
	}
}

func TestGatherer_DropsWhenConfigured(t *testing.T) {
	r := newRig(t, `{"objects": [{"id": 100, "x": 42, "y": 40}]}`, 1, 2)
	p := Mining("copper")
	p.DropWhenFull = true
	task, g := NewGatherTask(r.env, r.api, p, Options{})
	task.Start()
	r.run(60 * time.Second)

	if g.State().Dropped == 0 {
		t.Fatalf("nothing dropped: state=%+v", g.State())
	}
	if r.api.BankCount(150) != 0 {
		t.Fatalf("banked ore with DropWhenFull")
	}
	found := false
	for _, it := range r.w.GroundItems() {
		if it.ID == 150 {
			found = true
		}
	}
	if !found {
		t.Fatalf("no ore on the ground")
	}
}

func TestGatherer_NoTargetsKeepsPolling(t *testing.T) {
	r := newRig(t, `{}`, 2, 2)
	task, g := NewGatherTask(r.env, r.api, Woodcutting("oak"), Options{})
	task.Start()
	r.run(10 * time.Second)
	if !task.IsRunning() || g.State().Phase != PhaseIdle || g.State().HasTarget {
		t.Fatalf("running=%v state=%+v", task.IsRunning(), g.State())
	}
}

func TestGatherer_AreaLimitsSearch(t *testing.T) {
	r := newRig(t, `{"objects": [{"id": 1, "x": 42, "y": 40}, {"id": 1, "x": 60, "y": 60}]}`, 5, 2)
	p := Woodcutting("normal").WithArea(botapi.Area{MinX: 55, MaxX: 65, MinY: 55, MaxY: 65})
	task, g := NewGatherTask(r.env, r.api, p, Options{})
	task.Start()
	r.run(time.Second)
	if !g.State().HasTarget || g.State().Target.Pos != (walk.Point{X: 60, Y: 60}) {
		t.Fatalf("target=%+v", g.State())
	}
	g.SetArea(nil)
	if g.Profile().Area != nil {
		t.Fatalf("area not cleared")
	}
}

func TestGatherer_StuckResetsToIdle(t *testing.T) {
	// A very long action keeps the player working past StuckAfter.
	r := newRig(t, `{"objects": [{"id": 1, "x": 41, "y": 40}]}`, 5, 100)
	task, g := NewGatherTask(r.env, r.api, Woodcutting(""), Options{StuckAfter: 2 * time.Second})
	task.Start()
	r.run(3 * time.Second)
	if !r.api.IsBusy() {
		t.Fatalf("expected player to be working")
	}
	r.run(2 * time.Second)
	if g.State().Phase != PhaseIdle || g.State().HasTarget {
		t.Fatalf("state=%+v", g.State())
	}
}

func TestGatherer_NeedsSleepWaits(t *testing.T) {
	r := newRig(t, `{"objects": [{"id": 1, "x": 41, "y": 40}]}`, 5, 2)
	r.w.Player().SetFatigue(100)
	task, _ := NewGatherTask(r.env, r.api, Woodcutting(""), Options{})
	task.Start()
	r.run(2 * time.Second)
	if !r.sawMessage("Fatigue is full! Please sleep.") || r.api.InventoryCount(14) != 0 {
		t.Fatalf("messages=%v", r.w.Player().Messages())
	}

	r2 := newRig(t, `{"objects": [{"id": 1, "x": 41, "y": 40}]}`, 5, 2)
	r2.w.Player().SetFatigue(100)
	task2, _ := NewGatherTask(r2.env, r2.api, Woodcutting(""), Options{AutoRest: true})
	task2.Start()
	r2.run(5 * time.Second)
	if r2.api.InventoryCount(14) == 0 {
		t.Fatalf("AutoRest did not resume gathering")
	}
}

func TestBurier_BuriesGroundThenBankBones(t *testing.T) {
	r := newRig(t, `{"items": [{"id": 20, "x": 44, "y": 40}], "bank": [{"id": 20, "count": 2}]}`, 5, 2)
	task, b := NewBuryTask(r.env, r.api, Prayer())
	task.Start()
	r.run(60 * time.Second)

	if b.Buried() != 3 {
		t.Fatalf("buried=%d", b.Buried())
	}
	if r.api.XP("prayer") != 12 {
		t.Fatalf("xp=%d", r.api.XP("prayer"))
	}
	if len(r.w.GroundItems()) != 0 || r.api.BankCount(20) != 0 {
		t.Fatalf("bones left: ground=%v bank=%d", r.w.GroundItems(), r.api.BankCount(20))
	}
	if !r.sawMessage("Out of bones!") {
		t.Fatalf("no out-of-bones notice")
	}
	task.Stop()
	if !r.sawMessage("Total bones buried: 3") {
		t.Fatalf("messages=%v", r.w.Player().Messages())
	}
}

func TestProfiles(t *testing.T) {
	if p := Mining("addy"); p.Type != "adamantite" || p.ProductIDs[0] != 154 {
		t.Fatalf("addy=%+v", p)
	}
	if p := Fishing("whale"); p.Type != "net" || len(p.ProductIDs) != 2 {
		t.Fatalf("fallback=%+v", p)
	}
	if p := Fishing("Lobster"); p.Type != "cage" {
		t.Fatalf("lobster=%+v", p)
	}
	if p := Woodcutting(""); p.Type != "normal" || p.Name != "Woodcutting Bot" {
		t.Fatalf("default=%+v", p)
	}
	a := Woodcutting("yew")
	a.ObjectIDs[0] = -1
	if Woodcutting("yew").ObjectIDs[0] != 309 {
		t.Fatalf("profile shares preset slices")
	}
	if _, ok := Location("SeersVillage"); !ok {
		t.Fatalf("seersvillage alias")
	}
	if _, ok := Location("atlantis"); ok {
		t.Fatalf("unknown location found")
	}
}
