package bot

import (
	"strings"
	"testing"
	"time"
)

func idleBehavior() BehaviorFunc {
	return func(*Task) (Outcome, error) { return Continue(100 * time.Millisecond), nil }
}

func newRegistryWith(h *harness, names ...string) *Registry {
	r := NewRegistry(nil, h.sink)
	for _, n := range names {
		r.Register(NewTask(h.env, n, idleBehavior(), Hooks{}))
	}
	return r
}

func TestStartTask_StopsPreviouslyActive(t *testing.T) {
	h := newHarness()
	r := newRegistryWith(h, "Woodcutting", "Fishing")
	if !r.StartTask("Woodcutting") {
		t.Fatalf("start woodcutting")
	}
	h.advance(300 * time.Millisecond)
	if !r.StartTask("Fishing") {
		t.Fatalf("start fishing")
	}
	wc, fish := r.Get("woodcutting"), r.Get("FISHING")
	if wc.IsRunning() {
		t.Fatalf("Woodcutting still running")
	}
	if !fish.IsRunning() {
		t.Fatalf("Fishing not running")
	}
	if r.Active() != fish {
		t.Fatalf("active=%v", r.Active())
	}
	h.advance(time.Second)
	if wc.Iterations() != 3 {
		t.Fatalf("stopped task kept stepping: iterations=%d", wc.Iterations())
	}
	if h.s.Pending() != 1 {
		t.Fatalf("pending=%d", h.s.Pending())
	}
}

func TestStartTask_ActiveExclusivityAcrossPairs(t *testing.T) {
	names := []string{"a", "b", "c"}
	for _, a := range names {
		for _, b := range names {
			if a == b {
				continue
			}
			h := newHarness()
			r := newRegistryWith(h, names...)
			r.StartTask(a)
			r.StartTask(b)
			if r.Get(a).IsRunning() || !r.Get(b).IsRunning() {
				t.Fatalf("start(%s) start(%s): a=%v b=%v", a, b, r.Get(a).IsRunning(), r.Get(b).IsRunning())
			}
			running := 0
			for _, task := range r.All() {
				if task.IsRunning() {
					running++
				}
			}
			if running != 1 {
				t.Fatalf("running=%d", running)
			}
		}
	}
}

func TestStartTask_SameTaskRestarts(t *testing.T) {
	h := newHarness()
	r := newRegistryWith(h, "Mining")
	r.StartTask("mining")
	h.advance(500 * time.Millisecond)
	first := r.Get("mining").RunID()
	r.StartTask("Mining")
	m := r.Get("mining")
	if !m.IsRunning() || m.RunID() == first || m.Iterations() != 0 {
		t.Fatalf("restart: running=%v iterations=%d", m.IsRunning(), m.Iterations())
	}
}

func TestStartTask_UnknownName(t *testing.T) {
	h := newHarness()
	r := newRegistryWith(h, "Mining")
	r.StartTask("mining")
	if r.StartTask("nope") {
		t.Fatalf("unknown bot started")
	}
	if !r.Get("mining").IsRunning() {
		t.Fatalf("miss stopped the active bot")
	}
}

func TestUnregister_StopsRunningAndClearsActive(t *testing.T) {
	h := newHarness()
	r := newRegistryWith(h, "Prayer")
	r.StartTask("prayer")
	p := r.Get("prayer")
	if !r.Unregister("PRAYER") {
		t.Fatalf("unregister failed")
	}
	if p.IsRunning() || r.Active() != nil || r.Has("prayer") {
		t.Fatalf("running=%v active=%v has=%v", p.IsRunning(), r.Active(), r.Has("prayer"))
	}
	if r.Unregister("prayer") {
		t.Fatalf("second unregister reported success")
	}
}

func TestStopTask(t *testing.T) {
	h := newHarness()
	r := newRegistryWith(h, "Cooking", "Smithing")
	if r.StopTask("cooking") {
		t.Fatalf("stopped an idle task")
	}
	if r.StopTask("missing") {
		t.Fatalf("stopped a missing task")
	}
	r.StartTask("cooking")
	if !r.StopTask("Cooking") || r.Active() != nil {
		t.Fatalf("stop active failed: active=%v", r.Active())
	}
}

func TestStopAll(t *testing.T) {
	h := newHarness()
	r := newRegistryWith(h, "a", "b")
	r.Get("a").Start()
	r.StartTask("b")
	r.StopAll()
	for _, task := range r.All() {
		if task.IsRunning() {
			t.Fatalf("%s still running", task.Name())
		}
	}
	if r.Active() != nil || h.s.Pending() != 0 {
		t.Fatalf("active=%v pending=%d", r.Active(), h.s.Pending())
	}
}

func TestRegister_ReplaceLeavesOldRunUntilStopAll(t *testing.T) {
	h := newHarness()
	r := newRegistryWith(h, "Fishing")
	r.StartTask("fishing")
	old := r.Get("fishing")
	r.Register(NewTask(h.env, "fishing", idleBehavior(), Hooks{}))
	if r.Get("fishing") == old {
		t.Fatalf("entry not replaced")
	}
	if !old.IsRunning() {
		t.Fatalf("replaced task was stopped")
	}
	r.StopAll()
	if old.IsRunning() {
		t.Fatalf("StopAll missed replaced task")
	}
}

func TestRegister_ForgetsReplacedTaskOnceStopped(t *testing.T) {
	h := newHarness()
	r := newRegistryWith(h, "Fishing")
	r.StartTask("fishing")
	old := r.Get("fishing")
	r.Register(NewTask(h.env, "fishing", idleBehavior(), Hooks{}))
	if len(r.orphans) != 1 {
		t.Fatalf("orphans=%d", len(r.orphans))
	}
	old.Stop()
	r.Active()
	if len(r.orphans) != 0 {
		t.Fatalf("stopped replaced task still held: %d", len(r.orphans))
	}
	r.Register(NewTask(h.env, "Mining", idleBehavior(), Hooks{}))
	if len(r.orphans) != 0 {
		t.Fatalf("orphans=%d after register", len(r.orphans))
	}
}

func TestActive_ClearsWhenTaskEndsItself(t *testing.T) {
	h := newHarness()
	r := NewRegistry(nil, nil)
	r.Register(NewTask(h.env, "Once", BehaviorFunc(func(*Task) (Outcome, error) { return Stop(), nil }), Hooks{}))
	r.StartTask("once")
	if r.Active() == nil {
		t.Fatalf("no active task after start")
	}
	h.advance(200 * time.Millisecond)
	if r.Active() != nil {
		t.Fatalf("finished task still active")
	}
}

func TestPauseResumeToggle(t *testing.T) {
	h := newHarness()
	r := newRegistryWith(h, "Agility")
	if r.PauseTask("agility") {
		t.Fatalf("paused idle task")
	}
	r.StartTask("agility")
	if !r.PauseTask("agility") || !r.Get("agility").IsPaused() {
		t.Fatalf("pause failed")
	}
	if !r.ResumeTask("agility") || r.Get("agility").IsPaused() {
		t.Fatalf("resume failed")
	}
	if !r.TogglePauseTask("AGILITY") || !r.Get("agility").IsPaused() {
		t.Fatalf("toggle failed")
	}
	if r.ResumeTask("ghost") {
		t.Fatalf("resumed missing task")
	}
}

func TestStatusReport(t *testing.T) {
	h := newHarness()
	r := newRegistryWith(h, "Woodcutting", "Fishing")
	if !strings.Contains(NewRegistry(nil, nil).StatusReport(), "No bots registered.") {
		t.Fatalf("empty report mismatch")
	}
	r.StartTask("woodcutting")
	h.advance(300 * time.Millisecond)
	r.PauseTask("woodcutting")

	got := r.StatusReport()
	for _, want := range []string{
		"=== Bot Status Report ===",
		"- Fishing: STOPPED\n",
		"- Woodcutting: PAUSED (Runtime: 00:00:00, Iterations: 3)",
		"Active Bot: Woodcutting",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("report missing %q:\n%s", want, got)
		}
	}
	if names := r.Names(); len(names) != 2 || names[0] != "fishing" || names[1] != "woodcutting" {
		t.Fatalf("names=%v", names)
	}
}
