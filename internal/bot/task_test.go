package bot

import (
	"errors"
	"testing"
	"time"

	"tickbot.dev/internal/sim/sched"
)

var epoch = time.Unix(1_700_000_000, 0)

type harness struct {
	clk  *sched.ManualClock
	s    *sched.Scheduler
	sink *MemorySink
	chat *chatLog
	env  *Env
}

type chatLog struct{ lines []string }

func (c *chatLog) SendMessage(text string) { c.lines = append(c.lines, text) }

func newHarness() *harness {
	clk := sched.NewManualClock(epoch)
	s := sched.New(clk, nil)
	h := &harness{clk: clk, s: s, sink: &MemorySink{}, chat: &chatLog{}}
	h.env = &Env{Sched: s, Sink: h.sink, Chat: h.chat, Timing: DefaultTiming()}
	return h
}

// advance moves the clock in 100ms ticks and steps the scheduler each time.
func (h *harness) advance(d time.Duration) {
	for elapsed := time.Duration(0); elapsed < d; elapsed += 100 * time.Millisecond {
		h.s.Step(h.clk.Advance(100 * time.Millisecond))
	}
}

func counting(delay time.Duration) (BehaviorFunc, *int) {
	n := 0
	return func(t *Task) (Outcome, error) {
		n++
		return Continue(delay), nil
	}, &n
}

func TestStart_ArmsAfterInitialDelay(t *testing.T) {
	h := newHarness()
	b, n := counting(200 * time.Millisecond)
	task := NewTask(h.env, "Counter", b, Hooks{})
	task.Start()
	if !task.IsRunning() || task.IsPaused() {
		t.Fatalf("state after start: running=%v paused=%v", task.IsRunning(), task.IsPaused())
	}
	h.s.Step(h.clk.Now())
	if *n != 0 {
		t.Fatalf("stepped before initial delay")
	}
	h.advance(100 * time.Millisecond)
	if *n != 1 || task.Iterations() != 1 {
		t.Fatalf("n=%d iterations=%d", *n, task.Iterations())
	}
	h.advance(400 * time.Millisecond)
	if *n != 3 {
		t.Fatalf("n=%d want 3", *n)
	}
}

func TestStart_IsIdempotent(t *testing.T) {
	h := newHarness()
	b, _ := counting(100 * time.Millisecond)
	task := NewTask(h.env, "Counter", b, Hooks{})
	task.Start()
	h.advance(300 * time.Millisecond)

	iters, started, run := task.Iterations(), task.StartTime(), task.RunID()
	h.clk.Advance(time.Second)
	task.Start()
	if task.Iterations() != iters || !task.StartTime().Equal(started) || task.RunID() != run {
		t.Fatalf("second Start changed state")
	}
	if h.s.Pending() != 1 {
		t.Fatalf("second Start armed another binding: pending=%d", h.s.Pending())
	}
}

func TestStop_NoopWhenNotRunning(t *testing.T) {
	h := newHarness()
	stops := 0
	task := NewTask(h.env, "Idle", BehaviorFunc(func(*Task) (Outcome, error) { return Continue(0), nil }), Hooks{
		OnStop: func(*Task) { stops++ },
	})
	task.Stop()
	if stops != 0 || len(h.sink.Events) != 0 {
		t.Fatalf("stop on idle task had effects: stops=%d events=%v", stops, h.sink.Kinds())
	}
	task.Start()
	task.Stop()
	task.Stop()
	if stops != 1 {
		t.Fatalf("stops=%d", stops)
	}
	if h.s.Pending() != 0 {
		t.Fatalf("stopped task still armed")
	}
}

func TestPauseResume_PreservesProgress(t *testing.T) {
	h := newHarness()
	b, n := counting(100 * time.Millisecond)
	task := NewTask(h.env, "Counter", b, Hooks{})
	task.Start()
	h.advance(500 * time.Millisecond)

	iters, started := task.Iterations(), task.StartTime()
	task.Pause()
	h.advance(time.Second)
	if *n != int(iters) {
		t.Fatalf("stepped while paused: n=%d iters=%d", *n, iters)
	}
	if h.s.Pending() != 1 {
		t.Fatalf("paused task should keep polling, pending=%d", h.s.Pending())
	}
	task.Resume()
	if task.Iterations() != iters || !task.StartTime().Equal(started) {
		t.Fatalf("pause/resume reset progress")
	}
	h.advance(time.Second)
	if task.Iterations() <= iters {
		t.Fatalf("did not resume stepping")
	}
}

func TestPause_OnlyWhileRunning(t *testing.T) {
	h := newHarness()
	task := NewTask(h.env, "Idle", BehaviorFunc(func(*Task) (Outcome, error) { return Continue(0), nil }), Hooks{})
	task.Pause()
	if task.IsPaused() {
		t.Fatalf("paused while idle")
	}
	task.Start()
	task.TogglePause()
	if !task.IsPaused() {
		t.Fatalf("toggle did not pause")
	}
	task.TogglePause()
	if task.IsPaused() {
		t.Fatalf("toggle did not resume")
	}
}

func TestPauseResume_RepeatIsQuiet(t *testing.T) {
	h := newHarness()
	task := NewTask(h.env, "Idle", BehaviorFunc(func(*Task) (Outcome, error) { return Continue(0), nil }), Hooks{})
	task.Start()
	task.Resume()
	task.Pause()
	task.Pause()
	task.Resume()
	task.Resume()
	var got []EventKind
	for _, k := range h.sink.Kinds() {
		if k == EventPause || k == EventResume {
			got = append(got, k)
		}
	}
	if len(got) != 2 || got[0] != EventPause || got[1] != EventResume {
		t.Fatalf("pause/resume events=%v", got)
	}
}

func TestStep_NegativeDelayTerminates(t *testing.T) {
	h := newHarness()
	steps := 0
	task := NewTask(h.env, "Once", BehaviorFunc(func(*Task) (Outcome, error) {
		steps++
		return Delay(-1), nil
	}), Hooks{})
	task.Start()
	h.advance(time.Second)
	if task.IsRunning() {
		t.Fatalf("task still running after -1")
	}
	if steps != 1 {
		t.Fatalf("steps=%d, binding re-armed", steps)
	}
	if h.s.Pending() != 0 {
		t.Fatalf("pending=%d", h.s.Pending())
	}
	if task.StopReason() != "finished" {
		t.Fatalf("reason=%q", task.StopReason())
	}
}

func TestStep_NegativeContinueLiteralTerminates(t *testing.T) {
	h := newHarness()
	steps := 0
	task := NewTask(h.env, "Literal", BehaviorFunc(func(*Task) (Outcome, error) {
		steps++
		return Outcome{Kind: KindContinue, Delay: -time.Millisecond}, nil
	}), Hooks{})
	task.Start()
	h.advance(500 * time.Millisecond)
	if task.IsRunning() || steps != 1 || h.s.Pending() != 0 {
		t.Fatalf("running=%v steps=%d pending=%d", task.IsRunning(), steps, h.s.Pending())
	}
	if task.StopReason() != "finished" {
		t.Fatalf("reason=%q", task.StopReason())
	}
}

func TestStep_ErrorStopsTaskButNotScheduler(t *testing.T) {
	h := newHarness()
	bad := NewTask(h.env, "Bad", BehaviorFunc(func(t *Task) (Outcome, error) {
		if t.Iterations() == 3 {
			return Outcome{}, errors.New("no trees found nearby")
		}
		return Continue(100 * time.Millisecond), nil
	}), Hooks{})
	other := 0
	h.s.Add(0, func() (time.Duration, bool) { other++; return 100 * time.Millisecond, true })

	bad.Start()
	h.advance(time.Second)
	if bad.IsRunning() {
		t.Fatalf("faulted task still running")
	}
	if bad.Iterations() != 3 {
		t.Fatalf("iterations=%d", bad.Iterations())
	}
	if bad.LastError() == nil || bad.StopReason() != "fault" {
		t.Fatalf("err=%v reason=%q", bad.LastError(), bad.StopReason())
	}
	if other < 9 {
		t.Fatalf("other work starved: %d", other)
	}
	if len(h.chat.lines) == 0 {
		t.Fatalf("no stopped-due-to-error notice")
	}
}

func TestStep_PanicIsContained(t *testing.T) {
	h := newHarness()
	task := NewTask(h.env, "Panics", BehaviorFunc(func(*Task) (Outcome, error) {
		var m map[string]int
		m["x"] = 1
		return Continue(0), nil
	}), Hooks{})
	task.Start()
	h.advance(200 * time.Millisecond)
	if task.IsRunning() {
		t.Fatalf("panicking task still running")
	}
	if h.s.Faults() != 0 {
		t.Fatalf("panic escaped to scheduler")
	}
	kinds := h.sink.Kinds()
	want := []EventKind{EventStart, EventFault, EventStop}
	if len(kinds) != len(want) {
		t.Fatalf("events=%v", kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("events=%v want %v", kinds, want)
		}
	}
}

func TestStep_SelfStopDoesNotRearm(t *testing.T) {
	h := newHarness()
	steps := 0
	task := NewTask(h.env, "Quitter", BehaviorFunc(func(t *Task) (Outcome, error) {
		steps++
		t.Stop()
		return Continue(0), nil
	}), Hooks{})
	task.Start()
	h.advance(time.Second)
	if steps != 1 || task.IsRunning() || h.s.Pending() != 0 {
		t.Fatalf("steps=%d running=%v pending=%d", steps, task.IsRunning(), h.s.Pending())
	}
}

func TestStep_BlockedUsesRetryDelay(t *testing.T) {
	h := newHarness()
	h.env.Timing.BlockedRetry = 300 * time.Millisecond
	steps := 0
	task := NewTask(h.env, "Waiter", BehaviorFunc(func(*Task) (Outcome, error) {
		steps++
		return Blocked(), nil
	}), Hooks{})
	task.Start()
	h.advance(100 * time.Millisecond)
	h.advance(600 * time.Millisecond)
	if steps != 3 {
		t.Fatalf("steps=%d want 3", steps)
	}
}

func TestStop_ThenRestartStartsFreshRun(t *testing.T) {
	h := newHarness()
	b, _ := counting(100 * time.Millisecond)
	task := NewTask(h.env, "Counter", b, Hooks{})
	task.Start()
	h.advance(500 * time.Millisecond)
	first := task.RunID()
	task.Stop()
	h.clk.Advance(time.Minute)
	task.Start()
	if task.Iterations() != 0 || task.RunID() == first || task.Runtime() != 0 {
		t.Fatalf("restart kept old run: iters=%d runtime=%v", task.Iterations(), task.Runtime())
	}
	h.advance(300 * time.Millisecond)
	if h.s.Pending() != 1 {
		t.Fatalf("pending=%d", h.s.Pending())
	}
}

func TestOnStartMayStopRun(t *testing.T) {
	h := newHarness()
	task := NewTask(h.env, "Guarded", BehaviorFunc(func(*Task) (Outcome, error) { return Continue(0), nil }), Hooks{
		OnStart: func(t *Task) { t.Stop() },
	})
	task.Start()
	if task.IsRunning() || h.s.Pending() != 0 {
		t.Fatalf("running=%v pending=%d", task.IsRunning(), h.s.Pending())
	}
}

func TestRuntime(t *testing.T) {
	h := newHarness()
	task := NewTask(h.env, "Clock", BehaviorFunc(func(*Task) (Outcome, error) { return Continue(time.Second), nil }), Hooks{})
	if task.Runtime() != 0 {
		t.Fatalf("runtime before start=%v", task.Runtime())
	}
	task.Start()
	h.clk.Advance(time.Hour + 2*time.Minute + 3*time.Second)
	if got := task.RuntimeFormatted(); got != "01:02:03" {
		t.Fatalf("formatted=%q", got)
	}
	task.Stop()
	h.clk.Advance(time.Minute)
	if got := task.RuntimeFormatted(); got != "01:03:03" {
		t.Fatalf("after stop formatted=%q, want runtime since last start", got)
	}
}
