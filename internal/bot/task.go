// Package bot runs scripted behaviours on the host simulation's tick
// scheduler.
//
// A Task wraps one Behavior with running/paused state and re-arms itself on
// the scheduler after every step. Steps run on the simulation goroutine and
// must not block. Errors and panics from a step stop the task; they never
// reach the scheduler.
package bot

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"tickbot.dev/internal/sim/sched"
)

// Behavior is the re-entrant tick logic of a task.
type Behavior interface {
	Step(t *Task) (Outcome, error)
}

type BehaviorFunc func(t *Task) (Outcome, error)

func (f BehaviorFunc) Step(t *Task) (Outcome, error) { return f(t) }

// Hooks run on lifecycle transitions, after the state change.
type Hooks struct {
	OnStart func(t *Task)
	OnStop  func(t *Task)
}

// Messenger delivers in-game text to the controlled player.
type Messenger interface {
	SendMessage(text string)
}

type Timing struct {
	InitialDelay time.Duration
	PausePoll    time.Duration
	BlockedRetry time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		InitialDelay: 100 * time.Millisecond,
		PausePoll:    200 * time.Millisecond,
		BlockedRetry: 400 * time.Millisecond,
	}
}

// Env is what every task shares: the scheduler it arms on and where it
// reports.
type Env struct {
	Sched  *sched.Scheduler
	Log    *log.Logger
	Sink   EventSink
	Chat   Messenger
	Timing Timing
}

func (e *Env) now() time.Time {
	if e.Sched != nil {
		return e.Sched.Now()
	}
	return time.Now()
}

type Task struct {
	name     string
	behavior Behavior
	hooks    Hooks
	env      *Env

	running    bool
	paused     bool
	startTime  time.Time
	iterations uint64
	runID      string
	lastErr    error
	stopReason string

	binding *binding
}

func NewTask(env *Env, name string, b Behavior, hooks Hooks) *Task {
	if env == nil {
		env = &Env{}
	}
	if env.Timing == (Timing{}) {
		env.Timing = DefaultTiming()
	}
	return &Task{name: name, behavior: b, hooks: hooks, env: env}
}

func (t *Task) Name() string { return t.name }

// Start begins a run. It is a no-op if the task is already running.
func (t *Task) Start() {
	if t.running {
		t.Logf("Bot is already running!")
		return
	}
	if t.env.Sched == nil {
		t.Logf("no scheduler; cannot start")
		return
	}
	t.running = true
	t.paused = false
	t.startTime = t.env.now()
	t.iterations = 0
	t.runID = uuid.NewString()
	t.lastErr = nil
	t.stopReason = ""

	t.emit(EventStart, "")
	t.Logf("Bot started!")
	if t.hooks.OnStart != nil {
		t.hooks.OnStart(t)
	}
	if !t.running {
		// OnStart stopped the run.
		return
	}
	t.binding = newBinding(t)
	t.binding.arm(t.env.Timing.InitialDelay)
}

// Stop ends the run. It is a no-op if the task is not running and is safe to
// call from inside the task's own step.
func (t *Task) Stop() { t.stopWith("stopped") }

func (t *Task) stopWith(reason string) {
	if !t.running {
		return
	}
	t.running = false
	t.stopReason = reason
	if t.binding != nil {
		t.binding.interrupt()
		t.binding = nil
	}
	t.emit(EventStop, reason)
	if t.hooks.OnStop != nil {
		t.hooks.OnStop(t)
	}
	t.Logf("Bot stopped!")
}

func (t *Task) Pause() {
	if !t.running || t.paused {
		return
	}
	t.paused = true
	t.emit(EventPause, "")
	t.Logf("Bot paused")
}

func (t *Task) Resume() {
	if !t.running || !t.paused {
		return
	}
	t.paused = false
	t.emit(EventResume, "")
	t.Logf("Bot resumed")
}

func (t *Task) TogglePause() {
	if t.paused {
		t.Resume()
	} else {
		t.Pause()
	}
}

func (t *Task) IsRunning() bool      { return t.running }
func (t *Task) IsPaused() bool       { return t.paused }
func (t *Task) Iterations() uint64   { return t.iterations }
func (t *Task) StartTime() time.Time { return t.startTime }
func (t *Task) RunID() string        { return t.runID }
func (t *Task) LastError() error     { return t.lastErr }
func (t *Task) StopReason() string   { return t.stopReason }

// Runtime is the time elapsed since the last Start, zero if never started.
func (t *Task) Runtime() time.Duration {
	if t.startTime.IsZero() {
		return 0
	}
	return t.env.now().Sub(t.startTime)
}

// RuntimeFormatted renders Runtime as HH:MM:SS.
func (t *Task) RuntimeFormatted() string {
	return FormatRuntime(t.Runtime())
}

func FormatRuntime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}

func (t *Task) Env() *Env { return t.env }

// Now is the scheduler clock.
func (t *Task) Now() time.Time { return t.env.now() }

// Logf writes to the task log as "[name] message".
func (t *Task) Logf(format string, args ...any) {
	if t.env.Log == nil {
		return
	}
	t.env.Log.Printf("[%s] %s", t.name, fmt.Sprintf(format, args...))
}

// Message shows text to the player in-game.
func (t *Task) Message(text string) {
	if t.env.Chat == nil {
		return
	}
	t.env.Chat.SendMessage("@cya@[Bot] @whi@" + text)
}

// runStep calls the behaviour once. Any error or panic becomes a stop
// outcome tagged "fault".
func (t *Task) runStep() (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			t.fault(fmt.Errorf("panic: %v", r))
			out = StopBecause("fault")
		}
	}()
	t.iterations++
	o, err := t.behavior.Step(t)
	if err != nil {
		t.fault(err)
		return StopBecause("fault")
	}
	return o
}

func (t *Task) fault(err error) {
	t.lastErr = err
	t.Logf("Error in bot loop: %v", err)
	t.emit(EventFault, err.Error())
	t.Message("Bot " + t.name + " stopped due to an error.")
}

func (t *Task) emit(kind EventKind, reason string) {
	if t.env.Sink == nil {
		return
	}
	t.env.Sink.Record(Event{
		Time:       t.env.now(),
		Task:       t.name,
		RunID:      t.runID,
		Kind:       kind,
		Reason:     reason,
		Iterations: t.iterations,
		RuntimeMs:  t.Runtime().Milliseconds(),
	})
}
