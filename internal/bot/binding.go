package bot

import (
	"time"

	"tickbot.dev/internal/sim/sched"
)

// binding registers a task's step as self-rescheduling work on the tick
// scheduler. One binding lives for one run; interrupt makes it inert for good.
type binding struct {
	task   *Task
	handle *sched.Handle
	inert  bool
}

func newBinding(t *Task) *binding {
	return &binding{task: t}
}

func (b *binding) arm(delay time.Duration) {
	if b.inert {
		return
	}
	b.handle = b.task.env.Sched.Add(delay, b.fire)
}

func (b *binding) interrupt() {
	b.inert = true
	b.handle.Interrupt()
}

func (b *binding) fire() (time.Duration, bool) {
	if b.inert {
		return 0, false
	}
	t := b.task
	if !t.running {
		b.interrupt()
		return 0, false
	}
	if t.paused {
		return t.env.Timing.PausePoll, true
	}

	out := t.runStep()
	if b.inert {
		// The step stopped its own task.
		return 0, false
	}
	switch out.Kind {
	case KindStop:
		t.stopWith(out.Reason)
		return 0, false
	case KindBlocked:
		if out.Delay > 0 {
			return out.Delay, true
		}
		return t.env.Timing.BlockedRetry, true
	default:
		if out.Delay < 0 {
			t.stopWith("finished")
			return 0, false
		}
		return out.Delay, true
	}
}
