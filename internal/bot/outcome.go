package bot

import (
	"fmt"
	"time"
)

type OutcomeKind uint8

const (
	// KindContinue re-arms the task after Delay.
	KindContinue OutcomeKind = iota
	// KindStop terminates the run.
	KindStop
	// KindBlocked means the actor could not act this tick; the task retries
	// after Delay, or the configured blocked retry when Delay is zero.
	KindBlocked
)

func (k OutcomeKind) String() string {
	switch k {
	case KindContinue:
		return "continue"
	case KindStop:
		return "stop"
	case KindBlocked:
		return "blocked"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", uint8(k))
	}
}

// Outcome is what one step asks the scheduler to do next.
type Outcome struct {
	Kind   OutcomeKind
	Delay  time.Duration
	Reason string
}

// Continue runs the task again after d. A negative d terminates, matching the
// -1 convention of delay-returning scripts.
func Continue(d time.Duration) Outcome {
	if d < 0 {
		return Stop()
	}
	return Outcome{Kind: KindContinue, Delay: d}
}

// Delay is Continue in milliseconds.
func Delay(ms int) Outcome {
	return Continue(time.Duration(ms) * time.Millisecond)
}

func Stop() Outcome { return Outcome{Kind: KindStop, Reason: "finished"} }

func StopBecause(reason string) Outcome {
	return Outcome{Kind: KindStop, Reason: reason}
}

func Blocked() Outcome { return Outcome{Kind: KindBlocked} }

func BlockedFor(d time.Duration) Outcome {
	if d < 0 {
		d = 0
	}
	return Outcome{Kind: KindBlocked, Delay: d}
}

func (o Outcome) String() string {
	switch o.Kind {
	case KindStop:
		return "stop(" + o.Reason + ")"
	default:
		return fmt.Sprintf("%s(%s)", o.Kind, o.Delay)
	}
}
