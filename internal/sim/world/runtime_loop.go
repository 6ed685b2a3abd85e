package world

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrStopped = errors.New("world stopped")

type execReq struct {
	fn   func(w *World)
	err  error
	done chan struct{}
}

func (w *World) Run(ctx context.Context) error {
	defer close(w.done)
	ticker := time.NewTicker(w.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.exec:
			w.runExec(req)
		case <-ticker.C:
			w.stepInternal(w.sched.Now())
		}
	}
}

func (w *World) Stop() { w.stopOnce.Do(func() { close(w.stop) }) }

// Done is closed once Run has returned.
func (w *World) Done() <-chan struct{} { return w.done }

// Exec runs fn on the simulation goroutine and waits for it. A panic in fn
// is returned as an error.
func (w *World) Exec(ctx context.Context, fn func(w *World)) error {
	req := &execReq{fn: fn, done: make(chan struct{})}
	select {
	case w.exec <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-w.done:
		return ErrStopped
	}
	select {
	case <-req.done:
		return req.err
	case <-ctx.Done():
		return ctx.Err()
	case <-w.done:
		return ErrStopped
	}
}

func (w *World) runExec(req *execReq) {
	defer close(req.done)
	defer func() {
		if r := recover(); r != nil {
			w.logf("exec panic: %v", r)
			req.err = fmt.Errorf("exec panic: %v", r)
		}
	}()
	req.fn(w)
}

// StepOnce advances one tick at now, the same way Run does.
func (w *World) StepOnce(now time.Time) uint64 {
	w.stepInternal(now)
	return w.tick
}

func (w *World) stepInternal(now time.Time) {
	w.tick++
	w.systemMovement()
	w.systemWork()
	w.sched.Step(now)
}

// Subscribe returns a channel of player chat lines. Slow readers lose the
// oldest line. cancel is idempotent.
func (w *World) Subscribe(buf int) (<-chan string, func()) {
	if buf <= 0 {
		buf = 16
	}
	ch := make(chan string, buf)
	w.subMu.Lock()
	id := w.nextSub
	w.nextSub++
	w.subs[id] = ch
	w.subMu.Unlock()
	return ch, func() {
		w.subMu.Lock()
		delete(w.subs, id)
		w.subMu.Unlock()
	}
}

func (w *World) publish(text string) {
	w.subMu.Lock()
	defer w.subMu.Unlock()
	for _, ch := range w.subs {
		sendLatest(ch, text)
	}
}

func sendLatest(ch chan string, s string) {
	select {
	case ch <- s:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- s:
	default:
	}
}

func (w *World) String() string {
	p := w.player
	return fmt.Sprintf("tick=%d pos=%v inv=%d/%d fatigue=%d", w.tick, p.pos, p.inv.Size(), p.inv.Capacity(), p.fatigue)
}
