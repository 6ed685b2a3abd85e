// Package sched is the host simulation's cooperative, single-threaded delayed
// work queue. Work items run to completion on the simulation goroutine and may
// re-arm themselves with a new delay before returning.
package sched

import (
	"container/heap"
	"log"
	"time"
)

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// WorkFunc is one firing of a scheduled item. Returning rearm=true schedules
// the item again after next.
type WorkFunc func() (next time.Duration, rearm bool)

// Handle identifies an armed work item.
type Handle struct {
	seq         uint64
	due         time.Time
	fn          WorkFunc
	index       int
	interrupted bool
}

// Interrupt makes the item inert. Safe to call repeatedly, and from inside the
// item's own WorkFunc.
func (h *Handle) Interrupt() {
	if h == nil {
		return
	}
	h.interrupted = true
}

func (h *Handle) Interrupted() bool { return h == nil || h.interrupted }

func (h *Handle) Due() time.Time {
	if h == nil {
		return time.Time{}
	}
	return h.due
}

type Scheduler struct {
	clock   Clock
	log     *log.Logger
	queue   handleQueue
	nextSeq uint64
	fired   uint64
	faults  uint64
}

func New(clock Clock, logger *log.Logger) *Scheduler {
	if clock == nil {
		clock = ClockFunc(time.Now)
	}
	return &Scheduler{clock: clock, log: logger}
}

func (s *Scheduler) Now() time.Time { return s.clock.Now() }

// Add arms fn to fire once delay has elapsed on the scheduler clock.
func (s *Scheduler) Add(delay time.Duration, fn WorkFunc) *Handle {
	if delay < 0 {
		delay = 0
	}
	s.nextSeq++
	h := &Handle{seq: s.nextSeq, due: s.clock.Now().Add(delay), fn: fn}
	heap.Push(&s.queue, h)
	return h
}

// Pending counts armed, non-interrupted items.
func (s *Scheduler) Pending() int {
	n := 0
	for _, h := range s.queue {
		if !h.interrupted {
			n++
		}
	}
	return n
}

func (s *Scheduler) Fired() uint64  { return s.fired }
func (s *Scheduler) Faults() uint64 { return s.faults }

// Step fires every item due at or before now, ordered by due time then arm
// order. Items armed or re-armed while stepping fire on a later Step.
func (s *Scheduler) Step(now time.Time) int {
	var due []*Handle
	for s.queue.Len() > 0 {
		h := s.queue[0]
		if h.due.After(now) {
			break
		}
		heap.Pop(&s.queue)
		due = append(due, h)
	}

	n := 0
	for _, h := range due {
		if h.interrupted {
			continue
		}
		next, rearm := s.fire(h)
		n++
		if !rearm || h.interrupted {
			continue
		}
		if next < 0 {
			next = 0
		}
		h.due = now.Add(next)
		s.nextSeq++
		h.seq = s.nextSeq
		heap.Push(&s.queue, h)
	}
	s.fired += uint64(n)
	return n
}

func (s *Scheduler) fire(h *Handle) (next time.Duration, rearm bool) {
	defer func() {
		if r := recover(); r != nil {
			s.faults++
			if s.log != nil {
				s.log.Printf("work item %d panicked: %v", h.seq, r)
			}
			next, rearm = 0, false
		}
	}()
	return h.fn()
}

type handleQueue []*Handle

func (q handleQueue) Len() int { return len(q) }

func (q handleQueue) Less(i, j int) bool {
	if !q[i].due.Equal(q[j].due) {
		return q[i].due.Before(q[j].due)
	}
	return q[i].seq < q[j].seq
}

func (q handleQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *handleQueue) Push(x any) {
	h := x.(*Handle)
	h.index = len(*q)
	*q = append(*q, h)
}

func (q *handleQueue) Pop() any {
	old := *q
	n := len(old)
	h := old[n-1]
	old[n-1] = nil
	h.index = -1
	*q = old[:n-1]
	return h
}
