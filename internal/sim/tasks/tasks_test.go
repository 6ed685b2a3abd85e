package tasks

import (
	"testing"

	"tickbot.dev/internal/sim/walk"
)

func TestMovementTask_Next(t *testing.T) {
	m := &MovementTask{Kind: KindWalk, Tiles: []walk.Point{{X: 1, Y: 1}, {X: 2, Y: 1}}}
	if p, ok := m.Next(); !ok || p != (walk.Point{X: 1, Y: 1}) {
		t.Fatalf("first=%v ok=%v", p, ok)
	}
	m.Next()
	if !m.Done() {
		t.Fatalf("expected done")
	}
	if _, ok := m.Next(); ok {
		t.Fatalf("Next on empty task")
	}
	var nilTask *MovementTask
	if !nilTask.Done() {
		t.Fatalf("nil task should be done")
	}
}

func TestWorkTask_Tick(t *testing.T) {
	w := &WorkTask{Kind: KindGather, NeedTicks: 3}
	for i := 0; i < 2; i++ {
		if w.Tick() {
			t.Fatalf("completed early at %d", i)
		}
	}
	if !w.Tick() {
		t.Fatalf("not completed after NeedTicks")
	}
}
