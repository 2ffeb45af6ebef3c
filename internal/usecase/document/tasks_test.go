package document

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestTaskSet_OnePerID(t *testing.T) {
	ts := newTaskSet()
	release := make(chan struct{})
	var runs atomic.Int32

	if !ts.start("a", func() { runs.Add(1); <-release }) {
		t.Fatal("first start should succeed")
	}
	if ts.start("a", func() { runs.Add(1) }) {
		t.Fatal("second start for the same id should be refused")
	}
	if !ts.start("b", func() { runs.Add(1) }) {
		t.Fatal("other ids run independently")
	}

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := ts.wait(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if err := ts.wait(ctx, "b"); err != nil {
		t.Fatal(err)
	}
	if runs.Load() != 2 {
		t.Errorf("expected 2 runs, got %d", runs.Load())
	}

	if !ts.start("a", func() {}) {
		t.Error("a finished task frees its id")
	}
	_ = ts.shutdown(ctx)
}

func TestTaskSet_WaitTimeout(t *testing.T) {
	ts := newTaskSet()
	release := make(chan struct{})
	ts.start("a", func() { <-release })
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := ts.wait(ctx, "a"); err == nil {
		t.Fatal("expected timeout")
	}
}

func TestTaskSet_ShutdownRefusesNewTasks(t *testing.T) {
	ts := newTaskSet()
	if err := ts.shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if ts.start("a", func() { t.Error("must not run") }) {
		t.Fatal("start after shutdown should be refused")
	}
}

func TestTaskSet_ShutdownWaitsForReservedSlot(t *testing.T) {
	ts := newTaskSet()
	sl, ok := ts.reserve("a")
	if !ok {
		t.Fatal("reserve should succeed")
	}

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := ts.shutdown(short); err == nil {
		t.Fatal("shutdown must wait for a reserved slot")
	}

	var ran atomic.Bool
	sl.run(func() { ran.Store(true) })

	ctx, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	if err := ts.shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if !ran.Load() {
		t.Error("task reserved before shutdown should still run")
	}
}

func TestTaskSet_ReleaseFreesID(t *testing.T) {
	ts := newTaskSet()
	sl, ok := ts.reserve("a")
	if !ok {
		t.Fatal("reserve should succeed")
	}
	if _, ok := ts.reserve("a"); ok {
		t.Fatal("id is taken while reserved")
	}

	sl.release()
	sl.release()

	if ts.running() != 0 {
		t.Fatalf("expected no registered tasks, got %d", ts.running())
	}
	if err := ts.wait(context.Background(), "a"); err != nil {
		t.Fatal(err)
	}
	if _, ok := ts.reserve("a"); !ok {
		t.Error("released id can be reserved again")
	}
}
