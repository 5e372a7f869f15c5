package wpool

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestUnboundedRunsEveryJob(t *testing.T) {
	p := New(Config{Core: 2, Max: 4, Queue: Unbounded, Name: "test-unbounded"})
	defer p.Shutdown()

	var mu sync.Mutex
	seen := make(map[int]bool)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		i := i
		p.Submit(func(context.Context) {
			defer wg.Done()
			mu.Lock()
			seen[i] = true
			mu.Unlock()
		})
	}
	wg.Wait()

	if len(seen) != 50 {
		t.Fatalf("expected 50 jobs to run, got %d", len(seen))
	}
}

func TestDirectHandoffRunsInlineWhenSaturated(t *testing.T) {
	// Core 0 workers and Max 1: the single spawned worker will be busy with
	// the first, slow job, so a second concurrent submission must run on
	// the caller's own goroutine (CallerRuns).
	p := New(Config{Core: 0, Max: 1, Queue: DirectHandoff, Rejection: CallerRuns, Name: "test-direct"})
	defer p.Shutdown()

	block := make(chan struct{})
	started := make(chan struct{})
	p.Submit(func(context.Context) {
		close(started)
		<-block
	})
	<-started

	ranInline := make(chan bool, 1)
	callerGoroutine := make(chan struct{})
	go func() {
		close(callerGoroutine)
		p.Submit(func(context.Context) {
			ranInline <- true
		})
	}()
	<-callerGoroutine

	select {
	case <-ranInline:
	case <-time.After(2 * time.Second):
		t.Fatal("expected saturated DirectHandoff submission to run inline (caller-runs)")
	}
	close(block)
}

func TestRunningTracksSpawnedWorkers(t *testing.T) {
	p := New(Config{Core: 3, Max: 3, Queue: Unbounded, Name: "test-running"})
	defer p.Shutdown()
	time.Sleep(10 * time.Millisecond) // let core workers spin up
	if got := p.Running(); got != 3 {
		t.Fatalf("expected 3 core workers running, got %d", got)
	}
}
