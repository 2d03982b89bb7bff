package workerpool_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aolserver/aolserver-sub004/driver"
	"github.com/aolserver/aolserver-sub004/workerpool"
)

func conn(peer string) driver.Conn {
	return driver.NewHarnessConn(peer, []byte("x"))
}

func TestStartBringsUpMinWorkers(t *testing.T) {
	p := workerpool.New(workerpool.Config{Min: 2, Max: 4}, func(ctx context.Context, name string, c driver.Conn) {}, nil)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if got := p.Stats().Workers; got != 2 {
		t.Fatalf("Workers = %d, want 2", got)
	}
}

func TestEnqueueDispatchesToHandler(t *testing.T) {
	var handled int32
	done := make(chan struct{})

	p := workerpool.New(workerpool.Config{Min: 1, Max: 2}, func(ctx context.Context, name string, c driver.Conn) {
		atomic.AddInt32(&handled, 1)
		close(done)
	}, nil)
	p.Start(context.Background())

	if err := p.Enqueue("h", conn("p1")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler never ran")
	}

	if atomic.LoadInt32(&handled) != 1 {
		t.Fatalf("handled = %d", handled)
	}
}

func TestSpawnRuleScalesUpToMax(t *testing.T) {
	release := make(chan struct{})
	var active int32
	var maxActive int32

	p := workerpool.New(workerpool.Config{Min: 0, Max: 3}, func(ctx context.Context, name string, c driver.Conn) {
		n := atomic.AddInt32(&active, 1)
		for {
			old := atomic.LoadInt32(&maxActive)
			if n <= old || atomic.CompareAndSwapInt32(&maxActive, old, n) {
				break
			}
		}
		<-release
		atomic.AddInt32(&active, -1)
	}, nil)
	p.Start(context.Background())

	for i := 0; i < 3; i++ {
		p.Enqueue("h", conn("p"))
	}

	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt32(&maxActive) < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("expected pool to scale to 3 concurrent workers, got %d", maxActive)
		}
		time.Sleep(time.Millisecond)
	}
	close(release)
}

func TestIdleWorkerShrinksAboveMin(t *testing.T) {
	p := workerpool.New(workerpool.Config{Min: 0, Max: 2, IdleTimeout: 20 * time.Millisecond},
		func(ctx context.Context, name string, c driver.Conn) {}, nil)
	p.Start(context.Background())

	p.Enqueue("h", conn("p"))

	deadline := time.Now().Add(2 * time.Second)
	for p.Stats().Workers != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected idle worker to shrink to 0, got %d", p.Stats().Workers)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestConnsPerWorkerRecyclesWorker(t *testing.T) {
	var mu sync.Mutex
	var served int

	p := workerpool.New(workerpool.Config{Min: 1, Max: 1, ConnsPerWorker: 2},
		func(ctx context.Context, name string, c driver.Conn) {
			mu.Lock()
			served++
			mu.Unlock()
		}, nil)
	p.Start(context.Background())

	for i := 0; i < 2; i++ {
		p.Enqueue("h", conn("p"))
		time.Sleep(10 * time.Millisecond)
	}

	// A third connection must still be served by a freshly spawned worker
	// after the first recycled out.
	p.Enqueue("h", conn("p"))

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		n := served
		mu.Unlock()
		if n == 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("served = %d, want 3", n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStopDrainsQueueAndReturns(t *testing.T) {
	var handled int32
	p := workerpool.New(workerpool.Config{Min: 1, Max: 1}, func(ctx context.Context, name string, c driver.Conn) {
		atomic.AddInt32(&handled, 1)
	}, nil)
	p.Start(context.Background())
	p.Enqueue("h", conn("p"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if atomic.LoadInt32(&handled) == 0 {
		t.Fatal("expected the queued connection to be handled before shutdown completes")
	}
}

func TestEnqueueAfterStopFails(t *testing.T) {
	p := workerpool.New(workerpool.Config{Min: 1, Max: 1}, func(ctx context.Context, name string, c driver.Conn) {}, nil)
	p.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	p.Stop(ctx)

	if err := p.Enqueue("h", conn("p")); err == nil {
		t.Fatal("expected Enqueue to fail once the pool is draining")
	}
}

func TestReconfigureRaisesMin(t *testing.T) {
	p := workerpool.New(workerpool.Config{Min: 1, Max: 1}, func(ctx context.Context, name string, c driver.Conn) {}, nil)
	p.Start(context.Background())
	time.Sleep(10 * time.Millisecond)

	p.Reconfigure(workerpool.Config{Min: 3, Max: 5})
	time.Sleep(10 * time.Millisecond)

	if got := p.Stats().Workers; got != 3 {
		t.Fatalf("Workers = %d, want 3 after raising Min", got)
	}
}

func TestReconfigureAllowsMoreSpawning(t *testing.T) {
	release := make(chan struct{})
	var handled int32

	p := workerpool.New(workerpool.Config{Min: 0, Max: 1}, func(ctx context.Context, name string, c driver.Conn) {
		atomic.AddInt32(&handled, 1)
		<-release
	}, nil)
	p.Start(context.Background())

	p.Enqueue("h", conn("p1"))
	time.Sleep(10 * time.Millisecond)
	if got := p.Stats().Workers; got != 1 {
		t.Fatalf("Workers = %d, want 1 (capped at the old Max)", got)
	}

	p.Reconfigure(workerpool.Config{Min: 0, Max: 3})
	p.Enqueue("h", conn("p2"))
	time.Sleep(10 * time.Millisecond)
	if got := p.Stats().Workers; got != 2 {
		t.Fatalf("Workers = %d, want 2 after raising Max", got)
	}

	close(release)
}
