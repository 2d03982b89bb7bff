package reactor_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aolserver/aolserver-sub004/reactor"
)

func TestRegisterInvokesProcOnReady(t *testing.T) {
	r := reactor.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	ch := make(chan reactor.Reason, 1)
	invoked := make(chan reactor.Reason, 1)

	r.Register(1, reactor.Read, reactor.ChanWait(ch), func(why reactor.Reason) bool {
		invoked <- why
		return false
	})

	ch <- reactor.ReasonRead

	select {
	case why := <-invoked:
		if why != reactor.ReasonRead {
			t.Fatalf("why = %v, want ReasonRead", why)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for proc invocation")
	}
}

func TestProcReturningFalseDeregisters(t *testing.T) {
	r := reactor.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	ch := make(chan reactor.Reason, 4)
	var mu sync.Mutex
	count := 0

	r.Register(1, reactor.Read, reactor.ChanWait(ch), func(why reactor.Reason) bool {
		mu.Lock()
		count++
		mu.Unlock()
		return false
	})

	ch <- reactor.ReasonRead
	ch <- reactor.ReasonRead // should never be consumed once deregistered

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	got := count
	mu.Unlock()
	if got != 1 {
		t.Fatalf("proc invoked %d times, want exactly 1", got)
	}
}

func TestProcReturningTrueReregisters(t *testing.T) {
	r := reactor.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	ch := make(chan reactor.Reason, 4)
	done := make(chan struct{})
	var mu sync.Mutex
	count := 0

	r.Register(1, reactor.Read, reactor.ChanWait(ch), func(why reactor.Reason) bool {
		mu.Lock()
		count++
		n := count
		mu.Unlock()
		if n >= 3 {
			close(done)
			return false
		}
		return true
	})

	for i := 0; i < 3; i++ {
		ch <- reactor.ReasonRead
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for 3 invocations")
	}

	mu.Lock()
	got := count
	mu.Unlock()
	if got != 3 {
		t.Fatalf("count = %d, want 3", got)
	}
}

func TestCancelInvokesProcOnceWithReasonCancel(t *testing.T) {
	r := reactor.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	ch := make(chan reactor.Reason)
	invoked := make(chan reactor.Reason, 1)

	r.Register(1, reactor.Read, reactor.ChanWait(ch), func(why reactor.Reason) bool {
		invoked <- why
		return false
	})

	time.Sleep(10 * time.Millisecond)
	r.Cancel(1)

	select {
	case why := <-invoked:
		if why != reactor.ReasonCancel {
			t.Fatalf("why = %v, want ReasonCancel", why)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for cancel invocation")
	}
}

func TestCancelUnknownSocketIsNoop(t *testing.T) {
	r := reactor.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	r.Cancel(999) // must not panic or block
	time.Sleep(10 * time.Millisecond)
}

func TestExitInvokedOnShutdownForExitMask(t *testing.T) {
	r := reactor.New()
	ctx, cancel := context.WithCancel(context.Background())

	ch := make(chan reactor.Reason)
	invoked := make(chan reactor.Reason, 1)

	r.Register(1, reactor.Read|reactor.Exit, reactor.ChanWait(ch), func(why reactor.Reason) bool {
		invoked <- why
		return false
	})

	runDone := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(runDone)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case why := <-invoked:
		if why != reactor.ReasonExit {
			t.Fatalf("why = %v, want ReasonExit", why)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for exit invocation")
	}

	select {
	case <-runDone:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after ctx cancellation")
	}
}

func TestExitNotInvokedWithoutExitMask(t *testing.T) {
	r := reactor.New()
	ctx, cancel := context.WithCancel(context.Background())

	ch := make(chan reactor.Reason)
	invoked := make(chan reactor.Reason, 1)

	r.Register(1, reactor.Read, reactor.ChanWait(ch), func(why reactor.Reason) bool {
		invoked <- why
		return false
	})

	go r.Run(ctx)
	time.Sleep(10 * time.Millisecond)
	cancel()
	time.Sleep(50 * time.Millisecond)

	select {
	case <-invoked:
		t.Fatal("proc without Exit mask must not be invoked on shutdown")
	default:
	}
}
