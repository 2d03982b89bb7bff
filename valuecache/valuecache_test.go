package valuecache_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aolserver/aolserver-sub004/valuecache"
)

func TestSetGet(t *testing.T) {
	r := valuecache.NewRegistry()
	c, err := r.Create("test", valuecache.Options{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	c.Set("k", []byte("v"))
	v, err := c.Get("k")
	if err != nil || string(v) != "v" {
		t.Fatalf("Get = %q, %v", v, err)
	}
}

func TestGetMissing(t *testing.T) {
	c, _ := valuecache.NewRegistry().Create("test", valuecache.Options{})
	if _, err := c.Get("nope"); err != valuecache.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExpiry(t *testing.T) {
	c, _ := valuecache.NewRegistry().Create("test", valuecache.Options{TTL: 10 * time.Millisecond})
	c.Set("k", []byte("v"))

	time.Sleep(30 * time.Millisecond)

	if _, err := c.Get("k"); err != valuecache.ErrNotFound {
		t.Fatalf("expected expired entry to be absent, got %v", err)
	}
}

func TestIncr(t *testing.T) {
	c, _ := valuecache.NewRegistry().Create("test", valuecache.Options{})

	n, err := c.Incr("counter", 5)
	if err != nil || n != 5 {
		t.Fatalf("Incr = %d, %v", n, err)
	}

	n, err = c.Incr("counter", 3)
	if err != nil || n != 8 {
		t.Fatalf("Incr = %d, %v", n, err)
	}
}

func TestAppendLappend(t *testing.T) {
	c, _ := valuecache.NewRegistry().Create("test", valuecache.Options{})

	out := c.Append("buf", []byte("ab"))
	if string(out) != "ab" {
		t.Fatalf("Append = %q", out)
	}
	out = c.Append("buf", []byte("cd"))
	if string(out) != "abcd" {
		t.Fatalf("Append = %q", out)
	}

	l := c.Lappend("list", "a")
	if l != "a" {
		t.Fatalf("Lappend = %q", l)
	}
	l = c.Lappend("list", "b")
	if l != "a b" {
		t.Fatalf("Lappend = %q", l)
	}
}

func TestFlush(t *testing.T) {
	c, _ := valuecache.NewRegistry().Create("test", valuecache.Options{})
	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))

	n := c.Flush("a")
	if n != 1 {
		t.Fatalf("expected 1 flushed, got %d", n)
	}
	if _, err := c.Get("a"); err != valuecache.ErrNotFound {
		t.Fatal("expected a removed")
	}
	if _, err := c.Get("b"); err != nil {
		t.Fatal("expected b to remain")
	}

	n = c.Flush()
	if n != 1 {
		t.Fatalf("expected flush-all to remove 1, got %d", n)
	}
}

func TestNamesPurgesExpired(t *testing.T) {
	c, _ := valuecache.NewRegistry().Create("test", valuecache.Options{TTL: 10 * time.Millisecond})
	c.Set("a", []byte("1"))
	time.Sleep(30 * time.Millisecond)

	names := c.Names("")
	if len(names) != 0 {
		t.Fatalf("expected expired key purged from Names, got %v", names)
	}
	if _, err := c.Get("a"); err != valuecache.ErrNotFound {
		t.Fatal("expected a purged from underlying map too")
	}
}

func TestEvalSingleflight(t *testing.T) {
	c, _ := valuecache.NewRegistry().Create("test", valuecache.Options{})

	var calls int64
	var wg sync.WaitGroup
	results := make([][]byte, 20)

	for i := 0; i < 20; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Eval("k", func() ([]byte, error) {
				atomic.AddInt64(&calls, 1)
				time.Sleep(20 * time.Millisecond)
				return []byte("computed"), nil
			})
			if err != nil {
				t.Errorf("Eval failed: %v", err)
				return
			}
			results[i] = v
		}()
	}
	wg.Wait()

	if calls != 1 {
		t.Fatalf("expected exactly 1 thunk call, got %d", calls)
	}
	for i, r := range results {
		if string(r) != "computed" {
			t.Fatalf("result[%d] = %q", i, r)
		}
	}
}

func TestEvalCachesResult(t *testing.T) {
	c, _ := valuecache.NewRegistry().Create("test", valuecache.Options{})

	var calls int64
	for i := 0; i < 3; i++ {
		_, err := c.Eval("k", func() ([]byte, error) {
			atomic.AddInt64(&calls, 1)
			return []byte("v"), nil
		})
		if err != nil {
			t.Fatalf("Eval failed: %v", err)
		}
	}

	if calls != 1 {
		t.Fatalf("expected thunk to run once across sequential calls, got %d", calls)
	}
}

func TestEvalThunkFailureLeavesEntryAbsent(t *testing.T) {
	c, _ := valuecache.NewRegistry().Create("test", valuecache.Options{})

	wantErr := errors.New("boom")
	_, err := c.Eval("k", func() ([]byte, error) {
		return nil, wantErr
	})
	if err != wantErr {
		t.Fatalf("expected thunk error to propagate, got %v", err)
	}

	if _, err := c.Get("k"); err != valuecache.ErrNotFound {
		t.Fatal("expected key to remain absent after thunk failure")
	}
}

func TestRegistryCreateDuplicate(t *testing.T) {
	r := valuecache.NewRegistry()
	if _, err := r.Create("dup", valuecache.Options{}); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if _, err := r.Create("dup", valuecache.Options{}); err == nil {
		t.Fatal("expected error on duplicate create")
	}
}

func TestRegistryNamesPattern(t *testing.T) {
	r := valuecache.NewRegistry()
	r.Create("sessions", valuecache.Options{})
	r.Create("pages", valuecache.Options{})

	names := r.Names("sess*")
	if len(names) != 1 || names[0] != "sessions" {
		t.Fatalf("expected [sessions], got %v", names)
	}
}
