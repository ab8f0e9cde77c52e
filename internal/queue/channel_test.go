package queue

import (
	"sync"
	"testing"
	"time"
)

func TestPushPopFIFO(t *testing.T) {
	c := New[int](2)

	if res := c.Push(1); res != Accepted {
		t.Fatalf("Push(1) = %v, want Accepted", res)
	}
	if res := c.Push(2); res != Accepted {
		t.Fatalf("Push(2) = %v, want Accepted", res)
	}

	v, ok := c.Pop()
	if !ok || v != 1 {
		t.Fatalf("Pop() = (%d, %v), want (1, true)", v, ok)
	}
	v, ok = c.Pop()
	if !ok || v != 2 {
		t.Fatalf("Pop() = (%d, %v), want (2, true)", v, ok)
	}
}

func TestPushBlocksWhenFull(t *testing.T) {
	c := New[int](1)
	if res := c.Push(1); res != Accepted {
		t.Fatalf("Push(1) = %v, want Accepted", res)
	}

	done := make(chan struct{})
	go func() {
		c.Push(2)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Push on a full channel returned before a slot freed up")
	case <-time.After(20 * time.Millisecond):
	}

	if _, ok := c.Pop(); !ok {
		t.Fatal("Pop() = false, want true")
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Push did not unblock after Pop freed a slot")
	}
}

func TestCloseDrainsRemainingThenNone(t *testing.T) {
	c := New[int](10)
	c.Push(1)
	c.Push(2)
	c.Close()

	if res := c.Push(3); res != Rejected {
		t.Fatalf("Push after Close = %v, want Rejected", res)
	}

	if v, ok := c.Pop(); !ok || v != 1 {
		t.Fatalf("Pop() = (%d, %v), want (1, true)", v, ok)
	}
	if v, ok := c.Pop(); !ok || v != 2 {
		t.Fatalf("Pop() = (%d, %v), want (2, true)", v, ok)
	}
	if _, ok := c.Pop(); ok {
		t.Fatal("Pop() on drained channel returned an item")
	}
	if !c.Drained() {
		t.Fatal("Drained() = false after close and full drain")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	c := New[int](1)
	c.Close()
	c.Close()
	if !c.Closed() {
		t.Fatal("Closed() = false after Close")
	}
	if _, ok := c.Pop(); ok {
		t.Fatal("Pop() on an empty closed channel returned an item")
	}
}

func TestPopUnblocksOnClose(t *testing.T) {
	c := New[int](1)
	done := make(chan struct{})
	go func() {
		_, ok := c.Pop()
		if ok {
			t.Error("Pop() returned ok=true on a channel closed while empty")
		}
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	c.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Pop did not unblock after Close")
	}
}

func TestConcurrentProducersEachItemDeliveredOnce(t *testing.T) {
	c := New[int](4)
	const producers = 4
	const perProducer = 250

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				c.Push(base*perProducer + i)
			}
		}(p)
	}

	go func() {
		wg.Wait()
		c.Close()
	}()

	seen := make(map[int]bool)
	for {
		v, ok := c.Pop()
		if !ok {
			break
		}
		if seen[v] {
			t.Fatalf("item %d delivered more than once", v)
		}
		seen[v] = true
	}

	if len(seen) != producers*perProducer {
		t.Fatalf("got %d items, want %d", len(seen), producers*perProducer)
	}
}
