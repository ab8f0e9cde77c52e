package infer

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/nickzt/dashredact/internal/frame"
	"github.com/nickzt/dashredact/internal/queue"
)

func newPayload(pts uint64, valid bool) *frame.Payload {
	return &frame.Payload{
		Raw:   &frame.YUVHandle{Width: 4, Height: 4, StrideY: 4, StrideC: 2, Y: make([]byte, 16), U: make([]byte, 4), V: make([]byte, 4)},
		PTS:   pts,
		Valid: valid,
	}
}

func TestRunWorkerForwardsValidPayloads(t *testing.T) {
	in := queue.New[*frame.Payload](4)
	out := queue.New[*frame.Payload](4)

	for i := uint64(0); i < 3; i++ {
		in.Push(newPayload(i, true))
	}
	in.Close()

	called := 0
	redact := Redactor(func(p *frame.Payload) error {
		called++
		return nil
	})

	var live atomic.Int64
	live.Store(1)
	RunWorker(in, out, redact, &live, nil)

	if called != 3 {
		t.Fatalf("redact called %d times, want 3", called)
	}
	if !out.Drained() {
		t.Fatal("out channel not closed by last worker")
	}

	var gotPTS []uint64
	for {
		p, ok := out.Pop()
		if !ok {
			break
		}
		gotPTS = append(gotPTS, p.PTS)
	}
	if len(gotPTS) != 3 {
		t.Fatalf("got %d payloads, want 3", len(gotPTS))
	}
}

func TestRunWorkerSkipsInvalidPayloads(t *testing.T) {
	in := queue.New[*frame.Payload](2)
	out := queue.New[*frame.Payload](2)
	in.Push(newPayload(0, false))
	in.Close()

	called := false
	redact := Redactor(func(p *frame.Payload) error {
		called = true
		return nil
	})

	var live atomic.Int64
	live.Store(1)
	RunWorker(in, out, redact, &live, nil)

	if called {
		t.Fatal("redact was called on an invalid payload")
	}
	p, ok := out.Pop()
	if !ok || p.PTS != 0 {
		t.Fatal("invalid payload was not forwarded")
	}
}

func TestRunWorkerMarksInvalidOnRedactError(t *testing.T) {
	in := queue.New[*frame.Payload](1)
	out := queue.New[*frame.Payload](1)
	in.Push(newPayload(5, true))
	in.Close()

	redact := Redactor(func(p *frame.Payload) error {
		return errors.New("inference exploded")
	})

	var live atomic.Int64
	live.Store(1)
	RunWorker(in, out, redact, &live, nil)

	p, ok := out.Pop()
	if !ok {
		t.Fatal("no payload forwarded after redact error")
	}
	if p.Valid {
		t.Fatal("payload still marked valid after redact error")
	}
	if p.PTS != 5 {
		t.Fatalf("PTS = %d, want 5 (order preserved through failure)", p.PTS)
	}
}

func TestOnlyLastWorkerClosesOutputChannel(t *testing.T) {
	in := queue.New[*frame.Payload](100)
	out := queue.New[*frame.Payload](100)
	for i := uint64(0); i < 20; i++ {
		in.Push(newPayload(i, true))
	}
	in.Close()

	const workers = 4
	var live atomic.Int64
	live.Store(workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			RunWorker(in, out, func(p *frame.Payload) error { return nil }, &live, nil)
		}()
	}
	wg.Wait()

	if !out.Drained() {
		t.Fatal("out channel not closed after all workers exit")
	}

	count := 0
	for {
		_, ok := out.Pop()
		if !ok {
			break
		}
		count++
	}
	if count != 20 {
		t.Fatalf("got %d payloads, want 20", count)
	}
}
