package infer

import (
	"sync/atomic"
	"time"

	"github.com/nickzt/dashredact/internal/frame"
	"github.com/nickzt/dashredact/internal/metrics"
	"github.com/nickzt/dashredact/internal/queue"
)

// RunWorker is one inference-stage worker. It pops payloads from in,
// runs redact on every valid one, and pushes the (now-mutated) payload
// to out, preserving PTS order per-item even though workers race with
// each other — ordering across the whole stream is restored downstream
// by the reorder stage.
//
// live counts the number of inference workers still running; the worker
// that decrements it to zero closes out, so the channel is closed
// exactly once regardless of which worker finishes last.
//
// An error from redact does not abort the worker: per the per-frame
// recoverable error policy, the payload is marked invalid and forwarded
// so its PTS still reaches the reorder stage.
func RunWorker(in, out *queue.Channel[*frame.Payload], redact Redactor, live *atomic.Int64, m *metrics.Registry) {
	defer func() {
		if live.Add(-1) == 0 {
			out.Close()
		}
	}()

	for {
		p, ok := in.Pop()
		if !ok {
			return
		}

		if p.Valid {
			start := time.Now()
			if err := redact(p); err != nil {
				p.Valid = false
				if m != nil {
					m.IncrementFramesDroppedInvalid()
				}
			} else if m != nil {
				m.AddTimeToInference(float64(time.Since(start).Microseconds()) / 1000.0)
				m.IncrementFramesInferred()
			}
		}

		if out.Push(p) == queue.Rejected {
			p.Close()
		}
	}
}
