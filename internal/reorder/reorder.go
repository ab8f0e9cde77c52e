// Package reorder restores PTS order across the inference stage's worker
// pool and hands each frame to a Sink in sequence.
package reorder

import (
	"context"
	"fmt"

	"github.com/nickzt/dashredact/internal/frame"
	"github.com/nickzt/dashredact/internal/metrics"
	"github.com/nickzt/dashredact/internal/queue"
	"github.com/nickzt/dashredact/internal/reporter"
)

// Sink is the encoder side of the pipeline: Open binds it to an output
// path using the stream parameters the decode stage read from the
// source container, Write receives frames in strict PTS order, and
// Flush is told whether any frame was ever written so it can skip the
// trailer write on a zero-frame run.
type Sink interface {
	Open(path string, params any) error
	Write(raw *frame.YUVHandle, pts uint64) error
	Flush(wroteAnyFrames bool) error
	Close() error
}

// Run drains in from the inference stage, buffering out-of-order
// arrivals by PTS until the next expected frame is available, then
// writes frames to enc strictly in ascending PTS order. Invalid
// payloads still occupy their PTS slot in the drain order but are
// never written to enc. An encoder write error is logged and the frame
// is skipped, but PTS ordering continues for the rest of the stream.
// Duplicate PTS values are a fatal protocol violation: the inference
// stage never reassigns PTS, so seeing one twice means a decoder or
// worker bug upstream.
func Run(ctx context.Context, in *queue.Channel[*frame.Payload], enc Sink, m *metrics.Registry, rep reporter.Reporter) error {
	if rep == nil {
		rep = reporter.NullReporter{}
	}

	buffer := make(map[uint64]*frame.Payload)
	var nextPTS uint64
	var wroteAny bool

	drain := func() {
		for {
			p, buffered := buffer[nextPTS]
			if !buffered {
				return
			}
			delete(buffer, nextPTS)
			if writeOne(enc, p, m, rep) {
				wroteAny = true
			}
			nextPTS++
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		p, ok := in.Pop()
		if !ok {
			break
		}

		if _, exists := buffer[p.PTS]; exists || p.PTS < nextPTS {
			p.Close()
			return fmt.Errorf("reorder: duplicate PTS %d received", p.PTS)
		}
		buffer[p.PTS] = p

		drain()
	}

	// Flush whatever never drained in order — the channel closed with a
	// gap, which can only mean an earlier PTS was dropped upstream
	// without ever reaching this stage. Emit the residual in ascending
	// PTS order so partial output still plays back correctly up to the
	// point of loss.
	for len(buffer) > 0 {
		p, ok := buffer[nextPTS]
		if !ok {
			// The true minimum buffered PTS isn't nextPTS; advance to it
			// instead of spinning forever on a PTS that will never arrive.
			nextPTS = minPTS(buffer)
			continue
		}
		delete(buffer, nextPTS)
		if writeOne(enc, p, m, rep) {
			wroteAny = true
		}
		nextPTS++
	}

	return enc.Flush(wroteAny)
}

// writeOne writes p to enc and reports whether it was written. A write
// error is logged and the frame is treated as skipped rather than
// aborting the stage: pts ordering for the rest of the stream is
// unaffected.
func writeOne(enc Sink, p *frame.Payload, m *metrics.Registry, rep reporter.Reporter) bool {
	defer p.Close()
	if !p.Valid {
		return false
	}
	if err := enc.Write(p.Raw, p.PTS); err != nil {
		rep.Warning(fmt.Sprintf("encoder write failed at PTS %d, skipping frame: %v", p.PTS, err))
		return false
	}
	if m != nil {
		m.IncrementFramesEncoded()
	}
	return true
}

func minPTS(buffer map[uint64]*frame.Payload) uint64 {
	var min uint64
	first := true
	for pts := range buffer {
		if first || pts < min {
			min = pts
			first = false
		}
	}
	return min
}
