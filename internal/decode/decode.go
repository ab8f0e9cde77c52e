// Package decode runs the single-producer decoder stage: it pulls
// frames from a Source, assigns each a dense PTS, and pushes payloads
// into the decode channel.
package decode

import (
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"github.com/nickzt/dashredact/internal/frame"
	"github.com/nickzt/dashredact/internal/metrics"
	"github.com/nickzt/dashredact/internal/queue"
)

// StreamParams carries the decoder's stream parameters forward to the
// encoder, so Sink.Open never has to re-derive them from the source file.
type StreamParams struct {
	Width, Height int
	// Opaque carries whatever codec/color metadata the concrete decoder
	// implementation wants to forward (primaries, transfer function,
	// matrix coefficients, time base); the pipeline treats it as an
	// opaque handle.
	Opaque any
}

// Source is the decoder/demuxer contract consumed by this stage. Its
// implementation (a libav-like demuxer/decoder) is out of scope for this
// module; only this calling contract is specified.
type Source interface {
	// Open opens the concatenated input file.
	Open(path string) error
	// ReadFrame returns the next decoded frame as a BGR view plus the
	// decoder's native raw frame handle, or eof=true once the stream is
	// exhausted. Run clones the raw handle before pushing it downstream;
	// Source must not mutate it between this call and the next.
	ReadFrame() (bgr gocv.Mat, raw *frame.YUVHandle, eof bool, err error)
	// Width and Height report the decoded frame resolution.
	Width() int
	Height() int
	// StreamParams returns the parameters the encoder needs to open its
	// output stream, available once Open has succeeded.
	StreamParams() StreamParams
	// Close releases any resources held by the source.
	Close() error
}

// Run is the single decoder-stage producer. It loops pulling frames from
// src, assigns each a dense PTS starting at 0, and pushes a payload into
// out. It stops — and always closes out on every exit path — when the
// source reaches end of stream, when checkFrames is reached (checkFrames
// <= 0 means unbounded), or when a push is rejected because out was
// closed from elsewhere.
func Run(src Source, out *queue.Channel[*frame.Payload], checkFrames int, m *metrics.Registry) error {
	defer out.Close()

	var pts uint64
	for {
		if checkFrames > 0 && int(pts) >= checkFrames {
			return nil
		}

		start := time.Now()
		bgr, raw, eof, err := src.ReadFrame()
		if err != nil {
			return fmt.Errorf("decoder: failed to read frame %d: %w", pts, err)
		}
		if eof {
			return nil
		}
		if m != nil {
			m.AddTimeToFrame(float64(time.Since(start).Microseconds()) / 1000.0)
			m.IncrementFramesDecoded()
		}

		payload := &frame.Payload{
			BGR:   bgr,
			Raw:   raw.Clone(),
			PTS:   pts,
			Valid: true,
		}

		if res := out.Push(payload); res == queue.Rejected {
			payload.Close()
			return nil
		}
		pts++
	}
}
