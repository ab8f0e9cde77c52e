// Package infer runs the inference stage: N workers, one per engine pool
// slot, each popping decoded payloads, running the redaction routine
// bound to the active engine kind, and forwarding the mutated payload.
package infer

import (
	"image"

	"github.com/nickzt/dashredact/internal/frame"
)

// ChromaMode controls whether segmentation redaction additionally zeroes
// the chroma planes. Reference behavior is luma-only: painting only the
// Y plane leaves chroma intact, which on playback reads as near-black
// rather than perfectly neutral gray (spec.md §9's open question).
type ChromaMode int

const (
	// LumaOnly matches reference behavior: only the Y plane is zeroed.
	LumaOnly ChromaMode = iota
	// ZeroChroma additionally zeroes U and V at the downsampled ROI, for
	// callers that want a neutral-gray result instead.
	ZeroChroma
)

// Redactor mutates a payload's raw luma (and optionally chroma) plane in
// place, given its already-populated BGR inference input. It is the
// shared shape both redaction routines (segmentation, text-grounded)
// implement, so a single worker loop can drive either.
type Redactor func(p *frame.Payload) error

// clipBox intersects a detection box with the frame rectangle. Returns
// the empty rectangle if there is no overlap.
func clipBox(box image.Rectangle, width, height int) image.Rectangle {
	return box.Intersect(image.Rect(0, 0, width, height))
}

// zeroLumaRect sets every luma sample within rect to 0.
func zeroLumaRect(raw *frame.YUVHandle, rect image.Rectangle) {
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			raw.Y[raw.LumaAt(x, y)] = 0
		}
	}
}

// zeroLumaRectOutline sets luma samples to 0 along a stroke-pixel-wide
// outline of rect (not the filled interior).
func zeroLumaRectOutline(raw *frame.YUVHandle, rect image.Rectangle, stroke int) {
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			onEdge := x < rect.Min.X+stroke || x >= rect.Max.X-stroke ||
				y < rect.Min.Y+stroke || y >= rect.Max.Y-stroke
			if onEdge {
				raw.Y[raw.LumaAt(x, y)] = 0
			}
		}
	}
}

// zeroChromaRect sets every chroma sample whose full-resolution
// coordinate falls within rect to 0, on both U and V planes.
func zeroChromaRect(raw *frame.YUVHandle, rect image.Rectangle) {
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			idx := raw.ChromaAt(x, y)
			raw.U[idx] = 0
			raw.V[idx] = 0
		}
	}
}
