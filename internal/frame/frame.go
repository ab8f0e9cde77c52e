// Package frame defines the payload that flows through the redaction
// pipeline and the detection types the inference engines return.
package frame

import (
	"image"

	"gocv.io/x/gocv"
)

// YUVHandle is an owned, decoder-native planar frame (YUV 4:2:0), stored
// at full resolution for the luma plane and half resolution on each axis
// for the two chroma planes. The pipeline mutates Y (and optionally U/V)
// in place before handing the frame to the encoder; it never reuses a
// YUVHandle the decoder might still hold, because Clone always produces
// a fresh copy of the underlying planes.
type YUVHandle struct {
	Width, Height int
	Y, U, V       []byte
	StrideY       int
	StrideC       int
}

// Clone returns a deep copy of the handle so that handing it off to the
// pipeline never shares storage with the decoder's own buffer. The
// decoder stage must call Clone before pushing a payload downstream,
// satisfying the invariant that raw frame ownership transfers wholesale
// on channel handoff.
func (h *YUVHandle) Clone() *YUVHandle {
	clone := &YUVHandle{
		Width:   h.Width,
		Height:  h.Height,
		StrideY: h.StrideY,
		StrideC: h.StrideC,
	}
	clone.Y = append([]byte(nil), h.Y...)
	clone.U = append([]byte(nil), h.U...)
	clone.V = append([]byte(nil), h.V...)
	return clone
}

// LumaAt returns the index into Y for pixel (x, y). Callers must range
// check against Width/Height themselves; this just applies the stride.
func (h *YUVHandle) LumaAt(x, y int) int {
	return y*h.StrideY + x
}

// ChromaAt returns the index into U/V for the downsampled coordinate
// corresponding to full-resolution (x, y).
func (h *YUVHandle) ChromaAt(x, y int) int {
	return (y/2)*h.StrideC + (x / 2)
}

// Payload is the unit that traverses the decode and inference channels.
type Payload struct {
	// BGR is the inference-input view, discarded after the inference
	// stage runs; it is never written back to the encoder.
	BGR gocv.Mat
	// Raw is the owned handle to the decoder's native frame. The
	// inference stage mutates its luma (and, if ChromaMode requests it,
	// chroma) plane in place; the reorder stage hands it to the encoder.
	Raw *YUVHandle
	// PTS is a dense, monotonic sequence number assigned by the decoder
	// stage — never the container's raw timestamp.
	PTS uint64
	// Valid is false for a sentinel/error payload: it still carries its
	// PTS through the pipeline so ordering is preserved, but is never
	// handed to the encoder.
	Valid bool
}

// Close releases the BGR Mat. The raw frame has no OS-level resource to
// release; it is reclaimed by the garbage collector once the reorder
// stage drops its reference.
func (p *Payload) Close() {
	if !p.BGR.Empty() {
		_ = p.BGR.Close()
	}
}

// SegDetection is one result of the fixed-class segmentation engine.
type SegDetection struct {
	ClassID int
	Box     image.Rectangle
	Mask    *gocv.Mat // binary mask sized to Box; nil if the detection has none
}

// TextDetection is one result of the open-vocabulary text-grounded engine.
type TextDetection struct {
	Box   image.Rectangle
	Text  string
	Score float32
}
