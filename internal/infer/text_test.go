package infer

import (
	"image"
	"testing"

	"gocv.io/x/gocv"

	"github.com/nickzt/dashredact/internal/engine"
	"github.com/nickzt/dashredact/internal/frame"
)

type fakeTextEngine struct {
	detections []frame.TextDetection
	err        error
}

func (f fakeTextEngine) Infer(gocv.Mat, string) ([]frame.TextDetection, error) {
	return f.detections, f.err
}

func (f fakeTextEngine) Info() engine.EngineInfo { return engine.EngineInfo{} }

func TestTextRedactorDrawsOutlineOnMatch(t *testing.T) {
	raw := newRawFrame(40, 40)
	for i := range raw.Y {
		raw.Y[i] = 128
	}
	eng := fakeTextEngine{detections: []frame.TextDetection{
		{Box: image.Rect(5, 5, 25, 25), Text: "license plate", Score: 0.9},
	}}

	redact := TextRedactor(eng, "license plate")
	p := &frame.Payload{Raw: raw, Valid: true}
	if err := redact(p); err != nil {
		t.Fatalf("redact() error = %v", err)
	}

	// Outline pixels (within stroke width of the box edge) must be zeroed.
	if raw.Y[raw.LumaAt(5, 5)] != 0 {
		t.Fatal("outline corner pixel not painted")
	}
}

func TestTextRedactorLeavesInteriorUnpainted(t *testing.T) {
	raw := newRawFrame(40, 40)
	for i := range raw.Y {
		raw.Y[i] = 128
	}
	eng := fakeTextEngine{detections: []frame.TextDetection{
		{Box: image.Rect(0, 0, 20, 20), Text: "plate", Score: 0.9},
	}}

	redact := TextRedactor(eng, "plate")
	p := &frame.Payload{Raw: raw, Valid: true}
	if err := redact(p); err != nil {
		t.Fatalf("redact() error = %v", err)
	}

	if raw.Y[raw.LumaAt(10, 10)] != 128 {
		t.Fatal("interior pixel was painted; expected only an outline stroke")
	}
	if raw.Y[raw.LumaAt(0, 0)] != 0 {
		t.Fatal("outline pixel not painted")
	}
}

func TestTextRedactorNoMatchLeavesLumaByteIdentical(t *testing.T) {
	raw := newRawFrame(40, 40)
	for i := range raw.Y {
		raw.Y[i] = 77
	}
	want := make([]byte, len(raw.Y))
	copy(want, raw.Y)

	eng := fakeTextEngine{detections: nil}
	redact := TextRedactor(eng, "license plate")
	p := &frame.Payload{Raw: raw, Valid: true}
	if err := redact(p); err != nil {
		t.Fatalf("redact() error = %v", err)
	}

	for i, v := range raw.Y {
		if v != want[i] {
			t.Fatalf("Y[%d] changed from %d to %d with no detections", i, want[i], v)
		}
	}
}

func TestTextRedactorSkipsOutOfFrameBox(t *testing.T) {
	raw := newRawFrame(40, 40)
	for i := range raw.Y {
		raw.Y[i] = 128
	}
	eng := fakeTextEngine{detections: []frame.TextDetection{
		{Box: image.Rect(100, 100, 150, 150), Text: "plate", Score: 0.5},
	}}

	redact := TextRedactor(eng, "plate")
	p := &frame.Payload{Raw: raw, Valid: true}
	if err := redact(p); err != nil {
		t.Fatalf("redact() error = %v", err)
	}

	for i, v := range raw.Y {
		if v != 128 {
			t.Fatalf("Y[%d] mutated despite fully out-of-frame box", i)
		}
	}
}
