package infer

import (
	"image"

	"github.com/nickzt/dashredact/internal/engine"
	"github.com/nickzt/dashredact/internal/frame"
)

// personClassID is the fixed-class segmentation engine's class index for
// "person" (COCO convention).
const personClassID = 0

// SegRedactor builds the segmentation redaction routine bound to eng: for
// every person detection with a non-empty mask, it paints the mask over
// the luma plane (and, if chromaMode requests it, the chroma planes)
// within the detection box clipped to the frame.
func SegRedactor(eng engine.SegEngine, chromaMode ChromaMode) Redactor {
	return func(p *frame.Payload) error {
		width, height := p.Raw.Width, p.Raw.Height

		detections, err := eng.Infer(p.BGR)
		if err != nil {
			return err
		}

		for _, det := range detections {
			if det.ClassID != personClassID || det.Mask == nil {
				continue
			}

			clipped := clipBox(det.Box, width, height)
			if clipped.Empty() {
				continue
			}

			maskBounds := image.Rect(0, 0, det.Mask.Cols(), det.Mask.Rows())
			maskROI := clipped.Sub(det.Box.Min).Intersect(maskBounds)
			if maskROI.Dx() != clipped.Dx() || maskROI.Dy() != clipped.Dy() {
				// Malformed mask: its bounds don't cover the clipped box.
				continue
			}

			applyMask(p.Raw, clipped, det.Mask, det.Box.Min)
			if chromaMode == ZeroChroma {
				zeroChromaRect(p.Raw, clipped)
			}
		}

		return nil
	}
}

// maskROIReader is satisfied by the mask image type (gocv.Mat). Kept as
// a narrow interface so this file does not need to special-case gocv's
// concrete pixel-access API beyond what redaction needs.
type maskROIReader interface {
	GetUCharAt(row, col int) uint8
	Cols() int
	Rows() int
}

// applyMask zeroes luma samples within region wherever the mask is set,
// translating region coordinates back into the mask's own coordinate
// space via maskOrigin (the detection box's top-left corner).
func applyMask(raw *frame.YUVHandle, region image.Rectangle, mask maskROIReader, maskOrigin image.Point) {
	for y := region.Min.Y; y < region.Max.Y; y++ {
		for x := region.Min.X; x < region.Max.X; x++ {
			my := y - maskOrigin.Y
			mx := x - maskOrigin.X
			if mask.GetUCharAt(my, mx) != 0 {
				raw.Y[raw.LumaAt(x, y)] = 0
			}
		}
	}
}
