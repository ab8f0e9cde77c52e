// Package cascadeseg provides a Haar-cascade-backed segmentation engine: a
// minimal, self-contained SegEngine that needs no external model runtime,
// usable when no neural segmentation backend is configured.
package cascadeseg

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/nickzt/dashredact/internal/frame"
)

// Engine runs a Haar cascade classifier and reports each detection as a
// person-class SegDetection. A cascade only yields a bounding box, never a
// pixel mask, so each detection carries a full-box mask (every pixel set)
// rather than a true per-pixel silhouette.
type Engine struct {
	classifier gocv.CascadeClassifier
}

// New loads a cascade classifier XML file (e.g. haarcascade_fullbody.xml).
func New(cascadePath string) (*Engine, error) {
	c := gocv.NewCascadeClassifier()
	if !c.Load(cascadePath) {
		c.Close()
		return nil, fmt.Errorf("cascadeseg: failed to load cascade file %s", cascadePath)
	}
	return &Engine{classifier: c}, nil
}

// Close releases the underlying classifier.
func (e *Engine) Close() error {
	return e.classifier.Close()
}

// Infer runs the cascade over bgr and returns one full-box-mask detection
// per match.
func (e *Engine) Infer(bgr gocv.Mat) ([]frame.SegDetection, error) {
	rects := e.classifier.DetectMultiScale(bgr)
	dets := make([]frame.SegDetection, 0, len(rects))
	for _, r := range rects {
		mask := gocv.NewMatWithSize(r.Dy(), r.Dx(), gocv.MatTypeCV8UC1)
		for y := 0; y < r.Dy(); y++ {
			for x := 0; x < r.Dx(); x++ {
				mask.SetUCharAt(y, x, 255)
			}
		}
		dets = append(dets, frame.SegDetection{
			ClassID: 0,
			Box:     r,
			Mask:    &mask,
		})
	}
	return dets, nil
}
