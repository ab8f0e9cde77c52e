package infer

import (
	"github.com/nickzt/dashredact/internal/engine"
	"github.com/nickzt/dashredact/internal/frame"
)

// outlineStrokeWidth is the stroke width, in luma pixels, of the
// rectangle drawn around each text-grounded detection.
const outlineStrokeWidth = 4

// TextRedactor builds the open-vocabulary redaction routine bound to eng
// and prompt: for every match, it draws a black outline rectangle on the
// luma plane at the detection box clipped to the frame. There is no
// class filter in this mode — every returned detection is painted.
func TextRedactor(eng engine.TextEngine, prompt string) Redactor {
	return func(p *frame.Payload) error {
		width, height := p.Raw.Width, p.Raw.Height

		detections, err := eng.Infer(p.BGR, prompt)
		if err != nil {
			return err
		}

		for _, det := range detections {
			clipped := clipBox(det.Box, width, height)
			if clipped.Empty() {
				continue
			}
			zeroLumaRectOutline(p.Raw, clipped, outlineStrokeWidth)
		}

		return nil
	}
}
