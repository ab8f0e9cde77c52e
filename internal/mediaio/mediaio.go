// Package mediaio adapts the pipeline's decode.Source and reorder.Sink
// contracts onto concrete media I/O: gocv's VideoCapture for decode, and
// an ffmpeg subprocess (piped raw BGR frames, DASH-muxed output) for
// encode. Both the real demuxer/decoder and the encoder/muxer are out of
// this module's core scope (spec.md §1); this package is the reference
// binding the CLI wires by default.
package mediaio

func clampByte(v float64) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v + 0.5)
}
