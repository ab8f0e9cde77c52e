package mediaio

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/nickzt/dashredact/internal/decode"
	"github.com/nickzt/dashredact/internal/frame"
)

// CaptureSource implements decode.Source over gocv's VideoCapture. Width
// and height are taken from the first decoded frame rather than a
// container-level property query: Open reads that frame ahead and buffers
// it, so the resolution is known as soon as Open returns.
type CaptureSource struct {
	vc            *gocv.VideoCapture
	width, height int
	buffered      *gocv.Mat
	atEOF         bool
}

// Open opens path for decoding and primes width/height from its first frame.
func (s *CaptureSource) Open(path string) error {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return fmt.Errorf("mediaio: failed to open %s: %w", path, err)
	}
	s.vc = vc

	img := gocv.NewMat()
	if ok := vc.Read(&img); !ok || img.Empty() {
		img.Close()
		s.atEOF = true
		return nil
	}
	s.width = img.Cols()
	s.height = img.Rows()
	s.buffered = &img
	return nil
}

// ReadFrame returns the next decoded BGR frame plus its derived YUV 4:2:0
// planar handle.
func (s *CaptureSource) ReadFrame() (gocv.Mat, *frame.YUVHandle, bool, error) {
	if s.atEOF {
		return gocv.Mat{}, nil, true, nil
	}

	var img gocv.Mat
	if s.buffered != nil {
		img = *s.buffered
		s.buffered = nil
	} else {
		img = gocv.NewMat()
		if ok := s.vc.Read(&img); !ok || img.Empty() {
			img.Close()
			s.atEOF = true
			return gocv.Mat{}, nil, true, nil
		}
	}

	raw := bgrToYUV420(img, s.width, s.height)
	return img, raw, false, nil
}

// Width reports the decoded frame width.
func (s *CaptureSource) Width() int { return s.width }

// Height reports the decoded frame height.
func (s *CaptureSource) Height() int { return s.height }

// StreamParams reports the resolution the encoder needs to open its output.
func (s *CaptureSource) StreamParams() decode.StreamParams {
	return decode.StreamParams{Width: s.width, Height: s.height}
}

// Close releases the underlying VideoCapture and any buffered frame.
func (s *CaptureSource) Close() error {
	if s.buffered != nil {
		_ = s.buffered.Close()
		s.buffered = nil
	}
	if s.vc == nil {
		return nil
	}
	return s.vc.Close()
}

// bgrToYUV420 derives a YUV 4:2:0 planar handle from a BGR frame using the
// BT.601 studio-range conversion, subsampling chroma over 2x2 luma blocks.
func bgrToYUV420(img gocv.Mat, w, h int) *frame.YUVHandle {
	data := img.ToBytes()
	raw := &frame.YUVHandle{
		Width: w, Height: h,
		StrideY: w, StrideC: w / 2,
		Y: make([]byte, w*h),
		U: make([]byte, (w/2)*(h/2)),
		V: make([]byte, (w/2)*(h/2)),
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 3
			b, g, r := float64(data[i]), float64(data[i+1]), float64(data[i+2])
			raw.Y[raw.LumaAt(x, y)] = clampByte(0.257*r + 0.504*g + 0.098*b + 16)
		}
	}
	for cy := 0; cy < h/2; cy++ {
		for cx := 0; cx < w/2; cx++ {
			x, y := cx*2, cy*2
			i := (y*w + x) * 3
			b, g, r := float64(data[i]), float64(data[i+1]), float64(data[i+2])
			ci := raw.ChromaAt(x, y)
			raw.U[ci] = clampByte(-0.148*r - 0.291*g + 0.439*b + 128)
			raw.V[ci] = clampByte(0.439*r - 0.368*g - 0.071*b + 128)
		}
	}
	return raw
}
