package mediaio

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/nickzt/dashredact/internal/decode"
	"github.com/nickzt/dashredact/internal/frame"
)

const defaultFPS = 25.0

// DashSink implements reorder.Sink by piping raw BGR frames into an
// ffmpeg subprocess that muxes them into a DASH-segmented output (spec.md
// §6's 2s/5/5 window), grounded on the teacher's SVT-AV1 subprocess
// wrapping (internal/encoder) and on the pack's own ffmpeg-stdin-pipe
// idiom for frame-by-frame encoding (n0remac-robot-webrtc/webrtc/client.go).
type DashSink struct {
	FPS float64

	cmd           *exec.Cmd
	stdin         io.WriteCloser
	width, height int
	wroteAny      bool
}

// Open starts the ffmpeg subprocess, configured for the resolution params
// reports, writing a DASH manifest and segments under dir.
func (s *DashSink) Open(dir string, params any) error {
	sp, ok := params.(decode.StreamParams)
	if !ok {
		return fmt.Errorf("mediaio: DashSink requires decode.StreamParams, got %T", params)
	}
	s.width, s.height = sp.Width, sp.Height

	fps := s.FPS
	if fps <= 0 {
		fps = defaultFPS
	}

	manifest := filepath.Join(dir, "manifest.mpd")
	args := []string{
		"-y", "-hide_banner", "-loglevel", "warning",
		"-f", "rawvideo", "-pix_fmt", "bgr24",
		"-s", fmt.Sprintf("%dx%d", s.width, s.height),
		"-r", fmt.Sprintf("%g", fps),
		"-i", "pipe:0",
		"-c:v", "libx264",
		"-f", "dash",
		"-seg_duration", "2",
		"-window_size", "5",
		"-extra_window_size", "5",
		"-use_template", "1",
		"-use_timeline", "1",
		manifest,
	}

	cmd := exec.Command("ffmpeg", args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("mediaio: failed to open ffmpeg stdin pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("mediaio: failed to start ffmpeg: %w", err)
	}

	s.cmd = cmd
	s.stdin = stdin
	return nil
}

// Write converts raw to interleaved BGR and writes it to ffmpeg's stdin.
func (s *DashSink) Write(raw *frame.YUVHandle, pts uint64) error {
	if _, err := s.stdin.Write(yuv420ToBGR(raw)); err != nil {
		return fmt.Errorf("mediaio: failed to write frame %d: %w", pts, err)
	}
	return nil
}

// Flush records whether any frame reached ffmpeg's stdin; ffmpeg only
// finalizes the manifest once stdin closes, which Close handles. Per
// spec.md §4.7, a run with zero frames must exit 0 with no trailer
// written, so Close skips treating ffmpeg's exit status as fatal in that
// case — ffmpeg exits non-zero when asked to mux an empty rawvideo stream.
func (s *DashSink) Flush(wroteAnyFrames bool) error {
	s.wroteAny = wroteAnyFrames
	return nil
}

// Close closes ffmpeg's stdin and waits for it to finish muxing.
func (s *DashSink) Close() error {
	if s.stdin != nil {
		_ = s.stdin.Close()
	}
	if s.cmd == nil {
		return nil
	}
	if err := s.cmd.Wait(); err != nil && s.wroteAny {
		return fmt.Errorf("mediaio: ffmpeg exited with error: %w", err)
	}
	return nil
}

// yuv420ToBGR converts a YUV 4:2:0 planar handle back to interleaved BGR
// bytes using the BT.601 studio-range inverse conversion.
func yuv420ToBGR(raw *frame.YUVHandle) []byte {
	w, h := raw.Width, raw.Height
	out := make([]byte, w*h*3)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			yy := float64(raw.Y[raw.LumaAt(x, y)]) - 16
			ci := raw.ChromaAt(x, y)
			u := float64(raw.U[ci]) - 128
			v := float64(raw.V[ci]) - 128

			r := 1.164*yy + 1.596*v
			g := 1.164*yy - 0.392*u - 0.813*v
			b := 1.164*yy + 2.017*u

			o := (y*w + x) * 3
			out[o] = clampByte(b)
			out[o+1] = clampByte(g)
			out[o+2] = clampByte(r)
		}
	}
	return out
}
