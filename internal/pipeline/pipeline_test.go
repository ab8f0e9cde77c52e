package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/nickzt/dashredact/internal/config"
	"github.com/nickzt/dashredact/internal/decode"
	"github.com/nickzt/dashredact/internal/engine"
	"github.com/nickzt/dashredact/internal/frame"
)

type fakeSource struct {
	frames    int
	width     int
	height    int
	delivered int
}

func (s *fakeSource) Open(path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	return nil
}

func (s *fakeSource) ReadFrame() (gocv.Mat, *frame.YUVHandle, bool, error) {
	if s.delivered >= s.frames {
		return gocv.Mat{}, nil, true, nil
	}
	s.delivered++
	raw := &frame.YUVHandle{
		Width: s.width, Height: s.height,
		StrideY: s.width, StrideC: s.width / 2,
		Y: make([]byte, s.width*s.height),
		U: make([]byte, (s.width/2)*(s.height/2)),
		V: make([]byte, (s.width/2)*(s.height/2)),
	}
	return gocv.NewMat(), raw, false, nil
}

func (s *fakeSource) Width() int  { return s.width }
func (s *fakeSource) Height() int { return s.height }
func (s *fakeSource) StreamParams() decode.StreamParams {
	return decode.StreamParams{Width: s.width, Height: s.height}
}
func (s *fakeSource) Close() error { return nil }

type fakeSink struct {
	mu       sync.Mutex
	opened   bool
	written  int
	flushed  bool
	wroteAny bool
}

func (s *fakeSink) Open(path string, params any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened = true
	return nil
}

func (s *fakeSink) Write(raw *frame.YUVHandle, pts uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written++
	return nil
}

func (s *fakeSink) Flush(wroteAnyFrames bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushed = true
	s.wroteAny = wroteAnyFrames
	return nil
}

func (s *fakeSink) Close() error { return nil }

type fakeSegEngine struct{}

func (fakeSegEngine) Infer(gocv.Mat) ([]frame.SegDetection, error) {
	return nil, nil
}

func TestRunDrivesFullPipelineEndToEnd(t *testing.T) {
	dir := t.TempDir()
	initPath := filepath.Join(dir, "init.mp4")
	mediaPath := filepath.Join(dir, "media.m4s")
	if err := os.WriteFile(initPath, []byte("init"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(mediaPath, []byte("media"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.NewConfig(config.EngineSegmentation)
	cfg.InitSegment = initPath
	cfg.MediaSegment = mediaPath
	cfg.OutputDir = dir
	cfg.ModelPath = "model.onnx"
	cfg.Workers = 2
	cfg.BufferSize = 4

	src := &fakeSource{frames: 10, width: 16, height: 16}
	sink := &fakeSink{}

	result, err := Run(context.Background(), RunConfig{
		Config: cfg,
		Source: src,
		Sink:   sink,
		SegEngineFactory: func(modelPath string) (engine.SegEngine, error) {
			return fakeSegEngine{}, nil
		},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.FramesDecoded != 10 {
		t.Fatalf("FramesDecoded = %d, want 10", result.FramesDecoded)
	}
	if result.FramesEncoded != 10 {
		t.Fatalf("FramesEncoded = %d, want 10", result.FramesEncoded)
	}
	if sink.written != 10 {
		t.Fatalf("sink.written = %d, want 10", sink.written)
	}
	if !sink.flushed || !sink.wroteAny {
		t.Fatal("expected sink to be flushed with wroteAnyFrames=true")
	}

	if _, err := os.Stat(filepath.Join(dir, "temp_full_input.m4s")); !os.IsNotExist(err) {
		t.Fatal("expected concatenated temp input to be removed after the run")
	}
}

func TestRunFailsWithoutEngineFactory(t *testing.T) {
	dir := t.TempDir()
	initPath := filepath.Join(dir, "init.mp4")
	mediaPath := filepath.Join(dir, "media.m4s")
	os.WriteFile(initPath, []byte("init"), 0644)
	os.WriteFile(mediaPath, []byte("media"), 0644)

	cfg := config.NewConfig(config.EngineSegmentation)
	cfg.InitSegment = initPath
	cfg.MediaSegment = mediaPath
	cfg.OutputDir = dir
	cfg.ModelPath = "model.onnx"
	cfg.Workers = 1

	_, err := Run(context.Background(), RunConfig{
		Config: cfg,
		Source: &fakeSource{frames: 1, width: 16, height: 16},
		Sink:   &fakeSink{},
		// SegEngineFactory intentionally omitted
	})
	if err == nil {
		t.Fatal("expected error when no segmentation engine factory is provided")
	}
}

func TestRunHonorsCheckFramesCap(t *testing.T) {
	dir := t.TempDir()
	initPath := filepath.Join(dir, "init.mp4")
	mediaPath := filepath.Join(dir, "media.m4s")
	os.WriteFile(initPath, []byte("init"), 0644)
	os.WriteFile(mediaPath, []byte("media"), 0644)

	cfg := config.NewConfig(config.EngineSegmentation)
	cfg.InitSegment = initPath
	cfg.MediaSegment = mediaPath
	cfg.OutputDir = dir
	cfg.ModelPath = "model.onnx"
	cfg.Workers = 2
	cfg.CheckFrames = 3

	sink := &fakeSink{}
	result, err := Run(context.Background(), RunConfig{
		Config: cfg,
		Source: &fakeSource{frames: 100, width: 16, height: 16},
		Sink:   sink,
		SegEngineFactory: func(modelPath string) (engine.SegEngine, error) {
			return fakeSegEngine{}, nil
		},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.FramesDecoded != 3 {
		t.Fatalf("FramesDecoded = %d, want 3", result.FramesDecoded)
	}
}

// TestRunDoesNotDeadlockOnContextCancellation drives a cancelled context
// through the full pipeline with far more frames than fit in the
// decode/infer buffers, so decode and inference workers are guaranteed to
// still be blocked pushing into full channels when the reorder stage
// observes ctx.Done() and returns early. Run must still return instead of
// group.Wait() hanging forever on the stuck producers.
func TestRunDoesNotDeadlockOnContextCancellation(t *testing.T) {
	dir := t.TempDir()
	initPath := filepath.Join(dir, "init.mp4")
	mediaPath := filepath.Join(dir, "media.m4s")
	os.WriteFile(initPath, []byte("init"), 0644)
	os.WriteFile(mediaPath, []byte("media"), 0644)

	cfg := config.NewConfig(config.EngineSegmentation)
	cfg.InitSegment = initPath
	cfg.MediaSegment = mediaPath
	cfg.OutputDir = dir
	cfg.ModelPath = "model.onnx"
	cfg.Workers = 2
	cfg.BufferSize = 2

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		_, err := Run(ctx, RunConfig{
			Config: cfg,
			Source: &fakeSource{frames: 5000, width: 16, height: 16},
			Sink:   &fakeSink{},
			SegEngineFactory: func(modelPath string) (engine.SegEngine, error) {
				return fakeSegEngine{}, nil
			},
		})
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected an error from a cancelled context, got nil")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after context cancellation; pipeline deadlocked")
	}
}
