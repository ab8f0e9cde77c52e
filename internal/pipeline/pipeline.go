// Package pipeline wires together the decoder, inference worker pool,
// and reorder/encode stage into a single redaction run.
package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nickzt/dashredact/internal/cliutil"
	"github.com/nickzt/dashredact/internal/config"
	"github.com/nickzt/dashredact/internal/decode"
	"github.com/nickzt/dashredact/internal/engine"
	"github.com/nickzt/dashredact/internal/frame"
	"github.com/nickzt/dashredact/internal/infer"
	"github.com/nickzt/dashredact/internal/metrics"
	"github.com/nickzt/dashredact/internal/queue"
	"github.com/nickzt/dashredact/internal/reorder"
	"github.com/nickzt/dashredact/internal/reporter"
)

// RunConfig bundles the external collaborators a run needs: the
// configuration, the decoder/encoder implementations (out of this
// module's core scope, per the pipeline's decoder/encoder contracts),
// and the engine factories that construct the actual inference backends.
type RunConfig struct {
	Config *config.Config

	Source decode.Source
	Sink   reorder.Sink

	SegEngineFactory  engine.SegEngineFactory
	TextEngineFactory engine.TextEngineFactory

	Reporter reporter.Reporter
}

// Result summarizes a completed run.
type Result struct {
	FramesDecoded        int64
	FramesInferred       int64
	FramesEncoded        int64
	FramesDroppedInvalid int64
	Elapsed              time.Duration
}

// Run executes the nine-step pipeline lifecycle: start metrics, build the
// concatenated input, open the decoder, build the engine pool and open
// the encoder against the decoder's stream parameters, spawn the
// decode and inference stages, drive the reorder/encode stage inline,
// join every worker, flush and close the encoder, clean up the temp
// input, and stop metrics.
func Run(ctx context.Context, rc RunConfig) (Result, error) {
	cfg := rc.Config
	rep := rc.Reporter
	if rep == nil {
		rep = reporter.NullReporter{}
	}

	m := metrics.New()
	m.Start()
	defer m.Stop()

	started := time.Now()

	// Step 1: concatenate init+media into a single temp input the decoder
	// can open as one contiguous container.
	rep.StageProgress(reporter.StageProgress{Stage: "Preparing", Message: "Concatenating init and media segments"})
	tempPath, cleanup, err := cliutil.ConcatSegments(cfg.OutputDir, segmentExtension(cfg.MediaSegment), cfg.InitSegment, cfg.MediaSegment)
	if err != nil {
		return Result{}, fmt.Errorf("pipeline: %w", err)
	}
	defer cleanup()

	// Step 2: open the decoder against the concatenated input.
	if err := rc.Source.Open(tempPath); err != nil {
		return Result{}, fmt.Errorf("pipeline: failed to open decoder: %w", err)
	}
	defer rc.Source.Close()

	m.SetFrameSize(rc.Source.Width(), rc.Source.Height())

	// Step 3: size and build the engine pool for the selected redaction
	// mode, pinning OpenCV to a single internal thread first so its own
	// thread pool doesn't oversubscribe CPU alongside the workers.
	engine.DisableCVThreading()
	workers, intraThreads := cfg.ResolveWorkers()
	m.SetThreadInfo(workers, runtime.NumCPU())

	redactors, err := buildRedactors(cfg, workers, intraThreads, rc.SegEngineFactory, rc.TextEngineFactory, m)
	if err != nil {
		return Result{}, fmt.Errorf("pipeline: %w", err)
	}

	// Step 4: open the encoder using the decoder's own stream parameters,
	// so the encoder never re-derives resolution/color metadata the
	// decoder already read.
	rep.StageProgress(reporter.StageProgress{Stage: "Preparing", Message: "Opening output encoder"})
	if err := rc.Sink.Open(cfg.OutputDir, rc.Source.StreamParams()); err != nil {
		return Result{}, fmt.Errorf("pipeline: failed to open encoder: %w", err)
	}

	rep.RunStarted(reporter.RunSummary{
		InitSegment:  cfg.InitSegment,
		MediaSegment: cfg.MediaSegment,
		OutputDir:    cfg.OutputDir,
		Engine:       string(cfg.Engine),
		Model:        cfg.ModelPath,
		Prompt:       cfg.Prompt,
		Resolution:   fmt.Sprintf("%dx%d", rc.Source.Width(), rc.Source.Height()),
		Workers:      workers,
	})

	decodeCh := queue.New[*frame.Payload](cfg.ResolveBufferSize())
	inferCh := queue.New[*frame.Payload](cfg.ResolveBufferSize())

	// Step 5/6: fan out the decoder producer and the N inference workers,
	// joined with errgroup so Wait returns the first failure (the group's
	// derived context is not used, so no stage is cancelled by it), while
	// the reorder/encode stage runs inline on this goroutine (spec step 7).
	group, _ := errgroup.WithContext(ctx)

	rep.StageProgress(reporter.StageProgress{Stage: "Decoding", Message: "Streaming frames from source"})
	group.Go(func() error {
		return decode.Run(rc.Source, decodeCh, cfg.CheckFrames, m)
	})

	var live atomic.Int64
	live.Store(int64(workers))
	rep.StageProgress(reporter.StageProgress{Stage: "Inferring", Message: fmt.Sprintf("%d inference workers", workers)})
	for i := 0; i < workers; i++ {
		redact := redactors[i]
		group.Go(func() error {
			infer.RunWorker(decodeCh, inferCh, redact, &live, m)
			return nil
		})
	}

	rep.StageProgress(reporter.StageProgress{Stage: "Encoding", Message: "Writing redacted frames in order"})
	if err := reorder.Run(ctx, inferCh, rc.Sink, m, rep); err != nil {
		// reorder.Run stopped short of draining inferCh (a fatal duplicate
		// PTS, or ctx cancellation). The still-running decode and
		// inference-worker goroutines would otherwise block forever
		// pushing into channels nobody pops from anymore, so close both
		// ends here to unblock them before joining the group.
		decodeCh.Close()
		inferCh.Close()
		_ = group.Wait()
		return Result{}, fmt.Errorf("pipeline: reorder/encode stage failed: %w", err)
	}

	if err := group.Wait(); err != nil {
		return Result{}, fmt.Errorf("pipeline: %w", err)
	}

	if err := rc.Sink.Close(); err != nil {
		return Result{}, fmt.Errorf("pipeline: failed to close encoder: %w", err)
	}

	snap := m.Snapshot()
	result := Result{
		FramesDecoded:        snap.FramesDecoded,
		FramesInferred:       snap.FramesInferred,
		FramesEncoded:        snap.FramesEncoded,
		FramesDroppedInvalid: snap.FramesDroppedInvalid,
		Elapsed:              time.Since(started),
	}

	var fps float64
	if result.Elapsed.Seconds() > 0 {
		fps = float64(result.FramesEncoded) / result.Elapsed.Seconds()
	}
	rep.RunComplete(reporter.RunOutcome{
		OutputDir:            cfg.OutputDir,
		FramesDecoded:        result.FramesDecoded,
		FramesEncoded:        result.FramesEncoded,
		FramesDroppedInvalid: result.FramesDroppedInvalid,
		TotalTime:            result.Elapsed,
		AverageFPS:           fps,
	})

	return result, nil
}

// buildRedactors constructs the engine pool for cfg.Engine and returns one
// bound Redactor per worker index, so each worker closure captures only
// its own engine slot and never looks it up again.
func buildRedactors(cfg *config.Config, workers, intraThreads int, segFactory engine.SegEngineFactory, textFactory engine.TextEngineFactory, m *metrics.Registry) ([]infer.Redactor, error) {
	redactors := make([]infer.Redactor, workers)

	switch cfg.Engine {
	case config.EngineText:
		if textFactory == nil {
			return nil, fmt.Errorf("text engine factory not provided")
		}
		pool, err := engine.NewTextPool(cfg.ModelPath, cfg.VocabPath, workers, intraThreads, textFactory)
		if err != nil {
			return nil, err
		}
		if pool.Len() > 0 {
			info := (*pool.Engine(0)).Info()
			m.SetOptimizationInfo(info.Backend, info.Precision, info.TensorW, info.TensorH, intraThreads, info.OptimalIntraThreads)
		}
		for i := 0; i < workers; i++ {
			redactors[i] = infer.TextRedactor(*pool.Engine(i), cfg.Prompt)
		}
	default:
		if segFactory == nil {
			return nil, fmt.Errorf("segmentation engine factory not provided")
		}
		pool, err := engine.NewSegPool(cfg.ModelPath, workers, segFactory)
		if err != nil {
			return nil, err
		}
		for i := 0; i < workers; i++ {
			redactors[i] = infer.SegRedactor(*pool.Engine(i), cfg.ChromaMode)
		}
	}

	return redactors, nil
}

func segmentExtension(mediaPath string) string {
	for i := len(mediaPath) - 1; i >= 0 && mediaPath[i] != '/'; i-- {
		if mediaPath[i] == '.' {
			return mediaPath[i+1:]
		}
	}
	return "mp4"
}
