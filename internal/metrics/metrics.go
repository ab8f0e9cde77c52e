// Package metrics provides a process-wide registry of pipeline counters
// and timing accumulators, grounded on the fixed-field metrics object a
// video pipeline of this shape has always carried: integer counters
// updated atomically, floating accumulators guarded by a mutex, and a
// start/stop lifecycle bracketing a run.
package metrics

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Registry holds counters and accumulators for a single pipeline run.
// Unlike a process-global singleton, callers construct one per run and
// pass it explicitly through the pipeline.
type Registry struct {
	framesDecoded        atomic.Int64
	framesInferred       atomic.Int64
	framesEncoded        atomic.Int64
	framesDroppedInvalid atomic.Int64

	frameWidth  atomic.Int64
	frameHeight atomic.Int64

	numWorkers    atomic.Int64
	hwConcurrency atomic.Int64

	mu                     sync.Mutex
	totalTimeToFrameMs     float64
	totalTimeToConvertMs   float64
	totalTimeToInferenceMs float64
	inferenceBackend       string
	modelPrecision         string
	tensorWidth            int
	tensorHeight           int
	intraOpThreads         int
	optimalIntraThreads    int

	startTime time.Time
	endTime   time.Time
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{inferenceBackend: "CPU", modelPrecision: "FP32"}
}

// Start records the beginning of a pipeline run.
func (r *Registry) Start() { r.startTime = time.Now() }

// Stop records the end of a pipeline run.
func (r *Registry) Stop() { r.endTime = time.Now() }

// IncrementFramesDecoded bumps the decoded-frame counter by one.
func (r *Registry) IncrementFramesDecoded() { r.framesDecoded.Add(1) }

// IncrementFramesInferred bumps the inferred-frame counter by one.
func (r *Registry) IncrementFramesInferred() { r.framesInferred.Add(1) }

// IncrementFramesEncoded bumps the encoded-frame counter by one.
func (r *Registry) IncrementFramesEncoded() { r.framesEncoded.Add(1) }

// IncrementFramesDroppedInvalid bumps the dropped-invalid-frame counter by one.
func (r *Registry) IncrementFramesDroppedInvalid() { r.framesDroppedInvalid.Add(1) }

// AddTimeToFrame accumulates milliseconds spent decoding a frame.
func (r *Registry) AddTimeToFrame(ms float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totalTimeToFrameMs += ms
}

// AddTimeToConversion accumulates milliseconds spent on BGR conversion.
func (r *Registry) AddTimeToConversion(ms float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totalTimeToConvertMs += ms
}

// AddTimeToInference accumulates milliseconds spent inside engine.Infer.
func (r *Registry) AddTimeToInference(ms float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totalTimeToInferenceMs += ms
}

// SetFrameSize records the decoded frame resolution.
func (r *Registry) SetFrameSize(w, h int) {
	r.frameWidth.Store(int64(w))
	r.frameHeight.Store(int64(h))
}

// SetThreadInfo records worker count and detected hardware concurrency.
func (r *Registry) SetThreadInfo(workers, hwConcurrency int) {
	r.numWorkers.Store(int64(workers))
	r.hwConcurrency.Store(int64(hwConcurrency))
}

// SetOptimizationInfo records engine backend metadata, used only for
// reporting (spec.md §6's Info() contract).
func (r *Registry) SetOptimizationInfo(backend, precision string, tensorW, tensorH, intraThreads, optimalThreads int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inferenceBackend = backend
	r.modelPrecision = precision
	r.tensorWidth = tensorW
	r.tensorHeight = tensorH
	r.intraOpThreads = intraThreads
	r.optimalIntraThreads = optimalThreads
}

// Snapshot is a consistent point-in-time copy of the registry, taken
// under the same mutex guarding the float accumulators so formatting
// never tears a concurrent write.
type Snapshot struct {
	FramesDecoded        int64
	FramesInferred       int64
	FramesEncoded        int64
	FramesDroppedInvalid int64
	FrameWidth           int64
	FrameHeight          int64
	NumWorkers           int64
	HWConcurrency        int64
	TotalTimeToFrameMs   float64
	TotalTimeToConvertMs float64
	TotalTimeToInferMs   float64
	InferenceBackend     string
	ModelPrecision       string
	TensorWidth          int
	TensorHeight         int
	IntraOpThreads       int
	OptimalIntraThreads  int
	Duration             time.Duration
}

// Snapshot takes a consistent reading of every field.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	end := r.endTime
	if end.IsZero() {
		end = time.Now()
	}

	return Snapshot{
		FramesDecoded:        r.framesDecoded.Load(),
		FramesInferred:       r.framesInferred.Load(),
		FramesEncoded:        r.framesEncoded.Load(),
		FramesDroppedInvalid: r.framesDroppedInvalid.Load(),
		FrameWidth:           r.frameWidth.Load(),
		FrameHeight:          r.frameHeight.Load(),
		NumWorkers:           r.numWorkers.Load(),
		HWConcurrency:        r.hwConcurrency.Load(),
		TotalTimeToFrameMs:   r.totalTimeToFrameMs,
		TotalTimeToConvertMs: r.totalTimeToConvertMs,
		TotalTimeToInferMs:   r.totalTimeToInferenceMs,
		InferenceBackend:     r.inferenceBackend,
		ModelPrecision:       r.modelPrecision,
		TensorWidth:          r.tensorWidth,
		TensorHeight:         r.tensorHeight,
		IntraOpThreads:       r.intraOpThreads,
		OptimalIntraThreads:  r.optimalIntraThreads,
		Duration:             end.Sub(r.startTime),
	}
}

// String renders a human-readable metrics report. Printing it is left to
// the caller since metrics printing is an ambient concern, not part of
// the core pipeline.
func (s Snapshot) String() string {
	durationMs := s.Duration.Milliseconds()
	var fps float64
	if s.FramesEncoded > 0 && durationMs > 0 {
		fps = float64(s.FramesEncoded) * 1000.0 / float64(durationMs)
	}

	var avgT2F, avgTTC, avgTTI float64
	if s.FramesDecoded > 0 {
		avgT2F = s.TotalTimeToFrameMs / float64(s.FramesDecoded)
		avgTTC = s.TotalTimeToConvertMs / float64(s.FramesDecoded)
	}
	if s.FramesInferred > 0 {
		avgTTI = s.TotalTimeToInferMs / float64(s.FramesInferred)
	}

	return fmt.Sprintf(
		"=== Video Processing Metrics ===\n"+
			"Hardware Concurrency: %d Cores\n"+
			"Inference Workers: %d Threads\n"+
			"IntraOp Threads/Worker: %d\n"+
			"Optimal Threads/Worker: %d\n"+
			"Inference Backend: %s (%s)\n"+
			"Frame Size: %dx%d\n"+
			"Tensor Resolution: %dx%d\n"+
			"Total Time: %d ms\n"+
			"Frames Decoded: %d\n"+
			"Frames Inferred: %d\n"+
			"Frames Encoded: %d\n"+
			"Frames Dropped (invalid): %d\n"+
			"Average FPS: %.2f\n"+
			"Average Time to Frame (T2F): %.2f ms\n"+
			"Average Time to Conversion (TTC): %.2f ms\n"+
			"Average Time to Inference (TTI): %.2f ms\n"+
			"================================\n",
		s.HWConcurrency, s.NumWorkers, s.IntraOpThreads, s.OptimalIntraThreads,
		s.InferenceBackend, s.ModelPrecision,
		s.FrameWidth, s.FrameHeight, s.TensorWidth, s.TensorHeight,
		durationMs, s.FramesDecoded, s.FramesInferred, s.FramesEncoded, s.FramesDroppedInvalid,
		fps, avgT2F, avgTTC, avgTTI,
	)
}
