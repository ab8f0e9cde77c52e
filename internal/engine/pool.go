// Package engine owns the inference engine instances backing the
// redaction pipeline: one independent, non-thread-safe instance per
// inference worker, with a worker-to-instance mapping fixed for the
// whole run so no two goroutines ever call the same engine concurrently.
package engine

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/nickzt/dashredact/internal/frame"
)

// Kind identifies which redaction mode's engine is in use.
type Kind int

const (
	// KindSegmentation runs the fixed-class (person) segmentation model.
	KindSegmentation Kind = iota
	// KindText runs the open-vocabulary text-grounded detector.
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindSegmentation:
		return "seg"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// SizeForKind returns the number of inference workers and the intra-op
// thread count each engine instance should use, for a given amount of
// detected hardware concurrency. Segmentation is light per-frame compute
// and scales with more outer workers; the text-grounded model's
// self-attention is heavy, so it trades outer workers for wider intra-op
// parallelism per worker.
func SizeForKind(kind Kind, hwConcurrency int) (workers, intraThreads int) {
	switch kind {
	case KindText:
		workers = max(1, hwConcurrency/10)
		intraThreads = max(1, hwConcurrency/workers)
		return workers, intraThreads
	default:
		workers = max(1, hwConcurrency/2)
		return workers, 1
	}
}

// SegEngine is the fixed-class segmentation inference contract. Its
// construction and internal model details are out of scope for this
// module; only this calling contract is specified.
type SegEngine interface {
	Infer(bgr gocv.Mat) ([]frame.SegDetection, error)
}

// EngineInfo describes engine backend metadata, used only for metrics
// (spec.md §6).
type EngineInfo struct {
	Backend             string
	Precision           string
	TensorW, TensorH    int
	OptimalIntraThreads int
}

// TextEngine is the open-vocabulary, prompt-driven detection contract.
type TextEngine interface {
	Infer(bgr gocv.Mat, prompt string) ([]frame.TextDetection, error)
	Info() EngineInfo
}

// Pool owns N independent engine instances keyed by worker index. Worker
// i must call only Engine(i) for the lifetime of the pipeline run;
// engines are never migrated between workers.
type Pool[E any] struct {
	engines []E
}

// New wraps an already-constructed slice of engine instances into a Pool.
func New[E any](engines []E) *Pool[E] {
	return &Pool[E]{engines: engines}
}

// Engine returns the engine instance bound to worker i.
func (p *Pool[E]) Engine(i int) *E {
	return &p.engines[i]
}

// Len returns the number of engine instances (equal to worker count N).
func (p *Pool[E]) Len() int {
	return len(p.engines)
}

// SegEngineFactory constructs one segmentation engine instance from a
// model artifact path. Supplied by the caller so this package stays free
// of any concrete inference backend.
type SegEngineFactory func(modelPath string) (SegEngine, error)

// NewSegPool builds N independent segmentation engine instances, one per
// inference worker, using factory to construct each.
func NewSegPool(modelPath string, n int, factory SegEngineFactory) (*Pool[SegEngine], error) {
	if n < 1 {
		return nil, fmt.Errorf("engine pool size must be at least 1, got %d", n)
	}
	engines := make([]SegEngine, n)
	for i := 0; i < n; i++ {
		e, err := factory(modelPath)
		if err != nil {
			return nil, fmt.Errorf("failed to construct segmentation engine %d/%d: %w", i+1, n, err)
		}
		engines[i] = e
	}
	return New(engines), nil
}

// TextEngineFactory constructs one text-grounded engine instance from a
// model artifact path, vocabulary path, and intra-op thread count.
type TextEngineFactory func(modelPath, vocabPath string, intraThreads int) (TextEngine, error)

// NewTextPool builds N independent text-grounded engine instances.
func NewTextPool(modelPath, vocabPath string, n, intraThreads int, factory TextEngineFactory) (*Pool[TextEngine], error) {
	if n < 1 {
		return nil, fmt.Errorf("engine pool size must be at least 1, got %d", n)
	}
	engines := make([]TextEngine, n)
	for i := 0; i < n; i++ {
		e, err := factory(modelPath, vocabPath, intraThreads)
		if err != nil {
			return nil, fmt.Errorf("failed to construct text-grounded engine %d/%d: %w", i+1, n, err)
		}
		engines[i] = e
	}
	return New(engines), nil
}

// DisableCVThreading pins OpenCV to a single internal thread. Called once
// before spawning inference workers so gocv's own thread pool does not
// oversubscribe CPU alongside the N worker goroutines, matching
// `cv::setNumThreads(1)` in the original single-threaded implementation
// this pipeline parallelizes.
func DisableCVThreading() {
	gocv.SetNumThreads(1)
}
