// Package reporter defines the progress-reporting contract the pipeline
// orchestrator drives, plus terminal and log-file implementations.
package reporter

import "time"

// Reporter receives events from a single redaction run. Implementations
// must be safe for concurrent use: FramesProgress in particular can be
// called from the orchestrator goroutine while StageProgress fires from
// setup code running just before it.
type Reporter interface {
	RunStarted(RunSummary)
	StageProgress(StageProgress)
	FramesProgress(FramesSnapshot)
	RunComplete(RunOutcome)
	Warning(message string)
	Error(err ReporterError)
	Verbose(message string)
}

// RunSummary describes the run before any frame has been processed.
type RunSummary struct {
	InitSegment  string
	MediaSegment string
	OutputDir    string
	Engine       string
	Model        string
	Prompt       string
	Resolution   string
	Workers      int
}

// StageProgress is a coarse-grained lifecycle update ("Decoding",
// "Inferring", "Encoding", ...).
type StageProgress struct {
	Stage   string
	Message string
}

// FramesSnapshot is a fine-grained progress update driven off
// metrics.Snapshot while a run is in flight.
type FramesSnapshot struct {
	FramesDecoded  int64
	FramesInferred int64
	FramesEncoded  int64
	FPS            float64
	Elapsed        time.Duration
}

// RunOutcome is the final summary printed once the pipeline finishes.
type RunOutcome struct {
	OutputDir            string
	FramesDecoded        int64
	FramesEncoded        int64
	FramesDroppedInvalid int64
	TotalTime            time.Duration
	AverageFPS           float64
}

// ReporterError carries a user-facing error with optional remediation hints.
type ReporterError struct {
	Title      string
	Message    string
	Context    string
	Suggestion string
}

// NullReporter discards all updates.
type NullReporter struct{}

func (NullReporter) RunStarted(RunSummary)         {}
func (NullReporter) StageProgress(StageProgress)   {}
func (NullReporter) FramesProgress(FramesSnapshot) {}
func (NullReporter) RunComplete(RunOutcome)        {}
func (NullReporter) Warning(string)                {}
func (NullReporter) Error(ReporterError)           {}
func (NullReporter) Verbose(string)                {}

// MultiReporter fans every event out to a set of reporters, e.g. a
// terminal reporter for the interactive user and a log reporter writing
// to the run's log file at the same time.
type MultiReporter struct {
	reporters []Reporter
}

// NewMultiReporter builds a MultiReporter, skipping any nil entries so
// callers can pass a possibly-nil log reporter (logging disabled)
// unconditionally.
func NewMultiReporter(reporters ...Reporter) *MultiReporter {
	m := &MultiReporter{}
	for _, r := range reporters {
		if r != nil {
			m.reporters = append(m.reporters, r)
		}
	}
	return m
}

func (m *MultiReporter) RunStarted(s RunSummary) {
	for _, r := range m.reporters {
		r.RunStarted(s)
	}
}

func (m *MultiReporter) StageProgress(s StageProgress) {
	for _, r := range m.reporters {
		r.StageProgress(s)
	}
}

func (m *MultiReporter) FramesProgress(s FramesSnapshot) {
	for _, r := range m.reporters {
		r.FramesProgress(s)
	}
}

func (m *MultiReporter) RunComplete(o RunOutcome) {
	for _, r := range m.reporters {
		r.RunComplete(o)
	}
}

func (m *MultiReporter) Warning(message string) {
	for _, r := range m.reporters {
		r.Warning(message)
	}
}

func (m *MultiReporter) Error(err ReporterError) {
	for _, r := range m.reporters {
		r.Error(err)
	}
}

func (m *MultiReporter) Verbose(message string) {
	for _, r := range m.reporters {
		r.Verbose(message)
	}
}
