package reporter

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// LogReporter writes redaction-run events to a log file.
type LogReporter struct {
	w                  io.Writer
	mu                 sync.Mutex
	lastProgressBucket int64 // Track progress in 5% buckets
	totalFrame         int64
}

// NewLogReporter creates a new log reporter that writes to the given writer.
func NewLogReporter(w io.Writer) *LogReporter {
	return &LogReporter{
		w:                  w,
		lastProgressBucket: 0,
	}
}

func (r *LogReporter) log(level, format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	msg := fmt.Sprintf(format, args...)
	_, _ = fmt.Fprintf(r.w, "%s [%s] %s\n", timestamp, level, msg)
}

func (r *LogReporter) RunStarted(s RunSummary) {
	r.log("INFO", "=== REDACTION RUN ===")
	r.log("INFO", "Init: %s", s.InitSegment)
	r.log("INFO", "Media: %s", s.MediaSegment)
	r.log("INFO", "Output: %s", s.OutputDir)
	r.log("INFO", "Engine: %s", s.Engine)
	r.log("INFO", "Model: %s", s.Model)
	if s.Prompt != "" {
		r.log("INFO", "Prompt: %s", s.Prompt)
	}
	r.log("INFO", "Workers: %d", s.Workers)
}

func (r *LogReporter) StageProgress(update StageProgress) {
	r.log("INFO", "[%s] %s", strings.ToUpper(update.Stage), update.Message)
}

// SetTotalFrames mirrors TerminalReporter's capability so the 5%-bucket
// log cadence can be computed against a real denominator.
func (r *LogReporter) SetTotalFrames(total int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totalFrame = total
}

func (r *LogReporter) FramesProgress(s FramesSnapshot) {
	r.mu.Lock()
	total := r.totalFrame
	if total <= 0 {
		r.mu.Unlock()
		return
	}
	bucket := (s.FramesEncoded * 100) / total / 5
	if bucket <= r.lastProgressBucket || bucket > 20 {
		r.mu.Unlock()
		return
	}
	r.lastProgressBucket = bucket
	r.mu.Unlock()

	r.log("INFO", "Progress: %d/%d frames (%.1f fps)", s.FramesEncoded, total, s.FPS)
}

func (r *LogReporter) RunComplete(o RunOutcome) {
	r.log("INFO", "=== RESULTS ===")
	r.log("INFO", "Decoded: %d", o.FramesDecoded)
	r.log("INFO", "Encoded: %d", o.FramesEncoded)
	if o.FramesDroppedInvalid > 0 {
		r.log("WARN", "Dropped invalid: %d", o.FramesDroppedInvalid)
	}
	r.log("INFO", "Time: %s (avg %.1f fps)", o.TotalTime.Round(time.Millisecond*100), o.AverageFPS)
	r.log("INFO", "Saved to: %s", o.OutputDir)
}

func (r *LogReporter) Warning(message string) {
	r.log("WARN", "%s", message)
}

func (r *LogReporter) Error(err ReporterError) {
	r.log("ERROR", "%s: %s", err.Title, err.Message)
	if err.Context != "" {
		r.log("ERROR", "  Context: %s", err.Context)
	}
	if err.Suggestion != "" {
		r.log("ERROR", "  Suggestion: %s", err.Suggestion)
	}
}

func (r *LogReporter) Verbose(message string) {
	r.log("DEBUG", "%s", message)
}
