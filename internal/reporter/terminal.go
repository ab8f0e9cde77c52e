package reporter

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

// TerminalReporter outputs human-friendly text to the terminal.
type TerminalReporter struct {
	mu         sync.Mutex
	progress   *progressbar.ProgressBar
	maxPercent int64
	lastStage  string
	verbose    bool
	totalFrame int64
	cyan       *color.Color
	green      *color.Color
	yellow     *color.Color
	red        *color.Color
	magenta    *color.Color
	bold       *color.Color
	dim        *color.Color
}

// NewTerminalReporter creates a new terminal reporter with verbose mode disabled.
func NewTerminalReporter() *TerminalReporter {
	return NewTerminalReporterVerbose(false)
}

// NewTerminalReporterVerbose creates a new terminal reporter with configurable verbose mode.
func NewTerminalReporterVerbose(verbose bool) *TerminalReporter {
	return &TerminalReporter{
		verbose: verbose,
		cyan:    color.New(color.FgCyan, color.Bold),
		green:   color.New(color.FgGreen),
		yellow:  color.New(color.FgYellow, color.Bold),
		red:     color.New(color.FgRed, color.Bold),
		magenta: color.New(color.FgMagenta),
		bold:    color.New(color.Bold),
		dim:     color.New(color.Faint),
	}
}

// labelWidth is the global width for all labels to ensure consistent alignment.
const labelWidth = 14

func (r *TerminalReporter) printLabel(label, value string) {
	paddedLabel := fmt.Sprintf("%-*s", labelWidth, label)
	fmt.Printf("  %s %s\n", r.bold.Sprint(paddedLabel), value)
}

func (r *TerminalReporter) RunStarted(s RunSummary) {
	fmt.Println()
	_, _ = r.cyan.Println("REDACTION RUN")
	r.printLabel("Init:", s.InitSegment)
	r.printLabel("Media:", s.MediaSegment)
	r.printLabel("Output:", s.OutputDir)
	r.printLabel("Engine:", s.Engine)
	r.printLabel("Model:", s.Model)
	if s.Prompt != "" {
		r.printLabel("Prompt:", s.Prompt)
	}
	if s.Resolution != "" {
		r.printLabel("Resolution:", s.Resolution)
	}
	r.printLabel("Workers:", fmt.Sprintf("%d", s.Workers))
}

func (r *TerminalReporter) StageProgress(update StageProgress) {
	r.mu.Lock()
	if r.lastStage != update.Stage {
		r.mu.Unlock()
		fmt.Println()
		_, _ = r.cyan.Println(strings.ToUpper(update.Stage))
		r.mu.Lock()
		r.lastStage = update.Stage
	}
	r.mu.Unlock()
	fmt.Printf("  %s %s\n", r.magenta.Sprint("›"), update.Message)
}

// startProgressLocked lazily creates the frames-encoded progress bar on
// the first snapshot, whether or not a total frame count has been set.
func (r *TerminalReporter) startProgressLocked() {
	if r.progress != nil {
		return
	}
	r.progress = progressbar.NewOptions64(
		100,
		progressbar.OptionSetDescription(""),
		progressbar.OptionSetWidth(40),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "Redacting [",
			BarEnd:        "]",
		}),
	)
}

func (r *TerminalReporter) FramesProgress(s FramesSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.startProgressLocked()

	var percent int64
	if r.totalFrame > 0 {
		percent = (s.FramesEncoded * 100) / r.totalFrame
		if percent > 100 {
			percent = 100
		}
	}
	if percent >= r.maxPercent {
		r.maxPercent = percent
		_ = r.progress.Set64(percent)
	}

	r.progress.Describe(fmt.Sprintf("decoded %d, inferred %d, encoded %d, fps %.1f",
		s.FramesDecoded, s.FramesInferred, s.FramesEncoded, s.FPS))
}

func (r *TerminalReporter) RunComplete(o RunOutcome) {
	r.mu.Lock()
	if r.progress != nil {
		_ = r.progress.Finish()
		r.progress = nil
	}
	r.mu.Unlock()

	fmt.Println()
	_, _ = r.cyan.Println("RESULTS")
	r.printLabel("Decoded:", fmt.Sprintf("%d", o.FramesDecoded))
	r.printLabel("Encoded:", fmt.Sprintf("%d", o.FramesEncoded))
	if o.FramesDroppedInvalid > 0 {
		r.printLabel("Dropped:", r.yellow.Sprintf("%d invalid", o.FramesDroppedInvalid))
	}
	r.printLabel("Time:", fmt.Sprintf("%s (avg %.1f fps)", o.TotalTime.Round(1e8), o.AverageFPS))
	r.printLabel("Saved to:", r.green.Sprint(o.OutputDir))
	fmt.Println()
	fmt.Printf("%s %s\n", r.green.Add(color.Bold).Sprint("✓"), r.bold.Sprint("redaction complete"))
}

func (r *TerminalReporter) Warning(message string) {
	fmt.Println()
	_, _ = r.yellow.Printf("WARN: %s\n", message)
}

func (r *TerminalReporter) Error(err ReporterError) {
	_, _ = fmt.Fprintln(os.Stderr)
	_, _ = r.red.Fprintf(os.Stderr, "ERROR %s\n", err.Title)
	_, _ = fmt.Fprintf(os.Stderr, "  %s\n", err.Message)
	if err.Context != "" {
		_, _ = fmt.Fprintf(os.Stderr, "  Context: %s\n", err.Context)
	}
	if err.Suggestion != "" {
		_, _ = fmt.Fprintf(os.Stderr, "  Suggestion: %s\n", err.Suggestion)
	}
}

func (r *TerminalReporter) Verbose(message string) {
	if !r.verbose {
		return
	}
	fmt.Printf("  %s %s\n", r.dim.Sprint("›"), r.dim.Sprint(message))
}

// SetTotalFrames lets the caller give the progress bar a denominator
// once the decoder reports frame count (or checkFrames caps it); without
// it, FramesProgress still reports counts but the bar stays at 0%.
func (r *TerminalReporter) SetTotalFrames(total int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totalFrame = total
}
