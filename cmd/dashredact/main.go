// Package main provides the CLI entry point for dashredact.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nickzt/dashredact/internal/cascadeseg"
	"github.com/nickzt/dashredact/internal/cliutil"
	"github.com/nickzt/dashredact/internal/config"
	"github.com/nickzt/dashredact/internal/engine"
	"github.com/nickzt/dashredact/internal/infer"
	"github.com/nickzt/dashredact/internal/logging"
	"github.com/nickzt/dashredact/internal/mediaio"
	"github.com/nickzt/dashredact/internal/pipeline"
	"github.com/nickzt/dashredact/internal/reporter"
)

const (
	appName    = "dashredact"
	appVersion = "0.1.0"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "redact":
		if err := runRedact(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version", "--version", "-v":
		fmt.Printf("%s version %s\n", appName, appVersion)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - redact people or prompted objects from a segmented video asset

Usage:
  %s <command> [options]

Commands:
  redact    Run the redaction pipeline over an init+media segment pair
  version   Print version information
  help      Show this help message

Run '%s redact --help' for redact command options.
`, appName, appName, appName)
}

// redactArgs holds the parsed arguments for the redact command.
type redactArgs struct {
	engine      string
	initPath    string
	mediaPath   string
	outputDir   string
	logDir      string
	modelPath   string
	vocabPath   string
	prompt      string
	chromaZero  bool
	checkframes int
	workers     int
	buffer      int
	verbose     bool
	noLog       bool
}

func runRedact(args []string) error {
	fs := flag.NewFlagSet("redact", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Redact people or prompted objects from a segmented video asset.

Usage:
  %s redact [options]

Required:
  --media <PATH>          Media segment path
  --out <PATH>            Output directory
  --model <PATH>          Segmentation cascade file (--engine=seg) or
                          detection model path (--engine=text)
  --prompt <TEXT>         Required when --engine=text

Options:
  --init <PATH>           Init segment path (optional; a media-only run
                          concatenates nothing)
  --engine {seg|text}     Redaction mode. Default: seg
  --vocab <PATH>          Vocabulary file for --engine=text
  --chroma-zero           Also zero chroma samples under the mask (seg mode)
  --checkframes <N>       Stop after N decoded frames. Default: unbounded
  --workers <N>           Override computed inference worker count
  --buffer <N>            Decode/infer channel capacity override
  -v, --verbose           Enable verbose output
  --log-dir <PATH>        Log directory (defaults to ~/.local/state/dashredact/logs)
  --no-log                Disable log file creation
`, appName)
	}

	var ra redactArgs
	fs.StringVar(&ra.engine, "engine", "seg", "Redaction engine: seg or text")
	fs.StringVar(&ra.initPath, "init", "", "Init segment path")
	fs.StringVar(&ra.mediaPath, "media", "", "Media segment path")
	fs.StringVar(&ra.outputDir, "out", "", "Output directory")
	fs.StringVar(&ra.modelPath, "model", "", "Model or cascade path")
	fs.StringVar(&ra.vocabPath, "vocab", "", "Vocabulary path (text engine)")
	fs.StringVar(&ra.prompt, "prompt", "", "Prompt text (text engine)")
	fs.BoolVar(&ra.chromaZero, "chroma-zero", false, "Also zero chroma under the mask")
	fs.IntVar(&ra.checkframes, "checkframes", 0, "Stop after N decoded frames")
	fs.IntVar(&ra.workers, "workers", 0, "Override computed worker count")
	fs.IntVar(&ra.buffer, "buffer", 0, "Decode/infer channel capacity override")
	fs.BoolVar(&ra.verbose, "v", false, "Enable verbose output")
	fs.BoolVar(&ra.verbose, "verbose", false, "Enable verbose output")
	fs.StringVar(&ra.logDir, "log-dir", "", "Log directory")
	fs.BoolVar(&ra.noLog, "no-log", false, "Disable log file creation")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if ra.mediaPath == "" {
		return fmt.Errorf("media segment path is required (--media)")
	}
	if ra.outputDir == "" {
		return fmt.Errorf("output directory is required (--out)")
	}
	if ra.modelPath == "" {
		return fmt.Errorf("model path is required (--model)")
	}

	return executeRedact(ra)
}

func executeRedact(ra redactArgs) error {
	if err := os.MkdirAll(ra.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := cliutil.EnsureDirectoryWritable(ra.outputDir); err != nil {
		return fmt.Errorf("output directory not usable: %w", err)
	}

	logDir := ra.logDir
	if logDir == "" {
		logDir = logging.DefaultLogDir()
	}
	logger, err := logging.Setup(logDir, ra.verbose, ra.noLog, os.Args)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	if logger != nil {
		defer func() { _ = logger.Close() }()
	}

	engineKind := config.EngineSegmentation
	if ra.engine == string(config.EngineText) {
		engineKind = config.EngineText
	}

	cfg := config.NewConfig(engineKind)
	cfg.InitSegment = ra.initPath
	cfg.MediaSegment = ra.mediaPath
	cfg.OutputDir = ra.outputDir
	cfg.LogDir = logDir
	cfg.ModelPath = ra.modelPath
	cfg.VocabPath = ra.vocabPath
	cfg.Prompt = ra.prompt
	cfg.CheckFrames = ra.checkframes
	cfg.Workers = ra.workers
	cfg.BufferSize = ra.buffer
	cfg.Verbose = ra.verbose
	cfg.NoLog = ra.noLog
	if ra.chromaZero {
		cfg.ChromaMode = infer.ZeroChroma
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	termRep := reporter.NewTerminalReporterVerbose(ra.verbose)
	var rep reporter.Reporter = termRep
	if logger != nil {
		logRep := reporter.NewLogReporter(logger.Writer())
		rep = reporter.NewMultiReporter(termRep, logRep)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	source := &mediaio.CaptureSource{}
	sink := &mediaio.DashSink{}

	// No TextEngineFactory is wired: open-vocabulary text-grounded
	// detection needs a real prompt-driven model runtime, which is out of
	// this module's scope (spec.md §1). --engine=text fails fast during
	// buildRedactors with a clear error instead of silently no-op'ing.
	result, err := pipeline.Run(ctx, pipeline.RunConfig{
		Config: cfg,
		Source: source,
		Sink:   sink,
		SegEngineFactory: func(modelPath string) (engine.SegEngine, error) {
			return cascadeseg.New(modelPath)
		},
		Reporter: rep,
	})
	if err != nil {
		return err
	}

	if logger != nil {
		logger.Info("Frames decoded: %d, encoded: %d, dropped invalid: %d", result.FramesDecoded, result.FramesEncoded, result.FramesDroppedInvalid)
	}
	return nil
}
