// Package config provides configuration types and defaults for dashredact.
package config

import (
	"fmt"
	"runtime"

	"github.com/nickzt/dashredact/internal/engine"
	"github.com/nickzt/dashredact/internal/infer"
)

// EngineKind selects which redaction engine drives the inference stage.
type EngineKind string

const (
	EngineSegmentation EngineKind = "seg"
	EngineText         EngineKind = "text"
)

// DefaultChannelCapacity is the recommended bounded capacity for both the
// decode->infer and infer->reorder channels.
const DefaultChannelCapacity = 50

// Config holds all configuration for a single redaction run.
type Config struct {
	// Input/output paths
	InitSegment  string // optional; a media-only run concatenates nothing
	MediaSegment string // required
	OutputDir    string // required
	LogDir       string

	// Engine selection
	Engine     EngineKind
	ModelPath  string // required
	VocabPath  string // required iff Engine == EngineText and the model needs a vocab file
	Prompt     string // required iff Engine == EngineText
	ChromaMode infer.ChromaMode

	// Processing options
	CheckFrames int // 0 means process the whole stream
	Workers     int // 0 means compute from engine.SizeForKind
	BufferSize  int // decode/infer channel capacity; 0 means DefaultChannelCapacity

	// Debug options
	Verbose bool
	NoLog   bool
}

// NewConfig creates a Config with default values for the given engine kind.
func NewConfig(engineKind EngineKind) *Config {
	return &Config{
		Engine:     engineKind,
		ChromaMode: infer.LumaOnly,
		BufferSize: DefaultChannelCapacity,
	}
}

// Validate checks the configuration for errors before the pipeline starts.
func (c *Config) Validate() error {
	if c.MediaSegment == "" {
		return fmt.Errorf("media segment path is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}
	if c.ModelPath == "" {
		return fmt.Errorf("model path is required")
	}

	switch c.Engine {
	case EngineSegmentation:
	case EngineText:
		if c.Prompt == "" {
			return fmt.Errorf("--prompt is required when --engine=text")
		}
	default:
		return fmt.Errorf("engine must be %q or %q, got %q", EngineSegmentation, EngineText, c.Engine)
	}

	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}
	if c.BufferSize < 0 {
		return fmt.Errorf("buffer size must be non-negative, got %d", c.BufferSize)
	}
	if c.CheckFrames < 0 {
		return fmt.Errorf("checkframes must be non-negative, got %d", c.CheckFrames)
	}

	return nil
}

// EngineKindValue maps the CLI-facing EngineKind to the internal
// engine.Kind used for worker-count sizing.
func (c *Config) EngineKindValue() engine.Kind {
	if c.Engine == EngineText {
		return engine.KindText
	}
	return engine.KindSegmentation
}

// ResolveWorkers returns the effective worker count and per-engine intra
// thread count: the explicit --workers override if set, otherwise
// engine.SizeForKind's formula against the detected hardware concurrency.
func (c *Config) ResolveWorkers() (workers, intraThreads int) {
	hwConcurrency := runtime.NumCPU()
	defaultWorkers, defaultIntra := engine.SizeForKind(c.EngineKindValue(), hwConcurrency)
	if c.Workers > 0 {
		return c.Workers, defaultIntra
	}
	return defaultWorkers, defaultIntra
}

// ResolveBufferSize returns the effective channel capacity.
func (c *Config) ResolveBufferSize() int {
	if c.BufferSize > 0 {
		return c.BufferSize
	}
	return DefaultChannelCapacity
}
