package config

import "testing"

func validConfig() *Config {
	c := NewConfig(EngineSegmentation)
	c.InitSegment = "init.mp4"
	c.MediaSegment = "media.m4s"
	c.OutputDir = "/tmp/out"
	c.ModelPath = "model.onnx"
	return c
}

func TestValidateAcceptsMinimalSegmentationConfig(t *testing.T) {
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestValidateRejectsMissingRequiredPaths(t *testing.T) {
	for _, mutate := range []func(*Config){
		func(c *Config) { c.MediaSegment = "" },
		func(c *Config) { c.OutputDir = "" },
		func(c *Config) { c.ModelPath = "" },
	} {
		c := validConfig()
		mutate(c)
		if err := c.Validate(); err == nil {
			t.Fatal("expected validation error for missing required field")
		}
	}
}

func TestValidateAcceptsMissingInitSegment(t *testing.T) {
	c := validConfig()
	c.InitSegment = ""
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() error = %v for a media-only run", err)
	}
}

func TestValidateRequiresPromptForTextEngine(t *testing.T) {
	c := validConfig()
	c.Engine = EngineText
	if err := c.Validate(); err == nil {
		t.Fatal("expected validation error for missing --prompt with engine=text")
	}
	c.Prompt = "license plate"
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() error = %v after setting prompt", err)
	}
}

func TestValidateRejectsUnknownEngine(t *testing.T) {
	c := validConfig()
	c.Engine = "bogus"
	if err := c.Validate(); err == nil {
		t.Fatal("expected validation error for unknown engine kind")
	}
}

func TestResolveWorkersHonorsExplicitOverride(t *testing.T) {
	c := validConfig()
	c.Workers = 7
	workers, _ := c.ResolveWorkers()
	if workers != 7 {
		t.Fatalf("ResolveWorkers() = %d, want 7", workers)
	}
}

func TestResolveBufferSizeFallsBackToDefault(t *testing.T) {
	c := validConfig()
	c.BufferSize = 0
	if got := c.ResolveBufferSize(); got != DefaultChannelCapacity {
		t.Fatalf("ResolveBufferSize() = %d, want %d", got, DefaultChannelCapacity)
	}
}
