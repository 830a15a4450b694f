package config

import "testing"

func TestDefaultsMatchSpec(t *testing.T) {
	cfg := Defaults()

	if cfg.DetectRegex != DefaultDetectRegex {
		t.Errorf("DetectRegex = %q, want %q", cfg.DetectRegex, DefaultDetectRegex)
	}
	if cfg.MaxTokens != 3 {
		t.Errorf("MaxTokens = %d, want 3", cfg.MaxTokens)
	}
	if cfg.Temperature != 0.5 {
		t.Errorf("Temperature = %v, want 0.5", cfg.Temperature)
	}
	if cfg.LengthPenalty != -1.0 {
		t.Errorf("LengthPenalty = %v, want -1.0", cfg.LengthPenalty)
	}
	if !cfg.SuppressNonSpeechTokens {
		t.Error("SuppressNonSpeechTokens should default true")
	}
	if !cfg.NoContext || !cfg.SingleSegment {
		t.Error("NoContext and SingleSegment should default true")
	}
}

func TestLoadAppliesOverrides(t *testing.T) {
	cfg := Load(Config{WhisperModelPath: "/models/ggml-base.bin", NThreads: 8})

	if cfg.WhisperModelPath != "/models/ggml-base.bin" {
		t.Errorf("WhisperModelPath = %q, want override applied", cfg.WhisperModelPath)
	}
	if cfg.NThreads != 8 {
		t.Errorf("NThreads = %d, want 8", cfg.NThreads)
	}
	// Unset override fields keep their defaults.
	if cfg.DetectRegex != DefaultDetectRegex {
		t.Errorf("DetectRegex = %q, want default preserved", cfg.DetectRegex)
	}
}
