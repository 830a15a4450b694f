// Package vad provides the required energy-based voice activity gate
// (energy.go, always built) plus an optional higher-fidelity secondary
// detector backed by the Silero VAD ONNX model (this file, built only
// with -tags vad since it requires the onnxruntime shared library at
// runtime).
//
//go:build vad

package vad

import (
	"fmt"

	"github.com/streamer45/silero-vad-go/speech"
)

// DetectorConfig configures the Silero-backed secondary detector.
type DetectorConfig struct {
	ModelPath       string
	Threshold       float32
	MinSilenceDurMs int
	SpeechPadMs     int
}

// IsValid reports whether the config can be used to construct a
// Detector.
func (c DetectorConfig) IsValid() error {
	if c.ModelPath == "" {
		return fmt.Errorf("vad: ModelPath must not be empty")
	}
	return nil
}

// Detector wraps a Silero VAD session. It operates on 16 kHz mono
// samples in fixed-size chunks, exactly as the speech package
// requires.
type Detector struct {
	inner *speech.Detector
}

// NewDetector creates a Silero-backed secondary detector.
func NewDetector(cfg DetectorConfig) (*Detector, error) {
	if err := cfg.IsValid(); err != nil {
		return nil, err
	}

	threshold := cfg.Threshold
	if threshold == 0 {
		threshold = 0.5
	}
	minSilence := cfg.MinSilenceDurMs
	if minSilence == 0 {
		minSilence = 100
	}

	inner, err := speech.NewDetector(speech.DetectorConfig{
		ModelPath:            cfg.ModelPath,
		SampleRate:           TargetSampleRate16k,
		Threshold:            threshold,
		MinSilenceDurationMs: minSilence,
		SpeechPadMs:          cfg.SpeechPadMs,
	})
	if err != nil {
		return nil, fmt.Errorf("vad: creating silero detector: %w", err)
	}

	return &Detector{inner: inner}, nil
}

// Infer reports a speech probability for a chunk of mono 16 kHz
// samples in [-1, 1]. The underlying library reports segment
// boundaries rather than a continuous probability; Infer returns the
// highest confidence among segments with an open speech start in this
// chunk, or 0 if none.
func (d *Detector) Infer(samples []float32) (float32, error) {
	if d == nil || d.inner == nil {
		return 0, fmt.Errorf("vad: invalid nil detector")
	}

	pcm := make([]float32, len(samples))
	copy(pcm, samples)

	segments, err := d.inner.Detect(pcm)
	if err != nil {
		return 0, fmt.Errorf("vad: detect: %w", err)
	}

	var best float32
	for _, seg := range segments {
		if seg.SpeechStartAt >= 0 && seg.Confidence > best {
			best = seg.Confidence
		}
	}
	return best, nil
}

// Reset clears the detector's internal speech/silence state.
func (d *Detector) Reset() error {
	if d == nil || d.inner == nil {
		return fmt.Errorf("vad: invalid nil detector")
	}
	return d.inner.Reset()
}

// Destroy releases the underlying ONNX session.
func (d *Detector) Destroy() error {
	if d == nil || d.inner == nil {
		return fmt.Errorf("vad: invalid nil detector")
	}
	return d.inner.Destroy()
}

var _ DetectorInterface = (*Detector)(nil)
