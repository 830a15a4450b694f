//go:build vad

package vad

import (
	"os"
	"path/filepath"
	"testing"
)

func getModelPath(t *testing.T) string {
	paths := []string{
		"../../models/silero_vad.onnx",
		"models/silero_vad.onnx",
		"/tmp/silero_vad.onnx",
	}

	for _, p := range paths {
		absPath, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		if _, err := os.Stat(absPath); err == nil {
			return absPath
		}
	}

	t.Skip("silero_vad.onnx model not found, skipping test")
	return ""
}

func TestDetectorConfigIsValid(t *testing.T) {
	tests := []struct {
		name    string
		cfg     DetectorConfig
		wantErr bool
	}{
		{name: "valid config", cfg: DetectorConfig{ModelPath: "/path/to/model.onnx"}, wantErr: false},
		{name: "empty model path", cfg: DetectorConfig{ModelPath: ""}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.IsValid()
			if (err != nil) != tt.wantErr {
				t.Errorf("IsValid() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewDetectorAndInfer(t *testing.T) {
	modelPath := getModelPath(t)

	detector, err := NewDetector(DetectorConfig{ModelPath: modelPath})
	if err != nil {
		t.Fatalf("NewDetector() error = %v", err)
	}
	defer detector.Destroy()

	silence := make([]float32, 512)
	prob, err := detector.Infer(silence)
	if err != nil {
		t.Fatalf("Infer() error = %v", err)
	}
	if prob < 0 || prob > 1 {
		t.Errorf("Infer() probability = %v, want in range [0, 1]", prob)
	}
}

func TestDetectorNilSafety(t *testing.T) {
	var detector *Detector

	if err := detector.Reset(); err == nil {
		t.Error("Reset() on nil detector should return error")
	}
	if err := detector.Destroy(); err == nil {
		t.Error("Destroy() on nil detector should return error")
	}
}
