package filter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cleanstream/cleanstream/pkg/asr"
	"github.com/cleanstream/cleanstream/pkg/classify"
	"github.com/cleanstream/cleanstream/pkg/config"
)

func stubModelPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ggml-base.bin")
	require.NoError(t, os.WriteFile(path, []byte("fake-weights"), 0o644))
	return path
}

func newTestFilter(t *testing.T, text string) *Filter {
	t.Helper()
	cfg := config.Defaults()
	cfg.WhisperModelPath = stubModelPath(t)
	cfg.VADEnabled = false

	builder := func(modelPath string, cfg config.Config) (asr.Engine, error) {
		return asr.NewStubEngineWithText(text), nil
	}

	f, err := New(48000, 1, cfg, builder)
	require.NoError(t, err)
	return f
}

func TestNewFilterStartsReady(t *testing.T) {
	f := newTestFilter(t, "hello")
	defer f.Destroy()

	if !f.ready {
		t.Error("expected filter to be ready after successful model load")
	}
}

func TestPushReturnsNoOutputBeforeFirstWindow(t *testing.T) {
	f := newTestFilter(t, "hello")
	defer f.Destroy()

	samples := []float32{0.1, 0.2, 0.3}
	pkt := Packet{Channels: [][]float32{samples}, Frames: 3, Timestamp: 0}

	_, hasOutput := f.Push(pkt)
	if hasOutput {
		t.Error("expected no output on the very first push (window not yet full)")
	}
}

func TestNewFilterFailsPassthroughOnMissingModel(t *testing.T) {
	cfg := config.Defaults()
	cfg.WhisperModelPath = "/definitely/does/not/exist.bin"

	builder := func(modelPath string, cfg config.Config) (asr.Engine, error) {
		return asr.NewStubEngine(), nil
	}

	f, err := New(48000, 1, cfg, builder)
	require.NoError(t, err, "New should not error even if the model fails to load")
	defer f.Destroy()

	if f.ready {
		t.Error("expected filter to stay not-ready when model resolution fails")
	}

	samples := []float32{0.5}
	pkt := Packet{Channels: [][]float32{samples}, Frames: 1, Timestamp: 42}
	out, ok := f.Push(pkt)
	if !ok {
		t.Fatal("expected pass-through when ASR is not ready")
	}
	if out.Timestamp != 42 {
		t.Errorf("pass-through packet timestamp = %d, want 42", out.Timestamp)
	}
}

func TestUpdateWithSameModelKeepsFilterReady(t *testing.T) {
	f := newTestFilter(t, "hello")
	defer f.Destroy()

	cfg := f.cfg
	cfg.LogWords = true
	require.NoError(t, f.Update(cfg))

	if !f.ready {
		t.Error("expected filter to remain ready after a non-model config update")
	}
}

func TestUpdateAppliesLiveSettingsWithoutModelChange(t *testing.T) {
	f := newTestFilter(t, "hello")
	defer f.Destroy()

	cfg := f.cfg
	cfg.DetectRegex = `\bhello\b`
	cfg.VADEnabled = true
	cfg.DoSilence = false
	require.NoError(t, f.Update(cfg))

	if f.processor.Classifier != f.classifier {
		t.Error("expected processor.Classifier to be reattached to the updated Classifier")
	}
	if f.processor.Classifier.Classify(context.Background(), make([]float32, 16000)) != classify.Filler {
		t.Error("expected updated detect_regex to take effect on the running Classifier")
	}
	if !f.processor.VADEnabled {
		t.Error("expected processor.VADEnabled to reflect the updated config")
	}
	if f.processor.DoSilence {
		t.Error("expected processor.DoSilence to reflect the updated config")
	}
}
