package vad

import "testing"

func TestHighPassFirstSamplePassesThrough(t *testing.T) {
	samples := []float32{0.25, 0.25, 0.25, 0.25}
	HighPassInPlace(samples, TargetSampleRate16k)

	if samples[0] != 0.25 {
		t.Errorf("expected first sample unchanged, got %v", samples[0])
	}
}

func TestHighPassAttenuatesDC(t *testing.T) {
	samples := make([]float32, 1000)
	for i := range samples {
		samples[i] = 0.5
	}
	HighPassInPlace(samples, TargetSampleRate16k)

	// A constant signal has no high-frequency content; after the
	// initial sample the filter should drive the output toward zero.
	if MeanAbsAmplitude(samples[100:]) > 0.01 {
		t.Errorf("expected DC to be attenuated, mean abs amplitude = %v", MeanAbsAmplitude(samples[100:]))
	}
}

func TestEnergyGateSilenceBelowThreshold(t *testing.T) {
	silence := make([]float32, 16000)
	speechLikely, _ := EnergyGate(silence)
	if speechLikely {
		t.Error("expected silence to fail the energy gate")
	}
}

func TestEnergyGateLoudSignalPassesThreshold(t *testing.T) {
	samples := make([]float32, 16000)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = 0.9
		} else {
			samples[i] = -0.9
		}
	}
	speechLikely, _ := EnergyGate(samples)
	if !speechLikely {
		t.Error("expected a loud alternating signal to pass the energy gate")
	}
}

func TestEnergyGateDoesNotMutateCaller(t *testing.T) {
	original := []float32{0.1, 0.2, 0.3, 0.4}
	probe := make([]float32, len(original))
	copy(probe, original)

	EnergyGate(probe)

	for i := range probe {
		if probe[i] != original[i] {
			t.Errorf("EnergyGate mutated caller's buffer at index %d: got %v, want %v", i, probe[i], original[i])
		}
	}
}
