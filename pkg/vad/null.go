package vad

// NullDetector is the default secondary DetectorInterface: it always
// reports maximal speech probability, so SegmentProcessor's gating
// decision reduces to the required energy gate alone. Used whenever no
// secondary backend (e.g. the silero build-tagged Detector) is
// configured.
type NullDetector struct{}

// Infer always reports speech.
func (NullDetector) Infer(samples []float32) (float32, error) { return 1.0, nil }

// Reset is a no-op.
func (NullDetector) Reset() error { return nil }

// Destroy is a no-op.
func (NullDetector) Destroy() error { return nil }

var _ DetectorInterface = NullDetector{}
