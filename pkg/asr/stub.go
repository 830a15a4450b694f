package asr

import (
	"context"
	"sync"
	"time"
)

// StubEngine is a scripted Engine for the deterministic end-to-end
// scenarios in the testable-property suite. Grounded on the mock
// pattern used for the VAD package's MockDetector (a
// DetectorInterface implementation): a function field plus a call log,
// with convenience constructors for the common cases.
type StubEngine struct {
	// RecognizeFunc is invoked for every Recognize call. If nil,
	// returns an empty-text Segment (classified as SILENCE).
	RecognizeFunc func(pcmMono16k []float32) (Segment, error)

	// Delay, if set, sleeps before returning — used to simulate a slow
	// inference engine for the adaptive-overlap-shrink scenario.
	Delay time.Duration

	mu    sync.Mutex
	calls [][]float32
}

// NewStubEngine creates a StubEngine that always returns empty text
// (SILENCE).
func NewStubEngine() *StubEngine {
	return &StubEngine{}
}

// NewStubEngineWithText creates a StubEngine that always returns the
// given text as segment 0 with a uniform token probability of 1.0.
func NewStubEngineWithText(text string) *StubEngine {
	return &StubEngine{
		RecognizeFunc: func([]float32) (Segment, error) {
			return Segment{Text: text, TokenProbs: []float32{1.0}}, nil
		},
	}
}

// NewStubEngineWithDelay creates a StubEngine that returns the given
// text after sleeping for delay on every call.
func NewStubEngineWithDelay(text string, delay time.Duration) *StubEngine {
	return &StubEngine{
		RecognizeFunc: func([]float32) (Segment, error) {
			return Segment{Text: text, TokenProbs: []float32{1.0}}, nil
		},
		Delay: delay,
	}
}

// Recognize implements Engine.
func (s *StubEngine) Recognize(ctx context.Context, pcmMono16k []float32) (Segment, error) {
	s.mu.Lock()
	cp := make([]float32, len(pcmMono16k))
	copy(cp, pcmMono16k)
	s.calls = append(s.calls, cp)
	s.mu.Unlock()

	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return Segment{}, ctx.Err()
		}
	}

	if s.RecognizeFunc == nil {
		return Segment{}, nil
	}
	return s.RecognizeFunc(pcmMono16k)
}

// Close implements Engine.
func (s *StubEngine) Close() error { return nil }

// CallCount returns how many times Recognize was invoked.
func (s *StubEngine) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

var _ Engine = (*StubEngine)(nil)
