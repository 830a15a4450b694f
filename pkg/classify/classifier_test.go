package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/cleanstream/cleanstream/pkg/asr"
)

func TestClassifySilenceOnEmptyText(t *testing.T) {
	engine := asr.NewStubEngine()
	c := New(engine, Config{DetectRegex: `\b(uh+)|(um+)\b`})

	got := c.Classify(context.Background(), make([]float32, 16000))
	if got != Silence {
		t.Errorf("got %s, want SILENCE", got)
	}
}

func TestClassifyFillerMatch(t *testing.T) {
	engine := asr.NewStubEngineWithText("um, so anyway")
	c := New(engine, Config{DetectRegex: `\b(uh+)|(um+)|(ah+)\b`})

	got := c.Classify(context.Background(), make([]float32, 16000))
	if got != Filler {
		t.Errorf("got %s, want FILLER", got)
	}
}

func TestClassifyBeepMatchWhenDetectRegexEmpty(t *testing.T) {
	engine := asr.NewStubEngineWithText("you are a jerk")
	c := New(engine, Config{DetectRegex: "", BeepRegex: `\bjerk\b`})

	got := c.Classify(context.Background(), make([]float32, 16000))
	if got != Beep {
		t.Errorf("got %s, want BEEP", got)
	}
}

func TestClassifySpeechWhenNoPatternMatches(t *testing.T) {
	engine := asr.NewStubEngineWithText("the weather is nice today")
	c := New(engine, Config{DetectRegex: `\b(uh+)\b`, BeepRegex: `\bjerk\b`})

	got := c.Classify(context.Background(), make([]float32, 16000))
	if got != Speech {
		t.Errorf("got %s, want SPEECH", got)
	}
}

type erroringEngine struct {
	closed bool
}

func (e *erroringEngine) Recognize(ctx context.Context, pcm []float32) (asr.Segment, error) {
	return asr.Segment{}, errors.New("boom")
}

func (e *erroringEngine) Close() error {
	e.closed = true
	return nil
}

func TestClassifyEngineFailureNullsContext(t *testing.T) {
	engine := &erroringEngine{}
	c := New(engine, Config{})

	got := c.Classify(context.Background(), make([]float32, 16000))
	if got != Unknown {
		t.Errorf("got %s, want UNKNOWN", got)
	}
	if !engine.closed {
		t.Error("expected engine.Close to be called on recognize failure")
	}
	if c.EngineReady() {
		t.Error("expected EngineReady() false after ASR failure")
	}
}

type softFailingEngine struct {
	closed bool
}

func (e *softFailingEngine) Recognize(ctx context.Context, pcm []float32) (asr.Segment, error) {
	return asr.Segment{}, &asr.Error{Code: asr.ErrCodeProviderError, Message: "provider returned non-zero result", Soft: true}
}

func (e *softFailingEngine) Close() error {
	e.closed = true
	return nil
}

func TestClassifySoftFailureKeepsContext(t *testing.T) {
	engine := &softFailingEngine{}
	c := New(engine, Config{})

	got := c.Classify(context.Background(), make([]float32, 16000))
	if got != Unknown {
		t.Errorf("got %s, want UNKNOWN", got)
	}
	if engine.closed {
		t.Error("expected engine.Close NOT to be called on a soft ASR failure")
	}
	if !c.EngineReady() {
		t.Error("expected EngineReady() true after a soft ASR failure")
	}
}

func TestClassifyNilEngineReturnsUnknown(t *testing.T) {
	c := New(nil, Config{})

	got := c.Classify(context.Background(), make([]float32, 16000))
	if got != Unknown {
		t.Errorf("got %s, want UNKNOWN", got)
	}
}

func TestClassifyInvalidRegexTreatedAsNonMatch(t *testing.T) {
	engine := asr.NewStubEngineWithText("uh, well")
	c := New(engine, Config{DetectRegex: `(unterminated`})

	got := c.Classify(context.Background(), make([]float32, 16000))
	if got != Speech {
		t.Errorf("got %s, want SPEECH (invalid regex should never match)", got)
	}
}
