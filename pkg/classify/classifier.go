// Package classify wraps a synchronous ASR call and two user-supplied
// regular expressions to turn one inference window into a DetectionResult.
package classify

import (
	"context"
	"log"
	"regexp"
	"strings"
	"sync"

	"github.com/cleanstream/cleanstream/pkg/asr"
	"github.com/cleanstream/cleanstream/pkg/cleanstreamerr"
)

// DetectionResult is the outcome of classifying one window.
type DetectionResult int

const (
	Unknown DetectionResult = iota
	Silence
	Speech
	Filler
	Beep
)

func (d DetectionResult) String() string {
	switch d {
	case Silence:
		return "SILENCE"
	case Speech:
		return "SPEECH"
	case Filler:
		return "FILLER"
	case Beep:
		return "BEEP"
	default:
		return "UNKNOWN"
	}
}

// Classifier owns the ASR engine and the two detection regexes. The
// engine field is nulled on an exceptional (non-soft) ASR failure; the
// Worker observes that nil via EngineReady and exits. Soft failures
// (see asr.IsSoft) leave the engine installed.
type Classifier struct {
	mu     sync.Mutex // guards engine — corresponds to the CtxMutex named in the concurrency model
	engine asr.Engine

	detectPattern string
	beepPattern   string
	detectRe      *regexp.Regexp
	beepRe        *regexp.Regexp

	logWords bool
}

// Config configures a Classifier.
type Config struct {
	DetectRegex string
	BeepRegex   string
	LogWords    bool
}

// New builds a Classifier around the given engine. Regex compilation
// failures are logged and leave the corresponding pattern nil, which
// Classify treats as "never matches" rather than aborting; Classify
// retries compiling a failed pattern on every window.
func New(engine asr.Engine, cfg Config) *Classifier {
	c := &Classifier{
		engine:        engine,
		detectPattern: cfg.DetectRegex,
		beepPattern:   cfg.BeepRegex,
		logWords:      cfg.LogWords,
	}
	c.compileRegexes()
	return c
}

func (c *Classifier) compileRegexes() {
	if c.detectPattern != "" {
		re, err := regexp.Compile(c.detectPattern)
		if err != nil {
			log.Printf("[classify] detect_regex compile failed: %v: %v", cleanstreamerr.ErrRegexCompile, err)
			c.detectRe = nil
		} else {
			c.detectRe = re
		}
	}
	if c.beepPattern != "" {
		re, err := regexp.Compile(c.beepPattern)
		if err != nil {
			log.Printf("[classify] beep_regex compile failed: %v: %v", cleanstreamerr.ErrRegexCompile, err)
			c.beepRe = nil
		} else {
			c.beepRe = re
		}
	}
}

// EngineReady reports whether the ASR engine is still installed. False
// after any Classify call that observed an exceptional (non-soft) ASR
// failure.
func (c *Classifier) EngineReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine != nil
}

// Engine returns the currently installed engine, or nil if none is
// ready — used when rebuilding a Classifier around unchanged ASR state
// (e.g. a regex-only configuration update).
func (c *Classifier) Engine() asr.Engine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine
}

// SetEngine installs a fresh engine, e.g. after a model reload.
func (c *Classifier) SetEngine(engine asr.Engine) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engine = engine
}

// Classify runs one inference window through the ASR engine and the
// configured regexes. See spec §4.4 steps 1-7.
func (c *Classifier) Classify(ctx context.Context, pcmMono16k []float32) DetectionResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.engine == nil {
		return Unknown
	}

	seg, err := c.engine.Recognize(ctx, pcmMono16k)
	if err != nil {
		if asr.IsSoft(err) {
			log.Printf("[classify] asr recognize failed for this window, context kept: %v", err)
			return Unknown
		}
		log.Printf("[classify] asr recognize failed, tearing down context: %v", err)
		if closeErr := c.engine.Close(); closeErr != nil {
			log.Printf("[classify] engine close failed: %v", closeErr)
		}
		c.engine = nil
		return Unknown
	}

	text := strings.ToLower(strings.TrimRight(seg.Text, " \t\n\r"))

	if (c.detectPattern != "" && c.detectRe == nil) || (c.beepPattern != "" && c.beepRe == nil) {
		c.compileRegexes()
	}
	result := c.classifyText(text)

	if c.logWords {
		log.Printf("[classify] text=%q sentence_p=%.3f result=%s", text, seg.SentenceP(), result)
	}

	return result
}

func (c *Classifier) classifyText(text string) DetectionResult {
	if text == "" {
		return Silence
	}
	if c.detectRe != nil && c.detectRe.MatchString(text) {
		return Filler
	}
	if c.beepRe != nil && c.beepRe.MatchString(text) {
		return Beep
	}
	return Speech
}
