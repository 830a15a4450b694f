// Package config defines the filter's settings surface and loads it
// from compiled-in defaults overlaid with environment variables.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// SamplingMethod selects the ASR decoding strategy.
type SamplingMethod int

const (
	SamplingBeamSearch SamplingMethod = iota
	SamplingGreedy
)

// LogLevel governs verbose tracing only; it never disables the plain
// log.Printf lines this package's callers emit for functional events.
type LogLevel int

const (
	LogDebug LogLevel = iota
	LogInfo
	LogWarning
)

const (
	// DefaultDetectRegex matches common filler words.
	DefaultDetectRegex = `\b(uh+)|(um+)|(ah+)\b`
	// DefaultBeepRegex matches a small disjunction of English swears.
	DefaultBeepRegex = `\b(damn|hell|crap|shit|fuck|ass|bitch|bastard)\b`

	// WindowMs is the compiled-in inference window length.
	WindowMs = 1010
	// InitialOverlapMs is the starting overlap before the adaptive
	// controller begins adjusting it.
	InitialOverlapMs = 340
	// MinOverlapMs is the adaptive controller's floor.
	MinOverlapMs = 100
)

// Config is the full settings surface of a Filter instance. Assembled
// by the embedding host; there is no struct-tag-driven file format
// here because none of the example stack uses one for this shape of
// settings — see DESIGN.md.
type Config struct {
	WhisperModelPath string
	LogLevel         LogLevel

	DoSilence bool
	VADEnabled bool

	DetectRegex string
	BeepRegex   string
	LogWords    bool

	WhisperLanguageSelect string
	WhisperSamplingMethod SamplingMethod
	InitialPrompt         string

	NThreads         int
	NMaxTextCtx      int
	NoContext        bool
	SingleSegment    bool
	PrintProgress    bool
	PrintSpecial     bool
	PrintRealtime    bool
	PrintTimestamps  bool
	TokenTimestamps  bool
	ThresholdPt      float64
	ThresholdPtSum   float64
	MaxLen           int
	SplitOnWord      bool
	MaxTokens        int
	SpeedUp          bool
	SuppressBlank    bool
	SuppressNonSpeechTokens bool
	Temperature      float64
	MaxInitialTs     float64
	LengthPenalty    float64

	ModelURL    string
	ModelSHA256 string

	OpenAIAPIKey string
}

// Defaults returns the compiled-in default configuration (spec §6.3).
func Defaults() Config {
	return Config{
		LogLevel:                LogInfo,
		DoSilence:               true,
		VADEnabled:              true,
		DetectRegex:             DefaultDetectRegex,
		BeepRegex:               DefaultBeepRegex,
		LogWords:                false,
		WhisperLanguageSelect:   "en",
		WhisperSamplingMethod:   SamplingBeamSearch,
		InitialPrompt:           "um uh ah",
		NThreads:                4,
		NMaxTextCtx:             16384,
		NoContext:               true,
		SingleSegment:           true,
		TokenTimestamps:         false,
		ThresholdPt:             0.01,
		ThresholdPtSum:          0.01,
		MaxLen:                  0,
		SplitOnWord:             false,
		MaxTokens:               3,
		SpeedUp:                 false,
		SuppressBlank:           true,
		SuppressNonSpeechTokens: true,
		Temperature:             0.5,
		MaxInitialTs:            1.0,
		LengthPenalty:           -1.0,
	}
}

// Load assembles a Config from, in ascending priority: compiled-in
// defaults, environment variables (loaded via godotenv, matching the
// only configuration-loading call site in the corpus), then the
// supplied overrides for the fields applyOverrides handles, each applied
// where non-zero. A false boolean override never turns a setting off,
// and override fields not handled there are ignored.
func Load(overrides Config) Config {
	_ = godotenv.Load()

	cfg := Defaults()

	if v := os.Getenv("CLEANSTREAM_WHISPER_MODEL_PATH"); v != "" {
		cfg.WhisperModelPath = v
	}
	if v := os.Getenv("CLEANSTREAM_DETECT_REGEX"); v != "" {
		cfg.DetectRegex = v
	}
	if v := os.Getenv("CLEANSTREAM_BEEP_REGEX"); v != "" {
		cfg.BeepRegex = v
	}
	if v := os.Getenv("CLEANSTREAM_VAD_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.VADEnabled = b
		}
	}
	if v := os.Getenv("CLEANSTREAM_DO_SILENCE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.DoSilence = b
		}
	}
	if v := os.Getenv("CLEANSTREAM_LOG_WORDS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.LogWords = b
		}
	}
	if v := os.Getenv("CLEANSTREAM_MODEL_URL"); v != "" {
		cfg.ModelURL = v
	}
	if v := os.Getenv("CLEANSTREAM_MODEL_SHA256"); v != "" {
		cfg.ModelSHA256 = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIAPIKey = v
	}

	applyOverrides(&cfg, overrides)
	return cfg
}

func applyOverrides(cfg *Config, o Config) {
	if o.WhisperModelPath != "" {
		cfg.WhisperModelPath = o.WhisperModelPath
	}
	if o.DetectRegex != "" {
		cfg.DetectRegex = o.DetectRegex
	}
	if o.BeepRegex != "" {
		cfg.BeepRegex = o.BeepRegex
	}
	if o.WhisperLanguageSelect != "" {
		cfg.WhisperLanguageSelect = o.WhisperLanguageSelect
	}
	if o.InitialPrompt != "" {
		cfg.InitialPrompt = o.InitialPrompt
	}
	if o.NThreads != 0 {
		cfg.NThreads = o.NThreads
	}
	if o.MaxTokens != 0 {
		cfg.MaxTokens = o.MaxTokens
	}
	if o.Temperature != 0 {
		cfg.Temperature = o.Temperature
	}
	if o.ModelURL != "" {
		cfg.ModelURL = o.ModelURL
	}
	if o.ModelSHA256 != "" {
		cfg.ModelSHA256 = o.ModelSHA256
	}
	if o.OpenAIAPIKey != "" {
		cfg.OpenAIAPIKey = o.OpenAIAPIKey
	}
	cfg.DoSilence = o.DoSilence || cfg.DoSilence
	cfg.VADEnabled = o.VADEnabled || cfg.VADEnabled
	cfg.LogWords = o.LogWords || cfg.LogWords
}
