package asr

import (
	"bytes"
	"context"
	"encoding/binary"
	"log"
	"math"
	"os"
	"sync"

	"github.com/sashabaranov/go-openai"
)

// WhisperEngine implements Engine using OpenAI's Whisper transcription
// endpoint. The REST API only returns flat text — no token-level
// timestamps or probabilities — so every Segment it returns reports
// StartCs/EndCs as 0 and a single TokenProbs entry of 1.0 (SentenceP
// always 1.0). This is a narrowing of the in-process ASR contract
// described for this filter, not a silent approximation: callers that
// depend on per-token confidence should prefer a local engine.
type WhisperEngine struct {
	client   *openai.Client
	model    string
	language string
	prompt   string
	mu       sync.RWMutex
}

// WhisperConfig configures a WhisperEngine.
type WhisperConfig struct {
	// APIKey is the OpenAI API key. If empty, OPENAI_API_KEY is used.
	APIKey string
	// Model defaults to "whisper-1".
	Model string
	// Language is an ISO-639-1 code, or "" for auto-detection.
	Language string
	// Prompt biases recognition (see whisper_language_select/initial_prompt).
	Prompt string
}

// NewWhisperEngine creates an Engine backed by OpenAI's Whisper API.
func NewWhisperEngine(cfg WhisperConfig) (*WhisperEngine, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, &Error{Code: ErrCodeInvalidConfig, Message: "OpenAI API key is required"}
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		clientConfig.BaseURL = baseURL
		log.Printf("[asr] using BaseURL: %s", clientConfig.BaseURL)
	}

	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}

	return &WhisperEngine{
		client:   openai.NewClientWithConfig(clientConfig),
		model:    model,
		language: cfg.Language,
		prompt:   cfg.Prompt,
	}, nil
}

// Recognize transcribes a mono 16 kHz float buffer.
func (w *WhisperEngine) Recognize(ctx context.Context, pcmMono16k []float32) (Segment, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if len(pcmMono16k) == 0 {
		return Segment{}, &Error{Code: ErrCodeInvalidAudio, Message: "audio buffer is empty", Soft: true}
	}

	wav := floatToWAV(pcmMono16k, 16000)

	req := openai.AudioRequest{
		Model:    w.model,
		FilePath: "window.wav",
		Reader:   bytes.NewReader(wav),
		Prompt:   w.prompt,
		Language: w.language,
	}

	resp, err := w.client.CreateTranscription(ctx, req)
	if err != nil {
		// A failed transcription request is this engine's analogue of the
		// original filter's non-zero whisper_full_result: the window is
		// lost but the client and its credentials are still good, so the
		// context survives for the next window.
		return Segment{}, &Error{Code: ErrCodeProviderError, Message: "whisper transcription request failed", Err: err, Soft: true}
	}

	return Segment{
		Text:       resp.Text,
		TokenProbs: []float32{1.0},
	}, nil
}

// Close releases resources. WhisperEngine holds none.
func (w *WhisperEngine) Close() error { return nil }

var _ Engine = (*WhisperEngine)(nil)

// floatToWAV packs mono float32 PCM in [-1, 1] into a 16-bit WAV file,
// the format Whisper's REST endpoint expects. Adapted from the PCM-to-
// WAV conversion this codebase already does for int16 input, widened
// to take float32 samples directly (the classifier's window never
// exists as int16).
func floatToWAV(samples []float32, sampleRate int) []byte {
	var buf bytes.Buffer

	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := s
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(math.Round(float64(v)*32767))))
	}

	const channels = 1
	const bitsPerSample = 16

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	byteRate := uint32(sampleRate * channels * bitsPerSample / 8)
	binary.Write(&buf, binary.LittleEndian, byteRate)
	binary.Write(&buf, binary.LittleEndian, uint16(channels*bitsPerSample/8))
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}
