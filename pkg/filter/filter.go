// Package filter is the host-facing entry point: push/pull audio
// packets, and create/destroy/update the filter's lifecycle.
package filter

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/cleanstream/cleanstream/pkg/asr"
	"github.com/cleanstream/cleanstream/pkg/classify"
	"github.com/cleanstream/cleanstream/pkg/config"
	"github.com/cleanstream/cleanstream/pkg/modelstore"
	"github.com/cleanstream/cleanstream/pkg/resample"
	"github.com/cleanstream/cleanstream/pkg/ringstore"
	"github.com/cleanstream/cleanstream/pkg/segment"
	"github.com/cleanstream/cleanstream/pkg/vad"
	"github.com/cleanstream/cleanstream/pkg/worker"
)

// Packet is one planar audio packet crossing the host boundary.
type Packet struct {
	Channels  [][]float32
	Frames    uint32
	Timestamp uint64
}

// EngineBuilder constructs an asr.Engine from a resolved model path.
// Swappable so tests can install a stub without touching Whisper.
type EngineBuilder func(modelPath string, cfg config.Config) (asr.Engine, error)

// Filter is one instance of the audio filter. All three named
// mutexes from the concurrency model are fields here — never
// package-level vars — so multiple Filter instances run independently
// in the same process (spec §5's closing paragraph).
type Filter struct {
	ID string

	BufMutex    sync.Mutex // guards store.input*
	OutBufMutex sync.Mutex // guards store.output*
	CtxMutex    sync.Mutex // guards classifier's engine + cfg snapshot used for reload

	store      *ringstore.Store
	resampler  *resample.Resampler
	classifier *classify.Classifier
	processor  *segment.Processor
	wrk        *worker.Worker
	models     *modelstore.Store
	buildEngine EngineBuilder

	sourceRate int
	channels   int
	cfg        config.Config

	active bool
	ready  bool
}

// New allocates a Filter and immediately attempts to load the
// configured model. If loading fails the filter starts in
// pass-through: Push forwards input verbatim until Update retries.
func New(sourceRate, channels int, cfg config.Config, buildEngine EngineBuilder) (*Filter, error) {
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("filter: unsupported channel count %d", channels)
	}

	resampler, err := resample.New(sourceRate, channels)
	if err != nil {
		return nil, fmt.Errorf("filter: creating resampler: %w", err)
	}

	f := &Filter{
		ID:          uuid.New().String(),
		store:       ringstore.New(channels),
		resampler:   resampler,
		models:      modelstore.New(),
		buildEngine: buildEngine,
		sourceRate:  sourceRate,
		channels:    channels,
		cfg:         cfg,
		active:      true,
	}

	f.classifier = classify.New(nil, classify.Config{
		DetectRegex: cfg.DetectRegex,
		BeepRegex:   cfg.BeepRegex,
		LogWords:    cfg.LogWords,
	})

	window := segment.NewWindowState(sourceRate, channels)
	f.processor = segment.New(f.store, f.resampler, f.classifier, secondaryDetector(cfg), window, sourceRate, channels, cfg)

	if err := f.loadModel(context.Background()); err != nil {
		log.Printf("[filter %s] initial model load failed, starting in pass-through: %v", f.ID, err)
		return f, nil
	}
	f.startWorker()
	return f, nil
}

func secondaryDetector(cfg config.Config) vad.DetectorInterface {
	return vad.NullDetector{}
}

// loadModel resolves cfg.WhisperModelPath (downloading it if
// necessary) and installs a fresh ASR engine. Caller must hold
// CtxMutex.
func (f *Filter) loadModel(ctx context.Context) error {
	path, err := f.models.Resolve(ctx, modelstore.Descriptor{
		Path:   f.cfg.WhisperModelPath,
		URL:    f.cfg.ModelURL,
		SHA256: f.cfg.ModelSHA256,
	})
	if err != nil {
		return fmt.Errorf("filter: resolving model: %w", err)
	}

	engine, err := f.buildEngine(path, f.cfg)
	if err != nil {
		return fmt.Errorf("filter: building asr engine: %w", err)
	}

	f.classifier.SetEngine(engine)
	f.ready = true
	return nil
}

func (f *Filter) startWorker() {
	f.wrk = worker.New(f.processor, f.processor.Window.FramesPerWindow, f.classifier.EngineReady, func() int {
		f.BufMutex.Lock()
		defer f.BufMutex.Unlock()
		return f.store.InputPCMLen(0)
	})
	f.wrk.Start(context.Background())
}

// Push appends one input packet and, if output is available, returns
// it. Falls through to pass-through when the filter is inactive or
// the ASR context is not ready — see spec §4.7.
func (f *Filter) Push(pkt Packet) (Packet, bool) {
	if !f.active || !f.ready {
		return pkt, true
	}

	f.BufMutex.Lock()
	f.store.PushInput(ringstore.PacketInfo{Frames: pkt.Frames, Timestamp: pkt.Timestamp}, pkt.Channels)
	f.BufMutex.Unlock()

	return f.Pull()
}

// Pull drains one published output packet, if any. The second return
// value is false when nothing is available this tick — the host must
// tolerate that and not resubmit input expecting back-pressure.
func (f *Filter) Pull() (Packet, bool) {
	f.OutBufMutex.Lock()
	defer f.OutBufMutex.Unlock()

	meta, ok := f.store.PopOutputMeta()
	if !ok {
		return Packet{}, false
	}

	channels := make([][]float32, f.channels)
	for c := 0; c < f.channels; c++ {
		channels[c] = f.store.PopOutputSamples(c, int(meta.Frames))
	}

	return Packet{Channels: channels, Frames: meta.Frames, Timestamp: meta.Timestamp}, true
}

// Update applies configuration changes in place. detect_regex,
// beep_regex, log_words, vad_enabled, and do_silence always take effect
// immediately against the running Processor/Classifier (spec §6.3,
// §4.7). A changed model path additionally tears down the worker,
// reloads, and restarts it, resetting window state to first-window
// semantics on any reload (spec §8 scenario 6).
func (f *Filter) Update(cfg config.Config) error {
	modelChanged := cfg.WhisperModelPath != f.cfg.WhisperModelPath

	f.CtxMutex.Lock()
	f.cfg = cfg
	f.classifier = classify.New(f.classifier.Engine(), classify.Config{
		DetectRegex: cfg.DetectRegex,
		BeepRegex:   cfg.BeepRegex,
		LogWords:    cfg.LogWords,
	})
	f.processor.Classifier = f.classifier
	f.processor.VADEnabled = cfg.VADEnabled
	f.processor.DoSilence = cfg.DoSilence
	f.CtxMutex.Unlock()

	if !modelChanged {
		return nil
	}

	f.ready = false
	if f.wrk != nil {
		f.wrk.Stop()
	}

	f.CtxMutex.Lock()
	err := f.loadModel(context.Background())
	f.CtxMutex.Unlock()

	f.processor.Window.Reset()

	if err != nil {
		log.Printf("[filter %s] model reload failed, staying in pass-through: %v", f.ID, err)
		return err
	}

	f.startWorker()
	return nil
}

// Destroy tears down the worker and releases the resampler. Safe to
// call once.
func (f *Filter) Destroy() {
	f.active = false
	f.ready = false
	if f.wrk != nil {
		f.wrk.Stop()
	}

	f.BufMutex.Lock()
	f.OutBufMutex.Lock()
	f.resampler.Free()
	f.OutBufMutex.Unlock()
	f.BufMutex.Unlock()
}
