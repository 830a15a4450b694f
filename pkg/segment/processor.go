package segment

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/cleanstream/cleanstream/pkg/classify"
	"github.com/cleanstream/cleanstream/pkg/config"
	"github.com/cleanstream/cleanstream/pkg/ringstore"
	"github.com/cleanstream/cleanstream/pkg/vad"
)

var tracer = otel.Tracer("github.com/cleanstream/cleanstream/pkg/segment")

// Resampler is the narrow contract Processor needs from
// resample.Resampler — satisfied by *resample.Resampler in production,
// and by a fake in tests that don't want a live FFmpeg resample
// context (the teacher ships no resample_test.go for the same reason).
type Resampler interface {
	ToMono16k(planar [][]float32, numFrames int) ([]float32, error)
}

// Processor is the SegmentProcessor: one Process call assembles and
// publishes exactly one inference window. It is not safe for
// concurrent use — filter.Filter's Worker is its only caller, and the
// locking discipline around it is documented on Filter, not here.
type Processor struct {
	Store      *ringstore.Store
	Resampler  Resampler
	Classifier *classify.Classifier
	Secondary  vad.DetectorInterface // optional; vad.NullDetector{} if unconfigured
	Window     *WindowState

	SourceRate int
	Channels   int
	VADEnabled bool
	DoSilence  bool
}

// New builds a Processor. secondary may be nil, in which case a
// NullDetector is installed (the energy gate alone decides gating).
func New(store *ringstore.Store, resampler Resampler, classifier *classify.Classifier, secondary vad.DetectorInterface, window *WindowState, sourceRate, channels int, cfg config.Config) *Processor {
	if secondary == nil {
		secondary = vad.NullDetector{}
	}
	return &Processor{
		Store:      store,
		Resampler:  resampler,
		Classifier: classifier,
		Secondary:  secondary,
		Window:     window,
		SourceRate: sourceRate,
		Channels:   channels,
		VADEnabled: cfg.VADEnabled,
		DoSilence:  cfg.DoSilence,
	}
}

// Process drains exactly one window's worth of new input, classifies
// it, applies the mute/beep transform, and publishes the output
// packet. It returns false only if no whole input packet fits the
// window's target (the caller — Worker — is expected to have already
// checked the queue, so this is a defensive fallback, not the primary
// gate); a window with fewer new frames than the target is still
// processed.
func (p *Processor) Process(ctx context.Context) (classify.DetectionResult, bool, error) {
	ctx, span := tracer.Start(ctx, "cleanstream.segment.process")
	defer span.End()

	start := time.Now()

	target := p.Window.TargetNewFrames()
	numNewFrames, startTimestamp, ok := p.drainInputMeta(target)
	if !ok {
		return classify.Unknown, false, nil
	}

	windowLen, err := p.assembleWindow(numNewFrames)
	if err != nil {
		span.RecordError(err)
		return classify.Unknown, false, err
	}

	mono, err := p.Resampler.ToMono16k(p.windowedChannels(windowLen), windowLen)
	if err != nil {
		span.RecordError(err)
		return classify.Unknown, false, fmt.Errorf("segment: resampling window: %w", err)
	}

	skipped := false
	if p.VADEnabled {
		energyOK, filtered := vad.EnergyGate(mono)
		speechLikely := energyOK
		if prob, err := p.Secondary.Infer(filtered); err == nil {
			speechLikely = speechLikely && prob >= 0.5
		}
		skipped = !speechLikely
	}

	newDataStart := windowLen - numNewFrames
	outputStaging := p.snapshotOutput(windowLen)

	result := classify.Unknown
	if !skipped {
		result = p.Classifier.Classify(ctx, mono)
		if p.DoSilence {
			p.applyTransform(outputStaging, result, newDataStart, numNewFrames)
		}
	}

	p.publish(outputStaging, newDataStart, numNewFrames, startTimestamp)
	p.updateOverlap(numNewFrames, skipped, time.Since(start))

	span.SetAttributes(
		attribute.String("cleanstream.detection_result", result.String()),
		attribute.Bool("cleanstream.skipped_inference", skipped),
		attribute.Int("cleanstream.num_new_frames", numNewFrames),
		attribute.Int("cleanstream.overlap_ms", p.Window.OverlapMs),
	)

	return result, true, nil
}

// drainInputMeta pops PacketInfo entries until the accumulated frame
// count would exceed target, pushing the overshooting entry back to
// the front unconsumed. Returns ok=false if no input is queued at all.
func (p *Processor) drainInputMeta(target int) (numNewFrames int, startTimestamp uint64, ok bool) {
	accumulated := 0
	haveStart := false

	for accumulated < target {
		meta, popped := p.Store.PopInputMeta()
		if !popped {
			break
		}
		if !haveStart {
			startTimestamp = meta.Timestamp
			haveStart = true
		}
		if accumulated+int(meta.Frames) > target {
			p.Store.PushFrontInputMeta(meta)
			break
		}
		accumulated += int(meta.Frames)
	}

	if accumulated == 0 {
		return 0, 0, false
	}
	return accumulated, startTimestamp, true
}

// assembleWindow implements spec §4.5 step 2: carry the overlap tail
// of the previous window into the head of this one, then append the
// newly drained samples. Returns the resulting window length.
func (p *Processor) assembleWindow(numNewFrames int) (int, error) {
	overlapFrames := p.Window.OverlapFrames
	lastNumFrames := p.Window.LastNumFrames

	for c := 0; c < p.Channels; c++ {
		if p.Store.InputPCMLen(c) < numNewFrames {
			return 0, fmt.Errorf("segment: channel %d has fewer than %d samples queued", c, numNewFrames)
		}
	}

	var windowLen int
	for c := 0; c < p.Channels; c++ {
		buf := p.Window.CopyBuffers[c]
		if lastNumFrames > 0 {
			copy(buf[0:overlapFrames], buf[lastNumFrames-overlapFrames:lastNumFrames])
			newSamples := p.Store.PopInputSamples(c, numNewFrames)
			copy(buf[overlapFrames:overlapFrames+numNewFrames], newSamples)
			windowLen = overlapFrames + numNewFrames
		} else {
			newSamples := p.Store.PopInputSamples(c, numNewFrames)
			copy(buf[0:numNewFrames], newSamples)
			windowLen = numNewFrames
		}
	}

	p.Window.LastNumFrames = windowLen
	return windowLen, nil
}

func (p *Processor) windowedChannels(windowLen int) [][]float32 {
	out := make([][]float32, p.Channels)
	for c := 0; c < p.Channels; c++ {
		out[c] = p.Window.CopyBuffers[c][:windowLen]
	}
	return out
}

func (p *Processor) snapshotOutput(windowLen int) [][]float32 {
	out := make([][]float32, p.Channels)
	for c := 0; c < p.Channels; c++ {
		out[c] = make([]float32, windowLen)
		copy(out[c], p.Window.CopyBuffers[c][:windowLen])
	}
	return out
}

// applyTransform mutes (FILLER) or tones (BEEP) only the new-data
// region [newDataStart, newDataStart+numNewFrames) of staging — the
// overlap head at the front was already published and transformed, if
// at all, in the prior window.
func (p *Processor) applyTransform(staging [][]float32, result classify.DetectionResult, newDataStart, numNewFrames int) {
	switch result {
	case classify.Filler:
		for c := range staging {
			for i := 0; i < numNewFrames; i++ {
				staging[c][newDataStart+i] = 0
			}
		}
	case classify.Beep:
		for c := range staging {
			for i := 0; i < numNewFrames; i++ {
				t := float64(i) / float64(p.SourceRate)
				staging[c][newDataStart+i] = float32(0.5 * math.Sin(2*math.Pi*440*t))
			}
		}
	}
}

func (p *Processor) publish(staging [][]float32, newDataStart, numNewFrames int, startTimestamp uint64) {
	out := make([][]float32, p.Channels)
	for c := range staging {
		out[c] = staging[c][newDataStart : newDataStart+numNewFrames]
	}
	p.Store.PushOutput(ringstore.PacketInfo{Frames: uint32(numNewFrames), Timestamp: startTimestamp}, out)
}

// updateOverlap implements spec §4.5 step 8.
func (p *Processor) updateOverlap(numNewFrames int, skipped bool, elapsed time.Duration) {
	newMs := float64(numNewFrames) * 1000 / float64(p.SourceRate)
	elapsedMs := float64(elapsed) / float64(time.Millisecond)

	switch {
	case elapsedMs > newMs:
		p.Window.OverlapMs = maxInt(p.Window.OverlapMs-10, config.MinOverlapMs)
	case !skipped:
		ceiling := int(0.75 * newMs)
		p.Window.OverlapMs = minInt(p.Window.OverlapMs+10, ceiling)
	}

	p.Window.OverlapFrames = p.Window.OverlapMs * p.SourceRate / 1000
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
