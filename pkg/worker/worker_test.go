package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cleanstream/cleanstream/pkg/asr"
	"github.com/cleanstream/cleanstream/pkg/classify"
	"github.com/cleanstream/cleanstream/pkg/config"
	"github.com/cleanstream/cleanstream/pkg/ringstore"
	"github.com/cleanstream/cleanstream/pkg/segment"
	"github.com/cleanstream/cleanstream/pkg/vad"
)

type fakeResampler struct{}

func (fakeResampler) ToMono16k(planar [][]float32, numFrames int) ([]float32, error) {
	out := make([]float32, numFrames)
	copy(out, planar[0][:numFrames])
	return out, nil
}

func pushPackets(store *ringstore.Store, n, frameSize int, value float32) {
	for i := 0; i < n; i++ {
		samples := make([]float32, frameSize)
		for j := range samples {
			samples[j] = value
		}
		store.PushInput(ringstore.PacketInfo{Frames: uint32(frameSize), Timestamp: uint64(i)}, [][]float32{samples})
	}
}

func TestWorkerDrainsQueuedWindowsAndExitsOnEngineNotReady(t *testing.T) {
	const sourceRate = 1000
	store := ringstore.New(1)
	window := segment.NewWindowState(sourceRate, 1)
	engine := asr.NewStubEngineWithText("speech")
	classifier := classify.New(engine, classify.Config{})
	proc := segment.New(store, fakeResampler{}, classifier, vad.NullDetector{}, window, sourceRate, 1, config.Config{DoSilence: true})

	// Enough for exactly one window (1010 frames) and no more.
	pushPackets(store, 101, 10, 0.2)

	var ready atomic.Bool
	ready.Store(true)

	w := New(proc, window.FramesPerWindow, ready.Load, func() int { return store.InputPCMLen(0) })
	w.Start(context.Background())

	deadline := time.After(2 * time.Second)
	for store.OutputMetaLen() == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for worker to publish a window")
		case <-time.After(5 * time.Millisecond):
		}
	}

	ready.Store(false)
	w.Stop()

	if store.OutputMetaLen() != 1 {
		t.Errorf("OutputMetaLen() = %d, want 1", store.OutputMetaLen())
	}
}

func TestWorkerIdlesWithoutEnoughInput(t *testing.T) {
	const sourceRate = 1000
	store := ringstore.New(1)
	window := segment.NewWindowState(sourceRate, 1)
	engine := asr.NewStubEngine()
	classifier := classify.New(engine, classify.Config{})
	proc := segment.New(store, fakeResampler{}, classifier, vad.NullDetector{}, window, sourceRate, 1, config.Config{})

	// Fewer frames than framesPerWindow.
	pushPackets(store, 10, 10, 0.1)

	var ready atomic.Bool
	ready.Store(true)

	w := New(proc, window.FramesPerWindow, ready.Load, func() int { return store.InputPCMLen(0) })
	w.Start(context.Background())

	time.Sleep(60 * time.Millisecond)
	ready.Store(false)
	w.Stop()

	if store.OutputMetaLen() != 0 {
		t.Errorf("OutputMetaLen() = %d, want 0 (window never filled)", store.OutputMetaLen())
	}
}
