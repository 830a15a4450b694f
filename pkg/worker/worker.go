// Package worker runs the single background goroutine that drains
// ringstore and drives the segment processor whenever enough input is
// queued.
package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/cleanstream/cleanstream/pkg/segment"
)

// pollInterval is the compiled-in sleep between idle checks (spec §4.6).
const pollInterval = 10 * time.Millisecond

// EngineReadyFunc reports whether the classifier's ASR context is
// still installed. The Worker exits its loop once this returns false —
// the null-context signal, per spec §4.6/§5, is the only cancellation
// primitive besides ctx.Done().
type EngineReadyFunc func() bool

// InputLenFunc returns the number of samples currently queued on
// channel 0 of the input side, used for the bytes_queued threshold
// check. Must be safe to call without any lock the Worker itself
// holds — the caller (filter.Filter) is responsible for taking
// BufMutex internally.
type InputLenFunc func() int

// Worker owns the single goroutine that polls for enough queued input
// and drives one Processor.Process call per window. Grounded on the
// Start(ctx)/cancel/wg.Wait lifecycle idiom used throughout
// pkg/elements in the codebase this adapts.
type Worker struct {
	processor    *segment.Processor
	engineReady  EngineReadyFunc
	inputLen     InputLenFunc
	framesPerWin int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Worker. framesPerWindow is the threshold — the Worker
// only attempts a window once framesPerWindow samples are queued,
// exactly as spec §4.6 step 2 specifies (a conservative check that
// does not vary with the adaptive overlap).
func New(processor *segment.Processor, framesPerWindow int, engineReady EngineReadyFunc, inputLen InputLenFunc) *Worker {
	return &Worker{
		processor:    processor,
		engineReady:  engineReady,
		inputLen:     inputLen,
		framesPerWin: framesPerWindow,
	}
}

// Start launches the polling goroutine. Safe to call once per Worker.
func (w *Worker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
}

// Stop cancels the outer context and joins the goroutine. The caller
// is expected to have already nulled the ASR context so the next
// engineReady() check also observes termination.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
		w.wg.Wait()
		w.cancel = nil
	}
}

func (w *Worker) run(ctx context.Context) {
	for {
		if !w.engineReady() {
			return
		}

		for w.inputLen() >= w.framesPerWin {
			if _, _, err := w.processor.Process(ctx); err != nil {
				log.Printf("[worker] segment processing failed: %v", err)
				break
			}
			if !w.engineReady() {
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(pollInterval):
		}
	}
}
