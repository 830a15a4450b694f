// Package segment assembles one inference window per invocation from
// ringstore, drives it through Resampler -> VAD -> Classifier, applies
// the mute/beep transform, and republishes the result — the control
// center of the filter.
package segment

import "github.com/cleanstream/cleanstream/pkg/config"

// WindowState tracks the sliding-window assembly across successive
// Processor.Process calls. A fresh WindowState (LastNumFrames == 0)
// reproduces first-window semantics, which is how a model reload
// resets the pipeline without rebuilding the whole Processor.
type WindowState struct {
	FramesPerWindow int
	OverlapMs       int
	OverlapFrames   int
	LastNumFrames   int
	CopyBuffers     [][]float32
}

// NewWindowState allocates a WindowState for the given source rate and
// channel count, using the compiled-in window/overlap constants.
func NewWindowState(sourceRate, channels int) *WindowState {
	framesPerWindow := sourceRate * config.WindowMs / 1000
	overlapFrames := sourceRate * config.InitialOverlapMs / 1000

	cb := make([][]float32, channels)
	for c := range cb {
		cb[c] = make([]float32, framesPerWindow)
	}

	return &WindowState{
		FramesPerWindow: framesPerWindow,
		OverlapMs:       config.InitialOverlapMs,
		OverlapFrames:   overlapFrames,
		CopyBuffers:     cb,
	}
}

// Reset reapplies first-window semantics — used after a model reload
// per spec §8 scenario 6 ("last_num_frames is 0, first-window semantics
// reapply").
func (w *WindowState) Reset() {
	w.LastNumFrames = 0
}

// TargetNewFrames returns how many new input frames the next window
// should drain, per spec §4.5 step 1.
func (w *WindowState) TargetNewFrames() int {
	if w.LastNumFrames == 0 {
		return w.FramesPerWindow
	}
	return w.FramesPerWindow - w.OverlapFrames
}
