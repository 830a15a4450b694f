// Package resample converts planar float audio at an arbitrary source
// rate down to mono float audio at 16 kHz, using FFmpeg's software
// resampler. Only this forward direction is provided; there is no
// 16 kHz -> source-rate converter.
package resample

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/asticode/go-astiav"
)

// TargetSampleRate is the ASR engine's required input rate.
const TargetSampleRate = 16000

// Resampler is a stateful N-channel-float(source rate) -> mono-float
// (16 kHz) converter. It must be reused across calls (not recreated
// per-window) so the underlying polyphase filter stays sample-accurate
// across window boundaries.
//
// Grounded on audio.Resample in the codebase this package adapts: the
// same AllocSoftwareResampleContext/AllocFrame/ConvertFrame call
// sequence, generalized from packed S16 to packed float32 and widened
// to accept either mono or stereo source layouts (the only two the
// host audio contract ever presents).
type Resampler struct {
	ctx      *astiav.SoftwareResampleContext
	inFrame  *astiav.Frame
	outFrame *astiav.Frame

	inLayout astiav.ChannelLayout
	inRate   int
	channels int
}

// New creates a forward resampler for the given source rate and
// channel count (1 or 2 — the only layouts the host contract allows).
func New(sourceRate, channels int) (*Resampler, error) {
	if sourceRate <= 0 {
		return nil, fmt.Errorf("resample: invalid source rate %d", sourceRate)
	}
	var layout astiav.ChannelLayout
	switch channels {
	case 1:
		layout = astiav.ChannelLayoutMono
	case 2:
		layout = astiav.ChannelLayoutStereo
	default:
		return nil, fmt.Errorf("resample: unsupported channel count %d (host contract allows 1 or 2)", channels)
	}

	r := &Resampler{
		inLayout: layout,
		inRate:   sourceRate,
		channels: channels,
	}

	r.ctx = astiav.AllocSoftwareResampleContext()
	if r.ctx == nil {
		return nil, fmt.Errorf("resample: failed to allocate resample context")
	}
	r.inFrame = astiav.AllocFrame()
	if r.inFrame == nil {
		r.Free()
		return nil, fmt.Errorf("resample: failed to allocate input frame")
	}
	r.outFrame = astiav.AllocFrame()
	if r.outFrame == nil {
		r.Free()
		return nil, fmt.Errorf("resample: failed to allocate output frame")
	}

	return r, nil
}

// Free releases the underlying FFmpeg resources. Safe to call multiple
// times.
func (r *Resampler) Free() {
	if r.ctx != nil {
		r.ctx.Free()
		r.ctx = nil
	}
	if r.inFrame != nil {
		r.inFrame.Free()
		r.inFrame = nil
	}
	if r.outFrame != nil {
		r.outFrame.Free()
		r.outFrame = nil
	}
}

// ToMono16k resamples numFrames interleaved samples per channel of
// planar[c] (each sized >= numFrames) down to mono float32 at 16 kHz,
// returning the converted samples.
func (r *Resampler) ToMono16k(planar [][]float32, numFrames int) ([]float32, error) {
	const align = 0

	if numFrames <= 0 {
		return nil, fmt.Errorf("resample: numFrames must be positive")
	}
	if len(planar) != r.channels {
		return nil, fmt.Errorf("resample: expected %d channels, got %d", r.channels, len(planar))
	}

	inputBytes := interleaveLE(planar, numFrames)

	r.inFrame.Unref()
	r.outFrame.Unref()

	r.inFrame.SetChannelLayout(r.inLayout)
	r.inFrame.SetSampleFormat(astiav.SampleFormatFlt)
	r.inFrame.SetSampleRate(r.inRate)
	r.inFrame.SetNbSamples(numFrames)

	r.outFrame.SetChannelLayout(astiav.ChannelLayoutMono)
	r.outFrame.SetSampleFormat(astiav.SampleFormatFlt)
	r.outFrame.SetSampleRate(TargetSampleRate)

	outNumSamples := (numFrames * TargetSampleRate) / r.inRate
	if outNumSamples == 0 {
		outNumSamples = 1
	}
	r.outFrame.SetNbSamples(outNumSamples)

	if err := r.inFrame.AllocBuffer(align); err != nil {
		return nil, fmt.Errorf("resample: allocating input buffer: %w", err)
	}
	if err := r.outFrame.AllocBuffer(align); err != nil {
		return nil, fmt.Errorf("resample: allocating output buffer: %w", err)
	}
	if err := r.inFrame.MakeWritable(); err != nil {
		return nil, fmt.Errorf("resample: making input frame writable: %w", err)
	}

	actualBufferSize, err := r.inFrame.SamplesBufferSize(align)
	if err != nil {
		return nil, fmt.Errorf("resample: reading input buffer size: %w", err)
	}
	if len(inputBytes) < actualBufferSize {
		padded := make([]byte, actualBufferSize)
		copy(padded, inputBytes)
		inputBytes = padded
	}

	if err := r.inFrame.Data().SetBytes(inputBytes[:actualBufferSize], align); err != nil {
		return nil, fmt.Errorf("resample: setting input frame data: %w", err)
	}

	if err := r.ctx.ConvertFrame(r.inFrame, r.outFrame); err != nil {
		return nil, fmt.Errorf("resample: converting frame: %w", err)
	}

	outputBytes, err := r.outFrame.Data().Bytes(align)
	if err != nil {
		return nil, fmt.Errorf("resample: reading output frame data: %w", err)
	}

	return deinterleaveMonoLE(outputBytes), nil
}

// interleaveLE packs planar[c][0..numFrames) into a single
// little-endian byte buffer, interleaved frame-by-frame across
// channels, matching the packed (non-planar) frame layout the
// resample context expects.
func interleaveLE(planar [][]float32, numFrames int) []byte {
	channels := len(planar)
	out := make([]byte, numFrames*channels*4)
	for i := 0; i < numFrames; i++ {
		for c := 0; c < channels; c++ {
			binary.LittleEndian.PutUint32(out[(i*channels+c)*4:], math.Float32bits(planar[c][i]))
		}
	}
	return out
}

// deinterleaveMonoLE unpacks a little-endian mono float32 byte buffer.
func deinterleaveMonoLE(data []byte) []float32 {
	n := len(data) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}
