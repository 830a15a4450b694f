// Package ringstore holds the per-channel PCM queues and packet-framing
// metadata queues that sit between the host's audio callback and the
// inference worker.
//
// Unlike audio.RingBuffer in the package this one is modeled on, Store
// carries no internal mutex: callers serialize access themselves using
// the three locks documented on filter.Filter (BufMutex/OutBufMutex/
// CtxMutex), because the input and output sides are locked
// independently and a Store instance spans both.
package ringstore

// PacketInfo is the framing metadata preserved verbatim from an input
// packet to whichever output packet(s) it contributes frames to.
type PacketInfo struct {
	Frames    uint32
	Timestamp uint64
}

// Store holds the input and output PCM/metadata queues for one Filter
// instance, one pair of FIFOs per channel.
type Store struct {
	channels int

	inputPCM  [][]float32
	inputMeta []PacketInfo

	outputPCM  [][]float32
	outputMeta []PacketInfo
}

// New allocates a Store for the given channel count.
func New(channels int) *Store {
	s := &Store{
		channels:  channels,
		inputPCM:  make([][]float32, channels),
		outputPCM: make([][]float32, channels),
	}
	for c := range s.inputPCM {
		s.inputPCM[c] = make([]float32, 0, 4096)
		s.outputPCM[c] = make([]float32, 0, 4096)
	}
	return s
}

// Channels returns the configured channel count.
func (s *Store) Channels() int { return s.channels }

// PushInput appends one packet's samples (one slice per channel, all of
// equal length) and its PacketInfo to the input queues.
func (s *Store) PushInput(meta PacketInfo, samples [][]float32) {
	for c := 0; c < s.channels; c++ {
		s.inputPCM[c] = append(s.inputPCM[c], samples[c]...)
	}
	s.inputMeta = append(s.inputMeta, meta)
}

// PopInputMeta removes and returns the oldest input PacketInfo.
func (s *Store) PopInputMeta() (PacketInfo, bool) {
	if len(s.inputMeta) == 0 {
		return PacketInfo{}, false
	}
	m := s.inputMeta[0]
	s.inputMeta = s.inputMeta[1:]
	return m, true
}

// PushFrontInputMeta returns a partially-consumed PacketInfo to the
// front of the input metadata queue, used when the window assembler
// declines an entry that would overshoot its target frame count.
func (s *Store) PushFrontInputMeta(m PacketInfo) {
	s.inputMeta = append([]PacketInfo{m}, s.inputMeta...)
}

// InputPCMLen returns the number of buffered samples for a channel.
func (s *Store) InputPCMLen(channel int) int {
	return len(s.inputPCM[channel])
}

// PopInputSamples removes and returns the oldest n samples for a
// channel. Panics if fewer than n samples are buffered — callers must
// check InputPCMLen first.
func (s *Store) PopInputSamples(channel int, n int) []float32 {
	buf := s.inputPCM[channel]
	if n > len(buf) {
		panic("ringstore: PopInputSamples: insufficient samples buffered")
	}
	out := make([]float32, n)
	copy(out, buf[:n])
	s.inputPCM[channel] = compact(buf[n:])
	return out
}

// PushOutput appends one window's worth of processed samples and its
// PacketInfo to the output queues.
func (s *Store) PushOutput(meta PacketInfo, samples [][]float32) {
	for c := 0; c < s.channels; c++ {
		s.outputPCM[c] = append(s.outputPCM[c], samples[c]...)
	}
	s.outputMeta = append(s.outputMeta, meta)
}

// OutputMetaLen returns the number of queued output packets.
func (s *Store) OutputMetaLen() int { return len(s.outputMeta) }

// PopOutputMeta removes and returns the oldest output PacketInfo.
func (s *Store) PopOutputMeta() (PacketInfo, bool) {
	if len(s.outputMeta) == 0 {
		return PacketInfo{}, false
	}
	m := s.outputMeta[0]
	s.outputMeta = s.outputMeta[1:]
	return m, true
}

// PopOutputSamples removes and returns the oldest n samples for a
// channel. Panics if fewer than n samples are buffered.
func (s *Store) PopOutputSamples(channel int, n int) []float32 {
	buf := s.outputPCM[channel]
	if n > len(buf) {
		panic("ringstore: PopOutputSamples: insufficient samples buffered")
	}
	out := make([]float32, n)
	copy(out, buf[:n])
	s.outputPCM[channel] = compact(buf[n:])
	return out
}

// compact copies a reslice down to a fresh backing array once its
// remaining capacity exceeds 4096 samples and is more than four times
// its length, so a drained FIFO does not keep a large backing array.
func compact(buf []float32) []float32 {
	if cap(buf) > 4096 && cap(buf) > 4*len(buf) {
		fresh := make([]float32, len(buf), len(buf)*2+64)
		copy(fresh, buf)
		return fresh
	}
	return buf
}
