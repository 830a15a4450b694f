// Command cleanstreamd is a demo host: it reads raw little-endian
// float32 PCM from stdin, pushes it through a Filter, and writes whatever
// pulls back out to stdout, driving the push/pull contract end to end.
package main

import (
	"bufio"
	"context"
	"encoding/binary"
	"flag"
	"io"
	"log"
	"math"
	"os"

	"github.com/joho/godotenv"

	"github.com/cleanstream/cleanstream/pkg/asr"
	"github.com/cleanstream/cleanstream/pkg/config"
	"github.com/cleanstream/cleanstream/pkg/filter"
	"github.com/cleanstream/cleanstream/pkg/tracing"
)

func main() {
	godotenv.Load()

	modelPath := flag.String("model", "", "path to the ASR model (overrides CLEANSTREAM_WHISPER_MODEL_PATH)")
	sourceRate := flag.Int("rate", 48000, "input sample rate")
	channels := flag.Int("channels", 1, "input channel count (1 or 2)")
	flag.Parse()

	ctx := context.Background()

	if err := tracing.Initialize(ctx, tracing.DefaultConfig()); err != nil {
		log.Fatalf("[cleanstreamd] tracing init failed: %v", err)
	}
	defer func() {
		if err := tracing.Shutdown(ctx); err != nil {
			log.Printf("[cleanstreamd] tracing shutdown failed: %v", err)
		}
	}()

	cfg := config.Load(config.Config{WhisperModelPath: *modelPath})

	f, err := filter.New(*sourceRate, *channels, cfg, buildWhisperEngine)
	if err != nil {
		log.Fatalf("[cleanstreamd] creating filter: %v", err)
	}
	defer f.Destroy()

	log.Printf("[cleanstreamd] filter %s ready; reading mono/stereo f32 PCM from stdin", f.ID)

	if err := runPipe(f, *channels); err != nil {
		log.Fatalf("[cleanstreamd] pipe error: %v", err)
	}
}

func buildWhisperEngine(modelPath string, cfg config.Config) (asr.Engine, error) {
	return asr.NewWhisperEngine(asr.WhisperConfig{
		APIKey:   cfg.OpenAIAPIKey,
		Language: cfg.WhisperLanguageSelect,
		Prompt:   cfg.InitialPrompt,
	})
}

// runPipe reads little-endian float32 PCM frames (packetFrames frames,
// interleaved across channels) from stdin and writes whatever the
// filter publishes back to stdout, until EOF.
func runPipe(f *filter.Filter, channels int) error {
	const packetFrames = 480 // 10ms at 48kHz, matching the host contract's typical callback size

	in := bufio.NewReaderSize(os.Stdin, 1<<20)
	out := bufio.NewWriterSize(os.Stdout, 1<<20)
	defer out.Flush()

	buf := make([]byte, packetFrames*channels*4)
	var timestamp uint64

	for {
		n, err := io.ReadFull(in, buf)
		if n == 0 {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil
			}
			return err
		}

		framesRead := n / (channels * 4)
		perChannel := make([][]float32, channels)
		for c := range perChannel {
			perChannel[c] = make([]float32, framesRead)
		}
		for i := 0; i < framesRead; i++ {
			for c := 0; c < channels; c++ {
				off := (i*channels + c) * 4
				bits := binary.LittleEndian.Uint32(buf[off:])
				perChannel[c][i] = math.Float32frombits(bits)
			}
		}

		pkt := filter.Packet{Channels: perChannel, Frames: uint32(framesRead), Timestamp: timestamp}
		timestamp += uint64(framesRead) * 1_000_000_000 / 48000

		if outPkt, ok := f.Push(pkt); ok {
			writePacket(out, outPkt, channels)
		}

		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return nil
		}
	}
}

func writePacket(w *bufio.Writer, pkt filter.Packet, channels int) {
	for i := 0; i < int(pkt.Frames); i++ {
		for c := 0; c < channels; c++ {
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], math.Float32bits(pkt.Channels[c][i]))
			w.Write(b[:])
		}
	}
}
