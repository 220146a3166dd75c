package audioconv

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// convertWithLibrary decodes an MP3, resamples the PCM stream to the target
// rate and encodes it as 16-bit stereo WAV. Only MP3 input is supported on
// this path; the remote site delivers MP3, and anything else goes through
// ffmpeg.
func convertWithLibrary(inputPath, outputPath string, sampleRate int) error {
	f, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return fmt.Errorf("decode mp3: %w", err)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return fmt.Errorf("read pcm: %w", err)
	}
	if len(raw) < 4 {
		return fmt.Errorf("decoded stream too short (%d bytes)", len(raw))
	}

	// go-mp3 always yields interleaved 16-bit little-endian stereo
	samples := make([]int, len(raw)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(raw[2*i:])))
	}

	if dec.SampleRate() != sampleRate {
		samples = resampleStereo(samples, dec.SampleRate(), sampleRate)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer out.Close()

	enc := wav.NewEncoder(out, sampleRate, 16, 2, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}

// resampleStereo linearly interpolates interleaved stereo samples from
// srcRate to dstRate. Linear interpolation is plenty for spoken-word audio.
func resampleStereo(samples []int, srcRate, dstRate int) []int {
	frames := len(samples) / 2
	if frames == 0 || srcRate == dstRate {
		return samples
	}
	outFrames := int(int64(frames) * int64(dstRate) / int64(srcRate))
	out := make([]int, outFrames*2)

	ratio := float64(srcRate) / float64(dstRate)
	for i := 0; i < outFrames; i++ {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := pos - float64(idx)
		next := idx + 1
		if next >= frames {
			next = frames - 1
		}
		for ch := 0; ch < 2; ch++ {
			a := float64(samples[idx*2+ch])
			b := float64(samples[next*2+ch])
			out[i*2+ch] = int(a + (b-a)*frac)
		}
	}
	return out
}
