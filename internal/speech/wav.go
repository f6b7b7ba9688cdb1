package speech

import (
	"encoding/binary"
	"fmt"
)

// EncodeWAV wraps 16-bit little-endian mono PCM samples in a WAV container.
func EncodeWAV(pcm []byte, sampleRate int) []byte {
	const (
		channels      = 1
		bitsPerSample = 16
	)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+len(pcm)))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16) // PCM chunk size
	binary.LittleEndian.PutUint16(header[20:22], 1)  // PCM format
	binary.LittleEndian.PutUint16(header[22:24], channels)
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(len(pcm)))

	return append(header, pcm...)
}

// downmixStereo averages interleaved 16-bit stereo samples into mono.
func downmixStereo(stereo []byte) ([]byte, error) {
	if len(stereo)%4 != 0 {
		return nil, fmt.Errorf("stereo PCM length %d is not frame-aligned", len(stereo))
	}
	mono := make([]byte, len(stereo)/2)
	for i := 0; i < len(stereo); i += 4 {
		left := int16(binary.LittleEndian.Uint16(stereo[i : i+2]))
		right := int16(binary.LittleEndian.Uint16(stereo[i+2 : i+4]))
		mixed := int16((int32(left) + int32(right)) / 2)
		binary.LittleEndian.PutUint16(mono[i/2:i/2+2], uint16(mixed))
	}
	return mono, nil
}

// resampleMono converts 16-bit mono PCM between sample rates by linear
// interpolation. Telephone audio is narrowband anyway, so this is plenty.
func resampleMono(pcm []byte, fromRate, toRate int) []byte {
	if fromRate == toRate || len(pcm) < 4 {
		return pcm
	}
	samples := len(pcm) / 2
	outSamples := int(int64(samples) * int64(toRate) / int64(fromRate))
	out := make([]byte, outSamples*2)
	for i := 0; i < outSamples; i++ {
		pos := float64(i) * float64(fromRate) / float64(toRate)
		idx := int(pos)
		if idx >= samples-1 {
			idx = samples - 2
		}
		frac := pos - float64(idx)
		a := int16(binary.LittleEndian.Uint16(pcm[idx*2 : idx*2+2]))
		b := int16(binary.LittleEndian.Uint16(pcm[idx*2+2 : idx*2+4]))
		v := int16(float64(a)*(1-frac) + float64(b)*frac)
		binary.LittleEndian.PutUint16(out[i*2:i*2+2], uint16(v))
	}
	return out
}
