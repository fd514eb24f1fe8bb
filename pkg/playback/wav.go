package playback

import (
	"encoding/binary"
	"io"
)

// WriteWAV writes the two channels as a 16-bit interleaved stereo PCM WAV
// stream.
func WriteWAV(w io.Writer, left, right []float32, sampleRate int32) error {
	samples := len(left)
	if len(right) < samples {
		samples = len(right)
	}

	const (
		channels      = 2
		bitsPerSample = 16
	)
	blockAlign := channels * bitsPerSample / 8
	dataSize := samples * blockAlign

	var header [44]byte
	copy(header[0:], "RIFF")
	binary.LittleEndian.PutUint32(header[4:], uint32(36+dataSize))
	copy(header[8:], "WAVE")
	copy(header[12:], "fmt ")
	binary.LittleEndian.PutUint32(header[16:], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(header[20:], 1)  // PCM
	binary.LittleEndian.PutUint16(header[22:], channels)
	binary.LittleEndian.PutUint32(header[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:], uint32(int(sampleRate)*blockAlign))
	binary.LittleEndian.PutUint16(header[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:], bitsPerSample)
	copy(header[36:], "data")
	binary.LittleEndian.PutUint32(header[40:], uint32(dataSize))

	if _, err := w.Write(header[:]); err != nil {
		return err
	}

	buf := make([]byte, 4)
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint16(buf[0:], uint16(pcm16(left[i])))
		binary.LittleEndian.PutUint16(buf[2:], uint16(pcm16(right[i])))
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

func pcm16(v float32) int16 {
	if v > 1 {
		v = 1
	}
	if v < -1 {
		v = -1
	}
	return int16(v * 32767)
}
