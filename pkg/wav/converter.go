package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

// Format describes 16-bit little-endian PCM
type Format struct {
	Channels   int
	SampleRate int
}

// Mono16k is what the microphone capture produces
var Mono16k = Format{Channels: 1, SampleRate: 16000}

const headerSize = 44

func (f Format) bytesPerSecond() int {
	return f.SampleRate * f.Channels * 2
}

// Duration returns the play time of pcmLen bytes
func (f Format) Duration(pcmLen int) time.Duration {
	if f.bytesPerSecond() == 0 {
		return 0
	}
	return time.Duration(pcmLen) * time.Second / time.Duration(f.bytesPerSecond())
}

// Encode wraps raw PCM in a RIFF/WAVE container
func Encode(pcm []byte, f Format) ([]byte, error) {
	if f.Channels <= 0 || f.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid wav format %+v", f)
	}
	if len(pcm)%2 != 0 {
		return nil, fmt.Errorf("pcm length %d is not a whole number of 16-bit samples", len(pcm))
	}

	buffer := bytes.NewBuffer(make([]byte, 0, headerSize+len(pcm)))

	header := []interface{}{
		[]byte("RIFF"),
		uint32(len(pcm) + headerSize - 8),
		[]byte("WAVE"),
		// "fmt " chunk: PCM, 16 bits per sample
		[]byte("fmt "),
		uint32(16),
		uint16(1),
		uint16(f.Channels),
		uint32(f.SampleRate),
		uint32(f.bytesPerSecond()),
		uint16(f.Channels * 2),
		uint16(16),
		[]byte("data"),
		uint32(len(pcm)),
	}
	for _, v := range header {
		if err := binary.Write(buffer, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("write wav header: %w", err)
		}
	}
	buffer.Write(pcm)

	return buffer.Bytes(), nil
}
