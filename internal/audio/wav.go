package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/go-audio/wav"
)

// DecodeWAV parses a WAV payload and returns interleaved s16le PCM bytes
// plus the sample rate. Returns an error for anything that is not a valid
// PCM WAV file.
func DecodeWAV(data []byte) ([]byte, int, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, 0, errors.New("not a valid wav payload")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("read wav pcm: %w", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, 0, errors.New("empty wav payload")
	}

	pcm := make([]byte, len(buf.Data)*2)
	for i, s := range buf.Data {
		if s > math.MaxInt16 {
			s = math.MaxInt16
		}
		if s < math.MinInt16 {
			s = math.MinInt16
		}
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(s)))
	}
	return pcm, int(dec.SampleRate), nil
}
