package playback

import (
	"github.com/Kalyan-sundar1/Speech-to-Speech-Mini/internal/audio"
)

// WAVDecoder decodes synthesized WAV payloads into s16le PCM.
type WAVDecoder struct{}

var _ Decoder = WAVDecoder{}

// Decode implements Decoder.
func (WAVDecoder) Decode(chunk []byte) (PCM, error) {
	pcm, rate, err := audio.DecodeWAV(chunk)
	if err != nil {
		return PCM{}, err
	}
	return PCM{Data: pcm, SampleRate: rate}, nil
}
