package audio

import (
	"fmt"
	"os"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
)

// LoadMP3 decodes a call file into memory and returns it as an endless loop
// at the engine's sample rate.
func LoadMP3(path string, sr beep.SampleRate) (beep.Streamer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode: %w", err)
	}
	defer streamer.Close()

	buffer := beep.NewBuffer(format)
	buffer.Append(streamer)
	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if buffer.Len() == 0 {
		return nil, fmt.Errorf("decode %s: no samples", path)
	}

	loop, err := beep.Loop2(buffer.Streamer(0, buffer.Len()))
	if err != nil {
		return nil, fmt.Errorf("loop: %w", err)
	}
	if format.SampleRate != sr {
		loop = beep.Resample(4, format.SampleRate, sr, loop)
	}
	return loop, nil
}
