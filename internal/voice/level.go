package voice

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/wav"
)

var (
	ErrNotWAV = errors.New("not a wav file")
	// ErrSilent means a clip was below the sensitivity threshold.
	ErrSilent = errors.New("clip too quiet")
)

// Threshold maps an audio sensitivity of 0..10 to the minimum normalized RMS
// a clip needs. 0 is the least sensitive (0.20); 10 lets everything through.
func Threshold(sensitivity int) float64 {
	if sensitivity < 0 {
		sensitivity = 0
	}
	if sensitivity > 10 {
		sensitivity = 10
	}
	return 0.02 * float64(10-sensitivity)
}

// Level returns the normalized RMS (0..1) of a PCM WAV stream.
func Level(r io.ReadSeeker) (float64, error) {
	if !wav.NewDecoder(r).IsValidFile() {
		return 0, ErrNotWAV
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("rewind wav: %w", err)
	}
	d := wav.NewDecoder(r)
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return 0, fmt.Errorf("decode wav: %w", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return 0, nil
	}
	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = int(d.BitDepth)
	}
	if depth < 8 {
		depth = 16
	}
	full := float64(int64(1) << (depth - 1))
	// 8-bit PCM is unsigned with silence at the midpoint.
	offset := 0.0
	if depth == 8 {
		offset = full
	}

	var sum float64
	for _, v := range buf.Data {
		x := (float64(v) - offset) / full
		sum += x * x
	}
	return math.Sqrt(sum / float64(len(buf.Data))), nil
}

// Gate returns the clip level and ErrSilent when it is below the threshold
// for sensitivity.
func Gate(r io.ReadSeeker, sensitivity int) (float64, error) {
	lvl, err := Level(r)
	if err != nil {
		return 0, err
	}
	if lvl < Threshold(sensitivity) {
		return lvl, ErrSilent
	}
	return lvl, nil
}
