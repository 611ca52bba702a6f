package ffmpeg

import (
	"errors"
	"fmt"
)

// AACFrameSamples is the number of PCM samples per channel in one AAC frame.
const AACFrameSamples = 1024

var adtsSampleRates = [...]int{
	96000, 88200, 64000, 48000, 44100, 32000, 24000, 22050,
	16000, 12000, 11025, 8000, 7350,
}

// ErrBadADTS is returned when a buffer does not start with a valid ADTS header.
var ErrBadADTS = errors.New("invalid ADTS header")

// ADTSHeader holds the fields of an ADTS frame header that timing needs.
type ADTSHeader struct {
	SampleRate  int
	Channels    int
	FrameLength int // header plus payload, in bytes
	Blocks      int // raw data blocks in the frame
}

// Samples is the number of PCM samples per channel the frame decodes to.
func (h ADTSHeader) Samples() int {
	return h.Blocks * AACFrameSamples
}

// ParseADTSHeader decodes the 7-byte fixed and variable ADTS header.
func ParseADTSHeader(b []byte) (ADTSHeader, error) {
	if len(b) < 7 {
		return ADTSHeader{}, fmt.Errorf("%w: need 7 bytes, have %d", ErrBadADTS, len(b))
	}
	if b[0] != 0xFF || b[1]&0xF0 != 0xF0 {
		return ADTSHeader{}, fmt.Errorf("%w: missing sync word", ErrBadADTS)
	}

	rateIndex := int(b[2]>>2) & 0x0F
	if rateIndex >= len(adtsSampleRates) {
		return ADTSHeader{}, fmt.Errorf("%w: sample rate index %d", ErrBadADTS, rateIndex)
	}
	channels := int(b[2]&0x01)<<2 | int(b[3]>>6)
	length := int(b[3]&0x03)<<11 | int(b[4])<<3 | int(b[5]>>5)
	headerLen := 7
	if b[1]&0x01 == 0 {
		headerLen = 9 // CRC present
	}
	if length < headerLen {
		return ADTSHeader{}, fmt.Errorf("%w: frame length %d", ErrBadADTS, length)
	}

	return ADTSHeader{
		SampleRate:  adtsSampleRates[rateIndex],
		Channels:    channels,
		FrameLength: length,
		Blocks:      int(b[6]&0x03) + 1,
	}, nil
}

// SplitADTSFrames is a bufio.SplitFunc returning one ADTS frame per token.
func SplitADTSFrames(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if len(data) == 0 {
		return 0, nil, nil
	}
	if len(data) < 7 {
		if atEOF {
			return 0, nil, fmt.Errorf("%w: %d trailing bytes", ErrBadADTS, len(data))
		}
		return 0, nil, nil
	}

	h, err := ParseADTSHeader(data)
	if err != nil {
		return 0, nil, err
	}
	if len(data) < h.FrameLength {
		if atEOF {
			return 0, nil, fmt.Errorf("%w: truncated frame", ErrBadADTS)
		}
		return 0, nil, nil
	}
	return h.FrameLength, data[:h.FrameLength], nil
}
