package ffmpeg

import "bytes"

// H.264 NAL unit types the splitter cares about.
const (
	nalTypeIDR = 5
	nalTypeAUD = 9
)

var startCode = []byte{0, 0, 1}

// SplitAccessUnits is a bufio.SplitFunc that cuts an Annex-B H.264 stream
// into access units. Every unit must begin with an access unit delimiter,
// which the encoder inserts via the h264_metadata bitstream filter. Bytes
// ahead of the first delimiter are kept with the first unit.
func SplitAccessUnits(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if len(data) == 0 {
		return 0, nil, nil
	}
	if end := nextDelimiter(data); end > 0 {
		return end, data[:end], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// nextDelimiter returns the offset of the first access unit delimiter that
// does not start at offset zero, or -1.
func nextDelimiter(data []byte) int {
	for off := 0; off+3 < len(data); {
		i := bytes.Index(data[off:], startCode)
		if i < 0 || off+i+3 >= len(data) {
			return -1
		}
		pos := off + i
		if data[pos+3]&0x1f == nalTypeAUD {
			begin := pos
			if begin > 0 && data[begin-1] == 0 {
				begin--
			}
			if begin > 0 {
				return begin
			}
		}
		off = pos + 3
	}
	return -1
}

// NALTypes lists the NAL unit types in an Annex-B buffer in order.
func NALTypes(unit []byte) []int {
	var types []int
	for off := 0; off < len(unit); {
		i := bytes.Index(unit[off:], startCode)
		if i < 0 || off+i+3 >= len(unit) {
			break
		}
		pos := off + i + 3
		types = append(types, int(unit[pos]&0x1f))
		off = pos
	}
	return types
}

// IsKeyframe reports whether the access unit carries an IDR slice.
func IsKeyframe(unit []byte) bool {
	for _, t := range NALTypes(unit) {
		if t == nalTypeIDR {
			return true
		}
	}
	return false
}
