package muxer

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"captionburn/models"
)

// minContainerSize is the smallest plausible output of either container.
const minContainerSize = 128

// ErrMalformed is returned when a container does not parse.
var ErrMalformed = errors.New("malformed container")

// ContainerInfo is what Inspect reads back from a finished file.
type ContainerInfo struct {
	Container  models.Container
	Size       int
	Duration   time.Duration
	Width      int
	Height     int
	VideoTrack bool
	AudioTrack bool
	// Frames is the video sample count when the container records it.
	Frames int
}

// Inspect performs a structural check of container bytes.
func Inspect(data []byte, container models.Container) (ContainerInfo, error) {
	if len(data) < minContainerSize {
		return ContainerInfo{}, fmt.Errorf("%w: %d bytes is too small", ErrMalformed, len(data))
	}
	switch container {
	case models.ContainerMP4:
		return inspectMP4(data)
	case models.ContainerAVI:
		return inspectAVI(data)
	}
	return ContainerInfo{}, fmt.Errorf("unsupported container %q", container)
}

type box struct {
	kind    string
	payload []byte
}

// boxes splits an ISO BMFF byte range into its top level boxes.
func boxes(data []byte) ([]box, error) {
	var out []box
	for len(data) > 0 {
		if len(data) < 8 {
			return nil, fmt.Errorf("%w: truncated box header", ErrMalformed)
		}
		size := uint64(binary.BigEndian.Uint32(data[0:4]))
		kind := string(data[4:8])
		header := uint64(8)
		switch size {
		case 0:
			size = uint64(len(data))
		case 1:
			if len(data) < 16 {
				return nil, fmt.Errorf("%w: truncated %s largesize", ErrMalformed, kind)
			}
			size = binary.BigEndian.Uint64(data[8:16])
			header = 16
		}
		if size < header || size > uint64(len(data)) {
			return nil, fmt.Errorf("%w: box %q has size %d of %d", ErrMalformed, kind, size, len(data))
		}
		out = append(out, box{kind: kind, payload: data[header:size]})
		data = data[size:]
	}
	return out, nil
}

func findBox(list []box, kind string) (box, bool) {
	for _, b := range list {
		if b.kind == kind {
			return b, true
		}
	}
	return box{}, false
}

func inspectMP4(data []byte) (ContainerInfo, error) {
	info := ContainerInfo{Container: models.ContainerMP4, Size: len(data)}
	top, err := boxes(data)
	if err != nil {
		return info, err
	}
	if len(top) == 0 || top[0].kind != "ftyp" {
		return info, fmt.Errorf("%w: missing ftyp", ErrMalformed)
	}
	moov, ok := findBox(top, "moov")
	if !ok {
		return info, fmt.Errorf("%w: missing moov", ErrMalformed)
	}
	children, err := boxes(moov.payload)
	if err != nil {
		return info, err
	}

	mvhd, ok := findBox(children, "mvhd")
	if !ok {
		return info, fmt.Errorf("%w: missing mvhd", ErrMalformed)
	}
	if info.Duration, err = movieDuration(mvhd.payload); err != nil {
		return info, err
	}

	for _, trak := range children {
		if trak.kind != "trak" {
			continue
		}
		if err := inspectTrack(trak.payload, &info); err != nil {
			return info, err
		}
	}
	if !info.VideoTrack {
		return info, fmt.Errorf("%w: no video track", ErrMalformed)
	}
	return info, nil
}

func movieDuration(p []byte) (time.Duration, error) {
	if len(p) < 1 {
		return 0, fmt.Errorf("%w: empty mvhd", ErrMalformed)
	}
	var scale, dur uint64
	if p[0] == 1 {
		if len(p) < 32 {
			return 0, fmt.Errorf("%w: short mvhd", ErrMalformed)
		}
		scale = uint64(binary.BigEndian.Uint32(p[20:24]))
		dur = binary.BigEndian.Uint64(p[24:32])
	} else {
		if len(p) < 20 {
			return 0, fmt.Errorf("%w: short mvhd", ErrMalformed)
		}
		scale = uint64(binary.BigEndian.Uint32(p[12:16]))
		dur = uint64(binary.BigEndian.Uint32(p[16:20]))
	}
	if scale == 0 {
		return 0, fmt.Errorf("%w: zero timescale", ErrMalformed)
	}
	return time.Duration(float64(dur) / float64(scale) * float64(time.Second)), nil
}

func inspectTrack(p []byte, info *ContainerInfo) error {
	children, err := boxes(p)
	if err != nil {
		return err
	}
	mdia, ok := findBox(children, "mdia")
	if !ok {
		return nil
	}
	media, err := boxes(mdia.payload)
	if err != nil {
		return err
	}
	hdlr, ok := findBox(media, "hdlr")
	if !ok || len(hdlr.payload) < 12 {
		return nil
	}

	switch string(hdlr.payload[8:12]) {
	case "soun":
		info.AudioTrack = true
	case "vide":
		info.VideoTrack = true
		if tkhd, ok := findBox(children, "tkhd"); ok {
			info.Width, info.Height = trackSize(tkhd.payload)
		}
		info.Frames = sampleCount(media)
	}
	return nil
}

// trackSize reads the 16.16 fixed point width and height of a tkhd box.
func trackSize(p []byte) (int, int) {
	off := 76
	if len(p) > 0 && p[0] == 1 {
		off = 88
	}
	if len(p) < off+8 {
		return 0, 0
	}
	w := binary.BigEndian.Uint32(p[off : off+4])
	h := binary.BigEndian.Uint32(p[off+4 : off+8])
	return int(w >> 16), int(h >> 16)
}

// sampleCount walks mdia/minf/stbl/stsz.
func sampleCount(media []box) int {
	path := []string{"minf", "stbl", "stsz"}
	list := media
	var cur box
	for _, kind := range path {
		b, ok := findBox(list, kind)
		if !ok {
			return 0
		}
		cur = b
		if kind == "stsz" {
			break
		}
		next, err := boxes(b.payload)
		if err != nil {
			return 0
		}
		list = next
	}
	if len(cur.payload) < 12 {
		return 0
	}
	return int(binary.BigEndian.Uint32(cur.payload[8:12]))
}

func inspectAVI(data []byte) (ContainerInfo, error) {
	info := ContainerInfo{Container: models.ContainerAVI, Size: len(data)}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "AVI " {
		return info, fmt.Errorf("%w: missing RIFF AVI header", ErrMalformed)
	}
	idx := bytes.Index(data[12:], []byte("avih"))
	if idx < 0 {
		return info, fmt.Errorf("%w: missing avih", ErrMalformed)
	}
	start := 12 + idx + 8
	if len(data) < start+40 {
		return info, fmt.Errorf("%w: short avih", ErrMalformed)
	}
	h := data[start : start+40]
	usPerFrame := binary.LittleEndian.Uint32(h[0:4])
	info.Frames = int(binary.LittleEndian.Uint32(h[16:20]))
	streams := binary.LittleEndian.Uint32(h[24:28])
	info.Width = int(binary.LittleEndian.Uint32(h[32:36]))
	info.Height = int(binary.LittleEndian.Uint32(h[36:40]))
	info.VideoTrack = streams >= 1
	info.AudioTrack = streams >= 2
	info.Duration = time.Duration(info.Frames) * time.Duration(usPerFrame) * time.Microsecond

	if !info.VideoTrack || info.Width <= 0 || info.Height <= 0 {
		return info, fmt.Errorf("%w: avi has no usable video stream", ErrMalformed)
	}
	return info, nil
}
