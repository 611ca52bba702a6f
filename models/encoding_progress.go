package models

import "time"

// EncoderStats holds the latest counters an ffmpeg process reported on stderr.
//
// The pipeline uses them for diagnostics only: they show how far an encoder
// got when a flush stalls or a process exits early.
type EncoderStats struct {
	Frame       int64   // Frames the process has emitted
	FPS         float64 // Throughput in frames per second
	CurrentTime string  // Output timestamp (HH:MM:SS.MS)
	Seconds     float64 // CurrentTime in seconds
	Bitrate     string  // e.g. "128.0kbits/s"
	Speed       float64 // Realtime multiplier
	Size        string  // e.g. "1024kB"
	UpdatedAt   time.Time
}
