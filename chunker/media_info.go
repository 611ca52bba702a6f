package chunker

// MediaInfo represents the minimal media metadata needed for chunk planning.
//
// This interface decouples the chunker from the prober, making it easy to
// test with fixed durations.
type MediaInfo interface {
	// GetDuration returns the media duration in seconds.
	// Returns an error if duration is not available or invalid.
	GetDuration() (float64, error)
}
