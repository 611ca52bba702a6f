// Package geometry maps a source size and resolution tier to the output
// raster size and video bitrate.
package geometry

import (
	"fmt"
	"math"

	"captionburn/models"
)

// minSide keeps degenerate sources from producing a zero-sized raster.
const minSide = 2

// bitrateTier is one row of the pixel-count bitrate table.
type bitrateTier struct {
	maxPixels int
	bitrate   int
}

var bitrateTable = []bitrateTier{
	{426 * 240, 500_000},
	{854 * 480, 1_500_000},
	{1280 * 720, 3_000_000},
	{1920 * 1080, 6_000_000},
}

// topBitrate applies to everything above 1080p.
const topBitrate = 10_000_000

// Plan is the output of the policy for one export.
type Plan struct {
	Geometry models.Geometry
	Bitrate  int
}

// Target computes the even output dimensions for a source of w×h pixels.
//
// The original tier rounds each side down to even independently. Numeric
// tiers keep the aspect ratio: width = round(tierHeight·w/h), and any odd
// side is bumped up to the next even number. Both sides are at least 2.
func Target(w, h int, r models.Resolution) (models.Geometry, error) {
	if w <= 0 || h <= 0 {
		return models.Geometry{}, fmt.Errorf("source dimensions %dx%d must be positive", w, h)
	}
	if !r.IsValid() {
		return models.Geometry{}, fmt.Errorf("unknown resolution %q", r)
	}

	if r == models.ResolutionOriginal {
		return models.Geometry{Width: floorEven(w), Height: floorEven(h)}, nil
	}

	th := r.Height()
	tw := int(math.Round(float64(th) * float64(w) / float64(h)))
	return models.Geometry{Width: ceilEven(tw), Height: ceilEven(th)}, nil
}

// Bitrate returns the target video bitrate in bits per second.
// It never decreases as the pixel count grows.
func Bitrate(g models.Geometry) int {
	pixels := g.Pixels()
	for _, tier := range bitrateTable {
		if pixels <= tier.maxPixels {
			return tier.bitrate
		}
	}
	return topBitrate
}

// Compute runs the full policy.
func Compute(w, h int, r models.Resolution) (Plan, error) {
	g, err := Target(w, h, r)
	if err != nil {
		return Plan{}, err
	}
	return Plan{Geometry: g, Bitrate: Bitrate(g)}, nil
}

func floorEven(v int) int {
	v -= v % 2
	if v < minSide {
		return minSide
	}
	return v
}

func ceilEven(v int) int {
	v += v % 2
	if v < minSide {
		return minSide
	}
	return v
}
