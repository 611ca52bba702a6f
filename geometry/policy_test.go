package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"captionburn/models"
)

func TestTargetScenarios(t *testing.T) {
	tests := []struct {
		name     string
		w, h     int
		tier     models.Resolution
		expected models.Geometry
	}{
		{"1080p to 480p rounds 853 up", 1920, 1080, models.Resolution480p, models.Geometry{Width: 854, Height: 480}},
		{"1080p to 720p", 1920, 1080, models.Resolution720p, models.Geometry{Width: 1280, Height: 720}},
		{"1080p to 240p", 1920, 1080, models.Resolution240p, models.Geometry{Width: 428, Height: 240}},
		{"odd original rounds down", 1919, 1079, models.ResolutionOriginal, models.Geometry{Width: 1918, Height: 1078}},
		{"even original unchanged", 1280, 720, models.ResolutionOriginal, models.Geometry{Width: 1280, Height: 720}},
		{"portrait 480p", 1080, 1920, models.Resolution480p, models.Geometry{Width: 270, Height: 480}},
		{"tiny original floors at 2", 1, 1, models.ResolutionOriginal, models.Geometry{Width: 2, Height: 2}},
		{"extreme portrait floors width", 1, 4000, models.Resolution240p, models.Geometry{Width: 2, Height: 240}},
		{"upscale 360p to 720p", 640, 360, models.Resolution720p, models.Geometry{Width: 1280, Height: 720}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Target(tt.w, tt.h, tt.tier)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestTargetRejectsInvalidInput(t *testing.T) {
	_, err := Target(0, 1080, models.Resolution480p)
	assert.Error(t, err)

	_, err = Target(1920, -1, models.ResolutionOriginal)
	assert.Error(t, err)

	_, err = Target(1920, 1080, models.Resolution("1080p"))
	assert.Error(t, err)
}

func TestTargetAlwaysEvenAndPositive(t *testing.T) {
	sizes := []int{1, 2, 3, 17, 240, 479, 480, 719, 853, 1079, 1080, 1919, 3840, 4097}
	for _, w := range sizes {
		for _, h := range sizes {
			for _, tier := range models.ResolutionValues() {
				g, err := Target(w, h, tier)
				require.NoError(t, err)
				require.NoError(t, g.Validate(), "w=%d h=%d tier=%s", w, h, tier)

				if tier == models.ResolutionOriginal {
					continue
				}
				// Aspect ratio drift stays within one rounding step on each axis.
				ideal := float64(tier.Height()) * float64(w) / float64(h)
				if ideal >= minSide {
					assert.LessOrEqual(t, math.Abs(float64(g.Width)-ideal), 1.5, "w=%d h=%d tier=%s", w, h, tier)
				}
			}
		}
	}
}

func TestTargetDeterministic(t *testing.T) {
	a, _ := Target(1919, 1079, models.Resolution480p)
	b, _ := Target(1919, 1079, models.Resolution480p)
	assert.Equal(t, a, b)
}

func TestBitrateTable(t *testing.T) {
	tests := []struct {
		geom     models.Geometry
		expected int
	}{
		{models.Geometry{Width: 426, Height: 240}, 500_000},
		{models.Geometry{Width: 428, Height: 240}, 1_500_000},
		{models.Geometry{Width: 854, Height: 480}, 1_500_000},
		{models.Geometry{Width: 1280, Height: 720}, 3_000_000},
		{models.Geometry{Width: 1920, Height: 1080}, 6_000_000},
		{models.Geometry{Width: 3840, Height: 2160}, 10_000_000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Bitrate(tt.geom), "geometry %s", tt.geom)
	}
}

func TestBitrateMonotonic(t *testing.T) {
	prev := 0
	for side := 2; side <= 4000; side += 2 {
		b := Bitrate(models.Geometry{Width: side, Height: side})
		assert.GreaterOrEqual(t, b, prev)
		prev = b
	}
}

func TestCompute(t *testing.T) {
	plan, err := Compute(1920, 1080, models.Resolution480p)
	require.NoError(t, err)
	assert.Equal(t, models.Geometry{Width: 854, Height: 480}, plan.Geometry)
	assert.Equal(t, 1_500_000, plan.Bitrate)
}
