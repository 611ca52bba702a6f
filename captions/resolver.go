// Package captions resolves which caption is on screen at a given time and
// loads caption lists from the editor's JSON export or SRT files.
package captions

import (
	"sort"

	"captionburn/models"
)

// Active returns the caption shown at time t.
//
// A caption is active when StartTime <= t <= EndTime. When captions overlap
// the first active one in list order wins, regardless of start times.
func Active(list []models.Caption, t float64) (models.Caption, bool) {
	for _, c := range list {
		if t >= c.StartTime && t <= c.EndTime {
			return c, true
		}
	}
	return models.Caption{}, false
}

// Sorted returns a copy ordered by start time. Ties keep list order.
func Sorted(list []models.Caption) []models.Caption {
	out := models.CloneCaptions(list)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime < out[j].StartTime
	})
	return out
}

// Overlaps reports pairs of captions whose intervals intersect, as indexes
// into list. The export accepts overlaps; callers use this for warnings.
func Overlaps(list []models.Caption) [][2]int {
	var pairs [][2]int
	for i := 0; i < len(list); i++ {
		for j := i + 1; j < len(list); j++ {
			a, b := list[i], list[j]
			if a.StartTime <= b.EndTime && b.StartTime <= a.EndTime {
				pairs = append(pairs, [2]int{i, j})
			}
		}
	}
	return pairs
}

// End returns the latest EndTime in the list.
func End(list []models.Caption) float64 {
	end := 0.0
	for _, c := range list {
		if c.EndTime > end {
			end = c.EndTime
		}
	}
	return end
}
