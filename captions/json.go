package captions

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"captionburn/models"
)

// defaultEndTime is used when an imported entry has no end.
const defaultEndTime = 2.0

var fenceRegex = regexp.MustCompile("```(?:json)?")

// jsonEntry accepts both the editor field names and the short aliases
// produced by transcription tools.
type jsonEntry struct {
	ID        json.RawMessage `json:"id"`
	StartTime *float64        `json:"startTime"`
	Start     *float64        `json:"start"`
	EndTime   *float64        `json:"endTime"`
	End       *float64        `json:"end"`
	Text      string          `json:"text"`
}

// ParseJSON parses a JSON array of captions.
//
// Markdown code fences around the payload are stripped. startTime/endTime
// fall back to start/end, then to 0 and 2 seconds. Entries without an id get
// a random one.
func ParseJSON(data []byte) ([]models.Caption, error) {
	clean := strings.TrimSpace(fenceRegex.ReplaceAllString(string(data), ""))
	if clean == "" {
		return nil, fmt.Errorf("caption JSON is empty")
	}

	var entries []jsonEntry
	if err := json.Unmarshal([]byte(clean), &entries); err != nil {
		return nil, fmt.Errorf("failed to parse caption JSON: %w", err)
	}

	out := make([]models.Caption, 0, len(entries))
	for i, e := range entries {
		c := models.Caption{
			ID:        entryID(e.ID),
			StartTime: firstOf(e.StartTime, e.Start, 0),
			EndTime:   firstOf(e.EndTime, e.End, defaultEndTime),
			Text:      normalizeText(e.Text),
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// MarshalJSON writes captions in the editor format.
func MarshalJSON(list []models.Caption) ([]byte, error) {
	if list == nil {
		list = []models.Caption{}
	}
	return json.MarshalIndent(list, "", "  ")
}

func entryID(raw json.RawMessage) string {
	if len(raw) > 0 && string(raw) != "null" {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		} else {
			return strings.TrimSpace(string(raw))
		}
	}
	return uuid.NewString()
}

func firstOf(a, b *float64, fallback float64) float64 {
	if a != nil {
		return *a
	}
	if b != nil {
		return *b
	}
	return fallback
}

// normalizeText applies NFC so composed and decomposed accents render the same
// glyphs, and unifies line endings.
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return norm.NFC.String(text)
}
