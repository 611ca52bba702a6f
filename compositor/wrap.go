package compositor

import (
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// wrapRatio is the share of the canvas width a caption line may occupy.
const wrapRatio = 0.9

type measureFunc func(string) fixed.Int26_6

// wrapText breaks text into lines no wider than maxWidth.
//
// Explicit newlines always break. Within a paragraph words are packed
// greedily; a single word wider than maxWidth gets a line of its own and
// overflows rather than being split.
func wrapText(text string, maxWidth fixed.Int26_6, measure measureFunc) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}

		line := ""
		for _, word := range words {
			candidate := word
			if line != "" {
				candidate = line + " " + word
			}
			if line != "" && measure(candidate) > maxWidth {
				lines = append(lines, line)
				line = word
				continue
			}
			line = candidate
		}
		lines = append(lines, line)
	}

	// Blank lines at the edges would only shift the block.
	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func faceMeasure(face font.Face) measureFunc {
	return func(s string) fixed.Int26_6 {
		return font.MeasureString(face, s)
	}
}
