package compositor

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// DPI of 72 makes one point equal one pixel, so style sizes are pixels.
const fontDPI = 72

// FontCache parses each font file once and hands out sized faces.
// Faces are not safe for concurrent use; every Compositor owns its own.
type FontCache struct {
	mu     sync.Mutex
	parsed map[string]*opentype.Font
}

// NewFontCache creates an empty cache.
func NewFontCache() *FontCache {
	return &FontCache{parsed: make(map[string]*opentype.Font)}
}

// DefaultFonts is shared by compositors that were not given a cache.
var DefaultFonts = NewFontCache()

// Face returns a face for the family at size pixels. A non-empty file takes
// precedence over the family name.
func (fc *FontCache) Face(family, file string, size float64) (font.Face, error) {
	f, err := fc.font(family, file)
	if err != nil {
		return nil, err
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     fontDPI,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	return face, nil
}

func (fc *FontCache) font(family, file string) (*opentype.Font, error) {
	key := "file:" + file
	if file == "" {
		key = "go:" + builtinName(family)
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()

	if f, ok := fc.parsed[key]; ok {
		return f, nil
	}

	var data []byte
	if file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read font file: %w", err)
		}
		data = b
	} else {
		data = builtinFonts[builtinName(family)]
	}

	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	fc.parsed[key] = f
	return f, nil
}

var builtinFonts = map[string][]byte{
	"bold":      gobold.TTF,
	"regular":   goregular.TTF,
	"medium":    gomedium.TTF,
	"mono-bold": gomonobold.TTF,
}

// builtinName maps a CSS-like family name onto the embedded Go fonts.
// Captions are drawn bold unless the family asks otherwise.
func builtinName(family string) string {
	f := strings.ToLower(family)
	switch {
	case strings.Contains(f, "mono"), strings.Contains(f, "courier"), strings.Contains(f, "consol"):
		return "mono-bold"
	case strings.Contains(f, "regular"), strings.Contains(f, "light"), strings.Contains(f, "thin"):
		return "regular"
	case strings.Contains(f, "medium"):
		return "medium"
	}
	return "bold"
}
