package captions

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"captionburn/models"
)

// LoadFile reads a caption list, choosing the parser by extension.
// Files without a known extension are sniffed: a leading '[' or code fence
// means JSON, anything else is treated as SRT.
func LoadFile(path string) ([]models.Caption, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read captions: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSON(data)
	case ".srt":
		return ParseSRT(data)
	}

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "```") {
		return ParseJSON(data)
	}
	return ParseSRT(data)
}
