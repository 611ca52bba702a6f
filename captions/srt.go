package captions

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"captionburn/internal/timeutil"
	"captionburn/models"
)

// ParseSRT parses SubRip cues. Cue numbers become caption ids; multi-line
// cue text is kept with explicit line breaks.
func ParseSRT(data []byte) ([]models.Caption, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		out     []models.Caption
		block   []string
		lineNum int
	)

	flush := func() error {
		defer func() { block = block[:0] }()
		if len(block) == 0 {
			return nil
		}
		c, err := parseCue(block, len(out)+1)
		if err != nil {
			return fmt.Errorf("cue ending at line %d: %w", lineNum, err)
		}
		out = append(out, c)
		return nil
	}

	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		block = append(block, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading SRT: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}

func parseCue(block []string, ordinal int) (models.Caption, error) {
	id := strconv.Itoa(ordinal)
	if !strings.Contains(block[0], "-->") {
		id = strings.TrimSpace(block[0])
		block = block[1:]
	}
	if len(block) == 0 {
		return models.Caption{}, fmt.Errorf("missing timing line")
	}

	start, end, found := strings.Cut(block[0], "-->")
	if !found {
		return models.Caption{}, fmt.Errorf("invalid timing line %q", block[0])
	}
	// Drop SRT position hints such as "X1:100".
	if fields := strings.Fields(end); len(fields) > 0 {
		end = fields[0]
	}

	startTime, err := timeutil.ParseClock(start)
	if err != nil {
		return models.Caption{}, err
	}
	endTime, err := timeutil.ParseClock(end)
	if err != nil {
		return models.Caption{}, err
	}

	c := models.Caption{
		ID:        id,
		StartTime: startTime,
		EndTime:   endTime,
		Text:      normalizeText(strings.Join(block[1:], "\n")),
	}
	return c, c.Validate()
}

// FormatSRT renders captions as SubRip.
func FormatSRT(list []models.Caption) []byte {
	var buf bytes.Buffer
	for i, c := range list {
		fmt.Fprintf(&buf, "%d\n%s --> %s\n%s\n\n", i+1, srtClock(c.StartTime), srtClock(c.EndTime), c.Text)
	}
	return buf.Bytes()
}

func srtClock(seconds float64) string {
	ms := timeutil.ToMicros(seconds) / 1000
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000)
}
