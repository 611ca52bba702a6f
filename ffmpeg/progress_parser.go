package ffmpeg

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"captionburn/models"
)

// ProgressParser parses ffmpeg stderr output for encoder statistics.
// It understands both the -stats line ("frame= 24 fps=0.0 ... speed=1.96x")
// and the -progress key=value stream.
type ProgressParser struct {
	frameRegex   *regexp.Regexp
	fpsRegex     *regexp.Regexp
	sizeRegex    *regexp.Regexp
	timeRegex    *regexp.Regexp
	timeUsRegex  *regexp.Regexp
	bitrateRegex *regexp.Regexp
	speedRegex   *regexp.Regexp
	keyValue     *regexp.Regexp
}

// NewProgressParser creates a new parser for ffmpeg progress output
func NewProgressParser() *ProgressParser {
	return &ProgressParser{
		// Match both "frame=123" and "frame= 123" formats
		frameRegex:   regexp.MustCompile(`(?:^|\s)frame=\s*(\d+)`),
		fpsRegex:     regexp.MustCompile(`(?:^|\s)fps=\s*([0-9.]+)`),
		sizeRegex:    regexp.MustCompile(`(?:^|\s)(?:total_)?size=\s*([0-9]+)(kB|KiB)?`),
		timeRegex:    regexp.MustCompile(`(?:^|\s)(?:out_)?time=\s*([0-9:\.]+)`),
		timeUsRegex:  regexp.MustCompile(`^out_time_(?:us|ms)=\s*(\d+)`),
		bitrateRegex: regexp.MustCompile(`(?:^|\s)bitrate=\s*([0-9.]+)`),
		speedRegex:   regexp.MustCompile(`(?:^|\s)speed=\s*([0-9.]+)x?`),
		keyValue:     regexp.MustCompile(`^[a-z][a-z0-9_]*=\S*$`),
	}
}

// IsProgressLine reports whether line belongs to the -progress stream rather
// than being a log message.
func (pp *ProgressParser) IsProgressLine(line string) bool {
	line = strings.TrimSpace(line)
	return pp.keyValue.MatchString(line) || pp.frameRegex.MatchString(line)
}

// ParseLine parses a single line of ffmpeg stderr output and updates stats.
// It returns true when any counter changed.
func (pp *ProgressParser) ParseLine(line string, stats *models.EncoderStats) bool {
	line = strings.TrimSpace(line)
	if line == "" || line == "progress=continue" || line == "progress=end" {
		return false
	}

	updated := false

	if matches := pp.frameRegex.FindStringSubmatch(line); len(matches) > 1 {
		if frame, err := strconv.ParseInt(matches[1], 10, 64); err == nil {
			stats.Frame = frame
			updated = true
		}
	}

	if matches := pp.fpsRegex.FindStringSubmatch(line); len(matches) > 1 {
		if fps, err := strconv.ParseFloat(matches[1], 64); err == nil {
			stats.FPS = fps
			updated = true
		}
	}

	if matches := pp.sizeRegex.FindStringSubmatch(line); len(matches) > 1 {
		if matches[2] != "" {
			stats.Size = matches[1] + "kB"
		} else if n, err := strconv.ParseInt(matches[1], 10, 64); err == nil {
			// -progress reports total_size in bytes
			stats.Size = strconv.FormatInt(n/1024, 10) + "kB"
		}
		updated = true
	}

	if matches := pp.timeUsRegex.FindStringSubmatch(line); len(matches) > 1 {
		// out_time_ms is in microseconds as well, despite the name.
		if us, err := strconv.ParseInt(matches[1], 10, 64); err == nil {
			stats.Seconds = float64(us) / 1e6
			updated = true
		}
	} else if matches := pp.timeRegex.FindStringSubmatch(line); len(matches) > 1 {
		stats.CurrentTime = matches[1]
		if seconds := pp.timeToSeconds(matches[1]); seconds > 0 {
			stats.Seconds = seconds
		}
		updated = true
	}

	if matches := pp.bitrateRegex.FindStringSubmatch(line); len(matches) > 1 {
		stats.Bitrate = matches[1] + "kbits/s"
		updated = true
	}

	if matches := pp.speedRegex.FindStringSubmatch(line); len(matches) > 1 {
		if speed, err := strconv.ParseFloat(matches[1], 64); err == nil {
			stats.Speed = speed
			updated = true
		}
	}

	if updated {
		stats.UpdatedAt = time.Now()
	}
	return updated
}

// StreamProgress reads ffmpeg stderr until EOF. Progress lines update stats
// and trigger onStats; every other non-empty line is passed to onLine.
func (pp *ProgressParser) StreamProgress(reader io.Reader, stats *models.EncoderStats, onStats func(models.EncoderStats), onLine func(string)) error {
	scanner := bufio.NewScanner(reader)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	scanner.Split(scanLines)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if pp.IsProgressLine(line) {
			if pp.ParseLine(line, stats) && onStats != nil {
				onStats(*stats)
			}
			continue
		}
		if onLine != nil {
			onLine(line)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading ffmpeg output: %w", err)
	}
	return nil
}

// scanLines splits on \n and on the bare \r ffmpeg uses to redraw its
// status line.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	for i, b := range data {
		if b == '\n' || b == '\r' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// timeToSeconds converts ffmpeg time format (HH:MM:SS.MS) to seconds
func (pp *ProgressParser) timeToSeconds(timeStr string) float64 {
	parts := strings.Split(timeStr, ":")
	if len(parts) != 3 {
		return 0
	}

	hours, err1 := strconv.ParseFloat(parts[0], 64)
	minutes, err2 := strconv.ParseFloat(parts[1], 64)
	seconds, err3 := strconv.ParseFloat(parts[2], 64)

	if err1 != nil || err2 != nil || err3 != nil {
		return 0
	}

	return hours*3600 + minutes*60 + seconds
}

// FormatStatsJSON converts stats to JSON for debug logging.
func FormatStatsJSON(stats models.EncoderStats) (string, error) {
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
