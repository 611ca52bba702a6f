package captions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"captionburn/models"
)

func TestParseSRT(t *testing.T) {
	data := []byte("\xef\xbb\xbf1\r\n00:00:01,000 --> 00:00:02,500\r\nFirst line\r\nSecond line\r\n\r\n" +
		"2\n00:01:00,000 --> 00:01:03,250 X1:10 X2:20\nPositioned\n\n\n" +
		"00:02:00.000 --> 00:02:01.000\nno number\n")

	list, err := ParseSRT(data)
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.Equal(t, models.Caption{ID: "1", StartTime: 1, EndTime: 2.5, Text: "First line\nSecond line"}, list[0])
	assert.Equal(t, models.Caption{ID: "2", StartTime: 60, EndTime: 63.25, Text: "Positioned"}, list[1])
	assert.Equal(t, "3", list[2].ID)
	assert.Equal(t, 120.0, list[2].StartTime)
}

func TestParseSRTErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing arrow", "1\n00:00:01,000 00:00:02,000\ntext\n"},
		{"bad clock", "1\n00:00:xx,000 --> 00:00:02,000\ntext\n"},
		{"reversed", "1\n00:00:03,000 --> 00:00:02,000\ntext\n"},
		{"number only", "1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSRT([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestFormatSRTRoundTrip(t *testing.T) {
	list := []models.Caption{
		{ID: "1", StartTime: 0.5, EndTime: 1.75, Text: "one"},
		{ID: "2", StartTime: 3661.2, EndTime: 3662, Text: "two\nlines"},
	}

	out := FormatSRT(list)
	assert.Contains(t, string(out), "01:01:01,200 --> 01:01:02,000")

	parsed, err := ParseSRT(out)
	require.NoError(t, err)
	assert.Equal(t, list, parsed)
}
