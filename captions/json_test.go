package captions

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON(t *testing.T) {
	data := []byte(`[
		{"id": "1", "startTime": 0.5, "endTime": 2.25, "text": "Hello"},
		{"id": 7, "start": 3, "end": 4, "text": "aliases"},
		{"text": "defaults"}
	]`)

	list, err := ParseJSON(data)
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.Equal(t, "1", list[0].ID)
	assert.Equal(t, 0.5, list[0].StartTime)
	assert.Equal(t, 2.25, list[0].EndTime)

	assert.Equal(t, "7", list[1].ID)
	assert.Equal(t, 3.0, list[1].StartTime)
	assert.Equal(t, 4.0, list[1].EndTime)

	assert.NotEmpty(t, list[2].ID)
	assert.Equal(t, 0.0, list[2].StartTime)
	assert.Equal(t, 2.0, list[2].EndTime)
}

func TestParseJSONStripsCodeFences(t *testing.T) {
	data := []byte("```json\n[{\"id\":\"a\",\"startTime\":1,\"endTime\":2,\"text\":\"fenced\"}]\n```")

	list, err := ParseJSON(data)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "fenced", list[0].Text)
}

func TestParseJSONNormalizesText(t *testing.T) {
	// "e" followed by a combining acute accent composes to U+00E9.
	data := []byte(`[{"id":"a","startTime":0,"endTime":1,"text":"cafe\u0301\r\nbar"}]`)

	list, err := ParseJSON(data)
	require.NoError(t, err)
	assert.Equal(t, "caf\u00e9\nbar", list[0].Text)
}

func TestParseJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"fence only", "```json```"},
		{"not an array", `{"text": "x"}`},
		{"end before start", `[{"startTime": 3, "endTime": 1}]`},
		{"negative start", `[{"startTime": -1, "endTime": 1}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSON([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoadFileDispatch(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "caps.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[{"id":"a","startTime":0,"endTime":1,"text":"json"}]`), 0644))

	srtPath := filepath.Join(dir, "caps.srt")
	require.NoError(t, os.WriteFile(srtPath, []byte("1\n00:00:00,000 --> 00:00:01,000\nsrt\n"), 0644))

	sniffPath := filepath.Join(dir, "caps.txt")
	require.NoError(t, os.WriteFile(sniffPath, []byte(`[{"id":"b","startTime":0,"endTime":1,"text":"sniffed"}]`), 0644))

	list, err := LoadFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "json", list[0].Text)

	list, err = LoadFile(srtPath)
	require.NoError(t, err)
	assert.Equal(t, "srt", list[0].Text)

	list, err = LoadFile(sniffPath)
	require.NoError(t, err)
	assert.Equal(t, "sniffed", list[0].Text)

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestMarshalJSONRoundTrip(t *testing.T) {
	list, err := ParseJSON([]byte(`[{"id":"a","startTime":1,"endTime":2,"text":"x"}]`))
	require.NoError(t, err)

	data, err := MarshalJSON(list)
	require.NoError(t, err)

	again, err := ParseJSON(data)
	require.NoError(t, err)
	assert.Equal(t, list, again)
}
