package chunker

import (
	"errors"
	"testing"

	"captionburn/models"
)

type mockMediaInfo struct {
	duration float64
	err      error
}

func (m *mockMediaInfo) GetDuration() (float64, error) {
	return m.duration, m.err
}

func TestNewChunker(t *testing.T) {
	c := NewChunker()
	if c.sampleRate != DefaultSampleRate {
		t.Errorf("Expected sampleRate %d, got %d", DefaultSampleRate, c.sampleRate)
	}
	if c.chunkDuration != DefaultChunkDuration {
		t.Errorf("Expected chunkDuration %.1f, got %.1f", DefaultChunkDuration, c.chunkDuration)
	}
	if got := c.SamplesPerChunk(); got != 44100 {
		t.Errorf("Expected 44100 samples per chunk, got %d", got)
	}
}

func TestChunker_Setters(t *testing.T) {
	c := NewChunker()
	if c.SetSampleRate(48000) != c || c.SetChunkDuration(0.5) != c {
		t.Fatal("setters should return the chunker for method chaining")
	}
	if got := c.SamplesPerChunk(); got != 24000 {
		t.Errorf("Expected 24000 samples per chunk, got %d", got)
	}
}

func TestChunker_ChunksFor(t *testing.T) {
	tests := []struct {
		name        string
		duration    float64
		wantCount   int
		wantLastLen int
	}{
		{"exact seconds", 3.0, 3, 44100},
		{"fractional tail", 2.5, 3, 22050},
		{"shorter than a chunk", 0.25, 1, 11025},
		{"tiny", 1e-7, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := NewChunker().ChunksFor(tt.duration)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(chunks) != tt.wantCount {
				t.Fatalf("Expected %d chunks, got %d", tt.wantCount, len(chunks))
			}
			if last := chunks[len(chunks)-1]; last.Samples != tt.wantLastLen {
				t.Errorf("Expected last chunk of %d samples, got %d", tt.wantLastLen, last.Samples)
			}
			if err := ValidateChunks(chunks); err != nil {
				t.Errorf("Planned chunks do not validate: %v", err)
			}
		})
	}
}

func TestChunker_ChunkTimes(t *testing.T) {
	chunks, err := NewChunker().ChunksFor(2.5)
	if err != nil {
		t.Fatal(err)
	}
	if chunks[1].StartTime() != 1.0 || chunks[1].EndTime() != 2.0 {
		t.Errorf("Expected chunk 1 to span 1-2s, got %.3f-%.3f", chunks[1].StartTime(), chunks[1].EndTime())
	}
	if chunks[2].EndTime() != 2.5 {
		t.Errorf("Expected last chunk to end at 2.5s, got %.3f", chunks[2].EndTime())
	}
}

func TestChunker_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		chunker *Chunker
		dur     float64
	}{
		{"zero duration", NewChunker(), 0},
		{"negative duration", NewChunker(), -1},
		{"chunk too short", NewChunker().SetChunkDuration(0.01), 10},
		{"chunk too long", NewChunker().SetChunkDuration(601), 10},
		{"bad sample rate", NewChunker().SetSampleRate(0), 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.chunker.ChunksFor(tt.dur); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}

func TestChunker_CreateChunks(t *testing.T) {
	c := NewChunker()
	if _, err := c.CreateChunks(nil); err == nil {
		t.Error("Expected error for nil media info")
	}

	probeErr := errors.New("no duration")
	if _, err := c.CreateChunks(&mockMediaInfo{err: probeErr}); !errors.Is(err, probeErr) {
		t.Errorf("Expected wrapped probe error, got %v", err)
	}

	chunks, err := c.CreateChunks(&mockMediaInfo{duration: 10})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(chunks) != 10 {
		t.Errorf("Expected 10 chunks, got %d", len(chunks))
	}
}

func TestValidateChunks(t *testing.T) {
	mk := func(index int, start int64, samples int) *models.AudioChunk {
		return &models.AudioChunk{Index: index, StartSample: start, Samples: samples, SampleRate: 100}
	}
	tests := []struct {
		name    string
		chunks  []*models.AudioChunk
		wantErr bool
	}{
		{"empty", nil, true},
		{"contiguous", []*models.AudioChunk{mk(0, 0, 100), mk(1, 100, 50)}, false},
		{"gap", []*models.AudioChunk{mk(0, 0, 100), mk(1, 120, 50)}, true},
		{"overlap", []*models.AudioChunk{mk(0, 0, 100), mk(1, 90, 50)}, true},
		{"bad index", []*models.AudioChunk{mk(0, 0, 100), mk(2, 100, 50)}, true},
		{"late start", []*models.AudioChunk{mk(0, 10, 100)}, true},
		{"mixed rates", []*models.AudioChunk{mk(0, 0, 100), {Index: 1, StartSample: 100, Samples: 1, SampleRate: 200}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunks(tt.chunks)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateChunks() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
