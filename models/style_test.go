package models

import "testing"

func TestDefaultStyleIsValid(t *testing.T) {
	if err := DefaultStyle().Validate(); err != nil {
		t.Fatalf("default style should be valid: %v", err)
	}
}

func TestStyleValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Style)
		wantErr bool
	}{
		{"zero font", func(s *Style) { s.FontSize = 0 }, true},
		{"negative outline", func(s *Style) { s.OutlineWidth = -1 }, true},
		{"bottom over 100", func(s *Style) { s.BottomOffsetPercent = 101 }, true},
		{"opacity over 1", func(s *Style) { s.Opacity = 1.5 }, true},
		{"zero outline", func(s *Style) { s.OutlineWidth = 0 }, false},
		{"bottom edge", func(s *Style) { s.BottomOffsetPercent = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultStyle()
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestStyleScale(t *testing.T) {
	tests := []struct {
		name          string
		fontSize      float64
		outline       float64
		target        int
		source        int
		expectFont    float64
		expectOutline float64
	}{
		{"same size", 24, 2, 1080, 1080, 24, 2},
		{"half size", 24, 2, 540, 1080, 12, 1},
		{"clamped to minimum", 24, 2, 240, 1080, MinScaledFontSize, 2 * (240.0 / 1080.0)},
		{"upscale", 24, 2, 720, 360, 48, 4},
		{"zero source keeps size", 24, 2, 720, 0, 24, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultStyle()
			s.FontSize = tt.fontSize
			s.OutlineWidth = tt.outline

			scaled := s.Scale(tt.target, tt.source)
			if scaled.FontSize != tt.expectFont {
				t.Errorf("font size = %v; want %v", scaled.FontSize, tt.expectFont)
			}
			if scaled.OutlineWidth != tt.expectOutline {
				t.Errorf("outline = %v; want %v", scaled.OutlineWidth, tt.expectOutline)
			}
			if scaled.BottomOffsetPercent != s.BottomOffsetPercent || scaled.Color != s.Color {
				t.Error("non size fields must not change")
			}
		})
	}
}
