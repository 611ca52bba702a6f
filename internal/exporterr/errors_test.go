package exporterr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMatchesSentinel(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"decode", Decode("rendering_video", "seek", errors.New("eof")), ErrDecode},
		{"configuration", Configuration("preparing", "encoder", "odd width", nil), ErrConfiguration},
		{"validation", Validation("finalizing", "inspect", "empty", nil), ErrValidation},
		{"timeout", Timeout("finalizing", "flush", context.DeadlineExceeded), ErrTimeout},
		{"cancelled", Cancelled("rendering_video", nil), ErrCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			wrapped := fmt.Errorf("export failed: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
		})
	}
}

func TestErrorDoesNotMatchOtherKinds(t *testing.T) {
	err := Validation("finalizing", "", "too small", nil)
	assert.NotErrorIs(t, err, ErrDecode)
	assert.NotErrorIs(t, err, ErrCancelled)
}

func TestErrorMessage(t *testing.T) {
	err := Decode("rendering_video", "frame 12", errors.New("broken pipe"))
	assert.Equal(t, "decode: rendering_video: frame 12: broken pipe", err.Error())

	err = Validation("", "", "", nil)
	assert.Equal(t, "validation", err.Error())
}

func TestCancelledKeepsContextCause(t *testing.T) {
	err := Cancelled("encoding_audio", context.Canceled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, IsCancelled(err))
	assert.Equal(t, "encoding_audio", PhaseOf(err))
}

func TestKindOf(t *testing.T) {
	kind, ok := KindOf(fmt.Errorf("outer: %w", Timeout("finalizing", "flush", nil)))
	require.True(t, ok)
	assert.Equal(t, KindTimeout, kind)

	kind, ok = KindOf(context.Canceled)
	require.True(t, ok)
	assert.Equal(t, KindCancelled, kind)

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}
