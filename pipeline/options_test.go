package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"captionburn/models"
)

func TestNewOptionsDefaults(t *testing.T) {
	o := NewOptions("in.mp4")
	require.NoError(t, o.Validate())
	assert.Equal(t, models.ResolutionOriginal, o.Resolution)
	assert.Equal(t, models.ContainerMP4, o.Container)
	assert.Equal(t, CodecH264, o.EffectiveCodec())
	assert.Equal(t, DefaultFlushTimeout, o.FlushTimeout)
	assert.True(t, o.Audio)
}

func TestEffectiveCodecFollowsContainer(t *testing.T) {
	assert.Equal(t, CodecMJPEG, NewOptions("x").WithContainer(models.ContainerAVI).EffectiveCodec())
	assert.Equal(t, CodecH264, NewOptions("x").WithContainer(models.ContainerAVI).WithCodec(CodecH264).EffectiveCodec())
}

func TestOptionsValidateCollectsProblems(t *testing.T) {
	o := NewOptions("").
		WithZoom(0.5).
		WithResolution("1080p").
		WithFlush(0, 0).
		WithCaptions([]models.Caption{{StartTime: 2, EndTime: 1}})
	o.Style.Opacity = 2

	err := o.Validate()
	require.Error(t, err)
	for _, want := range []string{"source", "zoom", "resolution", "flush timeout", "flush attempts", "caption 0", "opacity"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestSnapshotIsIndependent(t *testing.T) {
	caps := []models.Caption{{ID: "a", StartTime: 0, EndTime: 1, Text: "one"}}
	o := NewOptions("x").WithCaptions(caps).WithMetadata("title", "t").WithProgressStride(0)
	snap := o.snapshot()

	caps[0].Text = "changed"
	o.Metadata["title"] = "changed"
	o.Style.FontSize = 99

	assert.Equal(t, "one", snap.Captions[0].Text)
	assert.Equal(t, "t", snap.Metadata["title"])
	assert.Equal(t, 24.0, snap.Style.FontSize)
	assert.Equal(t, DefaultProgressStride, snap.ProgressStride)
	assert.Equal(t, CodecH264, snap.Codec)
}

func TestWithSourceDataClearsPath(t *testing.T) {
	o := NewOptions("x").WithSourceData([]byte{1}).WithFlush(time.Second, 1)
	assert.Empty(t, o.SourcePath)
	assert.NoError(t, o.Validate())
}
