package muxer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"image"
	"image/jpeg"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"captionburn/ffmpeg"
	"captionburn/internal/exporterr"
	"captionburn/models"
)

func videoUnit(ts int64, data []byte) models.AccessUnit {
	return models.AccessUnit{Stream: models.StreamVideo, Data: data, TimestampUs: ts, DurationUs: 33_333}
}

func jpegFrame(t *testing.T, w, h int, shade uint8) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = shade, shade, shade, 0xff
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}))
	return buf.Bytes()
}

func TestBufferSortsStablyByTimestamp(t *testing.T) {
	var b buffer
	require.NoError(t, b.addVideo(videoUnit(200, []byte{2})))
	require.NoError(t, b.addVideo(videoUnit(0, []byte{0})))
	require.NoError(t, b.addVideo(videoUnit(100, []byte{1})))
	require.NoError(t, b.addVideo(videoUnit(100, []byte{'b'})))
	require.NoError(t, b.addAudio(models.AccessUnit{Stream: models.StreamAudio, Data: []byte{9}, TimestampUs: 50}))

	video, audio, err := b.seal()
	require.NoError(t, err)

	var order []byte
	for _, u := range video {
		order = append(order, u.Data[0])
	}
	assert.Equal(t, []byte{0, 1, 'b', 2}, order)
	assert.Len(t, audio, 1)
}

func TestBufferRejectsUseAfterSeal(t *testing.T) {
	var b buffer
	require.NoError(t, b.addVideo(videoUnit(0, []byte{1})))
	_, _, err := b.seal()
	require.NoError(t, err)

	assert.ErrorIs(t, b.addVideo(videoUnit(1, []byte{1})), ErrFinalized)
	assert.ErrorIs(t, b.addAudio(videoUnit(1, []byte{1})), ErrFinalized)
	_, _, err = b.seal()
	assert.ErrorIs(t, err, ErrFinalized)
}

func TestBufferWithoutVideoIsValidationError(t *testing.T) {
	var b buffer
	require.NoError(t, b.addAudio(models.AccessUnit{Stream: models.StreamAudio, Data: []byte{1}}))
	_, _, err := b.seal()
	require.Error(t, err)
	assert.ErrorIs(t, err, exporterr.ErrValidation)
}

func TestBufferRejectsEmptyUnit(t *testing.T) {
	var b buffer
	assert.Error(t, b.addVideo(videoUnit(0, nil)))
}

func TestBufferConcurrentAdders(t *testing.T) {
	var b buffer
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = b.addVideo(videoUnit(int64(i*4+g), []byte{byte(g)}))
			}
		}(g)
	}
	wg.Wait()

	video, _, err := b.seal()
	require.NoError(t, err)
	require.Len(t, video, 200)
	for i := 1; i < len(video); i++ {
		assert.Less(t, video[i-1].TimestampUs, video[i].TimestampUs)
	}
}

func TestNewRejectsUnknownContainer(t *testing.T) {
	_, err := New(models.Container("mkv"), Options{})
	assert.Error(t, err)

	_, err = New(models.ContainerAVI, Options{})
	assert.Error(t, err, "avi needs dimensions")

	m, err := New(models.ContainerMP4, Options{})
	require.NoError(t, err)
	assert.True(t, m.SupportsAudio())
	assert.Equal(t, models.ContainerMP4, m.Container())
}

func TestAVIRoundTrip(t *testing.T) {
	m, err := NewAVI(Options{Width: 64, Height: 48, TempDir: t.TempDir()})
	require.NoError(t, err)
	defer m.Close()

	assert.False(t, m.SupportsAudio())
	assert.ErrorIs(t, m.AddAudio(models.AccessUnit{Stream: models.StreamAudio, Data: []byte{1}}), ErrAudioUnsupported)

	// Submitted out of order; finalize sorts them.
	for _, i := range []int{2, 0, 1, 4, 3} {
		require.NoError(t, m.AddVideo(videoUnit(int64(i)*33_333, jpegFrame(t, 64, 48, uint8(i*40)))))
	}
	v, a := m.Counts()
	assert.Equal(t, 5, v)
	assert.Equal(t, 0, a)

	data, err := m.Finalize(context.Background())
	require.NoError(t, err)

	info, err := Inspect(data, models.ContainerAVI)
	require.NoError(t, err)
	assert.Equal(t, 64, info.Width)
	assert.Equal(t, 48, info.Height)
	assert.Equal(t, 5, info.Frames)
	assert.True(t, info.VideoTrack)
	assert.False(t, info.AudioTrack)

	_, err = m.Finalize(context.Background())
	assert.ErrorIs(t, err, ErrFinalized)
	assert.ErrorIs(t, m.AddVideo(videoUnit(999_999, []byte{1})), ErrFinalized)
}

func TestAVIFinalizeHonoursCancellation(t *testing.T) {
	m, err := NewAVI(Options{Width: 16, Height: 16, TempDir: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, m.AddVideo(videoUnit(0, jpegFrame(t, 16, 16, 0))))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Finalize(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInspectRejectsGarbage(t *testing.T) {
	_, err := Inspect([]byte("short"), models.ContainerMP4)
	assert.ErrorIs(t, err, ErrMalformed)

	junk := bytes.Repeat([]byte{0xff}, 512)
	_, err = Inspect(junk, models.ContainerMP4)
	assert.ErrorIs(t, err, ErrMalformed)
	_, err = Inspect(junk, models.ContainerAVI)
	assert.ErrorIs(t, err, ErrMalformed)
}

func mp4Box(kind string, payload ...[]byte) []byte {
	body := bytes.Join(payload, nil)
	out := make([]byte, 8, 8+len(body))
	binary.BigEndian.PutUint32(out, uint32(8+len(body)))
	copy(out[4:], kind)
	return append(out, body...)
}

func TestInspectSyntheticMP4(t *testing.T) {
	mvhd := make([]byte, 100)
	binary.BigEndian.PutUint32(mvhd[12:], 1000)
	binary.BigEndian.PutUint32(mvhd[16:], 2500)

	tkhd := make([]byte, 84)
	binary.BigEndian.PutUint32(tkhd[76:], 640<<16)
	binary.BigEndian.PutUint32(tkhd[80:], 360<<16)

	hdlr := func(kind string) []byte {
		p := make([]byte, 24)
		copy(p[8:], kind)
		return mp4Box("hdlr", p)
	}
	stsz := make([]byte, 12)
	binary.BigEndian.PutUint32(stsz[8:], 75)

	video := mp4Box("trak",
		mp4Box("tkhd", tkhd),
		mp4Box("mdia", hdlr("vide"), mp4Box("minf", mp4Box("stbl", mp4Box("stsz", stsz)))))
	sound := mp4Box("trak", mp4Box("tkhd", make([]byte, 84)), mp4Box("mdia", hdlr("soun")))

	file := append(mp4Box("ftyp", []byte("isom\x00\x00\x02\x00")),
		mp4Box("moov", mp4Box("mvhd", mvhd), video, sound)...)

	info, err := Inspect(file, models.ContainerMP4)
	require.NoError(t, err)
	assert.Equal(t, 2500*time.Millisecond, info.Duration)
	assert.Equal(t, 640, info.Width)
	assert.Equal(t, 360, info.Height)
	assert.Equal(t, 75, info.Frames)
	assert.True(t, info.VideoTrack)
	assert.True(t, info.AudioTrack)
}

func TestMP4RoundTrip(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	dir := t.TempDir()
	raw := filepath.Join(dir, "in.h264")
	out, err := exec.Command("ffmpeg", "-hide_banner", "-loglevel", "error",
		"-f", "lavfi", "-i", "color=c=blue:size=128x96:rate=30:duration=1",
		"-c:v", "libx264", "-preset", "ultrafast", "-bf", "0",
		"-bsf:v", "h264_metadata=aud=insert", "-f", "h264", "-y", raw).CombinedOutput()
	require.NoError(t, err, string(out))

	f, err := os.Open(raw)
	require.NoError(t, err)
	defer f.Close()

	m := NewMP4(Options{TempDir: dir, Metadata: map[string]string{"title": "test"}})
	defer m.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64<<10), 8<<20)
	scanner.Split(ffmpeg.SplitAccessUnits)
	var n int64
	for scanner.Scan() {
		data := append([]byte(nil), scanner.Bytes()...)
		require.NoError(t, m.AddVideo(models.AccessUnit{
			Stream: models.StreamVideo, Data: data, TimestampUs: n * 33_333, Keyframe: ffmpeg.IsKeyframe(data),
		}))
		n++
	}
	require.NoError(t, scanner.Err())
	require.Equal(t, int64(30), n)

	data, err := m.Finalize(context.Background())
	require.NoError(t, err)

	info, err := Inspect(data, models.ContainerMP4)
	require.NoError(t, err)
	assert.Equal(t, 128, info.Width)
	assert.Equal(t, 96, info.Height)
	assert.Equal(t, 30, info.Frames)
	assert.False(t, info.AudioTrack)
	assert.InDelta(t, time.Second.Seconds(), info.Duration.Seconds(), 0.1)
}

