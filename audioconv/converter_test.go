package audioconv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeInput(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("not really audio"), 0644))
	return path
}

func TestOutputPathDeterminism(t *testing.T) {
	c := New("/tmp/out", 44100, "")

	tests := []struct {
		input string
		want  string
	}{
		{"/downloads/speechma_audio_123.mp3", "/tmp/out/speechma_audio_123.wav"},
		{"/downloads/clip1.mp3", "/tmp/out/clip1.wav"},
		{"/downloads/noext", "/tmp/out/noext.wav"},
		{"/downloads/two.dots.ogg", "/tmp/out/two.dots.wav"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.OutputPath(tt.input))
	}
}

func TestNormalizePrimarySuccess(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "processed")
	input := writeInput(t, dir, "clip1.mp3")

	c := New(outDir, 44100, "")
	calls := 0
	c.runPrimary = func(ctx context.Context, in, out string) error {
		calls++
		return os.WriteFile(out, []byte("wav"), 0644)
	}
	c.runFallback = func(in, out string, rate int) error {
		t.Fatal("fallback must not run when primary succeeds")
		return nil
	}

	got, err := c.Normalize(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "clip1.wav"), got)
	assert.Equal(t, 1, calls)
	assert.True(t, c.Processed(input))
}

func TestNormalizeIdempotent(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "clip1.mp3")

	c := New(filepath.Join(dir, "processed"), 44100, "")
	calls := 0
	c.runPrimary = func(ctx context.Context, in, out string) error {
		calls++
		return os.WriteFile(out, []byte("wav"), 0644)
	}

	first, err := c.Normalize(context.Background(), input)
	require.NoError(t, err)
	second, err := c.Normalize(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls, "second call must not reprocess")
}

func TestNormalizeFallsBackWhenPrimaryFails(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "clip1.mp3")

	c := New(filepath.Join(dir, "processed"), 44100, "")
	c.runPrimary = func(ctx context.Context, in, out string) error {
		return errors.New("exit status 1")
	}
	fallbackRan := false
	c.runFallback = func(in, out string, rate int) error {
		fallbackRan = true
		assert.Equal(t, 44100, rate)
		return os.WriteFile(out, []byte("wav"), 0644)
	}

	got, err := c.Normalize(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, fallbackRan)
	assert.FileExists(t, got)
}

func TestNormalizeBothPathsFail(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "processed")
	input := writeInput(t, dir, "clip1.mp3")

	c := New(outDir, 44100, "")
	c.runPrimary = func(ctx context.Context, in, out string) error {
		return errors.New("exit status 1")
	}
	c.runFallback = func(in, out string, rate int) error {
		// simulate a partial write before the failure
		_ = os.WriteFile(out, []byte("partial"), 0644)
		return errors.New("decode mp3: invalid frame")
	}

	_, err := c.Normalize(context.Background(), input)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConversionFailed)
	assert.NoFileExists(t, filepath.Join(outDir, "clip1.wav"),
		"no output file may remain when both paths fail")
	assert.False(t, c.Processed(input))
}

func TestNormalizeMissingInput(t *testing.T) {
	c := New(t.TempDir(), 44100, "")
	_, err := c.Normalize(context.Background(), "/nonexistent/clip.mp3")
	assert.Error(t, err)
}

func TestResampleStereo(t *testing.T) {
	// two frames of stereo at 2 Hz → four frames at 4 Hz
	in := []int{0, 100, 1000, 300}
	out := resampleStereo(in, 2, 4)
	require.Len(t, out, 8)

	// frame 0 is the original first frame
	assert.Equal(t, 0, out[0])
	assert.Equal(t, 100, out[1])
	// frame 1 sits halfway between the two source frames
	assert.Equal(t, 500, out[2])
	assert.Equal(t, 200, out[3])

	// identity when rates match
	same := resampleStereo(in, 44100, 44100)
	assert.Equal(t, in, same)
}

func TestFindFFmpegConfiguredMissing(t *testing.T) {
	_, err := FindFFmpeg("/definitely/not/here/ffmpeg")
	assert.Error(t, err)
}
