// Package audioconv normalizes downloaded audio to WAV at a fixed sample
// rate. The primary path shells out to ffmpeg; if the binary is missing or
// the invocation fails, a library-based decode/resample/encode takes over.
package audioconv

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// ErrConversionFailed is returned when both conversion paths fail.
var ErrConversionFailed = errors.New("audioconv: conversion failed")

// Converter transcodes audio files into <outputDir>/<stem>.wav.
//
// A successfully converted input is remembered and never reprocessed, so a
// watcher cycle that re-observes the same download is a no-op.
type Converter struct {
	outputDir  string
	sampleRate int
	ffmpegPath string

	mu        sync.Mutex
	processed map[string]struct{}

	runPrimary  func(ctx context.Context, input, output string) error
	runFallback func(input, output string, sampleRate int) error
}

// New creates a Converter writing into outputDir at sampleRate Hz.
// ffmpegPath may be empty; discovery then runs at first use.
func New(outputDir string, sampleRate int, ffmpegPath string) *Converter {
	c := &Converter{
		outputDir:  outputDir,
		sampleRate: sampleRate,
		ffmpegPath: ffmpegPath,
		processed:  make(map[string]struct{}),
	}
	c.runPrimary = c.runFFmpeg
	c.runFallback = convertWithLibrary
	return c
}

// OutputPath returns the deterministic target path for an input file:
// the input's base name with its extension swapped for .wav.
func (c *Converter) OutputPath(inputPath string) string {
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(c.outputDir, stem+".wav")
}

// Processed reports whether inputPath has already been converted.
func (c *Converter) Processed(inputPath string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.processed[inputPath]
	return ok
}

// Normalize converts inputPath to WAV and returns the output path. A second
// call for the same input returns immediately without reprocessing. When
// both the ffmpeg path and the library path fail, no output file is left
// behind and the returned error wraps ErrConversionFailed.
func (c *Converter) Normalize(ctx context.Context, inputPath string) (string, error) {
	outPath := c.OutputPath(inputPath)

	c.mu.Lock()
	if _, done := c.processed[inputPath]; done {
		c.mu.Unlock()
		log.Printf("[audioconv] already processed: %s", filepath.Base(inputPath))
		return outPath, nil
	}
	c.mu.Unlock()

	if _, err := os.Stat(inputPath); err != nil {
		return "", fmt.Errorf("input file: %w", err)
	}
	if err := os.MkdirAll(c.outputDir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	log.Printf("[audioconv] Converting %s → %s (%d Hz)", filepath.Base(inputPath), filepath.Base(outPath), c.sampleRate)

	primaryErr := c.runPrimary(ctx, inputPath, outPath)
	if primaryErr == nil {
		c.markProcessed(inputPath)
		log.Printf("[audioconv] ✅ Converted via ffmpeg: %s", outPath)
		return outPath, nil
	}
	log.Printf("[audioconv] ffmpeg path failed: %v — falling back to library decode", primaryErr)

	if err := c.runFallback(inputPath, outPath, c.sampleRate); err != nil {
		_ = os.Remove(outPath)
		return "", fmt.Errorf("%w: ffmpeg: %v; library: %v", ErrConversionFailed, primaryErr, err)
	}

	c.markProcessed(inputPath)
	log.Printf("[audioconv] ✅ Converted via library fallback: %s", outPath)
	return outPath, nil
}

func (c *Converter) markProcessed(inputPath string) {
	c.mu.Lock()
	c.processed[inputPath] = struct{}{}
	c.mu.Unlock()
}

// runFFmpeg invokes the external encoder with explicit paths, the target
// sample rate and the overwrite flag. Exit status decides success; stderr is
// kept for the error message.
func (c *Converter) runFFmpeg(ctx context.Context, input, output string) error {
	bin := c.ffmpegPath
	if bin == "" {
		found, err := FindFFmpeg("")
		if err != nil {
			return err
		}
		bin = found
		c.ffmpegPath = bin
	}

	cmd := exec.CommandContext(ctx, bin,
		"-i", input,
		"-ar", fmt.Sprintf("%d", c.sampleRate),
		"-y",
		output,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg exit: %w: %s", err, lastLines(string(out), 3))
	}
	return nil
}

// lastLines trims process output to its trailing n lines for diagnostics
func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
