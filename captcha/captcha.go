// Package captcha turns a screenshot of the site's CAPTCHA image into the
// numeric code it shows. Recognition runs the tesseract binary in
// single-line mode; anything that does not come out as an exact five-digit
// code is handed back for manual entry instead of guessed at.
package captcha

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrManualInput signals that OCR could not produce a valid code and a
// human has to read the image.
var ErrManualInput = errors.New("captcha: manual input required")

// Solver performs one recognition attempt per image. It never retries OCR
// on the same capture.
type Solver struct {
	tesseractBin string
	codeDigits   int

	recognize func(ctx context.Context, imagePath string) (string, error)
}

// New creates a Solver using the given tesseract binary and the expected
// code length (the site uses 5 digits).
func New(tesseractBin string, codeDigits int) *Solver {
	s := &Solver{
		tesseractBin: tesseractBin,
		codeDigits:   codeDigits,
	}
	s.recognize = s.runTesseract
	return s
}

// Solve writes the captured image region to a temp file, recognizes it once
// and validates the result. The code is returned only when the digit-filtered
// text has exactly the expected length; otherwise ErrManualInput.
func (s *Solver) Solve(ctx context.Context, imagePNG []byte) (string, error) {
	imgPath := filepath.Join(os.TempDir(), fmt.Sprintf("captcha_%s.png", uuid.NewString()[:8]))
	if err := os.WriteFile(imgPath, imagePNG, 0644); err != nil {
		return "", fmt.Errorf("write captcha image: %w", err)
	}
	defer os.Remove(imgPath)

	text, err := s.recognize(ctx, imgPath)
	if err != nil {
		log.Printf("[captcha] OCR failed: %v", err)
		return "", ErrManualInput
	}

	code := FilterDigits(text)
	log.Printf("[captcha] OCR detected: %q → digits %q", strings.TrimSpace(text), code)

	if len(code) != s.codeDigits {
		return "", ErrManualInput
	}
	return code, nil
}

// Validate reports whether a (possibly human-entered) code has the expected
// shape: exactly codeDigits digits and nothing else.
func (s *Solver) Validate(code string) bool {
	return len(code) == s.codeDigits && FilterDigits(code) == code
}

// FilterDigits strips everything but ASCII digits.
func FilterDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteByte(byte(r))
		}
	}
	return b.String()
}

// runTesseract shells out to tesseract in single-line page-segmentation
// mode and returns its stdout.
func (s *Solver) runTesseract(ctx context.Context, imagePath string) (string, error) {
	cmd := exec.CommandContext(ctx, s.tesseractBin, imagePath, "stdout", "--psm", "7")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
