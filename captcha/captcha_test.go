package captcha

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solverWithOCR(result string, err error) *Solver {
	s := New("tesseract", 5)
	s.recognize = func(ctx context.Context, imagePath string) (string, error) {
		return result, err
	}
	return s
}

func TestSolveAcceptsExactlyFiveDigits(t *testing.T) {
	tests := []struct {
		name     string
		ocr      string
		wantCode string
		wantErr  bool
	}{
		{"clean five digits", "12345", "12345", false},
		{"digits with whitespace", " 12345\n", "12345", false},
		{"letters mixed in still five digits", "1a2b3c4d5", "12345", false},
		{"letter replaces a digit", "12E45", "", true},
		{"four digits", "1245", "", true},
		{"six digits", "123456", "", true},
		{"empty", "", "", true},
		{"no digits at all", "hello", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := solverWithOCR(tt.ocr, nil)
			code, err := s.Solve(context.Background(), []byte("png"))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrManualInput)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantCode, code)
			}
		})
	}
}

func TestSolveOCRErrorMeansManualInput(t *testing.T) {
	s := solverWithOCR("", errors.New("tesseract not installed"))
	_, err := s.Solve(context.Background(), []byte("png"))
	assert.ErrorIs(t, err, ErrManualInput)
}

func TestSolveRecognizesOnlyOnce(t *testing.T) {
	s := New("tesseract", 5)
	calls := 0
	s.recognize = func(ctx context.Context, imagePath string) (string, error) {
		calls++
		return "12E45", nil
	}
	_, err := s.Solve(context.Background(), []byte("png"))
	assert.ErrorIs(t, err, ErrManualInput)
	assert.Equal(t, 1, calls, "one capture, one recognition attempt")
}

func TestFilterDigits(t *testing.T) {
	assert.Equal(t, "1245", FilterDigits("12E45"))
	assert.Equal(t, "", FilterDigits("abc"))
	assert.Equal(t, "00791", FilterDigits("0 0 7-9.1"))
}

func TestValidate(t *testing.T) {
	s := New("tesseract", 5)
	assert.True(t, s.Validate("12345"))
	assert.False(t, s.Validate("1234"))
	assert.False(t, s.Validate("12E45"))
	assert.False(t, s.Validate("123456"))
}
