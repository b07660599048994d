package mosaic

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"testing"
)

func TestCaptureFormatString(t *testing.T) {
	tests := []struct {
		format CaptureFormat
		want   string
	}{
		{CaptureFormatPNG, "png"},
		{CaptureFormatJPEG, "jpeg"},
		{CaptureFormat(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.format.String(); got != tt.want {
			t.Errorf("CaptureFormat(%d).String() = %q, want %q", int(tt.format), got, tt.want)
		}
	}
}

func TestFormatPlaybackTime(t *testing.T) {
	tests := []struct {
		name    string
		seconds float64
		want    string
	}{
		{"zero", 0, "00:00:00.000"},
		{"sub-millisecond rounds down", 0.0004, "00:00:00.000"},
		{"millisecond rounds up", 0.0006, "00:00:00.001"},
		{"seconds only", 42.5, "00:00:42.500"},
		{"rolls into minutes", 59.9995, "00:01:00.000"},
		{"hours minutes seconds", 3661.5, "01:01:01.500"},
		{"negative clamps", -3.2, "00:00:00.000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatPlaybackTime(tt.seconds); got != tt.want {
				t.Errorf("formatPlaybackTime(%g) = %q, want %q", tt.seconds, got, tt.want)
			}
		})
	}
}

// captureTestImage builds a small gradient so encoders have non-trivial
// input.
func captureTestImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x * 5), uint8(y * 7), 128, 255})
		}
	}
	return img
}

func TestEncodeCapturePNG(t *testing.T) {
	img := captureTestImage(48, 32)

	data, err := encodeCapture(img, CaptureFormatPNG, 0.95)
	if err != nil {
		t.Fatalf("encodeCapture(png) error: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 48 || b.Dy() != 32 {
		t.Fatalf("decoded size = %dx%d, want 48x32", b.Dx(), b.Dy())
	}
	r, g, _, _ := decoded.At(10, 3).RGBA()
	if uint8(r>>8) != 50 || uint8(g>>8) != 21 {
		t.Errorf("pixel (10,3) = (%d,%d), want (50,21)", r>>8, g>>8)
	}
}

func TestEncodeCaptureJPEG(t *testing.T) {
	img := captureTestImage(48, 32)

	data, err := encodeCapture(img, CaptureFormatJPEG, 0.95)
	if err != nil {
		t.Fatalf("encodeCapture(jpeg) error: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("jpeg.DecodeConfig: %v", err)
	}
	if cfg.Width != 48 || cfg.Height != 32 {
		t.Errorf("decoded size = %dx%d, want 48x32", cfg.Width, cfg.Height)
	}
}

// TestEncodeCaptureJPEGQualityClamp checks that out-of-range quality
// factors still produce a decodable image.
func TestEncodeCaptureJPEGQualityClamp(t *testing.T) {
	img := captureTestImage(16, 16)
	for _, quality := range []float64{-1, 0, 5} {
		data, err := encodeCapture(img, CaptureFormatJPEG, quality)
		if err != nil {
			t.Fatalf("quality %g: %v", quality, err)
		}
		if _, err := jpeg.DecodeConfig(bytes.NewReader(data)); err != nil {
			t.Errorf("quality %g: undecodable output: %v", quality, err)
		}
	}
}

func TestEncodeCaptureUnknownFormat(t *testing.T) {
	_, err := encodeCapture(captureTestImage(4, 4), CaptureFormat(42), 0.95)
	if !errors.Is(err, ErrEncodingFailed) {
		t.Errorf("error = %v, want ErrEncodingFailed", err)
	}
}

// TestDrawTimestampOverlay checks that the overlay darkens the
// bottom-right corner and leaves the rest of the image untouched.
func TestDrawTimestampOverlay(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	fill := color.RGBA{200, 200, 200, 255}
	draw.Draw(img, img.Bounds(), image.NewUniform(fill), image.Point{}, draw.Src)

	lines := []string{"2026-08-21 10:00:00", "00:00:01.000"}
	if err := drawTimestampOverlay(img, lines); err != nil {
		t.Fatalf("drawTimestampOverlay: %v", err)
	}

	changed := 0
	for y := 50; y < 100; y++ {
		for x := 100; x < 200; x++ {
			if img.RGBAAt(x, y) != fill {
				changed++
			}
		}
	}
	if changed == 0 {
		t.Error("no pixel changed in the bottom-right quadrant")
	}
	if got := img.RGBAAt(0, 0); got != fill {
		t.Errorf("pixel (0,0) = %v, want untouched %v", got, fill)
	}
	if got := img.RGBAAt(100, 5); got != fill {
		t.Errorf("pixel (100,5) = %v, want untouched %v", got, fill)
	}
}

// TestDrawTimestampOverlayTinyImage checks that images smaller than the
// label box neither error nor panic.
func TestDrawTimestampOverlayTinyImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	if err := drawTimestampOverlay(img, []string{"00:00:00.000"}); err != nil {
		t.Fatalf("drawTimestampOverlay: %v", err)
	}
}
