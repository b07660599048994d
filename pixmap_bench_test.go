package mosaic

import (
	"image/color"
	"testing"
)

// BenchmarkPixmapToImage measures the frame-sized copy into an
// image.RGBA, the first step of every capture.
func BenchmarkPixmapToImage(b *testing.B) {
	pm := NewPixmap(1280, 720)
	for y := 0; y < 720; y += 16 {
		for x := 0; x < 1280; x += 16 {
			pm.SetPixel(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}

	b.SetBytes(int64(len(pm.Data())))
	b.ReportAllocs()
	for b.Loop() {
		img := pm.ToImage()
		_ = img
	}
}

// BenchmarkEncodeCapture measures still-image encoding of a 720p frame
// in both supported formats.
func BenchmarkEncodeCapture(b *testing.B) {
	img := captureTestImage(1280, 720)

	benchmarks := []struct {
		name   string
		format CaptureFormat
	}{
		{"png", CaptureFormatPNG},
		{"jpeg", CaptureFormatJPEG},
	}
	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				if _, err := encodeCapture(img, bm.format, defaultJPEGQuality); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
