package mosaic

import (
	"bytes"
	"errors"
	"testing"
)

// rgbaTestFrame builds a w x h RGBA32 frame whose pixel at (x, y) is
// (x, y, x+y, 255), with the given stride.
func rgbaTestFrame(w, h, stride int) DecodedFrame {
	data := make([]byte, stride*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*stride + x*4
			data[i+0] = byte(x)
			data[i+1] = byte(y)
			data[i+2] = byte(x + y)
			data[i+3] = 255
		}
	}
	return DecodedFrame{
		Width:       w,
		Height:      h,
		PixelFormat: PixelFormatRGBA32,
		Bytes:       data,
		StrideBytes: stride,
	}
}

// TestConvertRGBA32TightStride checks the packed case: every converted
// row equals the source row byte for byte.
func TestConvertRGBA32TightStride(t *testing.T) {
	const w, h = 16, 8
	frame := rgbaTestFrame(w, h, w*4)

	buf, err := NewConverter().Convert(frame)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if buf.Format != PixelFormatRGBA32 || len(buf.Planes) != 1 {
		t.Fatalf("got format %v with %d planes, want RGBA32 with 1", buf.Format, len(buf.Planes))
	}
	plane := buf.Planes[0]
	for y := 0; y < h; y++ {
		src := frame.Bytes[y*frame.StrideBytes : y*frame.StrideBytes+w*4]
		dst := plane.Bytes[y*plane.Stride : y*plane.Stride+w*4]
		if !bytes.Equal(src, dst) {
			t.Fatalf("row %d differs", y)
		}
	}
}

// TestConvertRGBA32PaddedStride checks that a padded source converts
// without shifting pixels across rows.
func TestConvertRGBA32PaddedStride(t *testing.T) {
	const w, h = 10, 6
	frame := rgbaTestFrame(w, h, w*4+28)

	buf, err := NewConverter().Convert(frame)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	plane := buf.Planes[0]
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*plane.Stride + x*4
			if plane.Bytes[i] != byte(x) || plane.Bytes[i+1] != byte(y) {
				t.Fatalf("pixel (%d,%d) = (%d,%d), want (%d,%d): row shifted",
					x, y, plane.Bytes[i], plane.Bytes[i+1], x, y)
			}
		}
	}
}

// TestConvertRGB24Expands checks the 3-to-4 byte expansion with alpha
// forced opaque.
func TestConvertRGB24Expands(t *testing.T) {
	const w, h = 5, 3
	stride := w * 3
	data := make([]byte, stride*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*stride + x*3
			data[i+0] = byte(10 + x)
			data[i+1] = byte(20 + y)
			data[i+2] = byte(30 + x + y)
		}
	}
	frame := DecodedFrame{
		Width: w, Height: h, PixelFormat: PixelFormatRGB24,
		Bytes: data, StrideBytes: stride,
	}

	buf, err := NewConverter().Convert(frame)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	plane := buf.Planes[0]
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*plane.Stride + x*4
			want := [4]byte{byte(10 + x), byte(20 + y), byte(30 + x + y), 255}
			got := [4]byte{plane.Bytes[i], plane.Bytes[i+1], plane.Bytes[i+2], plane.Bytes[i+3]}
			if got != want {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

// TestConvertYUV420P checks all three planes land in their own
// destination planes.
func TestConvertYUV420P(t *testing.T) {
	const w, h = 8, 6
	cw, ch := w/2, h/2
	data := make([]byte, w*h+2*cw*ch)
	for i := 0; i < w*h; i++ {
		data[i] = byte(i)
	}
	for i := 0; i < cw*ch; i++ {
		data[w*h+i] = 100
		data[w*h+cw*ch+i] = 200
	}
	frame := DecodedFrame{
		Width: w, Height: h, PixelFormat: PixelFormatYUV420P,
		Bytes: data, StrideBytes: w,
	}

	buf, err := NewConverter().Convert(frame)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if buf.Format != PixelFormatYUV420P || len(buf.Planes) != 3 {
		t.Fatalf("got format %v with %d planes, want YUV420P with 3", buf.Format, len(buf.Planes))
	}
	y := buf.Planes[0]
	if y.Width != w || y.Height != h {
		t.Errorf("luma plane %dx%d, want %dx%d", y.Width, y.Height, w, h)
	}
	if y.Bytes[2*y.Stride+3] != byte(2*w+3) {
		t.Errorf("luma (3,2) = %d, want %d", y.Bytes[2*y.Stride+3], byte(2*w+3))
	}
	u, v := buf.Planes[1], buf.Planes[2]
	if u.Width != cw || u.Height != ch || v.Width != cw || v.Height != ch {
		t.Errorf("chroma planes %dx%d / %dx%d, want %dx%d", u.Width, u.Height, v.Width, v.Height, cw, ch)
	}
	if u.Bytes[0] != 100 || u.Bytes[(ch-1)*u.Stride+cw-1] != 100 {
		t.Error("U plane content wrong")
	}
	if v.Bytes[0] != 200 || v.Bytes[(ch-1)*v.Stride+cw-1] != 200 {
		t.Error("V plane content wrong")
	}
}

// TestConvertNV12DeinterleavesChroma checks the interleaved UV plane
// splits into separate full U and V planes.
func TestConvertNV12DeinterleavesChroma(t *testing.T) {
	const w, h = 8, 4
	cRows := h / 2
	data := make([]byte, w*h+w*cRows)
	for i := 0; i < w*h; i++ {
		data[i] = 50
	}
	uv := data[w*h:]
	for r := 0; r < cRows; r++ {
		for x := 0; x < w/2; x++ {
			uv[r*w+2*x] = byte(60 + x)   // U
			uv[r*w+2*x+1] = byte(90 + r) // V
		}
	}
	frame := DecodedFrame{
		Width: w, Height: h, PixelFormat: PixelFormatNV12,
		Bytes: data, StrideBytes: w,
	}

	buf, err := NewConverter().Convert(frame)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if buf.Format != PixelFormatYUV420P || len(buf.Planes) != 3 {
		t.Fatalf("got format %v with %d planes, want planar YUV with 3", buf.Format, len(buf.Planes))
	}
	u, v := buf.Planes[1], buf.Planes[2]
	for r := 0; r < cRows; r++ {
		for x := 0; x < w/2; x++ {
			if got := u.Bytes[r*u.Stride+x]; got != byte(60+x) {
				t.Fatalf("U(%d,%d) = %d, want %d", x, r, got, 60+x)
			}
			if got := v.Bytes[r*v.Stride+x]; got != byte(90+r) {
				t.Fatalf("V(%d,%d) = %d, want %d", x, r, got, 90+r)
			}
		}
	}
}

// TestConvertOddDimensionsYUV checks chroma sizing rounds up.
func TestConvertOddDimensionsYUV(t *testing.T) {
	const w, h = 7, 5
	stride := w
	cStride := (stride + 1) / 2
	cRows := (h + 1) / 2
	data := make([]byte, stride*h+2*cStride*cRows)
	frame := DecodedFrame{
		Width: w, Height: h, PixelFormat: PixelFormatYUV420P,
		Bytes: data, StrideBytes: stride,
	}

	buf, err := NewConverter().Convert(frame)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	u := buf.Planes[1]
	if u.Width != 4 || u.Height != 3 {
		t.Errorf("chroma plane %dx%d, want 4x3", u.Width, u.Height)
	}
}

func TestConvertRejectsInvalid(t *testing.T) {
	valid := rgbaTestFrame(4, 4, 16)
	tests := []struct {
		name    string
		mutate  func(*DecodedFrame)
		invalid bool // expect ErrInvalidFrame in the chain
	}{
		{"zero width", func(f *DecodedFrame) { f.Width = 0 }, true},
		{"negative height", func(f *DecodedFrame) { f.Height = -2 }, true},
		{"stride below row", func(f *DecodedFrame) { f.StrideBytes = 15 }, true},
		{"short bytes", func(f *DecodedFrame) { f.Bytes = f.Bytes[:10] }, true},
		{"unknown format", func(f *DecodedFrame) { f.PixelFormat = PixelFormat(9) }, true},
		{"oversized", func(f *DecodedFrame) {
			f.Width = maxFrameDimension + 1
			f.StrideBytes = f.Width * 4
			f.Bytes = make([]byte, f.StrideBytes*f.Height)
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := valid
			tt.mutate(&frame)
			_, err := NewConverter().Convert(frame)
			if !errors.Is(err, ErrConversionFailed) {
				t.Errorf("Convert error = %v, want ErrConversionFailed", err)
			}
			if tt.invalid != errors.Is(err, ErrInvalidFrame) {
				t.Errorf("errors.Is(err, ErrInvalidFrame) = %v, want %v", !tt.invalid, tt.invalid)
			}
		})
	}
}

// TestConverterRingGenerations checks buffer recycling: the ring cycles
// with its fixed period and every write bumps the generation.
func TestConverterRingGenerations(t *testing.T) {
	conv := NewConverter()
	frame := rgbaTestFrame(8, 8, 32)

	var bufs []*PixelBuffer
	for i := 0; i < converterRingSize+1; i++ {
		buf, err := conv.Convert(frame)
		if err != nil {
			t.Fatalf("Convert %d: %v", i, err)
		}
		if want := uint64(i + 1); buf.Generation != want {
			t.Errorf("Convert %d: Generation = %d, want %d", i, buf.Generation, want)
		}
		bufs = append(bufs, buf)
	}

	if bufs[0] != bufs[converterRingSize] {
		t.Error("ring did not recycle the first buffer after a full cycle")
	}
	if bufs[0] == bufs[1] {
		t.Error("consecutive conversions returned the same buffer")
	}
}

// TestConverterGeometryChangeReallocates checks a resolution switch
// drops the ring but keeps the generation counter monotonic.
func TestConverterGeometryChangeReallocates(t *testing.T) {
	conv := NewConverter()

	small, err := conv.Convert(rgbaTestFrame(8, 8, 32))
	if err != nil {
		t.Fatalf("Convert small: %v", err)
	}
	large, err := conv.Convert(rgbaTestFrame(16, 16, 64))
	if err != nil {
		t.Fatalf("Convert large: %v", err)
	}

	if small == large {
		t.Error("geometry change returned a recycled buffer")
	}
	if large.Width != 16 || large.Planes[0].Width != 16 {
		t.Errorf("large buffer geometry %dx%d, want 16x16", large.Width, large.Height)
	}
	if large.Generation <= small.Generation {
		t.Errorf("Generation went from %d to %d, want monotonic increase",
			small.Generation, large.Generation)
	}
}

// TestPlaneStridesAligned checks destination planes carry the allocator
// row alignment.
func TestPlaneStridesAligned(t *testing.T) {
	buf, err := NewConverter().Convert(rgbaTestFrame(10, 4, 40))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	stride := buf.Planes[0].Stride
	if stride < 10*4 {
		t.Errorf("stride %d below row width", stride)
	}
	if stride%destRowAlign != 0 {
		t.Errorf("stride %d not %d-byte aligned", stride, destRowAlign)
	}
}

func BenchmarkConvertRGBA32(b *testing.B) {
	conv := NewConverter()
	frame := rgbaTestFrame(1280, 720, 1280*4)
	b.SetBytes(int64(len(frame.Bytes)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := conv.Convert(frame); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkConvertNV12(b *testing.B) {
	const w, h = 1280, 720
	conv := NewConverter()
	frame := DecodedFrame{
		Width: w, Height: h, PixelFormat: PixelFormatNV12,
		Bytes: make([]byte, w*h+w*h/2), StrideBytes: w,
	}
	b.SetBytes(int64(len(frame.Bytes)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := conv.Convert(frame); err != nil {
			b.Fatal(err)
		}
	}
}
