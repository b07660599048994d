package mosaic

import "fmt"

const (
	// destRowAlign is the row alignment of adapter-allocated planes.
	// Destination strides therefore usually differ from source strides,
	// which is why conversion copies row by row.
	destRowAlign = 64

	// maxFrameDimension bounds accepted frame sizes. Matches the default
	// 2D texture size limit of the GPU import path.
	maxFrameDimension = 8192

	// converterRingSize is the number of destination buffers a Converter
	// cycles through. Three buffers keep the in-flight frame, the
	// uploading frame, and the converting frame on distinct memory.
	converterRingSize = 3
)

// Plane is one contiguous pixel plane of a PixelBuffer.
type Plane struct {
	Bytes  []byte
	Width  int
	Height int
	Stride int
}

// PixelBuffer is a GPU-importable pixel buffer produced by a Converter.
// Format is one of the two import layouts: PixelFormatRGBA32 (one packed
// plane) or PixelFormatYUV420P (three 8-bit planes, chroma quarter-size).
//
// Buffers are owned and recycled by their Converter: Generation increases
// every time the converter writes new frame content into the buffer, so
// downstream texture caching can tell recycled content from repeated
// content without hashing pixels.
type PixelBuffer struct {
	Format     PixelFormat
	Width      int
	Height     int
	Planes     []Plane
	Generation uint64
}

// Converter turns decoded frames into GPU-importable pixel buffers,
// reconciling stride differences with a per-row copy. One Converter
// serves one channel: it recycles a small ring of destination buffers,
// and sharing a ring across channels would alias their uploads within a
// frame.
//
// Converter is not safe for concurrent use; the renderer drives it from
// the render path only.
type Converter struct {
	ring       []*PixelBuffer
	next       int
	generation uint64

	// Geometry of the current ring. A change reallocates the ring.
	width  int
	height int
	format PixelFormat
}

// NewConverter returns a Converter with an empty ring. Buffers are
// allocated on first use and realloc'd when the source geometry changes.
func NewConverter() *Converter {
	return &Converter{}
}

// Convert produces a pixel buffer holding the frame's content in a
// GPU-importable layout:
//
//   - RGB24 and RGBA32 sources become one packed RGBA plane (RGB24 pixels
//     are expanded with alpha 255).
//   - YUV420P sources keep their three planes.
//   - NV12 sources are de-interleaved into three planes, so every YUV
//     buffer imports the same way.
//
// Every plane is copied min(srcStride, dstStride) bytes per row, height
// rows; a single bulk copy would shear the image whenever the strides
// differ. The returned buffer stays valid until the converter has
// recycled through its ring; callers must not retain it across frames.
//
// Failures return an error wrapping ErrConversionFailed; no partially
// written buffer is ever returned.
func (c *Converter) Convert(frame DecodedFrame) (*PixelBuffer, error) {
	if err := frame.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}
	if frame.Width > maxFrameDimension || frame.Height > maxFrameDimension {
		return nil, fmt.Errorf("%w: %dx%d exceeds max dimension %d",
			ErrConversionFailed, frame.Width, frame.Height, maxFrameDimension)
	}

	dstFormat := destFormat(frame.PixelFormat)
	if err := c.ensureRing(frame.Width, frame.Height, dstFormat); err != nil {
		return nil, err
	}

	buf := c.ring[c.next]
	c.next = (c.next + 1) % len(c.ring)

	switch frame.PixelFormat {
	case PixelFormatRGBA32:
		copyRows(buf.Planes[0].Bytes, buf.Planes[0].Stride,
			frame.Bytes, frame.StrideBytes, frame.Height)
	case PixelFormatRGB24:
		expandRGB(buf.Planes[0], frame.Bytes, frame.StrideBytes, frame.Width, frame.Height)
	case PixelFormatYUV420P:
		copyPlanarYUV(buf, frame)
	case PixelFormatNV12:
		copyNV12(buf, frame)
	default:
		return nil, fmt.Errorf("%w: unsupported pixel format %v", ErrConversionFailed, frame.PixelFormat)
	}

	c.generation++
	buf.Generation = c.generation
	return buf, nil
}

// destFormat maps a source pixel format to its import layout.
func destFormat(f PixelFormat) PixelFormat {
	if f == PixelFormatYUV420P || f == PixelFormatNV12 {
		return PixelFormatYUV420P
	}
	return PixelFormatRGBA32
}

// ensureRing (re)allocates the destination ring when the source geometry
// changes. Buffers in a fresh ring start at generation zero and are
// stamped on first write.
func (c *Converter) ensureRing(w, h int, format PixelFormat) error {
	if c.ring != nil && c.width == w && c.height == h && c.format == format {
		return nil
	}
	ring := make([]*PixelBuffer, converterRingSize)
	for i := range ring {
		buf, err := newPixelBuffer(w, h, format)
		if err != nil {
			return err
		}
		ring[i] = buf
	}
	c.ring = ring
	c.next = 0
	c.width = w
	c.height = h
	c.format = format
	return nil
}

// newPixelBuffer allocates a destination buffer with row-aligned planes.
func newPixelBuffer(w, h int, format PixelFormat) (*PixelBuffer, error) {
	buf := &PixelBuffer{Format: format, Width: w, Height: h}
	switch format {
	case PixelFormatRGBA32:
		buf.Planes = []Plane{newPlane(w, h, 4)}
	case PixelFormatYUV420P:
		cw := (w + 1) / 2
		ch := (h + 1) / 2
		buf.Planes = []Plane{
			newPlane(w, h, 1),
			newPlane(cw, ch, 1),
			newPlane(cw, ch, 1),
		}
	default:
		return nil, fmt.Errorf("%w: no import layout for %v", ErrConversionFailed, format)
	}
	return buf, nil
}

func newPlane(w, h, bytesPerPixel int) Plane {
	stride := alignRow(w * bytesPerPixel)
	return Plane{
		Bytes:  make([]byte, stride*h),
		Width:  w,
		Height: h,
		Stride: stride,
	}
}

func alignRow(n int) int {
	return (n + destRowAlign - 1) &^ (destRowAlign - 1)
}

// copyRows copies rows between two buffers with independent strides,
// min(srcStride, dstStride) bytes per row.
func copyRows(dst []byte, dstStride int, src []byte, srcStride, rows int) {
	n := srcStride
	if dstStride < n {
		n = dstStride
	}
	for row := 0; row < rows; row++ {
		copy(dst[row*dstStride:row*dstStride+n], src[row*srcStride:row*srcStride+n])
	}
}

// expandRGB widens packed RGB rows into the RGBA destination plane,
// honoring both strides and setting alpha to 255.
func expandRGB(dst Plane, src []byte, srcStride, w, h int) {
	for row := 0; row < h; row++ {
		s := src[row*srcStride:]
		d := dst.Bytes[row*dst.Stride:]
		for x := 0; x < w; x++ {
			d[x*4+0] = s[x*3+0]
			d[x*4+1] = s[x*3+1]
			d[x*4+2] = s[x*3+2]
			d[x*4+3] = 255
		}
	}
}

// copyPlanarYUV copies the three source planes of a YUV420P frame.
// Source plane offsets follow the usual packing: Y, then U, then V, with
// chroma strides of half the luma stride (rounded up).
func copyPlanarYUV(buf *PixelBuffer, frame DecodedFrame) {
	yStride := frame.StrideBytes
	cStride := (yStride + 1) / 2
	cRows := (frame.Height + 1) / 2

	yPlane := frame.Bytes
	uPlane := frame.Bytes[yStride*frame.Height:]
	vPlane := frame.Bytes[yStride*frame.Height+cStride*cRows:]

	copyRows(buf.Planes[0].Bytes, buf.Planes[0].Stride, yPlane, yStride, frame.Height)
	copyRows(buf.Planes[1].Bytes, buf.Planes[1].Stride, uPlane, cStride, cRows)
	copyRows(buf.Planes[2].Bytes, buf.Planes[2].Stride, vPlane, cStride, cRows)
}

// copyNV12 copies the luma plane and de-interleaves the UV plane of an
// NV12 frame into separate U and V planes.
func copyNV12(buf *PixelBuffer, frame DecodedFrame) {
	yStride := frame.StrideBytes
	cRows := (frame.Height + 1) / 2
	cCols := (frame.Width + 1) / 2

	copyRows(buf.Planes[0].Bytes, buf.Planes[0].Stride, frame.Bytes, yStride, frame.Height)

	// A UV row carries yStride/2 pairs; an odd-width frame with a tight
	// stride has one fewer pair than chroma columns.
	pairs := cCols
	if rowPairs := yStride / 2; rowPairs < pairs {
		pairs = rowPairs
	}

	uvPlane := frame.Bytes[yStride*frame.Height:]
	uDst := buf.Planes[1]
	vDst := buf.Planes[2]
	for row := 0; row < cRows; row++ {
		src := uvPlane[row*yStride:]
		u := uDst.Bytes[row*uDst.Stride:]
		v := vDst.Bytes[row*vDst.Stride:]
		for x := 0; x < pairs; x++ {
			u[x] = src[x*2]
			v[x] = src[x*2+1]
		}
	}
}
