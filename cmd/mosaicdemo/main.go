// Command mosaicdemo composites five synthesized dash-camera feeds.
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gogpu/mosaic"
	"github.com/gogpu/mosaic/events"
)

// demoFPS is the synthetic feed rate used for frame timestamps.
const demoFPS = 30.0

func main() {
	var (
		width   = flag.Int("width", 1280, "output surface width")
		height  = flag.Int("height", 720, "output surface height")
		ticks   = flag.Int("ticks", 120, "number of frames to render")
		pngOut  = flag.String("png", "mosaic.png", "captured PNG file")
		jpegOut = flag.String("jpeg", "mosaic.jpg", "captured JPEG file")
		rawOut  = flag.String("raw", "", "optional uncaptioned PNG of the final frame")
		verbose = flag.Bool("v", false, "log per-frame diagnostics")
	)
	flag.Parse()

	if *verbose {
		mosaic.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	bus := events.New()
	defer bus.Subscribe(func(e events.ChannelSkippedEvent) {
		log.Printf("channel %s skipped: %s", e.Channel, e.Reason)
	})()
	defer bus.Subscribe(func(e events.CaptureCompletedEvent) {
		log.Printf("captured %s: %d bytes (%dx%d)", e.Format, e.Bytes, e.Width, e.Height)
	})()

	r, err := mosaic.NewRenderer(mosaic.WithEventBus(bus))
	if err != nil {
		log.Fatalf("renderer unavailable: %v", err)
	}
	defer func() {
		_ = r.Close()
	}()
	log.Printf("rendering on %s", r.AdapterName())

	feeds := demoFeeds()

	for tick := 0; tick < *ticks; tick++ {
		driveControls(r, tick, feeds)

		channels := make(mosaic.ChannelFrames, len(feeds))
		for _, f := range feeds {
			channels[f.pos] = f.frame(tick)
		}
		if err := r.Render(channels, *width, *height); err != nil {
			log.Fatalf("render tick %d: %v", tick, err)
		}
	}

	playback := float64(*ticks) / demoFPS
	pngBytes, err := r.CaptureFrame(mosaic.CaptureFormatPNG,
		mosaic.WithCaptureTimestamp(time.Now()),
		mosaic.WithPlaybackTime(playback))
	if err != nil {
		log.Fatalf("capture PNG: %v", err)
	}
	if err := os.WriteFile(*pngOut, pngBytes, 0o644); err != nil {
		log.Fatalf("write %s: %v", *pngOut, err)
	}

	jpegBytes, err := r.CaptureFrame(mosaic.CaptureFormatJPEG,
		mosaic.WithCaptureTimestamp(time.Now()),
		mosaic.WithPlaybackTime(playback))
	if err != nil {
		log.Fatalf("capture JPEG: %v", err)
	}
	if err := os.WriteFile(*jpegOut, jpegBytes, 0o644); err != nil {
		log.Fatalf("write %s: %v", *jpegOut, err)
	}

	if *rawOut != "" {
		pm, err := r.FramePixmap()
		if err != nil {
			log.Fatalf("frame pixmap: %v", err)
		}
		if err := pm.SavePNG(*rawOut); err != nil {
			log.Fatalf("write %s: %v", *rawOut, err)
		}
	}

	log.Printf("rendered %d frames at %dx%d, wrote %s and %s",
		r.FrameSequence(), *width, *height, *pngOut, *jpegOut)
}

// driveControls walks the renderer through layouts, transforms, and a
// mid-run resolution switch so a single run exercises the whole control
// surface.
func driveControls(r *mosaic.Renderer, tick int, feeds []*feed) {
	t := r.Transforms()
	switch tick {
	case 30:
		t.SetBrightness(0.15)
	case 40:
		r.SetLayoutMode(mosaic.LayoutFocus)
		r.SetFocusedChannel(mosaic.ChannelRear)
	case 50:
		t.ToggleFlipHorizontal()
	case 60:
		// Interior camera switches resolution mid-run.
		for _, f := range feeds {
			if f.pos == mosaic.ChannelInterior {
				f.width, f.height = 640, 360
			}
		}
	case 70:
		t.SetZoomLevel(1.8)
		t.SetZoomCenter(0.5, 0.4)
	case 80:
		r.SetLayoutMode(mosaic.LayoutHorizontal)
	case 90:
		t.Reset()
	case 100:
		r.SetLayoutMode(mosaic.LayoutGrid)
	}
}

// feed synthesizes one channel's animated test pattern.
type feed struct {
	pos    mosaic.ChannelPosition
	format mosaic.PixelFormat
	width  int
	height int
	pad    int // extra stride bytes beyond the packed row (RGBA only)
	tint   [3]uint8
	u, v   uint8
	seq    int64
}

// demoFeeds covers all four pixel formats, mixed resolutions, and one
// padded-stride source.
func demoFeeds() []*feed {
	return []*feed{
		{pos: mosaic.ChannelFront, format: mosaic.PixelFormatRGBA32,
			width: 640, height: 360, pad: 64, tint: [3]uint8{80, 170, 255}},
		{pos: mosaic.ChannelRear, format: mosaic.PixelFormatRGB24,
			width: 640, height: 360, tint: [3]uint8{255, 120, 80}},
		{pos: mosaic.ChannelLeft, format: mosaic.PixelFormatYUV420P,
			width: 320, height: 240, u: 160, v: 90},
		{pos: mosaic.ChannelRight, format: mosaic.PixelFormatNV12,
			width: 320, height: 240, u: 100, v: 170},
		{pos: mosaic.ChannelInterior, format: mosaic.PixelFormatRGBA32,
			width: 480, height: 270, tint: [3]uint8{170, 255, 120}},
	}
}

// frame renders the feed's next frame: a vertical gradient in the tint
// color with a bright bar sweeping left to right.
func (f *feed) frame(tick int) mosaic.DecodedFrame {
	barX := (tick*6 + f.width/3) % f.width
	var data []byte
	stride := 0
	switch f.format {
	case mosaic.PixelFormatRGBA32:
		stride = f.width*4 + f.pad
		data = synthRGBA(f.width, f.height, stride, f.tint, barX)
	case mosaic.PixelFormatRGB24:
		stride = f.width * 3
		data = synthRGB(f.width, f.height, stride, f.tint, barX)
	case mosaic.PixelFormatYUV420P:
		stride = f.width
		data = synthYUV420P(f.width, f.height, barX, f.u, f.v)
	case mosaic.PixelFormatNV12:
		stride = f.width
		data = synthNV12(f.width, f.height, barX, f.u, f.v)
	}
	f.seq++
	return mosaic.DecodedFrame{
		TimestampSeconds: float64(tick) / demoFPS,
		Width:            f.width,
		Height:           f.height,
		PixelFormat:      f.format,
		Bytes:            data,
		StrideBytes:      stride,
		SequenceNumber:   f.seq,
		IsKeyFrame:       tick%30 == 0,
	}
}

func synthRGBA(w, h, stride int, tint [3]uint8, barX int) []byte {
	buf := make([]byte, stride*h)
	for y := 0; y < h; y++ {
		row := buf[y*stride:]
		shade := uint32(64 + 191*y/h)
		for x := 0; x < w; x++ {
			i := x * 4
			if abs(x-barX) < 8 {
				row[i], row[i+1], row[i+2], row[i+3] = 255, 255, 255, 255
				continue
			}
			row[i+0] = uint8(uint32(tint[0]) * shade / 255)
			row[i+1] = uint8(uint32(tint[1]) * shade / 255)
			row[i+2] = uint8(uint32(tint[2]) * shade / 255)
			row[i+3] = 255
		}
	}
	return buf
}

func synthRGB(w, h, stride int, tint [3]uint8, barX int) []byte {
	buf := make([]byte, stride*h)
	for y := 0; y < h; y++ {
		row := buf[y*stride:]
		shade := uint32(64 + 191*y/h)
		for x := 0; x < w; x++ {
			i := x * 3
			if abs(x-barX) < 8 {
				row[i], row[i+1], row[i+2] = 255, 255, 255
				continue
			}
			row[i+0] = uint8(uint32(tint[0]) * shade / 255)
			row[i+1] = uint8(uint32(tint[1]) * shade / 255)
			row[i+2] = uint8(uint32(tint[2]) * shade / 255)
		}
	}
	return buf
}

// synthYUV420P fills a gradient luma plane with the bar, then constant
// quarter-size chroma planes. Dimensions must be even.
func synthYUV420P(w, h, barX int, u, v uint8) []byte {
	ySize := w * h
	cSize := (w / 2) * (h / 2)
	buf := make([]byte, ySize+2*cSize)
	fillLuma(buf[:ySize], w, h, barX)
	for i := 0; i < cSize; i++ {
		buf[ySize+i] = u
		buf[ySize+cSize+i] = v
	}
	return buf
}

// synthNV12 fills the same gradient luma plane, then one interleaved
// UV plane. Dimensions must be even.
func synthNV12(w, h, barX int, u, v uint8) []byte {
	ySize := w * h
	cRows := h / 2
	buf := make([]byte, ySize+w*cRows)
	fillLuma(buf[:ySize], w, h, barX)
	for r := 0; r < cRows; r++ {
		row := buf[ySize+r*w:]
		for x := 0; x < w/2; x++ {
			row[2*x] = u
			row[2*x+1] = v
		}
	}
	return buf
}

func fillLuma(plane []byte, w, h, barX int) {
	for y := 0; y < h; y++ {
		row := plane[y*w:]
		base := uint8(40 + 150*y/h)
		for x := 0; x < w; x++ {
			if abs(x-barX) < 8 {
				row[x] = 235
			} else {
				row[x] = base
			}
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
