package gpu

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
)

// Embedded WGSL shader source for channel compositing.
//
//go:embed shaders/composite.wgsl
var compositeShaderSource string

// compositeUniformSize is the byte size of the Params uniform buffer.
// Layout (matches Params in composite.wgsl):
//
//	brightness (f32) = 4 bytes  offset 0
//	flip_h     (f32) = 4 bytes  offset 4
//	flip_v     (f32) = 4 bytes  offset 8
//	zoom       (f32) = 4 bytes  offset 12
//	center  (vec2<f32>) = 8 bytes  offset 16
//	pad     (vec2<f32>) = 8 bytes  offset 24
//
// Total = 32 bytes.
const compositeUniformSize = 32

// compositeVertexStride is the byte stride per quad vertex.
// Layout per vertex:
//
//	position  (vec2<f32>) = 8 bytes  (location 0)
//	tex_coord (vec2<f32>) = 8 bytes  (location 1)
//
// Total = 16 bytes per vertex.
const compositeVertexStride = 16

// packCompositeUniform serializes a transform snapshot into the 32-byte
// Params uniform. The snapshot order is brightness, horizontal flip,
// vertical flip, zoom level, zoom center x, zoom center y. The trailing
// 8 bytes are alignment padding and stay zero.
func packCompositeUniform(snapshot [6]float32) []byte {
	buf := make([]byte, compositeUniformSize)
	for i, v := range snapshot {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// quadVertexData returns vertex bytes for a clip-space quad drawn as a
// 4-vertex triangle strip. The v coordinate is flipped so row 0 of the
// source frame lands at the top of the viewport.
func quadVertexData() []byte {
	quad := [4][4]float32{
		{-1, -1, 0, 1},
		{1, -1, 1, 1},
		{-1, 1, 0, 0},
		{1, 1, 1, 0},
	}
	data := make([]byte, len(quad)*compositeVertexStride)
	off := 0
	for _, v := range quad {
		for _, f := range v {
			binary.LittleEndian.PutUint32(data[off:], math.Float32bits(f))
			off += 4
		}
	}
	return data
}

// compositeVertexLayout returns the vertex buffer layout for the composite
// pipelines. Matches VertexInput in composite.wgsl:
//
//	location 0: position (vec2<f32>)
//	location 1: tex_coord (vec2<f32>)
func compositeVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: compositeVertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0}, // position
				{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1}, // tex_coord
			},
		},
	}
}

// compileShaderSPIRV compiles WGSL source to SPIR-V words for backends
// that reject WGSL ingestion. SPIR-V is little-endian 32-bit words.
func compileShaderSPIRV(wgslSource string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgslSource)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}
	spirvCode := make([]uint32, len(spirvBytes)/4)
	for i := range spirvCode {
		spirvCode[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return spirvCode, nil
}

// convertBGRAToRGBA swaps the R and B bytes of pixelCount pixels from src
// into dst. The render target format is BGRA8Unorm; CPU-side consumers
// expect RGBA.
func convertBGRAToRGBA(src, dst []byte, pixelCount int) {
	for i := 0; i < pixelCount; i++ {
		off := i * 4
		dst[off+0] = src[off+2]
		dst[off+1] = src[off+1]
		dst[off+2] = src[off+0]
		dst[off+3] = src[off+3]
	}
}
