package imagemeta

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func pngBytes(width, height uint32) []byte {
	data := make([]byte, 24)
	copy(data, pngSignature)
	// length + "IHDR"
	binary.BigEndian.PutUint32(data[8:12], 13)
	copy(data[12:16], "IHDR")
	binary.BigEndian.PutUint32(data[16:20], width)
	binary.BigEndian.PutUint32(data[20:24], height)
	return data
}

func jpegBytes(sofMarker byte, width, height uint16) []byte {
	data := []byte{0xFF, 0xD8}

	// APP0 segment before the frame header.
	app0 := []byte{0xFF, 0xE0, 0x00, 0x04, 0x4A, 0x46}
	data = append(data, app0...)

	sof := []byte{0xFF, sofMarker, 0x00, 0x0B, 0x08}
	dims := make([]byte, 4)
	binary.BigEndian.PutUint16(dims[0:2], height)
	binary.BigEndian.PutUint16(dims[2:4], width)
	sof = append(sof, dims...)

	return append(data, sof...)
}

func TestPNGDimensions(t *testing.T) {
	w, h := Dimensions(pngBytes(800, 600), "png")
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)
}

func TestPNGBadSignature(t *testing.T) {
	data := pngBytes(800, 600)
	data[0] = 0x00

	w, h := Dimensions(data, "png")
	assert.Zero(t, w)
	assert.Zero(t, h)
}

func TestPNGTruncated(t *testing.T) {
	w, h := Dimensions(pngSignature, "png")
	assert.Zero(t, w)
	assert.Zero(t, h)
}

func TestJPEGDimensions(t *testing.T) {
	for _, marker := range []byte{0xC0, 0xC1, 0xC2} {
		w, h := Dimensions(jpegBytes(marker, 1024, 768), "jpeg")
		assert.Equal(t, 1024, w, "marker %#x", marker)
		assert.Equal(t, 768, h, "marker %#x", marker)
	}
}

func TestJPEGMissingSOI(t *testing.T) {
	w, h := Dimensions([]byte{0x00, 0x01, 0x02, 0x03}, "jpeg")
	assert.Zero(t, w)
	assert.Zero(t, h)
}

func TestJPEGNoFrameHeader(t *testing.T) {
	// SOI followed by a single APP0 segment and nothing else.
	data := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x04, 0x4A, 0x46}

	w, h := Dimensions(data, "jpeg")
	assert.Zero(t, w)
	assert.Zero(t, h)
}

func TestEmptyInput(t *testing.T) {
	w, h := Dimensions(nil, "png")
	assert.Zero(t, w)
	assert.Zero(t, h)

	w, h = Dimensions(nil, "jpeg")
	assert.Zero(t, w)
	assert.Zero(t, h)
}
