// Package imagemeta reads pixel dimensions straight out of raw PNG and JPEG
// bytes. The two formats cover everything the browser engine can emit, so a
// full imaging library stays out of the dependency tree.
package imagemeta

import (
	"encoding/binary"
	"errors"

	"github.com/charmbracelet/log"
)

var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

var errMalformed = errors.New("malformed image data")

// Dimensions returns (width, height) for the given image bytes. Malformed
// input yields (0, 0) with a warning; image delivery must never fail on a
// dimension parse.
func Dimensions(data []byte, imageType string) (int, int) {
	var (
		w, h int
		err  error
	)

	switch imageType {
	case "jpeg":
		w, h, err = jpegDimensions(data)
	default:
		w, h, err = pngDimensions(data)
	}

	if err != nil {
		log.Warn("could not parse image dimensions", "image_type", imageType, "err", err)
		return 0, 0
	}

	return w, h
}

// pngDimensions reads the IHDR chunk: 8 signature bytes, 4 length bytes,
// 4 type bytes, then width and height as big-endian uint32.
func pngDimensions(data []byte) (int, int, error) {
	if len(data) < 24 {
		return 0, 0, errMalformed
	}

	for i, b := range pngSignature {
		if data[i] != b {
			return 0, 0, errMalformed
		}
	}

	w := binary.BigEndian.Uint32(data[16:20])
	h := binary.BigEndian.Uint32(data[20:24])

	return int(w), int(h), nil
}

// jpegDimensions walks the marker segments until a start-of-frame marker
// (SOF0, SOF1 or SOF2) and reads height then width, the order JPEG stores
// them in.
func jpegDimensions(data []byte) (int, int, error) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return 0, 0, errMalformed
	}

	pos := 2
	for {
		if pos+4 > len(data) {
			return 0, 0, errMalformed
		}
		if data[pos] != 0xFF {
			return 0, 0, errMalformed
		}

		marker := data[pos+1]
		length := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		if length < 2 {
			return 0, 0, errMalformed
		}

		if marker == 0xC0 || marker == 0xC1 || marker == 0xC2 {
			// Segment: length(2) precision(1) height(2) width(2).
			if pos+9 > len(data) {
				return 0, 0, errMalformed
			}
			h := binary.BigEndian.Uint16(data[pos+5 : pos+7])
			w := binary.BigEndian.Uint16(data[pos+7 : pos+9])
			return int(w), int(h), nil
		}

		pos += 2 + length
	}
}
