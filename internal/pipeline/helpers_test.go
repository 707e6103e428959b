package pipeline

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

// testPNG encodes a w×h opaque image as PNG.
func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0x80, A: 0xff})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding PNG: %v", err)
	}
	return buf.Bytes()
}

// testJPEG encodes a small JPEG.
func testJPEG(t *testing.T) []byte {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, 4, 4))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encoding JPEG: %v", err)
	}
	return buf.Bytes()
}

// imagesOf builds an ImageMap holding data under LATEX_IMG_0..n-1.
func imagesOf(data ...[]byte) *ImageMap {
	m := NewImageMap(len(data))
	for i, d := range data {
		m.Set(PlaceholderKey(i), d)
	}
	return m
}
