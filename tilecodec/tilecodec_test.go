package tilecodec

import (
	"image"
	"image/color"
	"testing"

	"cicada16asm/asm"
)

func solidImage(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestEncodeTilesSolidBlackTileIsAllZero(t *testing.T) {
	img := solidImage(8, 8, 0x00)
	out, err := EncodeTiles(img, Rect{0, 0, 8, 8})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != BytesPerTile {
		t.Fatalf("expected %d bytes, got %d", BytesPerTile, len(out))
	}
	for _, b := range out {
		if b != 0 {
			t.Fatalf("expected all-zero tile, found byte %#02x", b)
		}
	}
}

func TestEncodeTilesSolidWhiteTileSetsAllPlaneBits(t *testing.T) {
	img := solidImage(8, 8, 0xFF)
	out, err := EncodeTiles(img, Rect{0, 0, 8, 8})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, b := range out {
		if b != 0xFF {
			t.Fatalf("expected every row byte to be 0xFF, found %#02x", b)
		}
	}
}

func TestEncodeTilesLeftmostPixelIsMSB(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		img.SetGray(0, y, color.Gray{Y: 0xFF})
	}
	out, err := EncodeTiles(img, Rect{0, 0, 8, 8})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Plane 3 (high nibble's top bit) row 0 should have only the MSB set.
	if out[3*TileSize+0] != 0x80 {
		t.Fatalf("expected leftmost-pixel row byte 0x80, got %#02x", out[3*TileSize+0])
	}
}

func TestEncodeTilesMultipleTilesAreRowMajor(t *testing.T) {
	img := solidImage(16, 8, 0x00)
	for y := 0; y < 8; y++ {
		for x := 8; x < 16; x++ {
			img.SetGray(x, y, color.Gray{Y: 0xFF})
		}
	}
	out, err := EncodeTiles(img, Rect{0, 0, 16, 8})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2*BytesPerTile {
		t.Fatalf("expected 2 tiles worth of bytes, got %d", len(out))
	}
	// Left (black) tile comes first, right (white) tile second.
	for i, b := range out {
		want := byte(0x00)
		if i >= BytesPerTile {
			want = 0xFF
		}
		if b != want {
			t.Fatalf("byte %d: expected %#02x, got %#02x", i, want, b)
		}
	}
}

func TestEncodeTilesRejectsUnalignedOrigin(t *testing.T) {
	img := solidImage(16, 16, 0x00)
	_, err := EncodeTiles(img, Rect{3, 0, 8, 8})
	assertImageError(t, err)
}

func TestEncodeTilesRejectsNonMultipleExtent(t *testing.T) {
	img := solidImage(16, 16, 0x00)
	_, err := EncodeTiles(img, Rect{0, 0, 10, 8})
	assertImageError(t, err)
}

func TestEncodeTilesRejectsOutOfBoundsRect(t *testing.T) {
	img := solidImage(8, 8, 0x00)
	_, err := EncodeTiles(img, Rect{0, 0, 16, 8})
	assertImageError(t, err)
}

func assertImageError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	aerr, ok := err.(*asm.AssemblyError)
	if !ok {
		t.Fatalf("expected *asm.AssemblyError, got %T", err)
	}
	if aerr.Kind != asm.KindImage {
		t.Fatalf("expected KindImage, got %v", aerr.Kind)
	}
}
