// Package tilecodec converts a rectangular region of a PNG image into the
// 4-bits-per-pixel planar tile format the console's video hardware expects:
// 32 bytes per 8x8 tile, four 1-bit planes of 8 rows each, most significant
// bit of each plane byte is the leftmost pixel of that row.
package tilecodec

import (
	"image"
	_ "image/png"
	"io"

	"golang.org/x/image/draw"

	"cicada16asm/asm"
)

// TileSize is the width and height, in pixels, of one tile.
const TileSize = 8

// BytesPerTile is the encoded size of one tile: 4 bitplanes x 8 rows.
const BytesPerTile = 32

// Rect is an 8-aligned sub-rectangle of a source image, in pixels.
type Rect struct {
	X, Y, W, H int
}

// Decode loads a PNG (or any format registered with image, via blank
// import) from r.
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, asm.NewImageError("decoding tile source image: %s", err)
	}
	return img, nil
}

// EncodeTiles renders every tile inside rect (row-major, left to right, top
// to bottom) as 4bpp planar data. rect's origin and extents must each be a
// multiple of TileSize and must lie entirely within img's bounds.
func EncodeTiles(img image.Image, rect Rect) ([]byte, error) {
	if err := validateRect(img, rect); err != nil {
		return nil, err
	}

	gray := toGray4(img, rect)

	tilesX := rect.W / TileSize
	tilesY := rect.H / TileSize
	out := make([]byte, 0, tilesX*tilesY*BytesPerTile)

	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			out = append(out, encodeTile(gray, tx*TileSize, ty*TileSize)...)
		}
	}
	return out, nil
}

func validateRect(img image.Image, rect Rect) error {
	if rect.W <= 0 || rect.H <= 0 {
		return asm.NewImageDimensionError("tile rectangle has non-positive extent %dx%d", rect.W, rect.H)
	}
	if rect.X%TileSize != 0 || rect.Y%TileSize != 0 {
		return asm.NewImageDimensionError("tile rectangle origin (%d,%d) is not 8-aligned", rect.X, rect.Y)
	}
	if rect.W%TileSize != 0 || rect.H%TileSize != 0 {
		return asm.NewImageDimensionError("tile rectangle extent %dx%d is not a multiple of 8", rect.W, rect.H)
	}
	b := img.Bounds()
	if rect.X < b.Min.X || rect.Y < b.Min.Y || rect.X+rect.W > b.Max.X || rect.Y+rect.H > b.Max.Y {
		return asm.NewImageDimensionError("tile rectangle (%d,%d,%d,%d) falls outside the source image bounds %v", rect.X, rect.Y, rect.W, rect.H, b)
	}
	return nil
}

// toGray4 copies rect out of img, pixel for pixel with no scaling, into an
// 8-bit grayscale buffer whose high nibble is the 4-bit pixel value
// EncodeTiles packs into bitplanes. The RGBA-to-grayscale reduction is the
// weighted luminance of the standard Gray color model; palette-aware
// quantization is a plausible extension this doesn't attempt.
func toGray4(img image.Image, rect Rect) *image.Gray {
	srcRect := image.Rect(rect.X, rect.Y, rect.X+rect.W, rect.Y+rect.H)
	gray := image.NewGray(image.Rect(0, 0, rect.W, rect.H))
	draw.Draw(gray, gray.Bounds(), img, srcRect.Min, draw.Src)
	for i, v := range gray.Pix {
		gray.Pix[i] = v & 0xF0
	}
	return gray
}

func encodeTile(gray *image.Gray, localX, localY int) []byte {
	tile := make([]byte, BytesPerTile)
	for plane := 0; plane < 4; plane++ {
		for row := 0; row < TileSize; row++ {
			var rowByte byte
			for col := 0; col < TileSize; col++ {
				px := gray.GrayAt(localX+col, localY+row).Y >> 4
				bit := (px >> uint(plane)) & 1
				rowByte |= bit << uint(7-col)
			}
			tile[plane*TileSize+row] = rowByte
		}
	}
	return tile
}
