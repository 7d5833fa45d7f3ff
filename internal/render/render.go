// Package render turns raw skin PNGs into head icons and per-server
// composite status images. The store treats all of these as opaque blobs;
// only this package interprets pixels.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
)

const (
	// HeadSize is the output side length of a rendered head.
	HeadSize = 64

	faceRegionSize = 8
	skinWidth      = 64

	compositeColumns = 5
	compositeCell    = HeadSize
	compositeGap     = 8
)

// PlayerEntry is one player in a composite render. HeadPNG may be nil, in
// which case the default head is drawn.
type PlayerEntry struct {
	Name    string
	HeadPNG []byte
}

// RenderHead renders a 64x64 head icon from a skin PNG.
//
// The head is the 8x8 face region at (8,8) with the helmet overlay at (40,8)
// composited on top (new-format 64x64 skins only), scaled up with
// nearest-neighbor to keep the pixelated look.
func RenderHead(skinPNG []byte) ([]byte, error) {
	skin, err := png.Decode(bytes.NewReader(skinPNG))
	if err != nil {
		return nil, fmt.Errorf("decode skin: %w", err)
	}

	bounds := skin.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width != skinWidth || (height != 64 && height != 32) {
		return nil, fmt.Errorf("invalid skin dimensions %dx%d (want 64x64 or 64x32)", width, height)
	}

	head := cropRegion(skin, 8, 8)
	if height == 64 {
		helmet := cropRegion(skin, 40, 8)
		draw.Draw(head, head.Bounds(), helmet, helmet.Bounds().Min, draw.Over)
	}

	scaled := scaleNearest(head, HeadSize, HeadSize)

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, fmt.Errorf("encode head: %w", err)
	}
	return buf.Bytes(), nil
}

// ComposeStatus lays player heads out in a grid and returns the PNG.
// An empty roster yields a single empty cell so the image is never zero-sized.
func ComposeStatus(players []PlayerEntry) ([]byte, error) {
	cols := len(players)
	if cols == 0 {
		cols = 1
	}
	if cols > compositeColumns {
		cols = compositeColumns
	}
	rows := (len(players) + cols - 1) / cols
	if rows == 0 {
		rows = 1
	}

	width := cols*compositeCell + (cols+1)*compositeGap
	height := rows*compositeCell + (rows+1)*compositeGap
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.RGBA{R: 0x23, G: 0x27, B: 0x2a, A: 0xff}), image.Point{}, draw.Src)

	for i, p := range players {
		col := i % cols
		row := i / cols
		x := compositeGap + col*(compositeCell+compositeGap)
		y := compositeGap + row*(compositeCell+compositeGap)

		head := decodeHeadOrDefault(p.HeadPNG)
		draw.Draw(canvas, image.Rect(x, y, x+compositeCell, y+compositeCell), head, head.Bounds().Min, draw.Over)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode composite: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeHeadOrDefault(headPNG []byte) image.Image {
	if len(headPNG) > 0 {
		if img, err := png.Decode(bytes.NewReader(headPNG)); err == nil {
			b := img.Bounds()
			if b.Dx() == HeadSize && b.Dy() == HeadSize {
				return img
			}
			return scaleNearest(toRGBA(img), HeadSize, HeadSize)
		}
	}
	return DefaultHead()
}

// DefaultHead returns a flat fallback head used when a player's skin is
// unknown.
func DefaultHead() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, HeadSize, HeadSize))
	skinTone := color.RGBA{R: 0xc5, G: 0x8d, B: 0x6b, A: 0xff}
	hair := color.RGBA{R: 0x4a, G: 0x31, B: 0x20, A: 0xff}
	draw.Draw(img, img.Bounds(), image.NewUniform(skinTone), image.Point{}, draw.Src)
	// hair band across the top quarter
	draw.Draw(img, image.Rect(0, 0, HeadSize, HeadSize/4), image.NewUniform(hair), image.Point{}, draw.Src)
	return img
}

func cropRegion(src image.Image, x, y int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, faceRegionSize, faceRegionSize))
	min := src.Bounds().Min
	draw.Draw(dst, dst.Bounds(), src, image.Pt(min.X+x, min.Y+y), draw.Src)
	return dst
}

func toRGBA(src image.Image) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	return dst
}

// scaleNearest scales src with nearest-neighbor interpolation, preserving
// hard pixel edges.
func scaleNearest(src *image.RGBA, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	srcW := src.Bounds().Dx()
	srcH := src.Bounds().Dy()
	for y := 0; y < height; y++ {
		sy := y * srcH / height
		for x := 0; x < width; x++ {
			sx := x * srcW / width
			dst.Set(x, y, src.At(src.Bounds().Min.X+sx, src.Bounds().Min.Y+sy))
		}
	}
	return dst
}
