package ocr

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Pixels at or below this intensity become black after inversion. A hard
// threshold keeps the narrow "(n)" quantity glyphs intact; any blur smears
// them into unreadability.
const binarizeThreshold = 150

// Preprocess prepares a raw screenshot for recognition. The reward screen
// renders light text on a dark background while Tesseract is tuned for the
// opposite, and the small parenthesised quantity glyphs sit below the
// recognizer's reliable resolution floor until upscaled.
func Preprocess(img image.Image) *image.NRGBA {
	w := img.Bounds().Dx()
	up := imaging.Resize(img, w*3, 0, imaging.Lanczos)
	gray := imaging.Grayscale(up)
	inv := imaging.Invert(gray)
	return binarize(inv, binarizeThreshold)
}

// binarize performs a simple global threshold on a grayscale image.
func binarize(img image.Image, threshold uint8) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bb, _ := img.At(x, y).RGBA()
			gray := uint8((r + g + bb) / 3 >> 8)
			var v uint8 = 255
			if gray <= threshold {
				v = 0
			}
			out.Set(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return out
}
