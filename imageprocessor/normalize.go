package imageprocessor

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// NormalizePair brings two images to the smaller width and the smaller
// height of the pair. Each image is shrunk to fit without changing its
// aspect ratio and centred on a white canvas of that size.
func NormalizePair(a, b image.Image) (image.Image, image.Image, error) {
	if err := CheckDimensions("first image", a); err != nil {
		return nil, nil, err
	}
	if err := CheckDimensions("second image", b); err != nil {
		return nil, nil, err
	}

	ab, bb := a.Bounds(), b.Bounds()
	target := image.Pt(min(ab.Dx(), bb.Dx()), min(ab.Dy(), bb.Dy()))

	return FitWithPadding(a, target), FitWithPadding(b, target), nil
}

// FitWithPadding letterboxes img onto a white canvas of exactly size
func FitWithPadding(img image.Image, size image.Point) *image.NRGBA {
	bounds := img.Bounds()
	w, h := thumbnailSize(bounds.Dx(), bounds.Dy(), size.X, size.Y)

	shrunk := img
	if w != bounds.Dx() || h != bounds.Dy() {
		shrunk = imaging.Resize(img, w, h, imaging.Lanczos)
	}

	canvas := imaging.New(size.X, size.Y, color.White)
	offset := image.Pt((size.X-w)/2, (size.Y-h)/2)

	return imaging.Paste(canvas, shrunk, offset)
}

// thumbnailSize returns the largest size with the source aspect ratio that
// fits within the target box. Sources that already fit keep their size.
func thumbnailSize(srcW, srcH, maxW, maxH int) (int, int) {
	if maxW >= srcW && maxH >= srcH {
		return srcW, srcH
	}

	aspect := float64(srcW) / float64(srcH)
	x, y := maxW, maxH

	if float64(x)/float64(y) >= aspect {
		x = roundAspect(float64(y)*aspect, func(n float64) float64 {
			return math.Abs(aspect - n/float64(y))
		})
	} else {
		y = roundAspect(float64(x)/aspect, func(n float64) float64 {
			if n == 0 {
				return 0
			}
			return math.Abs(aspect - float64(x)/n)
		})
	}

	return x, y
}

// roundAspect picks floor or ceil of n, whichever keeps the aspect ratio
// closer, preferring floor on ties. The result is at least 1.
func roundAspect(n float64, distance func(float64) float64) int {
	lo, hi := math.Floor(n), math.Ceil(n)
	best := lo
	if distance(hi) < distance(lo) {
		best = hi
	}
	if best < 1 {
		return 1
	}
	return int(best)
}
