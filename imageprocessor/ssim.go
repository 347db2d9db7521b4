package imageprocessor

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

const (
	ssimWindow    = 7
	ssimK1        = 0.01
	ssimK2        = 0.03
	ssimDataRange = 1.0
)

// Perceptual luminance weights for R, G and B
var lumaWeights = [3]float64{0.2989, 0.5870, 0.1140}

// LumaMap is a single-channel image with values in [0,1]
type LumaMap struct {
	Width  int
	Height int
	Pix    []float64
}

// At returns the luminance at column x, row y
func (m *LumaMap) At(x, y int) float64 {
	return m.Pix[y*m.Width+x]
}

// Luminance converts img to a luminance map, ignoring alpha
func Luminance(img image.Image) *LumaMap {
	b := img.Bounds()
	m := &LumaMap{Width: b.Dx(), Height: b.Dy(), Pix: make([]float64, b.Dx()*b.Dy())}

	if nrgba, ok := img.(*image.NRGBA); ok {
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				i := nrgba.PixOffset(b.Min.X+x, b.Min.Y+y)
				m.Pix[y*m.Width+x] = luma(nrgba.Pix[i], nrgba.Pix[i+1], nrgba.Pix[i+2])
			}
		}
		return m
	}

	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			m.Pix[y*m.Width+x] = luma(c.R, c.G, c.B)
		}
	}
	return m
}

func luma(r, g, b uint8) float64 {
	return lumaWeights[0]*(float64(r)/255) +
		lumaWeights[1]*(float64(g)/255) +
		lumaWeights[2]*(float64(b)/255)
}

// SSIM returns the mean structural similarity of two luminance maps of the
// same size. Local statistics come from a uniform 7x7 window with sample
// covariance; the mean is taken over positions where the window fits.
func SSIM(x, y *LumaMap) (float64, error) {
	if x.Width != y.Width || x.Height != y.Height {
		return 0, fmt.Errorf("ssim needs equal sizes, got %dx%d and %dx%d",
			x.Width, x.Height, y.Width, y.Height)
	}
	if x.Width < ssimWindow || x.Height < ssimWindow {
		return 0, fmt.Errorf("%w: %dx%d is smaller than the %dx%d comparison window",
			ErrDegenerateImage, x.Width, x.Height, ssimWindow, ssimWindow)
	}

	w, h := x.Width, x.Height
	xx := make([]float64, len(x.Pix))
	yy := make([]float64, len(y.Pix))
	xy := make([]float64, len(x.Pix))
	for i := range x.Pix {
		xx[i] = x.Pix[i] * x.Pix[i]
		yy[i] = y.Pix[i] * y.Pix[i]
		xy[i] = x.Pix[i] * y.Pix[i]
	}

	ux := windowMeans(x.Pix, w, h)
	uy := windowMeans(y.Pix, w, h)
	uxx := windowMeans(xx, w, h)
	uyy := windowMeans(yy, w, h)
	uxy := windowMeans(xy, w, h)

	n := float64(ssimWindow * ssimWindow)
	covNorm := n / (n - 1)
	c1 := (ssimK1 * ssimDataRange) * (ssimK1 * ssimDataRange)
	c2 := (ssimK2 * ssimDataRange) * (ssimK2 * ssimDataRange)

	var total float64
	for i := range ux {
		vx := covNorm * (uxx[i] - ux[i]*ux[i])
		vy := covNorm * (uyy[i] - uy[i]*uy[i])
		vxy := covNorm * (uxy[i] - ux[i]*uy[i])

		num := (2*ux[i]*uy[i] + c1) * (2*vxy + c2)
		den := (ux[i]*ux[i] + uy[i]*uy[i] + c1) * (vx + vy + c2)
		total += num / den
	}

	return total / float64(len(ux)), nil
}

// windowMeans returns the mean of every full window, row-major, in a
// (w-6) x (h-6) grid.
func windowMeans(pix []float64, w, h int) []float64 {
	ow, oh := w-ssimWindow+1, h-ssimWindow+1

	rows := make([]float64, ow*h)
	for y := 0; y < h; y++ {
		src := pix[y*w : (y+1)*w]
		for x := 0; x < ow; x++ {
			var s float64
			for k := 0; k < ssimWindow; k++ {
				s += src[x+k]
			}
			rows[y*ow+x] = s
		}
	}

	out := make([]float64, ow*oh)
	area := float64(ssimWindow * ssimWindow)
	for y := 0; y < oh; y++ {
		for x := 0; x < ow; x++ {
			var s float64
			for k := 0; k < ssimWindow; k++ {
				s += rows[(y+k)*ow+x]
			}
			out[y*ow+x] = s / area
		}
	}
	return out
}

// ScorePair scores two equally sized images from 0 to 100, two decimals
func ScorePair(a, b image.Image) (float64, error) {
	ab, bb := a.Bounds(), b.Bounds()
	if ab.Dx() != bb.Dx() || ab.Dy() != bb.Dy() {
		return 0, fmt.Errorf("cannot score %dx%d against %dx%d, normalize the pair first",
			ab.Dx(), ab.Dy(), bb.Dx(), bb.Dy())
	}

	index, err := SSIM(Luminance(a), Luminance(b))
	if err != nil {
		return 0, err
	}
	return RoundScore(index * 100), nil
}

// RoundScore rounds a percentage to two decimals
func RoundScore(v float64) float64 {
	return math.Round(v*100) / 100
}
