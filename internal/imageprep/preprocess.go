// Package imageprep prepares photographed label bitmaps for text recognition.
// The chain is grayscale -> small-radius median filter -> Otsu global
// threshold, producing a black/white image that tesseract handles far better
// than a raw phone photo.
package imageprep

import (
	"image"
	"image/color"
	"sort"
)

// Grayscale converts any image to 8-bit single-channel intensity.
func Grayscale(src image.Image) *image.Gray {
	bounds := src.Bounds()
	dst := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			dst.Set(x, y, color.GrayModel.Convert(src.At(x, y)))
		}
	}
	return dst
}

// Median applies a 3x3 median filter, removing single-pixel noise speckles.
// Border pixels are copied unchanged.
func Median(src *image.Gray) *image.Gray {
	bounds := src.Bounds()
	dst := image.NewGray(bounds)
	copy(dst.Pix, src.Pix)

	var window [9]int
	for y := bounds.Min.Y + 1; y < bounds.Max.Y-1; y++ {
		for x := bounds.Min.X + 1; x < bounds.Max.X-1; x++ {
			i := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					window[i] = int(src.GrayAt(x+dx, y+dy).Y)
					i++
				}
			}
			s := window[:]
			sort.Ints(s)
			dst.SetGray(x, y, color.Gray{Y: uint8(s[4])})
		}
	}
	return dst
}

// OtsuThreshold computes the global binarization threshold that maximizes
// between-class variance of the intensity histogram.
func OtsuThreshold(src *image.Gray) uint8 {
	var hist [256]int
	total := 0
	bounds := src.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			hist[src.GrayAt(x, y).Y]++
			total++
		}
	}
	if total == 0 {
		return 0
	}

	sum := 0.0
	for v, n := range hist {
		sum += float64(v) * float64(n)
	}

	var (
		sumB, wB  float64
		best      float64
		threshold uint8
	)
	for v := 0; v < 256; v++ {
		wB += float64(hist[v])
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(v) * float64(hist[v])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			threshold = uint8(v)
		}
	}
	return threshold
}

// Binarize maps every pixel to pure black or white around the threshold.
func Binarize(src *image.Gray, threshold uint8) *image.Gray {
	dst := image.NewGray(src.Bounds())
	for i, v := range src.Pix {
		if v > threshold {
			dst.Pix[i] = 255
		} else {
			dst.Pix[i] = 0
		}
	}
	return dst
}

// PrepareForOCR runs the full preprocessing chain on a decoded bitmap. It is
// a pure function of the input and always succeeds for a valid image.
func PrepareForOCR(src image.Image) *image.Gray {
	gray := Median(Grayscale(src))
	return Binarize(gray, OtsuThreshold(gray))
}
