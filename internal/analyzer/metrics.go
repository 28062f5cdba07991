package analyzer

import (
	"image"
	"math"

	"gonum.org/v1/gonum/stat"
)

// screenshotMetrics summarises the brightness and colour of a screenshot
type screenshotMetrics struct {
	luminance  float64 // mean HSV value, 0..1
	contrast   float64 // standard deviation of luminance
	saturation float64 // mean HSV saturation, 0..1
}

// calculateMetrics samples the image on a regular grid so large screenshots
// stay cheap. Returns zero metrics for empty images.
func calculateMetrics(img image.Image, maxSamples int) screenshotMetrics {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return screenshotMetrics{}
	}

	stride := 1
	if maxSamples > 0 {
		for (width/stride)*(height/stride) > maxSamples {
			stride++
		}
	}

	lums := make([]float64, 0, (width/stride+1)*(height/stride+1))
	sats := make([]float64, 0, cap(lums))

	for y := bounds.Min.Y; y < bounds.Max.Y; y += stride {
		for x := bounds.Min.X; x < bounds.Max.X; x += stride {
			r, g, b, _ := img.At(x, y).RGBA()
			_, s, v := rgbToHSV(float64(r)/65535.0, float64(g)/65535.0, float64(b)/65535.0)
			lums = append(lums, v)
			sats = append(sats, s)
		}
	}

	mean, std := stat.MeanStdDev(lums, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return screenshotMetrics{
		luminance:  mean,
		contrast:   std,
		saturation: stat.Mean(sats, nil),
	}
}

func rgbToHSV(r, g, b float64) (h, s, v float64) {
	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	delta := max - min

	v = max

	if max == 0 {
		s = 0
	} else {
		s = delta / max
	}

	if delta == 0 {
		h = 0
	} else if max == r {
		h = 60 * ((g - b) / delta)
	} else if max == g {
		h = 60 * (((b - r) / delta) + 2)
	} else {
		h = 60 * (((r - g) / delta) + 4)
	}

	if h < 0 {
		h += 360
	}

	return h, s, v
}
