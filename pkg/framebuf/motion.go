package framebuf

import "image"

// motionScore returns the fraction of pixels whose luminance changed by
// more than lumaDelta between two rasters of equal dimensions. Frames of
// differing dimensions are treated as maximal motion.
func motionScore(a, b *image.RGBA, lumaDelta int) float64 {
	if a == nil || b == nil {
		return 0
	}
	if a.Bounds().Dx() != b.Bounds().Dx() || a.Bounds().Dy() != b.Bounds().Dy() {
		return 1.0
	}

	total := a.Bounds().Dx() * a.Bounds().Dy()
	if total == 0 {
		return 0
	}

	changed := 0
	for y := 0; y < a.Bounds().Dy(); y++ {
		ra := a.Pix[y*a.Stride:]
		rb := b.Pix[y*b.Stride:]
		for x := 0; x < a.Bounds().Dx(); x++ {
			i := x * 4
			la := luma(ra[i], ra[i+1], ra[i+2])
			lb := luma(rb[i], rb[i+1], rb[i+2])
			d := la - lb
			if d < 0 {
				d = -d
			}
			if d > lumaDelta {
				changed++
			}
		}
	}

	return float64(changed) / float64(total)
}

// luma approximates pixel brightness as the mean channel intensity.
func luma(r, g, b uint8) int {
	return (int(r) + int(g) + int(b)) / 3
}
