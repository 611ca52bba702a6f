package compositor

import (
	"image"
	"math"
)

// kernelTap is one neighbour of the dilation disk with its coverage weight
// in 1/256 units.
type kernelTap struct {
	dx, dy int
	weight uint32
}

// diskKernel returns the taps of a disk of the given radius. Taps on the rim
// get partial weight so the outline edge stays antialiased.
func diskKernel(radius float64) []kernelTap {
	if radius <= 0 {
		return nil
	}
	r := int(math.Ceil(radius))
	taps := make([]kernelTap, 0, (2*r+1)*(2*r+1))
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			dist := math.Hypot(float64(dx), float64(dy))
			cover := radius + 0.5 - dist
			if dx == 0 && dy == 0 {
				cover = 1
			}
			if cover <= 0 {
				continue
			}
			if cover > 1 {
				cover = 1
			}
			taps = append(taps, kernelTap{dx: dx, dy: dy, weight: uint32(cover*256 + 0.5)})
		}
	}
	return taps
}

// dilate writes into dst the grey-scale dilation of src by the kernel.
// dst and src must share bounds. Only non-zero source pixels are visited.
func dilate(dst, src *image.Alpha, kernel []kernelTap) {
	for i := range dst.Pix {
		dst.Pix[i] = 0
	}
	b := src.Rect
	w, h := b.Dx(), b.Dy()

	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w]
		for x, a := range row {
			if a == 0 {
				continue
			}
			for _, tap := range kernel {
				tx, ty := x+tap.dx, y+tap.dy
				if tx < 0 || ty < 0 || tx >= w || ty >= h {
					continue
				}
				v := uint8((uint32(a)*tap.weight + 128) >> 8)
				if i := ty*dst.Stride + tx; dst.Pix[i] < v {
					dst.Pix[i] = v
				}
			}
		}
	}
}
