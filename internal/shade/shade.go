// Package shade trims the near-uniform background region around a
// cropped item icon so that only the actual artwork remains.
package shade

import (
	"image"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"
)

// minShadePixels is the per-channel pixel count a line must exceed to
// count as shade. The smallest items (rings, etc.) are at least 50px.
const minShadePixels = 25

// Boundary correction limits. A detected first line outside [7, 10] is
// a detection artifact; a last line under 50 is a false-positive short
// shade run.
const (
	firstMax = 10
	firstMin = 7
	lastMin  = 50
)

// Cropper detects where the background shade ends and tightens the
// bounding box of an item image accordingly.
type Cropper struct {
	log zerolog.Logger
}

// NewCropper creates a Cropper reporting diagnostics to log.
func NewCropper(log zerolog.Logger) *Cropper {
	return &Cropper{log: log}
}

// Crop removes extra background from an item image. The horizontal
// pass trims the bottom edge, the vertical pass (on a 90° rotated
// copy) trims the left and right edges. An axis whose shade cannot be
// detected is left untouched.
func (c *Cropper) Crop(img image.Image) image.Image {
	src := imaging.Clone(img)
	threshold := c.threshold(src)

	c.log.Debug().Int("threshold", threshold).Msg("crop value threshold")

	out := src

	first, last, ok := c.scan(src, threshold, "horizontal")
	c.log.Debug().Int("first", first).Int("last", last).Bool("found", ok).
		Msg("horizontal crop limits")

	if ok {
		bottom := last + 4
		if h := out.Bounds().Dy(); bottom > h {
			bottom = h
		}
		out = imaging.Crop(out, image.Rect(0, 0, out.Bounds().Dx(), bottom))
	} else {
		c.log.Warn().Msg("horizontal crop failed, will attempt vertical")
	}

	// The vertical pass scans columns right-to-left by rotating the
	// original image counter-clockwise and reusing the row scanner.
	rot := imaging.Rotate90(src)

	first, last, ok = c.scan(rot, threshold, "vertical")
	c.log.Debug().Int("first", first).Int("last", last).Bool("found", ok).
		Msg("vertical crop limits")

	if ok {
		w, h := out.Bounds().Dx(), out.Bounds().Dy()
		left := w - last - 4
		if left < 0 {
			left = 0
		}
		right := w - first
		if right > w {
			right = w
		}
		out = imaging.Crop(out, image.Rect(left, 0, right, h))
	} else {
		c.log.Warn().Msg("vertical crop failed")
	}

	return out
}

// threshold derives the shade brightness cutoff from a 5-bin luminance
// histogram of the image itself.
func (c *Cropper) threshold(img *image.NRGBA) int {
	b := img.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 50
	}

	lums := make([]float64, 0, total)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			px := img.NRGBAAt(x, y)
			lums = append(lums, 0.299*float64(px.R)+0.587*float64(px.G)+0.114*float64(px.B))
		}
	}
	sort.Float64s(lums)

	dividers := []float64{0, 51.2, 102.4, 153.6, 204.8, 256}
	hist := stat.Histogram(nil, dividers, lums, nil)

	darkest := hist[0] / float64(total)
	second := hist[1] / float64(total)

	switch {
	case darkest >= 0.8:
		c.log.Debug().Msg("item is on a very dark background")
		return 15
	case darkest >= 0.6:
		c.log.Debug().Msg("item is on a mildly dark background")
		return 20
	case second >= 0.5:
		c.log.Debug().Msg("item is on a bright background")
		return 50
	}
	return 50
}

// scan walks rows top to bottom, recording the first and last shade
// row, then applies the boundary corrections. ok is false when no
// shade row exists at all.
func (c *Cropper) scan(img *image.NRGBA, threshold int, pass string) (first, last int, ok bool) {
	first, last = -1, -1
	h := img.Bounds().Dy()

	for row := 0; row < h; row++ {
		if !isShade(img, row, threshold) {
			continue
		}
		if first < 0 {
			first = row
		}
		last = row
	}

	if first < 0 {
		return 0, 0, false
	}

	if first > firstMax || first < firstMin {
		c.log.Warn().Str("pass", pass).Int("was", first).Msg("correcting crop first boundary")
		first = 0
	}
	if last < lastMin {
		c.log.Warn().Str("pass", pass).Int("was", last).Msg("correcting crop last boundary")
		last = h
	}

	return first, last, true
}

// isShade reports whether a row belongs to the background shade: each
// of the red, green and blue channels independently must have more
// than minShadePixels pixels below the threshold.
func isShade(img *image.NRGBA, row, threshold int) bool {
	b := img.Bounds()
	y := b.Min.Y + row

	var nr, ng, nb int
	for x := b.Min.X; x < b.Max.X; x++ {
		px := img.NRGBAAt(x, y)
		if int(px.R) < threshold {
			nr++
		}
		if int(px.G) < threshold {
			ng++
		}
		if int(px.B) < threshold {
			nb++
		}
	}

	n := nr
	if ng < n {
		n = ng
	}
	if nb < n {
		n = nb
	}
	return n > minShadePixels
}
