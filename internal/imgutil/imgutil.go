// Package imgutil bridges image.Image and gocv.Mat and wraps the
// normalized squared-difference template search used by the matcher.
package imgutil

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// Score is the outcome of a template search: the lowest error value
// found and the top-left corner of the window that produced it.
// A MinVal of 0 is a pixel-perfect match.
type Score struct {
	MinVal float64
	MinLoc image.Point
}

// LoadImage decodes an image file (PNG, JPEG or BMP).
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}

// ToGrayMat converts an image into a single-channel grayscale Mat.
// The caller owns the returned Mat and must Close it.
func ToGrayMat(img image.Image) (gocv.Mat, error) {
	rgb, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to convert image: %w", err)
	}
	defer rgb.Close()

	gray := gocv.NewMat()
	gocv.CvtColor(rgb, &gray, gocv.ColorRGBToGray)
	return gray, nil
}

// BestMatch slides the template over the whole screen using normalized
// squared-difference correlation and returns the best (lowest error)
// position. Neither image is resized.
func BestMatch(screen, tmpl gocv.Mat) (Score, error) {
	if screen.Empty() || tmpl.Empty() {
		return Score{}, fmt.Errorf("empty image")
	}
	if tmpl.Cols() > screen.Cols() || tmpl.Rows() > screen.Rows() {
		return Score{}, fmt.Errorf(
			"template %dx%d larger than screen %dx%d",
			tmpl.Cols(), tmpl.Rows(), screen.Cols(), screen.Rows(),
		)
	}

	result := gocv.NewMat()
	defer result.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	gocv.MatchTemplate(screen, tmpl, &result, gocv.TmSqdiffNormed, mask)
	minVal, _, minLoc, _ := gocv.MinMaxLoc(result)

	return Score{MinVal: float64(minVal), MinLoc: minLoc}, nil
}

// Thumbnail shrinks an image to fit within maxW x maxH, preserving the
// aspect ratio. Images already within the bounds are returned as-is.
// Scaling uses bilinear resampling.
func Thumbnail(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxW && h <= maxH {
		return img
	}

	scale := float64(maxW) / float64(w)
	if sy := float64(maxH) / float64(h); sy < scale {
		scale = sy
	}

	dw := int(float64(w) * scale)
	dh := int(float64(h) * scale)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
