package imgutil

import (
	"image"
	"image/color"
	"math/rand"
	"testing"
)

// patternImage fills an image with a deterministic grayscale pattern.
func patternImage(w, h int, f func(x, y int) uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := f(x, y)
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

// noiseImage fills an image with seeded grayscale noise, so a window
// only correlates with its own exact copy.
func noiseImage(w, h int, seed int64) *image.NRGBA {
	rng := rand.New(rand.NewSource(seed))
	return patternImage(w, h, func(x, y int) uint8 { return uint8(rng.Intn(256)) })
}

func TestToGrayMat(t *testing.T) {
	img := patternImage(40, 20, func(x, y int) uint8 { return uint8((x*3 + y*7) % 251) })

	mat, err := ToGrayMat(img)
	if err != nil {
		t.Fatalf("ToGrayMat failed: %v", err)
	}
	defer mat.Close()

	if mat.Cols() != 40 || mat.Rows() != 20 {
		t.Errorf("dimensions: got %dx%d, want 40x20", mat.Cols(), mat.Rows())
	}
	if mat.Channels() != 1 {
		t.Errorf("channels: got %d, want 1", mat.Channels())
	}
}

func TestBestMatchPerfect(t *testing.T) {
	screen := noiseImage(200, 100, 42)

	// The template is an exact sub-window of the screen.
	sub := image.NewNRGBA(image.Rect(0, 0, 30, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 30; x++ {
			sub.SetNRGBA(x, y, screen.NRGBAAt(x+60, y+40))
		}
	}

	screenMat, err := ToGrayMat(screen)
	if err != nil {
		t.Fatalf("ToGrayMat(screen) failed: %v", err)
	}
	defer screenMat.Close()

	tmplMat, err := ToGrayMat(sub)
	if err != nil {
		t.Fatalf("ToGrayMat(template) failed: %v", err)
	}
	defer tmplMat.Close()

	score, err := BestMatch(screenMat, tmplMat)
	if err != nil {
		t.Fatalf("BestMatch failed: %v", err)
	}

	if score.MinVal > 1e-6 {
		t.Errorf("MinVal: got %v, want ~0 for an exact sub-window", score.MinVal)
	}
	if score.MinLoc != image.Pt(60, 40) {
		t.Errorf("MinLoc: got %v, want (60,40)", score.MinLoc)
	}
}

func TestBestMatchTemplateTooLarge(t *testing.T) {
	screen := patternImage(20, 20, func(x, y int) uint8 { return uint8(x + y) })
	tmpl := patternImage(40, 40, func(x, y int) uint8 { return uint8(x + y) })

	screenMat, err := ToGrayMat(screen)
	if err != nil {
		t.Fatalf("ToGrayMat(screen) failed: %v", err)
	}
	defer screenMat.Close()

	tmplMat, err := ToGrayMat(tmpl)
	if err != nil {
		t.Fatalf("ToGrayMat(template) failed: %v", err)
	}
	defer tmplMat.Close()

	if _, err := BestMatch(screenMat, tmplMat); err == nil {
		t.Error("BestMatch should fail when the template is larger than the screen")
	}
}

func TestThumbnail(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		maxW, maxH   int
		wantW, wantH int
	}{
		{"fits untouched", 80, 150, 100, 200, 80, 150},
		{"too wide", 200, 100, 100, 200, 100, 50},
		{"too tall", 100, 400, 100, 200, 50, 200},
		{"both over", 400, 400, 100, 200, 100, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := patternImage(tt.w, tt.h, func(x, y int) uint8 { return uint8(x % 200) })
			out := Thumbnail(img, tt.maxW, tt.maxH)

			b := out.Bounds()
			if b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("got %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestThumbnailDoesNotUpscale(t *testing.T) {
	img := patternImage(10, 10, func(x, y int) uint8 { return 128 })
	out := Thumbnail(img, 100, 200)

	if b := out.Bounds(); b.Dx() != 10 || b.Dy() != 10 {
		t.Errorf("small image was rescaled to %dx%d", b.Dx(), b.Dy())
	}
}
