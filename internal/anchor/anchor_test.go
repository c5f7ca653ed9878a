package anchor

import (
	"errors"
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"unique-matcher/internal/imgutil"
)

// noiseImage fills an image with seeded grayscale noise. Noise windows
// don't accidentally correlate, so only an exact copy matches.
func noiseImage(w, h int, seed int64) *image.NRGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(rng.Intn(256))
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func whiteImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	return img
}

func drawAt(dst, src *image.NRGBA, at image.Point) {
	b := src.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.SetNRGBA(at.X+x, at.Y+y, src.NRGBAAt(x, y))
		}
	}
}

func grayMat(t *testing.T, img image.Image) gocv.Mat {
	t.Helper()
	mat, err := imgutil.ToGrayMat(img)
	if err != nil {
		t.Fatalf("ToGrayMat failed: %v", err)
	}
	return mat
}

// testAssets builds four distinct noise patterns standing in for the
// real control point assets.
type testAssets struct {
	oneLine, twoLine, oneLineEnd, twoLineEnd *image.NRGBA
}

func newTestAssets() testAssets {
	return testAssets{
		oneLine:    noiseImage(40, 20, 1),
		twoLine:    noiseImage(40, 30, 2),
		oneLineEnd: noiseImage(40, 20, 3),
		twoLineEnd: noiseImage(40, 30, 4),
	}
}

func (a testAssets) templates(t *testing.T) *Templates {
	t.Helper()
	tpl := &Templates{
		OneLine:    grayMat(t, a.oneLine),
		TwoLine:    grayMat(t, a.twoLine),
		OneLineEnd: grayMat(t, a.oneLineEnd),
		TwoLineEnd: grayMat(t, a.twoLineEnd),
	}
	t.Cleanup(tpl.Close)
	return tpl
}

func TestFindStartUnidentified(t *testing.T) {
	assets := newTestAssets()
	tpl := assets.templates(t)

	screen := whiteImage(400, 300)
	drawAt(screen, assets.oneLine, image.Pt(200, 100))

	mat := grayMat(t, screen)
	defer mat.Close()

	locator := NewLocator(tpl, 0.2, zerolog.Nop())
	loc, identified, err := locator.FindStart(mat)
	if err != nil {
		t.Fatalf("FindStart failed: %v", err)
	}
	if identified {
		t.Error("one-line anchor should report unidentified")
	}
	if loc != image.Pt(200, 100) {
		t.Errorf("location: got %v, want (200,100)", loc)
	}
}

func TestFindStartIdentified(t *testing.T) {
	assets := newTestAssets()
	tpl := assets.templates(t)

	screen := whiteImage(400, 300)
	drawAt(screen, assets.twoLine, image.Pt(150, 80))

	mat := grayMat(t, screen)
	defer mat.Close()

	locator := NewLocator(tpl, 0.2, zerolog.Nop())
	loc, identified, err := locator.FindStart(mat)
	if err != nil {
		t.Fatalf("FindStart failed: %v", err)
	}
	if !identified {
		t.Error("two-line anchor should report identified")
	}
	if loc != image.Pt(150, 80) {
		t.Errorf("location: got %v, want (150,80)", loc)
	}
}

func TestFindStartNotFound(t *testing.T) {
	assets := newTestAssets()
	tpl := assets.templates(t)

	mat := grayMat(t, whiteImage(400, 300))
	defer mat.Close()

	locator := NewLocator(tpl, 0.2, zerolog.Nop())
	_, _, err := locator.FindStart(mat)
	if err == nil {
		t.Fatal("FindStart should fail on a screen without anchors")
	}

	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("error type: got %T, want *NotFoundError", err)
	}
	if notFound.Stage != "start" {
		t.Errorf("stage: got %q, want start", notFound.Stage)
	}
	if notFound.OneLineVal <= 0.2 || notFound.TwoLineVal <= 0.2 {
		t.Errorf("diagnostic values should exceed the threshold: %v", notFound)
	}
}

func TestFindEnd(t *testing.T) {
	assets := newTestAssets()
	tpl := assets.templates(t)

	screen := whiteImage(400, 300)
	drawAt(screen, assets.oneLineEnd, image.Pt(320, 110))

	mat := grayMat(t, screen)
	defer mat.Close()

	locator := NewLocator(tpl, 0.2, zerolog.Nop())
	loc, err := locator.FindEnd(mat, false)
	if err != nil {
		t.Fatalf("FindEnd failed: %v", err)
	}
	if loc != image.Pt(320, 110) {
		t.Errorf("location: got %v, want (320,110)", loc)
	}

	// The identified end marker isn't on screen.
	if _, err := locator.FindEnd(mat, true); err == nil {
		t.Error("FindEnd should fail for the missing two-line end marker")
	}
}

func TestStartSize(t *testing.T) {
	assets := newTestAssets()
	tpl := assets.templates(t)

	if got := tpl.StartSize(false); got != image.Pt(40, 20) {
		t.Errorf("one-line size: got %v, want (40,20)", got)
	}
	if got := tpl.StartSize(true); got != image.Pt(40, 30) {
		t.Errorf("two-line size: got %v, want (40,30)", got)
	}
}
