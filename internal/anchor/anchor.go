// Package anchor locates the control points that bracket a unique item
// label in a screenshot. Four fixed-resolution template assets exist:
// a one-line variant (unidentified items) and a two-line variant
// (identified items), each with a matching end marker.
package anchor

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"unique-matcher/internal/imgutil"
)

// Asset file names, resolved relative to the templates directory.
const (
	FileOneLine    = "unique-one-line-fullhd.png"
	FileTwoLine    = "unique-two-line-fullhd.png"
	FileOneLineEnd = "unique-one-line-end-fullhd.png"
	FileTwoLineEnd = "unique-two-line-end-fullhd.png"
)

// Templates holds the four control point images as grayscale Mats,
// loaded once and read-only afterwards.
type Templates struct {
	OneLine    gocv.Mat
	TwoLine    gocv.Mat
	OneLineEnd gocv.Mat
	TwoLineEnd gocv.Mat
}

// LoadTemplates reads the four anchor assets from dir.
func LoadTemplates(dir string) (*Templates, error) {
	t := &Templates{}
	for _, a := range []struct {
		name string
		dst  *gocv.Mat
	}{
		{FileOneLine, &t.OneLine},
		{FileTwoLine, &t.TwoLine},
		{FileOneLineEnd, &t.OneLineEnd},
		{FileTwoLineEnd, &t.TwoLineEnd},
	} {
		path := filepath.Join(dir, a.name)
		mat := gocv.IMRead(path, gocv.IMReadGrayScale)
		if mat.Empty() {
			t.Close()
			return nil, fmt.Errorf("failed to load anchor template %s", path)
		}
		*a.dst = mat
	}
	return t, nil
}

// Close releases the template Mats.
func (t *Templates) Close() {
	for _, m := range []gocv.Mat{t.OneLine, t.TwoLine, t.OneLineEnd, t.TwoLineEnd} {
		if !m.Closed() {
			m.Close()
		}
	}
}

// StartSize returns the pixel dimensions of the start template for the
// given display mode. The label crop geometry is derived from these.
func (t *Templates) StartSize(identified bool) image.Point {
	if identified {
		return image.Pt(t.TwoLine.Cols(), t.TwoLine.Rows())
	}
	return image.Pt(t.OneLine.Cols(), t.OneLine.Rows())
}

// NotFoundError reports that neither control point variant matched
// within the threshold. Both error values are kept for diagnostics.
type NotFoundError struct {
	Stage      string // "start" or "end"
	OneLineVal float64
	TwoLineVal float64
	Threshold  float64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf(
		"unique control %s not found: threshold=%.2f, one_line=%.3f, two_line=%.3f",
		e.Stage, e.Threshold, e.OneLineVal, e.TwoLineVal,
	)
}

// Locator searches a grayscale screenshot for the control points.
type Locator struct {
	templates *Templates
	threshold float64
	log       zerolog.Logger
}

// NewLocator creates a Locator gated by the given match threshold.
func NewLocator(templates *Templates, threshold float64, log zerolog.Logger) *Locator {
	return &Locator{templates: templates, threshold: threshold, log: log}
}

// FindStart locates the start control point. It tries the one-line
// (unidentified) template first, then the two-line (identified) one.
// The returned bool reports whether the item is displayed identified.
func (l *Locator) FindStart(screen gocv.Mat) (image.Point, bool, error) {
	one, err := imgutil.BestMatch(screen, l.templates.OneLine)
	if err != nil {
		return image.Point{}, false, fmt.Errorf("control start search: %w", err)
	}
	l.log.Debug().Float64("min_val", one.MinVal).Msg("finding unique control start 1")

	if one.MinVal <= l.threshold {
		l.log.Info().Msg("found unidentified item")
		return one.MinLoc, false, nil
	}

	two, err := imgutil.BestMatch(screen, l.templates.TwoLine)
	if err != nil {
		return image.Point{}, false, fmt.Errorf("control start search: %w", err)
	}
	l.log.Debug().Float64("min_val", two.MinVal).Msg("finding unique control start 2")

	if two.MinVal <= l.threshold {
		l.log.Info().Msg("found identified item")
		return two.MinLoc, true, nil
	}

	l.log.Error().
		Float64("threshold", l.threshold).
		Float64("line1_min", one.MinVal).
		Float64("line2_min", two.MinVal).
		Msg("couldn't find unique control start")

	return image.Point{}, false, &NotFoundError{
		Stage:      "start",
		OneLineVal: one.MinVal,
		TwoLineVal: two.MinVal,
		Threshold:  l.threshold,
	}
}

// FindEnd locates the end control point matching the display mode
// reported by FindStart.
func (l *Locator) FindEnd(screen gocv.Mat, identified bool) (image.Point, error) {
	tmpl := l.templates.OneLineEnd
	if identified {
		tmpl = l.templates.TwoLineEnd
	}

	score, err := imgutil.BestMatch(screen, tmpl)
	if err != nil {
		return image.Point{}, fmt.Errorf("control end search: %w", err)
	}
	l.log.Debug().
		Bool("identified", identified).
		Float64("min_val", score.MinVal).
		Msg("finding unique control end")

	if score.MinVal <= l.threshold {
		return score.MinLoc, nil
	}

	l.log.Error().
		Float64("threshold", l.threshold).
		Float64("min_val", score.MinVal).
		Msg("couldn't find unique control end")

	nf := &NotFoundError{Stage: "end", Threshold: l.threshold}
	if identified {
		nf.TwoLineVal = score.MinVal
	} else {
		nf.OneLineVal = score.MinVal
	}
	return image.Point{}, nf
}
