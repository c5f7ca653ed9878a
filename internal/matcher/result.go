package matcher

import (
	"image"

	"unique-matcher/internal/catalog"
)

// ItemTemplate is one rendered socket variant of an item icon, created
// on demand for a single matching attempt.
type ItemTemplate struct {
	Image    image.Image
	Sockets  int         // Socket count this variant was rendered with
	Fraction int         // Render scale in percent
	Size     image.Point // Pixel dimensions of the rendered image
}

// MatchResult is the outcome of scoring one item against a screenshot.
// MinVal is the minimum error found across the searched positions and
// variants for that item; lower is better, 0 is a perfect match.
type MatchResult struct {
	Item      catalog.Item
	Loc       image.Point   // Top-left corner of the best matching window
	MinVal    float64       // Normalized squared-difference error
	Template  *ItemTemplate // Variant that produced the score, nil for synthetic results
	Threshold float64       // Found cutoff the result was scored under
}

// Found reports whether the score is good enough to call a match.
func (r MatchResult) Found() bool {
	return r.MinVal <= r.Threshold
}

// Confidence turns MinVal into a percentage: 100 when found, dropping
// linearly as MinVal grows past the threshold. Very poor matches go
// negative.
func (r MatchResult) Confidence() float64 {
	if r.Found() {
		return 100.0
	}
	return -100/(1-r.Threshold)*(r.MinVal-r.Threshold) + 100
}

// bestResult picks the result with the lowest MinVal. Ties keep the
// earliest result, so the caller's enumeration order decides.
func bestResult(results []MatchResult) MatchResult {
	best := results[0]
	for _, r := range results[1:] {
		if r.MinVal < best.MinVal {
			best = r
		}
	}
	return best
}
