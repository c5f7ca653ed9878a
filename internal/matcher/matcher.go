// Package matcher implements the unique item identification pipeline:
// anchor detection, icon and label cropping, OCR base-name resolution
// and correlation-based template matching.
package matcher

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"unique-matcher/internal/anchor"
	"unique-matcher/internal/catalog"
	"unique-matcher/internal/imgutil"
	"unique-matcher/internal/ocr"
	"unique-matcher/internal/shade"
)

// degenerateMinVal is the score above which even the best result means
// no correlation at all.
const degenerateMinVal = 0.99

// Extra label crop padding. Without the margin Tesseract fails to read
// anything at all.
const (
	labelPadX      = 24
	labelPadTop    = 4
	labelPadBottom = 10
)

// TextReader turns a label image into raw text. *ocr.Engine satisfies
// it; tests substitute fakes.
type TextReader interface {
	Text(img image.Image) (string, error)
}

// Generator renders an item icon composited with the given number of
// socket overlays. The on-screen appearance of a socketable item
// depends on its socket count, so one template per count is scored.
type Generator interface {
	Generate(icon image.Image, item catalog.Item, sockets int) (image.Image, error)
}

// Matcher finds a unique item in a screenshot. It holds only read-only
// state after construction; callers wanting parallelism must run one
// Matcher per screenshot.
type Matcher struct {
	cfg       Config
	catalog   catalog.Catalog
	generator Generator
	reader    TextReader
	templates *anchor.Templates
	locator   *anchor.Locator
	cropper   *shade.Cropper
	log       zerolog.Logger
}

// New creates a Matcher. The anchor templates stay owned by the
// caller, which must keep them alive for the Matcher's lifetime.
func New(
	cfg Config,
	cat catalog.Catalog,
	gen Generator,
	reader TextReader,
	templates *anchor.Templates,
	log zerolog.Logger,
) *Matcher {
	return &Matcher{
		cfg:       cfg,
		catalog:   cat,
		generator: gen,
		reader:    reader,
		templates: templates,
		locator:   anchor.NewLocator(templates, cfg.ThresholdControl, log),
		cropper:   shade.NewCropper(log),
		log:       log,
	}
}

// FindUnique locates the unique item overlay in a screenshot and
// returns the cropped item icon together with the OCR-resolved base
// name.
func (m *Matcher) FindUnique(screenshot string) (image.Image, string, error) {
	source, err := imgutil.LoadImage(screenshot)
	if err != nil {
		return nil, "", err
	}

	bounds := source.Bounds()
	if bounds.Dx() != FullHDWidth || bounds.Dy() != FullHDHeight {
		m.log.Warn().
			Int("width", bounds.Dx()).
			Int("height", bounds.Dy()).
			Msg("screenshot is not 1920x1080px, accuracy will be impacted")

		if !m.cfg.AllowNonFullHD {
			m.log.Error().Msg("non-fullHD input is disallowed, aborting")
			return nil, "", fmt.Errorf("%w: got %dx%d", ErrNotFullHD, bounds.Dx(), bounds.Dy())
		}
	}

	screen, offset, err := m.loadScreen(source)
	if err != nil {
		return nil, "", err
	}
	defer screen.Close()

	start, identified, err := m.locator.FindStart(screen)
	if err != nil {
		return nil, "", err
	}
	start = start.Add(offset)

	end, err := m.locator.FindEnd(screen, identified)
	if err != nil {
		return nil, "", err
	}
	end = end.Add(offset)

	// The item icon sits directly left of the start control point.
	var itemImg image.Image = imaging.Crop(source, image.Rect(
		start.X-m.cfg.ItemMaxWidth,
		start.Y,
		start.X,
		start.Y+m.cfg.ItemMaxHeight,
	))
	sizeOrig := itemImg.Bounds().Size()

	m.log.Debug().
		Int("width", sizeOrig.X).
		Int("height", sizeOrig.Y).
		Msg("unique item area")

	if m.cfg.CropShade {
		m.log.Debug().Msg("crop_shade is enabled")
		itemImg = m.cropper.Crop(itemImg)

		size := itemImg.Bounds().Size()
		m.log.Debug().
			Int("width", size.X).
			Int("height", size.Y).
			Msg("unique item area after shade crop")

		if size == sizeOrig {
			m.log.Error().Msg("shade crop left the item area at its original size")
		}
	}

	// The label spans from start to end control point; the control
	// template's own dimensions size the crop.
	ctrl := m.templates.StartSize(identified)
	titleImg := imaging.Crop(source, image.Rect(
		start.X+ctrl.X-labelPadX,
		start.Y-labelPadTop,
		end.X+labelPadX,
		end.Y+ctrl.Y+labelPadBottom,
	))

	raw, err := m.reader.Text(titleImg)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read item label: %w", err)
	}

	base, err := ocr.ResolveBaseName(raw, identified, m.catalog, m.log)
	if err != nil {
		return nil, "", err
	}

	return itemImg, base, nil
}

// FindItem runs the full pipeline: FindUnique, then template matching
// across every catalog item sharing the resolved base, and returns the
// best result.
func (m *Matcher) FindItem(screenshot string) (MatchResult, error) {
	m.log.Info().Str("screenshot", screenshot).Msg("finding item in screenshot")

	img, base, err := m.FindUnique(screenshot)
	if err != nil {
		return MatchResult{}, err
	}

	screenCrop, err := imgutil.ToGrayMat(img)
	if err != nil {
		return MatchResult{}, err
	}
	defer screenCrop.Close()

	items := m.catalog.Filter(base)
	m.log.Info().Int("count", len(items)).Str("base", base).
		Msg("searching through item base variants")

	results := make([]MatchResult, 0, len(items))
	for _, item := range items {
		result, err := m.CheckOne(screenCrop, item)
		if err != nil {
			return MatchResult{}, err
		}
		results = append(results, result)
	}

	if len(results) == 0 {
		return MatchResult{}, fmt.Errorf("%w: no candidates for base %q", ErrNotIdentifiable, base)
	}

	best := bestResult(results)
	if best.MinVal > degenerateMinVal {
		m.log.Error().Float64("min_val", best.MinVal).
			Msg("couldn't identify a unique item, even the best result is a non-match")
		return MatchResult{}, fmt.Errorf("%w: best min_val %.3f", ErrNotIdentifiable, best.MinVal)
	}

	return best, nil
}

// CheckOne scores one item against the cropped screenshot region. When
// the item's base maps to a single catalog entry, the base name alone
// disambiguates it and a synthetic perfect result is returned without
// scoring any template.
func (m *Matcher) CheckOne(screen gocv.Mat, item catalog.Item) (MatchResult, error) {
	possible := m.catalog.Filter(item.Base)
	if len(possible) == 1 {
		m.log.Info().Str("base", item.Base).Msg("only one possible unique for base")
		return MatchResult{Item: item, MinVal: 0, Threshold: m.cfg.Threshold}, nil
	}

	variants, err := m.itemVariants(item)
	if err != nil {
		return MatchResult{}, err
	}

	m.log.Info().Str("item", item.Name).Int("variants", len(variants)).
		Msg("matching item variants")

	results := make([]MatchResult, 0, len(variants))
	for i := range variants {
		template := &variants[i]

		gray, err := imgutil.ToGrayMat(template.Image)
		if err != nil {
			return MatchResult{}, err
		}

		score, err := imgutil.BestMatch(screen, gray)
		gray.Close()
		if err != nil {
			return MatchResult{}, fmt.Errorf("matching %s: %w", item.Name, err)
		}

		result := MatchResult{
			Item:      item,
			Loc:       score.MinLoc,
			MinVal:    score.MinVal,
			Template:  template,
			Threshold: m.cfg.Threshold,
		}

		if m.cfg.EarlyFound && result.Found() {
			// Socket count is cosmetic once the base item is
			// confirmed, so the remaining variants can be skipped.
			m.log.Info().
				Str("item", item.Name).
				Int("sockets", template.Sockets).
				Float64("min_val", result.MinVal).
				Msg("found item early")
			return result, nil
		}

		results = append(results, result)
	}

	return bestResult(results), nil
}

// itemVariants enumerates the socket variants of an item: the plain
// thumbnailed icon for unsocketable items, otherwise one generated
// composite per socket count from the maximum down to 1.
func (m *Matcher) itemVariants(item catalog.Item) ([]ItemTemplate, error) {
	icon, err := imgutil.LoadImage(item.Icon)
	if err != nil {
		return nil, fmt.Errorf("failed to load icon for %s: %w", item.Name, err)
	}

	if item.Sockets == 0 {
		thumb := imgutil.Thumbnail(icon, m.cfg.ItemMaxWidth, m.cfg.ItemMaxHeight)
		return []ItemTemplate{{
			Image:    thumb,
			Sockets:  0,
			Fraction: 100,
			Size:     thumb.Bounds().Size(),
		}}, nil
	}

	variants := make([]ItemTemplate, 0, item.Sockets)
	for sockets := item.Sockets; sockets > 0; sockets-- {
		img, err := m.generator.Generate(icon, item, sockets)
		if err != nil {
			return nil, fmt.Errorf(
				"failed to generate %d-socket variant of %s: %w", sockets, item.Name, err)
		}
		variants = append(variants, ItemTemplate{
			Image:    img,
			Sockets:  sockets,
			Fraction: 100,
			Size:     img.Bounds().Size(),
		})
	}

	return variants, nil
}

// loadScreen converts the decoded screenshot into the grayscale search
// buffer. With CropScreen enabled only the right half of the frame is
// searched; the returned offset translates anchor locations back into
// full-frame coordinates.
func (m *Matcher) loadScreen(source image.Image) (gocv.Mat, image.Point, error) {
	screen, err := imgutil.ToGrayMat(source)
	if err != nil {
		return gocv.Mat{}, image.Point{}, err
	}

	if !m.cfg.CropScreen {
		return screen, image.Point{}, nil
	}

	m.log.Debug().Msg("crop_screen is enabled")

	half := FullHDWidth / 2
	if screen.Cols() <= half {
		return screen, image.Point{}, nil
	}

	region := screen.Region(image.Rect(half, 0, screen.Cols(), screen.Rows()))
	cropped := region.Clone()
	region.Close()
	screen.Close()

	return cropped, image.Pt(half, 0), nil
}
