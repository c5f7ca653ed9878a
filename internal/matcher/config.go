package matcher

import (
	"fmt"

	"gopkg.in/ini.v1"
)

// Expected screenshot resolution. The anchor assets are fixed
// resolution, so matching other resolutions degrades badly.
const (
	FullHDWidth  = 1920
	FullHDHeight = 1080
)

// Config holds every tunable of the matching pipeline. One value is
// built at startup and passed into New; nothing reads process-wide
// state.
type Config struct {
	// Threshold is the found cutoff for a template match score.
	Threshold float64
	// ThresholdControl gates the anchor control point searches.
	ThresholdControl float64
	// ThresholdControlStrict is a stricter anchor gate, reserved and
	// unused in the main path.
	ThresholdControlStrict float64

	// ItemMaxWidth and ItemMaxHeight bound the item icon crop and the
	// zero-socket thumbnail.
	ItemMaxWidth  int
	ItemMaxHeight int

	// AllowNonFullHD accepts screenshots that aren't 1920x1080.
	AllowNonFullHD bool
	// CropScreen restricts the anchor search to the right half of the
	// frame.
	CropScreen bool
	// CropShade trims the background shade around the item icon.
	CropShade bool
	// EarlyFound returns as soon as any variant satisfies Threshold
	// instead of scoring every variant.
	EarlyFound bool
}

// DefaultConfig returns the tuned defaults for 1920x1080 screenshots.
func DefaultConfig() Config {
	return Config{
		Threshold:              0.3,
		ThresholdControl:       0.20,
		ThresholdControlStrict: 0.1,
		ItemMaxWidth:           100,
		ItemMaxHeight:          200,
		AllowNonFullHD:         false,
		CropScreen:             false,
		CropShade:              true,
		EarlyFound:             true,
	}
}

// LoadConfig reads a Config from an ini file's [matcher] section.
// Missing keys fall back to DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to load config file: %w", err)
	}

	def := DefaultConfig()
	section := file.Section("matcher")

	return Config{
		Threshold:              section.Key("threshold").MustFloat64(def.Threshold),
		ThresholdControl:       section.Key("threshold_control").MustFloat64(def.ThresholdControl),
		ThresholdControlStrict: section.Key("threshold_control_strict").MustFloat64(def.ThresholdControlStrict),
		ItemMaxWidth:           section.Key("item_max_width").MustInt(def.ItemMaxWidth),
		ItemMaxHeight:          section.Key("item_max_height").MustInt(def.ItemMaxHeight),
		AllowNonFullHD:         section.Key("allow_non_fullhd").MustBool(def.AllowNonFullHD),
		CropScreen:             section.Key("crop_screen").MustBool(def.CropScreen),
		CropShade:              section.Key("crop_shade").MustBool(def.CropShade),
		EarlyFound:             section.Key("early_found").MustBool(def.EarlyFound),
	}, nil
}
