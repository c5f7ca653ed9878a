package matcher

import "errors"

// ErrNotFullHD means the screenshot isn't 1920x1080 and non-fullHD
// input is disallowed. It is raised before any anchor search.
var ErrNotFullHD = errors.New("screenshot is not 1920x1080")

// ErrNotIdentifiable means template matching completed but even the
// best candidate scored above the degenerate bound, so no real match
// exists.
var ErrNotIdentifiable = errors.New("cannot identify unique item")
