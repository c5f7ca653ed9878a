package ocr

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Bases is the catalog membership check needed to resolve a base name.
type Bases interface {
	HasBase(base string) bool
}

// BaseNotFoundError reports that the OCR text, after cleanup and
// fallback heuristics, doesn't match any known catalog base name.
type BaseNotFoundError struct {
	Base string
}

func (e *BaseNotFoundError) Error() string {
	return fmt.Sprintf("item base %q doesn't exist", e.Base)
}

// CleanBaseName cleans the raw label text as received from Tesseract:
// only letters, spaces, newlines and hyphens survive, words shorter
// than 3 characters are dropped, and the known CARNALMITTS misread is
// rewritten.
func CleanBaseName(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsLetter(r) || r == ' ' || r == '\n' || r == '-' {
			b.WriteRune(r)
		}
	}

	var lines []string
	for _, line := range strings.Split(b.String(), "\n") {
		var words []string
		for _, w := range strings.Fields(line) {
			if utf8.RuneCountInString(w) > 2 {
				words = append(words, w)
			}
		}
		if len(words) > 0 {
			lines = append(lines, strings.Join(words, " "))
		}
	}

	base := strings.Join(lines, "\n")

	return strings.ReplaceAll(base, "CARNALMITTS", "CARNAL MITTS")
}

// Title converts a string to title case, word by word.
func Title(s string) string {
	return cases.Title(language.English).String(s)
}

// ResolveBaseName turns raw OCR output into a canonical base name and
// validates it against the catalog.
//
// Identified items show two lines, name above base, so the base is the
// second line. When Tesseract collapses the label into a single line,
// the last 1, 2 and 3 tokens are tested against the catalog in turn; a
// miss on all of them resolves to the literal "undefined". This is a
// best-effort heuristic for OCR noise, not a complete recovery path.
func ResolveBaseName(raw string, identified bool, bases Bases, log zerolog.Logger) (string, error) {
	clean := CleanBaseName(raw)

	var base string
	if identified {
		lines := strings.Split(strings.TrimRight(clean, "\n"), "\n")

		if len(lines) > 1 {
			base = Title(lines[1])
		} else {
			log.Warn().Msg("failed to properly parse identified item name and base")

			base = "undefined"
			tokens := strings.Fields(lines[0])
			for n := 1; n <= 3 && n <= len(tokens); n++ {
				candidate := Title(strings.Join(tokens[len(tokens)-n:], " "))
				if bases.HasBase(candidate) {
					base = candidate
					break
				}
			}
		}
	} else {
		base = Title(strings.ReplaceAll(clean, "\n", " "))
	}

	base = strings.TrimPrefix(base, "Superior ")

	if !bases.HasBase(base) {
		log.Error().Str("base", base).Msg("cannot detect item base")
		return "", &BaseNotFoundError{Base: base}
	}

	log.Info().Str("base", base).Msg("item base")

	return base, nil
}
