// Package plate turns OCR text into canonical license plates.
//
// A plate is REGION NUMBERS [IDENTIFIER]: one or two letters, one to four
// digits, and up to three letters, rendered with single spaces ("B 7366 JE").
package plate

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Plate is a parsed license plate. Partial plates carry no identifier.
type Plate struct {
	Region     string
	Number     string
	Identifier string
	Partial    bool
}

// String renders the canonical form.
func (p Plate) String() string {
	if p.Identifier == "" {
		return p.Region + " " + p.Number
	}
	return p.Region + " " + p.Number + " " + p.Identifier
}

// Compact renders the plate without separators.
func (p Plate) Compact() string {
	return p.Region + p.Number + p.Identifier
}

// IsZero reports whether p is the zero Plate.
func (p Plate) IsZero() bool {
	return p.Region == "" && p.Number == ""
}

var (
	strictRe  = regexp.MustCompile(`^([A-Z]{1,2})([0-9]{1,4})([A-Z]{1,3})$`)
	partialRe = regexp.MustCompile(`^([A-Z]{1,2})([0-9]{1,4})$`)

	upper = cases.Upper(language.Und)
)

// homoglyphs maps Cyrillic and Greek capitals that OCR and hand-typed catalog
// entries confuse with Latin plate letters.
var homoglyphs = strings.NewReplacer(
	"А", "A", "В", "B", "Е", "E", "К", "K", "М", "M", "Н", "H", "О", "O",
	"Р", "P", "С", "C", "Т", "T", "Х", "X", "У", "Y", "І", "I", "Ј", "J", "Ѕ", "S",
	"Α", "A", "Β", "B", "Ε", "E", "Ζ", "Z", "Η", "H", "Ι", "I", "Κ", "K",
	"Μ", "M", "Ν", "N", "Ο", "O", "Ρ", "P", "Τ", "T", "Υ", "Y", "Χ", "X",
)

// canonicalize folds width and compatibility forms, maps homoglyphs, uppercases
// and replaces every rune outside [A-Z0-9] by a single space.
func canonicalize(s string) string {
	s = norm.NFKC.String(width.Fold.String(s))
	s = homoglyphs.Replace(upper.String(s))

	var b strings.Builder
	b.Grow(len(s))
	space := true
	for _, r := range s {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

// parseCompact splits separator-free text into a plate.
func parseCompact(compact string) (Plate, bool) {
	if m := strictRe.FindStringSubmatch(compact); m != nil {
		return Plate{Region: m[1], Number: m[2], Identifier: m[3]}, true
	}
	if m := partialRe.FindStringSubmatch(compact); m != nil {
		return Plate{Region: m[1], Number: m[2], Partial: true}, true
	}
	return Plate{}, false
}

// Parse reads typed or catalog text as a whole plate, ignoring case, spacing
// and punctuation. Partial plates are accepted and flagged.
func Parse(s string) (Plate, bool) {
	return parseCompact(strings.ReplaceAll(canonicalize(s), " ", ""))
}

// Normalize returns the canonical catalog key for s. Text that is not a plate
// comes back uppercased with punctuation and spacing collapsed.
func Normalize(s string) string {
	if p, ok := Parse(s); ok {
		return p.String()
	}
	return canonicalize(s)
}
