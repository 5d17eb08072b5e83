package plate

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
)

// lenientRe finds LETTERS(1,2) DIGITS(1,4) at a token boundary anywhere in cleaned
// text, with the letters that directly follow the digits captured as identifier.
var lenientRe = regexp.MustCompile(`(?:^| )([A-Z]{1,2}) ?([0-9]{1,4})(?: ?([A-Z]{1,3}))?(?: |$)`)

var identifierRe = regexp.MustCompile(`^[A-Z]{1,3}$`)

// Extractor decides whether OCR text encodes a plate. It is immutable and safe
// for concurrent use.
type Extractor struct {
	denylist []string // canonical, longest first
	denyset  map[string]struct{}
}

// NewExtractor returns an extractor that removes the given noise words.
func NewExtractor(denylist []string) *Extractor {
	e := &Extractor{denyset: make(map[string]struct{}, len(denylist))}
	for _, word := range denylist {
		word = strings.ReplaceAll(canonicalize(word), " ", "")
		if word == "" {
			continue
		}
		if _, dup := e.denyset[word]; dup {
			continue
		}
		e.denyset[word] = struct{}{}
		e.denylist = append(e.denylist, word)
	}
	slices.SortFunc(e.denylist, func(a, b string) int {
		return cmp.Or(cmp.Compare(len(b), len(a)), cmp.Compare(a, b))
	})
	return e
}

// Denylist returns the canonical noise words.
func (e *Extractor) Denylist() []string {
	return slices.Clone(e.denylist)
}

// Extract returns the plate encoded in candidate, trying the strict grammar on
// the whole cleaned text before the lenient one.
func (e *Extractor) Extract(candidate string) (Plate, bool) {
	tokens := e.clean(canonicalize(candidate))
	if len(tokens) == 0 {
		return Plate{}, false
	}

	compact := strings.Join(tokens, "")
	if m := strictRe.FindStringSubmatch(compact); m != nil {
		return e.validate(Plate{Region: m[1], Number: m[2], Identifier: m[3]})
	}

	cleaned := strings.Join(tokens, " ")
	loc := lenientRe.FindStringSubmatchIndex(cleaned)
	if loc == nil {
		return Plate{}, false
	}

	p := Plate{Region: cleaned[loc[2]:loc[3]], Number: cleaned[loc[4]:loc[5]]}
	if loc[6] >= 0 {
		p.Identifier = cleaned[loc[6]:loc[7]]
	} else {
		p.Identifier = e.trailingIdentifier(cleaned[loc[1]:])
	}
	p.Partial = p.Identifier == ""

	return e.validate(p)
}

// clean drops denylisted tokens and trims denylisted words glued to the front or
// back of a token.
func (e *Extractor) clean(text string) []string {
	fields := strings.Fields(text)
	tokens := fields[:0]
	for _, tok := range fields {
		if tok = e.trim(tok); tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

func (e *Extractor) trim(tok string) string {
	for {
		if _, denied := e.denyset[tok]; denied {
			return ""
		}
		trimmed := tok
		for _, word := range e.denylist {
			if len(word) >= len(trimmed) {
				continue
			}
			if rest, ok := strings.CutPrefix(trimmed, word); ok {
				trimmed = rest
				break
			}
			if rest, ok := strings.CutSuffix(trimmed, word); ok {
				trimmed = rest
				break
			}
		}
		if trimmed == tok {
			return tok
		}
		tok = trimmed
	}
}

// trailingIdentifier returns the first standalone 1-3 letter token in rest that
// is not a noise word.
func (e *Extractor) trailingIdentifier(rest string) string {
	for _, tok := range strings.Fields(rest) {
		if !identifierRe.MatchString(tok) {
			continue
		}
		if _, denied := e.denyset[tok]; denied {
			continue
		}
		return tok
	}
	return ""
}

// validate rejects plates whose text still contains a noise word.
func (e *Extractor) validate(p Plate) (Plate, bool) {
	compact := p.Compact()
	for _, word := range e.denylist {
		if strings.Contains(compact, word) {
			return Plate{}, false
		}
	}
	return p, true
}
