package helpers

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/search"
)

// HighlightSegment is a run of text, marked when it matched the search term.
type HighlightSegment struct {
	Text  string
	Match bool
}

// HighlightSegments cuts text around every occurrence of term. Matching
// ignores case and accents, so "sao" marks "São".
func HighlightSegments(text, term string) []HighlightSegment {
	if text == "" {
		return nil
	}
	term = strings.TrimSpace(term)
	if term == "" {
		return []HighlightSegment{{Text: text}}
	}

	pattern := search.New(language.BrazilianPortuguese, search.Loose).CompileString(term)

	var segments []HighlightSegment
	rest := text
	for rest != "" {
		start, end := pattern.IndexString(rest)
		if start < 0 || end <= start {
			break
		}
		if start > 0 {
			segments = append(segments, HighlightSegment{Text: rest[:start]})
		}
		segments = append(segments, HighlightSegment{Text: rest[start:end], Match: true})
		rest = rest[end:]
	}
	if rest != "" {
		segments = append(segments, HighlightSegment{Text: rest})
	}
	return segments
}
