// Package slug derives human-typable identifiers from display names and
// validates user-chosen identifiers. Identifiers produced here are
// suggestions the API exposes to clients; they are never applied
// automatically.
package slug

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	validIDPattern = regexp.MustCompile(`^[a-z0-9-]+$`)
	invalidChars   = regexp.MustCompile(`[^a-z0-9\s_-]`)
	separators     = regexp.MustCompile(`[\s_]+`)
	repeatHyphens  = regexp.MustCompile(`-{2,}`)

	stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Generate normalises a display name into an identifier-safe slug:
// lowercase, diacritics stripped, non-alphanumerics removed, whitespace and
// underscores collapsed to single hyphens, edge hyphens trimmed, truncated
// to maxLength when maxLength > 0. Total: any input yields a valid (possibly
// empty) result.
func Generate(text string, maxLength int) string {
	if text == "" {
		return ""
	}

	s := strings.ToLower(strings.TrimSpace(text))
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}
	s = invalidChars.ReplaceAllString(s, "")
	s = separators.ReplaceAllString(s, "-")
	s = repeatHyphens.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if maxLength > 0 && len(s) > maxLength {
		s = strings.TrimRight(s[:maxLength], "-")
	}
	return s
}

// Clean applies the same normalisation as Generate without truncation. It
// sanitises identifiers typed directly by users.
func Clean(id string) string {
	return Generate(id, 0)
}

// IsValid reports whether id is a well-formed identifier.
func IsValid(id string) bool {
	return validIDPattern.MatchString(id)
}

// SuggestUniversityID builds an identifier candidate for a university name.
// Names shaped like "<ACRONYM> ... Facultad/Regional <words>" become
// "<acronym>-<initials>", e.g. "UTN - Facultad Regional Mendoza" yields
// "utn-frm". Anything else falls back to Generate(name, 30). The heuristic
// is intentionally approximate; callers treat it as a suggestion only.
func SuggestUniversityID(name string) string {
	tokens := wordTokens(name)
	if len(tokens) >= 2 && isAcronym(tokens[0]) {
		for i := 1; i < len(tokens); i++ {
			upper := strings.ToUpper(foldMarks(tokens[i]))
			if upper == "FACULTAD" || upper == "REGIONAL" {
				initials := make([]byte, 0, len(tokens)-i)
				for _, tok := range tokens[i:] {
					initial := Generate(string([]rune(tok)[:1]), 0)
					if initial != "" {
						initials = append(initials, initial[0])
					}
				}
				if len(initials) > 0 {
					return strings.ToLower(tokens[0]) + "-" + string(initials)
				}
			}
		}
	}
	return Generate(name, 30)
}

// SuggestCourseID builds a course identifier from its year and name, e.g.
// (2025, "Programación 1") yields "2025-programacion-1". A non-positive year
// omits the prefix.
func SuggestCourseID(year int, name string) string {
	base := Generate(name, 40)
	if year <= 0 {
		return base
	}
	if base == "" {
		return fmt.Sprintf("%d", year)
	}
	return fmt.Sprintf("%d-%s", year, base)
}

func wordTokens(name string) []string {
	fields := strings.FieldsFunc(name, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if hasLetterOrDigit(f) {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func hasLetterOrDigit(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// isAcronym treats a short all-uppercase token as an institution acronym.
func isAcronym(token string) bool {
	runes := []rune(token)
	if len(runes) == 0 || len(runes) > 5 {
		return false
	}
	for _, r := range runes {
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

func foldMarks(s string) string {
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		return folded
	}
	return s
}
