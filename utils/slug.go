package utils

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// GenerateSlug lowercases name, folds accents and joins the remaining
// alphanumeric runs with hyphens.
func GenerateSlug(name string) string {
	t := norm.NFD.String(name)
	var b strings.Builder
	for _, r := range t {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}

	s := strings.ToLower(b.String())
	s = nonSlugChars.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// SchemeSlug salts the name slug with the creation time so two schemes with
// the same name still get distinct links.
func SchemeSlug(name string, created time.Time) string {
	return GenerateSlug(name) + "-" + strconv.FormatInt(created.UnixNano(), 36)
}
