package company

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// legalSuffixes matches trailing legal entity forms (LLC, Inc, Corp, ...)
// including the comma/period variants OCR tends to produce. The suffix must
// follow whitespace or a comma so names like "Newco" survive intact.
var legalSuffixes = regexp.MustCompile(
	`(?i)[\s,]+(llc|l\.?l\.?c\.?|inc\.?|incorporated|corp\.?|corporation|` +
		`co\.?|company|ltd\.?|limited|l\.?p\.?|llp|l\.?l\.?p\.?|` +
		`pllc|p\.?l\.?l\.?c\.?|p\.?c\.?|dba|d/b/a)\s*\.?\s*$`)

var multiSpace = regexp.MustCompile(`\s{2,}`)

// accentFold decomposes accented runes and drops the combining marks, so
// "Café" and "Cafe" normalize to the same key.
var accentFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName standardizes a company name for duplicate matching:
// lowercase, accents folded, punctuation simplified, legal suffix stripped,
// whitespace collapsed.
func NormalizeName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return ""
	}
	if folded, _, err := transform.String(accentFold, n); err == nil {
		n = folded
	}
	n = legalSuffixes.ReplaceAllString(n, "")
	n = strings.NewReplacer(
		",", "",
		".", "",
		"'", "",
		`"`, "",
		"&", " and ",
		"-", " ",
	).Replace(n)
	n = multiSpace.ReplaceAllString(n, " ")
	return strings.TrimSpace(n)
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone keeps only the digits, so "(503) 555-0100" and
// "503.555.0100" compare equal.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
