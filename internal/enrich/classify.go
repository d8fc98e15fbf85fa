package enrich

import "strings"

// executiveKeywords matches decision-maker titles by substring. "president"
// is handled separately so vice presidents do not qualify.
var executiveKeywords = []string{
	"owner",
	"founder",
	"ceo",
	"admin",
	"director",
	"principal",
	"proprietor",
	"managing director",
}

// IsExecutive reports whether a job title belongs to someone worth spending
// enrichment on.
func IsExecutive(title string) bool {
	t := strings.ToLower(strings.TrimSpace(title))
	if t == "" {
		return false
	}

	if strings.Contains(t, "president") && !strings.Contains(t, "vice") {
		return true
	}
	for _, kw := range executiveKeywords {
		if strings.Contains(t, kw) {
			return true
		}
	}
	return false
}
