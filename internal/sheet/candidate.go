package sheet

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadsnap/internal/company"
)

type column int

const (
	colIgnore column = iota
	colName
	colIndustry
	colEmail
	colPhone
	colCity
	colState
	colWebsite
)

// classifyHeader recognizes the column names that appear across vendor
// exports and hand-built lists. Unknown headers are carried as colIgnore.
func classifyHeader(h string) column {
	switch strings.ToLower(strings.TrimSpace(h)) {
	case "name", "company", "company name", "business", "business name":
		return colName
	case "industry", "industries":
		return colIndustry
	case "email", "email address", "e-mail":
		return colEmail
	case "phone", "phone number", "telephone":
		return colPhone
	case "city":
		return colCity
	case "state":
		return colState
	case "website", "url", "domain", "web":
		return colWebsite
	default:
		return colIgnore
	}
}

// classifyHeaders maps the header row to candidate fields. At least one
// match-key column (name, email, or phone) must be present, otherwise no row
// could ever resolve.
func classifyHeaders(header []string) ([]column, error) {
	cols := make([]column, len(header))
	usable := false
	for i, h := range header {
		cols[i] = classifyHeader(h)
		switch cols[i] {
		case colName, colEmail, colPhone:
			usable = true
		}
	}
	if !usable {
		return nil, eris.New("sheet: no company name, email, or phone column found")
	}
	return cols, nil
}

// mapRow builds a candidate from one data row. Cells beyond the header width
// are dropped; short rows leave trailing fields empty.
func mapRow(cols []column, row []string) company.Candidate {
	var cand company.Candidate
	for i, col := range cols {
		if i >= len(row) {
			break
		}
		v := strings.TrimSpace(row[i])
		if v == "" {
			continue
		}
		switch col {
		case colName:
			cand.Name = v
		case colIndustry:
			cand.Industries = append(cand.Industries, splitMulti(v)...)
		case colEmail:
			cand.Email = v
		case colPhone:
			cand.Phone = v
		case colCity:
			cand.City = v
		case colState:
			cand.State = v
		case colWebsite:
			cand.Website = normalizeWebsite(v)
		}
	}
	return cand
}

// splitMulti splits a multi-value cell on semicolons and commas.
func splitMulti(v string) []string {
	parts := strings.FieldsFunc(v, func(r rune) bool { return r == ';' || r == ',' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// normalizeWebsite ensures a bare domain carries an https scheme.
func normalizeWebsite(v string) string {
	if strings.Contains(v, "://") {
		return v
	}
	return "https://" + v
}
