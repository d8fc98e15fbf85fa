package company

import "strings"

// Merge folds a candidate into an existing company in place. Set fields
// grow by union with sighting order preserved; scalar fields fill only when
// currently empty, so earlier data is never overwritten. Returns true when
// anything changed.
func Merge(c *Company, cand Candidate) bool {
	changed := false

	if e := NormalizeEmail(cand.Email); e != "" && appendUnique(&c.Emails, e) {
		changed = true
	}
	if p := NormalizePhone(cand.Phone); p != "" && appendUnique(&c.Phones, p) {
		changed = true
	}
	for _, raw := range cand.Industries {
		if v := strings.TrimSpace(raw); v != "" && appendUnique(&c.Industries, v) {
			changed = true
		}
	}

	if fillEmpty(&c.City, cand.City) {
		changed = true
	}
	if fillEmpty(&c.State, cand.State) {
		changed = true
	}
	if fillEmpty(&c.Website, cand.Website) {
		changed = true
	}
	return changed
}

func appendUnique(set *[]string, v string) bool {
	for _, have := range *set {
		if have == v {
			return false
		}
	}
	*set = append(*set, v)
	return true
}

func fillEmpty(dst *string, v string) bool {
	v = strings.TrimSpace(v)
	if *dst != "" || v == "" {
		return false
	}
	*dst = v
	return true
}
