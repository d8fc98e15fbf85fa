package company

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName_Empty(t *testing.T) {
	assert.Equal(t, "", NormalizeName(""))
	assert.Equal(t, "", NormalizeName("   "))
}

func TestNormalizeName_Lowercase(t *testing.T) {
	assert.Equal(t, "acme plumbing", NormalizeName("ACME Plumbing"))
	assert.Equal(t, "acme plumbing", NormalizeName("Acme Plumbing"))
}

func TestNormalizeName_StripLLC(t *testing.T) {
	assert.Equal(t, "acme plumbing", NormalizeName("Acme Plumbing LLC"))
	assert.Equal(t, "acme plumbing", NormalizeName("Acme Plumbing L.L.C."))
	assert.Equal(t, "acme plumbing", NormalizeName("Acme Plumbing, LLC"))
}

func TestNormalizeName_StripInc(t *testing.T) {
	assert.Equal(t, "acme plumbing", NormalizeName("Acme Plumbing Inc"))
	assert.Equal(t, "acme plumbing", NormalizeName("Acme Plumbing, Inc."))
	assert.Equal(t, "acme plumbing", NormalizeName("Acme Plumbing Incorporated"))
}

func TestNormalizeName_StripCorp(t *testing.T) {
	assert.Equal(t, "acme plumbing", NormalizeName("Acme Plumbing Corp"))
	assert.Equal(t, "acme plumbing", NormalizeName("Acme Plumbing Corporation"))
}

func TestNormalizeName_StripCompany(t *testing.T) {
	assert.Equal(t, "acme plumbing", NormalizeName("Acme Plumbing Co."))
	assert.Equal(t, "acme plumbing", NormalizeName("Acme Plumbing Company"))
}

func TestNormalizeName_SuffixNeedsSeparator(t *testing.T) {
	// "Newco" ends in "co" but carries no separator, so nothing strips.
	assert.Equal(t, "newco", NormalizeName("Newco"))
	assert.Equal(t, "llc", NormalizeName("LLC"))
}

func TestNormalizeName_Punctuation(t *testing.T) {
	assert.Equal(t, "smith and jones", NormalizeName("Smith & Jones"))
	assert.Equal(t, "joes towing", NormalizeName("Joe's Towing"))
}

func TestNormalizeName_DashToSpace(t *testing.T) {
	assert.Equal(t, "tri state hauling", NormalizeName("Tri-State Hauling"))
}

func TestNormalizeName_CollapseSpaces(t *testing.T) {
	assert.Equal(t, "acme plumbing", NormalizeName("  Acme   Plumbing  "))
}

func TestNormalizeName_FoldsAccents(t *testing.T) {
	assert.Equal(t, "cafe verde landscaping", NormalizeName("Café Verde Landscaping"))
}

func TestNormalizeName_Combined(t *testing.T) {
	assert.Equal(t, "raymond james and associates", NormalizeName("Raymond James & Associates, Inc."))
}

func TestNormalizeName_Idempotent(t *testing.T) {
	for _, name := range []string{"ACME Plumbing, LLC", "Smith & Jones", "Café Verde"} {
		once := NormalizeName(name)
		assert.Equal(t, once, NormalizeName(once), "re-normalizing %q changed the key", name)
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "info@acme.com", NormalizeEmail("  INFO@Acme.com "))
	assert.Equal(t, "", NormalizeEmail("   "))
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "5035550100", NormalizePhone("(503) 555-0100"))
	assert.Equal(t, "5035550100", NormalizePhone("503.555.0100"))
	assert.Equal(t, "15035550100", NormalizePhone("+1 503 555 0100"))
	assert.Equal(t, "", NormalizePhone("n/a"))
}
