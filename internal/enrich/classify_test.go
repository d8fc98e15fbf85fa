package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsExecutive(t *testing.T) {
	executive := []string{
		"Owner",
		"Co-Owner",
		"Founder & CEO",
		"CEO",
		"President",
		"Office Admin",
		"Administrator",
		"Director of Operations",
		"Managing Director",
		"Principal",
		"Proprietor",
	}
	for _, title := range executive {
		assert.True(t, IsExecutive(title), "expected executive: %q", title)
	}

	nonExecutive := []string{
		"",
		"Vice President",
		"Vice President of Sales",
		"Sales Associate",
		"Technician",
		"Service Manager",
		"Dispatcher",
		"Apprentice Plumber",
		"Accountant",
	}
	for _, title := range nonExecutive {
		assert.False(t, IsExecutive(title), "expected non-executive: %q", title)
	}
}

func TestIsExecutive_CaseInsensitive(t *testing.T) {
	assert.True(t, IsExecutive("OWNER/OPERATOR"))
	assert.True(t, IsExecutive("president"))
	assert.False(t, IsExecutive("VICE PRESIDENT"))
}
