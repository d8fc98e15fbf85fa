package salesforce

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// Account is the slice of the Salesforce Account record the sync reads.
type Account struct {
	ID   string `json:"Id" salesforce:"Id"`
	Name string `json:"Name" salesforce:"Name"`
}

// ContactedAccountNames returns the names of CRM accounts, optionally
// restricted to those created at or after since. An account existing in
// Salesforce means the sales team owns the relationship, so the matching
// pipeline company freezes at sent.
func ContactedAccountNames(ctx context.Context, c Client, since time.Time) ([]string, error) {
	soql := "SELECT Id, Name FROM Account"
	if !since.IsZero() {
		// SOQL datetime literals are unquoted.
		soql += " WHERE CreatedDate >= " + since.UTC().Format("2006-01-02T15:04:05Z")
	}

	var accounts []Account
	if err := c.Query(ctx, soql, &accounts); err != nil {
		return nil, eris.Wrap(err, "sf: query accounts")
	}

	names := make([]string, 0, len(accounts))
	for _, a := range accounts {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return names, nil
}
