package zoominfo

import (
	"context"
)

// DefaultOutputFields is the field set the enrichment worker requests for
// each matched person.
var DefaultOutputFields = []string{
	"id",
	"firstName",
	"middleName",
	"lastName",
	"jobTitle",
	"email",
	"phone",
	"mobilePhone",
	"company.id",
	"company.name",
	"company.revenueNumeric",
	"company.sicCodes",
	"company.naicsCodes",
}

// IndustryCode pairs a SIC or NAICS code with its label.
type IndustryCode struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// EnrichedCompany is the employer block attached to an enriched contact.
type EnrichedCompany struct {
	ID         int64          `json:"id"`
	Name       string         `json:"name"`
	Revenue    float64        `json:"revenueNumeric"`
	SICCodes   []IndustryCode `json:"sicCodes"`
	NAICSCodes []IndustryCode `json:"naicsCodes"`
}

// EnrichedContact is a full person record from the enrich endpoint.
type EnrichedContact struct {
	ID          int64           `json:"id"`
	FirstName   string          `json:"firstName"`
	MiddleName  string          `json:"middleName"`
	LastName    string          `json:"lastName"`
	JobTitle    string          `json:"jobTitle"`
	Email       string          `json:"email"`
	Phone       string          `json:"phone"`
	MobilePhone string          `json:"mobilePhone"`
	Company     EnrichedCompany `json:"company"`
}

type matchPersonInput struct {
	PersonID int64 `json:"personId"`
}

type enrichContactRequest struct {
	MatchPersonInput []matchPersonInput `json:"matchPersonInput"`
	OutputFields     []string           `json:"outputFields,omitempty"`
}

type enrichContactResult struct {
	MatchStatus string            `json:"matchStatus"`
	Data        []EnrichedContact `json:"data"`
}

type enrichContactResponse struct {
	Success bool `json:"success"`
	Data    struct {
		OutputFields []string              `json:"outputFields"`
		Result       []enrichContactResult `json:"result"`
	} `json:"data"`
}

// EnrichContacts fetches full person records for the given vendor person ids.
// Unmatched ids are dropped from the result, so the output may be shorter
// than the input.
func (c *httpClient) EnrichContacts(ctx context.Context, personIDs []int64, outputFields []string) ([]EnrichedContact, error) {
	if len(personIDs) == 0 {
		return nil, nil
	}
	if len(outputFields) == 0 {
		outputFields = DefaultOutputFields
	}

	req := enrichContactRequest{
		MatchPersonInput: make([]matchPersonInput, len(personIDs)),
		OutputFields:     outputFields,
	}
	for i, id := range personIDs {
		req.MatchPersonInput[i] = matchPersonInput{PersonID: id}
	}

	var resp enrichContactResponse
	if err := c.post(ctx, "/enrich/contact", req, &resp); err != nil {
		return nil, err
	}

	var contacts []EnrichedContact
	for _, r := range resp.Data.Result {
		contacts = append(contacts, r.Data...)
	}
	return contacts, nil
}
