package zoominfo

import (
	"context"
)

// SearchCompanyInput is the filter set for a company search. Zero-valued
// fields are omitted, so the progressive cascade can loosen a search by
// clearing fields between attempts.
type SearchCompanyInput struct {
	CompanyName      string `json:"companyName,omitempty"`
	State            string `json:"state,omitempty"`
	Website          string `json:"companyWebsite,omitempty"`
	IndustryKeywords string `json:"industryKeywords,omitempty"`
}

// CompanyResult is a company search hit.
type CompanyResult struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ContactResult is a contact search hit. Title classification and
// enrichment happen downstream.
type ContactResult struct {
	ID         int64  `json:"id"`
	FirstName  string `json:"firstName"`
	MiddleName string `json:"middleName"`
	LastName   string `json:"lastName"`
	JobTitle   string `json:"jobTitle"`
}

// searchEnvelope is the vendor's paged search response wrapper.
type searchEnvelope[T any] struct {
	MaxResults   int `json:"maxResults"`
	TotalResults int `json:"totalResults"`
	CurrentPage  int `json:"currentPage"`
	Data         []T `json:"data"`
}

type contactSearchRequest struct {
	CompanyID int64 `json:"companyId"`
}

// SearchCompany finds companies matching the input filters. An empty result
// set returns ErrNotFound so callers can distinguish "vendor has no record"
// from vendor failures.
func (c *httpClient) SearchCompany(ctx context.Context, in SearchCompanyInput) ([]CompanyResult, error) {
	var resp searchEnvelope[CompanyResult]
	if err := c.post(ctx, "/search/company", in, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, ErrNotFound
	}
	return resp.Data, nil
}

// SearchContacts lists the people the vendor associates with a company.
// An empty slice is a valid answer.
func (c *httpClient) SearchContacts(ctx context.Context, companyID int64) ([]ContactResult, error) {
	var resp searchEnvelope[ContactResult]
	if err := c.post(ctx, "/search/contact", contactSearchRequest{CompanyID: companyID}, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
