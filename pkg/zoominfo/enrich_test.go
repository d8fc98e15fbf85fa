package zoominfo

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrichContacts(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/enrich/contact", r.URL.Path)

		var req enrichContactRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.MatchPersonInput, 2)
		assert.Equal(t, int64(9001), req.MatchPersonInput[0].PersonID)
		assert.Equal(t, int64(9002), req.MatchPersonInput[1].PersonID)
		assert.Equal(t, DefaultOutputFields, req.OutputFields)

		_, _ = w.Write([]byte(`{
			"success": true,
			"data": {
				"outputFields": ["id", "firstName"],
				"result": [
					{
						"matchStatus": "FULL_MATCH",
						"data": [{
							"id": 9001,
							"firstName": "Dana",
							"lastName": "Whitfield",
							"jobTitle": "Owner",
							"email": "dana@bobsplumbing.com",
							"phone": "(503) 555-0100",
							"mobilePhone": "",
							"company": {
								"id": 346572700,
								"name": "Bob's Plumbing LLC",
								"revenueNumeric": 4500000,
								"sicCodes": [{"id": "1711", "name": "Plumbing, Heating and Air-Conditioning"}],
								"naicsCodes": [
									{"id": "23", "name": "Construction"},
									{"id": "238220", "name": "Plumbing, Heating, and Air-Conditioning Contractors"}
								]
							}
						}]
					},
					{
						"matchStatus": "NO_MATCH",
						"data": []
					}
				]
			}
		}`))
	})

	contacts, err := client.EnrichContacts(context.Background(), []int64{9001, 9002}, nil)
	require.NoError(t, err)
	require.Len(t, contacts, 1, "unmatched ids drop out of the result")

	c := contacts[0]
	assert.Equal(t, int64(9001), c.ID)
	assert.Equal(t, "dana@bobsplumbing.com", c.Email)
	assert.Equal(t, "(503) 555-0100", c.Phone)
	assert.InDelta(t, 4_500_000, c.Company.Revenue, 0.1)
	require.Len(t, c.Company.NAICSCodes, 2)
	assert.Equal(t, "238220", c.Company.NAICSCodes[1].ID)
	assert.Equal(t, "Plumbing, Heating, and Air-Conditioning Contractors", c.Company.NAICSCodes[1].Name)
}

func TestEnrichContacts_CustomOutputFields(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req enrichContactRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"id", "email"}, req.OutputFields)

		_, _ = w.Write([]byte(`{"success":true,"data":{"result":[]}}`))
	})

	_, err := client.EnrichContacts(context.Background(), []int64{1}, []string{"id", "email"})
	require.NoError(t, err)
}

func TestEnrichContacts_NoIDsSkipsCall(t *testing.T) {
	client, _ := newTestClient(t, func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("no HTTP call expected for an empty id list")
	})

	contacts, err := client.EnrichContacts(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Nil(t, contacts)
}

func TestEnrichContacts_VendorError(t *testing.T) {
	fastBackoff(t)

	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"too many person ids"}`))
	})

	_, err := client.EnrichContacts(context.Background(), []int64{1, 2, 3}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many person ids")
}
