package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sfpkg "github.com/sells-group/leadsnap/pkg/salesforce"
)

type fakeSF struct {
	soql     string
	accounts []sfpkg.Account
	err      error
}

func (f *fakeSF) Query(_ context.Context, soql string, out any) error {
	f.soql = soql
	if f.err != nil {
		return f.err
	}
	*(out.(*[]sfpkg.Account)) = f.accounts
	return nil
}

type fakeMarker struct {
	names  []string
	marked int64
	err    error
}

func (f *fakeMarker) MarkSentByNormalizedNames(_ context.Context, names []string) (int64, error) {
	f.names = names
	return f.marked, f.err
}

func TestRunCRMSync_NormalizesAccountNames(t *testing.T) {
	sf := &fakeSF{accounts: []sfpkg.Account{
		{ID: "001a", Name: "Acme Towing, LLC"},
		{ID: "001b", Name: "Bayside Hauling Inc."},
	}}
	marker := &fakeMarker{marked: 2}

	found, marked, err := runCRMSync(context.Background(), sf, marker, time.Time{})
	require.NoError(t, err)

	assert.Equal(t, 2, found)
	assert.Equal(t, int64(2), marked)
	assert.Equal(t, []string{"acme towing", "bayside hauling"}, marker.names)
}

func TestRunCRMSync_SincePropagates(t *testing.T) {
	sf := &fakeSF{}
	marker := &fakeMarker{}

	since := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	_, _, err := runCRMSync(context.Background(), sf, marker, since)
	require.NoError(t, err)
	assert.Contains(t, sf.soql, "CreatedDate >= 2026-06-01T00:00:00Z")
}

func TestRunCRMSync_QueryFailure(t *testing.T) {
	sf := &fakeSF{err: errors.New("expired token")}
	marker := &fakeMarker{}

	_, _, err := runCRMSync(context.Background(), sf, marker, time.Time{})
	require.Error(t, err)
	assert.Nil(t, marker.names)
}

func TestRunCRMSync_MarkFailure(t *testing.T) {
	sf := &fakeSF{accounts: []sfpkg.Account{{ID: "001a", Name: "Acme Towing"}}}
	marker := &fakeMarker{err: errors.New("deadlock")}

	found, marked, err := runCRMSync(context.Background(), sf, marker, time.Time{})
	require.Error(t, err)
	assert.Equal(t, 1, found)
	assert.Zero(t, marked)
}

func TestParseSince(t *testing.T) {
	t.Run("empty means no restriction", func(t *testing.T) {
		ts, err := parseSince("")
		require.NoError(t, err)
		assert.True(t, ts.IsZero())
	})

	t.Run("valid date", func(t *testing.T) {
		ts, err := parseSince("2026-06-01")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), ts)
	})

	t.Run("rejects other formats", func(t *testing.T) {
		_, err := parseSince("06/01/2026")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "YYYY-MM-DD")
	})
}
