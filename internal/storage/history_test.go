package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/lead-finder/internal/domain"
)

func newLocalHistory(t *testing.T, prefix string) (*History, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	require.NoError(t, err)
	return NewHistory(store, prefix), dir
}

func TestParseBucketURL(t *testing.T) {
	tests := []struct {
		in, bucket, prefix string
	}{
		{"my-bucket", "my-bucket", ""},
		{"s3://my-bucket", "my-bucket", ""},
		{"s3://my-bucket/", "my-bucket", ""},
		{"s3://my-bucket/leads/prod/", "my-bucket", "leads/prod/"},
		{"s3://my-bucket/leads", "my-bucket", "leads/"},
	}
	for _, tt := range tests {
		b, p := ParseBucketURL(tt.in)
		assert.Equal(t, tt.bucket, b, tt.in)
		assert.Equal(t, tt.prefix, p, tt.in)
	}
}

func TestHistory_KeyConvention(t *testing.T) {
	h := NewHistory(nil, "leads/")

	key, err := h.Key("user_123", FeatureBulk, "1700000000000-abcd1234")
	require.NoError(t, err)
	assert.Equal(t, "leads/user-data/user_123/bulk-find-email/1700000000000-abcd1234.json", key)

	key, err = h.Key("a/b", FeatureSingle, "x")
	require.NoError(t, err)
	assert.Equal(t, "leads/user-data/a%2Fb/find-email/x.json", key)

	_, err = h.Key("user_123", FeatureBulk, "../other")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestHistory_BulkRoundTripAndList(t *testing.T) {
	h, dir := newLocalHistory(t, "")
	ctx := context.Background()

	email := "jane.doe@acme.com"
	older := &domain.BulkRequest{
		SearchID:    "1000-aaaaaaaa",
		FileName:    "leads.csv",
		RecordCount: 1,
		Timestamp:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Results: []domain.ResultRecord{{
			Record:     domain.CandidateRecord{FirstName: "Jane", LastName: "Doe", LinkedIn: "x", CompanyName: "Acme"},
			FoundEmail: &email,
		}},
	}
	older.Recount()
	newer := &domain.BulkRequest{SearchID: "2000-bbbbbbbb", FileName: "more.xlsx"}

	key, err := h.SaveBulk(ctx, "user_1", older)
	require.NoError(t, err)
	assert.Equal(t, "user-data/user_1/bulk-find-email/1000-aaaaaaaa.json", key)
	_, err = h.SaveBulk(ctx, "user_1", newer)
	require.NoError(t, err)
	_, err = h.SaveBulk(ctx, "user_2", &domain.BulkRequest{SearchID: "3000-cccccccc"})
	require.NoError(t, err)

	// Make the older object look older on disk.
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, filepath.FromSlash(key)), past, past))

	got, err := h.GetBulk(ctx, "user_1", "1000-aaaaaaaa")
	require.NoError(t, err)
	assert.Equal(t, "leads.csv", got.FileName)
	require.Len(t, got.Results, 1)
	assert.Equal(t, "jane.doe@acme.com", got.Results[0].Email())

	list, err := h.ListBulk(ctx, "user_1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "2000-bbbbbbbb", list[0].SearchID)
	assert.Equal(t, "1000-aaaaaaaa", list[1].SearchID)
	assert.Equal(t, 1, list[1].SuccessCount)
	require.NotNil(t, list[1].Timestamp)
}

func TestHistory_ListBulkToleratesCorruptObjects(t *testing.T) {
	h, dir := newLocalHistory(t, "")
	ctx := context.Background()

	p := filepath.Join(dir, "user-data", "u", "bulk-find-email", "999-deadbeef.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte("{not json"), 0644))

	list, err := h.ListBulk(ctx, "u")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "999-deadbeef", list[0].SearchID)
	assert.Equal(t, "Unknown file", list[0].FileName)
}

func TestHistory_SingleRoundTripAndList(t *testing.T) {
	h, _ := newLocalHistory(t, "base/")
	ctx := context.Background()

	res := &domain.SingleSearchResult{
		SearchID:  "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		FirstName: "Jane", LastName: "Doe", CompanyName: "Acme",
		Email:     "jane.doe@acme.com",
		Timestamp: time.Now().UTC(),
	}
	_, err := h.SaveSingle(ctx, "user_1", res)
	require.NoError(t, err)

	got, err := h.GetSingle(ctx, "user_1", res.SearchID)
	require.NoError(t, err)
	assert.Equal(t, "jane.doe@acme.com", got.Email)

	list, err := h.ListSingle(ctx, "user_1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "base/user-data/user_1/find-email/"+res.SearchID+".json", list[0].Key)
	assert.Equal(t, []string{}, list[0].PersonalEmails)

	_, err = h.GetSingle(ctx, "user_1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	empty, err := h.ListSingle(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
