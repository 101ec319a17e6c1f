package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dealer-scout/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_CreateAndFinishRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)

	err = st.FinishRun(ctx, run.ID, RunStats{Codes: 3, Failed: 1, Units: 10, Saved: 8, Duplicates: 2})
	require.NoError(t, err)
}

func TestSQLite_FinishRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.FinishRun(context.Background(), "no-such-run", RunStats{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_PushBatch_RoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx)
	require.NoError(t, err)

	recs := []*model.Record{
		{
			Name:             model.Nullable("Biohof Schmidt"),
			Street:           model.Nullable("Musterweg 1"),
			PostalCode:       model.Nullable("20095"),
			City:             model.Nullable("Hamburg"),
			Category:         model.Nullable("retail"),
			SourcePostalCode: "20095",
		},
		{
			// Everything optional missing: columns must round-trip as NULL.
			SourcePostalCode: "20095",
		},
	}
	require.NoError(t, st.PushBatch(ctx, run.ID, recs))

	got, err := st.ListRecords(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.NotNil(t, got[0].Name)
	assert.Equal(t, "Biohof Schmidt", *got[0].Name)
	assert.Equal(t, "20095", got[0].SourcePostalCode)

	assert.Nil(t, got[1].Name)
	assert.Nil(t, got[1].Street)
	assert.Nil(t, got[1].Phone)
	assert.Nil(t, got[1].SourceURL)
}

func TestSQLite_PushBatch_Empty(t *testing.T) {
	st := newTestSQLiteStore(t)

	require.NoError(t, st.PushBatch(context.Background(), "any-run", nil))
}

func TestSQLite_ListRecords_AllRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first, err := st.CreateRun(ctx)
	require.NoError(t, err)
	second, err := st.CreateRun(ctx)
	require.NoError(t, err)

	require.NoError(t, st.PushBatch(ctx, first.ID, []*model.Record{{SourcePostalCode: "80331"}}))
	require.NoError(t, st.PushBatch(ctx, second.ID, []*model.Record{{SourcePostalCode: "50667"}}))

	scoped, err := st.ListRecords(ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, scoped, 1)

	all, err := st.ListRecords(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "dsn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}
