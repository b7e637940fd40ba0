package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrylabs/packgate/pkg/store"
)

func newTempStore(t *testing.T) *store.SQLiteEventStore {
	t.Helper()
	s, err := store.NewSQLiteEventStore(filepath.Join(t.TempDir(), "events.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteEventStore_RoundTrip(t *testing.T) {
	s := newTempStore(t)
	ctx := context.Background()

	created := time.Date(2026, 3, 14, 9, 26, 53, 123456789, time.UTC)
	id, err := s.Append(ctx, store.Event{
		TenantID:    "acme",
		RunID:       "run-1",
		Type:        "audit.trail",
		Payload:     []byte(`{"sequence":1}`),
		PayloadHash: "sha256:abc",
		CreatedAt:   created,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	events, err := s.History(ctx, "acme", "run-1", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)

	e := events[0]
	assert.Equal(t, id, e.ID)
	assert.Equal(t, "audit.trail", e.Type)
	assert.Equal(t, []byte(`{"sequence":1}`), e.Payload)
	assert.Equal(t, "sha256:abc", e.PayloadHash)
	assert.True(t, created.Equal(e.CreatedAt), "timestamp must survive the round trip")
}

func TestSQLiteEventStore_TenantIsolation(t *testing.T) {
	s := newTempStore(t)
	ctx := context.Background()

	_, err := s.Append(ctx, store.Event{TenantID: "acme", RunID: "run-1", Type: "audit.trail"})
	require.NoError(t, err)
	_, err = s.Append(ctx, store.Event{TenantID: "initech", RunID: "run-1", Type: "audit.trail"})
	require.NoError(t, err)

	events, err := s.History(ctx, "acme", "run-1", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "acme", events[0].TenantID)
}

func TestSQLiteEventStore_IDsMonotonic(t *testing.T) {
	s := newTempStore(t)
	ctx := context.Background()

	var last int64
	for i := 0; i < 10; i++ {
		id, err := s.Append(ctx, store.Event{TenantID: "acme", RunID: "run-1", Type: "audit.trail"})
		require.NoError(t, err)
		require.Greater(t, id, last)
		last = id
	}
}

func TestSQLiteEventStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.sqlite")
	ctx := context.Background()

	s, err := store.NewSQLiteEventStore(path)
	require.NoError(t, err)
	_, err = s.Append(ctx, store.Event{TenantID: "acme", RunID: "run-1", Type: "audit.trail", Payload: []byte(`{}`)})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := store.NewSQLiteEventStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	events, err := reopened.History(ctx, "acme", "run-1", 0)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestSQLiteEventStore_RejectsUnscopedEvents(t *testing.T) {
	s := newTempStore(t)
	_, err := s.Append(context.Background(), store.Event{Type: "audit.trail"})
	assert.ErrorIs(t, err, store.ErrEmptyRun)
}

func TestSQLiteEventStore_AppendFailureSurfaces(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS events").
		WillReturnResult(sqlmock.NewResult(0, 0))
	s, err := store.NewSQLiteEventStoreFromDB(db)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO events").
		WillReturnError(errors.New("disk I/O error"))

	_, err = s.Append(context.Background(), store.Event{TenantID: "acme", RunID: "run-1", Type: "audit.trail"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append event")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteEventStore_BadTimestampSurfaces(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS events").
		WillReturnResult(sqlmock.NewResult(0, 0))
	s, err := store.NewSQLiteEventStoreFromDB(db)
	require.NoError(t, err)

	rows := sqlmock.NewRows([]string{"id", "tenant_id", "run_id", "type", "payload", "payload_hash", "created_at"}).
		AddRow(1, "acme", "run-1", "audit.trail", []byte(`{}`), "", "not-a-timestamp")
	mock.ExpectQuery("SELECT id, tenant_id, run_id").WillReturnRows(rows)

	_, err = s.History(context.Background(), "acme", "run-1", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad timestamp")
}
