package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/layerlint/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store := NewSQLiteStore()
	require.NoError(t, store.Open(":memory:"))
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func violation(source, target, sl, tl string, r core.Reason) core.Violation {
	return core.Violation{
		Edge:        core.DependencyEdge{Source: source, Target: target, Kind: "uses"},
		SourceLayer: sl,
		TargetLayer: tl,
		Reason:      r,
	}
}

func TestSQLiteStore_OpenMigrate(t *testing.T) {
	store := setupTestStore(t)

	version, err := store.MigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	// Migrating twice is a no-op.
	require.NoError(t, store.Migrate())
}

func TestSQLiteStore_OpenFileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".layerlint", "state.db")
	store := NewSQLiteStore()
	require.NoError(t, store.Open(path))
	defer store.Close()

	require.NoError(t, store.Migrate())
	assert.Equal(t, path, store.Path())
	assert.FileExists(t, path)
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	store := NewSQLiteStore()
	ctx := context.Background()

	assert.Error(t, store.Migrate())
	assert.Error(t, store.RecordRun(ctx, &Run{}, nil))
	_, err := store.LatestRun(ctx)
	assert.Error(t, err)
	_, err = store.ListRuns(ctx, 0)
	assert.Error(t, err)
	_, err = store.RunViolations(ctx, "x")
	assert.Error(t, err)
	assert.NoError(t, store.Close())
}

func TestSQLiteStore_RecordAndRead(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.LatestRun(ctx)
	assert.ErrorIs(t, err, ErrNoRuns)

	vs := []core.Violation{
		violation("A", "B", "Model", "Controller", core.ReasonUncovered),
		violation("C", "D", "Controller", "View", core.ReasonForbidden),
	}
	first := &Run{StartedAt: time.Unix(100, 0).UTC(), Duration: 1500 * time.Millisecond, Depfile: "layerlint.yaml", Entities: 4, Edges: 3}
	require.NoError(t, store.RecordRun(ctx, first, vs))
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, 2, first.Violations)

	second := &Run{StartedAt: time.Unix(200, 0).UTC()}
	require.NoError(t, store.RecordRun(ctx, second, nil))

	latest, err := store.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first, runs[1])

	runs, err = store.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	got, err := store.RunViolations(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, vs, got)

	got, err = store.RunViolations(ctx, second.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteStore_PruneRuns(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		run := &Run{StartedAt: time.Unix(int64(i), 0)}
		require.NoError(t, store.RecordRun(ctx, run, []core.Violation{violation("A", "B", "X", "Y", core.ReasonForbidden)}))
	}

	removed, err := store.PruneRuns(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	var orphans int
	require.NoError(t, store.db.QueryRow(
		`SELECT COUNT(*) FROM violations WHERE run_id NOT IN (SELECT id FROM runs)`).Scan(&orphans))
	assert.Zero(t, orphans, "violations must cascade with their run")
}

func TestSQLiteStore_FailurePaths(t *testing.T) {
	ctx := context.Background()
	vs := []core.Violation{violation("A", "B", "X", "Y", core.ReasonForbidden)}

	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		run       func(s *SQLiteStore) error
		errMsg    string
	}{
		{
			name: "begin fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(assert.AnError)
			},
			run:    func(s *SQLiteStore) error { return s.RecordRun(ctx, &Run{}, vs) },
			errMsg: "failed to begin transaction",
		},
		{
			name: "insert run fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO runs").WillReturnError(assert.AnError)
				mock.ExpectRollback()
			},
			run:    func(s *SQLiteStore) error { return s.RecordRun(ctx, &Run{}, vs) },
			errMsg: "failed to insert run",
		},
		{
			name: "insert violation fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO runs").WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectPrepare("INSERT INTO violations").
					ExpectExec().WillReturnError(assert.AnError)
				mock.ExpectRollback()
			},
			run:    func(s *SQLiteStore) error { return s.RecordRun(ctx, &Run{}, vs) },
			errMsg: "failed to insert violation",
		},
		{
			name: "commit fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO runs").WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectCommit().WillReturnError(assert.AnError)
			},
			run:    func(s *SQLiteStore) error { return s.RecordRun(ctx, &Run{}, nil) },
			errMsg: "failed to commit run",
		},
		{
			name: "latest run query fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT .* FROM runs").WillReturnError(assert.AnError)
			},
			run: func(s *SQLiteStore) error {
				_, err := s.LatestRun(ctx)
				return err
			},
			errMsg: "failed to get latest run",
		},
		{
			name: "corrupt reason",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"source", "target", "kind", "source_layer", "target_layer", "reason"}).
					AddRow("A", "B", "", "X", "Y", "sideways")
				mock.ExpectQuery("SELECT .* FROM violations").WithArgs("run-1").WillReturnRows(rows)
			},
			run: func(s *SQLiteStore) error {
				_, err := s.RunViolations(ctx, "run-1")
				return err
			},
			errMsg: `unknown reason "sideways"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			tt.setupMock(mock)

			err = tt.run(NewWithDB(db))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
