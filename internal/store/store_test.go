package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/trialbook/internal/arm"
	"github.com/signalnine/trialbook/internal/errdefs"
	"github.com/signalnine/trialbook/internal/experiment"
	"github.com/signalnine/trialbook/internal/genrun"
	"github.com/signalnine/trialbook/internal/store"
)

func backends(t *testing.T) map[string]store.Store {
	t.Helper()
	return map[string]store.Store{
		"memory": store.NewMemoryStore(),
		"sqlite": store.NewSQLiteStore(filepath.Join(t.TempDir(), "trialbook.db")),
	}
}

func openStore(t *testing.T, s store.Store) {
	t.Helper()
	require.NoError(t, s.Init(context.Background()))
	t.Cleanup(func() {
		_ = s.Close()
	})
}

func loadSnapshot(t *testing.T) *experiment.Snapshot {
	t.Helper()
	snap, err := experiment.LoadSnapshot(filepath.Join("..", "..", "testdata", "experiment.yaml"))
	require.NoError(t, err)
	return snap
}

func newRun(t *testing.T) *genrun.GeneratorRun {
	t.Helper()
	g, err := genrun.New([]*arm.Arm{
		arm.New("", map[string]any{"x1": 1.0, "x2": 2.0}),
		arm.New("", map[string]any{"x1": 3.0, "x2": 4.0}),
	}, &genrun.Options{Weights: []float64{1, 3}, ModelKey: "Sobol"})
	require.NoError(t, err)
	return g
}

func TestSnapshotRoundTrip(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			openStore(t, s)
			snap := loadSnapshot(t)
			require.NoError(t, s.SaveSnapshot(ctx, snap))

			got, ok, err := s.GetSnapshot(ctx, snap.Name)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, snap.Name, got.Name)
			assert.Len(t, got.Arms, len(snap.Arms))
			assert.Len(t, got.Trials, len(snap.Trials))
			assert.Len(t, got.Observations, len(snap.Observations))
			assert.Equal(t, snap.ModelTransitions, got.ModelTransitions)

			exp, err := experiment.FromSnapshot(got)
			require.NoError(t, err)
			assert.Equal(t, []int{0, 1, 2}, exp.TrialIndices())

			_, ok, err = s.GetSnapshot(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestSaveSnapshotReplaces(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			openStore(t, s)
			snap := loadSnapshot(t)
			require.NoError(t, s.SaveSnapshot(ctx, snap))

			snap.Description = "updated"
			require.NoError(t, s.SaveSnapshot(ctx, snap))

			got, ok, err := s.GetSnapshot(ctx, snap.Name)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "updated", got.Description)

			summaries, err := s.ListSnapshots(ctx)
			require.NoError(t, err)
			assert.Len(t, summaries, 1)
		})
	}
}

func TestGeneratorRuns(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			openStore(t, s)
			snap := loadSnapshot(t)
			require.NoError(t, s.SaveSnapshot(ctx, snap))

			first, err := s.SaveGeneratorRun(ctx, snap.Name, newRun(t))
			require.NoError(t, err)
			second, err := s.SaveGeneratorRun(ctx, snap.Name, newRun(t))
			require.NoError(t, err)
			assert.NotEqual(t, first, second)

			runs, err := s.ListGeneratorRuns(ctx, snap.Name)
			require.NoError(t, err)
			require.Len(t, runs, 2)
			assert.Equal(t, first, runs[0].ID)
			assert.Equal(t, second, runs[1].ID)
			assert.Equal(t, snap.Name, runs[0].Experiment)

			g, err := runs[0].GeneratorRun()
			require.NoError(t, err)
			assert.Equal(t, []float64{1, 3}, g.Weights())
			assert.Equal(t, "Sobol", g.ModelKey())

			summaries, err := s.ListSnapshots(ctx)
			require.NoError(t, err)
			require.Len(t, summaries, 1)
			assert.Equal(t, store.Summary{
				Name:          snap.Name,
				Description:   snap.Description,
				Trials:        3,
				Observations:  len(snap.Observations),
				GeneratorRuns: 2,
				SavedAt:       summaries[0].SavedAt,
			}, summaries[0])
			assert.False(t, summaries[0].SavedAt.IsZero())

			none, err := s.ListGeneratorRuns(ctx, "missing")
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestSaveGeneratorRunUnknownExperiment(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			openStore(t, s)
			_, err := s.SaveGeneratorRun(context.Background(), "missing", newRun(t))
			assert.True(t, errdefs.IsInvalidArgument(err))

			_, err = s.SaveGeneratorRun(context.Background(), "missing", nil)
			assert.True(t, errdefs.IsInvalidArgument(err))
		})
	}
}

func TestSaveSnapshotRequiresName(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			openStore(t, s)
			err := s.SaveSnapshot(context.Background(), &experiment.Snapshot{})
			assert.True(t, errdefs.IsInvalidArgument(err))
		})
	}
}

func TestUninitializedStore(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, _, err := s.GetSnapshot(context.Background(), "x")
			assert.EqualError(t, err, "store is not initialized")
		})
	}
}

func TestSQLitePersistsAcrossOpens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "trialbook.db")

	s := store.NewSQLiteStore(path)
	require.NoError(t, s.Init(ctx))
	snap := loadSnapshot(t)
	require.NoError(t, s.SaveSnapshot(ctx, snap))
	_, err := s.SaveGeneratorRun(ctx, snap.Name, newRun(t))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened := store.NewSQLiteStore(path)
	openStore(t, reopened)
	_, ok, err := reopened.GetSnapshot(ctx, snap.Name)
	require.NoError(t, err)
	assert.True(t, ok)
	runs, err := reopened.ListGeneratorRuns(ctx, snap.Name)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestSQLiteRequiresPath(t *testing.T) {
	assert.Error(t, store.NewSQLiteStore("").Init(context.Background()))
}

func TestNew(t *testing.T) {
	s, err := store.New("", "")
	require.NoError(t, err)
	assert.IsType(t, &store.MemoryStore{}, s)

	s, err = store.New("sqlite", "x.db")
	require.NoError(t, err)
	assert.IsType(t, &store.SQLiteStore{}, s)

	_, err = store.New("postgres", "")
	assert.EqualError(t, err, "unsupported store backend: postgres")
}

func TestDecodeRecordRejectsGarbage(t *testing.T) {
	_, err := store.DecodeRecord([]byte("{"))
	assert.Error(t, err)
	assert.False(t, errors.Is(err, store.ErrVersionMismatch))
}
