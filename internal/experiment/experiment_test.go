package experiment_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/trialbook/internal/arm"
	"github.com/signalnine/trialbook/internal/errdefs"
	"github.com/signalnine/trialbook/internal/experiment"
	"github.com/signalnine/trialbook/internal/optim"
)

func loadTestExperiment(t *testing.T) *experiment.Experiment {
	t.Helper()
	snap, err := experiment.LoadSnapshot(filepath.Join("..", "..", "testdata", "experiment.yaml"))
	require.NoError(t, err)
	exp, err := experiment.FromSnapshot(snap)
	require.NoError(t, err)
	return exp
}

func TestLoadSnapshot(t *testing.T) {
	exp := loadTestExperiment(t)
	assert.Equal(t, "branin_sweep", exp.Name())
	assert.Equal(t, []int{0, 1, 2}, exp.TrialIndices())
	assert.Len(t, exp.ArmsByName(), 3)
	assert.Equal(t, []string{"x1", "x2"}, exp.SearchSpace().RangeParameters())
	assert.Equal(t, "branin", exp.OptimizationConfig().Objective.Metric.Name)
	assert.True(t, exp.OptimizationConfig().Objective.Minimize)
	assert.Equal(t, []int{2}, exp.ModelTransitions())
	assert.False(t, exp.IsMultiType())

	trial := exp.Trials()[2]
	assert.Equal(t, experiment.StatusRunning, trial.Status)
	assert.Equal(t, "j-102", trial.RunMetadata["job_id"])

	g, ok := trial.GeneratorRun()
	require.True(t, ok)
	idx, ok := g.Index()
	require.True(t, ok)
	assert.Equal(t, 0, idx)
	step, ok := g.GenerationStepIndex()
	require.True(t, ok)
	assert.Equal(t, 1, step)
	assert.Equal(t, "GPEI", g.ModelKey())
	require.Len(t, trial.Arms(), 1)
	assert.Equal(t, "2_0", trial.Arms()[0].Name)
}

func TestLoadSnapshotJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exp.json")
	doc := `{"name": "j", "arms": [{"name": "a", "parameters": {"x": 1}}],
		"trials": [{"index": 0, "status": "COMPLETED", "arms": ["a"]}],
		"observations": [{"trial_index": 0, "arm_name": "a", "metric_name": "m", "mean": 1.5}]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	snap, err := experiment.LoadSnapshot(path)
	require.NoError(t, err)
	exp, err := experiment.FromSnapshot(snap)
	require.NoError(t, err)

	data, err := exp.FetchData(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5}, data.MetricValues("m"))
}

func TestLoadSnapshotMissingFile(t *testing.T) {
	_, err := experiment.LoadSnapshot(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestFromSnapshotValidation(t *testing.T) {
	base := func() *experiment.Snapshot {
		return &experiment.Snapshot{
			Name: "e",
			Arms: []*arm.Arm{arm.New("a", map[string]any{"x": 1.0})},
			Trials: []experiment.TrialSnapshot{
				{Index: 0, Status: experiment.StatusCompleted, Arms: []string{"a"}},
			},
		}
	}
	tests := []struct {
		name   string
		mutate func(s *experiment.Snapshot)
	}{
		{"missing name", func(s *experiment.Snapshot) { s.Name = "" }},
		{"unnamed arm", func(s *experiment.Snapshot) { s.Arms = append(s.Arms, arm.New("", nil)) }},
		{"duplicate arm", func(s *experiment.Snapshot) { s.Arms = append(s.Arms, arm.New("a", nil)) }},
		{"unknown arm", func(s *experiment.Snapshot) { s.Trials[0].Arms = []string{"b"} }},
		{"bad status", func(s *experiment.Snapshot) { s.Trials[0].Status = "DONE" }},
		{"duplicate trial", func(s *experiment.Snapshot) { s.Trials = append(s.Trials, s.Trials[0]) }},
		{"negative trial", func(s *experiment.Snapshot) { s.Trials[0].Index = -1 }},
		{"weights mismatch", func(s *experiment.Snapshot) { s.Trials[0].Weights = []float64{1, 2} }},
		{"undeclared trial type", func(s *experiment.Snapshot) { s.Trials[0].Type = "online" }},
		{"observation for unknown trial", func(s *experiment.Snapshot) {
			s.Observations = []experiment.Observation{{TrialIndex: 9, ArmName: "a", MetricName: "m"}}
		}},
		{"observation without metric", func(s *experiment.Snapshot) {
			s.Observations = []experiment.Observation{{TrialIndex: 0, ArmName: "a"}}
		}},
		{"invalid objective", func(s *experiment.Snapshot) {
			s.OptimizationConfig = &optim.OptimizationConfig{Objective: optim.Objective{Kind: optim.ObjectiveMulti}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base()
			tt.mutate(s)
			_, err := experiment.FromSnapshot(s)
			assert.True(t, errdefs.IsInvalidArgument(err), "got %v", err)
		})
	}

	_, err := experiment.FromSnapshot(base())
	assert.NoError(t, err)
}

func TestMultiTypeExperiment(t *testing.T) {
	exp, err := experiment.FromSnapshot(&experiment.Snapshot{
		Name:       "mt",
		TrialTypes: []string{"offline", "online"},
		Trials:     []experiment.TrialSnapshot{{Index: 0, Type: "online"}},
	})
	require.NoError(t, err)
	assert.True(t, exp.IsMultiType())
	assert.Equal(t, experiment.StatusCandidate, exp.Trials()[0].Status)

	_, ok := exp.Trials()[0].GeneratorRun()
	assert.False(t, ok)
}

func TestFetchDataFilters(t *testing.T) {
	exp := loadTestExperiment(t)
	ctx := context.Background()

	all, err := exp.FetchData(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all.Observations, 6)

	branin, err := exp.FetchData(ctx, []optim.Metric{{Name: "branin"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 2, 8}, branin.MetricValues("branin"))
	assert.Empty(t, branin.MetricValues("runtime.wall.seconds"))

	some, err := exp.FetchData(ctx, nil, map[string]any{"trial_indices": []int{1}})
	require.NoError(t, err)
	assert.Len(t, some.Observations, 2)

	_, err = exp.FetchData(ctx, nil, map[string]any{"trial_indices": "1"})
	assert.True(t, errdefs.IsInvalidArgument(err))

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = exp.FetchData(canceled, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchDataReturnsCopies(t *testing.T) {
	exp := loadTestExperiment(t)
	data, err := exp.FetchData(context.Background(), nil, nil)
	require.NoError(t, err)
	*data.Observations[0].SEM = 99

	again, err := exp.FetchData(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.1, *again.Observations[0].SEM)
}

func TestDataTable(t *testing.T) {
	sem := 0.5
	data := &experiment.Data{Observations: []experiment.Observation{
		{TrialIndex: 0, ArmName: "0_0", MetricName: "m", Mean: 1, SEM: &sem, Extra: map[string]any{"fidelity": 0.5}},
		{TrialIndex: 1, ArmName: "1_0", MetricName: "m", Mean: 2},
	}}
	tbl := data.Table()
	assert.Equal(t, []string{"trial_index", "arm_name", "metric_name", "mean", "sem", "fidelity"}, tbl.Columns())
	assert.Equal(t, []any{0, "0_0", "m", 1.0, 0.5, 0.5}, tbl.Row(0).Values())
	assert.Equal(t, []any{1, "1_0", "m", 2.0, nil, nil}, tbl.Row(1).Values())

	var empty *experiment.Data
	assert.True(t, empty.Empty())
	assert.Equal(t, 0, empty.Table().Len())
}

func TestTrialStatus(t *testing.T) {
	assert.True(t, experiment.StatusEarlyStopped.Valid())
	assert.False(t, experiment.TrialStatus("DONE").Valid())
	assert.True(t, experiment.StatusFailed.Terminal())
	assert.False(t, experiment.StatusRunning.Terminal())
}

func TestMetricValuesOrderedByTrial(t *testing.T) {
	data := &experiment.Data{Observations: []experiment.Observation{
		{TrialIndex: 2, ArmName: "c", MetricName: "m", Mean: 3},
		{TrialIndex: 0, ArmName: "a", MetricName: "m", Mean: 1},
		{TrialIndex: 1, ArmName: "b", MetricName: "n", Mean: 9},
		{TrialIndex: 1, ArmName: "b", MetricName: "m", Mean: 2},
		{TrialIndex: 0, ArmName: "a2", MetricName: "m", Mean: 1.5},
	}}
	assert.Equal(t, []float64{1, 1.5, 2, 3}, data.MetricValues("m"))
}
