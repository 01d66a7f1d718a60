package table_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/trialbook/internal/errdefs"
	"github.com/signalnine/trialbook/internal/table"
)

func longTable(t *testing.T) *table.Table {
	t.Helper()
	tbl := table.New("key", "metric_name", "mean")
	require.NoError(t, tbl.Append("b", "loss", 2.0))
	require.NoError(t, tbl.Append("a", "loss", 1.0))
	require.NoError(t, tbl.Append("a", "acc", 0.5))
	return tbl
}

func TestAppendLengthMismatch(t *testing.T) {
	tbl := table.New("a", "b")
	err := tbl.Append(1)
	assert.True(t, errdefs.IsInvalidArgument(err))
	assert.Equal(t, 0, tbl.Len())
}

func TestFromRecords(t *testing.T) {
	tbl := table.FromRecords([]map[string]any{
		{"arm_name": "0_0", "y": 2, "x": 1},
		{"arm_name": "1_0", "z": "c"},
	}, "arm_name")
	assert.Equal(t, []string{"arm_name", "x", "y", "z"}, tbl.Columns())
	assert.Equal(t, []any{"0_0", 1, 2, nil}, tbl.Row(0).Values())
	assert.Equal(t, []any{"1_0", nil, nil, "c"}, tbl.Row(1).Values())
}

func TestPivot(t *testing.T) {
	wide, err := longTable(t).Pivot("key", "metric_name", "mean")
	require.NoError(t, err)
	assert.Equal(t, []string{"key", "acc", "loss"}, wide.Columns())
	require.Equal(t, 2, wide.Len())
	assert.Equal(t, []any{"a", 0.5, 1.0}, wide.Row(0).Values())
	assert.Equal(t, []any{"b", nil, 2.0}, wide.Row(1).Values())
}

func TestPivotDuplicateEntries(t *testing.T) {
	tbl := longTable(t)
	require.NoError(t, tbl.Append("a", "loss", 3.0))
	_, err := tbl.Pivot("key", "metric_name", "mean")
	assert.True(t, errdefs.IsInvalidArgument(err))
}

func TestPivotUnknownColumn(t *testing.T) {
	_, err := longTable(t).Pivot("key", "metric", "mean")
	assert.True(t, errdefs.IsInvalidArgument(err))
}

func TestDistinct(t *testing.T) {
	d, err := longTable(t).Distinct("key")
	require.NoError(t, err)
	assert.Equal(t, []any{"b", "a"}, d.Column("key"))
}

func TestInnerJoin(t *testing.T) {
	left := table.New("arm_name", "v")
	require.NoError(t, left.Append("b", 1))
	require.NoError(t, left.Append("a", 2))
	require.NoError(t, left.Append("missing", 3))

	right := table.New("arm_name", "x", "v")
	require.NoError(t, right.Append("a", 10.0, "r"))
	require.NoError(t, right.Append("b", 20.0, "s"))

	joined, err := left.InnerJoin(right, "arm_name")
	require.NoError(t, err)
	assert.Equal(t, []string{"arm_name", "v_x", "x", "v_y"}, joined.Columns())
	require.Equal(t, 2, joined.Len())
	assert.Equal(t, []any{"b", 1, 20.0, "s"}, joined.Row(0).Values())
	assert.Equal(t, []any{"a", 2, 10.0, "r"}, joined.Row(1).Values())
}

func TestInnerJoinNumericKeysAcrossTypes(t *testing.T) {
	left := table.New("trial_index", "a")
	require.NoError(t, left.Append(1, "x"))
	right := table.New("trial_index", "b")
	require.NoError(t, right.Append(int64(1), "y"))

	joined, err := left.InnerJoin(right, "trial_index")
	require.NoError(t, err)
	assert.Equal(t, 1, joined.Len())
}

func TestSortByIsStableWithMissingLast(t *testing.T) {
	tbl := table.New("trial_index", "arm_name", "order")
	require.NoError(t, tbl.Append(2, "2_0", 0))
	require.NoError(t, tbl.Append(nil, "x", 1))
	require.NoError(t, tbl.Append(10, "10_0", 2))
	require.NoError(t, tbl.Append(2, "2_0", 3))
	require.NoError(t, tbl.Append(1, "1_1", 4))
	require.NoError(t, tbl.Append(1, "1_0", 5))

	sorted, err := tbl.SortBy("trial_index", "arm_name")
	require.NoError(t, err)
	assert.Equal(t, []any{5, 4, 0, 3, 2, 1}, sorted.Column("order"))
	// the receiver is untouched
	assert.Equal(t, []any{0, 1, 2, 3, 4, 5}, tbl.Column("order"))
}

func TestSetColumn(t *testing.T) {
	tbl := longTable(t)
	require.NoError(t, tbl.SetColumn("status", []any{"A", "B", "C"}))
	assert.Equal(t, "C", tbl.Value(2, "status"))

	require.NoError(t, tbl.SetColumn("status", []any{"x", "y", "z"}))
	assert.Equal(t, []string{"key", "metric_name", "mean", "status"}, tbl.Columns())
	assert.Equal(t, "z", tbl.Value(2, "status"))

	assert.True(t, errdefs.IsInvalidArgument(tbl.SetColumn("bad", []any{1})))
}

func TestFilterHeadDrop(t *testing.T) {
	tbl := longTable(t)
	loss := tbl.Filter(func(r table.Row) bool { return r.Get("metric_name") == "loss" })
	assert.Equal(t, 2, loss.Len())
	assert.Equal(t, 1, loss.Head(1).Len())
	assert.Equal(t, 0, loss.Head(0).Len())
	assert.Equal(t, 2, loss.Head(10).Len())

	dropped := tbl.Drop("metric_name", "nope")
	assert.Equal(t, []string{"key", "mean"}, dropped.Columns())
}

func TestRecordsAndRename(t *testing.T) {
	tbl := longTable(t)
	recs := tbl.Records()
	require.Len(t, recs, 3)
	assert.Equal(t, map[string]any{"key": "a", "metric_name": "acc", "mean": 0.5}, recs[2])

	renamed, err := tbl.RenameColumns(map[string]string{"mean": "value"})
	require.NoError(t, err)
	assert.Equal(t, []string{"key", "metric_name", "value"}, renamed.Columns())

	_, err = tbl.RenameColumns(map[string]string{"mean": "key"})
	assert.True(t, errdefs.IsInvalidArgument(err))
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want int
	}{
		{"ints", 1, 2, -1},
		{"int and float", 2, 1.5, 1},
		{"equal numbers", int64(3), 3.0, 0},
		{"strings", "b", "a", 1},
		{"bools", false, true, -1},
		{"nil last", nil, 1, 1},
		{"nan last", math.NaN(), 1.0, 1},
		{"both missing", nil, math.NaN(), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, table.Compare(tt.a, tt.b))
		})
	}
}
