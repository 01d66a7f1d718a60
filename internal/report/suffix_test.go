package report_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/trialbook/internal/errdefs"
	"github.com/signalnine/trialbook/internal/report"
)

func TestShortestUniqueSuffixes(t *testing.T) {
	tests := []struct {
		name   string
		inputs []string
		delim  string
		want   map[string]string
	}{
		{
			name:   "mixed depths",
			inputs: []string{"a.b.x", "c.d.x", "a.b.y"},
			delim:  ".",
			want:   map[string]string{"a.b.x": "b.x", "c.d.x": "d.x", "a.b.y": "y"},
		},
		{
			name:   "single chunks",
			inputs: []string{"loss", "accuracy"},
			delim:  ".",
			want:   map[string]string{"loss": "loss", "accuracy": "accuracy"},
		},
		{
			name:   "input is a suffix of another",
			inputs: []string{"x.y", "w.x.y"},
			delim:  ".",
			want:   map[string]string{"x.y": "x.y", "w.x.y": "w.x.y"},
		},
		{
			name:   "multi-character delimiter",
			inputs: []string{"train::loss", "eval::loss", "eval::acc"},
			delim:  "::",
			want:   map[string]string{"train::loss": "train::loss", "eval::loss": "eval::loss", "eval::acc": "acc"},
		},
		{
			name:   "empty input",
			inputs: nil,
			delim:  ".",
			want:   map[string]string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := report.ShortestUniqueSuffixes(tt.inputs, tt.delim)
			require.NoError(t, err)
			assert.False(t, got.Fallback)
			assert.Equal(t, tt.want, got.Suffixes)
		})
	}
}

func TestShortestUniqueSuffixesRejectsBadInput(t *testing.T) {
	_, err := report.ShortestUniqueSuffixes([]string{"a.b", "a.b"}, ".")
	assert.True(t, errdefs.IsInvalidArgument(err))

	_, err = report.ShortestUniqueSuffixes([]string{"a.b"}, "")
	assert.True(t, errdefs.IsInvalidArgument(err))
}

func TestReporterSuffixesLogNothingOnSuccess(t *testing.T) {
	r, hook := newReporter(t)
	got, err := r.ShortestUniqueSuffixes([]string{"m.a", "m.b"}, ".")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"m.a": "a", "m.b": "b"}, got)
	assert.Empty(t, hook.AllEntries())
}
