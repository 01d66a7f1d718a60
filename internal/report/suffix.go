package report

import (
	"strings"

	"github.com/signalnine/trialbook/internal/errdefs"
	"github.com/signalnine/trialbook/internal/table"
)

// SuffixResult maps each input to its abbreviation. Fallback is set when
// resolution gave up and every input maps to itself.
type SuffixResult struct {
	Suffixes map[string]string
	Fallback bool
}

// ShortestUniqueSuffixes maps each input to its shortest trailing run of
// delim-separated chunks that no other input ends with. Inputs must be
// distinct and delim non-empty.
func ShortestUniqueSuffixes(inputs []string, delim string) (SuffixResult, error) {
	if delim == "" {
		return SuffixResult{}, errdefs.InvalidArgumentf("delimiter must be a non-empty string")
	}
	seen := make(map[string]bool, len(inputs))
	maxChunks := 0
	for _, s := range inputs {
		if seen[s] {
			return SuffixResult{}, errdefs.InvalidArgumentf("inputs must be distinct, %q is repeated", s)
		}
		seen[s] = true
		maxChunks = max(maxChunks, len(strings.Split(s, delim)))
	}
	if maxChunks <= 1 {
		return SuffixResult{Suffixes: identity(inputs)}, nil
	}

	groups := make(map[string][]string)
	for _, s := range inputs {
		sfx := suffix(s, delim, 1)
		groups[sfx] = append(groups[sfx], s)
	}
	// A group of one is resolved; larger groups grow their suffix by a chunk
	// per round. One extra round confirms that everything is resolved.
	for n := 2; n <= maxChunks+1; n++ {
		next := make(map[string][]string, len(groups))
		unique := true
		for sfx, members := range groups {
			if len(members) == 1 {
				next[sfx] = append(next[sfx], members[0])
				continue
			}
			unique = false
			for _, s := range members {
				longer := suffix(s, delim, n)
				next[longer] = append(next[longer], s)
			}
		}
		if unique {
			out := make(map[string]string, len(groups))
			for sfx, members := range groups {
				out[members[0]] = sfx
			}
			return SuffixResult{Suffixes: out}, nil
		}
		groups = next
	}
	return SuffixResult{Suffixes: identity(inputs), Fallback: true}, nil
}

// ShortestUniqueSuffixes resolves suffixes and logs a warning when the
// resolver had to fall back to the inputs themselves.
func (r *Reporter) ShortestUniqueSuffixes(inputs []string, delim string) (map[string]string, error) {
	res, err := ShortestUniqueSuffixes(inputs, delim)
	if err != nil {
		return nil, err
	}
	if res.Fallback {
		r.log.WithField("inputs", len(inputs)).Warn("Could not find unique suffixes. Returning the original strings.")
	}
	return res.Suffixes, nil
}

func (r *Reporter) shortenMetricColumns(tbl *table.Table, keyCol, delim string) (*table.Table, map[string]string, error) {
	if delim == "" {
		delim = "."
	}
	var metrics []string
	for _, c := range tbl.Columns() {
		if c != keyCol {
			metrics = append(metrics, c)
		}
	}
	mapping, err := r.ShortestUniqueSuffixes(metrics, delim)
	if err != nil {
		return nil, nil, err
	}
	renamed, err := tbl.RenameColumns(mapping)
	if err != nil {
		return nil, nil, err
	}
	return renamed, mapping, nil
}

func suffix(s, delim string, chunks int) string {
	parts := strings.Split(s, delim)
	if chunks >= len(parts) {
		return s
	}
	return strings.Join(parts[len(parts)-chunks:], delim)
}

func identity(inputs []string) map[string]string {
	out := make(map[string]string, len(inputs))
	for _, s := range inputs {
		out[s] = s
	}
	return out
}
