// Package store persists experiment snapshots and the generator runs saved
// against them.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/signalnine/trialbook/internal/experiment"
	"github.com/signalnine/trialbook/internal/genrun"
)

type Store interface {
	Init(ctx context.Context) error
	// SaveSnapshot inserts or replaces the experiment with the snapshot's name.
	SaveSnapshot(ctx context.Context, snap *experiment.Snapshot) error
	GetSnapshot(ctx context.Context, name string) (*experiment.Snapshot, bool, error)
	ListSnapshots(ctx context.Context) ([]Summary, error)
	// SaveGeneratorRun stores a run against an existing experiment and
	// returns the run's new id.
	SaveGeneratorRun(ctx context.Context, experimentName string, g *genrun.GeneratorRun) (string, error)
	// ListGeneratorRuns returns an experiment's runs in the order they were saved.
	ListGeneratorRuns(ctx context.Context, experimentName string) ([]StoredRun, error)
	Close() error
}

// Summary describes a stored experiment.
type Summary struct {
	Name          string
	Description   string
	Trials        int
	Observations  int
	GeneratorRuns int
	SavedAt       time.Time
}

type StoredRun struct {
	ID         string        `json:"id"`
	Experiment string        `json:"experiment"`
	SavedAt    time.Time     `json:"saved_at"`
	Run        genrun.Record `json:"run"`
}

// GeneratorRun rebuilds the stored run.
func (s StoredRun) GeneratorRun() (*genrun.GeneratorRun, error) {
	g, err := genrun.FromRecord(s.Run)
	if err != nil {
		return nil, fmt.Errorf("decode generator run %s: %w", s.ID, err)
	}
	return g, nil
}

func summarize(snap *experiment.Snapshot, runs int, savedAt time.Time) Summary {
	return Summary{
		Name:          snap.Name,
		Description:   snap.Description,
		Trials:        len(snap.Trials),
		Observations:  len(snap.Observations),
		GeneratorRuns: runs,
		SavedAt:       savedAt,
	}
}
