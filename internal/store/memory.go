package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/signalnine/trialbook/internal/errdefs"
	"github.com/signalnine/trialbook/internal/experiment"
	"github.com/signalnine/trialbook/internal/genrun"
)

type storedSnapshot struct {
	payload []byte
	savedAt time.Time
}

type storedRun struct {
	id      string
	payload []byte
	savedAt time.Time
}

// MemoryStore keeps encoded payloads so callers never share state with it.
type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	snapshots   map[string]storedSnapshot
	runs        map[string][]storedRun
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.snapshots = make(map[string]storedSnapshot)
	s.runs = make(map[string][]storedRun)
	return nil
}

func (s *MemoryStore) SaveSnapshot(_ context.Context, snap *experiment.Snapshot) error {
	if err := validateSnapshot(snap); err != nil {
		return err
	}
	payload, err := EncodeSnapshot(snap)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureInitialized(); err != nil {
		return err
	}
	s.snapshots[snap.Name] = storedSnapshot{payload: payload, savedAt: time.Now().UTC()}
	return nil
}

func (s *MemoryStore) GetSnapshot(_ context.Context, name string) (*experiment.Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ensureInitialized(); err != nil {
		return nil, false, err
	}

	stored, ok := s.snapshots[name]
	if !ok {
		return nil, false, nil
	}
	snap, err := DecodeSnapshot(stored.payload)
	if err != nil {
		return nil, false, err
	}
	return snap, true, nil
}

func (s *MemoryStore) ListSnapshots(_ context.Context) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ensureInitialized(); err != nil {
		return nil, err
	}

	out := make([]Summary, 0, len(s.snapshots))
	for _, stored := range s.snapshots {
		snap, err := DecodeSnapshot(stored.payload)
		if err != nil {
			return nil, err
		}
		out = append(out, summarize(snap, len(s.runs[snap.Name]), stored.savedAt))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) SaveGeneratorRun(_ context.Context, experimentName string, g *genrun.GeneratorRun) (string, error) {
	if g == nil {
		return "", errdefs.InvalidArgumentf("generator run is required")
	}
	payload, err := EncodeRecord(g.Record())
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ensureInitialized(); err != nil {
		return "", err
	}
	if _, ok := s.snapshots[experimentName]; !ok {
		return "", errdefs.InvalidArgumentf("unknown experiment %q", experimentName)
	}
	id := uuid.NewString()
	s.runs[experimentName] = append(s.runs[experimentName], storedRun{id: id, payload: payload, savedAt: time.Now().UTC()})
	return id, nil
}

func (s *MemoryStore) ListGeneratorRuns(_ context.Context, experimentName string) ([]StoredRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ensureInitialized(); err != nil {
		return nil, err
	}

	runs := s.runs[experimentName]
	out := make([]StoredRun, 0, len(runs))
	for _, r := range runs {
		rec, err := DecodeRecord(r.payload)
		if err != nil {
			return nil, err
		}
		out = append(out, StoredRun{ID: r.id, Experiment: experimentName, SavedAt: r.savedAt, Run: rec})
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) ensureInitialized() error {
	if !s.initialized {
		return errors.New("store is not initialized")
	}
	return nil
}

func validateSnapshot(snap *experiment.Snapshot) error {
	if snap == nil {
		return errdefs.InvalidArgumentf("snapshot is required")
	}
	if snap.Name == "" {
		return errdefs.InvalidArgumentf("snapshot name is required")
	}
	return nil
}
