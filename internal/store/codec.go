package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/signalnine/trialbook/internal/experiment"
	"github.com/signalnine/trialbook/internal/genrun"
)

const CurrentCodecVersion = 1

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeSnapshot(snap *experiment.Snapshot) ([]byte, error) {
	return json.Marshal(snap)
}

func DecodeSnapshot(data []byte) (*experiment.Snapshot, error) {
	var snap experiment.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func EncodeRecord(rec genrun.Record) ([]byte, error) {
	return json.Marshal(rec)
}

func DecodeRecord(data []byte) (genrun.Record, error) {
	var rec genrun.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return genrun.Record{}, err
	}
	return rec, nil
}

func checkVersion(version int) error {
	if version != CurrentCodecVersion {
		return fmt.Errorf("%w: codec=%d want %d", ErrVersionMismatch, version, CurrentCodecVersion)
	}
	return nil
}
