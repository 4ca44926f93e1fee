package storage

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/workgraph-dev/workgraph/pkg/models"
)

// SaveSnapshot writes a snapshot to the given path as YAML. The write goes
// through a temp file and rename so a crash never leaves a half-written
// snapshot behind.
func SaveSnapshot(path string, snap *models.Snapshot) error {
	if snap.Version == "" {
		snap.Version = models.SnapshotVersion
	}
	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshalling snapshot: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads a YAML snapshot from the given path. Structural
// validation only; the engine validates graph invariants (acyclicity) when
// it restores the snapshot.
func LoadSnapshot(path string) (*models.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var snap models.Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}
	if snap.Version == "" {
		return nil, fmt.Errorf("snapshot %s has no version", path)
	}
	for i := range snap.Items {
		if err := snap.Items[i].Validate(); err != nil {
			return nil, fmt.Errorf("snapshot item %d: %w", i, err)
		}
	}
	for _, e := range snap.Edges {
		if !e.Type.IsValid() {
			return nil, fmt.Errorf("snapshot edge %s -> %s has unknown type %q", e.Source, e.Target, e.Type)
		}
	}
	return &snap, nil
}
