package state

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"rewatch/internal/stat"
	"rewatch/internal/watcher"
)

const generator = "rewatch"

// SerializedState is the on-disk form of a watcher snapshot.
type SerializedState struct {
	Generator string            `json:"generator"`
	Created   time.Time         `json:"created"`
	Digest    string            `json:"digest"`
	Targets   []SerializedEntry `json:"targets"`
}

type SerializedEntry struct {
	Path        string     `json:"path"`
	DisplayName string     `json:"display_name,omitempty"`
	Kind        string     `json:"kind"`
	Exists      bool       `json:"exists"`
	Size        int64      `json:"size,omitempty"`
	ModTime     *time.Time `json:"mtime,omitempty"`
	IsDir       bool       `json:"is_dir,omitempty"`
	Fingerprint string     `json:"fingerprint,omitempty"`
}

func parseKind(kind string) watcher.Kind {
	switch kind {
	case watcher.KindFile.String():
		return watcher.KindFile
	case watcher.KindDirectory.String():
		return watcher.KindDirectory
	default:
		return watcher.KindMissing
	}
}

// Encode converts a snapshot to its serialized form, entries sorted by path.
func Encode(snap watcher.Snapshot) (*SerializedState, error) {
	digest, err := Digest(snap)
	if err != nil {
		return nil, err
	}

	serialized := &SerializedState{
		Generator: generator,
		Created:   time.Now().UTC(),
		Digest:    hex.EncodeToString(digest),
		Targets:   make([]SerializedEntry, 0, len(snap)),
	}

	for _, key := range snap.Keys() {
		entry := snap[key]
		out := SerializedEntry{
			Path:        key,
			DisplayName: entry.DisplayName,
			Kind:        entry.Kind.String(),
			Exists:      entry.Stat.Exists,
		}
		if entry.Stat.Exists {
			modTime := entry.Stat.ModTime
			out.Size = entry.Stat.Size
			out.ModTime = &modTime
			out.IsDir = entry.Stat.IsDir
			if len(entry.Stat.Fingerprint) > 0 {
				out.Fingerprint = hex.EncodeToString(entry.Stat.Fingerprint)
			}
		}
		serialized.Targets = append(serialized.Targets, out)
	}

	return serialized, nil
}

// Decode rebuilds a snapshot from its serialized form.
func Decode(serialized *SerializedState) (watcher.Snapshot, error) {
	snap := make(watcher.Snapshot, len(serialized.Targets))

	for _, target := range serialized.Targets {
		if target.Path == "" {
			return nil, errors.New("state entry without path")
		}

		st := stat.Absent(nil)
		if target.Exists {
			st = stat.Stat{
				Exists: true,
				Size:   target.Size,
				IsDir:  target.IsDir,
			}
			if target.ModTime != nil {
				st.ModTime = *target.ModTime
			}
			if target.Fingerprint != "" {
				fp, err := hex.DecodeString(target.Fingerprint)
				if err != nil {
					return nil, fmt.Errorf("invalid fingerprint for %s: %w", target.Path, err)
				}
				st.Fingerprint = fp
			}
		}

		snap[target.Path] = watcher.Entry{
			Key:         target.Path,
			DisplayName: target.DisplayName,
			Kind:        parseKind(target.Kind),
			Stat:        st,
		}
	}

	return snap, nil
}

// Save writes snap to path, replacing any previous file atomically.
func Save(snap watcher.Snapshot, path string) error {
	serialized, err := Encode(snap)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(serialized, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	return nil
}

// Load reads a state file written by Save.
func Load(path string) (watcher.Snapshot, *SerializedState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file: %w", err)
	}

	var serialized SerializedState
	if err := json.Unmarshal(data, &serialized); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	if serialized.Generator != generator {
		return nil, nil, fmt.Errorf("unexpected state generator %q", serialized.Generator)
	}

	snap, err := Decode(&serialized)
	if err != nil {
		return nil, nil, err
	}
	return snap, &serialized, nil
}
