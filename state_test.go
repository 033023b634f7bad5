package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadStateMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	state, err := loadState(path)
	if err != nil {
		t.Fatalf("loadState() error = %v", err)
	}
	if state.Authors == nil || len(state.Authors) != 0 {
		t.Errorf("missing file should yield an empty author map, got %v", state.Authors)
	}
	if state.Single != nil {
		t.Errorf("missing file should yield no single snapshot, got %v", state.Single)
	}
}

func TestStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	original := &State{
		Authors: map[string]Snapshot{
			"artist": {
				Checksum: "abc123",
				Items: []Entry{
					{ID: "id1", Title: "T", URL: "https://e-hentai.org/g/1", Cover: "https://cdn/c.jpg"},
				},
			},
		},
		Single: &Snapshot{Checksum: "def456", Items: []Entry{{ID: "id2", Title: "U"}}},
	}

	if err := saveState(path, original); err != nil {
		t.Fatalf("saveState() error = %v", err)
	}

	loaded, err := loadState(path)
	if err != nil {
		t.Fatalf("loadState() error = %v", err)
	}

	snap, ok := loaded.Authors["artist"]
	if !ok {
		t.Fatal("author snapshot missing after round trip")
	}
	if snap.Checksum != "abc123" {
		t.Errorf("checksum = %q, want %q", snap.Checksum, "abc123")
	}
	if len(snap.Items) != 1 || snap.Items[0].ID != "id1" {
		t.Errorf("items = %v, want one entry id1", snap.Items)
	}
	if loaded.Single == nil || loaded.Single.Checksum != "def456" {
		t.Errorf("single snapshot = %v, want checksum def456", loaded.Single)
	}
}

func TestSaveStateAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	if err := saveState(path, &State{Authors: map[string]Snapshot{}}); err != nil {
		t.Fatalf("saveState() error = %v", err)
	}

	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should not remain after save")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("state file missing after save: %v", err)
	}
}

func TestSaveStateCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "state.json")

	if err := saveState(path, &State{Authors: map[string]Snapshot{}}); err != nil {
		t.Fatalf("saveState() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("state file missing after save: %v", err)
	}
}

func TestLoadStateCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := loadState(path); err == nil {
		t.Error("loadState() should fail on corrupt JSON")
	}
}

func TestLoadStateEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	state, err := loadState(path)
	if err != nil {
		t.Fatalf("loadState() error = %v", err)
	}
	if len(state.Authors) != 0 {
		t.Errorf("empty file should yield zero state, got %v", state.Authors)
	}
}
