package catalog

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

type fakeSource struct {
	mu        sync.Mutex
	originals []OriginalRecord
	clones    []CloneRecord
	err       error
}

func (f *fakeSource) ListOriginals(context.Context) ([]OriginalRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]OriginalRecord(nil), f.originals...), nil
}

func (f *fakeSource) ListClones(context.Context) ([]CloneRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]CloneRecord(nil), f.clones...), nil
}

func (f *fakeSource) set(originals []OriginalRecord, err error) {
	f.mu.Lock()
	f.originals = originals
	f.err = err
	f.mu.Unlock()
}

func TestCatalog_LoadAndSnapshot(t *testing.T) {
	src := &fakeSource{originals: []OriginalRecord{{ID: "O1", Brand: "Dior", Name: "Sauvage"}}}
	c := New(src, nil)

	if c.Snapshot() != nil {
		t.Fatal("snapshot before Load should be nil")
	}
	if _, err := c.Require(); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("Require before Load = %v, want ErrNotLoaded", err)
	}
	if !c.LoadedAt().IsZero() {
		t.Error("LoadedAt should be zero before Load")
	}

	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	idx, err := c.Require()
	if err != nil {
		t.Fatalf("Require: %v", err)
	}
	if n, _ := idx.Len(); n != 1 {
		t.Errorf("originals = %d, want 1", n)
	}
	if c.LoadedAt().IsZero() {
		t.Error("LoadedAt not set")
	}
}

func TestCatalog_LoadLogsDuplicatesOnOwnLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	src := &fakeSource{originals: []OriginalRecord{
		{ID: "O1", Brand: "Dior", Name: "Sauvage"},
		{ID: "O1", Brand: "Dior", Name: "Homme"},
	}}

	if err := New(src, logger).Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !strings.Contains(buf.String(), "duplicates=1") {
		t.Errorf("log = %q, want duplicate warning", buf.String())
	}
}

func TestCatalog_ReloadKeepsOldSnapshotForReaders(t *testing.T) {
	src := &fakeSource{originals: []OriginalRecord{{ID: "O1", Brand: "Dior", Name: "Sauvage"}}}
	c := New(src, nil)
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	old := c.Snapshot()

	src.set([]OriginalRecord{
		{ID: "O1", Brand: "Dior", Name: "Sauvage"},
		{ID: "O2", Brand: "Chanel", Name: "Chance"},
	}, nil)
	if err := c.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if n, _ := old.Len(); n != 1 {
		t.Errorf("old snapshot mutated: %d originals", n)
	}
	if n, _ := c.Snapshot().Len(); n != 2 {
		t.Errorf("new snapshot = %d originals, want 2", n)
	}
}

func TestCatalog_FailedReloadKeepsCurrent(t *testing.T) {
	src := &fakeSource{originals: []OriginalRecord{{ID: "O1", Brand: "Dior", Name: "Sauvage"}}}
	c := New(src, nil)
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	before := c.Snapshot()

	src.set(nil, errors.New("db down"))
	if err := c.Reload(context.Background()); err == nil {
		t.Fatal("expected reload error")
	}
	if c.Snapshot() != before {
		t.Error("failed reload replaced the snapshot")
	}
}

func TestCatalog_ConcurrentReadersDuringReload(t *testing.T) {
	src := &fakeSource{originals: []OriginalRecord{{ID: "O1", Brand: "Dior", Name: "Sauvage"}}}
	c := New(src, nil)
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				idx := c.Snapshot()
				n, _ := idx.Len()
				if n == 0 || len(idx.Originals()) != n {
					t.Errorf("inconsistent snapshot: %d", n)
					return
				}
			}
		}()
	}
	for i := 0; i < 20; i++ {
		if err := c.Reload(context.Background()); err != nil {
			t.Fatalf("Reload: %v", err)
		}
	}
	wg.Wait()
}
