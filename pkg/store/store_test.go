package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr(v float64) *float64 { return &v }

func seed(t *testing.T, s *Store) ReplaceResult {
	t.Helper()
	res, err := s.ReplaceCatalog(context.Background(),
		[]Original{
			{ID: "O2", Brand: "Dior", Name: "Sauvage", PriceEUR: ptr(120), URL: "https://example.com/sauvage"},
			{ID: "O1", Brand: "Chanel", Name: "Chance"},
			{ID: "O1", Brand: "Chanel", Name: "Duplicate"},
			{ID: "O3", Brand: "", Name: "Nameless"},
		},
		[]Clone{
			{ID: "C1", OriginalID: "O2", Brand: "Alt", Name: "Noir Intense", PriceEUR: ptr(25), SavedAmount: ptr(79)},
			{OriginalID: "O2", Brand: "Zara", Name: "Vibrant Leather", SavedAmount: ptr(90)},
			{ID: "C3", OriginalID: "missing", Brand: "Lost", Name: "Orphan"},
			{ID: "C4", OriginalID: "O1", Brand: "Lattafa", Name: "Chance Copy", Notes: "citrus"},
		})
	if err != nil {
		t.Fatalf("ReplaceCatalog: %v", err)
	}
	return res
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "mysql", "x"); err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if _, err := Open(context.Background(), DriverSQLite, ""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestReplaceCatalog_Counts(t *testing.T) {
	s := tempStore(t)
	res := seed(t, s)

	if res.Originals != 3 || res.Clones != 3 || res.Skipped != 2 {
		t.Errorf("result = %+v, want 3 originals, 3 clones, 2 skipped", res)
	}
	o, c, err := s.Counts(context.Background())
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if o != 3 || c != 3 {
		t.Errorf("Counts = %d, %d", o, c)
	}
}

func TestReplaceCatalog_ReplacesPrevious(t *testing.T) {
	s := tempStore(t)
	seed(t, s)

	res, err := s.ReplaceCatalog(context.Background(), []Original{{ID: "N1", Brand: "Creed", Name: "Aventus"}}, nil)
	if err != nil {
		t.Fatalf("ReplaceCatalog: %v", err)
	}
	if res.Originals != 1 {
		t.Errorf("result = %+v", res)
	}
	if _, err := s.GetOriginal(context.Background(), "O2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("old original still present: %v", err)
	}
}

func TestListOriginals_LoadOrder(t *testing.T) {
	s := tempStore(t)
	seed(t, s)

	got, err := s.ListOriginals(context.Background())
	if err != nil {
		t.Fatalf("ListOriginals: %v", err)
	}
	want := []string{"O2", "O1", "O3"}
	if len(got) != len(want) {
		t.Fatalf("got %d originals, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, got[i].ID, id)
		}
	}
	if got[0].Brand != "Dior" || got[2].Brand != "" {
		t.Errorf("brands = %q, %q", got[0].Brand, got[2].Brand)
	}

	clones, err := s.ListClones(context.Background())
	if err != nil {
		t.Fatalf("ListClones: %v", err)
	}
	if len(clones) != 3 || clones[0].Brand != "Alt" || clones[0].OriginalID != "O2" {
		t.Errorf("clones = %+v", clones)
	}
}

func TestGetOriginal(t *testing.T) {
	s := tempStore(t)
	seed(t, s)
	ctx := context.Background()

	o, err := s.GetOriginal(ctx, "O2")
	if err != nil {
		t.Fatalf("GetOriginal: %v", err)
	}
	if o.Name != "Sauvage" || o.PriceEUR == nil || *o.PriceEUR != 120 || o.URL == "" {
		t.Errorf("original = %+v", o)
	}
	if _, err := s.GetOriginal(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetOriginal(nope) = %v, want ErrNotFound", err)
	}
}

func TestLookupOriginal(t *testing.T) {
	s := tempStore(t)
	seed(t, s)
	ctx := context.Background()

	o, ok, err := s.LookupOriginal(ctx, "O2")
	if err != nil || !ok {
		t.Fatalf("LookupOriginal = %v, %v", ok, err)
	}
	if o.DisplayNorm != "dior sauvage" {
		t.Errorf("DisplayNorm = %q", o.DisplayNorm)
	}
	if _, ok, err := s.LookupOriginal(ctx, "missing"); ok || err != nil {
		t.Errorf("LookupOriginal(missing) = %v, %v; want miss without error", ok, err)
	}
}

func TestClonesFor(t *testing.T) {
	s := tempStore(t)
	seed(t, s)

	got, err := s.ClonesFor(context.Background(), "O2")
	if err != nil {
		t.Fatalf("ClonesFor: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d clones, want 2", len(got))
	}
	if got[0].ID != "C1" || *got[0].SavedAmount != 79 || *got[0].PriceEUR != 25 {
		t.Errorf("first clone = %+v", got[0])
	}
	if got[1].ID == "" {
		t.Error("generated clone id is empty")
	}
	if got[1].PriceEUR != nil {
		t.Errorf("price should be nil, got %v", *got[1].PriceEUR)
	}

	none, err := s.ClonesFor(context.Background(), "O3")
	if err != nil || len(none) != 0 {
		t.Errorf("ClonesFor(O3) = %v, %v", none, err)
	}
}

func TestStats(t *testing.T) {
	s := tempStore(t)
	seed(t, s)
	ctx := context.Background()

	entries := []QueryEntry{
		{UserID: "u1", Query: "dior sauvage", Status: StatusOK, OriginalID: "O2"},
		{UserID: "u1", Query: "sauvage dior", Status: StatusOK, OriginalID: "O2", Note: "FUZZY_CAVEAT"},
		{UserID: "u2", Query: "chance", Status: StatusOK, OriginalID: "O1"},
		{UserID: "u2", Query: "xyz", Status: "NOT_FOUND"},
		{UserID: "u3", Query: "xyz", Status: "NOT_FOUND"},
		{UserID: "u3", Query: "dior", Status: "BRAND_ONLY"},
	}
	for _, e := range entries {
		if err := s.LogQuery(ctx, e); err != nil {
			t.Fatalf("LogQuery: %v", err)
		}
	}

	st, err := s.Stats(ctx, 5)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Originals != 3 || st.Clones != 3 || st.Queries != 6 || st.UniqueUsers != 3 {
		t.Errorf("totals = %+v", st)
	}
	if len(st.MostCloned) == 0 || st.MostCloned[0].ID != "O2" || st.MostCloned[0].Count != 2 {
		t.Errorf("MostCloned = %+v", st.MostCloned)
	}
	if len(st.TopSavings) != 2 || st.TopSavings[0].SavedAmount != 90 || st.TopSavings[0].OriginalName != "Sauvage" {
		t.Errorf("TopSavings = %+v", st.TopSavings)
	}
	if len(st.MostFound) != 2 || st.MostFound[0].ID != "O2" || st.MostFound[0].Count != 2 {
		t.Errorf("MostFound = %+v", st.MostFound)
	}
	if len(st.TopFailed) != 2 || st.TopFailed[0].Query != "xyz" || st.TopFailed[0].Count != 2 {
		t.Errorf("TopFailed = %+v", st.TopFailed)
	}
	if len(st.ActiveUsers) != 3 || st.ActiveUsers[0].Queries != 2 || st.ActiveUsers[0].LastSeen.IsZero() {
		t.Errorf("ActiveUsers = %+v", st.ActiveUsers)
	}
}

func TestImportRuns(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	if err := s.RecordImport(ctx, "csv", "/tmp/a", ReplaceResult{Originals: 3, Clones: 2, Skipped: 1}); err != nil {
		t.Fatalf("RecordImport: %v", err)
	}
	if err := s.RecordImport(ctx, "legacy-sqlite", "/tmp/b.db", ReplaceResult{Originals: 10}); err != nil {
		t.Fatalf("RecordImport: %v", err)
	}

	runs, err := s.ListImports(ctx, 10)
	if err != nil {
		t.Fatalf("ListImports: %v", err)
	}
	if len(runs) != 2 || runs[0].Adapter != "legacy-sqlite" || runs[1].Skipped != 1 {
		t.Errorf("runs = %+v", runs)
	}
	if runs[0].CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestRebind(t *testing.T) {
	pg := &Store{driver: DriverPostgres}
	if got := pg.rebind("SELECT a FROM t WHERE x = ? AND y = ?"); got != "SELECT a FROM t WHERE x = $1 AND y = $2" {
		t.Errorf("rebind = %q", got)
	}
	lite := &Store{driver: DriverSQLite}
	if got := lite.rebind("x = ?"); got != "x = ?" {
		t.Errorf("sqlite rebind = %q", got)
	}
}

func TestDump(t *testing.T) {
	s := tempStore(t)
	seed(t, s)

	originals, clones, err := s.Dump(context.Background())
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if len(originals) != 3 || originals[0].ID != "O2" || originals[0].PriceEUR == nil {
		t.Errorf("originals = %+v", originals)
	}
	if len(clones) != 3 || clones[2].Notes != "citrus" {
		t.Errorf("clones = %+v", clones)
	}
}

func logQueries(t *testing.T, s *Store, entries ...QueryEntry) {
	t.Helper()
	for _, e := range entries {
		if err := s.LogQuery(context.Background(), e); err != nil {
			t.Fatalf("LogQuery: %v", err)
		}
	}
}

func TestHistory(t *testing.T) {
	s := tempStore(t)
	seed(t, s)
	logQueries(t, s,
		QueryEntry{UserID: "u1", Query: "dior sauvage", Status: StatusOK, OriginalID: "O2"},
		QueryEntry{UserID: "u2", Query: "chance", Status: StatusOK, OriginalID: "O1"},
		QueryEntry{UserID: "u1", Query: "xyz", Status: "NOT_FOUND"},
		QueryEntry{UserID: "u1", Query: "chanel", Status: StatusOK, OriginalID: "gone"},
	)

	got, err := s.History(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d items, want 3", len(got))
	}
	if got[0].Query != "chanel" || got[0].Brand != "" || got[0].OriginalID != "gone" {
		t.Errorf("newest = %+v (original no longer in catalog)", got[0])
	}
	if got[1].Status != "NOT_FOUND" || got[1].OriginalID != "" {
		t.Errorf("second = %+v", got[1])
	}
	if got[2].Brand != "Dior" || got[2].Name != "Sauvage" || got[2].CreatedAt.IsZero() {
		t.Errorf("oldest = %+v", got[2])
	}

	limited, err := s.History(context.Background(), "u1", 1)
	if err != nil || len(limited) != 1 || limited[0].Query != "chanel" {
		t.Errorf("History(limit 1) = %+v, %v", limited, err)
	}
	none, err := s.History(context.Background(), "nobody", 10)
	if err != nil || len(none) != 0 {
		t.Errorf("History(nobody) = %+v, %v", none, err)
	}
}

func TestPopular(t *testing.T) {
	s := tempStore(t)
	seed(t, s)
	logQueries(t, s,
		QueryEntry{UserID: "u1", Query: "chance", Status: StatusOK, OriginalID: "O1"},
		QueryEntry{UserID: "u2", Query: "sauvage", Status: StatusOK, OriginalID: "O2"},
		QueryEntry{UserID: "u3", Query: "sauvag", Status: StatusOK, OriginalID: "O2"},
		QueryEntry{UserID: "u3", Query: "dior", Status: "BRAND_ONLY"},
	)

	got, err := s.Popular(context.Background(), 10)
	if err != nil {
		t.Fatalf("Popular: %v", err)
	}
	if len(got) != 2 || got[0].ID != "O2" || got[0].Count != 2 || got[1].ID != "O1" {
		t.Errorf("Popular = %+v", got)
	}
	if top, _ := s.Popular(context.Background(), 1); len(top) != 1 {
		t.Errorf("Popular(1) = %+v", top)
	}
}

func TestRandomOriginal(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	if _, err := s.RandomOriginal(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("RandomOriginal on empty catalog = %v, want ErrNotFound", err)
	}

	seed(t, s)
	ids := map[string]bool{"O1": true, "O2": true, "O3": true}
	for i := 0; i < 20; i++ {
		o, err := s.RandomOriginal(ctx)
		if err != nil {
			t.Fatalf("RandomOriginal: %v", err)
		}
		if !ids[o.ID] {
			t.Fatalf("unexpected original %+v", o)
		}
	}
}
