package search

import (
	"fmt"
	"testing"

	"github.com/franz/media-indexer/internal/catalog"
)

func newSeededIndex(t *testing.T, records []*catalog.FileRecord) *Index {
	t.Helper()
	ix, err := NewMemIndex()
	if err != nil {
		t.Fatalf("failed to build index: %v", err)
	}
	t.Cleanup(func() { ix.Close() })

	for _, rec := range records {
		if err := ix.IndexFile(rec); err != nil {
			t.Fatalf("failed to index %q: %v", rec.Name, err)
		}
	}
	return ix
}

func TestSearchAllTermsMustMatch(t *testing.T) {
	ix := newSeededIndex(t, []*catalog.FileRecord{
		{SourceID: 1, ItemID: 1, Name: "the matrix 1999"},
		{SourceID: 1, ItemID: 2, Name: "matrix reloaded"},
		{SourceID: 1, ItemID: 3, Name: "the lion king"},
	})

	results, total, err := ix.Execute(BuildPlan("the matrix", Scope{}, 0, 10))
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected exactly 1 match, got %d", total)
	}
	// "matrix reloaded" lacks "the" and must not appear
	if results[0].Name != "the matrix 1999" {
		t.Errorf("unexpected hit %q", results[0].Name)
	}
}

func TestSearchTokenizesDottedNames(t *testing.T) {
	ix := newSeededIndex(t, []*catalog.FileRecord{
		{SourceID: 1, ItemID: 1, Name: "Breaking.Bad.S01E05.720p"},
	})

	_, total, err := ix.Execute(BuildPlan("breaking bad", Scope{}, 0, 10))
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if total != 1 {
		t.Errorf("dotted name should match space-separated terms, total = %d", total)
	}
}

func TestSearchNoMatchIsEmptyNotError(t *testing.T) {
	ix := newSeededIndex(t, []*catalog.FileRecord{
		{SourceID: 1, ItemID: 1, Name: "the matrix 1999"},
	})

	results, total, err := ix.Execute(BuildPlan("nonexistent film", Scope{}, 0, 10))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if total != 0 || len(results) != 0 {
		t.Errorf("expected empty result set, got %d/%d", len(results), total)
	}
}

func TestSearchPagination(t *testing.T) {
	records := make([]*catalog.FileRecord, 0, 23)
	for i := 1; i <= 23; i++ {
		records = append(records, &catalog.FileRecord{
			SourceID: 1,
			ItemID:   int64(i),
			Name:     fmt.Sprintf("show episode %02d", i),
		})
	}
	ix := newSeededIndex(t, records)

	pageSize := 10
	_, total, err := ix.Execute(BuildPlan("show episode", Scope{}, 0, pageSize))
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if total != 23 {
		t.Fatalf("expected total 23, got %d", total)
	}
	if TotalPages(total, pageSize) != 3 {
		t.Errorf("expected 3 pages, got %d", TotalPages(total, pageSize))
	}

	// The last page carries the remainder
	results, _, err := ix.Execute(BuildPlan("show episode", Scope{}, 20, pageSize))
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 results on the last page, got %d", len(results))
	}
}

func TestSearchSortedByName(t *testing.T) {
	ix := newSeededIndex(t, []*catalog.FileRecord{
		{SourceID: 1, ItemID: 1, Name: "zebra documentary"},
		{SourceID: 1, ItemID: 2, Name: "alpha documentary"},
		{SourceID: 1, ItemID: 3, Name: "Middle documentary"},
	})

	results, _, err := ix.Execute(BuildPlan("documentary", Scope{}, 0, 10))
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	want := []string{"alpha documentary", "Middle documentary", "zebra documentary"}
	for i, name := range want {
		if results[i].Name != name {
			t.Errorf("position %d: got %q, want %q", i, results[i].Name, name)
		}
	}
}

func TestSearchScopeInclude(t *testing.T) {
	ix := newSeededIndex(t, []*catalog.FileRecord{
		{SourceID: 1, ItemID: 1, Name: "shared film"},
		{SourceID: 2, ItemID: 1, Name: "shared film copy"},
	})

	results, total, err := ix.Execute(BuildPlan("shared film", Scope{Include: []int64{2}}, 0, 10))
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if total != 1 || results[0].SourceID != 2 {
		t.Errorf("expected only source 2, got total=%d results=%+v", total, results)
	}
}

func TestSearchScopeExclude(t *testing.T) {
	ix := newSeededIndex(t, []*catalog.FileRecord{
		{SourceID: 1, ItemID: 1, Name: "shared film"},
		{SourceID: 2, ItemID: 1, Name: "shared film copy"},
		{SourceID: 3, ItemID: 1, Name: "shared film again"},
	})

	_, total, err := ix.Execute(BuildPlan("shared film", Scope{Exclude: []int64{1, 3}}, 0, 10))
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if total != 1 {
		t.Errorf("expected 1 result after exclusion, got %d", total)
	}
}

func TestSearchEmptyQueryMatchesScope(t *testing.T) {
	ix := newSeededIndex(t, []*catalog.FileRecord{
		{SourceID: 1, ItemID: 1, Name: "one"},
		{SourceID: 2, ItemID: 2, Name: "two"},
	})

	_, total, err := ix.Execute(BuildPlan("", Scope{Include: []int64{1}}, 0, 10))
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if total != 1 {
		t.Errorf("expected scope-only match of 1, got %d", total)
	}
}

func TestResultProjection(t *testing.T) {
	ix := newSeededIndex(t, []*catalog.FileRecord{
		{
			SourceID: -1001234, ItemID: 77, Name: "projected film",
			Size: 1234567, Format: "video/x-matroska", PosterRef: "/poster.jpg",
		},
	})

	results, _, err := ix.Execute(BuildPlan("projected", Scope{}, 0, 10))
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.SourceID != -1001234 || r.ItemID != 77 {
		t.Errorf("identity lost: (%d, %d)", r.SourceID, r.ItemID)
	}
	if r.Size != 1234567 || r.Format != "video/x-matroska" || r.Poster != "/poster.jpg" {
		t.Errorf("projection lost fields: %+v", r)
	}
	if r.Score <= 0 {
		t.Errorf("expected positive score, got %f", r.Score)
	}
}

func TestDeleteFile(t *testing.T) {
	ix := newSeededIndex(t, []*catalog.FileRecord{
		{SourceID: 1, ItemID: 1, Name: "doomed file"},
	})

	if err := ix.DeleteFile(1, 1); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	_, total, err := ix.Execute(BuildPlan("doomed", Scope{}, 0, 10))
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if total != 0 {
		t.Errorf("expected no hits after delete, got %d", total)
	}
}

func TestIndexFileReplaces(t *testing.T) {
	ix := newSeededIndex(t, nil)

	rec := &catalog.FileRecord{SourceID: 1, ItemID: 1, Name: "original name"}
	if err := ix.IndexFile(rec); err != nil {
		t.Fatalf("index failed: %v", err)
	}
	rec.Name = "renamed file"
	if err := ix.IndexFile(rec); err != nil {
		t.Fatalf("reindex failed: %v", err)
	}

	count, err := ix.DocCount()
	if err != nil {
		t.Fatalf("doc count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 document after replace, got %d", count)
	}
	if _, total, _ := ix.Execute(BuildPlan("original", Scope{}, 0, 10)); total != 0 {
		t.Error("old name still matches after replace")
	}
}
