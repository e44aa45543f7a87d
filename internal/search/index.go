// Package search constructs query plans against the full-text index and
// caches result pages. The index itself is an external capability; this
// package only builds plans, feeds documents, and reads pages back.
package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	regexpTokenizer "github.com/blevesearch/bleve/v2/analysis/tokenizer/regexp"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/franz/media-indexer/internal/catalog"
)

// Document is the indexed projection of a file record
type Document struct {
	SourceID string `json:"source_id"`
	ItemID   int64  `json:"item_id"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Format   string `json:"format"`
	Poster   string `json:"poster"`
}

// Result is one search hit: the listing fields plus the relevance score
type Result struct {
	SourceID int64
	ItemID   int64
	Name     string
	Size     int64
	Format   string
	Poster   string
	Score    float64
}

// Index wraps the external full-text capability
type Index struct {
	idx bleve.Index
}

// OpenIndex opens or creates the search index at path
func OpenIndex(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, buildIndexMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open search index: %w", err)
	}
	return &Index{idx: idx}, nil
}

// NewMemIndex creates an in-memory index. Test use.
func NewMemIndex() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return &Index{idx: idx}, nil
}

// Close releases the index
func (ix *Index) Close() error {
	return ix.idx.Close()
}

// buildIndexMapping defines the document schema. Display names are
// tokenized on whitespace, dots, underscores and dashes, then lowercased,
// mirroring how announced filenames are actually delimited.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomTokenizer("filename_tokens", map[string]interface{}{
		"type":   regexpTokenizer.Name,
		"regexp": `[^\s\._\-]+`,
	})
	if err == nil {
		err = indexMapping.AddCustomAnalyzer("filename", map[string]interface{}{
			"type":          custom.Name,
			"tokenizer":     "filename_tokens",
			"token_filters": []interface{}{lowercase.Name},
		})
	}
	if err != nil {
		// Registration only fails on a programming error in the
		// definitions above
		panic(fmt.Sprintf("search: analyzer registration: %v", err))
	}

	fileMapping := bleve.NewDocumentMapping()

	nameField := bleve.NewTextFieldMapping()
	nameField.Store = true
	nameField.Index = true
	nameField.Analyzer = "filename"
	fileMapping.AddFieldMappingsAt("name", nameField)

	// Untokenized copy of the name for ordering result pages
	nameSortField := bleve.NewTextFieldMapping()
	nameSortField.Store = false
	nameSortField.Index = true
	nameSortField.Analyzer = "keyword"
	fileMapping.AddFieldMappingsAt("name_sort", nameSortField)

	sourceField := bleve.NewTextFieldMapping()
	sourceField.Store = true
	sourceField.Index = true
	sourceField.Analyzer = "keyword"
	fileMapping.AddFieldMappingsAt("source_id", sourceField)

	itemField := bleve.NewNumericFieldMapping()
	itemField.Store = true
	itemField.Index = false
	fileMapping.AddFieldMappingsAt("item_id", itemField)

	sizeField := bleve.NewNumericFieldMapping()
	sizeField.Store = true
	sizeField.Index = false
	fileMapping.AddFieldMappingsAt("size", sizeField)

	formatField := bleve.NewTextFieldMapping()
	formatField.Store = true
	formatField.Index = false
	fileMapping.AddFieldMappingsAt("format", formatField)

	posterField := bleve.NewTextFieldMapping()
	posterField.Store = true
	posterField.Index = false
	fileMapping.AddFieldMappingsAt("poster", posterField)

	indexMapping.AddDocumentMapping("file", fileMapping)
	indexMapping.DefaultType = "file"

	return indexMapping
}

func docID(sourceID, itemID int64) string {
	return fmt.Sprintf("%d_%d", sourceID, itemID)
}

// IndexFile adds or replaces a file record in the index
func (ix *Index) IndexFile(f *catalog.FileRecord) error {
	doc := map[string]interface{}{
		"source_id": strconv.FormatInt(f.SourceID, 10),
		"item_id":   f.ItemID,
		"name":      f.Name,
		"name_sort": strings.ToLower(f.Name),
		"size":      f.Size,
		"format":    f.Format,
		"poster":    f.PosterRef,
	}
	if err := ix.idx.Index(docID(f.SourceID, f.ItemID), doc); err != nil {
		return fmt.Errorf("failed to index file: %w", err)
	}
	return nil
}

// DeleteFile removes a file record from the index
func (ix *Index) DeleteFile(sourceID, itemID int64) error {
	if err := ix.idx.Delete(docID(sourceID, itemID)); err != nil {
		return fmt.Errorf("failed to delete from index: %w", err)
	}
	return nil
}

// DocCount returns the number of indexed documents
func (ix *Index) DocCount() (uint64, error) {
	return ix.idx.DocCount()
}

// Execute runs a plan and converts the hit page into result projections
// plus the total matching count.
func (ix *Index) Execute(plan *bleve.SearchRequest) ([]Result, int, error) {
	res, err := ix.idx.Search(plan)
	if err != nil {
		return nil, 0, fmt.Errorf("search failed: %w", err)
	}

	results := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		r := Result{Score: hit.Score}
		if v, ok := hit.Fields["source_id"].(string); ok {
			r.SourceID, _ = strconv.ParseInt(v, 10, 64)
		}
		if v, ok := hit.Fields["item_id"].(float64); ok {
			r.ItemID = int64(v)
		}
		if v, ok := hit.Fields["name"].(string); ok {
			r.Name = v
		}
		if v, ok := hit.Fields["size"].(float64); ok {
			r.Size = int64(v)
		}
		if v, ok := hit.Fields["format"].(string); ok {
			r.Format = v
		}
		if v, ok := hit.Fields["poster"].(string); ok {
			r.Poster = v
		}
		results = append(results, r)
	}

	return results, int(res.Total), nil
}
