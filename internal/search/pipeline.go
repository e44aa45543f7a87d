package search

import (
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Scope is the structural filter applied alongside the text match:
// restrict hits to a set of sources, or keep everything except a set.
type Scope struct {
	Include []int64
	Exclude []int64
}

// BuildPlan turns a sanitized query plus a structural filter into a plan
// against the full-text capability. Every whitespace-delimited term is an
// independent match clause on the name field and all of them must match;
// this is AND-across-terms, not a phrase match. An empty term list matches
// on the scope alone. Hits are sorted by name, then by descending score;
// skip/limit are applied after the sort and the total count rides along.
func BuildPlan(sanitized string, scope Scope, skip, limit int) *bleve.SearchRequest {
	boolean := bleve.NewBooleanQuery()

	terms := strings.Fields(sanitized)
	if len(terms) == 0 {
		boolean.AddMust(bleve.NewMatchAllQuery())
	}
	for _, term := range terms {
		mq := bleve.NewMatchQuery(term)
		mq.SetField("name")
		boolean.AddMust(mq)
	}

	if len(scope.Include) > 0 {
		include := make([]query.Query, 0, len(scope.Include))
		for _, id := range scope.Include {
			tq := bleve.NewTermQuery(strconv.FormatInt(id, 10))
			tq.SetField("source_id")
			include = append(include, tq)
		}
		boolean.AddMust(bleve.NewDisjunctionQuery(include...))
	}
	for _, id := range scope.Exclude {
		tq := bleve.NewTermQuery(strconv.FormatInt(id, 10))
		tq.SetField("source_id")
		boolean.AddMustNot(tq)
	}

	plan := bleve.NewSearchRequestOptions(boolean, limit, skip, false)
	plan.Fields = []string{"source_id", "item_id", "name", "size", "format", "poster"}
	plan.SortBy([]string{"name_sort", "-_score"})
	return plan
}

// TotalPages returns ceil(total / pageSize)
func TotalPages(total, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
