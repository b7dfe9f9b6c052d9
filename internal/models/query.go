package models

import "fmt"

// SearchQuery is a keyword expression with an optional target column and id filter.
type SearchQuery struct {
	Query  string `json:"query"`
	Column string `json:"column,omitempty"`
	IDs    string `json:"ids,omitempty"`
}

// Validate fills defaults for empty fields. An empty keyword expression is
// allowed: it compiles to a predicate that matches every page.
func (q *SearchQuery) Validate(defaultColumn, defaultIDs string) error {
	if q.Column == "" {
		q.Column = defaultColumn
	}
	if q.IDs == "" {
		q.IDs = defaultIDs
	}
	if q.Column == "" {
		return fmt.Errorf("column cannot be empty")
	}
	return nil
}
