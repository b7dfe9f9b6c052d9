package models

// SearchResult is one matching document with the pages that matched.
type SearchResult struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	ID          string `json:"id"`
	Pages       string `json:"pages"`
	PageNumbers []int  `json:"page_numbers"`
	Path        string `json:"path"`
}

// SearchResponse is the response for a search request. Predicate is the compiled
// boolean filter rendered for display; NoResults is set when the query ran and
// matched nothing.
type SearchResponse struct {
	Query     string          `json:"query"`
	Column    string          `json:"column"`
	IDs       string          `json:"ids"`
	Predicate string          `json:"predicate"`
	SQL       string          `json:"sql"`
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	NoResults bool            `json:"no_results"`
	QueryTime int64           `json:"query_time_ms"`
}
