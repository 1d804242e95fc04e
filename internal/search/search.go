package search

// Result is a single search hit returned to the caller.
type Result struct {
	ID        string `json:"id"`
	BoardID   string `json:"boardId"`
	BoardSlug string `json:"boardSlug"`
	Snippet   string `json:"snippet"`
	Author    string `json:"author,omitempty"`
}

// Query describes a card search request.
type Query struct {
	Text     string
	TeamName string // empty = all teams
	Limit    int
	Offset   int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search over cards.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push cards into a search index.
type Indexer interface {
	IndexCard(rec CardRecord) error
	DeleteCard(id string) error
}

// CardRecord is the data we index for a card.
type CardRecord struct {
	ID        string `json:"id"`
	BoardID   string `json:"boardId"`
	BoardSlug string `json:"boardSlug"`
	Content   string `json:"content"`
	Author    string `json:"author,omitempty"`
	TeamName  string `json:"teamName,omitempty"`
}
