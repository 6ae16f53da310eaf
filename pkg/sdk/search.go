package nlsearch

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// SearchRequest is one natural language query.
type SearchRequest struct {
	Query    string `json:"query"`
	Category string `json:"category,omitempty"`
	User     string `json:"user,omitempty"`
}

// SearchResult is the outcome of a successful search. Count carries
// the true match count; Results is the capped display subset.
type SearchResult struct {
	QueryID   int64  `json:"query_id"`
	Entity    string `json:"entity"`
	QueryType string `json:"query_type"`
	Executed  string `json:"executed"`
	Count     int    `json:"count"`
	Results   []Item `json:"results"`
}

// Item is one displayed result entry.
type Item struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
}

// Search runs a natural language query. The category selects the
// target entity for single-entity queries; cross-entity pattern
// queries ignore it.
func (c *Client) Search(ctx context.Context, req SearchRequest) (SearchResult, error) {
	var out SearchResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/search", req, &out); err != nil {
		return SearchResult{}, err
	}
	return out, nil
}

// QueryRecord is the audit view of one past search.
type QueryRecord struct {
	ID            int64         `json:"id"`
	Text          string        `json:"text"`
	Category      string        `json:"category"`
	User          string        `json:"user"`
	Entity        string        `json:"entity"`
	QueryType     string        `json:"query_type"`
	Status        string        `json:"status"`
	Executed      string        `json:"executed"`
	Substitutions []string      `json:"substitutions"`
	ResultCount   int           `json:"result_count"`
	ErrorMessage  string        `json:"error_message"`
	CreatedAt     time.Time     `json:"created_at"`
	Results       []QueryResult `json:"results"`
}

// QueryResult is one stored result row of a past search.
type QueryResult struct {
	Position    int    `json:"position"`
	RecordID    int64  `json:"record_id"`
	Entity      string `json:"entity"`
	DisplayName string `json:"display_name"`
}

// Query fetches the audit record of a past search by id.
func (c *Client) Query(ctx context.Context, id int64) (QueryRecord, error) {
	var out QueryRecord
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/queries/%d", id), nil, &out); err != nil {
		return QueryRecord{}, err
	}
	return out, nil
}
