package audit

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ovunque/nlsearch/internal/domain/audit"
)

// queryToHash converts a query row to a map for HSET.
func queryToHash(q audit.SearchQuery) map[string]string {
	subs := "[]"
	if len(q.Substitutions()) > 0 {
		if b, err := json.Marshal(q.Substitutions()); err == nil {
			subs = string(b)
		}
	}
	return map[string]string{
		"text":          q.Text(),
		"category":      q.Category(),
		"user":          q.User(),
		"entity":        q.Entity(),
		"query_type":    string(q.QueryType()),
		"status":        string(q.Status()),
		"filter_text":   q.FilterText(),
		"raw_response":  q.RawResponse(),
		"substitutions": subs,
		"result_count":  strconv.Itoa(q.ResultCount()),
		"error_message": q.ErrorMessage(),
		"created_at":    strconv.FormatInt(q.CreatedAt().UnixMilli(), 10),
	}
}

// queryFromHash hydrates a query row from an HGETALL result map.
func queryFromHash(id int64, m map[string]string) (audit.SearchQuery, error) {
	createdAt, err := strconv.ParseInt(m["created_at"], 10, 64)
	if err != nil {
		return audit.SearchQuery{}, fmt.Errorf("invalid created_at: %w", err)
	}

	var subs []string
	if s := m["substitutions"]; s != "" {
		if err := json.Unmarshal([]byte(s), &subs); err != nil {
			return audit.SearchQuery{}, fmt.Errorf("unmarshal substitutions: %w", err)
		}
	}

	resultCount := 0
	if s := m["result_count"]; s != "" {
		if parsed, err := strconv.Atoi(s); err == nil {
			resultCount = parsed
		}
	}

	return audit.Reconstruct(
		id,
		m["text"],
		m["category"],
		m["user"],
		m["entity"],
		audit.QueryType(m["query_type"]),
		audit.Status(m["status"]),
		m["filter_text"],
		m["raw_response"],
		subs,
		resultCount,
		m["error_message"],
		time.UnixMilli(createdAt).UTC(),
	), nil
}

// resultToHash converts a result row to a map for HSET.
func resultToHash(res audit.SearchResult) map[string]string {
	return map[string]string{
		"position":     strconv.Itoa(res.Position()),
		"record_id":    strconv.FormatInt(res.RecordID(), 10),
		"entity":       res.Entity(),
		"display_name": res.DisplayName(),
	}
}

// resultFromHash hydrates a result row from an HGETALL result map.
func resultFromHash(queryID int64, m map[string]string) (audit.SearchResult, error) {
	position, err := strconv.Atoi(m["position"])
	if err != nil {
		return audit.SearchResult{}, fmt.Errorf("invalid position: %w", err)
	}
	recordID, err := strconv.ParseInt(m["record_id"], 10, 64)
	if err != nil {
		return audit.SearchResult{}, fmt.Errorf("invalid record_id: %w", err)
	}
	return audit.ReconstructResult(queryID, position, recordID, m["entity"], m["display_name"]), nil
}
