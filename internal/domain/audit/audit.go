// Package audit holds the persistent trail of search executions: one
// query row per request plus a result row per displayed record.
package audit

import (
	"fmt"
	"time"

	"github.com/ovunque/nlsearch/internal/domain"
)

// Status is the lifecycle state of a search query row.
type Status string

// Query row states. Every row starts as draft and ends as success or
// error; failures on any path still land a terminal row.
const (
	StatusDraft   Status = "draft"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// QueryType records which interpretation path answered the search.
type QueryType string

// Interpretation paths.
const (
	TypePattern QueryType = "pattern"
	TypeFilter  QueryType = "filter"
	TypeSpec    QueryType = "spec"
)

// SearchQuery is one audited search execution.
type SearchQuery struct {
	id            int64
	text          string
	category      string
	user          string
	entity        string
	queryType     QueryType
	status        Status
	filterText    string
	rawResponse   string
	substitutions []string
	resultCount   int
	errorMessage  string
	createdAt     time.Time
}

// New builds a draft query row for a search that is about to run.
// Category and user may be empty.
func New(id int64, text, category, user string, now time.Time) (SearchQuery, error) {
	if id <= 0 {
		return SearchQuery{}, fmt.Errorf("%w: query id must be positive", domain.ErrValidation)
	}
	if text == "" {
		return SearchQuery{}, fmt.Errorf("%w: query text is required", domain.ErrValidation)
	}
	return SearchQuery{id: id, text: text, category: category, user: user, status: StatusDraft, createdAt: now.UTC()}, nil
}

// Reconstruct hydrates a query row from storage without validation.
func Reconstruct(id int64, text, category, user, entity string, queryType QueryType, status Status,
	filterText, rawResponse string, substitutions []string, resultCount int, errorMessage string,
	createdAt time.Time) SearchQuery {
	return SearchQuery{
		id:            id,
		text:          text,
		category:      category,
		user:          user,
		entity:        entity,
		queryType:     queryType,
		status:        status,
		filterText:    filterText,
		rawResponse:   rawResponse,
		substitutions: substitutions,
		resultCount:   resultCount,
		errorMessage:  errorMessage,
		createdAt:     createdAt,
	}
}

// ID returns the query row identifier.
func (q SearchQuery) ID() int64 { return q.id }

// Text returns the original natural-language query.
func (q SearchQuery) Text() string { return q.text }

// Category returns the requested entity category, if any.
func (q SearchQuery) Category() string { return q.category }

// User returns the requesting user, if known.
func (q SearchQuery) User() string { return q.user }

// Entity returns the resolved target entity type, if reached.
func (q SearchQuery) Entity() string { return q.entity }

// QueryType returns the interpretation path, if reached.
func (q SearchQuery) QueryType() QueryType { return q.queryType }

// Status returns the row state.
func (q SearchQuery) Status() Status { return q.status }

// FilterText returns the executed filter or spec in display form.
func (q SearchQuery) FilterText() string { return q.filterText }

// RawResponse returns the unparsed model reply, kept for audit.
func (q SearchQuery) RawResponse() string { return q.rawResponse }

// MultiModel reports whether the search correlated two entity types.
func (q SearchQuery) MultiModel() bool {
	return q.queryType == TypePattern || q.queryType == TypeSpec
}

// Substitutions returns the alias corrections applied during validation.
func (q SearchQuery) Substitutions() []string { return q.substitutions }

// ResultCount returns the true match count, before the display cap.
func (q SearchQuery) ResultCount() int { return q.resultCount }

// ErrorMessage returns the failure description for error rows.
func (q SearchQuery) ErrorMessage() string { return q.errorMessage }

// CreatedAt returns the row creation time.
func (q SearchQuery) CreatedAt() time.Time { return q.createdAt }

// WithContext records the interpretation context as soon as it is
// resolved so a later failure still lands it on the error row.
func (q SearchQuery) WithContext(entity string, queryType QueryType) SearchQuery {
	q.entity = entity
	q.queryType = queryType
	return q
}

// WithRawResponse attaches the unparsed model reply as soon as it is
// received, before parsing can fail.
func (q SearchQuery) WithRawResponse(raw string) SearchQuery {
	q.rawResponse = raw
	return q
}

// Succeed transitions the row to success with the execution outcome.
func (q SearchQuery) Succeed(entity string, queryType QueryType, filterText string, substitutions []string, resultCount int) SearchQuery {
	q.entity = entity
	q.queryType = queryType
	q.filterText = filterText
	q.substitutions = substitutions
	q.resultCount = resultCount
	q.status = StatusSuccess
	q.errorMessage = ""
	return q
}

// Fail transitions the row to error, keeping whatever interpretation
// context was reached before the failure.
func (q SearchQuery) Fail(entity string, queryType QueryType, message string) SearchQuery {
	if entity != "" {
		q.entity = entity
	}
	if queryType != "" {
		q.queryType = queryType
	}
	q.status = StatusError
	q.errorMessage = message
	return q
}

// SearchResult is one displayed record attached to a query row.
type SearchResult struct {
	queryID     int64
	position    int
	recordID    int64
	entity      string
	displayName string
}

// NewResult builds a result row. Position is the 1-based display rank.
func NewResult(queryID int64, position int, recordID int64, entity, displayName string) (SearchResult, error) {
	if queryID <= 0 || recordID <= 0 {
		return SearchResult{}, fmt.Errorf("%w: result ids must be positive", domain.ErrValidation)
	}
	if position <= 0 {
		return SearchResult{}, fmt.Errorf("%w: result position must be positive", domain.ErrValidation)
	}
	return SearchResult{queryID: queryID, position: position, recordID: recordID, entity: entity, displayName: displayName}, nil
}

// ReconstructResult hydrates a result row from storage.
func ReconstructResult(queryID int64, position int, recordID int64, entity, displayName string) SearchResult {
	return SearchResult{queryID: queryID, position: position, recordID: recordID, entity: entity, displayName: displayName}
}

// QueryID returns the owning query row identifier.
func (r SearchResult) QueryID() int64 { return r.queryID }

// Position returns the 1-based display rank.
func (r SearchResult) Position() int { return r.position }

// RecordID returns the matched record identifier.
func (r SearchResult) RecordID() int64 { return r.recordID }

// Entity returns the matched record's entity type.
func (r SearchResult) Entity() string { return r.entity }

// DisplayName returns the matched record's display name.
func (r SearchResult) DisplayName() string { return r.displayName }
