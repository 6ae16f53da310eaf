package nlsearch

import (
	"context"
	"fmt"
	"net/http"
)

// RecordInput is one record in a bulk ingest request.
type RecordInput struct {
	ID     int64          `json:"id"`
	Values map[string]any `json:"values"`
}

// PutRecord stores one record. Attributes must be stored fields of the
// entity schema; computed fields are rejected.
func (c *Client) PutRecord(ctx context.Context, entity string, id int64, values map[string]any) error {
	path := fmt.Sprintf("/api/v1/records/%s/%d", entity, id)
	return c.do(ctx, http.MethodPut, path, map[string]any{"values": values}, nil)
}

// PutRecords stores a batch of records. The batch is all-or-nothing.
func (c *Client) PutRecords(ctx context.Context, entity string, records []RecordInput) (int, error) {
	var out struct {
		Stored int `json:"stored"`
	}
	path := "/api/v1/records/" + entity
	if err := c.do(ctx, http.MethodPost, path, map[string]any{"records": records}, &out); err != nil {
		return 0, err
	}
	return out.Stored, nil
}

// DeleteRecord removes one record.
func (c *Client) DeleteRecord(ctx context.Context, entity string, id int64) error {
	path := fmt.Sprintf("/api/v1/records/%s/%d", entity, id)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}
