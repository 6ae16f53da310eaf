package nlsearch

import (
	"context"
	"net/http"
)

// EntitySchema describes the searchable surface of one entity.
type EntitySchema struct {
	Entity         string        `json:"entity"`
	Description    string        `json:"description"`
	StoredFields   []SchemaField `json:"stored_fields"`
	ComputedFields []string      `json:"computed_fields"`
}

// SchemaField is one stored attribute of an entity.
type SchemaField struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Label    string `json:"label"`
	Relation string `json:"relation,omitempty"`
}

// Schema fetches the field listing for one entity.
func (c *Client) Schema(ctx context.Context, entity string) (EntitySchema, error) {
	var out EntitySchema
	if err := c.do(ctx, http.MethodGet, "/api/v1/schema/"+entity, nil, &out); err != nil {
		return EntitySchema{}, err
	}
	return out, nil
}

// Categories returns the category name to entity mapping plus the
// full entity list.
func (c *Client) Categories(ctx context.Context) (map[string]string, []string, error) {
	var out struct {
		Categories map[string]string `json:"categories"`
		Entities   []string          `json:"entities"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/categories", nil, &out); err != nil {
		return nil, nil, err
	}
	return out.Categories, out.Entities, nil
}
