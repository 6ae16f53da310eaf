// Package nlsearch provides a Go client for the nlsearch HTTP API,
// a natural language search service over business entity records.
//
//	client := nlsearch.New("http://localhost:8080",
//	    nlsearch.WithAPIKey("secret"),
//	)
//	out, err := client.Search(ctx, nlsearch.SearchRequest{
//	    Query:    "active products under 100",
//	    Category: "products",
//	})
//
// Pattern queries ("customers with more than 5 invoices") are resolved
// server-side without a language model round trip; everything else is
// translated to a filter by the configured model.
package nlsearch
