package remote

import (
	"context"

	"github.com/patrickmn/go-cache"
)

const documentsKey = "documents"

// DocumentInfo is one entry of the server's document listing.
type DocumentInfo struct {
	ID       int    `json:"id"`
	Filename string `json:"filename"`
}

// Health is the server's health report.
type Health struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Documents lists documents known to the server. Results are cached for
// the configured TTL; a successful Ingest invalidates the cache.
func (c *Client) Documents(ctx context.Context) ([]DocumentInfo, error) {
	if cached, ok := c.cache.Get(documentsKey); ok {
		return cached.([]DocumentInfo), nil
	}

	var docs []DocumentInfo
	if err := c.getJSON(ctx, "/documents", &docs); err != nil {
		return nil, err
	}
	c.cache.Set(documentsKey, docs, cache.DefaultExpiration)
	return docs, nil
}

// RefreshDocuments drops the cached listing so the next Documents call
// hits the server.
func (c *Client) RefreshDocuments() {
	c.cache.Delete(documentsKey)
}

// Health queries the server's health endpoint.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.getJSON(ctx, "/health", &h); err != nil {
		return nil, err
	}
	return &h, nil
}
