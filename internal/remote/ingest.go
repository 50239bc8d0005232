package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// Ingest uploads content as a single multipart file field named "file".
// The server keys the document by name, so the name is sent unchanged.
// The body is built in memory so redirects can replay it.
func (c *Client) Ingest(ctx context.Context, name string, content io.Reader) error {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return fmt.Errorf("building upload: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("reading document: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("building upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/upload"), bytes.NewReader(body.Bytes()))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	if err := c.do(req, nil); err != nil {
		return err
	}

	// A new document changes the server's listing.
	c.cache.Delete(documentsKey)
	return nil
}
