package remote

import (
	"context"
)

type askRequest struct {
	Filename string `json:"filename"`
	Question string `json:"question"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

// Answer asks question about the document bound as filename.
func (c *Client) Answer(ctx context.Context, filename, question string) (string, error) {
	var resp askResponse
	if err := c.postJSON(ctx, "/ask", askRequest{Filename: filename, Question: question}, &resp); err != nil {
		return "", err
	}
	return resp.Answer, nil
}
