package supabase

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
)

// UploadObject writes data to the given storage bucket under path.
// The storage API answers 200 or 201 on success depending on whether the
// object already existed; both count as success here.
func (c *Client) UploadObject(ctx context.Context, bucket, path, contentType string, data []byte) error {
	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, bucket, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceRoleKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("uploading object %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return unexpectedStatus(resp)
	}
	return nil
}
