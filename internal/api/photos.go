package api

import (
	"bytes"
	"context"
	"fmt"
)

// PhotoCheckRequest asks which fingerprints the server already stores
type PhotoCheckRequest struct {
	Hashes []string `json:"hashes"`
}

// PhotoCheckResponse partitions the requested fingerprints
type PhotoCheckResponse struct {
	Existing []string `json:"existing"`
	New      []string `json:"new"`
}

// PhotoUploadResponse is the server's answer to an upload. Status is
// "uploaded" for a fresh item or "duplicate" when the server already had
// the content; either way PhotoID identifies the stored photo.
type PhotoUploadResponse struct {
	PhotoID  string `json:"photo_id"`
	ThumbURL string `json:"thumb_url"`
	Status   string `json:"status"`
}

const (
	UploadStatusUploaded  = "uploaded"
	UploadStatusDuplicate = "duplicate"
)

// CheckDuplicates asks the server which of the given content fingerprints
// already exist. The request is a single batch; batching policy is the
// caller's concern.
func (c *Client) CheckDuplicates(ctx context.Context, hashes []string) (*PhotoCheckResponse, error) {
	var result PhotoCheckResponse
	r, err := c.restClient.R().
		SetContext(ctx).
		SetBody(PhotoCheckRequest{Hashes: hashes}).
		SetResult(&result).
		Post("/photos/check")

	if err != nil {
		return nil, fmt.Errorf("failed to check duplicates: %w", err)
	}

	if r.IsError() {
		return nil, &ApiError{
			StatusCode: r.StatusCode(),
			Message:    r.String(),
		}
	}

	return &result, nil
}

// UploadPhoto transfers one item's raw bytes as a multipart request with
// its precomputed fingerprint.
func (c *Client) UploadPhoto(ctx context.Context, fileName string, data []byte, hash string) (*PhotoUploadResponse, error) {
	var result PhotoUploadResponse
	r, err := c.restClient.R().
		SetContext(ctx).
		SetFileReader("file", fileName, bytes.NewReader(data)).
		SetFormData(map[string]string{"hash": hash}).
		SetResult(&result).
		Post("/photos/upload")

	if err != nil {
		return nil, fmt.Errorf("failed to upload photo: %w", err)
	}

	if r.IsError() {
		return nil, &ApiError{
			StatusCode: r.StatusCode(),
			Message:    r.String(),
		}
	}

	return &result, nil
}
