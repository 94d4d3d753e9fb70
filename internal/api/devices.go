package api

import (
	"context"
	"fmt"
)

// Device is one paired client known to the server.
type Device struct {
	ID          string `json:"id"`
	DeviceName  string `json:"device_name"`
	DeviceType  string `json:"device_type"`
	DeviceModel string `json:"device_model"`
	Status      string `json:"status"`
	LastSeen    string `json:"last_seen"`
}

// ListDevices returns the paired devices for the authenticated user.
func (c *Client) ListDevices(ctx context.Context) ([]Device, error) {
	var result []Device
	r, err := c.restClient.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/devices")

	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	if r.IsError() {
		return nil, &ApiError{
			StatusCode: r.StatusCode(),
			Message:    r.String(),
		}
	}

	return result, nil
}
