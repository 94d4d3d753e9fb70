package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client talks to the FamVault server's REST API.
type Client struct {
	restClient *resty.Client
}

// Params configures a Client.
type Params struct {
	BaseURL  string
	Token    string
	DeviceID string
	Timeout  time.Duration
}

// DefaultTimeout bounds each individual API call; the engine supplies no
// global run timeout.
const DefaultTimeout = 60 * time.Second

func NewClient(p Params) *Client {
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(p.BaseURL, "/") + "/api/v1").
		SetTimeout(p.Timeout).
		SetHeader("User-Agent", "famvault-cli")
	if p.Token != "" {
		rc.SetAuthToken(p.Token)
	}
	if p.DeviceID != "" {
		rc.SetHeader("X-Device-ID", p.DeviceID)
	}
	return &Client{restClient: rc}
}

// ApiError is a non-2xx response from the server.
type ApiError struct {
	StatusCode int
	Message    string
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}
