package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListDevices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/devices", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]Device{
			{ID: "dev-1", DeviceName: "Kitchen laptop", DeviceType: "cli", Status: "paired"},
			{ID: "dev-2", DeviceName: "Phone", DeviceType: "mobile", Status: "paired", LastSeen: "2026-08-30T10:00:00"},
		})
	}))
	defer server.Close()

	client := NewClient(Params{BaseURL: server.URL, Token: "tok"})
	devices, err := client.ListDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "Kitchen laptop", devices[0].DeviceName)
	assert.Equal(t, "2026-08-30T10:00:00", devices[1].LastSeen)
}
