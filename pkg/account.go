package pkg

import (
	"fmt"

	"github.com/famvault/cli/pkg/model"
	"github.com/google/uuid"
	"github.com/zalando/go-keyring"
)

const keyringService = "famvault-cli"

// SetEndpoint stores the server base URL.
func (c *ClICtrl) SetEndpoint(endpoint string) error {
	return c.PutConfigValue(model.EndpointConfigKey, endpoint)
}

// Endpoint returns the configured server base URL, "" when unset.
func (c *ClICtrl) Endpoint() (string, error) {
	return c.GetConfigValue(model.EndpointConfigKey)
}

// SetToken stores the API token in the OS keyring, falling back to the
// config store on headless hosts without a keyring daemon.
func (c *ClICtrl) SetToken(token string) error {
	if err := keyring.Set(keyringService, "apiToken", token); err == nil {
		return nil
	}
	return c.PutConfigValue(model.TokenConfigKey, token)
}

// Token returns the stored API token, preferring the OS keyring.
func (c *ClICtrl) Token() (string, error) {
	if token, err := keyring.Get(keyringService, "apiToken"); err == nil && token != "" {
		return token, nil
	}
	return c.GetConfigValue(model.TokenConfigKey)
}

// EnsureDeviceID returns this installation's stable device id, generating
// and persisting one on first use.
func (c *ClICtrl) EnsureDeviceID() (string, error) {
	id, err := c.GetConfigValue(model.DeviceIDConfigKey)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}
	id = uuid.NewString()
	if err := c.PutConfigValue(model.DeviceIDConfigKey, id); err != nil {
		return "", fmt.Errorf("failed to persist device id: %w", err)
	}
	return id, nil
}
