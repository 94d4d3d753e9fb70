package pkg

import (
	"fmt"

	"github.com/famvault/cli/internal/api"
	"github.com/famvault/cli/internal/logging"
	bolt "go.etcd.io/bbolt"
)

// ClICtrl owns the process-wide durable state (the bbolt database) and the
// collaborators built on top of it. One instance per process; everything
// that needs the cache, log or API client receives it from here instead of
// reaching for globals.
type ClICtrl struct {
	DB     *bolt.DB
	Client *api.Client
	Logger logging.Logger
}

func NewClICtrl(db *bolt.DB, client *api.Client, logger logging.Logger) (*ClICtrl, error) {
	c := &ClICtrl{
		DB:     db,
		Client: client,
		Logger: logger,
	}
	if err := c.initStores(); err != nil {
		return nil, fmt.Errorf("failed to initialize stores: %w", err)
	}
	return c, nil
}

// Close releases the underlying database.
func (c *ClICtrl) Close() error {
	return c.DB.Close()
}
