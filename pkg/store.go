package pkg

import (
	"fmt"
	"log"
	"time"

	"github.com/famvault/cli/pkg/model"
	bolt "go.etcd.io/bbolt"
)

// rootBucket holds all client state for this installation.
const rootBucket = "famvault"

func GetDB(path string) (*bolt.DB, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		log.Fatal(fmt.Sprintf("Failed to open db %s ", path), err)
	}
	return db, err
}

// initStores creates the root bucket and the named sub-buckets.
func (c *ClICtrl) initStores() error {
	return c.DB.Update(func(tx *bolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists([]byte(rootBucket))
		if err != nil {
			return fmt.Errorf("failed to create root bucket: %w", err)
		}
		for _, store := range []model.SyncStore{model.KVConfig, model.SyncState} {
			if _, err := root.CreateBucketIfNotExists([]byte(store)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", store, err)
			}
		}
		return nil
	})
}

func getStore(tx *bolt.Tx, storeType model.SyncStore) (*bolt.Bucket, error) {
	root := tx.Bucket([]byte(rootBucket))
	if root == nil {
		return nil, fmt.Errorf("root bucket not found")
	}
	store := root.Bucket([]byte(storeType))
	if store == nil {
		return nil, fmt.Errorf("store %s not found", storeType)
	}
	return store, nil
}

// GetValue reads one key from a named store; nil means absent.
func (c *ClICtrl) GetValue(store model.SyncStore, key []byte) ([]byte, error) {
	var value []byte
	err := c.DB.View(func(tx *bolt.Tx) error {
		bucket, err := getStore(tx, store)
		if err != nil {
			return err
		}
		if v := bucket.Get(key); v != nil {
			value = append([]byte(nil), v...)
		}
		return nil
	})
	return value, err
}

// PutValue writes one key into a named store.
func (c *ClICtrl) PutValue(store model.SyncStore, key []byte, value []byte) error {
	return c.DB.Update(func(tx *bolt.Tx) error {
		bucket, err := getStore(tx, store)
		if err != nil {
			return err
		}
		return bucket.Put(key, value)
	})
}

// DeleteValue removes one key from a named store.
func (c *ClICtrl) DeleteValue(store model.SyncStore, key []byte) error {
	return c.DB.Update(func(tx *bolt.Tx) error {
		bucket, err := getStore(tx, store)
		if err != nil {
			return err
		}
		return bucket.Delete(key)
	})
}

// GetConfigValue reads a string from the config store; "" means absent.
func (c *ClICtrl) GetConfigValue(key string) (string, error) {
	value, err := c.GetValue(model.KVConfig, []byte(key))
	if err != nil {
		return "", err
	}
	return string(value), nil
}

// PutConfigValue writes a string into the config store.
func (c *ClICtrl) PutConfigValue(key string, value string) error {
	return c.PutValue(model.KVConfig, []byte(key), []byte(value))
}

// ClearSyncState drops and recreates the sync-state store. This is the
// explicit user-initiated reset, the only path that ever removes cache
// mappings or log entries.
func (c *ClICtrl) ClearSyncState() error {
	return c.DB.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket([]byte(rootBucket))
		if root == nil {
			return fmt.Errorf("root bucket not found")
		}
		if err := root.DeleteBucket([]byte(model.SyncState)); err != nil && err != bolt.ErrBucketNotFound {
			return fmt.Errorf("failed to drop sync state: %w", err)
		}
		_, err := root.CreateBucketIfNotExists([]byte(model.SyncState))
		return err
	})
}

// boltKV adapts the sync-state store to the engine's KeyValueStore.
type boltKV struct {
	ctrl *ClICtrl
}

func (s *boltKV) Get(key string) ([]byte, error) {
	return s.ctrl.GetValue(model.SyncState, []byte(key))
}

func (s *boltKV) Set(key string, value []byte) error {
	return s.ctrl.PutValue(model.SyncState, []byte(key), value)
}
