package queryengine

import (
	"fmt"

	"go.etcd.io/bbolt"

	searcherrors "github.com/mia-cx/docsearch/internal/errors"
)

var assetBucket = []byte("assets")

// AssetCache is the persistent key-value store keyed by content hash
// (hex SHA-256) that the worker consults before re-fetching a shard or
// graph blob. Backed by go.etcd.io/bbolt, promoted here from an
// indirect dependency of the teacher's search-engine stack to a
// first-class one: this is exactly the embedded, single-writer KV
// store the asset cache design calls for.
type AssetCache struct {
	db *bbolt.DB
}

// OpenAssetCache opens (creating if absent) a bbolt database at path.
func OpenAssetCache(path string) (*AssetCache, error) {
	db, err := bbolt.Open(path, 0o644, nil)
	if err != nil {
		return nil, searcherrors.Cache(fmt.Sprintf("open asset cache %s", path), err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(assetBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, searcherrors.Cache("create asset bucket", err)
	}
	return &AssetCache{db: db}, nil
}

// Get returns the cached bytes for contentHash, or ok=false on a miss.
// A read failure is returned as a CacheError; the loader treats it as
// a cache miss and re-fetches, so it is never fatal.
func (c *AssetCache) Get(contentHash string) (data []byte, ok bool, err error) {
	err = c.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(assetBucket).Get([]byte(contentHash))
		if v != nil {
			data = append([]byte(nil), v...)
			ok = true
		}
		return nil
	})
	if err != nil {
		return nil, false, searcherrors.Cache("read asset cache", err)
	}
	return data, ok, nil
}

// Put stores data under contentHash.
func (c *AssetCache) Put(contentHash string, data []byte) error {
	err := c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(assetBucket).Put([]byte(contentHash), data)
	})
	if err != nil {
		return searcherrors.Cache("write asset cache", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (c *AssetCache) Close() error {
	return c.db.Close()
}
