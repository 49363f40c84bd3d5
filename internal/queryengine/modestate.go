package queryengine

import (
	"fmt"

	"go.etcd.io/bbolt"

	searcherrors "github.com/mia-cx/docsearch/internal/errors"
)

var uiStateBucket = []byte("ui_state")

// modeKey is the persisted UI mode store's sole key, per the shared-
// resource policy: "the UI owns the mode state (persisted to a
// key-value store keyed search:mode)".
const modeKey = "search:mode"

// ModeStore persists the REPL's lexical/semantic mode choice across
// runs, backed by the same bbolt file family as AssetCache but a
// distinct bucket so the two concerns don't collide on keys.
type ModeStore struct {
	db *bbolt.DB
}

// OpenModeStore opens (creating if absent) a bbolt database at path.
func OpenModeStore(path string) (*ModeStore, error) {
	db, err := bbolt.Open(path, 0o644, nil)
	if err != nil {
		return nil, searcherrors.Cache(fmt.Sprintf("open mode store %s", path), err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(uiStateBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, searcherrors.Cache("create ui_state bucket", err)
	}
	return &ModeStore{db: db}, nil
}

// Mode returns the persisted mode ("lexical" or "semantic"), or
// fallback if nothing has been persisted yet.
func (s *ModeStore) Mode(fallback string) string {
	var value string
	_ = s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(uiStateBucket).Get([]byte(modeKey)); v != nil {
			value = string(v)
		}
		return nil
	})
	if value == "" {
		return fallback
	}
	return value
}

// SetMode persists mode ("lexical" or "semantic").
func (s *ModeStore) SetMode(mode string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(uiStateBucket).Put([]byte(modeKey), []byte(mode))
	})
	if err != nil {
		return searcherrors.Cache("persist search mode", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *ModeStore) Close() error {
	return s.db.Close()
}
