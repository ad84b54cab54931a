// persist.go adapts the teacher's bbolt-backed PersistentCache
// (internal/anonymizer/cache.go) into a cross-run store for raw predictor
// model file bytes, so a worker doesn't re-read from disk a model file it
// has already loaded in a previous run. The stored bytes are not parsed
// rules; they are parsed again on each load.
//
// The teacher also layers an S3-FIFO eviction policy on top of bbolt
// (internal/anonymizer/s3fifo_cache.go) to bound memory for a PII value
// cache that sees continuous novel input. That eviction policy is dropped
// here, not adapted: the component contract is explicit that predictor
// models are "never evicted" for the run's lifetime, and the registry only
// ever holds a handful of named predictors (lang, nsfw, toxic,
// quality_c4, quality_wiki) — a bounded, known-small key set with no
// eviction pressure to manage. Only the simpler Get/Set/Close cache.go
// shape survives.
package predictor

import (
	"fmt"

	bolt "go.etcd.io/bbolt"
)

const rulesBucket = "predictor_rules"

// Store is the cross-run persistence interface a Registry may use to avoid
// re-reading from disk model files it has already loaded once.
type Store interface {
	Get(name string) (data []byte, ok bool)
	Set(name string, data []byte)
	Close() error
}

// bboltStore is a Store backed by an embedded bbolt database at a fixed
// path, created if absent.
type bboltStore struct {
	db *bolt.DB
}

// OpenStore opens (or creates) a bbolt-backed Store at path.
func OpenStore(path string) (Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("predictor: open store %q: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(rulesBucket))
		return err
	}); err != nil {
		db.Close() //nolint:errcheck // best-effort close on init failure
		return nil, fmt.Errorf("predictor: create bucket: %w", err)
	}
	return &bboltStore{db: db}, nil
}

func (s *bboltStore) Get(name string) ([]byte, bool) {
	var data []byte
	_ = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(rulesBucket))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(name)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	return data, data != nil
}

func (s *bboltStore) Set(name string, data []byte) {
	_ = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(rulesBucket))
		if b == nil {
			return fmt.Errorf("bucket %q not found", rulesBucket)
		}
		return b.Put([]byte(name), data)
	})
}

func (s *bboltStore) Close() error {
	return s.db.Close()
}
