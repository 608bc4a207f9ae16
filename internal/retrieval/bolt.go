package retrieval

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var chunksBucket = []byte("chunks")

// BoltIndex persists a VectorStore to a bbolt file.
type BoltIndex struct {
	db *bbolt.DB
}

// OpenBoltIndex opens or creates the index file at path.
func OpenBoltIndex(path string) (*BoltIndex, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open index %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(chunksBucket); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", chunksBucket, err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltIndex{db: db}, nil
}

// Save writes every entry of store, replacing entries with the same id.
func (b *BoltIndex) Save(store *VectorStore) error {
	records := store.snapshot()
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(chunksBucket)
		for _, rec := range records {
			data, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("failed to marshal chunk %s: %w", rec.ID, err)
			}
			if err := bucket.Put([]byte(rec.ID), data); err != nil {
				return fmt.Errorf("failed to store chunk %s: %w", rec.ID, err)
			}
		}
		return nil
	})
}

// Load reads the whole index into a new store, in key order.
func (b *BoltIndex) Load() (*VectorStore, error) {
	store := NewVectorStore()
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(chunksBucket).ForEach(func(k, v []byte) error {
			var rec record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to decode chunk %s: %w", k, err)
			}
			return store.Upsert([]string{rec.ID}, [][]float64{rec.Vector}, []Metadata{rec.Metadata})
		})
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Close closes the index file.
func (b *BoltIndex) Close() error {
	return b.db.Close()
}
