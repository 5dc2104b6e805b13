package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/dgallion1/docoutline/internal/outline"
)

// ErrNotFound is returned when no result is stored for a hash.
var ErrNotFound = errors.New("result not found")

var bucketName = []byte("results")

// Record is a stored outline result keyed by the input's content hash.
type Record struct {
	Hash      string          `json:"content_hash"`
	Filename  string          `json:"filename"`
	CreatedAt time.Time       `json:"created_at"`
	Result    *outline.Result `json:"result"`
}

// Store persists results in a bbolt file so identical uploads are not
// reprocessed.
type Store struct {
	db *bolt.DB
}

// Open creates or opens the store at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores rec under rec.Hash, replacing any previous entry.
func (s *Store) Put(rec Record) error {
	if rec.Hash == "" {
		return errors.New("record has no content hash")
	}
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(rec.Hash), val)
	})
}

// Get returns the record for hash, or ErrNotFound.
func (s *Store) Get(hash string) (*Record, error) {
	var rec *Record
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get([]byte(hash))
		if v == nil {
			return ErrNotFound
		}
		rec = &Record{}
		return json.Unmarshal(v, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes the record for hash. Deleting a missing hash returns
// ErrNotFound.
func (s *Store) Delete(hash string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b.Get([]byte(hash)) == nil {
			return ErrNotFound
		}
		return b.Delete([]byte(hash))
	})
}

// List returns up to limit records in hash order. limit <= 0 means all.
func (s *Store) List(limit int) ([]Record, error) {
	var out []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketName).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if limit > 0 && len(out) >= limit {
				break
			}
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode record %s: %w", k, err)
			}
			out = append(out, rec)
		}
		return nil
	})
	return out, err
}

// ContentHash returns the hex SHA-256 of data.
func ContentHash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
