package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.etcd.io/bbolt"
)

const (
	BucketRuns = "runs"

	maxHistory = 100
)

type Store struct {
	db       *bbolt.DB
	filePath string
}

func NewStore() (*Store, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(home, ".surgesim")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return OpenStore(filepath.Join(dir, "history.db"))
}

func OpenStore(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}

	// Initialize Buckets
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BucketRuns))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		db:       db,
		filePath: path,
	}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Save(item HistoryItem) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketRuns))

		data, err := json.Marshal(item)
		if err != nil {
			return err
		}
		if err := b.Put([]byte(item.ID), data); err != nil {
			return err
		}
		return pruneLocked(b)
	})
}

// pruneLocked keeps the bucket bounded, dropping the oldest runs first.
func pruneLocked(b *bbolt.Bucket) error {
	items := decodeAll(b)
	if len(items) <= maxHistory {
		return nil
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Timestamp.Before(items[j].Timestamp)
	})
	for _, item := range items[:len(items)-maxHistory] {
		if err := b.Delete([]byte(item.ID)); err != nil {
			return err
		}
	}
	return nil
}

func decodeAll(b *bbolt.Bucket) []HistoryItem {
	var items []HistoryItem
	c := b.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var item HistoryItem
		if err := json.Unmarshal(v, &item); err == nil {
			items = append(items, item)
		}
	}
	return items
}

// List returns stored runs, newest first.
func (s *Store) List() []HistoryItem {
	var items []HistoryItem

	s.db.View(func(tx *bbolt.Tx) error {
		items = decodeAll(tx.Bucket([]byte(BucketRuns)))
		return nil
	})

	sort.Slice(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})
	return items
}

func (s *Store) Get(id string) (*HistoryItem, error) {
	var item HistoryItem
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketRuns))
		v := b.Get([]byte(id))
		if v == nil {
			return fmt.Errorf("item not found")
		}
		return json.Unmarshal(v, &item)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}
