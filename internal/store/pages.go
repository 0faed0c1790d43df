package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/mmcdole/wardrobe/internal/domain"
)

var bucketPages = []byte("pages")

// pageRecord is the on-disk form of one cached page
type pageRecord struct {
	Key  domain.PageKey `json:"key"`
	Page domain.Page    `json:"page"`
	At   time.Time      `json:"fetched_at"`
}

// PageStore is the wardrobe page cache with an optional BoltDB mirror.
//
// Only authoritative fills reach disk. Optimistic updates, restores and
// invalidations stay in memory, so a crash mid-mutation can never persist
// speculative state. Pages loaded from disk start stale.
type PageStore struct {
	*Cache[domain.PageKey, domain.Page]

	db     *bolt.DB
	logger *slog.Logger
}

// NewMemoryPageStore returns a store with no persistence
func NewMemoryPageStore() *PageStore {
	return &PageStore{
		Cache:  New[domain.PageKey](domain.Page.Clone),
		logger: slog.Default(),
	}
}

// OpenPageStore opens the page store for serverURL under baseCacheDir.
// An empty baseCacheDir gives a memory-only store.
func OpenPageStore(baseCacheDir, serverURL string, logger *slog.Logger) (*PageStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if baseCacheDir == "" {
		s := NewMemoryPageStore()
		s.logger = logger
		return s, nil
	}

	dir := baseCacheDir
	if serverURL != "" {
		dir = filepath.Join(baseCacheDir, hashServerURL(serverURL))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "wardrobe.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPages)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &PageStore{
		Cache:  New[domain.PageKey](domain.Page.Clone),
		db:     db,
		logger: logger,
	}
	if err := s.load(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// hashServerURL keeps caches of different servers apart
func hashServerURL(serverURL string) string {
	normalized := strings.TrimRight(strings.ToLower(serverURL), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

// load reads every persisted page into memory as stale
func (s *PageStore) load() error {
	var loaded []pageRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPages)
		return b.ForEach(func(k, v []byte) error {
			var rec pageRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				s.logger.Warn("dropping unreadable cached page", "key", string(k), "error", err)
				return nil
			}
			loaded = append(loaded, rec)
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("failed to load cached pages: %w", err)
	}

	c := s.Cache
	c.mu.Lock()
	for _, rec := range loaded {
		c.putLocked(rec.Key, rec.Page, true)
	}
	c.mu.Unlock()

	s.logger.Debug("loaded cached pages", "count", len(loaded))
	return nil
}

// Persistent reports whether the store has a disk mirror
func (s *PageStore) Persistent() bool { return s.db != nil }

// Fill stores an authoritative page and mirrors it to disk when accepted
func (s *PageStore) Fill(k domain.PageKey, p domain.Page, gen uint64) bool {
	if !s.Cache.Fill(k, p, gen) {
		return false
	}
	if s.db == nil {
		return true
	}

	data, err := json.Marshal(pageRecord{Key: k, Page: p, At: time.Now()})
	if err == nil {
		err = s.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(bucketPages).Put([]byte(k.String()), data)
		})
	}
	if err != nil {
		s.logger.Warn("failed to persist page", "key", k.String(), "error", err)
	}
	return true
}

// DeleteFilter evicts every page under ns and filter from memory and disk
func (s *PageStore) DeleteFilter(ns string, filter domain.ItemFilter) {
	s.Cache.Delete(WithFilter(ns, filter))
	if s.db == nil {
		return
	}

	prefix := domain.PageKey{Namespace: ns, Filter: filter.Encode()}.Prefix()
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPages)
		c := b.Cursor()
		prefixBytes := []byte(prefix)
		var keys [][]byte
		for k, _ := c.Seek(prefixBytes); k != nil && strings.HasPrefix(string(k), prefix); k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("failed to delete cached pages", "prefix", prefix, "error", err)
	}
}

// Clear wipes memory and disk
func (s *PageStore) Clear() error {
	s.Cache.Delete(All[domain.PageKey]())
	if s.db == nil {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketPages); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketPages)
		return err
	})
}

func (s *PageStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
