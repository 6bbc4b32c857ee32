package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	itemBucket       = "items"
	expiryValueBytes = 8
)

var errBucketMissing = errors.New("item bucket missing")

// boltStore is a Store backed by a single bbolt bucket mapping item id to its
// expiry as big-endian unix seconds.
type boltStore struct {
	db              *bolt.DB
	itemTTL         time.Duration
	cleanupInterval time.Duration
	now             func() time.Time

	sweepMu   sync.Mutex
	lastSweep atomic.Int64
}

func openBolt(path string, opts Options) (Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(itemBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	store := &boltStore{
		db:              db,
		itemTTL:         opts.ItemTTL,
		cleanupInterval: opts.CleanupInterval,
		now:             time.Now,
	}
	store.lastSweep.Store(store.now().Unix())
	return store, nil
}

// Close closes the underlying database file.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// SeenItem reports whether id was marked and has not expired. An expired entry is
// deleted by the lookup.
func (b *boltStore) SeenItem(id string) (bool, error) {
	if b == nil || b.db == nil {
		return false, nil
	}
	now := b.now()
	if err := b.maybeSweep(now); err != nil {
		return false, err
	}

	var live bool
	err := b.update(func(bucket *bolt.Bucket) error {
		key := []byte(id)
		value := bucket.Get(key)
		if value == nil {
			return nil
		}
		if expired(value, now) {
			return bucket.Delete(key)
		}
		live = true
		return nil
	})
	return live, err
}

// MarkItem records id as published until now+TTL.
func (b *boltStore) MarkItem(id string) error {
	if b == nil || b.db == nil {
		return nil
	}
	now := b.now()
	if err := b.maybeSweep(now); err != nil {
		return err
	}

	return b.update(func(bucket *bolt.Bucket) error {
		return bucket.Put([]byte(id), encodeExpiry(now.Add(b.itemTTL)))
	})
}

// Len returns the number of stored ids, expired or not.
func (b *boltStore) Len() (int, error) {
	if b == nil || b.db == nil {
		return 0, nil
	}
	var n int
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(itemBucket))
		if bucket == nil {
			return errBucketMissing
		}
		n = bucket.Stats().KeyN
		return nil
	})
	return n, err
}

// maybeSweep deletes every expired id, at most once per cleanup interval.
func (b *boltStore) maybeSweep(now time.Time) error {
	if !b.sweepDue(now) {
		return nil
	}

	b.sweepMu.Lock()
	defer b.sweepMu.Unlock()
	if !b.sweepDue(now) {
		return nil
	}

	err := b.update(func(bucket *bolt.Bucket) error {
		c := bucket.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if !expired(v, now) {
				continue
			}
			if err := c.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		b.lastSweep.Store(now.Unix())
	}
	return err
}

func (b *boltStore) sweepDue(now time.Time) bool {
	return now.Sub(time.Unix(b.lastSweep.Load(), 0)) >= b.cleanupInterval
}

func (b *boltStore) update(fn func(*bolt.Bucket) error) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(itemBucket))
		if bucket == nil {
			return errBucketMissing
		}
		return fn(bucket)
	})
}

func encodeExpiry(t time.Time) []byte {
	buf := make([]byte, expiryValueBytes)
	binary.BigEndian.PutUint64(buf, uint64(t.Unix()))
	return buf
}

// decodeExpiry returns false for values that are not a positive 8-byte timestamp.
func decodeExpiry(value []byte) (time.Time, bool) {
	if len(value) != expiryValueBytes {
		return time.Time{}, false
	}
	unix := int64(binary.BigEndian.Uint64(value))
	if unix <= 0 {
		return time.Time{}, false
	}
	return time.Unix(unix, 0), true
}

// expired treats undecodable values as expired.
func expired(value []byte, now time.Time) bool {
	expiry, ok := decodeExpiry(value)
	return !ok || !expiry.After(now)
}
