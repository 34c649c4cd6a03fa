package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	bolt "go.etcd.io/bbolt"
)

var scoresBucket = []byte("scores")

// BoltStore keeps the leaderboard in a bbolt file so it survives restarts.
type BoltStore struct {
	db *bolt.DB
}

func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open leaderboard db %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(scoresBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (b *BoltStore) Merge(ctx context.Context, entries []Entry, capacity int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(scoresBucket)
		for _, e := range entries {
			key := []byte(e.Name)
			if raw := bucket.Get(key); raw != nil {
				var cur Entry
				if err := msgpack.Unmarshal(raw, &cur); err == nil && cur.Score >= e.Score {
					continue
				}
			}
			raw, err := msgpack.Marshal(e)
			if err != nil {
				return err
			}
			if err := bucket.Put(key, raw); err != nil {
				return err
			}
		}

		all, err := readAll(bucket)
		if err != nil || len(all) <= capacity {
			return err
		}
		for _, e := range rank(all, -1)[capacity:] {
			if err := bucket.Delete([]byte(e.Name)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *BoltStore) Top(ctx context.Context, n int) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var top []Entry
	err := b.db.View(func(tx *bolt.Tx) error {
		all, err := readAll(tx.Bucket(scoresBucket))
		if err != nil {
			return err
		}
		top = rank(all, n)
		return nil
	})
	return top, err
}

func (b *BoltStore) Close() error {
	return b.db.Close()
}

func readAll(bucket *bolt.Bucket) ([]Entry, error) {
	all := make([]Entry, 0)
	err := bucket.ForEach(func(k, v []byte) error {
		var e Entry
		if err := msgpack.Unmarshal(v, &e); err != nil {
			return fmt.Errorf("decode score %q: %w", k, err)
		}
		all = append(all, e)
		return nil
	})
	return all, err
}
