package database

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bloops-games/botmanager/internal/cache"
	"github.com/bloops-games/botmanager/internal/database"
	"github.com/bloops-games/botmanager/internal/database/identity/model"
	bolt "go.etcd.io/bbolt"
)

var ErrNotFound = errors.New("not found")

const bucket = "identities"

func New(db *database.DB, cache cache.Cache) *DB {
	return &DB{sDB: db, cache: cache}
}

type DB struct {
	sDB *database.DB

	cache cache.Cache
}

func (db *DB) Fetch(server string, slot int) (model.Identity, error) {
	key := model.Key(server, slot)
	if db.cache != nil {
		if v, ok := db.cache.Get(key); ok {
			return v.(model.Identity), nil
		}
	}

	var bytes []byte
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return ErrNotFound
		}

		if v := b.Get([]byte(key)); v != nil {
			bytes = make([]byte, len(v))
			copy(bytes, v)
		}
		return nil
	}); err != nil {
		return model.Identity{}, fmt.Errorf("view transaction error: %w", err)
	}

	if len(bytes) == 0 {
		return model.Identity{}, ErrNotFound
	}

	var m model.Identity
	if err := json.Unmarshal(bytes, &m); err != nil {
		return m, fmt.Errorf("unmarshal: %w", err)
	}

	if db.cache != nil {
		db.cache.Add(key, m)
	}

	return m, nil
}

func (db *DB) Store(m model.Identity) error {
	bytes, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}

		if err := b.Put([]byte(m.Key()), bytes); err != nil {
			return fmt.Errorf("put to bucket error: %w", err)
		}

		return nil
	}); err != nil {
		return fmt.Errorf("update transaction error: %w", err)
	}

	if db.cache != nil {
		db.cache.Add(m.Key(), m)
	}

	return nil
}
