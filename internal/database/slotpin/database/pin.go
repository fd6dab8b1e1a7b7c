package database

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bloops-games/botmanager/internal/database"
	"github.com/bloops-games/botmanager/internal/database/slotpin/model"
	bolt "go.etcd.io/bbolt"
)

var ErrNotFound = errors.New("not found")

const bucket = "slot_pins"

func New(db *database.DB) *DB {
	return &DB{sDB: db}
}

type DB struct {
	sDB *database.DB
}

// FetchAll returns every persisted pin keyed by server name.
func (db *DB) FetchAll() (map[string]model.Pin, error) {
	pins := make(map[string]model.Pin)
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}

		return b.ForEach(func(k, v []byte) error {
			var p model.Pin
			if err := json.Unmarshal(v, &p); err != nil {
				return fmt.Errorf("json unmarshal error %s: %w", k, err)
			}
			pins[string(k)] = p
			return nil
		})
	}); err != nil {
		return nil, fmt.Errorf("view transaction error: %w", err)
	}

	return pins, nil
}

func (db *DB) Store(p model.Pin) error {
	bytes, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucket))
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}

		return b.Put([]byte(p.Server), bytes)
	}); err != nil {
		return fmt.Errorf("update transaction error: %w", err)
	}

	return nil
}

// Delete removes the pin of server. Deleting a missing pin is not an error.
func (db *DB) Delete(server string) error {
	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}

		return b.Delete([]byte(server))
	}); err != nil {
		return fmt.Errorf("update transaction error: %w", err)
	}

	return nil
}
