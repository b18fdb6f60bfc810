package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/dbsmedya/godelegate/internal/logger"
	"github.com/dbsmedya/godelegate/internal/types"
)

var walletsBucket = []byte("wallets")

// BoltStore keeps wallets in an embedded bbolt file, one key per identity.
type BoltStore struct {
	db     *bolt.DB
	logger *logger.Logger
}

// OpenBolt opens or creates the wallet file at path.
func OpenBolt(path string, log *logger.Logger) (*BoltStore, error) {
	if log == nil {
		log = logger.NewDefault()
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open wallet store %s: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(walletsBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create wallet bucket: %w", err)
	}
	return &BoltStore{db: db, logger: log}, nil
}

// Load returns every stored wallet in key order.
func (s *BoltStore) Load(ctx context.Context) ([]types.KnownWallet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []types.KnownWallet
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(walletsBucket).ForEach(func(k, v []byte) error {
			var r record
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("wallet %s: %w", k, err)
			}
			known, err := r.known()
			if err != nil {
				return err
			}
			out = append(out, known)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load wallets: %w", err)
	}
	return out, nil
}

// Apply writes cs in one bbolt transaction.
func (s *BoltStore) Apply(ctx context.Context, cs types.ChangeSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cs.IsEmpty() {
		return nil
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(walletsBucket)

		for _, w := range cs.Upserts {
			key := []byte(w.Identity.Key())

			walletKey := uuid.NewString()
			if existing := b.Get(key); existing != nil {
				var prev record
				if err := json.Unmarshal(existing, &prev); err == nil && prev.WalletKey != "" {
					walletKey = prev.WalletKey
				}
			}

			value, err := json.Marshal(toRecord(walletKey, w))
			if err != nil {
				return err
			}
			if err := b.Put(key, value); err != nil {
				return fmt.Errorf("put %s: %w", w.Identity, err)
			}
		}

		for _, id := range cs.Deletions {
			if err := b.Delete([]byte(id.Key())); err != nil {
				return fmt.Errorf("delete %s: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to apply change set: %w", err)
	}

	s.logger.Infof("Applied %d upserts and %d deletions", len(cs.Upserts), len(cs.Deletions))
	return nil
}

// Close closes the file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
