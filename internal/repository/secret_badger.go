package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/hlgate/hlgate/internal/model"
	"github.com/hlgate/hlgate/internal/pkg/apperrors"
)

const (
	secretPrefix  = "secret/"
	accountPrefix = "account/"
	apiKeyPrefix  = "apikey/"
)

// BadgerStore is a local KV for encrypted secrets and, when no database is
// configured, for accounts. Values are EncryptedSecret JSON, so the store
// never sees plaintext keys even without badger's own encryption.
type BadgerStore struct {
	db *badger.DB
}

type BadgerOptions struct {
	Path string
	// InMemory ignores Path. Used by tests and dry runs.
	InMemory bool
	// EncryptionKey enables badger's at-rest encryption. Must be 16, 24 or 32 bytes.
	EncryptionKey []byte
}

func OpenBadgerStore(opts BadgerOptions) (*BadgerStore, error) {
	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if strings.TrimSpace(opts.Path) == "" {
			return nil, apperrors.NewConfiguration("secrets.path is required")
		}
		bopts = badger.DefaultOptions(opts.Path)
	}
	bopts = bopts.WithLogger(nil)
	if len(opts.EncryptionKey) > 0 {
		bopts = bopts.
			WithEncryptionKey(opts.EncryptionKey).
			WithIndexCacheSize(100 << 20)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open secret store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *BadgerStore) get(key string) ([]byte, bool, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// --- Named secrets ---

func (s *BadgerStore) PutSecret(name, encrypted string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperrors.NewInvalidRequest("secret name is empty")
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(secretPrefix+name), []byte(encrypted))
	})
}

func (s *BadgerStore) GetSecret(name string) (string, bool, error) {
	val, ok, err := s.get(secretPrefix + strings.TrimSpace(name))
	return string(val), ok, err
}

func (s *BadgerStore) DeleteSecret(name string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(secretPrefix + strings.TrimSpace(name)))
	})
}

// ListSecrets returns secret names in key order.
func (s *BadgerStore) ListSecrets() ([]string, error) {
	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(secretPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			names = append(names, strings.TrimPrefix(string(it.Item().Key()), secretPrefix))
		}
		return nil
	})
	return names, err
}

// --- Accounts ---

func (s *BadgerStore) GetByID(_ context.Context, id string) (*model.Account, error) {
	raw, ok, err := s.get(accountPrefix + id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAccountNotFound
	}
	var a model.Account
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode account %s: %w", id, err)
	}
	return &a, nil
}

func (s *BadgerStore) GetByAPIKey(ctx context.Context, apiKey string) (*model.Account, error) {
	id, ok, err := s.get(apiKeyPrefix + apiKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAccountNotFound
	}
	return s.GetByID(ctx, string(id))
}

func (s *BadgerStore) List(_ context.Context, limit, offset int) ([]*model.Account, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	var all []*model.Account
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(accountPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var a model.Account
				if err := json.Unmarshal(val, &a); err != nil {
					return err
				}
				all = append(all, &a)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if offset >= len(all) {
		return []*model.Account{}, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *BadgerStore) Create(_ context.Context, a *model.Account) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(accountPrefix + a.ID)); err == nil {
			return apperrors.NewInvalidRequest("account " + a.ID + " already exists")
		}
		if _, err := txn.Get([]byte(apiKeyPrefix + a.APIKey)); err == nil {
			return apperrors.NewInvalidRequest("api key is already in use")
		}
		if err := txn.Set([]byte(accountPrefix+a.ID), payload); err != nil {
			return err
		}
		return txn.Set([]byte(apiKeyPrefix+a.APIKey), []byte(a.ID))
	})
}

func (s *BadgerStore) Update(_ context.Context, a *model.Account) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(accountPrefix + a.ID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrAccountNotFound
		}
		if err != nil {
			return err
		}
		var prev model.Account
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &prev) }); err != nil {
			return err
		}
		if prev.APIKey != a.APIKey {
			if err := txn.Delete([]byte(apiKeyPrefix + prev.APIKey)); err != nil {
				return err
			}
		}
		if err := txn.Set([]byte(accountPrefix+a.ID), payload); err != nil {
			return err
		}
		return txn.Set([]byte(apiKeyPrefix+a.APIKey), []byte(a.ID))
	})
}

func (s *BadgerStore) Delete(_ context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(accountPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrAccountNotFound
		}
		if err != nil {
			return err
		}
		var prev model.Account
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &prev) }); err != nil {
			return err
		}
		if err := txn.Delete([]byte(apiKeyPrefix + prev.APIKey)); err != nil {
			return err
		}
		return txn.Delete([]byte(accountPrefix + id))
	})
}
