// Package bolt is a BoltDB implementation of ContextManagement.
package bolt

import (
	"context"
	"sort"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/mwsobol/SORCER-sub002/core"
	"github.com/mwsobol/SORCER-sub002/storage"
	"github.com/mwsobol/SORCER-sub002/util"
)

// Buckets for each storage.Namespace.
var (
	ContextsBucket  = []byte("contexts")
	MethodsBucket   = []byte("methods")
	ProvidersBucket = []byte("providers")
)

type Storage struct {
	filename string
	db       *bbolt.DB
	logger   *zap.Logger
}

func NewStorage(filename string) (*Storage, error) {
	return &Storage{
		filename: filename,
		logger:   util.Logger(),
	}, nil
}

func bucketFor(name string) []byte {
	switch storage.NamespaceOf(name) {
	case storage.Method:
		return MethodsBucket
	case storage.Provider:
		return ProvidersBucket
	}
	return ContextsBucket
}

// Open opens (or creates) the database file and the buckets.
func (s *Storage) Open(ctx context.Context) error {
	opts := &bbolt.Options{
		Timeout: time.Second,
	}

	db, err := bbolt.Open(s.filename, 0644, opts)
	if err != nil {
		return err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{ContextsBucket, MethodsBucket, ProvidersBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return err
	}
	s.db = db
	return nil
}

func (s *Storage) Close(ctx context.Context) error {
	return s.db.Close()
}

func (s *Storage) GetContext(ctx context.Context, name string) (*core.ServiceContext, error) {
	s.logger.Debug("GetContext", zap.String("name", name))
	var js []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		bs := tx.Bucket(bucketFor(name)).Get([]byte(name))
		if bs == nil {
			return storage.ErrNotFound
		}
		// Bolt's bytes are only valid in the transaction.
		js = append([]byte(nil), bs...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return storage.Decode(js, s)
}

func (s *Storage) SaveContext(ctx context.Context, name string, c *core.ServiceContext) error {
	js, err := storage.Encode(c)
	if err != nil {
		return err
	}
	s.logger.Debug("SaveContext", zap.String("name", name), zap.Int("bytes", len(js)))
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketFor(name)).Put([]byte(name), js)
	})
}

func (s *Storage) DeleteContext(ctx context.Context, name string) error {
	s.logger.Debug("DeleteContext", zap.String("name", name))
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketFor(name))
		if b.Get([]byte(name)) == nil {
			return storage.ErrNotFound
		}
		return b.Delete([]byte(name))
	})
}

func (s *Storage) ContextNames(ctx context.Context) ([]string, error) {
	acc := make([]string, 0, 32)
	err := s.db.View(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{ContextsBucket, MethodsBucket, ProvidersBucket} {
			err := tx.Bucket(b).ForEach(func(k, _ []byte) error {
				acc = append(acc, string(k))
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
	sort.Strings(acc)
	return acc, nil
}
