// Package cas implements the build info store on top of bbolt.
package cas

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.etcd.io/bbolt"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.BuildInfoStore = (*Store)(nil)

// bucketName holds one record per destination, keyed by the destination path.
var bucketName = []byte("build_info")

// openTimeout bounds the wait for another kiln process holding the database lock.
const openTimeout = time.Second

// Store implements ports.BuildInfoStore with one bbolt database per project root,
// opened on first use at .kiln/state.db.
type Store struct {
	mu  sync.Mutex
	dbs map[string]*bbolt.DB
}

// NewStore creates a new Store.
func NewStore() *Store {
	return &Store{dbs: make(map[string]*bbolt.DB)}
}

// Get retrieves the build info for a destination. Returns nil, nil if not found.
func (s *Store) Get(root, destination string) (*domain.BuildInfo, error) {
	db, err := s.open(root)
	if err != nil {
		return nil, err
	}

	var data []byte
	err = db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketName).Get([]byte(destination)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrStoreReadFailed.Error())
	}
	if data == nil {
		return nil, nil
	}

	var info domain.BuildInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreUnmarshalFailed.Error()), "destination", destination)
	}
	return &info, nil
}

// Put stores the build info under its destination.
func (s *Store) Put(root string, info domain.BuildInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return zerr.Wrap(err, domain.ErrStoreMarshalFailed.Error())
	}

	db, err := s.open(root)
	if err != nil {
		return err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(info.Destination), data)
	})
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "destination", info.Destination)
	}
	return nil
}

// Delete forgets the build info of a destination.
func (s *Store) Delete(root, destination string) error {
	db, err := s.open(root)
	if err != nil {
		return err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(destination))
	})
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrStoreWriteFailed.Error()), "destination", destination)
	}
	return nil
}

// Close closes every database opened by the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for root, db := range s.dbs {
		if err := db.Close(); err != nil {
			errs = append(errs, zerr.With(err, "root", root))
		}
		delete(s.dbs, root)
	}
	return errors.Join(errs...)
}

func (s *Store) open(root string) (*bbolt.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if db, ok := s.dbs[root]; ok {
		return db, nil
	}

	path := domain.DefaultStatePath(root)
	if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreOpenFailed.Error()), "path", path)
	}

	db, err := bbolt.Open(path, domain.PrivateFilePerm, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreOpenFailed.Error()), "path", path)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreOpenFailed.Error()), "path", path)
	}

	s.dbs[root] = db
	return db, nil
}
