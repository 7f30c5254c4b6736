package persistence

import (
	"encoding/gob"
	"errors"
	"os"

	"github.com/active-inference/aifcore/aierrors"
)

var _ Store = (*FileStore)(nil)

// FileStore is a MemStore that loads its contents from a file at open
// and can flush them back, for single-process deployments with no
// Postgres instance. Grounded directly on main.go's
// os.Create/os.Open + gob.NewEncoder/NewDecoder round trip of a whole
// value to one file.
type FileStore struct {
	*MemStore
	path string
}

// OpenFileStore loads path into a new FileStore, or returns an empty
// one if path does not yet exist.
func OpenFileStore(path string) (*FileStore, error) {
	ms := NewMemStore()
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return &FileStore{MemStore: ms, path: path}, nil
	}
	if err != nil {
		return nil, aierrors.New(aierrors.ExternalFailure, "persistence.OpenFileStore", err)
	}
	defer f.Close()

	var data map[string][]byte
	if err := gob.NewDecoder(f).Decode(&data); err != nil {
		return nil, aierrors.New(aierrors.ExternalFailure, "persistence.OpenFileStore", err)
	}
	ms.importAll(data)
	return &FileStore{MemStore: ms, path: path}, nil
}

// Flush writes every stored snapshot to the FileStore's path,
// overwriting it.
func (f *FileStore) Flush() error {
	tmp, err := os.Create(f.path)
	if err != nil {
		return aierrors.New(aierrors.ExternalFailure, "persistence.FileStore.Flush", err)
	}
	defer tmp.Close()
	if err := gob.NewEncoder(tmp).Encode(f.exportAll()); err != nil {
		return aierrors.New(aierrors.ExternalFailure, "persistence.FileStore.Flush", err)
	}
	return nil
}
