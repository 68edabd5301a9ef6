package rip

import (
	"context"
	"os"
	"path/filepath"
)

// Store holds the archives a Run reads and writes.
type Store interface {
	ReadAll(ctx context.Context, key string) ([]byte, error)
	WriteAll(ctx context.Context, key string, data []byte) error
}

// FSStore is a Store on the local filesystem. Keys are paths,
// relative to Dir if it is set.
type FSStore struct {
	Dir string
}

func (s *FSStore) path(key string) string {
	if s.Dir == "" || filepath.IsAbs(key) {
		return key
	}

	return filepath.Join(s.Dir, key)
}

func (s *FSStore) ReadAll(_ context.Context, key string) ([]byte, error) {
	return os.ReadFile(s.path(key))
}

// WriteAll writes data to a temporary file next to key and renames it
// into place, so key never holds a partial archive.
func (s *FSStore) WriteAll(_ context.Context, key string, data []byte) error {
	name := s.path(key)

	tmp, err := os.CreateTemp(filepath.Dir(name), "."+filepath.Base(name)+".*")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}

	if err = tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return err
	}

	if err = tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), name)
}
