package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// Keys under which the session is persisted.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// Storage is a string key-value store. Every write applies all of its keys
// or none of them.
type Storage interface {
	Load(keys ...string) (map[string]string, error)
	Save(values map[string]string) error
	Delete(keys ...string) error
	// Replace removes keys and writes values as one change. A key in both
	// ends up with its new value.
	Replace(values map[string]string, remove ...string) error
}

// FileStorage keeps the values as one JSON document. Every write replaces
// the file through a temporary file and a rename, so readers see either the
// old or the new document.
type FileStorage struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

// NewFileStorage stores values at path on fsys.
func NewFileStorage(fsys afero.Fs, path string) *FileStorage {
	return &FileStorage{fs: fsys, path: path}
}

func (s *FileStorage) Load(keys ...string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := all[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (s *FileStorage) Save(values map[string]string) error {
	return s.modify(func(all map[string]string) {
		for k, v := range values {
			all[k] = v
		}
	})
}

func (s *FileStorage) Delete(keys ...string) error {
	return s.modify(func(all map[string]string) {
		for _, k := range keys {
			delete(all, k)
		}
	})
}

func (s *FileStorage) Replace(values map[string]string, remove ...string) error {
	return s.modify(func(all map[string]string) {
		for _, k := range remove {
			delete(all, k)
		}
		for k, v := range values {
			all[k] = v
		}
	})
}

func (s *FileStorage) modify(fn func(map[string]string)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return err
	}
	fn(all)
	return s.write(all)
}

func (s *FileStorage) read() (map[string]string, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	all := make(map[string]string)
	if len(data) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return all, nil
}

func (s *FileStorage) write(all map[string]string) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := afero.TempFile(s.fs, dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		s.fs.Remove(name)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(name)
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := s.fs.Chmod(name, 0600); err != nil {
		s.fs.Remove(name)
		return fmt.Errorf("chmod %s: %w", name, err)
	}
	if err := s.fs.Rename(name, s.path); err != nil {
		s.fs.Remove(name)
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}
