package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/i474232898/yr-meteogram/internal/meteogram"
)

// fileFormatVersion is bumped when the on-disk layout changes.
const fileFormatVersion = 1

type fileDocument struct {
	Version int               `yaml:"version"`
	Entries []meteogram.Entry `yaml:"entries"`
}

// FileStore keeps entries in memory and persists every mutation to a YAML
// file. Writes go to a temp file that is renamed into place.
type FileStore struct {
	*MemoryStore
	path string
}

// NewFileStore loads path if it exists and returns a store backed by it.
func NewFileStore(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	s := &FileStore{
		MemoryStore: NewMemoryStore(),
		path:        path,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Add stores a new entry and persists the store.
func (s *FileStore) Add(e meteogram.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.addLocked(e); err != nil {
		return err
	}
	if err := s.saveLocked(); err != nil {
		delete(s.entries, e.ID)
		return err
	}
	return nil
}

// UpdateOptions replaces the options overlay of an entry and persists the store.
func (s *FileStore) UpdateOptions(id string, opts meteogram.Flags) (meteogram.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.entries[id]
	e, err := s.updateOptionsLocked(id, opts)
	if err != nil {
		return meteogram.Entry{}, err
	}
	if err := s.saveLocked(); err != nil {
		if ok {
			s.entries[id] = prev
		}
		return meteogram.Entry{}, err
	}
	return e, nil
}

// Delete removes an entry and persists the store.
func (s *FileStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.entries[id]
	if err := s.deleteLocked(id); err != nil {
		return err
	}
	if err := s.saveLocked(); err != nil {
		if ok {
			s.entries[id] = prev
		}
		return err
	}
	return nil
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", s.path, err)
	}

	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode %s: %w", s.path, err)
	}
	if doc.Version > fileFormatVersion {
		return fmt.Errorf("decode %s: unsupported version %d", s.path, doc.Version)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range doc.Entries {
		if err := s.addLocked(e); err != nil {
			return fmt.Errorf("load %s: %w", s.path, err)
		}
	}
	return nil
}

func (s *FileStore) saveLocked() error {
	doc := fileDocument{
		Version: fileFormatVersion,
		Entries: s.listLocked(),
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode entries: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("rename %s: %w", tmpName, err)
	}
	return nil
}
