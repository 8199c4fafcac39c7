package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrAmbiguousRef is returned when a short id prefix matches more than one
// stored instance.
var ErrAmbiguousRef = errors.New("ambiguous instance reference")

// FileStore persists the instance table as a single JSON file. Every
// convenience operation is a full load-mutate-save cycle; callers that need
// cross-operation atomicity must serialize above this layer.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// New creates a FileStore backed by the given path. The file is created
// lazily on first save.
func New(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the full table. A missing or corrupt file is treated as an
// empty table, not an error.
func (s *FileStore) Load() (Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FileStore) load() (Table, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Table{}, nil
		}
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}

	var table Table
	if err := json.Unmarshal(data, &table); err != nil {
		// Corrupt file self-heals on the next save.
		return Table{}, nil
	}
	if table == nil {
		table = Table{}
	}
	return table, nil
}

// Save writes the full table atomically: the new content goes to a temp
// file in the same directory, then replaces the store file by rename.
func (s *FileStore) Save(table Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(table)
}

func (s *FileStore) save(table Table) error {
	data, err := json.MarshalIndent(table, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".instances-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp store file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write temp store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp store file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}

// Append adds a new instance record under the given owner.
func (s *FileStore) Append(owner string, inst Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.load()
	if err != nil {
		return err
	}
	table[owner] = append(table[owner], inst)
	return s.save(table)
}

// RemoveByID deletes the record with the given full id from whichever owner
// holds it. Removing an absent id is not an error.
func (s *FileStore) RemoveByID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.load()
	if err != nil {
		return err
	}

	for owner, instances := range table {
		kept := instances[:0]
		for _, inst := range instances {
			if inst.ID != id {
				kept = append(kept, inst)
			}
		}
		if len(kept) == 0 {
			delete(table, owner)
		} else {
			table[owner] = kept
		}
	}
	return s.save(table)
}

// UpdateStatus sets the advisory status of the record with the given id.
func (s *FileStore) UpdateStatus(id string, status Status) error {
	return s.update(id, func(inst *Instance) {
		inst.Status = status
	})
}

// UpdateSessionEndpoint replaces the stored session endpoint of the record
// with the given id.
func (s *FileStore) UpdateSessionEndpoint(id, endpoint string) error {
	return s.update(id, func(inst *Instance) {
		inst.SessionEndpoint = endpoint
	})
}

func (s *FileStore) update(id string, mutate func(*Instance)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.load()
	if err != nil {
		return err
	}

	for owner := range table {
		for i := range table[owner] {
			if table[owner][i].ID == id {
				mutate(&table[owner][i])
			}
		}
	}
	return s.save(table)
}

// FindByRef resolves a full id or a short prefix to a stored record and
// its owner. An unmatched ref returns (nil, nil); a prefix matching more
// than one record returns ErrAmbiguousRef.
func (s *FileStore) FindByRef(ref string) (*Owned, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.load()
	if err != nil {
		return nil, err
	}

	var matches []Owned
	for owner, instances := range table {
		for _, inst := range instances {
			if inst.ID == ref {
				found := Owned{Owner: owner, Instance: inst}
				return &found, nil
			}
			if strings.HasPrefix(inst.ID, ref) {
				matches = append(matches, Owned{Owner: owner, Instance: inst})
			}
		}
	}

	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %q matches %d instances", ErrAmbiguousRef, ref, len(matches))
	}
}

// ListByOwner returns the records held by one owner.
func (s *FileStore) ListByOwner(owner string) ([]Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.load()
	if err != nil {
		return nil, err
	}
	return table[owner], nil
}

// Count returns the total number of stored instances across all owners.
func (s *FileStore) Count() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.load()
	if err != nil {
		return 0, err
	}

	var n int64
	for _, instances := range table {
		n += int64(len(instances))
	}
	return n, nil
}
