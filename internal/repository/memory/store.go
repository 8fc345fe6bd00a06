// Package memory provides an in-memory TableStore used by the test suites
// and the memory store backend for local development.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/ndiasse/stockroom/internal/repository"
)

type table struct {
	rows    [][]string
	version uint64
}

// Store is a mutex-guarded map of tables with monotonically increasing
// per-table versions.
type Store struct {
	mu     sync.RWMutex
	tables map[string]*table
}

// Verify interface compliance.
var _ repository.TableStore = (*Store)(nil)

// NewStore builds an empty store. Tables spring into existence on first
// write, matching the sheet auto-creation behavior of the production backend.
func NewStore() *Store {
	return &Store{tables: map[string]*table{}}
}

// Seed replaces a table's contents without version checking. Test setup only.
func (s *Store) Seed(name string, rows [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.ensure(name)
	t.rows = cloneRows(rows)
	t.version++
}

// ReadAll returns a copy of the table's rows and its current version token.
// Reading a table that was never written yields an empty snapshot, the way an
// absent worksheet reads as empty in the original system.
func (s *Store) ReadAll(_ context.Context, name string) (*repository.TableSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[name]
	if !ok {
		return &repository.TableSnapshot{Table: name, Version: formatVersion(0)}, nil
	}

	return &repository.TableSnapshot{
		Table:   name,
		Rows:    cloneRows(t.rows),
		Version: formatVersion(t.version),
	}, nil
}

// WriteAll replaces the table's contents if the expected version still
// matches.
func (s *Store) WriteAll(_ context.Context, name string, rows [][]string, expect repository.Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.ensure(name)
	if formatVersion(t.version) != expect {
		return fmt.Errorf("table %s: %w", name, repository.ErrVersionConflict)
	}

	t.rows = cloneRows(rows)
	t.version++
	return nil
}

// Append adds rows to the end of the table. Appends never conflict.
func (s *Store) Append(_ context.Context, name string, rows ...[]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.ensure(name)
	t.rows = append(t.rows, cloneRows(rows)...)
	t.version++
	return nil
}

func (s *Store) ensure(name string) *table {
	t, ok := s.tables[name]
	if !ok {
		t = &table{}
		s.tables[name] = t
	}
	return t
}

func formatVersion(v uint64) repository.Version {
	return repository.Version(strconv.FormatUint(v, 10))
}

func cloneRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = append([]string(nil), row...)
	}
	return out
}
