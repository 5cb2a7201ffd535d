package charts

import (
	"errors"
	"fmt"

	"chartdash/internal/models"
)

var (
	// ErrIndexOutOfRange is returned for a position outside [0, Len())
	ErrIndexOutOfRange = errors.New("chart index out of range")
	// ErrKindMismatch is returned when a configuration variant does not
	// match the kind of the entry it is stored into
	ErrKindMismatch = errors.New("configuration does not match chart kind")
)

// Store is the ordered collection of chart entries of one session. Positions
// are display order; removing an entry shifts later entries down by one, so
// callers must not hold indexes across a RemoveAt.
//
// Store is not safe for concurrent use; the owning session serializes access.
type Store struct {
	entries []models.ChartEntry
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{}
}

// Append adds a chart of the given kind with an empty configuration and
// returns its position
func (s *Store) Append(kind models.ChartKind) int {
	s.entries = append(s.entries, models.ChartEntry{
		Kind:   kind,
		Config: models.NewConfig(kind),
	})
	return len(s.entries) - 1
}

// RemoveAt deletes the entry at index
func (s *Store) RemoveAt(index int) error {
	if err := s.check(index); err != nil {
		return err
	}
	s.entries = append(s.entries[:index], s.entries[index+1:]...)
	return nil
}

// Update replaces the configuration of the entry at index
func (s *Store) Update(index int, cfg models.ChartConfig) error {
	if err := s.check(index); err != nil {
		return err
	}
	if cfg == nil || cfg.Kind() != s.entries[index].Kind {
		got := "nil"
		if cfg != nil {
			got = string(cfg.Kind())
		}
		return fmt.Errorf("%w: entry %d is %s, got %s", ErrKindMismatch, index, s.entries[index].Kind, got)
	}
	s.entries[index].Config = cfg
	return nil
}

// ResetConfig empties the configuration of the entry at index so every field
// falls back to its default on the next resolution
func (s *Store) ResetConfig(index int) error {
	if err := s.check(index); err != nil {
		return err
	}
	s.entries[index].Config = models.NewConfig(s.entries[index].Kind)
	return nil
}

// Len returns the number of entries
func (s *Store) Len() int {
	return len(s.entries)
}

// At returns the entry at index
func (s *Store) At(index int) (models.ChartEntry, error) {
	if err := s.check(index); err != nil {
		return models.ChartEntry{}, err
	}
	return s.entries[index], nil
}

// Entries returns a snapshot of the entries in order
func (s *Store) Entries() []models.ChartEntry {
	return append([]models.ChartEntry(nil), s.entries...)
}

func (s *Store) check(index int) error {
	if index < 0 || index >= len(s.entries) {
		return fmt.Errorf("%w: %d (have %d)", ErrIndexOutOfRange, index, len(s.entries))
	}
	return nil
}
