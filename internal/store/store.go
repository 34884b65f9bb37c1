// Package store holds the in-memory ticket collection: the single source of
// truth rendered by the UI. Records are keyed by id and kept in arrival
// order. Only the reconciliation engine writes to it, from one goroutine,
// so no locking is needed.
package store

import "github.com/tickwatch/tickwatch/internal/model"

// Store is an ordered, id-keyed ticket collection.
type Store struct {
	tickets []model.Ticket
	index   map[string]int
	revs    map[string]uint64
}

func New() *Store {
	return &Store{
		index: make(map[string]int),
		revs:  make(map[string]uint64),
	}
}

// Upsert inserts the record if its id is unknown, otherwise wholly replaces
// the stored record. Returns true when the record was appended.
func (s *Store) Upsert(t model.Ticket) bool {
	if i, ok := s.index[t.ID]; ok {
		s.tickets[i] = t
		s.revs[t.ID]++
		return false
	}
	s.index[t.ID] = len(s.tickets)
	s.tickets = append(s.tickets, t)
	s.revs[t.ID]++
	return true
}

// ReplaceAll swaps the whole collection for a bulk snapshot.
func (s *Store) ReplaceAll(tickets []model.Ticket) {
	s.tickets = make([]model.Ticket, 0, len(tickets))
	s.index = make(map[string]int, len(tickets))
	for _, t := range tickets {
		if _, ok := s.index[t.ID]; ok {
			// Duplicate id inside a snapshot: last record wins, same
			// rule as a repeated upsert.
			s.tickets[s.index[t.ID]] = t
			s.revs[t.ID]++
			continue
		}
		s.index[t.ID] = len(s.tickets)
		s.tickets = append(s.tickets, t)
		s.revs[t.ID]++
	}
}

// Get returns a copy of the ticket with the given id.
func (s *Store) Get(id string) (model.Ticket, bool) {
	i, ok := s.index[id]
	if !ok {
		return model.Ticket{}, false
	}
	return s.tickets[i], true
}

// List returns a copy of the collection in arrival order.
func (s *Store) List() []model.Ticket {
	out := make([]model.Ticket, len(s.tickets))
	copy(out, s.tickets)
	return out
}

func (s *Store) Len() int {
	return len(s.tickets)
}

// Rev returns a counter bumped on every accepted write to the given id.
// The view layer uses it to detect changes without diffing records.
func (s *Store) Rev(id string) uint64 {
	return s.revs[id]
}
