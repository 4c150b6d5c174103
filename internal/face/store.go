package face

import "sync"

// Store accumulates descriptor records for one run. Appends may come from
// parallel extraction workers; Snapshot must only be taken after all
// producers have finished, so the clustering stage sees the full corpus.
type Store struct {
	mu      sync.Mutex
	records []Record
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Add appends a record to the corpus.
func (s *Store) Add(desc Descriptor, sourcePath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, Record{Descriptor: desc, SourcePath: sourcePath})
}

// AddAll appends records preserving their order.
func (s *Store) AddAll(records []Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
}

// Len returns the number of accumulated records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Snapshot returns the accumulated records in insertion order. The returned
// slice is a copy; the store is not mutated afterwards in normal operation.
func (s *Store) Snapshot() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}
