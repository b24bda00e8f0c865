// Package featurestore holds the immutable in-memory index from user id to
// precomputed feature record.
package featurestore

import (
	"fmt"
	"sort"

	"retention-proxy/internal/common/validation"
)

// Store is an immutable user id → Record mapping. It is safe for concurrent
// reads without synchronization; there is no way to mutate it after New.
type Store struct {
	records map[int64]Record
	ids     []int64
	fields  []string
}

// New builds a Store from records. Every record must carry exactly the same
// field set as the others. The input map is copied.
func New(records map[int64]Record) (*Store, error) {
	if len(records) == 0 {
		return Empty(), nil
	}

	ids := make([]int64, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	fields := records[ids[0]].Fields()
	schema, err := validation.Compile(validation.FeatureRecordSchema(fields))
	if err != nil {
		return nil, err
	}

	copied := make(map[int64]Record, len(records))
	for _, id := range ids {
		record := records[id]
		if len(record) != len(fields) {
			return nil, fmt.Errorf("user %d has %d fields, expected %d (%v)", id, len(record), len(fields), fields)
		}
		if result := schema.Validate(record); !result.Valid {
			return nil, fmt.Errorf("user %d: %w", id, result)
		}
		copied[id] = record.Clone()
	}

	return &Store{records: copied, ids: ids, fields: fields}, nil
}

// Empty returns a store with no users.
func Empty() *Store {
	return &Store{records: map[int64]Record{}}
}

// Lookup returns a copy of the record for id.
func (s *Store) Lookup(id int64) (Record, bool) {
	record, ok := s.records[id]
	if !ok {
		return nil, false
	}
	return record.Clone(), true
}

// IDs returns every loaded user id in ascending order. The order carries no
// meaning beyond being stable.
func (s *Store) IDs() []int64 {
	return append([]int64(nil), s.ids...)
}

// Len returns the number of users.
func (s *Store) Len() int {
	return len(s.records)
}

// IsEmpty reports whether no users are loaded.
func (s *Store) IsEmpty() bool {
	return len(s.records) == 0
}

// Fields returns the shared field set, sorted.
func (s *Store) Fields() []string {
	return append([]string(nil), s.fields...)
}
