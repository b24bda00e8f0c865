package featurestore

import "sort"

// Record is one user's precomputed feature vector. Field names are defined by
// the precomputation job; the store only guarantees that every record it holds
// shares the same field set.
type Record map[string]float64

// Clone returns an independent copy of r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Fields returns the sorted field names of r.
func (r Record) Fields() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
