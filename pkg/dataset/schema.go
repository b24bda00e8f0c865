// pkg/dataset/schema.go
package dataset

import "sort"

// Dataset is the on-disk format written by the feature precomputation job:
// a JSON object keyed by user id whose values are flat objects of numeric
// features, e.g. {"42": {"days": 3, "correct": 10, ...}}.
type Dataset map[string]map[string]float64

// Stats summarises a dataset.
type Stats struct {
	Users         int      `json:"users"`
	Fields        []string `json:"fields"`
	Inconsistent  []string `json:"inconsistent,omitempty"` // user ids whose field set differs from Fields
	NonNumericIDs []string `json:"nonNumericIds,omitempty"`
}

// FieldNames returns the sorted field names of a record.
func FieldNames(record map[string]float64) []string {
	names := make([]string, 0, len(record))
	for name := range record {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Keys returns the dataset keys in sorted order.
func (d Dataset) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
