package featurestore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"retention-proxy/pkg/dataset"
)

// Source produces the raw user id → record mapping for a Store.
type Source interface {
	Load(ctx context.Context) (map[int64]Record, error)
	Name() string
}

// FileSource reads the JSON dataset written by the precomputation job.
type FileSource struct {
	Path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Name() string {
	return "file:" + s.Path
}

func (s *FileSource) Load(ctx context.Context) (map[int64]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ds, err := dataset.Read(s.Path)
	if err != nil {
		return nil, err
	}
	return FromDataset(ds)
}

// FromDataset converts the string-keyed on-disk form into records.
func FromDataset(ds dataset.Dataset) (map[int64]Record, error) {
	records := make(map[int64]Record, len(ds))
	for key, values := range ds {
		id, err := ParseUserID(key)
		if err != nil {
			return nil, fmt.Errorf("dataset key %q: %w", key, err)
		}
		if _, dup := records[id]; dup {
			return nil, fmt.Errorf("dataset key %q: duplicate user id %d", key, id)
		}
		records[id] = Record(values)
	}
	return records, nil
}

// ParseUserID parses a base-10 integer user id, ignoring surrounding spaces.
func ParseUserID(raw string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
}

func decodeRecord(raw []byte) (Record, error) {
	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("record is null")
	}
	return record, nil
}
