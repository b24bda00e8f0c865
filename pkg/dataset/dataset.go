// pkg/dataset/dataset.go
package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Read loads a dataset file.
func Read(path string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Decode(f)
}

// Decode parses a dataset from r. Non-numeric feature values and trailing
// garbage are rejected.
func Decode(r io.Reader) (Dataset, error) {
	dec := json.NewDecoder(r)

	var ds Dataset
	if err := dec.Decode(&ds); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("decode dataset: unexpected data after top-level object")
	}
	if ds == nil {
		return nil, fmt.Errorf("decode dataset: top-level value is null")
	}
	return ds, nil
}

// Write stores ds at path atomically (write to a temp file, then rename) so a
// watcher never observes a half-written file.
func Write(path string, ds Dataset) error {
	data, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".dataset-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Inspect computes Stats. The reference field set is taken from the first
// user id in sorted order.
func Inspect(ds Dataset) Stats {
	stats := Stats{Users: len(ds)}

	keys := ds.Keys()
	if len(keys) == 0 {
		return stats
	}

	stats.Fields = FieldNames(ds[keys[0]])
	reference := strings.Join(stats.Fields, "\x00")

	for _, key := range keys {
		if _, err := strconv.ParseInt(strings.TrimSpace(key), 10, 64); err != nil {
			stats.NonNumericIDs = append(stats.NonNumericIDs, key)
		}
		if strings.Join(FieldNames(ds[key]), "\x00") != reference {
			stats.Inconsistent = append(stats.Inconsistent, key)
		}
	}
	return stats
}
