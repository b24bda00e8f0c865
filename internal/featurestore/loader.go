package featurestore

import (
	"context"

	apperrors "retention-proxy/internal/common/errors"
	"retention-proxy/internal/common/metrics"
)

// Load builds a Store from src. It never fails hard: when the dataset is
// missing or malformed it returns an empty store together with a
// DATASET_LOAD_FAILED error for the caller to report, so the process can keep
// serving /health.
func Load(ctx context.Context, src Source) (*Store, error) {
	records, err := src.Load(ctx)
	if err != nil {
		metrics.DatasetLoads.WithLabelValues(src.Name(), "failure").Inc()
		return Empty(), apperrors.NewDatasetLoadFailedError(src.Name(), err)
	}

	store, err := New(records)
	if err != nil {
		metrics.DatasetLoads.WithLabelValues(src.Name(), "failure").Inc()
		return Empty(), apperrors.NewDatasetLoadFailedError(src.Name(), err)
	}

	metrics.DatasetLoads.WithLabelValues(src.Name(), "success").Inc()
	return store, nil
}
