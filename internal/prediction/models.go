// internal/prediction/models.go
package prediction

import (
	"context"

	"retention-proxy/internal/featurestore"
	"retention-proxy/internal/inference"
)

// FeatureLookup is the read-only view of the feature store the service needs.
type FeatureLookup interface {
	Lookup(id int64) (featurestore.Record, bool)
}

// Predictor forwards a feature record to the inference service.
type Predictor interface {
	Predict(ctx context.Context, features featurestore.Record) (*inference.Response, error)
}

// Result is the merged answer returned to clients.
type Result struct {
	UserID       int64               `json:"userId"`
	UserData     featurestore.Record `json:"userData"`
	Prediction   string              `json:"prediction"`
	WillComplete bool                `json:"willComplete"`
	Probability  float64             `json:"probability"`
}
