// internal/prediction/service.go
package prediction

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	apperrors "retention-proxy/internal/common/errors"
	"retention-proxy/internal/common/logger"
	"retention-proxy/internal/common/metrics"
	"retention-proxy/internal/common/observability"
	"retention-proxy/internal/featurestore"
)

type Service struct {
	config    *Config
	store     FeatureLookup
	predictor Predictor
	obs       *observability.Observability
	logger    logger.Logger
}

func NewService(config *Config, store FeatureLookup, predictor Predictor, obs *observability.Observability, log logger.Logger) *Service {
	if config == nil {
		config = LoadConfig(0)
	}
	return &Service{
		config:    config,
		store:     store,
		predictor: predictor,
		obs:       obs,
		logger:    log.With(map[string]interface{}{"component": "prediction"}),
	}
}

// Predict resolves rawID to a feature record and forwards it to the inference
// service. The identifier is validated before any lookup, and an unknown user
// never reaches the inference service.
func (s *Service) Predict(ctx context.Context, rawID string) (*Result, error) {
	start := time.Now()
	ctx, span := s.obs.StartSpan(ctx, "prediction.Predict", attribute.String("user.raw_id", rawID))
	defer span.End()

	result, err := s.predict(ctx, rawID)

	outcome := metrics.OutcomeSuccess
	if err != nil {
		stdErr := apperrors.Normalize(err)
		outcome = string(stdErr.Code)
		span.SetStatus(codes.Error, stdErr.Message)
		span.SetAttributes(attribute.String("error.code", outcome))
		err = stdErr
	} else {
		span.SetAttributes(attribute.Int64("user.id", result.UserID))
	}

	metrics.PredictionsTotal.WithLabelValues(outcome).Inc()
	s.obs.RecordPrediction(ctx, outcome, time.Since(start))

	return result, err
}

func (s *Service) predict(ctx context.Context, rawID string) (*Result, error) {
	userID, err := featurestore.ParseUserID(rawID)
	if err != nil {
		return nil, apperrors.NewInvalidIdentifierError(rawID)
	}

	features, ok := s.store.Lookup(userID)
	if !ok {
		return nil, apperrors.NewUnknownUserError(userID)
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.InferenceTimeout)
	defer cancel()

	resp, err := s.predictor.Predict(ctx, features)
	if err != nil {
		return nil, s.inferenceError(ctx, err)
	}

	s.logger.Debug("prediction served", map[string]interface{}{
		"userId":      userID,
		"prediction":  resp.Prediction,
		"probability": resp.Probability,
	})

	return &Result{
		UserID:       userID,
		UserData:     features,
		Prediction:   resp.Prediction,
		WillComplete: resp.WillComplete,
		Probability:  resp.Probability,
	}, nil
}

// inferenceError keeps typed inference errors and classifies anything else
// from the predictor by the state of ctx.
func (s *Service) inferenceError(ctx context.Context, err error) error {
	if _, ok := apperrors.AsStandardError(err); ok {
		return err
	}
	if ctx.Err() == context.DeadlineExceeded {
		return apperrors.NewInferenceTimeoutError(s.config.InferenceTimeout, err)
	}
	return apperrors.NewInferenceUnavailableError(err)
}
