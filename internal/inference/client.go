// Package inference talks to the external model-inference service.
package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	apperrors "retention-proxy/internal/common/errors"
	commonhttp "retention-proxy/internal/common/http"
	"retention-proxy/internal/common/logger"
	"retention-proxy/internal/common/metrics"
	"retention-proxy/internal/common/validation"
	"retention-proxy/internal/featurestore"
)

const (
	predictPath      = "/predict"
	maxResponseBytes = 1 << 20
)

type Client struct {
	config   *Config
	http     *commonhttp.Client
	schema   *validation.Schema
	endpoint string
	logger   logger.Logger
}

func NewClient(config *Config, log logger.Logger) (*Client, error) {
	cfg := *config
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	config = &cfg
	schema, err := validation.Compile(validation.InferenceResponseSchema())
	if err != nil {
		return nil, err
	}
	return &Client{
		config:   config,
		http:     commonhttp.NewClient(config.Timeout),
		schema:   schema,
		endpoint: strings.TrimRight(config.BaseURL, "/") + predictPath,
		logger: log.With(map[string]interface{}{
			"component": "inference",
		}),
	}, nil
}

// Predict sends features to the inference service. It makes exactly one
// attempt bounded by the configured timeout; once the deadline passes the
// request is abandoned and any late response is discarded.
//
// Errors are *errors.StandardError with code INFERENCE_UNAVAILABLE (transport
// failure or timeout) or INFERENCE_REJECTED (non-2xx or unusable payload).
func (c *Client) Predict(ctx context.Context, features featurestore.Record) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	metrics.InferenceInFlight.Inc()
	defer metrics.InferenceInFlight.Dec()

	start := time.Now()
	out, err := c.call(ctx, features)
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = string(apperrors.Normalize(err).Code)
	}
	metrics.InferenceDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		c.logger.Debug("inference call failed", map[string]interface{}{
			"error":      err.Error(),
			"durationMs": time.Since(start).Milliseconds(),
		})
		return nil, err
	}
	return out, nil
}

func (c *Client) call(ctx context.Context, features featurestore.Record) (*Response, error) {
	resp, err := c.http.PostJSON(ctx, c.endpoint, Request{Features: features})
	if err != nil {
		return nil, c.transportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, c.transportError(ctx, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, apperrors.NewInferenceRejectedError(resp.StatusCode, extractDetail(body))
	}

	if result := c.schema.ValidateBytes(body); !result.Valid {
		return nil, apperrors.NewInferenceRejectedError(resp.StatusCode,
			fmt.Sprintf("invalid inference response: %s", result.Error()))
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, apperrors.NewInferenceRejectedError(resp.StatusCode,
			fmt.Sprintf("invalid inference response: %s", err.Error()))
	}
	return &out, nil
}

func (c *Client) transportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewInferenceTimeoutError(c.config.Timeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.NewInferenceTimeoutError(c.config.Timeout, err)
	}
	return apperrors.NewInferenceUnavailableError(err)
}

// extractDetail pulls the service's own explanation out of an error body.
// FastAPI puts it in "detail", either a string or a list of validation errors.
func extractDetail(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	for _, path := range []string{"detail", "error", "message"} {
		res := gjson.GetBytes(body, path)
		if !res.Exists() {
			continue
		}
		if res.Type == gjson.String {
			return res.String()
		}
		if res.IsArray() {
			if msg := res.Get("0.msg"); msg.Exists() {
				return msg.String()
			}
		}
		return res.Raw
	}
	return ""
}
