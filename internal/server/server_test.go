package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "retention-proxy/internal/common/errors"
	"retention-proxy/internal/common/logger"
	"retention-proxy/internal/featurestore"
	"retention-proxy/internal/prediction"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type stubUsers struct {
	ids []int64
}

func (s stubUsers) IDs() []int64 { return s.ids }
func (s stubUsers) Len() int     { return len(s.ids) }

type stubPredictor struct {
	fn func(ctx context.Context, rawID string) (*prediction.Result, error)
}

func (s stubPredictor) Predict(ctx context.Context, rawID string) (*prediction.Result, error) {
	return s.fn(ctx, rawID)
}

// predictorFor mimics the prediction service against a single known user.
func predictorFor(known int64, inferenceErr error) stubPredictor {
	return stubPredictor{fn: func(_ context.Context, rawID string) (*prediction.Result, error) {
		id, err := featurestore.ParseUserID(rawID)
		if err != nil {
			return nil, apperrors.NewInvalidIdentifierError(rawID)
		}
		if id != known {
			return nil, apperrors.NewUnknownUserError(id)
		}
		if inferenceErr != nil {
			return nil, inferenceErr
		}
		return &prediction.Result{
			UserID:       id,
			UserData:     featurestore.Record{"days": 3, "correct": 10},
			Prediction:   "complete",
			WillComplete: true,
			Probability:  0.87,
		}, nil
	}}
}

func newTestServer(t *testing.T, users UserDirectory, predictor Predictor) *Server {
	t.Helper()
	cfg := &Config{
		CORSOrigins:    []string{"http://localhost:3003"},
		MetricsEnabled: true,
		MetricsPath:    "/metrics",
	}
	return New(cfg, users, predictor, logger.NewTestLogger(t))
}

func doGet(t *testing.T, h http.Handler, path string, headers map[string]string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]interface{}
	if rec.Header().Get("Content-Type") != "" && len(rec.Body.Bytes()) > 0 && rec.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestPredictScenarios(t *testing.T) {
	srv := newTestServer(t, stubUsers{ids: []int64{42}}, predictorFor(42, nil))

	for _, prefix := range []string{"", "/api"} {
		t.Run("prefix="+prefix, func(t *testing.T) {
			rec, body := doGet(t, srv.Handler(), prefix+"/predict/42", nil)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, float64(42), body["userId"])
			assert.Equal(t, "complete", body["prediction"])
			assert.Equal(t, true, body["willComplete"])
			assert.Equal(t, 0.87, body["probability"])
			assert.Equal(t, map[string]interface{}{"days": float64(3), "correct": float64(10)}, body["userData"])

			rec, body = doGet(t, srv.Handler(), prefix+"/predict/abc", nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, map[string]interface{}{"error": "Invalid user_id"}, body)

			rec, body = doGet(t, srv.Handler(), prefix+"/predict/9999", nil)
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Equal(t, "User not found", body["error"])
			assert.Equal(t, float64(9999), body["userId"])
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestPredict_InferenceFailures(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantMessage string
	}{
		{
			name:        "unreachable",
			err:         apperrors.NewInferenceUnavailableError(errors.New("dial tcp 127.0.0.1:8000: connect: connection refused")),
			wantMessage: "connection refused",
		},
		{
			name:        "timeout",
			err:         apperrors.NewInferenceTimeoutError(5*time.Second, context.DeadlineExceeded),
			wantMessage: "timeout of 5s exceeded",
		},
		{
			name:        "rejected",
			err:         apperrors.NewInferenceRejectedError(http.StatusServiceUnavailable, "Model not loaded"),
			wantMessage: "Model not loaded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, stubUsers{ids: []int64{42}}, predictorFor(42, tt.err))

			rec, body := doGet(t, srv.Handler(), "/predict/42", nil)
			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
			assert.Equal(t, "Model service unavailable", body["error"])
			assert.Contains(t, body["message"], tt.wantMessage)
		})
	}
}

func TestPredict_UnexpectedError(t *testing.T) {
	srv := newTestServer(t, stubUsers{}, stubPredictor{fn: func(context.Context, string) (*prediction.Result, error) {
		return nil, errors.New("boom")
	}})

	rec, body := doGet(t, srv.Handler(), "/predict/1", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]interface{}{"error": "Internal server error"}, body)
}

func TestListUsers(t *testing.T) {
	srv := newTestServer(t, stubUsers{ids: []int64{1, 7, 42}}, predictorFor(42, nil))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"userIds":[1,7,42]}`, rec.Body.String())
}

func TestListUsers_EmptyStore(t *testing.T) {
	srv := newTestServer(t, stubUsers{}, predictorFor(42, nil))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"userIds":[]}`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	loaded := newTestServer(t, stubUsers{ids: []int64{42}}, predictorFor(42, nil))
	rec, body := doGet(t, loaded.Handler(), "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"status": "ok", "usersLoaded": true}, body)

	// A failed dataset load leaves the service up with an empty store.
	empty := newTestServer(t, featurestore.NewHolder(featurestore.Empty(), logger.NewNoOpLogger()), predictorFor(42, nil))
	rec, body = doGet(t, empty.Handler(), "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"status": "ok", "usersLoaded": false}, body)
}

func TestRequestID(t *testing.T) {
	srv := newTestServer(t, stubUsers{}, predictorFor(42, nil))

	rec, _ := doGet(t, srv.Handler(), "/health", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec, _ = doGet(t, srv.Handler(), "/health", map[string]string{"X-Request-ID": "req-123"})
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t, stubUsers{}, predictorFor(42, nil))

	rec, _ := doGet(t, srv.Handler(), "/users", map[string]string{"Origin": "http://localhost:3003"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:3003", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Expose-Headers"))

	rec, _ = doGet(t, srv.Handler(), "/users", map[string]string{"Origin": "http://evil.example"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	// Requests without an Origin header are not CORS requests.
	rec, _ = doGet(t, srv.Handler(), "/users", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	preflight := httptest.NewRequest(http.MethodOptions, "/api/predict/42", nil)
	preflight.Header.Set("Origin", "http://localhost:3003")
	preflight.Header.Set("Access-Control-Request-Method", "GET")
	prec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(prec, preflight)
	assert.Equal(t, http.StatusNoContent, prec.Code)
	assert.Equal(t, "http://localhost:3003", prec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, prec.Header().Get("Access-Control-Allow-Methods"), "GET")
}

func TestCORS_OriginSettings(t *testing.T) {
	tests := []struct {
		name       string
		origins    []string
		wantStatus int
		wantHeader string
	}{
		{"wildcard", []string{"*"}, http.StatusOK, "*"},
		{"trailing slash normalized", []string{"http://localhost:3003/"}, http.StatusOK, "http://localhost:3003"},
		{"none configured", nil, http.StatusOK, ""},
		{"invalid origin disables cors", []string{"localhost:3003"}, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := New(&Config{CORSOrigins: tt.origins}, stubUsers{}, predictorFor(42, nil), logger.NewTestLogger(t))

			rec, _ := doGet(t, srv.Handler(), "/users", map[string]string{"Origin": "http://localhost:3003"})
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantHeader, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, stubUsers{ids: []int64{42}}, predictorFor(42, nil))
	doGet(t, srv.Handler(), "/predict/42", nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestServe_GracefulShutdown(t *testing.T) {
	srv := newTestServer(t, stubUsers{ids: []int64{42}}, predictorFor(42, nil))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRun_BindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := &Config{Addr: ln.Addr().String()}
	srv := New(cfg, stubUsers{}, predictorFor(42, nil), logger.NewNoOpLogger())

	err = srv.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen on")
}
