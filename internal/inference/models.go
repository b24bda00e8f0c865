package inference

import "retention-proxy/internal/featurestore"

// Request is the body of POST {base}/predict.
type Request struct {
	Features featurestore.Record `json:"features"`
}

// Response is a successful inference payload.
type Response struct {
	Prediction   string  `json:"prediction"`
	WillComplete bool    `json:"will_complete"`
	Probability  float64 `json:"probability"`
}
