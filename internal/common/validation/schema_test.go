package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureRecordSchema(t *testing.T) {
	schema, err := Compile(FeatureRecordSchema([]string{"days", "correct", "wrong^2"}))
	require.NoError(t, err)

	tests := []struct {
		name  string
		doc   interface{}
		valid bool
		field string
	}{
		{
			name:  "exact field set",
			doc:   map[string]interface{}{"days": 3, "correct": 10, "wrong^2": 4.0},
			valid: true,
		},
		{
			name:  "missing field",
			doc:   map[string]interface{}{"days": 3, "correct": 10},
			valid: false,
		},
		{
			name:  "extra field",
			doc:   map[string]interface{}{"days": 3, "correct": 10, "wrong^2": 4, "viewed": 1},
			valid: false,
		},
		{
			name:  "non numeric value",
			doc:   map[string]interface{}{"days": "three", "correct": 10, "wrong^2": 4},
			valid: false,
			field: "days",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := schema.Validate(tt.doc)
			assert.Equal(t, tt.valid, result.Valid)
			if tt.valid {
				assert.NoError(t, result.Err())
				return
			}
			require.Error(t, result.Err())
			assert.NotEmpty(t, result.Errors)
			if tt.field != "" {
				assert.Equal(t, tt.field, result.Errors[0].Field)
			}
		})
	}
}

func TestInferenceResponseSchema(t *testing.T) {
	schema, err := Compile(InferenceResponseSchema())
	require.NoError(t, err)

	tests := []struct {
		name  string
		raw   string
		valid bool
	}{
		{"valid payload", `{"prediction":"complete","will_complete":true,"probability":0.87}`, true},
		{"extra fields allowed", `{"prediction":"x","will_complete":false,"probability":0,"model":"xgb"}`, true},
		{"probability above one", `{"prediction":"x","will_complete":true,"probability":1.2}`, false},
		{"missing probability", `{"prediction":"x","will_complete":true}`, false},
		{"wrong flag type", `{"prediction":"x","will_complete":"yes","probability":0.5}`, false},
		{"not json", `<html>bad gateway</html>`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := schema.ValidateBytes([]byte(tt.raw))
			assert.Equal(t, tt.valid, result.Valid, result.Error())
		})
	}
}

func TestCompile_InvalidSchema(t *testing.T) {
	_, err := Compile(map[string]interface{}{"type": 12})
	assert.Error(t, err)
}
