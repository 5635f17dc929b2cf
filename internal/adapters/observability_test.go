package adapters

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservabilityPrometheus(t *testing.T) {
	adapter := NewObservabilityAdapter()
	raw := `http_requests_total{service="web-portal",target_service="user-service"} 1547`

	require.True(t, adapter.CanProcess(raw))
	result, err := adapter.ProcessData(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, result.Claims, 1)

	claim := result.Claims[0]
	assert.Equal(t, "web-portal->user-service", claim.EdgeKey())
	assert.Equal(t, 0.95, claim.Confidence) // high sample count
	metric, _ := claim.Metadata.Get("metric_name")
	assert.Equal(t, "http_requests_total", metric)
}

func TestObservabilityPrometheusConfidenceHeuristics(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected float64
	}{
		{"error metric", `http_errors_total{service="a",target_service="b"} 5000`, 0.7},
		{"high volume", `http_requests_total{service="a",target_service="b"} 100`, 0.95},
		{"low volume", `http_requests_total{service="a",target_service="b"} 3`, 0.85},
	}

	adapter := NewObservabilityAdapter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := adapter.ProcessData(context.Background(), tt.line)
			require.NoError(t, err)
			require.Len(t, result.Claims, 1)
			assert.Equal(t, tt.expected, result.Claims[0].Confidence)
		})
	}
}

func TestObservabilityJaeger(t *testing.T) {
	adapter := NewObservabilityAdapter()
	raw := `1720088445 abc123def "web-portal" -> "user-service" 250ms`

	require.True(t, adapter.CanProcess(raw))
	result, err := adapter.ProcessData(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, result.Claims, 1)

	claim := result.Claims[0]
	assert.Equal(t, "web-portal->user-service", claim.EdgeKey())
	assert.Equal(t, 0.9, claim.Confidence) // 100 <= duration < 1000
	assert.Equal(t, time.Unix(1720088445, 0), claim.Timestamp)
	traceID, _ := claim.Metadata.Get("trace_id")
	assert.Equal(t, "abc123def", traceID)
}

func TestObservabilityOtel(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		expected float64
	}{
		{"ok span", "OK", 0.95},
		{"error span", "ERROR", 0.7},
		{"unset span", "UNSET", 0.85},
	}

	adapter := NewObservabilityAdapter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := "span_id:0af7651916cd43dd service:web-portal downstream:user-service duration:250ms status:" + tt.status
			result, err := adapter.ProcessData(context.Background(), raw)
			require.NoError(t, err)
			require.Len(t, result.Claims, 1)
			assert.Equal(t, tt.expected, result.Claims[0].Confidence)
		})
	}
}

func TestObservabilityConfidenceRange(t *testing.T) {
	adapter := NewObservabilityAdapter()
	raw := `http_errors_total{service="a",target_service="b"} 5
1720088445 t1 "a" -> "b" 50ms
1720088445 t2 "a" -> "b" 5000ms
span_id:x service:a downstream:b duration:10ms status:ERROR
`
	result, err := adapter.ProcessData(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, result.Claims, 4)
	for _, claim := range result.Claims {
		assert.GreaterOrEqual(t, claim.Confidence, 0.7)
		assert.LessOrEqual(t, claim.Confidence, 0.99)
	}
}

func TestObservabilityUnknownLineCounted(t *testing.T) {
	adapter := NewObservabilityAdapter()
	result, err := adapter.ProcessData(context.Background(), "garbage telemetry\n")
	require.NoError(t, err)
	assert.Empty(t, result.Claims)
	assert.Len(t, result.Errors, 1)
}
