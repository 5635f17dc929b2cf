package adapters

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moolen/depscope/internal/models"
)

func TestRouterLogFullLine(t *testing.T) {
	adapter := NewRouterLogAdapter()
	raw := `2024-07-04 10:30:45 [INFO] 192.168.1.100 -> 192.168.1.200:8080 GET /api/users 200 125ms`

	require.True(t, adapter.CanProcess(raw))
	result, err := adapter.ProcessData(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, result.Claims, 1)
	assert.Empty(t, result.Errors)

	claim := result.Claims[0]
	assert.Equal(t, "web-portal", claim.FromService)
	assert.Equal(t, "user-management-service", claim.ToService)
	assert.Equal(t, models.BandVeryHigh, claim.Band())
	assert.Equal(t, SourceRouterLog, claim.Source)
	assert.Equal(t, time.Date(2024, 7, 4, 10, 30, 45, 0, time.UTC), claim.Timestamp.UTC())

	port, _ := claim.Metadata.Get("target_port")
	status, _ := claim.Metadata.Get("http_status")
	latency, _ := claim.Metadata.Get("response_time_ms")
	assert.Equal(t, "8080", port)
	assert.Equal(t, "200", status)
	assert.Equal(t, "125", latency)
}

func TestRouterLogConfidenceHeuristics(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected models.ConfidenceBand
	}{
		{"fast 2xx", "2024-07-04 10:30:45 [INFO] 192.168.1.100 -> 192.168.1.200:8080 GET /x 200 125ms", models.BandVeryHigh},
		{"slow 2xx", "2024-07-04 10:30:45 [INFO] 192.168.1.100 -> 192.168.1.200:8080 GET /x 201 2500ms", models.BandHigh},
		{"client error", "2024-07-04 10:30:45 [WARN] 192.168.1.100 -> 192.168.1.200:8080 GET /x 404 10ms", models.BandMedium},
		{"server error", "2024-07-04 10:30:45 [ERROR] 192.168.1.100 -> 192.168.1.200:8080 GET /x 503 10ms", models.BandLow},
	}

	adapter := NewRouterLogAdapter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := adapter.ProcessData(context.Background(), tt.line)
			require.NoError(t, err)
			require.Len(t, result.Claims, 1)
			assert.Equal(t, tt.expected, result.Claims[0].Band())
		})
	}
}

func TestRouterLogCompactForm(t *testing.T) {
	adapter := NewRouterLogAdapter()
	result, err := adapter.ProcessData(context.Background(), "web-portal -> order-service")
	require.NoError(t, err)
	require.Len(t, result.Claims, 1)
	assert.Equal(t, models.BandHigh, result.Claims[0].Band())
}

func TestRouterLogUnknownIPFallback(t *testing.T) {
	adapter := NewRouterLogAdapter()
	raw := "2024-07-04 10:30:45 [INFO] 172.16.0.5 -> 192.168.1.200:8080 GET /x 200 10ms"
	result, err := adapter.ProcessData(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, result.Claims, 1)
	assert.Equal(t, "service-172-16-0-5", result.Claims[0].FromService)
}

func TestRouterLogMalformedLinesAreCounted(t *testing.T) {
	adapter := NewRouterLogAdapter()
	raw := "2024-07-04 10:30:45 [INFO] 192.168.1.100 -> 192.168.1.200:8080 GET /x 200 10ms\n" +
		"not a log line at all ???\n" +
		"\n" +
		"web-portal -> payment-service"
	result, err := adapter.ProcessData(context.Background(), raw)
	require.NoError(t, err)
	assert.Len(t, result.Claims, 2)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 2, result.Errors[0].Line)
}

func TestRouterLogSelfLoopDropped(t *testing.T) {
	adapter := NewRouterLogAdapter()
	// both IPs map to the same service
	raw := "2024-07-04 10:30:45 [INFO] 192.168.1.100 -> 192.168.1.100:8080 GET /x 200 10ms"
	result, err := adapter.ProcessData(context.Background(), raw)
	require.NoError(t, err)
	assert.Empty(t, result.Claims)
}

func TestRouterLogCancellation(t *testing.T) {
	adapter := NewRouterLogAdapter()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := adapter.ProcessData(ctx, "web-portal -> order-service")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRouterLogCRLFAndBOM(t *testing.T) {
	adapter := NewRouterLogAdapter()
	raw := "\uFEFFweb-portal -> order-service\r\nweb-portal -> payment-service\r\n"
	result, err := adapter.ProcessData(context.Background(), raw)
	require.NoError(t, err)
	assert.Len(t, result.Claims, 2)
}
