package adapters

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIGatewayGenericRoute(t *testing.T) {
	adapter := NewAPIGatewayAdapter()
	raw := "route: web-portal -> user-service weight:80\nroute: web-portal -> order-service\n"

	require.True(t, adapter.CanProcess(raw))
	result, err := adapter.ProcessData(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, result.Claims, 2)

	assert.Equal(t, "web-portal->user-service", result.Claims[0].EdgeKey())
	weight, _ := result.Claims[0].Metadata.Get("weight")
	assert.Equal(t, "80", weight)
	assert.Equal(t, gatewayConfidence, result.Claims[0].Confidence)
}

func TestAPIGatewayNginxUpstream(t *testing.T) {
	adapter := NewAPIGatewayAdapter()
	raw := `upstream user_service {
    server user-service:8080;
    server user-service-replica:8080;
}
`
	require.True(t, adapter.CanProcess(raw))
	result, err := adapter.ProcessData(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, result.Claims, 2)
	assert.Equal(t, "api-gateway", result.Claims[0].FromService)
	assert.Equal(t, "user-service", result.Claims[0].ToService)
	assert.Equal(t, "user-service-replica", result.Claims[1].ToService)
}

func TestAPIGatewayAWSIntegration(t *testing.T) {
	adapter := NewAPIGatewayAdapter()
	raw := `"uri": "arn:aws:apigateway:us-east-1:lambda:path/2015-03-31/functions/arn:aws:lambda:us-east-1:123456789012:function:user-service/invocations"`
	result, err := adapter.ProcessData(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, result.Claims, 1)
	assert.Equal(t, "api-gateway->user-service", result.Claims[0].EdgeKey())
}

func TestAPIGatewayKong(t *testing.T) {
	adapter := NewAPIGatewayAdapter()
	raw := `services:
  - name: user-route
    url: http://user-service:8000
`
	require.True(t, adapter.CanProcess(raw))
	result, err := adapter.ProcessData(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, result.Claims, 1)
	assert.Equal(t, "user-service", result.Claims[0].ToService)
	port, _ := result.Claims[0].Metadata.Get("target_port")
	assert.Equal(t, "8000", port)
}

func TestAPIGatewayIstioVirtualService(t *testing.T) {
	adapter := NewAPIGatewayAdapter()
	raw := `apiVersion: networking.istio.io/v1beta1
kind: VirtualService
spec:
  http:
    - route:
        - destination:
            host: user-service
`
	require.True(t, adapter.CanProcess(raw))
	result, err := adapter.ProcessData(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, result.Claims, 1)
	assert.Equal(t, "api-gateway->user-service", result.Claims[0].EdgeKey())
}
