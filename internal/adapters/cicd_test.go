package adapters

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moolen/depscope/internal/models"
)

func TestCICDGenericDepends(t *testing.T) {
	adapter := NewCICDPipelineAdapter()
	raw := "echo 'service payment-service depends on [user-service, mysql-database]'"

	require.True(t, adapter.CanProcess(raw))
	result, err := adapter.ProcessData(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, result.Claims, 2)

	for _, claim := range result.Claims {
		assert.Equal(t, "payment-service", claim.FromService)
		assert.Equal(t, models.DependencyTypeBuildTime, claim.DependencyType)
		assert.Equal(t, cicdConfidence, claim.Confidence)
	}
	assert.Equal(t, "user-service", result.Claims[0].ToService)
	assert.Equal(t, "mysql-database", result.Claims[1].ToService)
}

func TestCICDDockerCompose(t *testing.T) {
	adapter := NewCICDPipelineAdapter()
	raw := `version: "3"
services:
  web-portal:
    image: web:latest
    depends_on:
      - user-service
      - redis-cache
  user-service:
    image: user:latest
    depends_on:
      - mysql-database
`
	require.True(t, adapter.CanProcess(raw))
	result, err := adapter.ProcessData(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, result.Claims, 3)

	edges := map[string]bool{}
	for _, c := range result.Claims {
		edges[c.EdgeKey()] = true
	}
	assert.True(t, edges["web-portal->user-service"])
	assert.True(t, edges["web-portal->redis-cache"])
	assert.True(t, edges["user-service->mysql-database"])
}

func TestCICDGitlabNeeds(t *testing.T) {
	adapter := NewCICDPipelineAdapter()
	raw := `stages:
  - build
deploy-web-portal:
  stage: build
  needs: ["build-user-service", "build-payment-service"]
`
	result, err := adapter.ProcessData(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, result.Claims, 2)
	assert.Equal(t, "web-portal", result.Claims[0].FromService)
	assert.Equal(t, "user-service", result.Claims[0].ToService)
	assert.Equal(t, "payment-service", result.Claims[1].ToService)
}

func TestCICDHelmDependencies(t *testing.T) {
	adapter := NewCICDPipelineAdapter()
	raw := `apiVersion: v2
name: web-portal
version: 1.0.0
dependencies:
  - name: postgresql
    version: 12.x
  - name: redis
    version: 17.x
`
	result, err := adapter.ProcessData(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, result.Claims, 2)
	assert.Equal(t, "web-portal->postgresql", result.Claims[0].EdgeKey())
	assert.Equal(t, "web-portal->redis", result.Claims[1].EdgeKey())
}
