package adapters

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moolen/depscope/internal/models"
)

const scanFixture = `HOST: 192.168.1.10 (web-frontend)
PORT: 80/tcp open http nginx 1.19
HOST: 192.168.1.20 (db-server)
PORT: 3306/tcp open mysql MySQL 8.0
HOST: 192.168.1.30 (cache-server)
PORT: 6379/tcp open redis
`

func TestNetworkDiscoveryTwoPhase(t *testing.T) {
	adapter := NewNetworkDiscoveryAdapter()
	require.True(t, adapter.CanProcess(scanFixture))

	result, err := adapter.ProcessData(context.Background(), scanFixture)
	require.NoError(t, err)
	require.Len(t, result.Claims, 2)

	byTarget := map[string]*models.Claim{}
	for _, c := range result.Claims {
		byTarget[c.ToService] = c
	}

	// web tier -> SQL store is the high-confidence pairing
	sql := byTarget["db-server"]
	require.NotNil(t, sql)
	assert.Equal(t, "web-frontend", sql.FromService)
	assert.Equal(t, models.BandHigh, sql.Band())
	port, _ := sql.Metadata.Get("target_port")
	assert.Equal(t, "3306", port)
	version, _ := sql.Metadata.Get("service_version")
	assert.Equal(t, "MySQL 8.0", version)

	// web tier -> redis is a known but weaker pattern
	cache := byTarget["cache-server"]
	require.NotNil(t, cache)
	assert.Equal(t, models.BandMedium, cache.Band())
}

func TestNetworkDiscoveryPortBeforeHost(t *testing.T) {
	adapter := NewNetworkDiscoveryAdapter()
	result, err := adapter.ProcessData(context.Background(), "PORT: 80/tcp open http\nHOST: 10.0.0.1 (web)\n")
	require.NoError(t, err)
	assert.Empty(t, result.Claims)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 1, result.Errors[0].Line)
}

func TestNetworkDiscoveryNoRuleNoClaim(t *testing.T) {
	adapter := NewNetworkDiscoveryAdapter()
	raw := "HOST: 10.0.0.1 (storage-a)\nPORT: 22/tcp open ssh\nHOST: 10.0.0.2 (storage-b)\nPORT: 22/tcp open ssh\n"
	result, err := adapter.ProcessData(context.Background(), raw)
	require.NoError(t, err)
	assert.Empty(t, result.Claims)
}
