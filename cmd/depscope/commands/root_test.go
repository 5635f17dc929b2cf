package commands

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moolen/depscope/internal/models"
)

func TestParseLogLevelFlags(t *testing.T) {
	level, packages, err := parseLogLevelFlags([]string{"debug"})
	require.NoError(t, err)
	assert.Equal(t, "debug", level)
	assert.Empty(t, packages)

	level, packages, err = parseLogLevelFlags([]string{"default=warn", "ingest=debug", "resolver=error"})
	require.NoError(t, err)
	assert.Equal(t, "warn", level)
	assert.Equal(t, map[string]string{"ingest": "debug", "resolver": "error"}, packages)

	_, _, err = parseLogLevelFlags([]string{"verbose"})
	assert.Error(t, err)

	_, _, err = parseLogLevelFlags([]string{"ingest=loud"})
	assert.Error(t, err)
}

func TestEnvKeyToPackageName(t *testing.T) {
	assert.Equal(t, "ingest.pool", envKeyToPackageName("LOG_LEVEL_INGEST_POOL"))
	assert.Equal(t, "resolver", envKeyToPackageName("LOG_LEVEL_RESOLVER"))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitCancelled, ExitCode(context.Canceled))
	assert.Equal(t, ExitCancelled, ExitCode(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	assert.Equal(t, ExitPersistence, ExitCode(models.NewPersistenceError("a->b", fmt.Errorf("down"))))
	assert.Equal(t, ExitParseError, ExitCode(models.NewAdapterError("router-log", fmt.Errorf("binary input"))))
	assert.Equal(t, ExitParseError, ExitCode(models.NewInputError(3, "malformed line")))
	assert.Equal(t, ExitFailure, ExitCode(fmt.Errorf("something else")))
}
