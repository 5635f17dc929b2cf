package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
		wantErr  bool
	}{
		{"debug", DEBUG, false},
		{"INFO", INFO, false},
		{"Warn", WARN, false},
		{"error", ERROR, false},
		{"fatal", FATAL, false},
		{"verbose", -1, true},
		{"", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestPackageLevelOverrides(t *testing.T) {
	require.NoError(t, SetPackageLogLevels(map[string]string{
		"adapters.*":        "debug",
		"adapters.routerlog": "warn",
		"resolver":          "error",
	}))
	defer func() { _ = SetPackageLogLevels(map[string]string{}) }()

	// Exact match beats wildcard
	assert.Equal(t, WARN, packageLevel("adapters.routerlog"))
	// Wildcard match
	assert.Equal(t, DEBUG, packageLevel("adapters.kubernetes"))
	// Exact name without wildcard
	assert.Equal(t, ERROR, packageLevel("resolver"))
	// No match
	assert.Equal(t, LogLevel(-1), packageLevel("store"))
}

func TestSetPackageLogLevelsInvalid(t *testing.T) {
	err := SetPackageLogLevels(map[string]string{"store": "loud"})
	assert.Error(t, err)
}

func TestWithFieldImmutability(t *testing.T) {
	base := GetLogger("test")
	child := base.WithField("batch_id", "abc")

	assert.Empty(t, base.fields)
	assert.Equal(t, "abc", child.fields["batch_id"])

	grandchild := child.WithFields(Field("source", "router-log"), Field("claims", 3))
	assert.Len(t, child.fields, 1)
	assert.Len(t, grandchild.fields, 3)
}

func TestMatchesPattern(t *testing.T) {
	assert.True(t, matchesPattern("adapters.routerlog", "adapters.routerlog"))
	assert.True(t, matchesPattern("adapters.routerlog", "adapters.*"))
	assert.False(t, matchesPattern("adapters", "adapters.*"))
	assert.False(t, matchesPattern("resolver", "adapters.*"))
}
