package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "0.0.0.0", cfg.Server.Host)
	require.Equal(t, 120, cfg.Auth.NonceTTLSecs)
	require.Equal(t, 100, cfg.RateLimit.IPMaxRequests)
	require.Equal(t, 10, cfg.Cache.MaxEntries)
	require.Contains(t, cfg.Auth.BypassPaths, "/healthz")
}

func TestLoadEnvironmentOverridesDefaults(t *testing.T) {
	os.Setenv("APP__SERVER__PORT", "9090")
	defer os.Unsetenv("APP__SERVER__PORT")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
}

func TestLoadEnvironmentOverridesNestedGroup(t *testing.T) {
	os.Setenv("APP__RATELIMIT__IPMAXREQUESTS", "7")
	defer os.Unsetenv("APP__RATELIMIT__IPMAXREQUESTS")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	require.Equal(t, 7, cfg.RateLimit.IPMaxRequests)
}
