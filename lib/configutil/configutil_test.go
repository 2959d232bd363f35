package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type vendorConfig struct {
	BaseUrl         string `json:"base_url"`
	Token           string `json:"token"`
	PollIntervalSec int    `json:"poll_interval_sec"`
}

type testConfig struct {
	Timezone    string       `json:"timezone"`
	Concurrency int          `json:"concurrency"`
	Vendor      vendorConfig `json:"vendor"`
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json5"), []byte(`{
		// comments are allowed
		timezone: "America/Sao_Paulo",
		concurrency: 2,
		vendor: { base_url: "https://api.apify.com", poll_interval_sec: 5 },
	}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{
		vendor: { token: "local-token" },
	}`), 0644))

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, testConfig{
		Timezone:    "America/Sao_Paulo",
		Concurrency: 2,
		Vendor: vendorConfig{
			BaseUrl:         "https://api.apify.com",
			Token:           "local-token",
			PollIntervalSec: 5,
		},
	}, cfg)

	_, err = ReadConfig[testConfig](filepath.Join(dir, "missing.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestOverlayEnv(t *testing.T) {
	t.Setenv("CONFIGUTILTEST_VENDOR__TOKEN", "env-token")
	t.Setenv("CONFIGUTILTEST_VENDOR__POLL_INTERVAL_SEC", "10")
	t.Setenv("CONFIGUTILTEST_CONCURRENCY", "4")

	cfg := testConfig{
		Timezone: "UTC",
		Vendor:   vendorConfig{BaseUrl: "https://api.apify.com", Token: "file-token", PollIntervalSec: 5},
	}
	require.NoError(t, OverlayEnv("CONFIGUTILTEST_", &cfg))
	require.Equal(t, testConfig{
		Timezone:    "UTC",
		Concurrency: 4,
		Vendor: vendorConfig{
			BaseUrl:         "https://api.apify.com",
			Token:           "env-token",
			PollIntervalSec: 10,
		},
	}, cfg)
}

func TestOverlayEnvWithoutVariables(t *testing.T) {
	cfg := testConfig{Timezone: "UTC"}
	require.NoError(t, OverlayEnv("CONFIGUTILTEST_NOTHING_", &cfg))
	require.Equal(t, testConfig{Timezone: "UTC"}, cfg)
}
