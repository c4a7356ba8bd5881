package browserz_test

import (
	"testing"
	"time"

	"github.com/jackc/petclinic-e2e/browserz"
	"github.com/stretchr/testify/require"
)

func TestConfigFromValuesDefaults(t *testing.T) {
	config, err := browserz.ConfigFromValues(func(string) string { return "" })
	require.NoError(t, err)
	require.Equal(t, browserz.DefaultConfig(), config)
	require.True(t, config.Headless)
}

func TestConfigFromValues(t *testing.T) {
	values := map[string]string{
		"BROWSER_BIN":         "/usr/bin/chromium",
		"BROWSER_HEADLESS":    "false",
		"BROWSER_NO_SANDBOX":  "true",
		"BROWSER_SLOW_MOTION": "250ms",
	}
	config, err := browserz.ConfigFromValues(func(name string) string { return values[name] })
	require.NoError(t, err)
	require.Equal(t, browserz.Config{
		Bin:        "/usr/bin/chromium",
		Headless:   false,
		NoSandbox:  true,
		SlowMotion: 250 * time.Millisecond,
	}, config)
}

func TestConfigFromValuesInvalid(t *testing.T) {
	_, err := browserz.ConfigFromValues(func(name string) string {
		if name == "BROWSER_HEADLESS" {
			return "sometimes"
		}
		return ""
	})
	require.ErrorContains(t, err, "parse BROWSER_HEADLESS")

	_, err = browserz.ConfigFromValues(func(name string) string {
		if name == "BROWSER_SLOW_MOTION" {
			return "slow"
		}
		return ""
	})
	require.ErrorContains(t, err, "parse BROWSER_SLOW_MOTION")
}
