//go:build !debug

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPinsTrialSettings(t *testing.T) {
	isolate(t, "trial:\n  length_days: 90\nstore:\n  bundle: com.example.other\n")
	t.Setenv("LINGOBAR_TRIAL_LENGTH_DAYS", "36500")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultTrialLengthDays, cfg.Trial.LengthDays)
	assert.Equal(t, DefaultBundleID, cfg.Store.Bundle)
	assert.Equal(t, "com.lingobar.app.license", cfg.Store.LicenseNamespace())
}

func TestLoadRejectsMemoryBackend(t *testing.T) {
	for _, source := range []struct {
		name string
		yaml string
		env  string
	}{
		{name: "env", env: StoreBackendMemory},
		{name: "file", yaml: "store:\n  backend: memory\n"},
	} {
		t.Run(source.name, func(t *testing.T) {
			isolate(t, source.yaml)
			if source.env != "" {
				t.Setenv("LINGOBAR_STORE_BACKEND", source.env)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "only available in debug builds")
		})
	}
}
