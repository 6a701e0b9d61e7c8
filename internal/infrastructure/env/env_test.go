package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	e := newEnvService()

	assert.Equal(t, "socflow.db", e.Get(KeyDBPath))
	assert.Equal(t, 5, e.GetInt(KeyLookupLimit, 99))
	assert.Equal(t, 0.7, e.GetFloat(KeyIntentThreshold, 0))
	assert.False(t, e.GetBool(KeyLLMIntentFallback, true))
	assert.Equal(t, "fallback", e.GetWithDefault("SOCFLOW_TEST_UNSET_KEY", "fallback"))
}

func TestEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv(KeyLookupLimit, "8")
	t.Setenv(KeyLLMIntentFallback, "true")
	t.Setenv(KeyIntentThreshold, "0.55")

	e := newEnvService()

	assert.Equal(t, 8, e.GetInt(KeyLookupLimit, 5))
	assert.True(t, e.GetBool(KeyLLMIntentFallback, false))
	assert.Equal(t, 0.55, e.GetFloat(KeyIntentThreshold, 0.7))
}

func TestSetOverridesEnvironment(t *testing.T) {
	t.Setenv(KeyHTTPAddr, ":9000")
	e := newEnvService()

	e.Set(KeyHTTPAddr, ":9100")
	assert.Equal(t, ":9100", e.Get(KeyHTTPAddr))
}

func TestNewEnvServiceLoadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SOCFLOW_TEST_DOTENV_KEY=from-dotenv\n"), 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(wd)
		_ = os.Unsetenv("SOCFLOW_TEST_DOTENV_KEY")
	})

	e := NewEnvService()
	assert.Equal(t, "from-dotenv", e.Get("SOCFLOW_TEST_DOTENV_KEY"))
}
