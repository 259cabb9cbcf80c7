package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRepoConfig(t *testing.T) {
	t.Run("Missing file returns defaults", func(t *testing.T) {
		cfg, err := LoadRepoConfig(t.TempDir())
		assert.ErrorIs(t, err, ErrConfigNotFound)
		require.NotNil(t, cfg)
		assert.Empty(t, cfg.CustomInstructions)
	})

	t.Run("Valid file", func(t *testing.T) {
		dir := t.TempDir()
		content := "custom_instructions:\n  - Check error wrapping\nexclude_dirs: [vendor]\nexclude_exts: [.lock]\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, RepoConfigFile), []byte(content), 0o600))

		cfg, err := LoadRepoConfig(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"Check error wrapping"}, cfg.CustomInstructions)
		assert.True(t, cfg.Excludes("vendor/lib/a.go"))
		assert.True(t, cfg.Excludes("go.lock"))
		assert.False(t, cfg.Excludes("main.go"))
	})

	t.Run("Malformed file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, RepoConfigFile), []byte("exclude_dirs: {"), 0o600))

		_, err := LoadRepoConfig(dir)
		assert.ErrorIs(t, err, ErrConfigParsing)
	})
}
