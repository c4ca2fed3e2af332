package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"pushit/pkg/model"
	"pushit/pkg/system"
	"pushit/pkg/test"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) (string, bool) { return "", false }

func envFrom(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func withFs(tb testing.TB, fs afero.Fs) {
	tb.Helper()
	prev := system.AppFs
	system.AppFs = fs
	tb.Cleanup(func() { system.AppFs = prev })
}

func useMemFs(t *testing.T) afero.Fs {
	t.Helper()
	memFs := afero.NewMemMapFs()
	withFs(t, memFs)
	return memFs
}

func TestLoadConfig(t *testing.T) {
	logger := test.NewMockLogger(slog.LevelDebug)

	t.Run("missing default file falls back to defaults", func(t *testing.T) {
		useMemFs(t)

		settings, err := load(DefaultFile, false, noEnv, logger)
		require.NoError(t, err)
		assert.Equal(t, model.DefaultSettings(), settings)
	})

	t.Run("missing explicit file is an error", func(t *testing.T) {
		useMemFs(t)

		_, err := load("/etc/pushit.yaml", true, noEnv, logger)
		require.Error(t, err)
		assert.True(t, errors.Is(err, fs.ErrNotExist), "expected a file not found error")
	})

	t.Run("file values override defaults", func(t *testing.T) {
		memFs := useMemFs(t)
		content := `
remote: upstream
branch: develop
default-message: "chore: sync"
abort-rebase-on-failure: true
`
		require.NoError(t, afero.WriteFile(memFs, "/repo/.pushit.yaml", []byte(content), 0644))

		settings, err := load("/repo/.pushit.yaml", true, noEnv, logger)
		require.NoError(t, err)

		assert.Equal(t, "upstream", settings.Remote)
		assert.Equal(t, "develop", settings.Branch)
		assert.Equal(t, "chore: sync", settings.DefaultMessage)
		assert.True(t, settings.AbortRebaseOnFailure)
		assert.Equal(t, "info", settings.LogLevel, "unset keys keep their defaults")
	})

	t.Run("returns an error for malformed YAML", func(t *testing.T) {
		memFs := useMemFs(t)
		require.NoError(t, afero.WriteFile(memFs, "/bad.yaml", []byte("remote: [unterminated"), 0644))

		_, err := load("/bad.yaml", true, noEnv, logger)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse /bad.yaml")
	})

	t.Run("environment overrides file", func(t *testing.T) {
		memFs := useMemFs(t)
		require.NoError(t, afero.WriteFile(memFs, "/c.yaml", []byte("branch: develop\nremote: upstream\n"), 0644))

		env := envFrom(map[string]string{
			EnvBranch:         "release",
			EnvAbortRebase:    "yes",
			EnvDefaultMessage: "from env",
		})
		_, err := load("/c.yaml", true, env, logger)
		require.Error(t, err, "yes is not a strconv boolean")

		env = envFrom(map[string]string{
			EnvBranch:         "release",
			EnvAbortRebase:    "true",
			EnvDefaultMessage: "from env",
			EnvLogLevel:       "debug",
			EnvLogFile:        "/tmp/pushit.log",
		})
		settings, err := load("/c.yaml", true, env, logger)
		require.NoError(t, err)

		assert.Equal(t, "upstream", settings.Remote)
		assert.Equal(t, "release", settings.Branch)
		assert.Equal(t, "from env", settings.DefaultMessage)
		assert.True(t, settings.AbortRebaseOnFailure)
		assert.Equal(t, "debug", settings.LogLevel)
		assert.Equal(t, "/tmp/pushit.log", settings.LogFile)
	})

	t.Run("invalid abort flag in environment is a validation error", func(t *testing.T) {
		useMemFs(t)

		_, err := load(DefaultFile, false, envFrom(map[string]string{EnvAbortRebase: "maybe"}), logger)
		var errs model.ValidationErrors
		require.True(t, errors.As(err, &errs))
		require.Len(t, errs, 1)
		assert.Equal(t, EnvAbortRebase, errs[0].Field)
	})

	t.Run("LoadConfig reads the process environment", func(t *testing.T) {
		useMemFs(t)
		t.Setenv(EnvRemote, "fork")

		settings, err := LoadConfig(DefaultFile, false, logger)
		require.NoError(t, err)
		assert.Equal(t, "fork", settings.Remote)
	})
}

func TestLoadConfig_Includes(t *testing.T) {
	logger := test.NewMockLogger(slog.LevelDebug)

	t.Run("including file wins over included files", func(t *testing.T) {
		tmpDir := t.TempDir()

		base := "remote: upstream\nbranch: develop\nabort-rebase-on-failure: true\n"
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "base.yaml"), []byte(base), 0644))

		team := "includes:\n  - base.yaml\nbranch: trunk\n"
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "team.yaml"), []byte(team), 0644))

		host := "includes:\n  - team.yaml\nabort-rebase-on-failure: false\n"
		hostPath := filepath.Join(tmpDir, "host.yaml")
		require.NoError(t, os.WriteFile(hostPath, []byte(host), 0644))

		settings, err := load(hostPath, true, noEnv, logger)
		require.NoError(t, err)

		assert.Equal(t, "upstream", settings.Remote)
		assert.Equal(t, "trunk", settings.Branch)
		assert.False(t, settings.AbortRebaseOnFailure, "an explicit false overrides an included true")
		assert.Nil(t, settings.Includes)
	})

	t.Run("logs values overridden by the including file", func(t *testing.T) {
		logger.Reset()
		tmpDir := t.TempDir()

		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "base.yaml"), []byte("branch: develop\nremote: upstream\n"), 0644))
		hostPath := filepath.Join(tmpDir, "host.yaml")
		require.NoError(t, os.WriteFile(hostPath, []byte("includes:\n  - base.yaml\nbranch: trunk\nremote: upstream\n"), 0644))

		_, err := load(hostPath, true, noEnv, logger)
		require.NoError(t, err)

		test.AssertLogContains(t, logger, "Config value overridden field=branch")
		assert.False(t, logger.HasMessage("field=remote"), "an unchanged value is not an override")
	})

	t.Run("detects circular includes", func(t *testing.T) {
		tmpDir := t.TempDir()

		aPath := filepath.Join(tmpDir, "a.yaml")
		require.NoError(t, os.WriteFile(aPath, []byte("includes:\n  - b.yaml\nremote: a\n"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "b.yaml"), []byte("includes:\n  - a.yaml\nremote: b\n"), 0644))

		_, err := load(aPath, true, noEnv, logger)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "circular include detected")
	})

	t.Run("handles absolute include paths", func(t *testing.T) {
		tmpDir := t.TempDir()

		basePath := filepath.Join(tmpDir, "shared", "base.yaml")
		require.NoError(t, os.MkdirAll(filepath.Dir(basePath), 0755))
		require.NoError(t, os.WriteFile(basePath, []byte("default-message: shared default\n"), 0644))

		hostPath := filepath.Join(tmpDir, "host.yaml")
		require.NoError(t, os.WriteFile(hostPath, []byte("includes:\n  - "+basePath+"\n"), 0644))

		settings, err := load(hostPath, true, noEnv, logger)
		require.NoError(t, err)
		assert.Equal(t, "shared default", settings.DefaultMessage)
	})

	t.Run("handles empty included file", func(t *testing.T) {
		tmpDir := t.TempDir()

		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "empty.yaml"), []byte("# nothing here\n"), 0644))
		hostPath := filepath.Join(tmpDir, "host.yaml")
		require.NoError(t, os.WriteFile(hostPath, []byte("includes:\n  - empty.yaml\nbranch: develop\n"), 0644))

		settings, err := load(hostPath, true, noEnv, logger)
		require.NoError(t, err)
		assert.Equal(t, "develop", settings.Branch)
		assert.Equal(t, "origin", settings.Remote)
	})

	t.Run("missing include is an error", func(t *testing.T) {
		tmpDir := t.TempDir()

		hostPath := filepath.Join(tmpDir, "host.yaml")
		require.NoError(t, os.WriteFile(hostPath, []byte("includes:\n  - nope.yaml\n"), 0644))

		_, err := load(hostPath, true, noEnv, logger)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load include 'nope.yaml'")
	})

	t.Run("validates includes field", func(t *testing.T) {
		tmpDir := t.TempDir()

		configPath := filepath.Join(tmpDir, "config.yaml")
		require.NoError(t, os.WriteFile(configPath, []byte("includes:\n  - \"\"\n"), 0644))

		_, err := load(configPath, true, noEnv, logger)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "include path cannot be empty")
	})
}

func TestMarshal(t *testing.T) {
	settings := model.DefaultSettings()
	settings.Includes = []string{"ignored.yaml"}

	out, err := Marshal(settings)
	require.NoError(t, err)

	assert.Contains(t, out, "remote: origin\n")
	assert.Contains(t, out, "branch: main\n")
	assert.Contains(t, out, "default-message: Auto commit from pushit.py\n")
	assert.Contains(t, out, "abort-rebase-on-failure: false\n")
	assert.NotContains(t, out, "includes")
	assert.NotContains(t, out, "log-file")
}

func TestDiff(t *testing.T) {
	t.Run("identical settings", func(t *testing.T) {
		_, changed, err := Diff(model.DefaultSettings(), model.DefaultSettings())
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("changed branch", func(t *testing.T) {
		effective := model.DefaultSettings()
		effective.Branch = "develop"

		out, changed, err := Diff(model.DefaultSettings(), effective)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Contains(t, out, "branch: main")
		assert.Contains(t, out, "branch: develop")
		assert.Contains(t, out, "remote: origin")
	})
}
