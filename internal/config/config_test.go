package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, Default(dir), cfg)
	assert.Equal(t, filepath.Join(dir, "reportoryDB.db"), cfg.DatabasePath())
	assert.Equal(t, filepath.Join(dir, "settings"), cfg.SettingsDir())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	data := []byte("data_dir: /var/lib/reportory\ndatabase: work\nlang: en\nlog_format: json\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0o644))

	cfg, err := Load(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/reportory", cfg.DataDir)
	assert.Equal(t, "work", cfg.Database)
	assert.Equal(t, "en", cfg.Lang)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "warn", cfg.LogLevel, "unset keys keep defaults")
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("lang: en\n"), 0o644))
	t.Setenv("REPORTORY_LANG", "ko")
	t.Setenv("REPORTORY_LOG_LEVEL", "debug")

	cfg, err := Load(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, "ko", cfg.Lang)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestFlagsOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("REPORTORY_DATA_DIR", "/from/env")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("data-dir", "", "")
	fs.String("lang", "", "")
	fs.String("log-level", "", "")
	require.NoError(t, fs.Parse([]string{"--data-dir", "/from/flag"}))

	cfg, err := Load(dir, fs)
	require.NoError(t, err)
	assert.Equal(t, "/from/flag", cfg.DataDir)
	assert.Equal(t, "ko", cfg.Lang, "unset flags do not clobber defaults")
}

func TestLoadRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log_format: xml\n"), 0o644))
	_, err := Load(dir, nil)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("database: ../escape\n"), 0o644))
	_, err = Load(dir, nil)
	assert.Error(t, err)
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("lang: [unterminated\n"), 0o644))
	_, err := Load(dir, nil)
	assert.Error(t, err)
}

func TestWriteDefaultIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cfg")

	path, created, err := WriteDefault(dir)
	require.NoError(t, err)
	assert.True(t, created)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var cfg Config
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, DefaultDatabase, cfg.Database)
	assert.Empty(t, cfg.DataDir)

	require.NoError(t, os.WriteFile(path, []byte("lang: en\n"), 0o644))
	_, created, err = WriteDefault(dir)
	require.NoError(t, err)
	assert.False(t, created)
	data, _ = os.ReadFile(path)
	assert.Equal(t, "lang: en\n", string(data), "existing file is left alone")
}
