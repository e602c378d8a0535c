package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_CreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.xml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, 8089, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Decoding.MaxSessions)
	assert.Equal(t, filepath.Join(dir, "data/uploads"), cfg.Storage.UploadsDirectory)
	assert.Equal(t, 30*time.Minute, cfg.SessionTimeout())
	assert.Equal(t, 5*time.Minute, cfg.CleanupInterval())
}

func TestLoadConfig_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.xml")
	xmlText := `<COMTRADEViewer>
  <Server><Port>9000</Port><BindAddress>127.0.0.1</BindAddress></Server>
  <Decoding><CriticalTimestamp>true</CriticalTimestamp><MaxSessions>2</MaxSessions></Decoding>
  <Logging><level>debug</level></Logging>
</COMTRADEViewer>`
	require.NoError(t, os.WriteFile(path, []byte(xmlText), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.GetServerAddr())
	assert.True(t, cfg.Decoding.CriticalTimestamp)
	assert.Equal(t, 2, cfg.Decoding.MaxSessions)
	assert.Equal(t, 50000, cfg.Decoding.SampleBatchSize)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PORT", "7070")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("COMTRADE_CRITICAL_TIMESTAMP", "true")

	cfg, err := LoadConfig(filepath.Join(dir, "config.xml"))
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.True(t, cfg.Decoding.CriticalTimestamp)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "elsewhere")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DATA_DIR="+dataDir+"\n"), 0644))
	// godotenv does not overwrite existing variables; make sure the test controls it.
	t.Setenv("DATA_DIR", "")
	os.Unsetenv("DATA_DIR")

	cfg, err := LoadConfig(filepath.Join(dir, "config.xml"))
	require.NoError(t, err)
	assert.Equal(t, dataDir, cfg.Storage.DataDirectory)
	assert.Equal(t, filepath.Join(dataDir, "uploads"), cfg.Storage.UploadsDirectory)
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.xml")

	require.NoError(t, os.WriteFile(path, []byte("<COMTRADEViewer><Server>"), 0644))
	_, err := LoadConfig(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("<COMTRADEViewer><Decoding><MaxSessions>-1</MaxSessions></Decoding></COMTRADEViewer>"), 0644))
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, "max sessions")
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.resolvePaths(dir)
	require.NoError(t, cfg.EnsureDirectories())
	assert.DirExists(t, cfg.Storage.UploadsDirectory)
	assert.DirExists(t, cfg.Storage.TempDirectory)
}
