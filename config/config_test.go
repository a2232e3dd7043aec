package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "PORTAL_ROW_LIMIT", "PORTAL_TIMEOUT", "CLICKHOUSE_HOST", "UPLOAD_MAX_BYTES"} {
		t.Setenv(k, "")
	}
	cfg, err := LoadServer()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DefaultPortalLimit, cfg.PortalRowLimit)
	assert.Equal(t, DefaultPortalTimeout, cfg.PortalTimeout)
	assert.Equal(t, int64(DefaultUploadMax), cfg.UploadMaxBytes)
	assert.False(t, cfg.ClickHouse.Enabled())
}

func TestLoadServerRejectsBadNumbers(t *testing.T) {
	t.Setenv("PORTAL_ROW_LIMIT", "lots")
	t.Setenv("PORTAL_TIMEOUT", "soon")
	_, err := LoadServer()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORTAL_ROW_LIMIT")
	assert.Contains(t, err.Error(), "PORTAL_TIMEOUT")
}

func TestLoadClientFallsBackToLegacyBase(t *testing.T) {
	t.Setenv("YIELD_API_BASE", "")
	t.Setenv("REACT_APP_API_BASE", "http://reports.local/")
	t.Setenv("YIELD_POLL_INTERVAL", "90")
	t.Setenv("YIELD_CACHE_TTL", "2m")
	t.Setenv("YIELD_CHUNK_SIZE", "")

	cfg, err := LoadClient()
	require.NoError(t, err)
	assert.Equal(t, "http://reports.local", cfg.APIBase)
	assert.Equal(t, 90*time.Second, cfg.PollInterval)
	assert.Equal(t, 2*time.Minute, cfg.CacheTTL)
	assert.Equal(t, DefaultChunkSize, cfg.ChunkSize)
}

func TestLoadClientRejectsZeroChunk(t *testing.T) {
	t.Setenv("YIELD_CHUNK_SIZE", "0")
	_, err := LoadClient()
	assert.Error(t, err)
}

func TestLoadAliases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	require.NoError(t, os.WriteFile(path, []byte("SXM5:\n  - sxm5 hgx\n  - SXM-5\nPCIE: [pcie card]\n"), 0o644))

	r, err := LoadAliases(path)
	require.NoError(t, err)
	got, ok := r.Resolve("SXM5  HGX")
	assert.True(t, ok)
	assert.Equal(t, "SXM5", got)
	_, ok = r.Resolve("SXM50")
	assert.False(t, ok)

	none, err := LoadAliases("")
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = LoadAliases(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseAliasesConflict(t *testing.T) {
	_, err := ParseAliases([]byte("A: [x]\nB: [X]\n"))
	assert.Error(t, err)
	_, err = ParseAliases([]byte("not: [valid"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("debug", "json")
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	logger, err = NewLogger("", "")
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())

	_, err = NewLogger("loud", "text")
	assert.Error(t, err)
	_, err = NewLogger("info", "xml")
	assert.Error(t, err)
}
