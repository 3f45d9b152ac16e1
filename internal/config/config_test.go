// Copyright 2025 The RealmGate Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil, nil)
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Server.Addr)
	require.Equal(t, "realmgate.db", cfg.Database.URL)
	require.Equal(t, "info", cfg.Logging.Level)
	require.Equal(t, "json", cfg.Logging.Format)
	require.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
database:
  url: /tmp/realmgate-test.db
logging:
  level: debug
  format: text
`), 0o644))

	cfg, err := Load(path, nil, nil)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.Server.Addr)
	require.Equal(t, "/tmp/realmgate-test.db", cfg.Database.URL)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil, nil)
	require.Error(t, err)
}

func TestEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("REALMGATE__SERVER__ADDR", ":7070")
	t.Setenv("DATABASE_URL", "env.db")

	cfg, err := Load("", nil, nil)
	require.NoError(t, err)
	require.Equal(t, ":7070", cfg.Server.Addr)
	require.Equal(t, "env.db", cfg.Database.URL)
}

func TestDumpWritesEffectiveYAML(t *testing.T) {
	t.Setenv("REALMGATE__SERVER__ADDR", ":7070")

	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, "", nil, nil))

	var out map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &out))
	server, ok := out["server"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, ":7070", server["addr"])
}

func TestValidationRejectsBadLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logging:
  level: loud
`), 0o644))

	_, err := Load(path, nil, nil)
	require.Error(t, err)
}
