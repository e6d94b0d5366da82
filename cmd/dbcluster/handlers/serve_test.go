package handlers

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/VoxelHeimGame/db-cluster/internal/config"
	"github.com/VoxelHeimGame/db-cluster/internal/provisioning/driver"
	testutil "github.com/VoxelHeimGame/db-cluster/internal/testing"
)

func clearServeEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"DATABASE_URL", "DBCLUSTER_ADDR", "DBCLUSTER_SCRIPT_DIR", "DEBUG"} {
		t.Setenv(name, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dbcluster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadServeConfig(t *testing.T) {
	clearServeEnv(t)

	t.Run("flags override file", func(t *testing.T) {
		path := writeConfig(t, `
server:
  addr: ":4000"
driver:
  scriptDir: /from/file
autoscaler:
  enabled: true
  interval: 30s
`)
		cfg, err := loadServeConfig(ServeOptions{
			ConfigPath:        path,
			Addr:              ":5000",
			ScriptDir:         "/from/flag",
			Debug:             true,
			DisableAutoscaler: true,
		})
		require.NoError(t, err)
		assert.Equal(t, ":5000", cfg.Server.Addr)
		assert.Equal(t, "/from/flag", cfg.Driver.ScriptDir)
		assert.True(t, cfg.Log.Development)
		assert.False(t, cfg.Autoscaler.Enabled)
		assert.Equal(t, 30*time.Second, cfg.Autoscaler.Interval)
	})

	t.Run("file values kept without flags", func(t *testing.T) {
		path := writeConfig(t, "server:\n  addr: \":4000\"\n")
		cfg, err := loadServeConfig(ServeOptions{ConfigPath: path})
		require.NoError(t, err)
		assert.Equal(t, ":4000", cfg.Server.Addr)
		assert.True(t, cfg.Autoscaler.Enabled)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loadServeConfig(ServeOptions{ConfigPath: filepath.Join(t.TempDir(), "nope.yaml")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config file not found")
	})

	t.Run("invalid config", func(t *testing.T) {
		path := writeConfig(t, "driver:\n  kind: carrier-pigeon\n")
		_, err := loadServeConfig(ServeOptions{ConfigPath: path})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown driver kind")
	})
}

func TestNewDriver(t *testing.T) {
	t.Parallel()
	ctx := testutil.TestContext(t)

	t.Run("script", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		cfg := testutil.NewConfigBuilder().WithScriptDriver(dir, time.Minute).Build()

		d, err := newDriver(ctx, cfg)
		require.NoError(t, err)
		sd, ok := d.(*driver.ScriptDriver)
		require.True(t, ok)
		assert.Equal(t, dir, sd.Dir())
	})

	t.Run("script dir missing", func(t *testing.T) {
		t.Parallel()
		cfg := testutil.NewConfigBuilder().
			WithScriptDriver(filepath.Join(t.TempDir(), "missing"), time.Minute).Build()

		_, err := newDriver(ctx, cfg)
		require.Error(t, err)
	})

	t.Run("ssh", func(t *testing.T) {
		t.Parallel()
		keyFile := writeTestKey(t)
		cfg := testutil.NewConfigBuilder().
			WithSSHDriver("db.example.com", "citus", keyFile, "/opt/citus/docker").Build()

		d, err := newDriver(ctx, cfg)
		require.NoError(t, err)
		_, ok := d.(*driver.SSHDriver)
		assert.True(t, ok)
	})

	t.Run("ssh key missing", func(t *testing.T) {
		t.Parallel()
		cfg := testutil.NewConfigBuilder().
			WithSSHDriver("db.example.com", "citus", filepath.Join(t.TempDir(), "id"), "/opt/citus/docker").Build()

		_, err := newDriver(ctx, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read ssh private key")
	})

	t.Run("unknown kind", func(t *testing.T) {
		t.Parallel()
		cfg := testutil.NewConfigBuilder().Build()
		cfg.Driver.Kind = "carrier-pigeon"

		_, err := newDriver(ctx, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown driver kind")
	})
}

func writeTestKey(t *testing.T) string {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	block, err := ssh.MarshalPrivateKey(priv, "")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0o600))
	return path
}

func TestResolveScriptDir(t *testing.T) {
	t.Run("explicit dir wins", func(t *testing.T) {
		dir, err := resolveScriptDir("/opt/citus/docker")
		require.NoError(t, err)
		assert.Equal(t, "/opt/citus/docker", dir)
	})

	t.Run("found above working dir", func(t *testing.T) {
		root := t.TempDir()
		scripts := filepath.Join(root, driver.ScriptDirName)
		nested := filepath.Join(root, "cmd", "dbcluster")
		require.NoError(t, os.MkdirAll(scripts, 0o750))
		require.NoError(t, os.MkdirAll(nested, 0o750))
		t.Chdir(nested)

		dir, err := resolveScriptDir("")
		require.NoError(t, err)
		want, err := filepath.EvalSymlinks(scripts)
		require.NoError(t, err)
		got, err := filepath.EvalSymlinks(dir)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})
}

func TestNewHTTPServer(t *testing.T) {
	t.Parallel()

	cfg := testutil.NewConfigBuilder().WithAddr("127.0.0.1:0").Build()
	cfg.Log.Development = true
	cat := testutil.NewFakeCatalog(2)
	svc := newTestService(cat)

	srv := newHTTPServer(cfg, svc, cat, logr.Discard())
	assert.Equal(t, "127.0.0.1:0", srv.Addr)
	assert.Equal(t, config.DefaultIdleTimeout, srv.IdleTimeout)
	assert.Equal(t, config.DefaultReadHeaderTimeout, srv.ReadHeaderTimeout)
	require.NotNil(t, srv.Handler)
}

func TestRunServer(t *testing.T) {
	t.Parallel()

	t.Run("shuts down when context is cancelled", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(testutil.TestContext(t))
		srv := &http.Server{
			Addr:              freeAddr(t),
			Handler:           http.NotFoundHandler(),
			ReadHeaderTimeout: time.Second,
		}

		done := make(chan error, 1)
		go func() { done <- runServer(ctx, srv, time.Second) }()

		require.Eventually(t, func() bool {
			conn, err := net.Dial("tcp", srv.Addr)
			if err != nil {
				return false
			}
			_ = conn.Close()
			return true
		}, 2*time.Second, 10*time.Millisecond)

		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(3 * time.Second):
			t.Fatal("runServer did not return after cancel")
		}
	})

	t.Run("listen failure", func(t *testing.T) {
		t.Parallel()
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer func() { _ = ln.Close() }()

		srv := &http.Server{Addr: ln.Addr().String(), ReadHeaderTimeout: time.Second}
		err = runServer(testutil.TestContext(t), srv, time.Second)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "http server failed")
	})
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}
