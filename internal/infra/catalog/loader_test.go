package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mcpdrift/internal/domain"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mcpdrift.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoader_FullConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  cmd: ["node", "server.js"]
  env:
    API_KEY: secret
  cwd: /srv/app
probe:
  mode: quick
  callsPerTool: 5
  callTimeoutSeconds: 10
  concurrency: 3
ledger:
  enabled: true
  maxValues: 50
  maxRecent: 4
  paramPatterns: ["id", "slug"]
dependencies:
  edges:
    - {from: create_user, to: get_user}
  layers:
    create_user: 0
    get_user: 1
store:
  path: /var/lib/mcpdrift/baselines.db
`)

	cfg, err := NewLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)

	require.Equal(t, []string{"node", "server.js"}, cfg.Server.Cmd)
	require.Equal(t, "secret", cfg.Server.Env["API_KEY"])
	require.Equal(t, "/srv/app", cfg.Server.Cwd)
	require.Equal(t, "node server.js", cfg.Server.Command())
	require.Equal(t, domain.ModeQuick, cfg.Mode)
	require.Equal(t, 5, cfg.CallsPerTool)
	require.Equal(t, 10*time.Second, cfg.CallTimeout)
	require.Equal(t, 3, cfg.Concurrency)
	require.True(t, cfg.Ledger.Enabled)
	require.Equal(t, 50, cfg.Ledger.MaxValues)
	require.Equal(t, 4, cfg.Ledger.MaxRecent)
	require.Equal(t, []string{"id", "slug"}, cfg.Ledger.ParamPatterns)
	require.Equal(t, []domain.DependencyEdge{{From: "create_user", To: "get_user"}}, cfg.Graph.Edges)
	require.Equal(t, 1, cfg.Graph.Layer("get_user"))
	require.Equal(t, "/var/lib/mcpdrift/baselines.db", cfg.StorePath)
}

func TestLoader_Defaults(t *testing.T) {
	path := writeConfig(t, `
server:
  cmd: ["./server"]
`)

	cfg, err := NewLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)

	require.Equal(t, domain.ModeFull, cfg.Mode)
	require.Equal(t, DefaultCallsPerTool, cfg.CallsPerTool)
	require.Equal(t, DefaultCallTimeoutSeconds*time.Second, cfg.CallTimeout)
	require.Equal(t, DefaultConcurrency, cfg.Concurrency)
	require.True(t, cfg.Ledger.Enabled)
	require.Equal(t, domain.DefaultLedgerMaxValues, cfg.Ledger.MaxValues)
	require.Equal(t, domain.DefaultLedgerMaxRecent, cfg.Ledger.MaxRecent)
	require.Equal(t, DefaultStorePath, cfg.StorePath)
}

func TestLoader_EnvExpansion(t *testing.T) {
	t.Setenv("MCPDRIFT_TOKEN", "tok-123")
	path := writeConfig(t, `
server:
  cmd: ["./server"]
  env:
    TOKEN: ${MCPDRIFT_TOKEN}
`)

	cfg, err := NewLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, "tok-123", cfg.Server.Env["TOKEN"])
}

func TestLoader_EnvExpansionRetagsPlainScalars(t *testing.T) {
	t.Setenv("MCPDRIFT_CALLS", "7")
	path := writeConfig(t, `
server:
  cmd: ["./server"]
probe:
  callsPerTool: ${MCPDRIFT_CALLS}
`)

	cfg, err := NewLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, 7, cfg.CallsPerTool)
}

func TestLoader_UnsetServerVarFails(t *testing.T) {
	path := writeConfig(t, `
server:
  cmd: ["./server", "--token", "${MCPDRIFT_NO_SUCH_TOKEN}"]
`)

	_, err := NewLoader(nil).Load(context.Background(), path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "MCPDRIFT_NO_SUCH_TOKEN")
	require.Contains(t, err.Error(), "server config")
}

func TestLoader_UnsetVarOutsideServerExpandsEmpty(t *testing.T) {
	path := writeConfig(t, `
server:
  cmd: ["./server"]
store:
  path: ${MCPDRIFT_NO_SUCH_STORE}
`)

	cfg, err := NewLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, DefaultStorePath, cfg.StorePath)
}

func TestLoader_ValidationErrors(t *testing.T) {
	path := writeConfig(t, `
probe:
  mode: exhaustive
  callsPerTool: 0
dependencies:
  edges:
    - {from: a, to: a}
    - {from: "", to: b}
`)

	_, err := NewLoader(nil).Load(context.Background(), path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "server.cmd is required")
	require.Contains(t, err.Error(), "probe.mode must be full or quick")
	require.Contains(t, err.Error(), "probe.callsPerTool must be >= 1")
	require.Contains(t, err.Error(), `edge from "a" to itself`)
	require.Contains(t, err.Error(), "edges[1]: from and to are required")
}

func TestLoader_MissingFile(t *testing.T) {
	_, err := NewLoader(nil).Load(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)

	_, err = NewLoader(nil).Load(context.Background(), "")
	require.Error(t, err)
}
