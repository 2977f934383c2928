package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/familiar/internal/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testLoader(env ...string) *Loader {
	return &Loader{Environ: func() []string { return env }}
}

func TestLoad_FullConfig(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	path := writeFile(t, dir, "familiar.hcl", `
scheduler {
  cycle        = "250ms"
  idle_backoff = "30s"
  drift_limit  = 3
  high_fill    = 0.9
  reserve      = { home = 32 }
}

formulas {
  base_duration = "20s"
}

inventory {
  path         = "state/inventory.yaml"
  reset_signal = "/var/run/familiar/reset"
}

transport "socketio" {
  url       = env.FAMILIAR_GATEWAY
  namespace = "/workers"
}

server {
  port = 9090
}
`)

	// --- Act ---
	m, err := testLoader("FAMILIAR_GATEWAY=http://gateway:3000").Load(context.Background(), path)

	// --- Assert ---
	require.NoError(t, err)
	want := config.Default()
	want.Scheduler.Cycle = 250 * time.Millisecond
	want.Scheduler.IdleBackoff = 30 * time.Second
	want.Scheduler.DriftLimit = 3
	want.Scheduler.HighFill = 0.9
	want.Scheduler.Reserve = map[string]int{"home": 32}
	want.Formulas.BaseDuration = 20 * time.Second
	want.Inventory = config.Inventory{Path: filepath.Join(dir, "state/inventory.yaml"), ResetSignal: "/var/run/familiar/reset"}
	want.Transport.Kind = config.TransportSocketIO
	want.Transport.URL = "http://gateway:3000"
	want.Transport.Namespace = "/workers"
	want.Server.Port = 9090
	if diff := cmp.Diff(want, m); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_DirectoryMergesFilesInOrder(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	writeFile(t, dir, "a_base.hcl", `
scheduler {
  cycle       = "100ms"
  drift_limit = 7
}
inventory {
  path = "inventory.yaml"
}
`)
	writeFile(t, dir, "b_override/local.hcl", `
scheduler {
  cycle = "300ms"
}
transport "local" {}
`)
	writeFile(t, dir, "notes.txt", "ignored")

	// --- Act ---
	m, err := testLoader().Load(context.Background(), dir)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, 300*time.Millisecond, m.Scheduler.Cycle)
	assert.Equal(t, 7, m.Scheduler.DriftLimit, "attributes not overridden keep the earlier value")
	assert.Equal(t, config.TransportLocal, m.Transport.Kind)
	assert.Equal(t, filepath.Join(dir, "inventory.yaml"), m.Inventory.Path)
}

func TestLoad_LookupWithDefault(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	dir := t.TempDir()
	path := writeFile(t, dir, "familiar.hcl", `
inventory {
  path = lookup(env, "FAMILIAR_INVENTORY", "/srv/inventory.yaml")
}
server {
  port = lookup(env, "FAMILIAR_PORT", 8080)
}
`)

	// --- Act ---
	m, err := testLoader("FAMILIAR_PORT=7070").Load(context.Background(), path)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "/srv/inventory.yaml", m.Inventory.Path)
	assert.Equal(t, 7070, m.Server.Port)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "syntax error",
			content: "scheduler {\n  cycle = \"1s\"\n",
			wantErr: "failed to parse HCL file",
		},
		{
			name:    "unknown block",
			content: "inventory { path = \"x\" }\nworkers {}\n",
			wantErr: "failed to decode HCL file",
		},
		{
			name:    "bad duration",
			content: "inventory { path = \"x\" }\nscheduler { cycle = \"soon\" }\n",
			wantErr: "scheduler.cycle",
		},
		{
			name:    "fractional reserve",
			content: "inventory { path = \"x\" }\nscheduler { reserve = { home = 1.5 } }\n",
			wantErr: "scheduler.reserve",
		},
		{
			name:    "missing env variable",
			content: "inventory { path = env.NOPE }\n",
			wantErr: "failed to decode HCL file",
		},
		{
			name:    "two transports",
			content: "inventory { path = \"x\" }\ntransport \"dry\" {}\ntransport \"local\" {}\n",
			wantErr: "already declared",
		},
		{
			name:    "fails validation",
			content: "transport \"socketio\" {}\n",
			wantErr: "invalid configuration",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			path := writeFile(t, t.TempDir(), "familiar.hcl", tc.content)

			// --- Act ---
			_, err := testLoader().Load(context.Background(), path)

			// --- Assert ---
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoad_PathProblems(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	txt := writeFile(t, dir, "familiar.txt", "")

	_, err := testLoader().Load(context.Background(), filepath.Join(dir, "missing.hcl"))
	assert.ErrorContains(t, err, "error accessing config path")

	_, err = testLoader().Load(context.Background(), txt)
	assert.ErrorContains(t, err, "not an .hcl file")

	_, err = testLoader().Load(context.Background(), t.TempDir())
	assert.ErrorContains(t, err, "no .hcl files found")
}
