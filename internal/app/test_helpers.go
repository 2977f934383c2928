package app

import (
	"bytes"
	"context"
	"os"
	"sync"
	"testing"

	"github.com/specialistvlad/familiar/internal/config"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// StaticLoader is a config.Loader returning a fixed model, for tests that
// do not need files.
type StaticLoader struct {
	Model *config.Model
	Err   error
}

// Load implements config.Loader.
func (l StaticLoader) Load(context.Context, ...string) (*config.Model, error) {
	return l.Model, l.Err
}

// SetupAppTest creates a new app instance for system testing.
func SetupAppTest(t *testing.T, model *config.Model, opts ...Option) (*App, *SafeBuffer) {
	t.Helper()

	logBuffer := &SafeBuffer{}
	appConfig := &Config{ConfigPaths: []string{"in-memory"}, LogLevel: "debug", LogFormat: "text"}
	testApp, err := NewApp(logBuffer, appConfig, StaticLoader{Model: model}, opts...)
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}

	t.Cleanup(func() {
		if os.Getenv("FAMILIAR_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, logBuffer
}
