package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-device/internal/credentials"
	"github.com/nerrad567/gray-logic-device/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-device/internal/provisioning"
	"github.com/nerrad567/gray-logic-device/internal/runtime"
)

// writeConfig writes a config with an unreachable broker and a database
// inside the test's temp dir, and points GRAYDEVICE_CONFIG at it.
func writeConfig(t *testing.T, extra string) {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
database:
  path: "` + filepath.Join(tmpDir, "device.db") + `"
  wal_mode: true
  busy_timeout: 5
cloud:
  mqtt:
    broker:
      host: "127.0.0.1"
      port: 19999
logging:
  level: error
  format: text
  output: stdout
` + extra
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("GRAYDEVICE_CONFIG", configPath)
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("GRAYDEVICE_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

func TestRun_MissingStoredCredentials(t *testing.T) {
	writeConfig(t, `
device:
  credential_source: storage
`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if !errors.Is(err, runtime.ErrStartup) {
		t.Fatalf("run() error = %v, want ErrStartup", err)
	}
	if !errors.Is(err, credentials.ErrCredentialsMissing) {
		t.Errorf("run() error = %v, want ErrCredentialsMissing", err)
	}
}

func TestRun_StaticCredentialsCleanShutdown(t *testing.T) {
	writeConfig(t, `
device:
  credential_source: static
  static:
    device_id: "0102030405060708090a0b0c"
`)
	t.Setenv("GRAYDEVICE_PRIVATE_KEY", strings.Repeat("ab", credentials.PrivateKeyLength))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Errorf("run() error = %v, want nil on shutdown", err)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("GRAYDEVICE_CONFIG", "")
	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}

	t.Setenv("GRAYDEVICE_CONFIG", "/custom/path/config.yaml")
	if path := getConfigPath(); path != "/custom/path/config.yaml" {
		t.Errorf("getConfigPath() = %q, want env override", path)
	}
}

func TestButtonInput(t *testing.T) {
	input, err := buttonInput(config.ButtonConfig{Source: config.ButtonSourceNone})
	if err != nil {
		t.Fatalf("buttonInput(none) error = %v", err)
	}
	if _, ok := input.(provisioning.StaticInput); !ok {
		t.Errorf("buttonInput(none) = %T, want StaticInput", input)
	}

	root := t.TempDir()
	input, err = buttonInput(config.ButtonConfig{Source: config.ButtonSourceSysfs, GPIO: 4, SysfsRoot: root})
	if err != nil {
		t.Fatalf("buttonInput(sysfs) error = %v", err)
	}
	sysfs, ok := input.(*provisioning.SysfsInput)
	if !ok {
		t.Fatalf("buttonInput(sysfs) = %T, want *SysfsInput", input)
	}
	if want := filepath.Join(root, "gpio4", "value"); sysfs.Path() != want {
		t.Errorf("Path() = %q, want %q", sysfs.Path(), want)
	}

	if _, err := buttonInput(config.ButtonConfig{Source: config.ButtonSourceSysfs, GPIO: -1}); err == nil {
		t.Error("buttonInput(gpio -1) error = nil, want error")
	}
}
