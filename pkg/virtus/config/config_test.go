package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/virtuscloud/virtus/pkg/virtus/types"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("VIRTUS_SERVER_TOKEN", "")
	t.Setenv("VIRTUS_DEPLOY_MODE", "")
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.URL != DefaultServerURL {
		t.Errorf("Server.URL = %q, want %q", cfg.Server.URL, DefaultServerURL)
	}
	if cfg.Server.Timeout != DefaultTimeout {
		t.Errorf("Server.Timeout = %v, want %v", cfg.Server.Timeout, DefaultTimeout)
	}
	if cfg.Mode() != types.ModeAuto {
		t.Errorf("Mode() = %q, want auto", cfg.Mode())
	}
	if cfg.Inspect.Output != DefaultOutput {
		t.Errorf("Inspect.Output = %q, want %q", cfg.Inspect.Output, DefaultOutput)
	}
	if len(cfg.Pack.Exclude) != len(DefaultPackExclude) {
		t.Errorf("Pack.Exclude = %v, want %v", cfg.Pack.Exclude, DefaultPackExclude)
	}
	if !cfg.Cache.Enabled || cfg.Cache.Path == "" {
		t.Errorf("Cache = %+v, want enabled with a path", cfg.Cache)
	}
	if !cfg.History.Enabled || cfg.History.RetentionDays != DefaultRetentionDays {
		t.Errorf("History = %+v", cfg.History)
	}
	if err := cfg.RequireServer(); err != ErrNoToken {
		t.Errorf("RequireServer() = %v, want ErrNoToken", err)
	}
}

func TestLoad_FromFile(t *testing.T) {
	home := isolate(t)
	configDir := filepath.Join(home, ".config", "virtus")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatal(err)
	}

	content := `
server:
  url: http://localhost:8080
  token: abc
  timeout: 5s
deploy:
  mode: manual
  plan: Pro
inspect:
  extensions: [".py", "rb"]
history:
  path: ~/hist
  retention_days: 7
logging:
  level: debug
  rotation:
    max_size: 1MB
`
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.URL != "http://localhost:8080" || cfg.Server.Token != "abc" {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Server.Timeout != 5*time.Second {
		t.Errorf("Server.Timeout = %v, want 5s", cfg.Server.Timeout)
	}
	if cfg.Mode() != types.ModeManual {
		t.Errorf("Mode() = %q, want manual", cfg.Mode())
	}
	if cfg.Deploy.Plan != "Pro" {
		t.Errorf("Deploy.Plan = %q", cfg.Deploy.Plan)
	}
	if len(cfg.Inspect.Extensions) != 2 {
		t.Errorf("Inspect.Extensions = %v", cfg.Inspect.Extensions)
	}
	if cfg.History.Path != filepath.Join(home, "hist") {
		t.Errorf("History.Path = %q, want expanded home path", cfg.History.Path)
	}
	if err := cfg.RequireServer(); err != nil {
		t.Errorf("RequireServer() = %v", err)
	}

	lc := cfg.LoggingConfig()
	if lc.Level != "debug" {
		t.Errorf("logging level = %q", lc.Level)
	}
	if lc.Rotation.MaxSize != types.MiB {
		t.Errorf("rotation max size = %d, want %d", lc.Rotation.MaxSize, types.MiB)
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("deploy:\n  plan: Team\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Deploy.Plan != "Team" {
		t.Errorf("Deploy.Plan = %q, want Team", cfg.Deploy.Plan)
	}
}

func TestLoad_Environment(t *testing.T) {
	isolate(t)
	t.Setenv("VIRTUS_SERVER_TOKEN", "from-env")
	t.Setenv("VIRTUS_DEPLOY_MODE", "manual")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Token != "from-env" {
		t.Errorf("Server.Token = %q, want from-env", cfg.Server.Token)
	}
	if cfg.Mode() != types.ModeManual {
		t.Errorf("Mode() = %q, want manual", cfg.Mode())
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad mode", "deploy:\n  mode: sometimes\n"},
		{"bad level", "logging:\n  level: loud\n"},
		{"bad rotation size", "logging:\n  rotation:\n    max_size: lots\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load() error = nil, want validation error")
			}
		})
	}
}

func TestWriteDefault(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "virtus", "config.yaml")

	written, err := WriteDefault(path)
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	if !written {
		t.Fatal("WriteDefault() did not write a new file")
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() of default file error = %v", err)
	}
	if cfg.Server.URL != DefaultServerURL || cfg.Mode() != types.ModeAuto {
		t.Errorf("default file round trip = %+v", cfg.Server)
	}

	written, err = WriteDefault(path)
	if err != nil {
		t.Fatal(err)
	}
	if written {
		t.Error("WriteDefault() overwrote an existing file")
	}
}

func TestExpandPath(t *testing.T) {
	home := isolate(t)

	got, err := ExpandPath("~/x")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(home, "x") {
		t.Errorf("ExpandPath(~/x) = %q", got)
	}

	got, _ = ExpandPath("/abs")
	if got != "/abs" {
		t.Errorf("ExpandPath(/abs) = %q", got)
	}
}
