package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"histoflow/internal/config"
)

func TestLoadDefaultsAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "histoflow")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.LogDir != filepath.Join(wantData, "logs") {
		t.Fatalf("unexpected log dir: %q", cfg.Paths.LogDir)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7519" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if len(cfg.Bench.Protocols) != 2 || cfg.Bench.Protocols[0] != "Receptor42" {
		t.Fatalf("unexpected default protocols: %v", cfg.Bench.Protocols)
	}
	if cfg.Bench.MaxWashLoops != 2 {
		t.Fatalf("unexpected max wash loops: %d", cfg.Bench.MaxWashLoops)
	}
	if cfg.Bench.PickupSlot != 1 || cfg.Bench.HandlerSlot != 1 || cfg.Bench.DropoffSlot != 1 {
		t.Fatalf("unexpected slot defaults: %+v", cfg.Bench)
	}
	if cfg.Workflow.HeartbeatInterval != config.Default().Workflow.HeartbeatInterval {
		t.Fatalf("unexpected heartbeat interval: %d", cfg.Workflow.HeartbeatInterval)
	}
	if cfg.Simulation.PassRate != 0.7 {
		t.Fatalf("unexpected pass rate: %v", cfg.Simulation.PassRate)
	}
	if cfg.Events.RedisAddr != "" {
		t.Fatalf("expected redis sink disabled by default, got %q", cfg.Events.RedisAddr)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "histoflow.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.SocketPath() != filepath.Join(wantData, "histoflow.sock") {
		t.Fatalf("unexpected socket path: %q", cfg.SocketPath())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "histoflow.toml")

	type payload struct {
		Bench struct {
			Protocols    []string `toml:"protocols"`
			MaxWashLoops int      `toml:"max_wash_loops"`
		} `toml:"bench"`
		Workflow struct {
			HeartbeatInterval int `toml:"heartbeat_interval"`
			HeartbeatTimeout  int `toml:"heartbeat_timeout"`
		} `toml:"workflow"`
		Events struct {
			RedisAddr string `toml:"redis_addr"`
		} `toml:"events"`
	}
	custom := payload{}
	custom.Bench.Protocols = []string{"HER2", "  ", "Ki67"}
	custom.Bench.MaxWashLoops = 5
	custom.Workflow.HeartbeatInterval = 20
	custom.Workflow.HeartbeatTimeout = 200
	custom.Events.RedisAddr = "127.0.0.1:6379"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if len(cfg.Bench.Protocols) != 2 || cfg.Bench.Protocols[0] != "HER2" || cfg.Bench.Protocols[1] != "Ki67" {
		t.Fatalf("expected blank protocol entries dropped, got %v", cfg.Bench.Protocols)
	}
	if cfg.Bench.MaxWashLoops != 5 {
		t.Fatalf("expected max wash loops 5, got %d", cfg.Bench.MaxWashLoops)
	}
	if cfg.Workflow.HeartbeatInterval != 20 {
		t.Fatalf("expected heartbeat interval 20, got %d", cfg.Workflow.HeartbeatInterval)
	}
	if cfg.Workflow.HeartbeatTimeout != 200 {
		t.Fatalf("expected heartbeat timeout 200, got %d", cfg.Workflow.HeartbeatTimeout)
	}
	if cfg.Events.RedisAddr != "127.0.0.1:6379" {
		t.Fatalf("expected redis addr override, got %q", cfg.Events.RedisAddr)
	}
	if cfg.Events.RedisStream != "histoflow:events" {
		t.Fatalf("expected default redis stream, got %q", cfg.Events.RedisStream)
	}
}

func TestEnvVarFallbacks(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("HISTOFLOW_API_TOKEN", "env-token")
	t.Setenv("HISTOFLOW_NTFY_TOPIC", "env-topic")
	t.Setenv("HISTOFLOW_REDIS_ADDR", "env-redis:6379")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.APIToken != "env-token" {
		t.Errorf("expected API token from env, got %q", cfg.Paths.APIToken)
	}
	if cfg.Notifications.NtfyTopic != "env-topic" {
		t.Errorf("expected ntfy topic from env, got %q", cfg.Notifications.NtfyTopic)
	}
	if cfg.Events.RedisAddr != "env-redis:6379" {
		t.Errorf("expected redis addr from env, got %q", cfg.Events.RedisAddr)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "Receptor42") {
		t.Fatalf("sample config missing default protocol: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Bench.MaxWashLoops != 2 {
		t.Fatalf("expected sample max_wash_loops 2, got %d", cfg.Bench.MaxWashLoops)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.Bench.Protocols = nil
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty protocol list")
	}

	cfg = config.Default()
	cfg.Bench.MaxWashLoops = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative wash loops")
	}

	cfg = config.Default()
	cfg.Bench.PickupSlot = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-positive pickup slot")
	}

	cfg = config.Default()
	cfg.Workflow.HeartbeatInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for heartbeat interval")
	}

	cfg = config.Default()
	cfg.Workflow.HeartbeatTimeout = cfg.Workflow.HeartbeatInterval
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when timeout <= interval")
	}

	cfg = config.Default()
	cfg.Simulation.PassRate = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for pass rate above 1")
	}

	cfg = config.Default()
	cfg.Events.RedisAddr = "127.0.0.1:6379"
	cfg.Events.RedisStream = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for redis addr without stream")
	}
}
