package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.TickRate != 60 || cfg.Arena.MatchTimeLimit != 120 || cfg.Arena.RespawnDelay != 5 {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.Arena.Ship.Hitpoints != 5 || cfg.Arena.KillBonus != 25 {
		t.Fatalf("arena defaults = %+v", cfg.Arena)
	}
	if cfg.Arena.Groups.Small.CountMin != 5 || cfg.Arena.Groups.Small.CountMax != 20 {
		t.Fatalf("group defaults = %+v", cfg.Arena.Groups.Small)
	}
	if cfg.Arena.Steering.Kd != 75 || cfg.Arena.Steering.LimMax != 200 {
		t.Fatalf("steering defaults = %+v", cfg.Arena.Steering)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFileOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  tick_rate: 30
arena:
  seed: "42"
  groups:
    small:
      count_min: 5
      count_max: 5
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.TickRate != 30 || cfg.Arena.Seed != "42" {
		t.Fatalf("cfg = %+v", cfg.Server)
	}
	if cfg.Arena.Groups.Small.CountMax != 5 {
		t.Fatalf("small = %+v", cfg.Arena.Groups.Small)
	}
	if cfg.Server.GamePort != 8081 {
		t.Fatalf("未覆盖的键应保留默认值: %d", cfg.Server.GamePort)
	}
}

func TestLoadRejectsInvalidRange(t *testing.T) {
	path := writeConfig(t, `
arena:
  groups:
    big:
      count_min: 9
      count_max: 3
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "big") {
		t.Fatalf("err = %v, want invalid big range", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("缺失的配置文件应返回错误")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("SERVER_TICK_RATE", "20")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.TickRate != 20 {
		t.Fatalf("tick_rate = %d, want 20", cfg.Server.TickRate)
	}
}
