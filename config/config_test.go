package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aolserver/aolserver-sub004/config"
)

func TestLoadDefaultsWithoutAFile(t *testing.T) {
	// An empty path means "search viper's default locations"; none of
	// them exist in the test working directory, so Load must tolerate
	// that and fall back to defaults rather than erroring.
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.MinThreads != 4 || cfg.MaxThreads != 32 {
		t.Fatalf("expected default pool sizing, got min=%d max=%d", cfg.MinThreads, cfg.MaxThreads)
	}
	if cfg.Limits.Default.MaxRun != 100 || cfg.Limits.Default.Timeout != 60*time.Second {
		t.Fatalf("expected default limits policy, got %+v", cfg.Limits.Default)
	}
	if !cfg.ContentCache.Enabled {
		t.Fatal("expected content-cache.enabled to default true")
	}
	if !cfg.ADP.EnableExpire {
		t.Fatal("expected adp.enable-expire to default true")
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aolserverd.yaml")
	body := `
min-threads: 8
max-threads: 64
thread-timeout: 45s
content-cache:
  enabled: false
  per-entry-limit: 4096
limits:
  default:
    maxrun: 10
    maxwait: 5
    maxupload: 2048
    timeout: 2s
http:
  major: 1
  minor: 1
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.MinThreads != 8 || cfg.MaxThreads != 64 {
		t.Fatalf("expected overridden pool sizing, got min=%d max=%d", cfg.MinThreads, cfg.MaxThreads)
	}
	if cfg.ThreadTimeout != 45*time.Second {
		t.Fatalf("expected 45s thread-timeout, got %v", cfg.ThreadTimeout)
	}
	if cfg.ContentCache.Enabled {
		t.Fatal("expected content-cache.enabled=false to be honored")
	}
	if cfg.ContentCache.PerEntryLimit != 4096 {
		t.Fatalf("expected per-entry-limit 4096, got %d", cfg.ContentCache.PerEntryLimit)
	}
	if cfg.Limits.Default.MaxRun != 10 || cfg.Limits.Default.Timeout != 2*time.Second {
		t.Fatalf("expected overridden limits.default, got %+v", cfg.Limits.Default)
	}
	if cfg.HTTP.Major != 1 || cfg.HTTP.Minor != 1 {
		t.Fatalf("expected http 1.1, got %d.%d", cfg.HTTP.Major, cfg.HTTP.Minor)
	}
}

func TestLoadRejectsAnExplicitMissingFile(t *testing.T) {
	// A nonexistent default search path is tolerated (tested above); a
	// caller-specified path that doesn't exist is treated as a mistake.
	missing := filepath.Join(t.TempDir(), "nope", "aolserverd.yaml")
	if _, err := config.Load(missing); err == nil {
		t.Fatal("expected an error for an explicit, nonexistent --config path")
	}
}

func TestDumpYAMLRoundTripsFields(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	out, err := cfg.DumpYAML()
	if err != nil {
		t.Fatalf("DumpYAML failed: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("expected non-empty YAML output")
	}
}
