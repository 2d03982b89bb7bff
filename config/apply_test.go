package config_test

import (
	"testing"
	"time"

	"github.com/aolserver/aolserver-sub004/config"
	"github.com/aolserver/aolserver-sub004/limits"
	"github.com/aolserver/aolserver-sub004/server"
)

func TestApplyLiveUpdatesPoolAndLimits(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	srv := server.New(cfg.ServerConfig(nil, nil))

	cfg.MinThreads = 2
	cfg.MaxThreads = 6
	cfg.Limits.Default.MaxRun = 7
	cfg.Limits.Default.Timeout = 3 * time.Second

	cfg.ApplyLive(srv)

	snap := srv.Limits().Get(limits.DefaultName, true).Stats()
	if snap.MaxRun != 7 {
		t.Fatalf("expected live-reloaded MaxRun=7, got %d", snap.MaxRun)
	}
	if snap.Timeout != 3*time.Second {
		t.Fatalf("expected live-reloaded Timeout=3s, got %v", snap.Timeout)
	}
}
