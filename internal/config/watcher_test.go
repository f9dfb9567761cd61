package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_PublishCoalesces(t *testing.T) {
	w := NewWatcher()
	w.Publish(Config{Alias: "first"})
	w.Publish(Config{Alias: "second"})

	select {
	case cfg := <-w.Changed:
		if cfg.Alias != "second" {
			t.Errorf("Changed = %+v, want alias=second (latest wins)", cfg)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published config")
	}

	select {
	case cfg := <-w.Changed:
		t.Fatalf("unexpected second value on channel: %+v", cfg)
	default:
	}
}

func TestSaveAndPublish(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	w := NewWatcher()

	cfg := Default("node")
	if err := SaveAndPublish(path, cfg, w); err != nil {
		t.Fatalf("SaveAndPublish() error = %v", err)
	}

	select {
	case got := <-w.Changed:
		if got.Alias != "node" {
			t.Errorf("published config = %+v, want alias=node", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published config")
	}
}
