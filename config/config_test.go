package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shrijacked/Pieskieo/vector"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ShardTotal != 1 || cfg.Metric != "l2" {
		t.Fatalf("expected defaults, got %#v", cfg)
	}
}

func TestLoadParsesFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"shard_total":4,"metric":"cosine","ef_search":77}`), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PIESKIEO_EF_SEARCH", "99")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ShardTotal != 4 {
		t.Fatalf("expected file value 4, got %d", cfg.ShardTotal)
	}
	if cfg.EfSearch != 99 {
		t.Fatalf("expected env override 99, got %d", cfg.EfSearch)
	}
	if cfg.VectorMetric() != vector.Cosine {
		t.Fatalf("expected cosine metric")
	}
}

func TestWalMaxBytesParsedUnderstandsUnitSuffixes(t *testing.T) {
	cfg := Config{WalMaxBytes: "64MiB"}
	n, err := cfg.WalMaxBytesParsed()
	if err != nil {
		t.Fatal(err)
	}
	if n != 64*1024*1024 {
		t.Fatalf("expected 64MiB in bytes, got %d", n)
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"shard_total":1}`), 0o644); err != nil {
		t.Fatal(err)
	}

	changed := make(chan Config, 1)
	w, err := Watch(path, func(cfg Config) { changed <- cfg })
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte(`{"shard_total":3}`), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-changed:
		if cfg.ShardTotal != 3 {
			t.Fatalf("expected reloaded shard_total 3, got %d", cfg.ShardTotal)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}
