/*
Copyright (C) 2023-2026  Carl-Philip Hänsch

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package config loads a shard pool's settings from a JSON file with
// environment variable overrides, and can watch that file for changes
// to the handful of settings that are safe to apply to a running
// engine without a restart (ef_search, ef_construction, link_top_k).
package config

import (
	"encoding/json"
	"os"
	"strconv"

	units "github.com/docker/go-units"
	"github.com/shrijacked/Pieskieo/vector"
)

// Config is a shard pool's full configuration.
type Config struct {
	DataDir    string `json:"data_dir"`
	ShardTotal int    `json:"shard_total"`

	Metric         string `json:"metric"` // "l2" or "cosine"
	EfConstruction int    `json:"ef_construction"`
	EfSearch       int    `json:"ef_search"`
	LinkTopK       int    `json:"link_top_k"`

	// MaxElements is copied into engine.Params.MaxElements; no limit on
	// a shard's live vector count is enforced from it.
	MaxElements int `json:"max_elements"`
	// WalMaxBytes accepts a human size ("64MB", "1GiB", a bare byte
	// count) via docker/go-units, read by WalMaxBytesParsed. The WAL is
	// not rotated or capped by it.
	WalMaxBytes string `json:"wal_max_bytes"`

	Backend BackendConfig `json:"backend"`
}

// BackendConfig selects and configures a persistence.Backend.
type BackendConfig struct {
	Kind string `json:"kind"` // "file" (default), "s3", "ceph"

	// file
	Basepath string `json:"basepath"`

	// s3
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	Region          string `json:"region"`
	Endpoint        string `json:"endpoint"`
	Bucket          string `json:"bucket"`
	Prefix          string `json:"prefix"`
	ForcePathStyle  bool   `json:"force_path_style"`

	// ceph
	UserName    string `json:"username"`
	ClusterName string `json:"cluster"`
	ConfFile    string `json:"conf_file"`
	Pool        string `json:"pool"`
}

// Default returns a Config matching engine.DefaultParams, rooted at
// dataDir with a single shard and a local-file backend.
func Default(dataDir string) Config {
	return Config{
		DataDir:        dataDir,
		ShardTotal:     1,
		Metric:         "l2",
		EfConstruction: 200,
		EfSearch:       50,
		LinkTopK:       0,
		MaxElements:    100_000,
		WalMaxBytes:    "256MiB",
		Backend:        BackendConfig{Kind: "file", Basepath: dataDir},
	}
}

// Load reads a JSON config file, applying PIESKIEO_*-prefixed
// environment variable overrides for the scalar fields hot-reload
// also covers (DataDir, ShardTotal, Metric, EfConstruction, EfSearch,
// LinkTopK, MaxElements, WalMaxBytes). Environment overrides win over
// the file so a container orchestrator can tune a shard pool without
// rewriting its config file.
func Load(path string) (Config, error) {
	cfg := Default("")
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return Config{}, err
		}
	} else if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("PIESKIEO_DATA_DIR"); ok {
		cfg.DataDir = v
	}
	if v, ok := os.LookupEnv("PIESKIEO_SHARD_TOTAL"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ShardTotal = n
		}
	}
	if v, ok := os.LookupEnv("PIESKIEO_METRIC"); ok {
		cfg.Metric = v
	}
	if v, ok := os.LookupEnv("PIESKIEO_EF_CONSTRUCTION"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.EfConstruction = n
		}
	}
	if v, ok := os.LookupEnv("PIESKIEO_EF_SEARCH"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.EfSearch = n
		}
	}
	if v, ok := os.LookupEnv("PIESKIEO_LINK_TOP_K"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LinkTopK = n
		}
	}
	if v, ok := os.LookupEnv("PIESKIEO_MAX_ELEMENTS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxElements = n
		}
	}
	if v, ok := os.LookupEnv("PIESKIEO_WAL_MAX_BYTES"); ok {
		cfg.WalMaxBytes = v
	}
}

// WalMaxBytesParsed parses WalMaxBytes via docker/go-units'
// RAMInBytes, which accepts "64MB", "64MiB" and a bare byte count and
// reads both suffix forms as binary multiples (64MB == 64MiB).
func (c Config) WalMaxBytesParsed() (int64, error) {
	if c.WalMaxBytes == "" {
		return 0, nil
	}
	return units.RAMInBytes(c.WalMaxBytes)
}

// VectorMetric maps Metric's string form to vector.Metric.
func (c Config) VectorMetric() vector.Metric {
	if c.Metric == "cosine" {
		return vector.Cosine
	}
	return vector.L2
}
