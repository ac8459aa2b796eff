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

/*
pieskieod wires a config file into a shardpool.Pool and keeps it alive:
periodic vacuum, a live config watch for the settings safe to apply
without a restart, and a clean shutdown on SIGINT/SIGTERM.

It is not an HTTP server — the wire protocol in spec.md §6 is outside
this core's scope; pieskieod exists to prove the core runs unattended.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shrijacked/Pieskieo/config"
	"github.com/shrijacked/Pieskieo/engine"
	"github.com/shrijacked/Pieskieo/persistence"
	"github.com/shrijacked/Pieskieo/shardpool"
)

func main() {
	configPath := flag.String("config", "pieskieod.json", "path to the pool's config file")
	vacuumInterval := flag.Duration("vacuum-interval", 10*time.Minute, "how often every shard is vacuumed")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("pieskieod: loading %s: %v", *configPath, err)
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "./data"
	}

	fmt.Println(`Pieskieo Copyright (C) 2023-2026 Carl-Philip Hänsch
    This program comes with ABSOLUTELY NO WARRANTY;
    This is free software, and you are welcome to redistribute it
    under certain conditions;`)

	params, err := buildParams(cfg)
	if err != nil {
		log.Fatalf("pieskieod: %v", err)
	}

	pool, err := shardpool.Open(cfg.DataDir, cfg.ShardTotal, params)
	if err != nil {
		log.Fatalf("pieskieod: opening pool at %s: %v", cfg.DataDir, err)
	}
	defer pool.Close()

	watcher, err := config.Watch(*configPath, func(live config.Config) {
		applyLiveConfig(pool, live)
	})
	if err != nil {
		log.Printf("pieskieod: config hot-reload disabled: %v", err)
	} else {
		defer watcher.Close()
	}

	bgCtx, cancelBg := context.WithCancel(context.Background())
	defer cancelBg()
	for _, shard := range pool.Shards() {
		shard.StartBackgroundTasks(bgCtx)
	}

	stop := make(chan struct{})
	go vacuumLoop(pool, *vacuumInterval, stop)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	close(stop)
	cancelBg()
	log.Println("pieskieod: shutting down")
}

func buildParams(cfg config.Config) (engine.Params, error) {
	params := engine.DefaultParams()
	params.Metric = cfg.VectorMetric()
	if cfg.EfConstruction > 0 {
		params.EfConstruction = cfg.EfConstruction
	}
	if cfg.EfSearch > 0 {
		params.EfSearch = cfg.EfSearch
	}
	if cfg.MaxElements > 0 {
		params.MaxElements = cfg.MaxElements
	}
	params.LinkTopK = cfg.LinkTopK

	backend, err := buildBackend(cfg.Backend)
	if err != nil {
		return engine.Params{}, err
	}
	params.Backend = backend
	return params, nil
}

func buildBackend(bc config.BackendConfig) (persistence.Backend, error) {
	switch bc.Kind {
	case "", "file":
		return nil, nil // nil keeps engine.Engine on its plain-file default
	case "s3":
		return &persistence.S3Backend{
			AccessKeyID:     bc.AccessKeyID,
			SecretAccessKey: bc.SecretAccessKey,
			Region:          bc.Region,
			Endpoint:        bc.Endpoint,
			Bucket:          bc.Bucket,
			Prefix:          bc.Prefix,
			ForcePathStyle:  bc.ForcePathStyle,
		}, nil
	case "ceph":
		return &persistence.CephBackend{
			UserName:    bc.UserName,
			ClusterName: bc.ClusterName,
			ConfFile:    bc.ConfFile,
			Pool:        bc.Pool,
		}, nil
	default:
		return nil, fmt.Errorf("pieskieod: unknown backend kind %q", bc.Kind)
	}
}

// applyLiveConfig pushes the settings a running engine can take
// without a restart to every shard. ShardTotal, Metric, and Backend
// changes are silently ignored here — those require Reshard or a
// restart and are never applied behind the operator's back.
func applyLiveConfig(pool *shardpool.Pool, live config.Config) {
	for _, e := range pool.Shards() {
		if live.EfSearch > 0 {
			e.SetEfSearchNs("default", live.EfSearch)
		}
		if live.EfConstruction > 0 {
			e.SetEfConstructionNs("default", live.EfConstruction)
		}
		e.SetLinkTopK(live.LinkTopK)
	}
	log.Printf("pieskieod: applied live config (ef_search=%d ef_construction=%d link_top_k=%d)",
		live.EfSearch, live.EfConstruction, live.LinkTopK)
}

func vacuumLoop(pool *shardpool.Pool, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := pool.Vacuum(); err != nil {
				log.Printf("pieskieod: vacuum failed: %v", err)
			}
		case <-stop:
			return
		}
	}
}
