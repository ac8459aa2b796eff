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

package config

import (
	"log"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a config file on every write and hands the result
// to onChange. Only ef_search/ef_construction/link_top_k are meant to
// be applied live by callers — ShardTotal, Metric, and Backend changes
// need a restart, since they are fixed at Engine.Open/Pool.Open time.
type Watcher struct {
	fs *fsnotify.Watcher
}

// Watch starts watching path and calls onChange with every
// successfully reloaded Config. Malformed edits (e.g. a half-written
// save) are logged and skipped rather than handed to onChange, so a
// transient partial write never reaches a live engine.
func Watch(path string, onChange func(Config)) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(path); err != nil {
		fs.Close()
		return nil, err
	}
	w := &Watcher{fs: fs}
	go w.loop(path, onChange)
	return w, nil
}

func (w *Watcher) loop(path string, onChange func(Config)) {
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(path)
			if err != nil {
				log.Printf("config: reload %s failed: %v", path, err)
				continue
			}
			onChange(cfg)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Printf("config: watch %s: %v", path, err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
