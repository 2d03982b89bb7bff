/*
 * MIT License
 *
 * Copyright (c) 2019 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package config

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/aolserver/aolserver-sub004/logging"
)

// debounce absorbs the write+rename bursts most editors and `kubectl cp`/
// ConfigMap updates produce for a single logical change.
const debounce = 200 * time.Millisecond

var errNoPath = errors.New("config: watcher requires a non-empty file path")

// Watcher live-reloads the non-bootstrap subset of Config (pool sizing,
// limits, cache policy per §2.3/§3) by watching the config file's parent
// directory rather than the file itself, the same way Kubernetes
// ConfigMap mounts are handled: a file replaced by an atomic rename
// (editors, `kubectl cp`, symlink-swap) emits events against the
// directory, not a long-lived inode-specific watch on the old file.
// viper's own WatchConfig wraps fsnotify the same way internally, but
// never as an explicitly imported, directly driven dependency here.
type Watcher struct {
	path     string
	onReload func(*Config)
	log      *logging.Logger

	watcher *fsnotify.Watcher
}

// NewWatcher opens an fsnotify watch on path's parent directory. onReload
// is invoked (on an internal goroutine, via Run) each time path changes
// and re-decodes cleanly; decode failures are logged and the previous
// Config stays in effect.
func NewWatcher(path string, onReload func(*Config), log *logging.Logger) (*Watcher, error) {
	if path == "" {
		return nil, errNoPath
	}
	if log == nil {
		log = logging.Nop()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}

	return &Watcher{path: filepath.Clean(path), onReload: onReload, log: log, watcher: fw}, nil
}

// Run blocks, dispatching debounced reloads, until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
		w.watcher.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.AfterFunc(debounce, w.reload)
			} else {
				timer.Reset(debounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warnf("config: watch error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.log.Errorf("config: reload %s failed, keeping previous config: %v", w.path, err)
		return
	}
	w.log.Infof("config: reloaded %s", w.path)
	w.onReload(cfg)
}

// Close stops the watcher without waiting for Run to observe ctx.Done.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
