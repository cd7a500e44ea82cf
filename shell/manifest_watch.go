// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package shell

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mullion-foundation/mullion/lib/manifest"
)

// manifestDebounce coalesces the event bursts editors produce when
// saving: the reload fires once, this long after the last event.
const manifestDebounce = 200 * time.Millisecond

// watchManifest reloads the panel table when the manifest file
// changes. The watch is on the manifest's parent directory, not the
// file itself: editors that save atomically (write temp file, rename
// over the target) replace the inode, and a watch on the old inode
// would go quiet after the first save. Runs until ctx is cancelled.
//
// A manifest that fails to load keeps the previous table; a broken
// save never takes panel routing down.
func (b *Broker) watchManifest(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		b.logger.Error("manifest watch unavailable", "error", err)
		return
	}
	defer watcher.Close()

	manifestPath := filepath.Clean(b.options.ManifestPath)
	if err := watcher.Add(filepath.Dir(manifestPath)); err != nil {
		b.logger.Error("manifest watch failed",
			"path", manifestPath,
			"error", err,
		)
		return
	}
	b.logger.Info("watching panel manifest", "path", manifestPath)

	debounce := time.NewTimer(manifestDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !manifestEvent(event, manifestPath) {
				continue
			}
			if !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(manifestDebounce)

		case <-debounce.C:
			b.reloadManifest(manifestPath)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			b.logger.Warn("manifest watch error", "error", err)
		}
	}
}

// manifestEvent reports whether event is a content change of the
// manifest file. Create and Rename cover atomic saves; Write covers
// in-place ones.
func manifestEvent(event fsnotify.Event, manifestPath string) bool {
	if filepath.Clean(event.Name) != manifestPath {
		return false
	}
	return event.Op.Has(fsnotify.Write) ||
		event.Op.Has(fsnotify.Create) ||
		event.Op.Has(fsnotify.Rename)
}

// reloadManifest swaps the panel table's kinds for the manifest's
// current contents.
func (b *Broker) reloadManifest(manifestPath string) {
	kinds, err := manifest.Load(manifestPath)
	if err != nil {
		b.logger.Error("manifest reload failed, keeping previous table",
			"path", manifestPath,
			"error", err,
		)
		return
	}
	b.panels.SetKinds(kinds)
	b.logger.Info("panel manifest reloaded",
		"path", manifestPath,
		"panels", len(kinds),
	)
}
