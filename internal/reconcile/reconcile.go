// Package reconcile finds objects in the media bucket that no photo record
// points at, the leftovers of uploads whose database write failed.
package reconcile

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/8848connie/drawing-room/internal/photos"
	"github.com/8848connie/drawing-room/internal/storage"
)

// Options controls one sweep.
type Options struct {
	// Prefix limits the sweep to one folder, e.g. "christmas-photowall/".
	Prefix string
	// Remove deletes orphans. Without it the sweep only reports.
	Remove bool
	// MinAge skips objects younger than this; an upload may still be
	// between its media write and its insert.
	MinAge time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Report summarises one sweep.
type Report struct {
	Objects  int
	Records  int
	Orphans  []string
	Skipped  int
	Removed  int
	Failures int
	Duration time.Duration
}

// Run compares the bucket inventory with the photo records.
func Run(ctx context.Context, store photos.Store, inv storage.Inventory, opts Options) (Report, error) {
	start := time.Now()
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	var rep Report

	records, err := store.List(ctx)
	if err != nil {
		return rep, fmt.Errorf("list records: %w", err)
	}
	rep.Records = len(records)

	known := make(map[string]struct{}, 3*len(records))
	for _, r := range records {
		for _, k := range keyCandidates(r.PhotoURL) {
			known[k] = struct{}{}
		}
	}

	objects, err := inv.List(ctx, opts.Prefix)
	if err != nil {
		return rep, fmt.Errorf("list objects: %w", err)
	}
	rep.Objects = len(objects)

	cutoff := now().Add(-opts.MinAge)
	for _, obj := range objects {
		if _, ok := known[obj.Key]; ok {
			continue
		}
		if opts.MinAge > 0 && obj.LastModified.After(cutoff) {
			rep.Skipped++
			continue
		}

		rep.Orphans = append(rep.Orphans, obj.Key)
		if !opts.Remove {
			log.Printf("service=reconcile msg=%q key=%s size=%d", "orphan_found", obj.Key, obj.Size)
			continue
		}

		if err := inv.Remove(ctx, obj.Key); err != nil {
			log.Printf("service=reconcile msg=%q key=%s err=%v", "remove_failed", obj.Key, err)
			rep.Failures++
			continue
		}
		log.Printf("service=reconcile msg=%q key=%s", "orphan_removed", obj.Key)
		rep.Removed++
	}

	rep.Duration = time.Since(start)
	log.Printf("service=reconcile msg=%q objects=%d records=%d orphans=%d removed=%d skipped=%d duration_ms=%d",
		"sweep_complete", rep.Objects, rep.Records, len(rep.Orphans), rep.Removed, rep.Skipped, rep.Duration.Milliseconds())
	return rep, nil
}

// Loop runs a sweep immediately and then every interval until ctx is done.
func Loop(ctx context.Context, interval time.Duration, store photos.Store, inv storage.Inventory, opts Options) {
	log.Printf("service=reconcile msg=%q interval=%s remove=%t", "starting", interval, opts.Remove)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := Run(ctx, store, inv, opts); err != nil {
			log.Printf("service=reconcile msg=%q err=%v", "sweep_failed", err)
		}
		select {
		case <-ctx.Done():
			log.Printf("service=reconcile msg=%q", "shutting_down")
			return
		case <-ticker.C:
		}
	}
}

// keyCandidates returns every trailing run of path segments of a record URL.
// Matching on these instead of the whole URL keeps a record's object safe
// when the public base URL, the endpoint or the storage driver changed
// since the record was written.
func keyCandidates(raw string) []string {
	p := raw
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		p = u.Path
	}
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}

	out := []string{p}
	for i := 0; i < len(p); i++ {
		if p[i] == '/' && i+1 < len(p) {
			out = append(out, p[i+1:])
		}
	}
	return out
}

// FolderPrefix turns a storage folder into a listing prefix.
func FolderPrefix(folder string) string {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return ""
	}
	return folder + "/"
}
