// Command photowall-reconcile lists media objects that no photo record
// references and, with -remove, deletes them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/8848connie/drawing-room/internal/config"
	"github.com/8848connie/drawing-room/internal/photos"
	"github.com/8848connie/drawing-room/internal/reconcile"
	"github.com/8848connie/drawing-room/internal/server"
	"github.com/8848connie/drawing-room/internal/storage"
)

type flags struct {
	remove   bool
	minAge   time.Duration
	interval time.Duration
	prefix   string
}

func parseFlags(args []string) (flags, error) {
	var f flags
	set := flag.NewFlagSet("photowall-reconcile", flag.ContinueOnError)
	set.BoolVar(&f.remove, "remove", false, "delete orphaned objects instead of only reporting them")
	set.DurationVar(&f.minAge, "min-age", time.Hour, "ignore objects younger than this")
	set.DurationVar(&f.interval, "interval", 0, "repeat the sweep at this interval (0 runs once)")
	set.StringVar(&f.prefix, "prefix", "", "object prefix to sweep (default: the configured folder)")
	if err := set.Parse(args); err != nil {
		return f, err
	}
	if f.minAge < 0 || f.interval < 0 {
		return f, fmt.Errorf("durations must not be negative")
	}
	return f, nil
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("service=reconcile msg=%q err=%v", "dotenv_failed", err)
	}

	f, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	store, inv, prefix, err := backends(f)
	if err != nil {
		log.Printf("service=reconcile msg=%q err=%v", "config_invalid", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := reconcile.Options{Prefix: prefix, Remove: f.remove, MinAge: f.minAge}
	if f.interval > 0 {
		reconcile.Loop(ctx, f.interval, store, inv, opts)
		return
	}

	rep, err := reconcile.Run(ctx, store, inv, opts)
	if err != nil {
		log.Printf("service=reconcile msg=%q err=%v", "sweep_failed", err)
		os.Exit(1)
	}
	for _, key := range rep.Orphans {
		fmt.Println(key)
	}
	if rep.Failures > 0 {
		os.Exit(1)
	}
}

func backends(f flags) (photos.Store, storage.Inventory, string, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, nil, "", err
	}
	if err := cfg.MissingForUpload(); err != nil {
		return nil, nil, "", err
	}

	store, err := server.DefaultBackends{}.Store(cfg)
	if err != nil {
		return nil, nil, "", err
	}
	inv, err := storage.New(cfg.Storage)
	if err != nil {
		return nil, nil, "", err
	}

	prefix := f.prefix
	if prefix == "" {
		prefix = reconcile.FolderPrefix(cfg.Storage.Folder)
	}
	return store, inv, prefix, nil
}
