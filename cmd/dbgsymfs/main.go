package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/gaby/dbgsymfs/internal/config"
	"github.com/gaby/dbgsymfs/internal/fusefs"
	"github.com/gaby/dbgsymfs/internal/hrange"
	"github.com/gaby/dbgsymfs/internal/index"
	"github.com/gaby/dbgsymfs/internal/resolver"
)

func main() {
	var cfgPath string
	var probe bool
	flag.StringVar(&cfgPath, "config", "/config/config.json", "path to config file (json)")
	flag.BoolVar(&probe, "probe", false, "HEAD-check the configured archive root and exit")
	flag.Parse()

	if err := config.EnsureConfigFile(cfgPath); err != nil {
		log.Fatalf("config bootstrap: %v", err)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validate: %v", err)
	}

	if probe {
		runProbe(cfg)
		return
	}

	sessionID := uuid.NewString()
	log.Printf("session %s attach: fetching package index from %s", sessionID, cfg.Archive.Root)

	attacher := index.NewAttacher(resolver.Resolve)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	root, err := attacher.Attach(ctx, cfg.Archive.Root, cfg.Archive.PackagesURL())
	if err != nil {
		log.Fatalf("session %s attach: %v", sessionID, err)
	}
	log.Printf("session %s attach: tree built", sessionID)

	tree := &fusefs.Tree{Root: root}
	mount, err := fusefs.Start(ctx, fusefs.MountOptions{
		Mountpoint: cfg.Paths.MountPoint,
		AllowOther: cfg.Mount.AllowOther,
	}, tree)
	if err != nil {
		log.Fatalf("mount: %v", err)
	}
	defer mount.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "ok session=%s\n", sessionID)
	})
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("health server: %v", err)
		}
	}()

	log.Printf("dbgsymfs mounted at %s, health listening on %s", cfg.Paths.MountPoint, cfg.Server.Addr)

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	log.Printf("shutting down")
	_ = srv.Close()
	cancel()
}

const probeTimeout = 10 * time.Second

func runProbe(cfg config.Config) {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	file, err := hrange.Connect(ctx, cfg.Archive.Root)
	if err != nil {
		log.Fatalf("probe: connect: %v", err)
	}
	if err := file.Probe(ctx); err != nil {
		log.Fatalf("probe: %v", err)
	}
	log.Printf("probe ok: %s reachable (%d bytes)", cfg.Archive.Root, file.Size())
}
