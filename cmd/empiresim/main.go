// Command empiresim runs the idle empire simulation: the event and raid
// scheduler and the governor loop, against a SQLite store.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/idle-empire/internal/catalog"
	"github.com/talgya/idle-empire/internal/config"
	"github.com/talgya/idle-empire/internal/demo"
	"github.com/talgya/idle-empire/internal/engine"
	"github.com/talgya/idle-empire/internal/entropy"
	"github.com/talgya/idle-empire/internal/persistence"
	"github.com/talgya/idle-empire/internal/terrain"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	slog.Info("idle empire simulation starting",
		"check_interval", cfg.CheckInterval,
		"governor_interval", cfg.GovernorInterval,
		"raid_chance", cfg.RaidChance,
		"max_concurrent_events", cfg.MaxConcurrentEvents,
	)

	// ── Catalog ───────────────────────────────────────────────────────
	cat, err := catalog.Load(cfg.CatalogDir)
	if err != nil {
		slog.Error("failed to load catalog", "dir", cfg.CatalogDir, "error", err)
		os.Exit(1)
	}
	slog.Info("catalog loaded",
		"events", len(cat.Events),
		"enemies", len(cat.Enemies),
		"buildings", len(cat.Rules.Buildings),
		"technologies", len(cat.Rules.Technologies),
		"digest", cat.Digest[:12],
	)

	// ── Database ──────────────────────────────────────────────────────
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		os.MkdirAll(dir, 0o755)
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.SeedDemo {
		n, err := demo.Seed(ctx, db, terrain.NewGenerator(cfg.Seed), time.Now())
		if err != nil {
			slog.Error("failed to seed demo empire", "error", err)
			os.Exit(1)
		}
		if n > 0 {
			slog.Info("demo empire seeded", "provinces", n, "city_id", demo.CityID)
		}
	}
	total, err := db.CountProvinces(ctx)
	if err != nil {
		slog.Error("failed to count provinces", "error", err)
		os.Exit(1)
	}

	// ── Simulation ────────────────────────────────────────────────────
	var archive *persistence.Archive
	if cfg.ArchiveDir != "" {
		archive = persistence.NewArchive(cfg.ArchiveDir)
	}
	sim := engine.NewSimulation(db, cat, cfg, entropy.New(cfg.Seed), archive)
	eng := engine.NewEngine()
	sim.Attach(eng)

	if err := eng.Start(ctx); err != nil {
		slog.Error("failed to start engine", "error", err)
		os.Exit(1)
	}
	fmt.Printf("\nThe empire stirs: %s provinces under watch. (Ctrl+C to stop)\n", humanize.Comma(int64(total)))

	<-ctx.Done()
	slog.Info("received signal, shutting down")
	eng.Stop()

	for _, e := range sim.Recent(10) {
		slog.Info("chronicle", "province_id", e.ProvinceID, "category", e.Category, "when", humanize.Time(e.Time), "what", e.Description)
	}
	fmt.Println("Simulation stopped.")
}
