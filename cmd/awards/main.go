package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/sirupsen/logrus"

	"github.com/fortuna/laurel/internal/awards"
	"github.com/fortuna/laurel/internal/config"
	"github.com/fortuna/laurel/internal/logger"
	"github.com/fortuna/laurel/internal/publisher"
	"github.com/fortuna/laurel/internal/recompute"
	"github.com/fortuna/laurel/internal/store"
	"github.com/fortuna/laurel/internal/store/repository"
)

const (
	appName    = "laurel-awards"
	appVersion = "1.0.0"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}

	var (
		atlasDSN    = flag.String("dsn", cfg.AtlasDSN, "Atlas DSN")
		season      = flag.String("season", "", "Season to calculate (e.g., 2024); empty means every season")
		types       = flag.String("type", "", "Comma separated award types; empty means all")
		recalculate = flag.Bool("recalculate", false, "Replace stored winners that changed")
		dryRun      = flag.Bool("dry-run", false, "Evaluate awards without writing to the database")
		finalize    = flag.Bool("finalize", false, "Finalize the season awards of -season")
		listTypes   = flag.Bool("list-types", false, "List award types and exit")
		publish     = flag.Bool("publish", false, "Publish pass summaries to the Redis awards stream")
		migrate     = flag.Bool("migrate", false, "Apply database migrations before running")
	)
	flag.Parse()

	log := logger.Init(cfg.LogLevel, cfg.IsDevelopment())
	log.Infof("=== %s v%s ===", appName, appVersion)

	if *listTypes {
		printCatalogue(os.Stdout)
		return
	}

	awardTypes, err := parseTypes(*types)
	if err != nil {
		log.Fatalf("invalid -type: %v", err)
	}
	if *finalize && *season == "" {
		log.Fatal("-finalize requires -season")
	}

	db, err := store.NewDatabase(*atlasDSN, log)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer db.Close()

	if *migrate {
		if err := db.RunMigrations(cfg.MigrationsDir); err != nil {
			log.Fatalf("run migrations: %v", err)
		}
	}

	var notifiers []awards.Notifier
	if *publish && !*dryRun {
		pub, err := publisher.NewRedisPublisher(cfg.RedisURL)
		if err != nil {
			log.Fatalf("connect redis: %v", err)
		}
		defer pub.Close()
		notifiers = append(notifiers, pub)
	}

	engine := awards.NewEngine(
		repository.NewGameRepository(db),
		repository.NewAwardRepository(db),
		log,
		notifiers...,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *finalize {
		n, err := engine.FinalizeSeason(ctx, *season)
		if err != nil {
			log.Fatalf("finalize season %s: %v", *season, err)
		}
		log.Infof("✓ Finalized %d season awards for %s", n, *season)
		return
	}

	spec := recompute.JobSpec{
		AwardTypes:  awardTypes,
		Season:      *season,
		Recalculate: *recalculate,
		DryRun:      *dryRun,
	}

	reporter := &consoleReporter{log: log, dryRun: *dryRun}
	if err := recompute.NewRunner(engine).Run(ctx, spec, reporter); err != nil {
		log.Fatalf("calculation failed: %v", err)
	}

	log.Info("✓ Awards calculated successfully")
}

// parseTypes resolves a comma separated list. An empty list selects the
// whole catalogue.
func parseTypes(raw string) ([]awards.AwardType, error) {
	var out []awards.AwardType
	seen := make(map[awards.AwardType]bool)

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		t, err := awards.ParseAwardType(part)
		if err != nil {
			return nil, err
		}
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}

	if len(out) == 0 {
		for _, e := range awards.Catalogue() {
			out = append(out, e.Type)
		}
	}
	return out, nil
}

func printCatalogue(out io.Writer) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tKIND\tNAME\tDESCRIPTION")
	for _, e := range awards.Catalogue() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Type, e.Kind, e.Name, e.Description)
	}
	w.Flush()
}

type consoleReporter struct {
	log    logrus.FieldLogger
	dryRun bool
}

func (c *consoleReporter) OnJobStart(spec recompute.JobSpec) {
	season := spec.Season
	if season == "" {
		season = "all"
	}
	c.log.Infof("Starting calculation of %d award types (season=%s, recalculate=%v, dry_run=%v)",
		len(spec.AwardTypes), season, spec.Recalculate, c.dryRun)
}

func (c *consoleReporter) OnAwardStart(awardType awards.AwardType, index int, total int) {
	c.log.Infof("[%d/%d] %s", index+1, total, awardType)
}

func (c *consoleReporter) OnAwardComplete(awardType awards.AwardType, counts map[string]int) {
	seasons := make([]string, 0, len(counts))
	for s := range counts {
		seasons = append(seasons, s)
	}
	sort.Strings(seasons)

	verb := "stored"
	if c.dryRun {
		verb = "selected"
	}
	if len(seasons) == 0 {
		c.log.Infof("  %s: no qualifying games", awardType)
		return
	}
	for _, s := range seasons {
		c.log.Infof("  %s %s: %d winners %s", awardType, s, counts[s], verb)
	}
}

func (c *consoleReporter) OnProgress(message string, current int, total int) {
	c.log.Debugf("Progress: %s (%d/%d)", message, current, total)
}

func (c *consoleReporter) OnJobComplete() {
	c.log.Info("Job complete")
}

func (c *consoleReporter) OnJobError(err error) {
	c.log.Errorf("Job error: %v", err)
}
