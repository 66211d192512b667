package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/okian/cdtimeline/internal/scenario"
	"github.com/okian/cdtimeline/pkg/logger"
)

// Default configuration constants.
const (
	defaultTimeout  = 10 * time.Second
	defaultAttempts = 2
	defaultDeadline = 2 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9080", "Base URL of the service")
		file     = flag.String("file", "scenarios/cascade.yaml", "Scenario file (YAML)")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		attempts = flag.Int("attempts", defaultAttempts, "Attempts per add before giving up")
		format   = flag.String("format", logger.FormatText, "Log format: text or json")
		verbose  = flag.Bool("verbose", false, "Log every step")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	if err := logger.Init(logger.WithFormat(*format), logger.WithLevel(level)); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Named("scenario")

	ctx, cancel := context.WithTimeout(context.Background(), defaultDeadline)
	defer cancel()

	s, err := scenario.Load(*file)
	if err != nil {
		log.Error(ctx, "failed to load scenario", logger.Error(err))
		os.Exit(1)
	}

	runner := scenario.NewRunner(
		scenario.NewClient(*baseURL, *timeout),
		scenario.WithLogger(log),
		scenario.WithAddAttempts(*attempts),
	)
	res, err := runner.Run(ctx, s)
	if err != nil {
		log.Error(ctx, "scenario failed", logger.Error(err))
		os.Exit(1)
	}

	for _, tl := range res.Timelines {
		for _, e := range tl.Entries {
			log.Info(ctx, "entry",
				logger.String("ability", tl.Ability.Name),
				logger.String("id", e.Event.ID),
				logger.Int("time", e.Event.Time),
				logger.Int("adjustedCooldown", e.AdjustedCooldown),
				logger.Int("readyAt", e.ReadyAt()),
				logger.Int("chargeSlot", e.ChargeSlot))
		}
	}
	for _, v := range res.Violations {
		log.Warn(ctx, "violation", logger.String("ability", v.Ability), logger.String("detail", v.Detail))
	}
	if !res.OK() {
		os.Exit(1)
	}
}
