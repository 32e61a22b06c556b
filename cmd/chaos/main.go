// cmd/chaos/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"libralend/internal/app"
	"libralend/internal/chaos"
	"libralend/internal/config"
	"libralend/internal/domain"
	"libralend/internal/events"
	"libralend/internal/observability"
	"libralend/internal/store"
)

func main() {
	copies := flag.Int("copies", 3, "copies of the drill title")
	borrowers := flag.Int("borrowers", 20, "borrowers racing for the drill title")
	duration := flag.Duration("duration", 30*time.Second, "observation window per experiment")
	pause := flag.Duration("pause", 30*time.Second, "pause between experiments")
	flag.Parse()

	cfg := config.Load()
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel := observability.InitOTel(ctx, logger, observability.OtelConfig{
		Enabled:     cfg.OtelEnabled,
		ServiceName: cfg.OtelServiceName + "-chaos",
		SampleRatio: 1,
	})
	defer shutdownOTel(context.Background())

	db, closeDB, err := store.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer closeDB()

	// Each run drills on its own title and borrowers.
	run := rand.N(1_000_000_000)
	drill := chaos.Drill{
		ISBN:        fmt.Sprintf("979%010d", run),
		Copies:      *copies,
		Duration:    *duration,
		SampleEvery: time.Second,
	}
	if err := db.Titles().Create(ctx, domain.Title{ISBN: drill.ISBN, Name: "Chaos drill", OnShelf: *copies}); err != nil {
		logger.Fatal().Err(err).Msg("failed to seed drill title")
	}
	for i := range *borrowers {
		dni := fmt.Sprintf("CH%09d-%03d", run, i)
		if err := db.Borrowers().Create(ctx, domain.Borrower{DNI: dni, FirstName: "Chaos", LastName: "Drill"}); err != nil {
			logger.Fatal().Err(err).Msg("failed to seed drill borrower")
		}
		drill.Borrowers = append(drill.Borrowers, dni)
	}

	// The drill uses the local directory regardless of deployment.
	cfg.MembershipServiceURL = ""
	faults := chaos.NewFaultyStore(db)
	application := app.New(cfg, faults, events.Noop{}, logger)

	engine := chaos.NewEngine(logger)
	engine.RegisterExperiments(chaos.Target{
		Store:    db,
		Faults:   faults,
		Service:  application.Service,
		Sessions: application.Sessions,
	}, drill)

	held, err := engine.ExecuteGameDay(ctx, chaos.GameDay{
		Name:      "Weekly Chaos Game Day",
		Date:      time.Now(),
		Scenarios: engine.Experiments(),
		Pause:     *pause,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("game day interrupted")
	}
	if !held {
		logger.Error().Msg("at least one hypothesis did not hold")
		os.Exit(1)
	}
	logger.Info().Msg("all hypotheses held")
}
