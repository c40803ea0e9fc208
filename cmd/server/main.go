package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"traffic-fines-service/internal/config"
	"traffic-fines-service/internal/db"
	"traffic-fines-service/internal/engine"
	httphandler "traffic-fines-service/internal/http"
	"traffic-fines-service/internal/repository"
	"traffic-fines-service/internal/service"
)

func main() {
	configPath := flag.String("config", "", "directory containing config.yaml")
	flag.Parse()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	gdb, err := db.Open(cfg.Database.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}

	clock := engine.SystemClock()

	violationRepo := repository.NewViolationRepository(gdb)
	scoreRepo := repository.NewScoreRepository(gdb)
	fineRepo := repository.NewFineRepository(gdb)
	reportRepo := repository.NewReportRepository(gdb)
	leaderboardRepo := repository.NewLeaderboardRepository(gdb)

	ledger := engine.NewPointLedger(scoreRepo, clock, log)

	violationService := service.NewViolationService(violationRepo, scoreRepo, ledger, clock, log)
	fineService := service.NewFineService(violationRepo, violationRepo, fineRepo, clock, cfg.Fines.DueDays, log)
	reportService := service.NewReportService(reportRepo, violationRepo, scoreRepo, ledger, clock, cfg.Rewards.DefaultReportReward, log)
	profileService := service.NewProfileService(scoreRepo, ledger, log)
	leaderboardService := service.NewLeaderboardService(scoreRepo, leaderboardRepo, leaderboardRepo, clock, log)

	handler := httphandler.NewHandler(violationService, reportService, fineService, profileService, leaderboardService, log)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())
	handler.Register(router, httphandler.JWTAuth(cfg.Auth.JWTSecret))

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", cfg.Server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return runLeaderboardJob(ctx, leaderboardService, cfg.Leaderboard.GenerationHour, log)
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

// runLeaderboardJob publishes the daily leaderboard once per day at the
// configured hour, until the context is cancelled.
func runLeaderboardJob(ctx context.Context, leaderboard *service.LeaderboardService, hour int, log zerolog.Logger) error {
	for {
		next := nextRun(time.Now(), hour)
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		if _, err := leaderboard.GenerateToday(ctx); err != nil {
			log.Error().Err(err).Msg("daily leaderboard generation failed")
		}
	}
}

func nextRun(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
