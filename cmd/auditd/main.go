package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Spok95/compliance-audits/internal/app"
	"github.com/Spok95/compliance-audits/internal/audits"
	"github.com/Spok95/compliance-audits/internal/config"
	"github.com/Spok95/compliance-audits/internal/ctxutil"
	"github.com/Spok95/compliance-audits/internal/db"
	"github.com/Spok95/compliance-audits/internal/export"
	"github.com/Spok95/compliance-audits/internal/jobs"
	"github.com/Spok95/compliance-audits/internal/logging"
	"github.com/Spok95/compliance-audits/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logging.Init(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Closer()
	logger := lg.Base

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, cfg.Release)
	if err != nil {
		logger.Warn("sentry init failed", zap.Error(err))
	}
	defer flush()

	ctxutil.DefaultDBTimeout = cfg.DBTimeout
	export.Location = cfg.Location

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		observability.CaptureErr(err)
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer func() { _ = database.Close() }()

	if err := db.Migrate(ctx, database); err != nil {
		observability.CaptureErr(err)
		logger.Fatal("migrations failed", zap.Error(err))
	}
	if v, err := db.MigrationVersion(ctx, database); err == nil {
		logger.Info("schema ready", zap.Int64("version", v))
	}

	svc := audits.New(audits.NewSQLStore(database), logger, audits.WithPolicy(cfg.Scoring))
	logger.Info("scoring policy",
		zap.String("unanswered", string(cfg.Scoring.Unanswered)),
		zap.String("critical", string(cfg.Scoring.Critical)))

	runner := jobs.New(ctx, logger)
	runner.Every(cfg.StatsInterval, jobs.AuditStatusGauge, jobs.RefreshAuditStatusGauge(jobs.DBStatusCounter(database)))

	srv := app.StartHTTP(ctx, cfg.HTTPAddr, app.Deps{DB: database, Audits: svc, Log: logger})

	<-ctx.Done()
	logger.Info("shutting down")
	<-srv.Done()
}
