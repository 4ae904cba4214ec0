package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"docgate/internal/assignment"
	assignmenthandler "docgate/internal/assignment/handler"
	assignmentstore "docgate/internal/assignment/store"
	"docgate/internal/catalog"
	cataloghandler "docgate/internal/catalog/handler"
	catalogstore "docgate/internal/catalog/store"
	"docgate/internal/cases"
	caseshandler "docgate/internal/cases/handler"
	casesstore "docgate/internal/cases/store"
	"docgate/internal/platform/config"
	"docgate/internal/platform/httpserver"
	"docgate/internal/platform/kafka"
	"docgate/internal/platform/logger"
	"docgate/internal/platform/metrics"
	"docgate/internal/platform/middleware"
	platformredis "docgate/internal/platform/redis"
	httptransport "docgate/internal/transport/http"
	"docgate/internal/validation"
	validationmetrics "docgate/internal/validation/metrics"
	"docgate/migrations"
	"docgate/pkg/platform/audit"
	"docgate/pkg/platform/audit/publisher"
	auditkafka "docgate/pkg/platform/audit/store/kafka"
	auditmem "docgate/pkg/platform/audit/store/memory"
	auditpg "docgate/pkg/platform/audit/store/postgres"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Persistence: postgres when configured, in-process stores otherwise so
	// the service still runs in local development without infrastructure.
	var (
		db          *sql.DB
		caseStore   cases.Store
		rosterStore assignment.RosterStore
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("opening postgres failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := migrations.Apply(ctx, db); err != nil {
			log.Error("applying migrations failed", "error", err)
			os.Exit(1)
		}
		caseStore = casesstore.NewPostgres(db)
		rosterStore = assignmentstore.NewPostgres(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		caseStore = casesstore.NewMemory()
		rosterStore = assignmentstore.NewMemory()
	}

	// Rule catalog, with the read snapshot cached in redis when available.
	docs, products := catalog.Seed()
	rulebook := catalogstore.NewMemory(docs, products)
	var catalogSource catalog.Source = rulebook
	catalogOpts := []catalog.ServiceOption{catalog.WithLogger(log)}

	redisClient, err := platformredis.New(cfg.Redis())
	if err != nil {
		log.Error("connecting to redis failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		cache := catalogstore.NewRedisCache(rulebook, redisClient.Client, cfg.CatalogCacheTTL, log)
		catalogSource = cache
		catalogOpts = append(catalogOpts, catalog.WithCacheInvalidator(cache))
	}

	// Audit trail: kafka topics when brokers are configured, in-process
	// store otherwise.
	var auditStore audit.Store
	producer, err := kafka.NewProducer(cfg.KafkaBrokers, log)
	if err != nil {
		log.Error("connecting to kafka failed", "error", err)
		os.Exit(1)
	}
	if producer != nil {
		defer producer.Close()
		topics := auditkafka.DefaultTopics("docgate")
		for _, topic := range []string{topics.Compliance, topics.Security, topics.Operations} {
			if err := producer.EnsureTopic(ctx, topic, 3); err != nil {
				log.Error("ensuring audit topic failed", "topic", topic, "error", err)
				os.Exit(1)
			}
		}
		auditStore = auditkafka.New(producer, topics)
	} else if db != nil {
		auditStore = auditpg.New(db)
	} else {
		log.Warn("KAFKA_BROKERS not set, keeping audit events in memory")
		auditStore = auditmem.NewInMemoryStore()
	}
	auditPub := publisher.NewPublisher(auditStore,
		publisher.WithLogger(log),
		publisher.WithAsyncBuffer(256),
	)
	defer auditPub.Close()

	catalogOpts = append(catalogOpts, catalog.WithAuditPublisher(auditPub))
	catalogSvc := catalog.NewService(rulebook, catalogOpts...)
	validationSvc := validation.NewService(catalogSource,
		validation.WithLogger(log),
		validation.WithMetrics(validationmetrics.New()),
	)
	assignmentSvc := assignment.NewService(rosterStore,
		assignment.WithLogger(log),
		assignment.WithMetrics(m),
		assignment.WithAuditPublisher(auditPub),
	)
	casesSvc := cases.NewService(caseStore, assignmentSvc, validationSvc,
		cases.WithLogger(log),
		cases.WithMetrics(m),
		cases.WithAuditPublisher(auditPub),
	)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:    log,
		Validator: middleware.NewTokenValidator(cfg.JWTSigningKey),
		Cases:     caseshandler.New(casesSvc, assignmentSvc, log),
		Roster:    assignmenthandler.New(assignmentSvc, log),
		Catalog:   cataloghandler.New(catalogSvc, log),
	})

	srv := httpserver.New(cfg.Addr, router)
	go func() {
		log.Info("starting docgate", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
