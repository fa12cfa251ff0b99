package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/faultmap/faultmap-backend/internal/analysis"
	grpcapi "github.com/faultmap/faultmap-backend/internal/api/grpc"
	"github.com/faultmap/faultmap-backend/internal/api/middleware"
	"github.com/faultmap/faultmap-backend/internal/api/rest"
	"github.com/faultmap/faultmap-backend/internal/config"
	"github.com/faultmap/faultmap-backend/internal/deploymeta"
	"github.com/faultmap/faultmap-backend/internal/discovery"
	"github.com/faultmap/faultmap-backend/internal/graph"
	"github.com/faultmap/faultmap-backend/internal/models"
	"github.com/faultmap/faultmap-backend/internal/pkg/analysiscache"
	"github.com/faultmap/faultmap-backend/internal/pkg/logger"
	"github.com/faultmap/faultmap-backend/internal/pkg/tracing"
	"github.com/faultmap/faultmap-backend/internal/service"
	"github.com/faultmap/faultmap-backend/migrations"
)

const serviceName = "faultmap-backend"

func main() {
	log := logger.StdLogger()
	log.Info("faultmap backend starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log.Info("configuration loaded",
		"port", cfg.Port,
		"grpc_port", cfg.GRPCPort,
		"graph_driver", cfg.GraphDriver,
		"threshold_profile", cfg.ThresholdProfile)

	shutdownTracing, err := tracing.Init(serviceName, cfg.TracingEndpoint, cfg.TracingSampling)
	if err != nil {
		log.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer shutdownTracing()

	gateway, store, err := openGraph(cfg)
	if err != nil {
		log.Error("failed to open graph store", "driver", cfg.GraphDriver, "error", err)
		os.Exit(1)
	}
	if store != nil {
		defer store.Close()
	}
	log.Info("graph store ready", "driver", cfg.GraphDriver)

	var meta deploymeta.Provider = deploymeta.Noop{}
	if cfg.DeployMetaEnabled && store != nil {
		meta = deploymeta.NewSQLProvider(store.DB())
	}

	anCfg, err := cfg.AnalysisConfig()
	if err != nil {
		log.Error("invalid analysis configuration", "error", err)
		os.Exit(1)
	}
	analyzers := buildAnalyzers(gateway, meta, anCfg)

	cache := analysiscache.New(time.Duration(cfg.CacheTTLSec) * time.Second)
	analysisTimeout := time.Duration(cfg.AnalysisTimeoutSec) * time.Second
	analysisService := service.NewAnalysisService(gateway, analyzers, cache, analysisTimeout)

	if cfg.DiscoveryFeedURL != "" {
		watcher := discovery.NewWatcher(cfg.DiscoveryFeedURL, cache, log)
		go watcher.Run(ctx)
		log.Info("discovery feed watcher started", "url", cfg.DiscoveryFeedURL)
	}

	router := mux.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery)
	router.Use(middleware.SecureHeaders)
	router.Use(middleware.RateLimit())
	router.Use(middleware.MaxBodySize(maxBodyBytes(cfg)))
	router.Use(middleware.Tracing)
	router.Use(middleware.StructuredLog)

	healthz := rest.NewHealthzHandler(gateway)
	router.HandleFunc("/healthz/live", healthz.Live).Methods("GET")
	router.HandleFunc("/healthz/ready", healthz.Ready).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	rest.SetupRoutes(apiRouter, rest.NewHandler(analysisService))

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
	})

	requestTimeout := 15 * time.Second
	if cfg.RequestTimeoutSec > 0 {
		requestTimeout = time.Duration(cfg.RequestTimeoutSec) * time.Second
	}
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      c.Handler(router),
		ReadTimeout:  requestTimeout,
		WriteTimeout: requestTimeout,
		IdleTimeout:  60 * time.Second,
	}

	grpcServer := grpcapi.NewServer(cfg.GRPCPort, gateway, log)
	if err := grpcServer.Start(ctx); err != nil {
		log.Error("failed to start grpc server", "error", err)
		os.Exit(1)
	}

	go func() {
		log.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	cancel()
	grpcServer.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.ShutdownTimeoutSec)*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("forced shutdown", "error", err)
	}
	log.Info("server exited")
}

// openGraph selects the graph backend. The *graph.Store return is nil for the
// in-memory driver, which serves a fixed demo topology for local development.
func openGraph(cfg *config.Config) (graph.QueryGateway, *graph.Store, error) {
	const retryDeadline = 30 * time.Second
	switch cfg.GraphDriver {
	case "postgres":
		store, err := graph.NewPostgres(cfg.GraphDSN, retryDeadline)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case "sqlite":
		store, err := graph.NewSQLite(cfg.GraphDSN, retryDeadline)
		if err != nil {
			return nil, nil, err
		}
		if err := migrations.Apply(store.DB()); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("applying migrations: %w", err)
		}
		return store, store, nil
	case "memory":
		return demoSnapshot(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown graph driver %q", cfg.GraphDriver)
	}
}

func buildAnalyzers(gw graph.QueryGateway, meta deploymeta.Provider, cfg analysis.Config) service.Analyzers {
	classifier := analysis.NewClassifier(cfg)
	blast := analysis.NewBlastRadiusCalculator(gw, classifier, meta, cfg)
	scorer := analysis.NewRiskScorer(gw, classifier, blast, meta, cfg)
	spof := analysis.NewSPOFDetector(gw, blast, scorer, cfg)
	simulator := analysis.NewFailureSimulator(gw, blast, classifier, nil, cfg)
	health := analysis.NewDependencyHealthAnalyzer(gw, scorer, spof, cfg)
	impact := analysis.NewImpactCategorizer(blast, scorer, cfg)
	whatIf := analysis.NewWhatIfOrchestrator(impact, health, simulator)
	return service.Analyzers{
		Scorer:    scorer,
		Blast:     blast,
		Impact:    impact,
		Health:    health,
		Simulator: simulator,
		SPOF:      spof,
		WhatIf:    whatIf,
	}
}

func maxBodyBytes(cfg *config.Config) int64 {
	if cfg.MaxBodyBytes > 0 {
		return int64(cfg.MaxBodyBytes)
	}
	return middleware.DefaultMaxBodyBytes
}

// demoSnapshot is a small three-tier topology so the service answers real
// queries without an external discovery feed.
func demoSnapshot() *graph.Snapshot {
	nodes := []models.ResourceNode{
		{ID: "demo-db", Name: "orders-db", ResourceType: "rds_postgres", CloudProvider: "aws", Region: "us-east-1"},
		{ID: "demo-api", Name: "orders-api", ResourceType: "api_service", CloudProvider: "aws", Region: "us-east-1"},
		{ID: "demo-web", Name: "storefront", ResourceType: "web_frontend", CloudProvider: "aws", Region: "us-east-1"},
	}
	edges := []models.DependencyEdge{
		{SourceID: "demo-api", TargetID: "demo-db", RelationshipType: "depends_on", Strength: 1.0},
		{SourceID: "demo-web", TargetID: "demo-api", RelationshipType: "depends_on", Strength: 1.0},
	}
	return graph.Build(nodes, edges)
}
