package main

import (
	"context"
	"net/http"

	"github.com/pesio-ai/be-claims-evaluator/internal/client"
	"github.com/pesio-ai/be-claims-evaluator/internal/config"
	"github.com/pesio-ai/be-claims-evaluator/internal/database"
	"github.com/pesio-ai/be-claims-evaluator/internal/logger"
	"github.com/pesio-ai/be-claims-evaluator/internal/repository"
	"github.com/pesio-ai/be-claims-evaluator/internal/rules"
	"github.com/pesio-ai/be-claims-evaluator/internal/service"
)

// stateStream is the JetStream stream capturing stage events.
const stateStream = "CLAIMS_EVALUATION"

// app holds the wired service graph shared by serve and evaluate.
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	db        *database.DB
	claims    *service.ClaimService
	publisher *client.StatePublisher
}

func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger, withSync bool) (*app, error) {
	rb, err := rules.Load(cfg.Pipeline.RulebookPath)
	if err != nil {
		return nil, err
	}

	// Initialize database
	db, err := database.New(ctx, database.Config{
		Host:        cfg.Database.Host,
		Port:        cfg.Database.Port,
		User:        cfg.Database.User,
		Password:    cfg.Database.Password,
		Database:    cfg.Database.Database,
		SSLMode:     cfg.Database.SSLMode,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		MaxConnTime: cfg.Database.MaxConnTime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
		HealthCheck: cfg.Database.HealthCheck,
	})
	if err != nil {
		return nil, err
	}
	log.Info().Msg("Database connection established")

	a := &app{cfg: cfg, log: log, db: db}

	// Initialize repositories
	claimRepo := repository.NewClaimRepository(db)
	policyRepo := repository.NewPolicyRepository(db)
	checkpointRepo := repository.NewCheckpointRepository(db)

	// Initialize collaborators
	docs := client.NewDocumentSource(&http.Client{Timeout: cfg.Extraction.Timeout}, cfg.Extraction.SASToken, cfg.Extraction.RenderDPI)
	extractor, err := client.NewExtractionClient(client.ExtractionConfig{
		AzureEndpoint:     cfg.Extraction.AzureEndpoint,
		APIKey:            cfg.Extraction.APIKey,
		APIVersion:        cfg.Extraction.APIVersion,
		Deployment:        cfg.Extraction.Deployment,
		BaseURL:           cfg.Extraction.BaseURL,
		MaxTokens:         cfg.Extraction.MaxTokens,
		Timeout:           cfg.Extraction.Timeout,
		MaxAttempts:       cfg.Extraction.MaxAttempts,
		RequestsPerSecond: cfg.Extraction.RequestsPerSecond,
		Burst:             cfg.Extraction.Burst,
		CacheTTL:          cfg.Extraction.CacheTTL,
	}, docs, log.Component("extraction"))
	if err != nil {
		a.close()
		return nil, err
	}

	var syncers []service.StateSyncer
	if withSync {
		if cfg.Sync.BackendURL != "" {
			syncers = append(syncers, client.NewBackendSyncClient(cfg.Sync.BackendURL, cfg.Sync.Timeout, log.Component("sync")))
		}
		if cfg.Sync.NATSURL != "" {
			publisher, err := client.NewStatePublisher(cfg.Sync.NATSURL, cfg.Sync.Subject, log.Component("state"))
			if err != nil {
				a.close()
				return nil, err
			}
			a.publisher = publisher
			if err := publisher.EnsureStream(ctx, stateStream); err != nil {
				log.Warn().Err(err).Str("stream", stateStream).Msg("Failed to ensure state stream")
			}
			syncers = append(syncers, publisher)
			log.Info().Str("subject", cfg.Sync.Subject).Msg("State publisher connected")
		}
	}

	stages := service.Stages{
		Validation: service.NewValidationStage(claimRepo, rb, log.Component("validation")),
		Policy:     service.NewPolicyVerificationStage(policyRepo, log.Component("policy")),
		Extraction: service.NewExtractionStage(extractor, cfg.Extraction.Concurrency, cfg.Extraction.DocumentTimeout, log.Component("extraction")),
		Proof:      service.NewProofVerificationStage(),
		Coverage:   service.NewCoverageStage(rb),
		Fraud:      service.NewFraudStage(rb),
		Assessment: service.NewDamageAssessmentStage(rb),
		Settlement: service.NewSettlementStage(rb),
	}
	pipeline := service.NewPipeline(stages, checkpointRepo, syncers, service.PipelineConfig{
		StageTimeout:      cfg.Pipeline.StageTimeout,
		ExtractionTimeout: cfg.Pipeline.ExtractionTimeout,
	}, log.Component("pipeline"))

	a.claims = service.NewClaimService(pipeline, checkpointRepo, log.Component("claims"))
	return a, nil
}

func (a *app) close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn().Err(err).Msg("Failed to drain NATS connection")
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}

func newLogger(cfg *config.Config) *logger.Logger {
	return logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Environment: cfg.Service.Environment,
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
	})
}
