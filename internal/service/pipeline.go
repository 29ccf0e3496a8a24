package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pesio-ai/be-claims-evaluator/internal/claim"
	"github.com/pesio-ai/be-claims-evaluator/internal/errors"
	"github.com/pesio-ai/be-claims-evaluator/internal/logger"
	"github.com/pesio-ai/be-claims-evaluator/internal/repository"
)

// Stages is the fixed set of evaluation stages.
type Stages struct {
	Validation Stage
	Policy     Stage
	Extraction Stage
	Proof      Stage
	Coverage   Stage
	Fraud      Stage
	Assessment Stage
	Settlement Stage
}

func (s Stages) lookup(step claim.Step) Stage {
	switch step {
	case claim.StepValidation:
		return s.Validation
	case claim.StepPolicyVerification:
		return s.Policy
	case claim.StepDocumentExtraction:
		return s.Extraction
	case claim.StepProofVerification:
		return s.Proof
	case claim.StepCoverage:
		return s.Coverage
	case claim.StepFraudCheck:
		return s.Fraud
	case claim.StepDamageAssessment:
		return s.Assessment
	case claim.StepSettlement:
		return s.Settlement
	}
	return nil
}

// Next returns the stage that runs after step given the merged record. A
// rejection always ends the run.
func Next(step claim.Step, rec claim.Record) claim.Step {
	if rec.Decision == claim.DecisionReject {
		return claim.StepEnd
	}

	switch step {
	case claim.StepValidation:
		return claim.StepPolicyVerification
	case claim.StepPolicyVerification:
		return claim.StepDocumentExtraction
	case claim.StepDocumentExtraction:
		return claim.StepProofVerification
	case claim.StepProofVerification:
		return claim.StepCoverage
	case claim.StepCoverage:
		return claim.StepFraudCheck
	case claim.StepFraudCheck:
		if (rec.Fraud != nil && rec.Fraud.Status == claim.FraudInvestigate) ||
			rec.Decision == claim.DecisionInvestigate {
			return claim.StepSettlement
		}
		return claim.StepDamageAssessment
	case claim.StepDamageAssessment:
		return claim.StepSettlement
	}
	return claim.StepEnd
}

// PipelineConfig holds executor timeouts.
type PipelineConfig struct {
	StageTimeout      time.Duration
	ExtractionTimeout time.Duration
}

// Pipeline runs the stages of one claim sequentially, merging each stage's
// update into the record and checkpointing after every stage.
type Pipeline struct {
	stages      Stages
	checkpoints CheckpointStore
	syncers     []StateSyncer
	cfg         PipelineConfig
	log         *logger.Logger
}

// NewPipeline creates a new Pipeline. checkpoints may be nil.
func NewPipeline(stages Stages, checkpoints CheckpointStore, syncers []StateSyncer, cfg PipelineConfig, log *logger.Logger) *Pipeline {
	return &Pipeline{
		stages:      stages,
		checkpoints: checkpoints,
		syncers:     syncers,
		cfg:         cfg,
		log:         log,
	}
}

// Run evaluates rec to a terminal state. Business outcomes are returned in the
// record; an error means a stage hit an unrecoverable fault, in which case the
// record holds the state after the last completed stage.
func (p *Pipeline) Run(ctx context.Context, rec claim.Record) (claim.Record, error) {
	runID := uuid.NewString()
	log := p.log.With().Str("run_id", runID).Str("claim_id", rec.ClaimID).Logger()
	log.Info().Msg("Starting claim evaluation")

	start := time.Now()
	for step := claim.StepValidation; step != claim.StepEnd; step = Next(step, rec) {
		if err := ctx.Err(); err != nil {
			return rec, errors.Wrap(err, errors.ErrCodeUnavailable, "claim evaluation cancelled")
		}

		stage := p.stages.lookup(step)
		if stage == nil {
			return rec, errors.New(errors.ErrCodeInternal, fmt.Sprintf("no stage registered for %s", step))
		}

		stageStart := time.Now()
		upd, err := p.runStage(ctx, stage, rec)
		if err != nil {
			log.Error().
				Err(err).
				Str("stage", string(step)).
				Str("stack", errors.Stack(err)).
				Msg("Stage failed")
			return rec, fmt.Errorf("stage %s: %w", step, err)
		}

		rec = claim.Merge(rec, upd)
		rec.CurrentStep = step

		log.Debug().
			Str("stage", string(step)).
			Str("decision", string(rec.Decision)).
			Dur("elapsed", time.Since(stageStart)).
			Msg("Stage completed")

		p.checkpoint(ctx, runID, rec)
		for _, s := range p.syncers {
			s.SyncState(ctx, runID, step, rec)
		}
	}

	log.Info().
		Str("decision", string(rec.Decision)).
		Float64("settlement_amount", rec.SettlementAmount).
		Dur("elapsed", time.Since(start)).
		Msg("Claim evaluation finished")

	return rec, nil
}

func (p *Pipeline) runStage(ctx context.Context, stage Stage, rec claim.Record) (claim.Update, error) {
	timeout := p.cfg.StageTimeout
	if stage.Name() == claim.StepDocumentExtraction && p.cfg.ExtractionTimeout > 0 {
		timeout = p.cfg.ExtractionTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return stage.Run(ctx, rec)
}

// checkpoint persists rec. Failures are logged and never affect the run.
func (p *Pipeline) checkpoint(ctx context.Context, runID string, rec claim.Record) {
	if p.checkpoints == nil {
		return
	}

	data, err := json.Marshal(rec)
	if err != nil {
		p.log.Warn().Err(err).Str("claim_id", rec.ClaimID).Msg("Failed to encode checkpoint")
		return
	}

	cp := &repository.Checkpoint{
		ClaimID:  rec.ClaimID,
		RunID:    runID,
		Stage:    string(rec.CurrentStep),
		Decision: string(rec.Decision),
		Record:   data,
	}
	if err := p.checkpoints.Append(ctx, cp); err != nil {
		p.log.Warn().
			Err(err).
			Str("claim_id", rec.ClaimID).
			Str("stage", cp.Stage).
			Msg("Failed to append checkpoint")
	}
}
