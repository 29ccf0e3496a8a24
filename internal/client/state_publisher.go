package client

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/pesio-ai/be-claims-evaluator/internal/claim"
	"github.com/pesio-ai/be-claims-evaluator/internal/errors"
	"github.com/pesio-ai/be-claims-evaluator/internal/logger"
)

// StateEvent is the JSON schema published after every pipeline stage.
//
// Subject convention: <subject>.<stage>, e.g. claims.evaluation.fraud_check
type StateEvent struct {
	RunID            string   `json:"run_id"`
	ClaimID          string   `json:"claim_id"`
	Stage            string   `json:"stage"`
	Decision         string   `json:"decision,omitempty"`
	SettlementAmount float64  `json:"settlement_amount"`
	ProofVerified    *bool    `json:"proof_verified,omitempty"`
	FraudScore       *int     `json:"fraud_score,omitempty"`
	Reasoning        []string `json:"reasoning"`
	Timestamp        string   `json:"timestamp"`
}

type jetStreamPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// StatePublisher publishes stage events to NATS JetStream.
//
// All publish operations are non-fatal: errors are logged but never
// propagated, so telemetry failures never interrupt an evaluation.
type StatePublisher struct {
	nc      *nats.Conn
	js      jetStreamPublisher
	subject string
	log     *logger.Logger
}

// NewStatePublisher connects to NATS and prepares a JetStream publisher.
func NewStatePublisher(natsURL, subject string, log *logger.Logger) (*StatePublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("be-claims-evaluator"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUnavailable, "failed to connect to NATS")
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, errors.Wrap(err, errors.ErrCodeUnavailable, "failed to create JetStream context")
	}

	p := newStatePublisher(js, subject, log)
	p.nc = nc
	return p, nil
}

func newStatePublisher(js jetStreamPublisher, subject string, log *logger.Logger) *StatePublisher {
	return &StatePublisher{js: js, subject: subject, log: log}
}

// EnsureStream creates or updates the stream capturing every stage subject.
func (p *StatePublisher) EnsureStream(ctx context.Context, name string) error {
	js, ok := p.js.(jetstream.JetStream)
	if !ok {
		return nil
	}
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     name,
		Subjects: []string{p.subject + ".>"},
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeUnavailable, "failed to ensure stream")
	}
	return nil
}

// SyncState publishes a compact event for the completed stage.
func (p *StatePublisher) SyncState(ctx context.Context, runID string, step claim.Step, rec claim.Record) {
	if p == nil || p.js == nil {
		return
	}

	event := StateEvent{
		RunID:            runID,
		ClaimID:          rec.ClaimID,
		Stage:            string(step),
		Decision:         string(rec.Decision),
		SettlementAmount: rec.SettlementAmount,
		ProofVerified:    rec.ProofVerified,
		Reasoning:        rec.Reasoning,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
	}
	if rec.Fraud != nil {
		score := rec.Fraud.Score
		event.FraudScore = &score
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.log.Warn().Err(err).Str("stage", string(step)).Msg("state: failed to marshal event")
		return
	}

	subject := p.subject + "." + string(step)
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		p.log.Warn().Err(err).
			Str("subject", subject).
			Str("claim_id", rec.ClaimID).
			Msg("state: failed to publish NATS event (non-fatal)")
		return
	}

	p.log.Debug().
		Str("subject", subject).
		Str("claim_id", rec.ClaimID).
		Msg("state: event published")
}

// Close drains the NATS connection.
func (p *StatePublisher) Close() error {
	if p == nil || p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}
