package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pesio-ai/be-claims-evaluator/internal/claim"
	"github.com/pesio-ai/be-claims-evaluator/internal/logger"
)

// ExtractionStage runs the extraction collaborator over every document of the
// submission manifest. Documents are processed concurrently and independently:
// a failing document only marks its own result.
type ExtractionStage struct {
	extractor   Extractor
	concurrency int
	timeout     time.Duration
	log         *logger.Logger
}

// NewExtractionStage creates a new ExtractionStage. concurrency bounds the
// number of in-flight documents; timeout bounds each document call.
func NewExtractionStage(extractor Extractor, concurrency int, timeout time.Duration, log *logger.Logger) *ExtractionStage {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ExtractionStage{
		extractor:   extractor,
		concurrency: concurrency,
		timeout:     timeout,
		log:         log,
	}
}

func (s *ExtractionStage) Name() claim.Step { return claim.StepDocumentExtraction }

func (s *ExtractionStage) Run(ctx context.Context, rec claim.Record) (claim.Update, error) {
	var docs []claim.Document
	if rec.Submission != nil {
		docs = rec.Submission.Documents
	}
	if len(docs) == 0 {
		return claim.Update{
			Documents: &claim.DocumentExtraction{Status: claim.ExtractionSkipped, Reason: "no_documents"},
			Reasoning: []string{"Document extraction skipped: no documents attached."},
		}, nil
	}

	var (
		mu      sync.Mutex
		results = make(map[string]claim.DocumentResult, len(docs))
	)

	// Workers never return an error so one document cannot cancel its siblings.
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, doc := range docs {
		if doc.URL == "" {
			s.log.Debug().Str("claim_id", rec.ClaimID).Int("index", i).Msg("Skipping document without URL")
			continue
		}

		g.Go(func() error {
			ext := s.extractOne(ctx, doc)
			if ext.Failed() {
				s.log.Warn().
					Str("claim_id", rec.ClaimID).
					Str("category", doc.Category).
					Str("error", ext.Error).
					Msg("Document extraction failed")
			}

			mu.Lock()
			results[claim.DocumentKey(i, doc.Category)] = claim.DocumentResult{
				Index:      i,
				Filename:   doc.Filename,
				Category:   doc.Category,
				URL:        doc.URL,
				Extraction: ext,
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Extraction.Failed() {
			failed++
		}
	}

	return claim.Update{
		Documents: &claim.DocumentExtraction{Status: claim.ExtractionCompleted, Results: results},
		Reasoning: []string{fmt.Sprintf("Processed %d document(s) via vision extraction (%d failed).", len(results), failed)},
	}, nil
}

// extractOne converts every collaborator failure, including a panic, into an
// error marker on the document.
func (s *ExtractionStage) extractOne(ctx context.Context, doc claim.Document) (ext claim.Extraction) {
	defer func() {
		if r := recover(); r != nil {
			ext = claim.Extraction{Error: fmt.Sprintf("extraction panicked: %v", r)}
		}
	}()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res, err := s.extractor.Extract(ctx, doc.URL, doc.Category)
	if err != nil {
		return claim.Extraction{Error: err.Error()}
	}
	if res == nil {
		return claim.Extraction{Error: "empty extraction result"}
	}
	return *res
}
