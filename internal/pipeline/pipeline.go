// Package pipeline runs the four ETL stages in sequence for one species:
// fetch raw GBIF data, transform it to canonical records, validate against
// the animal schema, and send validated records to the target API.
//
// Control flow is strictly linear: each stage consumes the previous stage's
// staging file and produces its own. A stage that cannot produce usable
// output aborts the run; item-level failures inside a stage are recorded and
// the run continues.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"animalia/internal/config"
	"animalia/internal/fetch"
	"animalia/internal/send"
	"animalia/internal/staging"
	"animalia/internal/transform"
	"animalia/internal/validate"
	"animalia/pkg/models"
)

// DefaultSpecies is processed when no species argument is given.
const DefaultSpecies = "Cervus elaphus"

// Status is the terminal state of one run.
type Status string

const (
	StatusCompleted           Status = "Completed"
	StatusCompletedWithErrors Status = "CompletedWithErrors"
	StatusAborted             Status = "Aborted"
)

// Stage names, used in abort reporting.
const (
	StageFetch     = "fetch"
	StageTransform = "transform"
	StageValidate  = "validate"
	StageSend      = "send"
)

// Summary is the user-visible outcome of one run.
type Summary struct {
	RunID   string
	Species string
	Status  Status

	// set when Status == StatusAborted
	FailedStage string
	Err         error

	Fetched     int
	Transformed int
	Validated   int
	Rejected    int
	Sent        int
	Failed      int
}

// Pipeline wires the stages together with shared configuration.
type Pipeline struct {
	cfg     *config.Config
	fetcher *fetch.Client
	sender  *send.Sender
	log     *zap.Logger
}

// New builds a pipeline from configuration.
func New(cfg *config.Config, log *zap.Logger) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		fetcher: fetch.New(cfg.GBIFURL, cfg.RawDir, cfg.HTTPTimeout, log),
		sender:  send.New(cfg.TargetURL, cfg.HTTPTimeout, log),
		log:     log,
	}
}

// Run executes fetch -> transform -> validate -> send for one species.
func (p *Pipeline) Run(ctx context.Context, species string) Summary {
	if species == "" {
		species = DefaultSpecies
	}
	s := Summary{RunID: uuid.NewString(), Species: species}

	p.log.Info("pipeline starting",
		zap.String("runID", s.RunID),
		zap.String("species", species))

	// Stage 1: fetch raw GBIF payload.
	rawPath, err := p.fetcher.SpeciesDetail(ctx, species)
	if err != nil {
		return p.abort(s, StageFetch, err)
	}
	s.Fetched = 1

	// Stage 2: transform to canonical records.
	var payload map[string]any
	if err := staging.ReadJSON(rawPath, &payload); err != nil {
		return p.abort(s, StageTransform, err)
	}

	records := transform.Species([]map[string]any{payload}, p.log)
	s.Transformed = len(records)
	if len(records) == 0 {
		return p.abort(s, StageTransform, fmt.Errorf("no canonical records produced"))
	}

	transformedPath := staging.TransformedFile(p.cfg.ProcessedDir, species)
	if err := staging.WriteJSON(transformedPath, records); err != nil {
		return p.abort(s, StageTransform, err)
	}

	// Stage 3: validate against the animal schema.
	validated, rejected := validate.Animals(records)
	s.Validated = len(validated)
	s.Rejected = len(rejected)

	if err := staging.WriteJSON(staging.ValidatedFile(p.cfg.ProcessedDir), validated); err != nil {
		return p.abort(s, StageValidate, err)
	}
	if len(rejected) > 0 {
		if err := staging.WriteJSON(staging.RejectedFile(p.cfg.ProcessedDir), rejected); err != nil {
			return p.abort(s, StageValidate, err)
		}
		for _, r := range rejected {
			p.log.Warn("record rejected",
				zap.Int("index", r.Index),
				zap.String("nom", r.Record.Nom),
				zap.String("reason", r.Reason))
		}
	}
	if len(validated) == 0 {
		return p.abort(s, StageValidate, fmt.Errorf("no valid records after validation"))
	}

	// Stage 4: send validated records to the target API.
	report := p.sender.All(ctx, validated)
	s.Sent = report.Sent
	s.Failed = len(report.Failures)

	if len(report.Failures) > 0 {
		if err := staging.WriteJSON(staging.SendErrorsFile(p.cfg.ProcessedDir), report.Failures); err != nil {
			p.log.Error("send error report not written", zap.Error(err))
		}
		s.Status = StatusCompletedWithErrors
	} else {
		s.Status = StatusCompleted
	}

	p.log.Info("pipeline finished",
		zap.String("runID", s.RunID),
		zap.String("status", string(s.Status)),
		zap.Int("validated", s.Validated),
		zap.Int("rejected", s.Rejected),
		zap.Int("sent", s.Sent),
		zap.Int("failed", s.Failed))
	return s
}

// Sender and Fetcher expose the wired stage clients to the standalone
// per-stage subcommands.
func (p *Pipeline) Sender() *send.Sender   { return p.sender }
func (p *Pipeline) Fetcher() *fetch.Client { return p.fetcher }

func (p *Pipeline) abort(s Summary, stage string, err error) Summary {
	s.Status = StatusAborted
	s.FailedStage = stage
	s.Err = err
	p.log.Error("pipeline aborted",
		zap.String("runID", s.RunID),
		zap.String("stage", stage),
		zap.Error(err))
	return s
}

// ValidatedRecords reads back the validated staging file, gating the send
// stage on a non-empty validation output.
func ValidatedRecords(processedDir string) ([]models.Animal, error) {
	var animals []models.Animal
	if err := staging.ReadJSON(staging.ValidatedFile(processedDir), &animals); err != nil {
		return nil, err
	}
	return animals, nil
}
