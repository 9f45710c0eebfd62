package source

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"market-insight-be/internal/entity"
	"market-insight-be/internal/pkg/logger"
	"market-insight-be/pkg/strategy"
)

const DefaultGenerateTimeout = 60 * time.Second

const (
	defaultDescription    = "Improve business outcomes through targeted marketing."
	defaultTargetAudience = "All customers"
	defaultObjectives     = "Increase customer engagement and drive sales"
	defaultOutcomes       = "Improved brand awareness and customer retention"
	defaultTimeline       = "3 months"
	defaultBudget         = "Medium investment required"
)

var errNoStrategies = errors.New("generator returned no strategies")

// Batch is the outcome of one generation request. Records is never empty.
type Batch struct {
	Records       []entity.StrategyRecord
	UsingFallback bool
	Warning       string
	// why the fallback was used, nil otherwise
	Cause error
}

type GeneratedBatch struct {
	generator strategy.Generator
	fallback  *strategy.FallbackGenerator
	timeout   time.Duration
	logger    logger.ILogger
	now       func() time.Time
}

func NewGeneratedBatch(generator strategy.Generator, fallback *strategy.FallbackGenerator, timeout time.Duration, log logger.ILogger) *GeneratedBatch {
	if timeout <= 0 {
		timeout = DefaultGenerateTimeout
	}
	if fallback == nil {
		fallback = strategy.NewFallbackGenerator()
	}
	return &GeneratedBatch{
		generator: generator,
		fallback:  fallback,
		timeout:   timeout,
		logger:    log,
		now:       time.Now,
	}
}

// Produce calls the generator within the timeout. Any failure, including an
// empty result, yields the fallback set instead.
func (s *GeneratedBatch) Produce(ctx context.Context, dataset entity.DatasetRef) Batch {
	out, err := s.call(ctx, dataset)
	if err == nil && (out == nil || len(out.Strategies) == 0) {
		err = errNoStrategies
	}
	if err != nil {
		s.logger.Warn(sourceModule, "Generator failed, using fallback strategies", map[string]interface{}{
			"dataset_id": dataset.Id,
			"error":      err.Error(),
		})
		ds := dataset
		return Batch{
			Records:       s.fallback.Synthesize(&ds),
			UsingFallback: true,
			Cause:         err,
		}
	}

	return Batch{
		Records: FormatGenerated(out.Strategies, dataset, s.now()),
		Warning: out.Warning,
	}
}

func (s *GeneratedBatch) call(ctx context.Context, dataset entity.DatasetRef) (*strategy.GenerationOutput, error) {
	if s.generator == nil {
		return nil, errors.New("no generator configured")
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.generator.Generate(ctx, dataset)
}

// FormatGenerated fills every gap in the generator output and turns it into
// Generated-state records sharing one batch timestamp.
func FormatGenerated(items []strategy.GeneratedStrategy, dataset entity.DatasetRef, batch time.Time) []entity.StrategyRecord {
	records := make([]entity.StrategyRecord, 0, len(items))
	for i, g := range items {
		rec := entity.StrategyRecord{
			ClientId:       strategy.NewClientID(batch, i),
			Name:           orDefault(g.Name, "Strategy "+strconv.Itoa(i+1)),
			Description:    describe(g.Objectives),
			Type:           entity.StrategyTypeLaunch,
			Status:         entity.StrategyStatusDraft,
			Progress:       0,
			TargetAudience: orDefault(g.TargetAudience, defaultTargetAudience),
			Channels:       []string(g.Channels),
			Metrics:        entity.DefaultMetrics(),
			Origin:         entity.OriginAIGenerated,
			Objectives:     orDefault(g.Objectives, defaultObjectives),
			Outcomes:       orDefault(g.Outcomes, defaultOutcomes),
			Timeline:       orDefault(g.Timeline, defaultTimeline),
			Budget:         orDefault(g.Budget, defaultBudget),
			DataSource:     &entity.DatasetRef{Id: dataset.Id, Name: dataset.Name},
		}
		if t, ok := entity.ParseStrategyType(g.Type); ok {
			rec.Type = t
		}
		strategy.Normalize(&rec)
		records = append(records, rec)
	}
	return records
}

// describe takes the first sentence of the objectives.
func describe(objectives string) string {
	objectives = strings.TrimSpace(objectives)
	if objectives == "" {
		return defaultDescription
	}
	first, _, _ := strings.Cut(objectives, ".")
	return strings.TrimSpace(first) + "."
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
