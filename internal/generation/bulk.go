// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package generation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"autoblogger/internal/cost"
	"autoblogger/internal/metrics"
	"autoblogger/internal/models"
)

// BulkStats summarises a bulk run. Token and cost totals cover the
// successful topics only.
type BulkStats struct {
	TotalTopics           int     `json:"total_topics"`
	SuccessfulGenerations int     `json:"successful_generations"`
	FailedGenerations     int     `json:"failed_generations"`
	TotalTokensUsed       int     `json:"total_tokens_used"`
	TotalCost             float64 `json:"total_cost"`
}

// TopicOutcome records what happened to one bulk topic.
type TopicOutcome struct {
	Topic     string     `json:"topic"`
	Success   bool       `json:"success"`
	ContentID *uuid.UUID `json:"content_id,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// BulkResult holds the stored items in topic order.
type BulkResult struct {
	Content  []*models.Content
	Outcomes []TopicOutcome
	Stats    BulkStats
}

// BulkGenerate runs the pipeline once per topic, strictly in input order,
// pausing BulkDelay between topics. Titles are always extracted. A failed
// topic is recorded and the run continues. Every successful item is
// stored in one transaction after all topics are attempted; a store
// failure rolls back the whole batch and wraps ErrPersistence.
func (s *Service) BulkGenerate(ctx context.Context, ownerID uuid.UUID, req BulkRequest) (*BulkResult, error) {
	if err := s.cfg.Limits.ValidateBulk(req); err != nil {
		return nil, err
	}

	opts := normalize(req.Options, s.cfg.DefaultModel, s.cfg.DefaultTemperature)
	res := &BulkResult{
		Content:  make([]*models.Content, 0, len(req.Topics)),
		Outcomes: make([]TopicOutcome, len(req.Topics)),
		Stats:    BulkStats{TotalTopics: len(req.Topics)},
	}
	indexOf := make([]int, 0, len(req.Topics))
	var totalCost float64

	for i, topic := range req.Topics {
		res.Outcomes[i].Topic = topic

		if i > 0 {
			if err := s.sleep(ctx, s.cfg.BulkDelay); err != nil {
				for j := i; j < len(req.Topics); j++ {
					res.Outcomes[j] = TopicOutcome{Topic: req.Topics[j], Error: err.Error()}
				}
				break
			}
		}

		item, estimate, err := s.produceTopic(ctx, ownerID, topic, opts)
		if err != nil {
			res.Outcomes[i].Error = err.Error()
			s.logger.Warn("bulk topic failed",
				"owner_id", ownerID,
				"topic", topic,
				"error", err,
			)
			continue
		}

		res.Outcomes[i].Success = true
		res.Content = append(res.Content, item)
		indexOf = append(indexOf, i)
		res.Stats.TotalTokensUsed += item.TokensUsed
		totalCost += estimate.TotalCost
	}

	res.Stats.SuccessfulGenerations = len(res.Content)
	res.Stats.FailedGenerations = res.Stats.TotalTopics - res.Stats.SuccessfulGenerations
	res.Stats.TotalCost = cost.Round(totalCost)

	if len(res.Content) > 0 {
		if err := s.persist(ctx, func(ctx context.Context) error { return s.repo.CreateBatch(ctx, res.Content) }); err != nil {
			metrics.GenerationTotal.WithLabelValues("bulk", metrics.StatusFailure).Add(float64(res.Stats.TotalTopics))
			s.logger.Error("bulk content generation failed",
				"owner_id", ownerID,
				"topics_count", len(req.Topics),
				"error", err,
			)
			return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
		}
	}

	for k, item := range res.Content {
		id := item.ID
		res.Outcomes[indexOf[k]].ContentID = &id
	}

	metrics.GenerationTotal.WithLabelValues("bulk", metrics.StatusSuccess).Add(float64(res.Stats.SuccessfulGenerations))
	metrics.GenerationTotal.WithLabelValues("bulk", metrics.StatusFailure).Add(float64(res.Stats.FailedGenerations))
	s.logger.Info("bulk content generated successfully",
		"owner_id", ownerID,
		"topics_count", len(req.Topics),
		"successful_generations", res.Stats.SuccessfulGenerations,
		"total_tokens_used", res.Stats.TotalTokensUsed,
		"total_cost", res.Stats.TotalCost,
	)
	return res, nil
}

// produceTopic runs one bulk topic and recovers from a panic in the
// generation client so the loop can continue.
func (s *Service) produceTopic(ctx context.Context, ownerID uuid.UUID, topic string, opts models.GenerationOptions) (item *models.Content, estimate cost.Estimate, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrGenerationFailed, r)
		}
	}()
	start := time.Now()
	item, estimate, err = s.produce(ctx, ownerID, topic, "", opts)
	if err == nil {
		metrics.GenerationDuration.WithLabelValues(item.AIModel).Observe(time.Since(start).Seconds())
	}
	return item, estimate, err
}
