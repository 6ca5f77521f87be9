// Package services – Scorer
//
// This file implements the priority scorer: one ranking score per civic
// project, recomputed in full over current state. There is no incremental
// patching and no stored deltas; `now` is an explicit parameter so the
// computation is deterministic and directly testable with fixed timestamps.
//
// The formula shape is fixed; the weights are configuration:
//
//	score = votes*WVotes + linkedReports*WReports + urgencyBonus(infra) + days*WAge
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/config"
	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/domain"
	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/repo"
)

// Scorer computes and persists project priority scores.
type Scorer struct {
	DB      *gorm.DB
	Weights config.ScoringConfig
}

// ScoreInputs are the per-project facts the formula consumes.
type ScoreInputs struct {
	VotesCount        int
	LinkedReportCount int64
	InfraStatus       string // empty when no infra point is linked
	CreatedAt         time.Time
}

// Score applies the weighted formula to one set of inputs at now. Pure.
func (s *Scorer) Score(in ScoreInputs, now time.Time) float64 {
	days := now.Sub(in.CreatedAt).Hours() / 24
	if days < 0 {
		days = 0
	}
	return float64(in.VotesCount)*s.Weights.WVotes +
		float64(in.LinkedReportCount)*s.Weights.WReports +
		s.urgencyBonus(in.InfraStatus) +
		days*s.Weights.WAge
}

// urgencyBonus maps infrastructure state to its score bonus.
func (s *Scorer) urgencyBonus(infraStatus string) float64 {
	switch infraStatus {
	case domain.InfraStopped:
		return s.Weights.BonusStopped
	case domain.InfraMaintenance:
		return s.Weights.BonusMaintenance
	}
	return 0
}

// RecomputeAll recomputes and writes back the score of every project as of
// now. A failure on one project is logged and does not stop the pass; that
// project keeps its previous (stale but valid) score. The first error is
// returned once the pass completes.
func (s *Scorer) RecomputeAll(ctx context.Context, now time.Time) error {
	tr := otel.Tracer("services/Scorer")
	ctx, span := tr.Start(ctx, "RecomputeAll")
	defer span.End()

	projects, err := repo.ListProjects(ctx, s.DB)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.Int("projects.count", len(projects)))

	var firstErr error
	for i := range projects {
		p := &projects[i]
		if err := s.recomputeOne(ctx, p, now); err != nil {
			log.Error().
				Err(err).
				Str("project_id", p.ID).
				Msg("project score recompute failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// recomputeOne gathers one project's inputs and persists its new score.
func (s *Scorer) recomputeOne(ctx context.Context, p *domain.Project, now time.Time) error {
	in := ScoreInputs{
		VotesCount: p.VotesCount,
		CreatedAt:  p.CreatedAt,
	}

	if p.LinkedInfraPointID != nil {
		ip, err := repo.GetInfraPoint(ctx, s.DB, *p.LinkedInfraPointID)
		switch {
		case err == nil:
			in.InfraStatus = ip.Status
		case errors.Is(err, repo.ErrNotFound):
			// Dangling link: score without the bonus rather than failing.
		default:
			return err
		}

		count, err := repo.CountReportsForInfraPoint(ctx, s.DB, *p.LinkedInfraPointID)
		if err != nil {
			return err
		}
		in.LinkedReportCount = count
	}

	return repo.UpdateProjectScore(ctx, s.DB, p.ID, s.Score(in, now), now)
}
