// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for Project and
// InfraPoint rows consumed (and, for scores, written back) by the priority
// scorer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/AmjadKhoulani/darayyaconnect-sub004/internal/domain"
)

// ListProjects returns all projects. The scorer recomputes over the full set,
// so no pagination here; the read endpoint uses ListProjectsByScore instead.
func ListProjects(ctx context.Context, db *gorm.DB) ([]domain.Project, error) {
	var out []domain.Project
	err := db.WithContext(ctx).Find(&out).Error
	return out, err
}

// ListProjectsByScore returns projects ordered by descending priority score.
func ListProjectsByScore(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.Project, error) {
	var out []domain.Project
	err := db.WithContext(ctx).
		Order("score desc, created_at asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountProjects returns the total number of projects.
func CountProjects(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Project{}).Count(&total).Error
	return total, err
}

// GetProject fetches one project by ID, or ErrNotFound.
func GetProject(ctx context.Context, db *gorm.DB, id string) (*domain.Project, error) {
	var p domain.Project
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProjectScore writes back a computed score. Only the scorer calls
// this; nothing else touches the score columns.
func UpdateProjectScore(ctx context.Context, db *gorm.DB, id string, score float64, computedAt time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Project{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"score":             score,
			"score_computed_at": computedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// IncrementProjectVotes bumps votes_count by one atomically. Returns
// ErrNotFound when the project does not exist.
func IncrementProjectVotes(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.Project{}).
		Where("id = ?", id).
		UpdateColumn("votes_count", gorm.Expr("votes_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetInfraPoint fetches one infrastructure point by ID, or ErrNotFound.
func GetInfraPoint(ctx context.Context, db *gorm.DB, id string) (*domain.InfraPoint, error) {
	var ip domain.InfraPoint
	if err := db.WithContext(ctx).Where("id = ?", id).First(&ip).Error; err != nil {
		return nil, err
	}
	return &ip, nil
}
