package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/aidledger_backend/config"
	"bitbucket.org/mmdatafocus/aidledger_backend/utils"
	"gorm.io/gorm"
)

type DistributionRound struct {
	ID        int       `gorm:"primary_key" json:"id"`
	ProjectId int       `gorm:"index;not null" json:"project_id" binding:"required"`
	Title     string    `gorm:"size:255;not null" json:"title" binding:"required"`
	Location  string    `gorm:"size:255;not null;index" json:"location" binding:"required"`
	RoundDate time.Time `gorm:"not null;index" json:"round_date"`

	Project *Project `gorm:"foreignKey:ProjectId;constraint:OnDelete:CASCADE" json:"project,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewDistributionRound struct {
	ProjectId int       `json:"project_id" binding:"required"`
	Title     string    `json:"title" binding:"required"`
	Location  string    `json:"location" binding:"required"`
	RoundDate time.Time `json:"round_date" binding:"required"`
}

// regionScope applies the caller's region to a rounds query. An absent region
// context means no filter: back-office sessions see all regions, field
// sessions always carry a region claim.
func regionScope(ctx context.Context, dbCtx *gorm.DB) *gorm.DB {
	if region, ok := utils.GetRegionFromContext(ctx); ok && region != "" {
		return dbCtx.Where("distribution_rounds.location = ?", region)
	}
	return dbCtx
}

// VisibleRounds is the post-fetch form of the region gate, for paths that
// compose round rows after loading. Empty region means all rounds visible.
func VisibleRounds(rounds []*DistributionRound, region string) []*DistributionRound {
	if region == "" {
		return rounds
	}
	visible := make([]*DistributionRound, 0, len(rounds))
	for _, round := range rounds {
		if round.Location == region {
			visible = append(visible, round)
		}
	}
	return visible
}

func CreateDistributionRound(ctx context.Context, input *NewDistributionRound) (*DistributionRound, error) {
	if err := utils.ValidateResourceId[Project](ctx, input.ProjectId); err != nil {
		return nil, fmt.Errorf("project not found: %w", err)
	}

	round := DistributionRound{
		ProjectId: input.ProjectId,
		Title:     input.Title,
		Location:  input.Location,
		RoundDate: input.RoundDate,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&round).Error; err != nil {
		return nil, err
	}
	return &round, nil
}

// GetDistributionRound fetches one round, subject to the caller's region.
// A round outside the region reads as not found, never as forbidden, so the
// gate does not leak the round's existence.
func GetDistributionRound(ctx context.Context, id int) (*DistributionRound, error) {
	db := config.GetDB()
	var round DistributionRound
	err := regionScope(ctx, db.WithContext(ctx)).First(&round, id).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &round, nil
}

func GetDistributionRounds(ctx context.Context, projectId int) ([]*DistributionRound, error) {
	db := config.GetDB()
	dbCtx := regionScope(ctx, db.WithContext(ctx))
	if projectId > 0 {
		dbCtx = dbCtx.Where("project_id = ?", projectId)
	}
	var rounds []*DistributionRound
	if err := dbCtx.Order("round_date DESC, id DESC").Find(&rounds).Error; err != nil {
		return nil, err
	}
	return rounds, nil
}

func UpdateDistributionRound(ctx context.Context, id int, input *NewDistributionRound) (*DistributionRound, error) {
	round, err := GetDistributionRound(ctx, id)
	if err != nil {
		return nil, err
	}

	round.ProjectId = input.ProjectId
	round.Title = input.Title
	round.Location = input.Location
	round.RoundDate = input.RoundDate

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(round).Error; err != nil {
		return nil, err
	}
	return round, nil
}

// DeleteDistributionRound removes the round and, via FK cascade, its
// attendance records.
func DeleteDistributionRound(ctx context.Context, id int) (*DistributionRound, error) {
	round, err := GetDistributionRound(ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(round).Error; err != nil {
		return nil, err
	}
	return round, nil
}
