package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/aidledger_backend/config"
	"bitbucket.org/mmdatafocus/aidledger_backend/utils"
	"gorm.io/gorm"
)

// RoundAttendanceSummary is the derived actual-present count per round.
// Every round gets a row; rounds with no attendance carry actual_present=0.
type RoundAttendanceSummary struct {
	RoundId       int `gorm:"primaryKey" json:"round_id"`
	ProjectId     int `gorm:"index;not null" json:"project_id"`
	ActualPresent int `gorm:"default:0" json:"actual_present"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// RebuildRoundAttendance replaces the summary wholesale. The LEFT JOIN keeps
// zero-attendance rounds in the result. Delete and insert share one
// transaction so readers never observe an empty table. Idempotent.
func RebuildRoundAttendance(ctx context.Context) error {
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM round_attendance_summaries`).Error; err != nil {
			return err
		}
		return tx.Exec(`
			INSERT INTO round_attendance_summaries (round_id, project_id, actual_present, created_at, updated_at)
			SELECT
				dr.id,
				dr.project_id,
				COUNT(ar.id),
				NOW(),
				NOW()
			FROM distribution_rounds dr
			LEFT JOIN attendance_records ar
				ON ar.round_id = dr.id AND ar.status = 'present'
			GROUP BY dr.id, dr.project_id
		`).Error
	})
	if err != nil {
		return fmt.Errorf("%w: round attendance: %v", utils.ErrorAggregateRebuildFailed, err)
	}
	return nil
}

// GetRoundAttendanceSummaries joins through distribution_rounds so the region
// gate applies to summary reads the same as to round reads.
func GetRoundAttendanceSummaries(ctx context.Context, projectId int) ([]*RoundAttendanceSummary, error) {
	db := config.GetDB()
	dbCtx := regionScope(ctx, db.WithContext(ctx).
		Model(&RoundAttendanceSummary{}).
		Joins("JOIN distribution_rounds ON distribution_rounds.id = round_attendance_summaries.round_id"))
	if projectId > 0 {
		dbCtx = dbCtx.Where("round_attendance_summaries.project_id = ?", projectId)
	}
	var summaries []*RoundAttendanceSummary
	if err := dbCtx.Select("round_attendance_summaries.*").Find(&summaries).Error; err != nil {
		return nil, err
	}
	return summaries, nil
}
