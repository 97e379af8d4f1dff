package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/aidledger_backend/config"
	"bitbucket.org/mmdatafocus/aidledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DailySpendSummary is a small, query-friendly aggregate table used by
// dashboards.
//
// Grain: (project_id, pay_date). Fully derived from approved payment
// postings; safe to discard and rebuild at any time. Readers must treat it as
// "as of last rebuild", never as a live invariant.
type DailySpendSummary struct {
	ProjectId int       `gorm:"primaryKey" json:"project_id"`
	PayDate   time.Time `gorm:"primaryKey;type:date" json:"pay_date"`

	TotalSpent    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_spent"`
	PaymentsCount int             `gorm:"default:0" json:"payments_count"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// RebuildDailySpend replaces the summary wholesale from approved postings.
// Delete and insert share one transaction, so concurrent readers see either
// the old contents or the new ones, never an empty table. Idempotent.
func RebuildDailySpend(ctx context.Context) error {
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM daily_spend_summaries`).Error; err != nil {
			return err
		}
		return tx.Exec(`
			INSERT INTO daily_spend_summaries (project_id, pay_date, total_spent, payments_count, created_at, updated_at)
			SELECT
				project_id,
				DATE(pay_date),
				COALESCE(SUM(amount), 0),
				COUNT(*),
				NOW(),
				NOW()
			FROM payment_postings
			WHERE approval_status = 'admin_approved'
			GROUP BY project_id, DATE(pay_date)
		`).Error
	})
	if err != nil {
		return fmt.Errorf("%w: daily spend: %v", utils.ErrorAggregateRebuildFailed, err)
	}
	return nil
}

func GetDailySpendSummaries(ctx context.Context, projectId int, from, to time.Time) ([]*DailySpendSummary, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	if projectId > 0 {
		dbCtx = dbCtx.Where("project_id = ?", projectId)
	}
	if !from.IsZero() {
		dbCtx = dbCtx.Where("pay_date >= ?", from.Format("2006-01-02"))
	}
	if !to.IsZero() {
		dbCtx = dbCtx.Where("pay_date <= ?", to.Format("2006-01-02"))
	}
	var summaries []*DailySpendSummary
	if err := dbCtx.Order("pay_date DESC, project_id").Find(&summaries).Error; err != nil {
		return nil, err
	}
	return summaries, nil
}
