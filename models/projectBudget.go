package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/aidledger_backend/config"
	"bitbucket.org/mmdatafocus/aidledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProjectBudget holds the allocated amount for one project. At most one budget
// row exists per project (unique index); the row is also the lock target that
// serializes approved postings for the project.
type ProjectBudget struct {
	ID              int             `gorm:"primary_key" json:"id"`
	ProjectId       int             `gorm:"uniqueIndex;not null" json:"project_id" binding:"required"`
	AllocatedAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"allocated_amount"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProjectBudget struct {
	ProjectId       int             `json:"project_id" binding:"required"`
	AllocatedAmount decimal.Decimal `json:"allocated_amount"`
}

func CreateProjectBudget(ctx context.Context, input *NewProjectBudget) (*ProjectBudget, error) {
	if input.AllocatedAmount.IsNegative() {
		return nil, errors.New("allocated amount must not be negative")
	}
	if err := utils.ValidateResourceId[Project](ctx, input.ProjectId); err != nil {
		return nil, fmt.Errorf("project not found: %w", err)
	}

	// unique index on project_id is the invariant; this check just gives a
	// readable error before the insert fails
	count, err := utils.ResourceCountWhere[ProjectBudget](ctx, "project_id = ?", input.ProjectId)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("budget already defined for project")
	}

	budget := ProjectBudget{
		ProjectId:       input.ProjectId,
		AllocatedAmount: input.AllocatedAmount,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&budget).Error; err != nil {
		return nil, err
	}
	return &budget, nil
}

func GetProjectBudget(ctx context.Context, projectId int) (*ProjectBudget, error) {
	db := config.GetDB()
	var budget ProjectBudget
	err := db.WithContext(ctx).Where("project_id = ?", projectId).First(&budget).Error
	if err != nil {
		return nil, utils.ErrorNoBudgetDefined
	}
	return &budget, nil
}

// UpdateProjectBudgetAllocation changes the allocation. Lowering it below the
// already-approved spend is refused so the budget invariant keeps holding.
func UpdateProjectBudgetAllocation(ctx context.Context, projectId int, allocated decimal.Decimal) (*ProjectBudget, error) {
	if allocated.IsNegative() {
		return nil, errors.New("allocated amount must not be negative")
	}

	db := config.GetDB()
	var budget ProjectBudget
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("project_id = ?", projectId).First(&budget).Error; err != nil {
			return utils.ErrorNoBudgetDefined
		}
		approved, err := approvedSpendForProject(tx, projectId)
		if err != nil {
			return err
		}
		if allocated.LessThan(approved) {
			return utils.ErrorBudgetExceeded
		}
		budget.AllocatedAmount = allocated
		return tx.Model(&ProjectBudget{}).Where("id = ?", budget.ID).
			Update("allocated_amount", allocated).Error
	})
	if err != nil {
		return nil, err
	}
	return &budget, nil
}
