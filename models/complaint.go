package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/aidledger_backend/config"
	"bitbucket.org/mmdatafocus/aidledger_backend/utils"
)

// Complaint stores intake records only; workflow beyond status storage lives
// with external collaborators.
type Complaint struct {
	ID            int             `gorm:"primary_key" json:"id"`
	ProjectId     int             `gorm:"index;not null" json:"project_id" binding:"required"`
	BeneficiaryId *int            `gorm:"index" json:"beneficiary_id"`
	Subject       string          `gorm:"size:255;not null" json:"subject" binding:"required"`
	Body          string          `gorm:"type:text" json:"body"`
	Status        ComplaintStatus `gorm:"type:enum('open','in_review','resolved','dismissed');default:open" json:"status"`

	Project *Project `gorm:"foreignKey:ProjectId;constraint:OnDelete:CASCADE" json:"project,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewComplaint struct {
	ProjectId     int    `json:"project_id" binding:"required"`
	BeneficiaryId *int   `json:"beneficiary_id"`
	Subject       string `json:"subject" binding:"required"`
	Body          string `json:"body"`
}

func CreateComplaint(ctx context.Context, input *NewComplaint) (*Complaint, error) {
	if err := utils.ValidateResourceId[Project](ctx, input.ProjectId); err != nil {
		return nil, fmt.Errorf("project not found: %w", err)
	}
	if input.BeneficiaryId != nil {
		if err := utils.ValidateResourceId[Beneficiary](ctx, *input.BeneficiaryId); err != nil {
			return nil, fmt.Errorf("beneficiary not found: %w", err)
		}
	}

	complaint := Complaint{
		ProjectId:     input.ProjectId,
		BeneficiaryId: input.BeneficiaryId,
		Subject:       input.Subject,
		Body:          input.Body,
		Status:        ComplaintStatusOpen,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&complaint).Error; err != nil {
		return nil, err
	}
	return &complaint, nil
}

func GetComplaint(ctx context.Context, id int) (*Complaint, error) {
	return utils.FetchModel[Complaint](ctx, id)
}

func GetComplaints(ctx context.Context, projectId int, status *ComplaintStatus) ([]*Complaint, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	if projectId > 0 {
		dbCtx = dbCtx.Where("project_id = ?", projectId)
	}
	if status != nil {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	var complaints []*Complaint
	if err := dbCtx.Order("created_at DESC").Find(&complaints).Error; err != nil {
		return nil, err
	}
	return complaints, nil
}

func UpdateComplaintStatus(ctx context.Context, id int, status ComplaintStatus) (*Complaint, error) {
	if !status.Valid() {
		return nil, errors.New("invalid complaint status")
	}

	complaint, err := utils.FetchModel[Complaint](ctx, id)
	if err != nil {
		return nil, err
	}

	complaint.Status = status
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&Complaint{}).Where("id = ?", id).
		Update("status", status).Error; err != nil {
		return nil, err
	}
	return complaint, nil
}
