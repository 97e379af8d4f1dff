package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/aidledger_backend/config"
	"bitbucket.org/mmdatafocus/aidledger_backend/utils"
)

// ProjectBeneficiaryLink enrolls a beneficiary into a project. Cascades away
// with either parent.
type ProjectBeneficiaryLink struct {
	ID            int `gorm:"primary_key" json:"id"`
	ProjectId     int `gorm:"index:idx_pbl_project_beneficiary,unique;not null" json:"project_id" binding:"required"`
	BeneficiaryId int `gorm:"index:idx_pbl_project_beneficiary,unique;not null" json:"beneficiary_id" binding:"required"`

	Project     *Project     `gorm:"foreignKey:ProjectId;constraint:OnDelete:CASCADE" json:"project,omitempty"`
	Beneficiary *Beneficiary `gorm:"foreignKey:BeneficiaryId;constraint:OnDelete:CASCADE" json:"beneficiary,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type NewProjectBeneficiaryLink struct {
	ProjectId     int `json:"project_id" binding:"required"`
	BeneficiaryId int `json:"beneficiary_id" binding:"required"`
}

func CreateProjectBeneficiaryLink(ctx context.Context, input *NewProjectBeneficiaryLink) (*ProjectBeneficiaryLink, error) {
	if err := utils.ValidateResourceId[Project](ctx, input.ProjectId); err != nil {
		return nil, fmt.Errorf("project not found: %w", err)
	}
	if err := utils.ValidateResourceId[Beneficiary](ctx, input.BeneficiaryId); err != nil {
		return nil, fmt.Errorf("beneficiary not found: %w", err)
	}

	link := ProjectBeneficiaryLink{
		ProjectId:     input.ProjectId,
		BeneficiaryId: input.BeneficiaryId,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

func GetProjectBeneficiaryLinks(ctx context.Context, projectId int) ([]*ProjectBeneficiaryLink, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	if projectId > 0 {
		dbCtx = dbCtx.Where("project_id = ?", projectId)
	}
	var links []*ProjectBeneficiaryLink
	if err := dbCtx.Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

func DeleteProjectBeneficiaryLink(ctx context.Context, id int) (*ProjectBeneficiaryLink, error) {
	link, err := utils.FetchModel[ProjectBeneficiaryLink](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(link).Error; err != nil {
		return nil, err
	}
	return link, nil
}
