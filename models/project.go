package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/aidledger_backend/config"
	"bitbucket.org/mmdatafocus/aidledger_backend/utils"
)

type Project struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name" binding:"required"`
	Donor     string    `gorm:"size:255" json:"donor"`
	StartDate time.Time `gorm:"not null" json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	Budget *ProjectBudget `gorm:"foreignKey:ProjectId;constraint:OnDelete:CASCADE" json:"budget,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProject struct {
	Name      string    `json:"name" binding:"required"`
	Donor     string    `json:"donor"`
	StartDate time.Time `json:"start_date" binding:"required"`
	EndDate   time.Time `json:"end_date"`
}

func CreateProject(ctx context.Context, input *NewProject) (*Project, error) {
	if !input.EndDate.IsZero() && input.EndDate.Before(input.StartDate) {
		return nil, errors.New("end date must not be before start date")
	}

	project := Project{
		Name:      input.Name,
		Donor:     input.Donor,
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func GetProject(ctx context.Context, id int) (*Project, error) {
	return utils.FetchModel[Project](ctx, id, "Budget")
}

func GetProjects(ctx context.Context) ([]*Project, error) {
	return utils.FetchAllModels[Project](ctx, "Budget")
}

func UpdateProject(ctx context.Context, id int, input *NewProject) (*Project, error) {
	project, err := utils.FetchModel[Project](ctx, id)
	if err != nil {
		return nil, err
	}

	project.Name = input.Name
	project.Donor = input.Donor
	project.StartDate = input.StartDate
	project.EndDate = input.EndDate

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(project).Error; err != nil {
		return nil, err
	}
	return project, nil
}

// DeleteProject removes the project and, via FK cascade, its budget, postings,
// rounds and beneficiary links.
func DeleteProject(ctx context.Context, id int) (*Project, error) {
	project, err := utils.FetchModel[Project](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(project).Error; err != nil {
		return nil, err
	}
	return project, nil
}
