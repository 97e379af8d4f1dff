package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/aidledger_backend/config"
	"bitbucket.org/mmdatafocus/aidledger_backend/utils"
	"gorm.io/gorm"
)

// Beneficiary is a watched entity: every committed create/update/delete
// produces exactly one AuditEntry, written in the same transaction.
type Beneficiary struct {
	ID         int    `gorm:"primary_key" json:"id"`
	Name       string `gorm:"size:255;not null" json:"name" binding:"required"`
	NationalId string `gorm:"size:100;index" json:"national_id"`
	Phone      string `gorm:"size:50" json:"phone"`
	Village    string `gorm:"size:255" json:"village"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBeneficiary struct {
	Name       string `json:"name" binding:"required"`
	NationalId string `json:"national_id"`
	Phone      string `json:"phone"`
	Village    string `json:"village"`
}

func CreateBeneficiary(ctx context.Context, input *NewBeneficiary) (*Beneficiary, error) {
	beneficiary := Beneficiary{
		Name:       input.Name,
		NationalId: input.NationalId,
		Phone:      input.Phone,
		Village:    input.Village,
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&beneficiary).Error; err != nil {
			return err
		}
		return SaveAuditCreate(tx, "beneficiaries", beneficiary.ID, &beneficiary)
	})
	if err != nil {
		return nil, err
	}
	return &beneficiary, nil
}

func GetBeneficiary(ctx context.Context, id int) (*Beneficiary, error) {
	return utils.FetchModel[Beneficiary](ctx, id)
}

func GetBeneficiaries(ctx context.Context) ([]*Beneficiary, error) {
	return utils.FetchAllModels[Beneficiary](ctx)
}

func UpdateBeneficiary(ctx context.Context, id int, input *NewBeneficiary) (*Beneficiary, error) {
	old, err := utils.FetchModel[Beneficiary](ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *old
	updated.Name = input.Name
	updated.NationalId = input.NationalId
	updated.Phone = input.Phone
	updated.Village = input.Village

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&updated).Error; err != nil {
			return err
		}
		return SaveAuditUpdate(tx, "beneficiaries", updated.ID, old, &updated)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteBeneficiary removes the beneficiary and, via FK cascade, its project
// links and attendance records.
func DeleteBeneficiary(ctx context.Context, id int) (*Beneficiary, error) {
	old, err := utils.FetchModel[Beneficiary](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(old).Error; err != nil {
			return err
		}
		return SaveAuditDelete(tx, "beneficiaries", old.ID, old)
	})
	if err != nil {
		return nil, err
	}
	return old, nil
}
