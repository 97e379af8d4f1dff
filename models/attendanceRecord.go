package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/aidledger_backend/config"
	"bitbucket.org/mmdatafocus/aidledger_backend/utils"
)

type AttendanceRecord struct {
	ID            int              `gorm:"primary_key" json:"id"`
	RoundId       int              `gorm:"index;not null" json:"round_id" binding:"required"`
	BeneficiaryId int              `gorm:"index;not null" json:"beneficiary_id" binding:"required"`
	Status        AttendanceStatus `gorm:"type:enum('present','absent');default:absent" json:"status"`

	Round       *DistributionRound `gorm:"foreignKey:RoundId;constraint:OnDelete:CASCADE" json:"round,omitempty"`
	Beneficiary *Beneficiary       `gorm:"foreignKey:BeneficiaryId;constraint:OnDelete:CASCADE" json:"beneficiary,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewAttendanceRecord struct {
	RoundId       int              `json:"round_id" binding:"required"`
	BeneficiaryId int              `json:"beneficiary_id" binding:"required"`
	Status        AttendanceStatus `json:"status"`
}

func CreateAttendanceRecord(ctx context.Context, input *NewAttendanceRecord) (*AttendanceRecord, error) {
	status := input.Status
	if status == "" {
		status = AttendanceStatusAbsent
	}
	if !status.Valid() {
		return nil, errors.New("invalid attendance status")
	}
	// round lookup goes through the region gate; a round outside the caller's
	// region reads as not found
	if _, err := GetDistributionRound(ctx, input.RoundId); err != nil {
		return nil, fmt.Errorf("round not found: %w", err)
	}
	if err := utils.ValidateResourceId[Beneficiary](ctx, input.BeneficiaryId); err != nil {
		return nil, fmt.Errorf("beneficiary not found: %w", err)
	}

	record := AttendanceRecord{
		RoundId:       input.RoundId,
		BeneficiaryId: input.BeneficiaryId,
		Status:        status,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// GetAttendanceRecords lists attendance joined through region-visible rounds
// only, so attendance for a filtered-out round never leaks.
func GetAttendanceRecords(ctx context.Context, roundId int) ([]*AttendanceRecord, error) {
	db := config.GetDB()
	dbCtx := regionScope(ctx, db.WithContext(ctx).
		Model(&AttendanceRecord{}).
		Joins("JOIN distribution_rounds ON distribution_rounds.id = attendance_records.round_id"))
	if roundId > 0 {
		dbCtx = dbCtx.Where("attendance_records.round_id = ?", roundId)
	}
	var records []*AttendanceRecord
	if err := dbCtx.Select("attendance_records.*").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func UpdateAttendanceStatus(ctx context.Context, id int, status AttendanceStatus) (*AttendanceRecord, error) {
	if !status.Valid() {
		return nil, errors.New("invalid attendance status")
	}

	record, err := utils.FetchModel[AttendanceRecord](ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := GetDistributionRound(ctx, record.RoundId); err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	record.Status = status
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&AttendanceRecord{}).Where("id = ?", id).
		Update("status", status).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func DeleteAttendanceRecord(ctx context.Context, id int) (*AttendanceRecord, error) {
	record, err := utils.FetchModel[AttendanceRecord](ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := GetDistributionRound(ctx, record.RoundId); err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}
