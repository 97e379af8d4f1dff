package models

import (
	"context"
	"encoding/json"
	"time"

	"bitbucket.org/mmdatafocus/aidledger_backend/config"
	"bitbucket.org/mmdatafocus/aidledger_backend/utils"
	"gorm.io/gorm"
)

// AuditEntry is the append-only record of a mutation to a watched entity.
// Entries are written with the caller's tx, so an entry is durable if and only
// if the mutation it describes commits. There is no update or delete API.
type AuditEntry struct {
	ID           int         `gorm:"primary_key" json:"id"`
	UserId       *int        `gorm:"index" json:"user_id"`
	Action       AuditAction `gorm:"size:10;not null" json:"action"`
	TableName    string      `gorm:"size:255;not null;index" json:"table_name"`
	RowId        int         `gorm:"index;not null" json:"row_id"`
	OldValues    string      `gorm:"type:text" json:"old_values"`
	NewValues    string      `gorm:"type:text" json:"new_values"`
	ClientOrigin string      `gorm:"size:255" json:"client_origin"`
	CreatedAt    time.Time   `gorm:"autoCreateTime" json:"created_at"`
}

func createAuditEntry(tx *gorm.DB, action AuditAction, tableName string, rowId int, before interface{}, after interface{}) error {

	var entry AuditEntry

	ctx := tx.Statement.Context

	// Actor resolution may fail (unauthenticated context); a NULL user_id is a
	// valid, recorded state and must never fail the mutation.
	if userId, ok := utils.GetUserIdFromContext(ctx); ok {
		entry.UserId = &userId
	}
	if origin, ok := utils.GetClientOriginFromContext(ctx); ok {
		entry.ClientOrigin = origin
	}

	if before != nil {
		b, _ := json.Marshal(before)
		entry.OldValues = string(b)
	}
	if after != nil {
		a, _ := json.Marshal(after)
		entry.NewValues = string(a)
	}

	entry.Action = action
	entry.TableName = tableName
	entry.RowId = rowId

	return tx.Create(&entry).Error
}

// The table name is passed explicitly: finisher calls like tx.Create clone a
// fresh statement, so the outer tx never carries the resolved table.
func SaveAuditCreate(tx *gorm.DB, tableName string, rowId int, obj interface{}) error {
	return createAuditEntry(tx, AuditActionCreate, tableName, rowId, nil, obj)
}

func SaveAuditUpdate(tx *gorm.DB, tableName string, rowId int, before interface{}, after interface{}) error {
	return createAuditEntry(tx, AuditActionUpdate, tableName, rowId, before, after)
}

func SaveAuditDelete(tx *gorm.DB, tableName string, rowId int, obj interface{}) error {
	return createAuditEntry(tx, AuditActionDelete, tableName, rowId, obj, nil)
}

func GetAuditEntry(ctx context.Context, id int) (*AuditEntry, error) {
	db := config.GetDB()
	var result AuditEntry
	err := db.WithContext(ctx).First(&result, id).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &result, nil
}

func GetAuditEntries(ctx context.Context, tableName *string, rowId *int, userId *int) ([]*AuditEntry, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	if tableName != nil && *tableName != "" {
		dbCtx = dbCtx.Where("table_name = ?", *tableName)
	}
	if rowId != nil && *rowId > 0 {
		dbCtx = dbCtx.Where("row_id = ?", *rowId)
	}
	if userId != nil && *userId > 0 {
		dbCtx = dbCtx.Where("user_id = ?", *userId)
	}

	var results []*AuditEntry
	if err := dbCtx.Order("created_at DESC, id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
