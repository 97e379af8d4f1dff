package workflow

import (
	"fmt"

	"bitbucket.org/mmdatafocus/aidledger_backend/utils"
	"gorm.io/gorm"
)

// AcquireRebuildLock serializes aggregate rebuilds across instances using a
// MySQL advisory lock. GET_LOCK is connection-scoped: acquire and release must
// run on a connection-pinned *gorm.DB (db.Connection or a transaction), never
// on the pooled handle directly.
func AcquireRebuildLock(db *gorm.DB) error {
	var ok int
	if err := db.Raw("SELECT GET_LOCK(?, 30)", rebuildLockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("%w: another rebuild holds the advisory lock", utils.ErrorConcurrencyConflict)
	}
	return nil
}

func ReleaseRebuildLock(db *gorm.DB) {
	var _ok int
	_ = db.Raw("SELECT RELEASE_LOCK(?)", rebuildLockName).Scan(&_ok).Error
}

const rebuildLockName = "aggregate-rebuild"
