package models

import (
	"log"

	"bitbucket.org/mmdatafocus/aidledger_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Project{}, &ProjectBudget{}, &PaymentPosting{},
		&Beneficiary{}, &ProjectBeneficiaryLink{},
		&DistributionRound{}, &AttendanceRecord{},
		&Complaint{},
		&AuditEntry{},
		&DailySpendSummary{}, &RoundAttendanceSummary{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
