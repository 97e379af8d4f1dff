package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/aidledger_backend/config"
	"bitbucket.org/mmdatafocus/aidledger_backend/models"
	"bitbucket.org/mmdatafocus/aidledger_backend/utils"
	"bitbucket.org/mmdatafocus/aidledger_backend/workflow"
	"gorm.io/gorm"
)

func main() {
	dailySpendOnly := flag.Bool("daily-spend-only", false, "Rebuild only the daily spend summary")
	attendanceOnly := flag.Bool("attendance-only", false, "Rebuild only the round attendance summary")
	flag.Parse()

	if *dailySpendOnly && *attendanceOnly {
		fmt.Fprintln(os.Stderr, "-daily-spend-only and -attendance-only are mutually exclusive")
		os.Exit(2)
	}

	ctx := context.Background()
	// Explicit DB connect (config does not connect in init()).
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	// Ensure schema is up-to-date (creates summary tables if missing).
	models.MigrateTable()

	// Audit hooks resolve the actor from context; batch runs record no user.
	ctx = utils.SetUserNameInContext(ctx, "RebuildAggregates")

	// Serialize against the API scheduler and other batch invocations.
	// GET_LOCK is connection-scoped, so the whole sequence stays pinned to
	// one connection.
	err := db.Connection(func(conn *gorm.DB) error {
		if err := workflow.AcquireRebuildLock(conn); err != nil {
			return fmt.Errorf("failed to acquire rebuild lock: %w", err)
		}
		defer workflow.ReleaseRebuildLock(conn)

		if !*attendanceOnly {
			fmt.Println("Rebuilding daily_spend_summaries")
			if err := models.RebuildDailySpend(ctx); err != nil {
				return fmt.Errorf("daily spend rebuild failed: %w", err)
			}
		}
		if !*dailySpendOnly {
			fmt.Println("Rebuilding round_attendance_summaries")
			if err := models.RebuildRoundAttendance(ctx); err != nil {
				return fmt.Errorf("round attendance rebuild failed: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Println("Rebuild complete")
}
