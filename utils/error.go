package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

// Budget ledger error kinds. Finance callers need to tell these apart,
// so they are surfaced as distinct sentinels, never a generic failure.
var (
	// ErrorNoBudgetDefined: the posting references a project without a
	// ProjectBudget row.
	ErrorNoBudgetDefined = errors.New("no budget defined for project")

	// ErrorBudgetExceeded: the approved-sum check would be violated.
	// The posting is not created; the caller may resubmit a smaller amount.
	ErrorBudgetExceeded = errors.New("budget exceeded")

	// ErrorConcurrencyConflict: a conflicting writer holds the lock.
	// Callers retry the whole operation.
	ErrorConcurrencyConflict = errors.New("concurrency conflict")

	// ErrorAggregateRebuildFailed: a summary rebuild aborted; the previous
	// summary contents remain valid and visible.
	ErrorAggregateRebuildFailed = errors.New("aggregate rebuild failed")
)
