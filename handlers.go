package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/aidledger_backend/config"
	"bitbucket.org/mmdatafocus/aidledger_backend/models"
	"bitbucket.org/mmdatafocus/aidledger_backend/models/reports"
	"bitbucket.org/mmdatafocus/aidledger_backend/utils"
	"bitbucket.org/mmdatafocus/aidledger_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

func registerRoutes(r *gin.Engine) {
	api := r.Group("/api")

	api.POST("/projects", createProjectHandler)
	api.GET("/projects", listProjectsHandler)
	api.GET("/projects/:id", getProjectHandler)
	api.PUT("/projects/:id", updateProjectHandler)
	api.DELETE("/projects/:id", deleteProjectHandler)
	api.GET("/projects/:id/remaining-budget", remainingBudgetHandler)
	api.GET("/projects/:id/budget", getProjectBudgetHandler)
	api.PUT("/projects/:id/budget", updateProjectBudgetHandler)

	api.POST("/budgets", createProjectBudgetHandler)

	api.POST("/payments", createPaymentHandler)
	api.GET("/payments", listPaymentsHandler)
	api.GET("/payments/:id", getPaymentHandler)
	api.PATCH("/payments/:id/status", updatePaymentStatusHandler)

	api.POST("/beneficiaries", createBeneficiaryHandler)
	api.GET("/beneficiaries", listBeneficiariesHandler)
	api.GET("/beneficiaries/:id", getBeneficiaryHandler)
	api.PUT("/beneficiaries/:id", updateBeneficiaryHandler)
	api.DELETE("/beneficiaries/:id", deleteBeneficiaryHandler)

	api.POST("/project-beneficiaries", createProjectBeneficiaryLinkHandler)
	api.GET("/project-beneficiaries", listProjectBeneficiaryLinksHandler)
	api.DELETE("/project-beneficiaries/:id", deleteProjectBeneficiaryLinkHandler)

	api.POST("/rounds", createRoundHandler)
	api.GET("/rounds", listRoundsHandler)
	api.GET("/rounds/:id", getRoundHandler)
	api.PUT("/rounds/:id", updateRoundHandler)
	api.DELETE("/rounds/:id", deleteRoundHandler)

	api.POST("/attendance", createAttendanceHandler)
	api.GET("/attendance", listAttendanceHandler)
	api.PATCH("/attendance/:id/status", updateAttendanceStatusHandler)
	api.DELETE("/attendance/:id", deleteAttendanceHandler)

	api.POST("/complaints", createComplaintHandler)
	api.GET("/complaints", listComplaintsHandler)
	api.GET("/complaints/:id", getComplaintHandler)
	api.PATCH("/complaints/:id/status", updateComplaintStatusHandler)

	api.GET("/audit-entries", listAuditEntriesHandler)
	api.GET("/audit-entries/:id", getAuditEntryHandler)

	api.POST("/aggregates/rebuild", rebuildAggregatesHandler)
	api.GET("/reports/daily-spend", dailySpendReportHandler)
	api.GET("/reports/round-attendance", roundAttendanceReportHandler)
	api.GET("/reports/distribution-summary", distributionSummaryHandler)
}

// respondError maps domain sentinels onto HTTP statuses. Unknown errors are
// reported as 400 so handler code never has to special-case validation
// messages from the models layer.
func respondError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": fields})
		return
	}

	status := http.StatusBadRequest
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		status = http.StatusNotFound
	case errors.Is(err, utils.ErrorNoBudgetDefined):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, utils.ErrorBudgetExceeded):
		status = http.StatusConflict
	case errors.Is(err, utils.ErrorConcurrencyConflict):
		status = http.StatusConflict
	case errors.Is(err, utils.ErrorAggregateRebuildFailed):
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string) int {
	v, _ := strconv.Atoi(c.Query(name))
	return v
}

// queryDate parses yyyy-mm-dd query params; zero time when absent.
func queryDate(c *gin.Context, name string) (time.Time, error) {
	v := c.Query(name)
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", v)
}

/* projects */

func createProjectHandler(c *gin.Context) {
	var input models.NewProject
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	project, err := models.CreateProject(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

func listProjectsHandler(c *gin.Context) {
	projects, err := models.GetProjects(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

func getProjectHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	project, err := models.GetProject(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func updateProjectHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewProject
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	project, err := models.UpdateProject(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func deleteProjectHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	project, err := models.DeleteProject(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

/* budgets */

func createProjectBudgetHandler(c *gin.Context) {
	var input models.NewProjectBudget
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	budget, err := models.CreateProjectBudget(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, budget)
}

func getProjectBudgetHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	budget, err := models.GetProjectBudget(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, budget)
}

type updateBudgetRequest struct {
	AllocatedAmount decimal.Decimal `json:"allocatedAmount" binding:"required"`
}

func updateProjectBudgetHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var req updateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, err)
		return
	}
	budget, err := models.UpdateProjectBudgetAllocation(c.Request.Context(), id, req.AllocatedAmount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, budget)
}

func remainingBudgetHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	remaining, err := models.GetRemainingBudget(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projectId": id, "remainingBudget": remaining})
}

/* payments */

func createPaymentHandler(c *gin.Context) {
	var input models.NewPaymentPosting
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	posting, err := models.CreatePaymentPosting(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, posting)
}

func listPaymentsHandler(c *gin.Context) {
	var status *models.ApprovalStatus
	if v := c.Query("status"); v != "" {
		s := models.ApprovalStatus(v)
		if !s.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		status = &s
	}
	postings, err := models.GetPaymentPostings(c.Request.Context(), queryInt(c, "projectId"), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, postings)
}

func getPaymentHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	posting, err := models.GetPaymentPosting(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, posting)
}

type updatePaymentStatusRequest struct {
	Status models.ApprovalStatus `json:"status" binding:"required"`
}

func updatePaymentStatusHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var req updatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, err)
		return
	}
	if !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}
	posting, err := models.UpdatePaymentPostingStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, posting)
}

/* beneficiaries */

func createBeneficiaryHandler(c *gin.Context) {
	var input models.NewBeneficiary
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	beneficiary, err := models.CreateBeneficiary(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, beneficiary)
}

func listBeneficiariesHandler(c *gin.Context) {
	beneficiaries, err := models.GetBeneficiaries(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, beneficiaries)
}

func getBeneficiaryHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	beneficiary, err := models.GetBeneficiary(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, beneficiary)
}

func updateBeneficiaryHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewBeneficiary
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	beneficiary, err := models.UpdateBeneficiary(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, beneficiary)
}

func deleteBeneficiaryHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	beneficiary, err := models.DeleteBeneficiary(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, beneficiary)
}

/* project-beneficiary links */

func createProjectBeneficiaryLinkHandler(c *gin.Context) {
	var input models.NewProjectBeneficiaryLink
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	link, err := models.CreateProjectBeneficiaryLink(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, link)
}

func listProjectBeneficiaryLinksHandler(c *gin.Context) {
	links, err := models.GetProjectBeneficiaryLinks(c.Request.Context(), queryInt(c, "projectId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, links)
}

func deleteProjectBeneficiaryLinkHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	link, err := models.DeleteProjectBeneficiaryLink(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, link)
}

/* distribution rounds */

func createRoundHandler(c *gin.Context) {
	var input models.NewDistributionRound
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	round, err := models.CreateDistributionRound(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, round)
}

func listRoundsHandler(c *gin.Context) {
	rounds, err := models.GetDistributionRounds(c.Request.Context(), queryInt(c, "projectId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rounds)
}

func getRoundHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	round, err := models.GetDistributionRound(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, round)
}

func updateRoundHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewDistributionRound
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	round, err := models.UpdateDistributionRound(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, round)
}

func deleteRoundHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	round, err := models.DeleteDistributionRound(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, round)
}

/* attendance */

func createAttendanceHandler(c *gin.Context) {
	var input models.NewAttendanceRecord
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	record, err := models.CreateAttendanceRecord(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func listAttendanceHandler(c *gin.Context) {
	records, err := models.GetAttendanceRecords(c.Request.Context(), queryInt(c, "roundId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

type updateAttendanceStatusRequest struct {
	Status models.AttendanceStatus `json:"status" binding:"required"`
}

func updateAttendanceStatusHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var req updateAttendanceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, err)
		return
	}
	if !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}
	record, err := models.UpdateAttendanceStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func deleteAttendanceHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	record, err := models.DeleteAttendanceRecord(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

/* complaints */

func createComplaintHandler(c *gin.Context) {
	var input models.NewComplaint
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	complaint, err := models.CreateComplaint(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, complaint)
}

func listComplaintsHandler(c *gin.Context) {
	var status *models.ComplaintStatus
	if v := c.Query("status"); v != "" {
		s := models.ComplaintStatus(v)
		if !s.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		status = &s
	}
	complaints, err := models.GetComplaints(c.Request.Context(), queryInt(c, "projectId"), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, complaints)
}

func getComplaintHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	complaint, err := models.GetComplaint(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, complaint)
}

type updateComplaintStatusRequest struct {
	Status models.ComplaintStatus `json:"status" binding:"required"`
}

func updateComplaintStatusHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var req updateComplaintStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, err)
		return
	}
	if !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}
	complaint, err := models.UpdateComplaintStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, complaint)
}

/* audit trail */

func listAuditEntriesHandler(c *gin.Context) {
	var tableName *string
	if v := c.Query("table"); v != "" {
		tableName = &v
	}
	var rowId *int
	if v := queryInt(c, "rowId"); v > 0 {
		rowId = &v
	}
	var userId *int
	if v := queryInt(c, "userId"); v > 0 {
		userId = &v
	}
	entries, err := models.GetAuditEntries(c.Request.Context(), tableName, rowId, userId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func getAuditEntryHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	entry, err := models.GetAuditEntry(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

/* aggregates and reports */

func rebuildAggregatesHandler(c *gin.Context) {
	if err := workflow.RebuildAggregates(c.Request.Context(), config.GetLogger()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rebuilt"})
}

func dailySpendReportHandler(c *gin.Context) {
	from, err := queryDate(c, "from")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
		return
	}
	to, err := queryDate(c, "to")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
		return
	}
	summaries, err := models.GetDailySpendSummaries(c.Request.Context(), queryInt(c, "projectId"), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summaries)
}

func roundAttendanceReportHandler(c *gin.Context) {
	summaries, err := models.GetRoundAttendanceSummaries(c.Request.Context(), queryInt(c, "projectId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summaries)
}

func distributionSummaryHandler(c *gin.Context) {
	from, err := queryDate(c, "from")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
		return
	}
	to, err := queryDate(c, "to")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
		return
	}
	rows, err := reports.GetDistributionSummary(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}
