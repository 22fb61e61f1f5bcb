package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tempora-hr/timesheet-backend-go/internal/domain/audit"
	domain "github.com/tempora-hr/timesheet-backend-go/internal/domain/timesheet"
	"github.com/tempora-hr/timesheet-backend-go/internal/handler/http/middleware"
	"github.com/tempora-hr/timesheet-backend-go/internal/handler/http/response"
	auditService "github.com/tempora-hr/timesheet-backend-go/internal/service/audit"
	ledgerService "github.com/tempora-hr/timesheet-backend-go/internal/service/timesheet"
	"github.com/tempora-hr/timesheet-backend-go/internal/service/workflow"
)

type TimesheetHandler interface {
	Create(w http.ResponseWriter, r *http.Request)
	GetMy(w http.ResponseWriter, r *http.Request)
	GetPending(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)

	AddActivity(w http.ResponseWriter, r *http.Request)
	UpdateActivity(w http.ResponseWriter, r *http.Request)
	DeleteActivity(w http.ResponseWriter, r *http.Request)

	Submit(w http.ResponseWriter, r *http.Request)
	Cancel(w http.ResponseWriter, r *http.Request)
	ManagerDecision(w http.ResponseWriter, r *http.Request)
	FinalDecision(w http.ResponseWriter, r *http.Request)
	Revert(w http.ResponseWriter, r *http.Request)

	AuditTrail(w http.ResponseWriter, r *http.Request)
}

type timesheetHandlerImpl struct {
	ledger   *ledgerService.LedgerService
	engine   *workflow.Engine
	recorder *auditService.Recorder
}

func NewTimesheetHandler(ledger *ledgerService.LedgerService, engine *workflow.Engine, recorder *auditService.Recorder) TimesheetHandler {
	return &timesheetHandlerImpl{
		ledger:   ledger,
		engine:   engine,
		recorder: recorder,
	}
}

// Create implements TimesheetHandler.
func (h *timesheetHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	var req domain.CreateTimesheetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Create timesheet decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	ts, err := h.ledger.CreateTimesheet(r.Context(), actor.ID, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Timesheet created successfully", ts.ToResponse())
}

// GetMy implements TimesheetHandler.
func (h *timesheetHandlerImpl) GetMy(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	timesheets, err := h.ledger.ListMyTimesheets(r.Context(), actor.ID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, toResponses(timesheets))
}

// GetPending implements TimesheetHandler.
func (h *timesheetHandlerImpl) GetPending(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	timesheets, err := h.ledger.ListPendingApprovals(r.Context(), actor)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, toResponses(timesheets))
}

// Get implements TimesheetHandler.
func (h *timesheetHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Timesheet ID is required", nil)
		return
	}

	ts, err := h.ledger.GetTimesheet(r.Context(), actor, id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, ts.ToResponse())
}

// Delete implements TimesheetHandler.
func (h *timesheetHandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Timesheet ID is required", nil)
		return
	}

	if err := h.ledger.DeleteTimesheet(r.Context(), actor.ID, id); err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Timesheet deleted successfully", nil)
}

// AddActivity implements TimesheetHandler.
func (h *timesheetHandlerImpl) AddActivity(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Timesheet ID is required", nil)
		return
	}

	var req domain.ActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("AddActivity decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	ts, err := h.ledger.AddActivity(r.Context(), actor.ID, id, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Activity added successfully", ts.ToResponse())
}

// UpdateActivity implements TimesheetHandler.
func (h *timesheetHandlerImpl) UpdateActivity(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	activityID := chi.URLParam(r, "activityID")
	if id == "" || activityID == "" {
		response.BadRequest(w, "Timesheet ID and activity ID are required", nil)
		return
	}

	var req domain.ActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("UpdateActivity decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	ts, err := h.ledger.UpdateActivity(r.Context(), actor.ID, id, activityID, req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Activity updated successfully", ts.ToResponse())
}

// DeleteActivity implements TimesheetHandler.
func (h *timesheetHandlerImpl) DeleteActivity(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	activityID := chi.URLParam(r, "activityID")
	if id == "" || activityID == "" {
		response.BadRequest(w, "Timesheet ID and activity ID are required", nil)
		return
	}

	ts, err := h.ledger.DeleteActivity(r.Context(), actor.ID, id, activityID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Activity deleted successfully", ts.ToResponse())
}

// Submit implements TimesheetHandler.
func (h *timesheetHandlerImpl) Submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Timesheet ID is required", nil)
		return
	}

	ts, err := h.engine.Submit(r.Context(), actor, id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Timesheet submitted successfully", ts.ToResponse())
}

// Cancel implements TimesheetHandler.
func (h *timesheetHandlerImpl) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Timesheet ID is required", nil)
		return
	}

	ts, err := h.engine.CancelSubmission(r.Context(), actor, id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Submission cancelled successfully", ts.ToResponse())
}

// ManagerDecision implements TimesheetHandler.
func (h *timesheetHandlerImpl) ManagerDecision(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.engine.ManagerApprove)
}

// FinalDecision implements TimesheetHandler.
func (h *timesheetHandlerImpl) FinalDecision(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.engine.FinalApprove)
}

func (h *timesheetHandlerImpl) decide(w http.ResponseWriter, r *http.Request, fn workflow.DecisionFunc) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Timesheet ID is required", nil)
		return
	}

	var req domain.DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Decision decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	ts, err := fn(r.Context(), actor, id, domain.Decision(req.Decision), req.Comment)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Decision recorded successfully", ts.ToResponse())
}

// Revert implements TimesheetHandler.
func (h *timesheetHandlerImpl) Revert(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Timesheet ID is required", nil)
		return
	}

	var req domain.RevertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Revert decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	ts, err := h.engine.RevertStatus(r.Context(), actor, id, domain.Status(req.TargetStatus), req.Reason)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Timesheet status reverted", ts.ToResponse())
}

// AuditTrail implements TimesheetHandler.
func (h *timesheetHandlerImpl) AuditTrail(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "Unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		response.BadRequest(w, "Timesheet ID is required", nil)
		return
	}

	// Visibility follows the timesheet itself: owners see their own trail,
	// the approval tiers see everything.
	if _, err := h.ledger.GetTimesheet(r.Context(), actor, id); err != nil {
		response.HandleError(w, err)
		return
	}

	limit := intQueryParam(r, "limit", 50)
	offset := intQueryParam(r, "offset", 0)

	entries, err := h.recorder.Trail(r.Context(), audit.EntityTimesheet, id, limit, offset)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, entries, &response.Meta{Limit: limit, Offset: offset})
}

func toResponses(timesheets []domain.Timesheet) []domain.TimesheetResponse {
	responses := make([]domain.TimesheetResponse, 0, len(timesheets))
	for i := range timesheets {
		responses = append(responses, timesheets[i].ToResponse())
	}
	return responses
}

func intQueryParam(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return intVal
}
