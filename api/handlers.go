/*
handlers.go - HTTP API handlers for the depreciation engine

PURPOSE:
  Exposes the asset lifecycle and the depreciation engine via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  domain logic.

ENDPOINTS:
  Assets:
    GET    /api/assets                     List all assets
    POST   /api/assets                     Register asset (drafts schedules)
    GET    /api/assets/{id}                Get asset details
    POST   /api/assets/{id}/submit         Activate schedules
    GET    /api/assets/{id}/schedules/{book} Current schedule for a book
    POST   /api/assets/{id}/adjust-value   Revalue remaining base
    POST   /api/assets/{id}/repairs        Capitalize repair (+life)
    POST   /api/assets/{id}/shifts         Reallocate shift labels
    POST   /api/assets/{id}/scrap          Scrap on a date
    POST   /api/assets/{id}/sell           Sell on a date
    POST   /api/assets/{id}/restore        Reverse disposal
    POST   /api/assets/{id}/cancel         Retire asset

  Posting:
    POST   /api/posting/run                Batch-post due periods

  Scenarios:
    GET    /api/scenarios                  List demo scenarios
    POST   /api/scenarios/load             Load a demo scenario

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, configuration errors, invalid input
  - 404: Resource not found
  - 409: Posted-period protection, schedule state conflicts
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/warp/depreciation-engine/assets"
	"github.com/warp/depreciation-engine/depreciation"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Assets *assets.Service
	Driver *depreciation.PostingDriver
	Store  depreciation.TxStore

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler.
func NewHandler(svc *assets.Service, driver *depreciation.PostingDriver, store depreciation.TxStore) *Handler {
	return &Handler{Assets: svc, Driver: driver, Store: store}
}

// =============================================================================
// ASSET HANDLERS
// =============================================================================

// ListAssets returns all assets.
func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	list, err := h.Assets.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list assets", err)
		return
	}

	dtos := make([]AssetDTO, len(list))
	for i, a := range list {
		dtos[i] = toAssetDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetAsset returns a single asset.
func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) {
	id := depreciation.AssetID(chi.URLParam(r, "id"))

	asset, err := h.Assets.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssetDTO(asset))
}

// CreateAsset registers an asset and generates draft schedules.
func (h *Handler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	var req CreateAssetRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	asset, err := fromCreateAssetRequest(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid asset payload", err)
		return
	}
	if err := h.Assets.Create(r.Context(), asset); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAssetDTO(asset))
}

// SubmitAsset activates the asset's draft schedules.
func (h *Handler) SubmitAsset(w http.ResponseWriter, r *http.Request) {
	id := depreciation.AssetID(chi.URLParam(r, "id"))

	asset, err := h.Assets.Submit(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssetDTO(asset))
}

// GetSchedule returns the current schedule for one book. The path
// segment "default" addresses the unnamed book.
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id := depreciation.AssetID(chi.URLParam(r, "id"))
	book := depreciation.FinanceBookID(chi.URLParam(r, "book"))
	if book == "default" {
		book = ""
	}

	s, err := h.Assets.Schedule(r.Context(), id, book)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleDTO(s))
}

// =============================================================================
// LIFECYCLE HANDLERS
// =============================================================================

// AdjustValue revalues one book's remaining depreciable base.
func (h *Handler) AdjustValue(w http.ResponseWriter, r *http.Request) {
	id := depreciation.AssetID(chi.URLParam(r, "id"))
	var req AdjustValueRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	newValue, err := parseAmount(req.NewValue)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid value", err)
		return
	}
	s, err := h.Assets.AdjustValue(r.Context(), id,
		depreciation.FinanceBookID(req.FinanceBook), newValue, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleDTO(s))
}

// CapitalizeRepair adds a repair's cost and life extension to one book.
func (h *Handler) CapitalizeRepair(w http.ResponseWriter, r *http.Request) {
	id := depreciation.AssetID(chi.URLParam(r, "id"))
	var req RepairRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	cost, err := parseAmount(req.CapitalizedCost)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid cost", err)
		return
	}
	s, err := h.Assets.CapitalizeRepair(r.Context(), id,
		depreciation.FinanceBookID(req.FinanceBook), cost, req.LifeExtensionMonths, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleDTO(s))
}

// ReallocateShifts relabels periods of a shift-based book.
func (h *Handler) ReallocateShifts(w http.ResponseWriter, r *http.Request) {
	id := depreciation.AssetID(chi.URLParam(r, "id"))
	var req ReallocateShiftsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	assignments := make([]assets.ShiftAssignment, len(req.Assignments))
	for i, a := range req.Assignments {
		assignments[i] = assets.ShiftAssignment{Idx: a.Idx, Shift: a.Shift}
	}
	s, err := h.Assets.ReallocateShifts(r.Context(), id,
		depreciation.FinanceBookID(req.FinanceBook), assignments, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleDTO(s))
}

// ScrapAsset scraps the asset on a date.
func (h *Handler) ScrapAsset(w http.ResponseWriter, r *http.Request) {
	h.dispose(w, r, h.Assets.Scrap)
}

// SellAsset sells the asset on a date.
func (h *Handler) SellAsset(w http.ResponseWriter, r *http.Request) {
	h.dispose(w, r, h.Assets.Sell)
}

type disposeOp func(ctx context.Context, id depreciation.AssetID, date depreciation.Date, reason string) (*depreciation.Asset, error)

func (h *Handler) dispose(w http.ResponseWriter, r *http.Request, op disposeOp) {
	id := depreciation.AssetID(chi.URLParam(r, "id"))
	var req DisposeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	date, err := depreciation.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid disposal date", err)
		return
	}
	asset, err := op(r.Context(), id, date, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssetDTO(asset))
}

// RestoreAsset reverses a disposal.
func (h *Handler) RestoreAsset(w http.ResponseWriter, r *http.Request) {
	id := depreciation.AssetID(chi.URLParam(r, "id"))
	var req RestoreRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	asset, err := h.Assets.Restore(r.Context(), id, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssetDTO(asset))
}

// CancelAsset retires the asset.
func (h *Handler) CancelAsset(w http.ResponseWriter, r *http.Request) {
	id := depreciation.AssetID(chi.URLParam(r, "id"))
	var req CancelRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	asset, err := h.Assets.Cancel(r.Context(), id, req.DiscardPosted, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssetDTO(asset))
}

// =============================================================================
// POSTING HANDLERS
// =============================================================================

// RunPosting triggers a batch posting run.
func (h *Handler) RunPosting(w http.ResponseWriter, r *http.Request) {
	var req PostRunRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	asOf := depreciation.Today()
	if req.AsOf != "" {
		var err error
		if asOf, err = depreciation.ParseDate(req.AsOf); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid as_of date", err)
			return
		}
	}

	result, err := h.Driver.PostDuePeriods(r.Context(), asOf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Posting run failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toPostingRunResultDTO(asOf, result))
}

// =============================================================================
// HELPERS
// =============================================================================

// decodeAndValidate decodes the JSON body into v and runs struct
// validation, writing the error response itself on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return false
	}
	if err := validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// writeDomainError maps engine errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case depreciation.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, depreciation.ErrPostedPeriodRetention),
		errors.Is(err, depreciation.ErrActiveScheduleExists):
		writeError(w, http.StatusConflict, "Conflict", err)
	case depreciation.IsConfigurationError(err),
		errors.Is(err, depreciation.ErrZeroOrNegativeDepreciation):
		writeError(w, http.StatusBadRequest, "Invalid depreciation configuration", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
