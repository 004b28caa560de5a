/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator struct tags; handlers run
  the shared validator instance before touching domain logic. Currency
  amounts travel as decimal strings so clients never send floats.

SEE ALSO:
  - handlers.go: Uses these types
  - depreciation/types.go: The domain model these map onto
*/
package api

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/warp/depreciation-engine/depreciation"
)

// validate is the shared validator instance for request DTOs.
var validate = validator.New()

// =============================================================================
// ASSET TYPES
// =============================================================================

// AssetDTO represents an asset in API responses.
type AssetDTO struct {
	ID                    string              `json:"id"`
	NetPurchaseAmount     string              `json:"net_purchase_amount"`
	OpeningAccumulated    string              `json:"opening_accumulated_depreciation,omitempty"`
	OpeningBookedPeriods  int                 `json:"opening_booked_periods,omitempty"`
	IsExistingAsset       bool                `json:"is_existing_asset,omitempty"`
	AvailableForUseDate   string              `json:"available_for_use_date"`
	DisposalDate          *string             `json:"disposal_date,omitempty"`
	Status                string              `json:"status"`
	PostingStatus         string              `json:"posting_status,omitempty"`
	CreatedAt             string              `json:"created_at,omitempty"`
	FinanceBooks          []FinanceBookRowDTO `json:"finance_books"`
}

// FinanceBookRowDTO represents one book's depreciation configuration.
type FinanceBookRowDTO struct {
	FinanceBook            string `json:"finance_book"`
	Method                 string `json:"method"`
	TotalPeriods           int    `json:"total_periods"`
	FrequencyMonths        int    `json:"frequency_months"`
	DepreciationStartDate  string `json:"depreciation_start_date"`
	RateOfDepreciation     string `json:"rate_of_depreciation,omitempty"`
	SalvageValue           string `json:"salvage_value,omitempty"`
	DailyProrata           bool   `json:"daily_prorata,omitempty"`
	ShiftBased             bool   `json:"shift_based,omitempty"`
	IncreaseInAssetLife    int    `json:"increase_in_asset_life,omitempty"`
	ValueAfterDepreciation string `json:"value_after_depreciation"`
	Precision              int32  `json:"precision,omitempty"`
}

// CreateAssetRequest is the request to register an asset.
type CreateAssetRequest struct {
	ID                   string                  `json:"id"`
	NetPurchaseAmount    string                  `json:"net_purchase_amount" validate:"required"`
	OpeningAccumulated   string                  `json:"opening_accumulated_depreciation"`
	OpeningBookedPeriods int                     `json:"opening_booked_periods" validate:"min=0"`
	IsExistingAsset      bool                    `json:"is_existing_asset"`
	AvailableForUseDate  string                  `json:"available_for_use_date" validate:"required,datetime=2006-01-02"`
	FinanceBooks         []FinanceBookRowRequest `json:"finance_books" validate:"required,min=1,dive"`
}

// FinanceBookRowRequest is one book's configuration in a create request.
type FinanceBookRowRequest struct {
	FinanceBook           string `json:"finance_book"`
	Method                string `json:"method" validate:"required,oneof=straight_line written_down_value double_declining_balance manual"`
	TotalPeriods          int    `json:"total_periods" validate:"required,min=1"`
	FrequencyMonths       int    `json:"frequency_months" validate:"required,min=1"`
	DepreciationStartDate string `json:"depreciation_start_date" validate:"required,datetime=2006-01-02"`
	RateOfDepreciation    string `json:"rate_of_depreciation"`
	SalvageValue          string `json:"salvage_value"`
	DailyProrata          bool   `json:"daily_prorata"`
	ShiftBased            bool   `json:"shift_based"`
	Precision             int32  `json:"precision" validate:"min=0,max=9"`
}

// =============================================================================
// SCHEDULE TYPES
// =============================================================================

// ScheduleDTO represents a schedule version.
type ScheduleDTO struct {
	ID          string             `json:"id"`
	AssetID     string             `json:"asset_id"`
	FinanceBook string             `json:"finance_book"`
	Status      string             `json:"status"`
	Notes       string             `json:"notes,omitempty"`
	CreatedAt   string             `json:"created_at,omitempty"`
	Entries     []ScheduleEntryDTO `json:"entries"`
}

// ScheduleEntryDTO represents one period.
type ScheduleEntryDTO struct {
	Idx          int    `json:"idx"`
	ScheduleDate string `json:"schedule_date"`
	Amount       string `json:"amount"`
	Accumulated  string `json:"accumulated"`
	PostingRef   string `json:"posting_ref,omitempty"`
	Shift        string `json:"shift,omitempty"`
}

// =============================================================================
// LIFECYCLE OPERATION REQUESTS
// =============================================================================

// AdjustValueRequest revalues one book's remaining base.
type AdjustValueRequest struct {
	FinanceBook string `json:"finance_book"`
	NewValue    string `json:"new_value" validate:"required"`
	Reason      string `json:"reason"`
}

// RepairRequest capitalizes a repair against one book.
type RepairRequest struct {
	FinanceBook         string `json:"finance_book"`
	CapitalizedCost     string `json:"capitalized_cost" validate:"required"`
	LifeExtensionMonths int    `json:"life_extension_months" validate:"min=0"`
	Reason              string `json:"reason"`
}

// ReallocateShiftsRequest relabels periods of a shift-based book.
type ReallocateShiftsRequest struct {
	FinanceBook string                   `json:"finance_book"`
	Assignments []ShiftAssignmentRequest `json:"assignments" validate:"required,min=1,dive"`
	Reason      string                   `json:"reason"`
}

// ShiftAssignmentRequest relabels one period by ordinal position.
type ShiftAssignmentRequest struct {
	Idx   int    `json:"idx" validate:"min=0"`
	Shift string `json:"shift" validate:"required"`
}

// DisposeRequest scraps or sells the asset on a date.
type DisposeRequest struct {
	Date   string `json:"date" validate:"required,datetime=2006-01-02"`
	Reason string `json:"reason"`
}

// RestoreRequest reverses a disposal.
type RestoreRequest struct {
	Reason string `json:"reason"`
}

// CancelRequest retires the asset.
type CancelRequest struct {
	DiscardPosted bool   `json:"discard_posted"`
	Reason        string `json:"reason"`
}

// =============================================================================
// POSTING TYPES
// =============================================================================

// PostRunRequest triggers a batch posting run.
type PostRunRequest struct {
	// AsOf defaults to today when empty.
	AsOf string `json:"as_of" validate:"omitempty,datetime=2006-01-02"`
}

// PostingRunResultDTO summarizes a batch run.
type PostingRunResultDTO struct {
	AsOf   string              `json:"as_of"`
	Posted []string            `json:"posted"`
	Failed []PostingFailureDTO `json:"failed"`
}

// PostingFailureDTO identifies one failed asset.
type PostingFailureDTO struct {
	AssetID  string `json:"asset_id"`
	ErrorRef string `json:"error_ref"`
}

// =============================================================================
// SCENARIOS AND ERRORS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toAssetDTO(a *depreciation.Asset) AssetDTO {
	dto := AssetDTO{
		ID:                   string(a.ID),
		NetPurchaseAmount:    a.NetPurchaseAmount.String(),
		OpeningBookedPeriods: a.OpeningBookedPeriods,
		IsExistingAsset:      a.IsExistingAsset,
		AvailableForUseDate:  a.AvailableForUseDate.String(),
		Status:               string(a.Status),
		PostingStatus:        string(a.PostingStatus),
		CreatedAt:            a.CreatedAt.Format(time.RFC3339),
		FinanceBooks:         make([]FinanceBookRowDTO, len(a.FinanceBooks)),
	}
	if !a.OpeningAccumulatedDepreciation.IsZero() {
		dto.OpeningAccumulated = a.OpeningAccumulatedDepreciation.String()
	}
	if a.DisposalDate != nil {
		d := a.DisposalDate.String()
		dto.DisposalDate = &d
	}
	for i := range a.FinanceBooks {
		row := &a.FinanceBooks[i]
		dto.FinanceBooks[i] = FinanceBookRowDTO{
			FinanceBook:            string(row.FinanceBook),
			Method:                 string(row.Method),
			TotalPeriods:           row.TotalPeriods,
			FrequencyMonths:        row.FrequencyMonths,
			DepreciationStartDate:  row.DepreciationStartDate.String(),
			RateOfDepreciation:     row.RateOfDepreciation.String(),
			SalvageValue:           row.SalvageValue.String(),
			DailyProrata:           row.DailyProrata,
			ShiftBased:             row.ShiftBased,
			IncreaseInAssetLife:    row.IncreaseInAssetLife,
			ValueAfterDepreciation: row.ValueAfterDepreciation.String(),
			Precision:              row.Precision,
		}
	}
	return dto
}

func toScheduleDTO(s *depreciation.Schedule) ScheduleDTO {
	dto := ScheduleDTO{
		ID:          string(s.ID),
		AssetID:     string(s.AssetID),
		FinanceBook: string(s.FinanceBook),
		Status:      string(s.Status),
		Notes:       s.Notes,
		CreatedAt:   s.CreatedAt.Format(time.RFC3339),
		Entries:     make([]ScheduleEntryDTO, len(s.Entries)),
	}
	for i, e := range s.Entries {
		dto.Entries[i] = ScheduleEntryDTO{
			Idx:          e.Idx,
			ScheduleDate: e.ScheduleDate.String(),
			Amount:       e.Amount.String(),
			Accumulated:  e.Accumulated.String(),
			PostingRef:   e.PostingRef,
			Shift:        e.Shift,
		}
	}
	return dto
}

func toPostingRunResultDTO(asOf depreciation.Date, r *depreciation.PostingRunResult) PostingRunResultDTO {
	dto := PostingRunResultDTO{
		AsOf:   asOf.String(),
		Posted: make([]string, len(r.Posted)),
		Failed: make([]PostingFailureDTO, len(r.Failed)),
	}
	for i, id := range r.Posted {
		dto.Posted[i] = string(id)
	}
	for i, f := range r.Failed {
		dto.Failed[i] = PostingFailureDTO{AssetID: string(f.Asset), ErrorRef: f.ErrorRef}
	}
	return dto
}

// parseAmount parses a decimal string, defaulting empty to zero.
func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func fromCreateAssetRequest(req *CreateAssetRequest) (*depreciation.Asset, error) {
	netPurchase, err := decimal.NewFromString(req.NetPurchaseAmount)
	if err != nil {
		return nil, err
	}
	openingAcc, err := parseAmount(req.OpeningAccumulated)
	if err != nil {
		return nil, err
	}
	availableForUse, err := depreciation.ParseDate(req.AvailableForUseDate)
	if err != nil {
		return nil, err
	}

	asset := &depreciation.Asset{
		ID:                             depreciation.AssetID(req.ID),
		NetPurchaseAmount:              netPurchase,
		OpeningAccumulatedDepreciation: openingAcc,
		OpeningBookedPeriods:           req.OpeningBookedPeriods,
		IsExistingAsset:                req.IsExistingAsset,
		AvailableForUseDate:            availableForUse,
	}

	for _, r := range req.FinanceBooks {
		start, err := depreciation.ParseDate(r.DepreciationStartDate)
		if err != nil {
			return nil, err
		}
		rate, err := parseAmount(r.RateOfDepreciation)
		if err != nil {
			return nil, err
		}
		salvage, err := parseAmount(r.SalvageValue)
		if err != nil {
			return nil, err
		}
		precision := r.Precision
		if precision == 0 {
			precision = 2
		}
		asset.FinanceBooks = append(asset.FinanceBooks, depreciation.FinanceBookRow{
			FinanceBook:           depreciation.FinanceBookID(r.FinanceBook),
			Method:                depreciation.Method(r.Method),
			TotalPeriods:          r.TotalPeriods,
			FrequencyMonths:       r.FrequencyMonths,
			DepreciationStartDate: start,
			RateOfDepreciation:    rate,
			SalvageValue:          salvage,
			DailyProrata:          r.DailyProrata,
			ShiftBased:            r.ShiftBased,
			Precision:             precision,
		})
	}
	return asset, nil
}
