/*
scenarios.go - Demo scenario loaders

PURPOSE:
  Seeds the store with recognizable asset configurations so the API can
  be explored without hand-crafting payloads. Each scenario registers and
  submits a small set of assets; reloading a scenario works against a
  fresh database.

SCENARIOS:
  monthly-laptop:    Straight-line monthly, mid-month purchase (pro-rata
                     first and last periods)
  wdv-machine:       Written-down value, annual periods, salvage value
  shift-press:       Shift-based straight line with a mixed allocation
  migrated-vehicle:  Existing asset with opening accumulated depreciation
  scrapped-tooling:  Disposal mid-life (truncated schedule)

SEE ALSO:
  - handlers.go: scenario endpoints
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/warp/depreciation-engine/assets"
	"github.com/warp/depreciation-engine/depreciation"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ID          string
	Name        string
	Description string
	Load        func(ctx context.Context, svc *assets.Service) error
}

func scenarios() []scenario {
	return []scenario{
		{
			ID:          "monthly-laptop",
			Name:        "Laptop, straight line monthly",
			Description: "1200 over 12 monthly periods from a mid-month purchase; first and last periods pro-rated",
			Load:        loadMonthlyLaptop,
		},
		{
			ID:          "wdv-machine",
			Name:        "Machine, written down value",
			Description: "100000 at 40% written down value over 3 annual periods with 10000 salvage",
			Load:        loadWDVMachine,
		},
		{
			ID:          "shift-press",
			Name:        "Press, shift based",
			Description: "Straight line weighted by shift usage; two periods run double shift",
			Load:        loadShiftPress,
		},
		{
			ID:          "migrated-vehicle",
			Name:        "Vehicle, migrated with opening balance",
			Description: "Existing asset entered with 2 periods already booked elsewhere",
			Load:        loadMigratedVehicle,
		},
		{
			ID:          "scrapped-tooling",
			Name:        "Tooling, scrapped mid-life",
			Description: "Monthly straight line truncated by a scrap date",
			Load:        loadScrappedTooling,
		},
	}
}

func loadMonthlyLaptop(ctx context.Context, svc *assets.Service) error {
	a := &depreciation.Asset{
		ID:                  "LAPTOP-001",
		NetPurchaseAmount:   decimal.NewFromInt(1200),
		AvailableForUseDate: depreciation.MustDate("2023-01-15"),
		FinanceBooks: []depreciation.FinanceBookRow{{
			Method:                depreciation.StraightLine,
			TotalPeriods:          12,
			FrequencyMonths:       1,
			DepreciationStartDate: depreciation.MustDate("2023-01-31"),
			Precision:             2,
		}},
	}
	if err := svc.Create(ctx, a); err != nil {
		return err
	}
	_, err := svc.Submit(ctx, a.ID)
	return err
}

func loadWDVMachine(ctx context.Context, svc *assets.Service) error {
	a := &depreciation.Asset{
		ID:                  "MACHINE-001",
		NetPurchaseAmount:   decimal.NewFromInt(100000),
		AvailableForUseDate: depreciation.MustDate("2022-04-01"),
		FinanceBooks: []depreciation.FinanceBookRow{{
			Method:                depreciation.WrittenDownValue,
			TotalPeriods:          3,
			FrequencyMonths:       12,
			DepreciationStartDate: depreciation.MustDate("2023-03-31"),
			RateOfDepreciation:    decimal.NewFromInt(40),
			SalvageValue:          decimal.NewFromInt(10000),
			Precision:             2,
		}},
	}
	if err := svc.Create(ctx, a); err != nil {
		return err
	}
	_, err := svc.Submit(ctx, a.ID)
	return err
}

func loadShiftPress(ctx context.Context, svc *assets.Service) error {
	a := &depreciation.Asset{
		ID:                  "PRESS-001",
		NetPurchaseAmount:   decimal.NewFromInt(60000),
		AvailableForUseDate: depreciation.MustDate("2023-01-01"),
		FinanceBooks: []depreciation.FinanceBookRow{{
			Method:                depreciation.StraightLine,
			TotalPeriods:          6,
			FrequencyMonths:       1,
			DepreciationStartDate: depreciation.MustDate("2023-01-31"),
			ShiftBased:            true,
			Precision:             2,
		}},
	}
	if err := svc.Create(ctx, a); err != nil {
		return err
	}
	if _, err := svc.Submit(ctx, a.ID); err != nil {
		return err
	}
	_, err := svc.ReallocateShifts(ctx, a.ID, "", []assets.ShiftAssignment{
		{Idx: 2, Shift: "Double Shift"},
		{Idx: 3, Shift: "Double Shift"},
	}, "seasonal double-shift production")
	return err
}

func loadMigratedVehicle(ctx context.Context, svc *assets.Service) error {
	a := &depreciation.Asset{
		ID:                             "VEHICLE-001",
		NetPurchaseAmount:              decimal.NewFromInt(24000),
		OpeningAccumulatedDepreciation: decimal.NewFromInt(4000),
		OpeningBookedPeriods:           2,
		IsExistingAsset:                true,
		AvailableForUseDate:            depreciation.MustDate("2022-07-01"),
		FinanceBooks: []depreciation.FinanceBookRow{{
			Method:                depreciation.StraightLine,
			TotalPeriods:          12,
			FrequencyMonths:       1,
			DepreciationStartDate: depreciation.MustDate("2022-09-30"),
			Precision:             2,
		}},
	}
	if err := svc.Create(ctx, a); err != nil {
		return err
	}
	_, err := svc.Submit(ctx, a.ID)
	return err
}

func loadScrappedTooling(ctx context.Context, svc *assets.Service) error {
	a := &depreciation.Asset{
		ID:                  "TOOLING-001",
		NetPurchaseAmount:   decimal.NewFromInt(9000),
		AvailableForUseDate: depreciation.MustDate("2023-01-01"),
		FinanceBooks: []depreciation.FinanceBookRow{{
			Method:                depreciation.StraightLine,
			TotalPeriods:          9,
			FrequencyMonths:       1,
			DepreciationStartDate: depreciation.MustDate("2023-01-31"),
			Precision:             2,
		}},
	}
	if err := svc.Create(ctx, a); err != nil {
		return err
	}
	if _, err := svc.Submit(ctx, a.ID); err != nil {
		return err
	}
	_, err := svc.Scrap(ctx, a.ID, depreciation.MustDate("2023-05-15"), "damaged beyond repair")
	return err
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns the available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	all := scenarios()
	dtos := make([]ScenarioDTO, len(all))
	for i, s := range all {
		dtos[i] = ScenarioDTO{ID: s.ID, Name: s.Name, Description: s.Description}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentScenario returns the most recently loaded scenario id.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"scenario_id": h.currentScenario})
}

// LoadScenario seeds the store with one scenario's assets.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	for _, s := range scenarios() {
		if s.ID != req.ScenarioID {
			continue
		}
		if err := s.Load(r.Context(), h.Assets); err != nil {
			writeError(w, http.StatusInternalServerError,
				fmt.Sprintf("Failed to load scenario %s", s.ID), err)
			return
		}
		h.currentScenario = s.ID
		writeJSON(w, http.StatusOK, map[string]string{"loaded": s.ID})
		return
	}
	writeError(w, http.StatusNotFound, "Unknown scenario", nil)
}
