/*
memory.go - In-memory store for tests and development

PURPOSE:
  A complete Store/TxStore implementation backed by maps, plus in-memory
  stand-ins for the shift-factor table, the external ledger, and the
  operator notifier. The engine's tests run entirely against this package;
  store/sqlite provides the durable equivalent.

TRANSACTIONS:
  WithTx snapshots the maps, runs the callback against the live store, and
  restores the snapshot if the callback fails. Good enough for the
  engine's single-writer transactional units; not a concurrency model.

CLONING:
  Every read returns a deep clone and every write stores one, so callers
  can mutate results freely without corrupting "persisted" state. This
  mirrors the row-scanning behavior of the SQL store.
*/
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/depreciation-engine/depreciation"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type MemoryStore struct {
	mu        sync.RWMutex
	assets    map[depreciation.AssetID]*depreciation.Asset
	schedules map[depreciation.ScheduleID]*depreciation.Schedule
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		assets:    make(map[depreciation.AssetID]*depreciation.Asset),
		schedules: make(map[depreciation.ScheduleID]*depreciation.Schedule),
	}
}

func (m *MemoryStore) SaveAsset(ctx context.Context, a *depreciation.Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assets[a.ID] = cloneAsset(a)
	return nil
}

func (m *MemoryStore) GetAsset(ctx context.Context, id depreciation.AssetID) (*depreciation.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", depreciation.ErrAssetNotFound, id)
	}
	return cloneAsset(a), nil
}

func (m *MemoryStore) ListAssets(ctx context.Context) ([]*depreciation.Asset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*depreciation.Asset, 0, len(m.assets))
	for _, a := range m.assets {
		out = append(out, cloneAsset(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) SaveSchedule(ctx context.Context, s *depreciation.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules[s.ID] = s.Clone()
	return nil
}

func (m *MemoryStore) GetSchedule(ctx context.Context, id depreciation.ScheduleID) (*depreciation.Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.schedules[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", depreciation.ErrScheduleNotFound, id)
	}
	return s.Clone(), nil
}

func (m *MemoryStore) FindSchedule(ctx context.Context, asset depreciation.AssetID, book depreciation.FinanceBookID, statuses ...depreciation.ScheduleStatus) (*depreciation.Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	match := func(st depreciation.ScheduleStatus) bool {
		if len(statuses) == 0 {
			return st != depreciation.ScheduleCancelled
		}
		for _, want := range statuses {
			if st == want {
				return true
			}
		}
		return false
	}

	for _, s := range m.schedules {
		if s.AssetID == asset && s.FinanceBook == book && match(s.Status) {
			return s.Clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: asset %s book %s", depreciation.ErrScheduleNotFound, asset, book)
}

func (m *MemoryStore) ListDueSchedules(ctx context.Context, asOf depreciation.Date) ([]*depreciation.Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var due []*depreciation.Schedule
	for _, s := range m.schedules {
		if s.Status != depreciation.ScheduleActive {
			continue
		}
		if i := s.FirstUnpostedIdx(); i < len(s.Entries) && s.Entries[i].ScheduleDate.BeforeOrEqual(asOf) {
			due = append(due, s.Clone())
		}
	}

	createdAt := func(s *depreciation.Schedule) int64 {
		if a, ok := m.assets[s.AssetID]; ok {
			return a.CreatedAt.UnixNano()
		}
		return 0
	}
	sort.Slice(due, func(i, j int) bool {
		ci, cj := createdAt(due[i]), createdAt(due[j])
		if ci != cj {
			return ci < cj
		}
		return due[i].ID < due[j].ID
	})
	return due, nil
}

// WithTx snapshots both maps and restores them if fn fails. The callback
// receives the store itself; its methods take the lock per call, so fn
// must not hold it.
func (m *MemoryStore) WithTx(ctx context.Context, fn func(depreciation.Store) error) error {
	m.mu.Lock()
	assetsBackup := make(map[depreciation.AssetID]*depreciation.Asset, len(m.assets))
	for id, a := range m.assets {
		assetsBackup[id] = cloneAsset(a)
	}
	schedulesBackup := make(map[depreciation.ScheduleID]*depreciation.Schedule, len(m.schedules))
	for id, s := range m.schedules {
		schedulesBackup[id] = s.Clone()
	}
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.assets = assetsBackup
		m.schedules = schedulesBackup
		m.mu.Unlock()
		return err
	}
	return nil
}

func cloneAsset(a *depreciation.Asset) *depreciation.Asset {
	out := *a
	out.FinanceBooks = make([]depreciation.FinanceBookRow, len(a.FinanceBooks))
	copy(out.FinanceBooks, a.FinanceBooks)
	if a.DisposalDate != nil {
		d := *a.DisposalDate
		out.DisposalDate = &d
	}
	return &out
}

// =============================================================================
// SHIFT FACTORS
// =============================================================================

// MemoryShiftFactors is a fixed label-to-factor table with a designated
// default label.
type MemoryShiftFactors struct {
	Factors map[string]decimal.Decimal
	Default string
}

// NewStandardShiftFactors returns the conventional single/double/triple
// shift table weighted 1x/1.5x/2x.
func NewStandardShiftFactors() *MemoryShiftFactors {
	return &MemoryShiftFactors{
		Factors: map[string]decimal.Decimal{
			"Single Shift": decimal.NewFromInt(1),
			"Double Shift": decimal.RequireFromString("1.5"),
			"Triple Shift": decimal.NewFromInt(2),
		},
		Default: "Single Shift",
	}
}

func (m *MemoryShiftFactors) ShiftFactor(ctx context.Context, label string) (decimal.Decimal, error) {
	f, ok := m.Factors[label]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", depreciation.ErrShiftFactorNotFound, label)
	}
	return f, nil
}

func (m *MemoryShiftFactors) DefaultShiftLabel(ctx context.Context) (string, error) {
	return m.Default, nil
}

// =============================================================================
// LEDGER AND NOTIFIER STAND-INS
// =============================================================================

// LedgerEntry is one recorded posting.
type LedgerEntry struct {
	Ref         string
	Asset       depreciation.AssetID
	FinanceBook depreciation.FinanceBookID
	Amount      decimal.Decimal
	PostingDate depreciation.Date
}

// MemoryLedger records postings in order. FailFor makes postings for the
// named assets fail, for exercising the driver's failure isolation.
type MemoryLedger struct {
	mu      sync.Mutex
	Entries []LedgerEntry
	FailFor map[depreciation.AssetID]error
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{FailFor: make(map[depreciation.AssetID]error)}
}

func (l *MemoryLedger) PostLedgerEntry(ctx context.Context, asset *depreciation.Asset, book depreciation.FinanceBookID, amount decimal.Decimal, postingDate depreciation.Date) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err, ok := l.FailFor[asset.ID]; ok {
		return "", err
	}
	e := LedgerEntry{
		Ref:         uuid.NewString(),
		Asset:       asset.ID,
		FinanceBook: book,
		Amount:      amount,
		PostingDate: postingDate,
	}
	l.Entries = append(l.Entries, e)
	return e.Ref, nil
}

// MemoryNotifier records each notification call.
type MemoryNotifier struct {
	mu    sync.Mutex
	Calls []NotifierCall
}

type NotifierCall struct {
	Recipients []string
	Assets     []depreciation.AssetID
	ErrorRefs  []string
}

func (n *MemoryNotifier) NotifyOperators(ctx context.Context, recipients []string, assets []depreciation.AssetID, errorRefs []string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Calls = append(n.Calls, NotifierCall{Recipients: recipients, Assets: assets, ErrorRefs: errorRefs})
	return nil
}
