/*
posting.go - Batch posting driver

PURPOSE:
  Walks every Active schedule with due periods and posts them to the
  external ledger. Intended to run periodically (the api package wires it
  to a cron scheduler) or on demand for a single day's close.

FAILURE ISOLATION:
  Each schedule is one unit: due entries are posted to the ledger in
  ordinal order, then the posting references, the decremented book value,
  and the recomputed asset status are persisted in one store transaction.
  A ledger failure mid-unit keeps the entries already posted (persisted,
  so retries resume after them), flags the owning asset's posting status,
  and the run moves on; one bad asset never blocks the batch. At the end
  of the run a single summary notification goes to the operator group
  listing every failed asset with an error reference that can be matched
  against the log.

ORDERING:
  Units run oldest asset first so retried runs make forward progress in a
  stable order.

SEE ALSO:
  - store.go: LedgerPoster and Notifier ports
  - api/scheduler.go: cron wiring
*/
package depreciation

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
)

// =============================================================================
// POSTING DRIVER
// =============================================================================

type PostingDriver struct {
	store    TxStore
	poster   LedgerPoster
	notifier Notifier

	// Operator group receiving the end-of-run failure summary.
	recipients []string

	logger *log.Logger
}

func NewPostingDriver(store TxStore, poster LedgerPoster, notifier Notifier, recipients []string) *PostingDriver {
	return &PostingDriver{
		store:      store,
		poster:     poster,
		notifier:   notifier,
		recipients: recipients,
		logger:     log.Default(),
	}
}

// PostingFailure identifies one failed asset and the reference logged for
// its error.
type PostingFailure struct {
	Asset    AssetID
	ErrorRef string
}

// PostingRunResult summarizes one batch run.
type PostingRunResult struct {
	Posted []AssetID
	Failed []PostingFailure
}

// PostDuePeriods posts every unposted entry dated on or before asOf,
// one transactional unit per schedule. Context cancellation is honored
// between units; the unit in flight completes or rolls back.
func (d *PostingDriver) PostDuePeriods(ctx context.Context, asOf Date) (*PostingRunResult, error) {
	due, err := d.store.ListDueSchedules(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("listing due schedules: %w", err)
	}
	d.logger.Printf("[Posting] run as of %s: %d schedules due", asOf, len(due))

	result := &PostingRunResult{}
	failed := make(map[AssetID]bool)
	posted := make(map[AssetID]bool)

	for _, s := range due {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if failed[s.AssetID] {
			// A sibling book already failed this run; leave the asset
			// consistent and let the retry pick both up.
			continue
		}

		if err := d.postScheduleUnit(ctx, s.ID, asOf); err != nil {
			ref := uuid.NewString()
			d.logger.Printf("[Posting] asset %s schedule %s failed (ref %s): %v", s.AssetID, s.ID, ref, err)

			failed[s.AssetID] = true
			result.Failed = append(result.Failed, PostingFailure{Asset: s.AssetID, ErrorRef: ref})
			d.markPostingFailed(ctx, s.AssetID)
			continue
		}

		if !posted[s.AssetID] {
			posted[s.AssetID] = true
			result.Posted = append(result.Posted, s.AssetID)
		}
	}

	if len(result.Failed) > 0 {
		d.notifyFailures(ctx, result.Failed)
	}
	d.logger.Printf("[Posting] run complete: %d assets posted, %d failed", len(result.Posted), len(result.Failed))
	return result, nil
}

// postScheduleUnit posts one schedule's due entries to the ledger, then
// persists the references, the decremented book value, and the recomputed
// asset status in one store transaction. The ledger writer is an external
// system and cannot participate in that transaction; a mid-unit ledger
// failure therefore persists the successful prefix before reporting the
// error, so a retried run resumes after it.
func (d *PostingDriver) postScheduleUnit(ctx context.Context, id ScheduleID, asOf Date) error {
	s, err := d.store.GetSchedule(ctx, id)
	if err != nil {
		return err
	}
	asset, err := d.store.GetAsset(ctx, s.AssetID)
	if err != nil {
		return err
	}
	row, err := asset.FinanceBook(s.FinanceBook)
	if err != nil {
		return err
	}

	var postErr error
	postedAny := false
	for i := s.FirstUnpostedIdx(); i < len(s.Entries); i++ {
		e := &s.Entries[i]
		if e.ScheduleDate.After(asOf) {
			break
		}

		ref, err := d.poster.PostLedgerEntry(ctx, asset, s.FinanceBook, e.Amount, e.ScheduleDate)
		if err != nil {
			postErr = &PostingError{Asset: asset.ID, Err: err}
			break
		}
		e.PostingRef = ref
		row.ValueAfterDepreciation = row.Round(row.ValueAfterDepreciation.Sub(e.Amount))
		postedAny = true
	}
	if !postedAny {
		return postErr
	}

	if asset.Status == AssetSubmitted || asset.Status == AssetPartiallyDepreciated ||
		asset.Status == AssetFullyDepreciated {
		asset.Status = asset.DepreciationProgress()
	}
	asset.PostingStatus = PostingSuccessful

	err = d.store.WithTx(ctx, func(tx Store) error {
		if err := tx.SaveSchedule(ctx, s); err != nil {
			return err
		}
		return tx.SaveAsset(ctx, asset)
	})
	if err != nil {
		return err
	}
	return postErr
}

// markPostingFailed flags the asset outside the rolled-back unit so the
// failure stays visible to operators.
func (d *PostingDriver) markPostingFailed(ctx context.Context, id AssetID) {
	asset, err := d.store.GetAsset(ctx, id)
	if err != nil {
		d.logger.Printf("[Posting] asset %s: cannot flag posting failure: %v", id, err)
		return
	}
	asset.PostingStatus = PostingFailed
	if err := d.store.SaveAsset(ctx, asset); err != nil {
		d.logger.Printf("[Posting] asset %s: cannot flag posting failure: %v", id, err)
	}
}

func (d *PostingDriver) notifyFailures(ctx context.Context, failures []PostingFailure) {
	assets := make([]AssetID, len(failures))
	refs := make([]string, len(failures))
	for i, f := range failures {
		assets[i] = f.Asset
		refs[i] = f.ErrorRef
	}
	if err := d.notifier.NotifyOperators(ctx, d.recipients, assets, refs); err != nil {
		d.logger.Printf("[Posting] failure notification not delivered: %v", err)
	}
}
