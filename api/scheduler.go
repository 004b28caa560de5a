/*
scheduler.go - Automated nightly posting

PURPOSE:
  Runs the batch posting driver on a cron expression so due depreciation
  periods are posted without operator action. Defaults to a nightly run
  shortly after midnight, matching the accounting convention of posting
  the previous day's due periods.

DESIGN:
  - robfig/cron owns the timing; the job body is one PostDuePeriods call
  - Overlapping runs are prevented with a tryLock: if a run is still in
    flight when the next tick fires, the tick is skipped and logged
  - Stop() waits for an in-flight run before returning

CONFIGURATION:
  - Spec: cron expression (default "0 1 * * *", 01:00 every day)
  - Enabled: whether the scheduler starts at all

SEE ALSO:
  - handlers.go: RunPosting endpoint (manual runs)
  - depreciation/posting.go: the driver itself
*/
package api

import (
	"context"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/warp/depreciation-engine/depreciation"
)

// PostingScheduler runs the batch posting driver on a schedule.
type PostingScheduler struct {
	Driver  *depreciation.PostingDriver
	Spec    string
	Enabled bool

	cron    *cron.Cron
	running sync.Mutex
	wg      sync.WaitGroup
}

// NewPostingScheduler creates a scheduler with the default nightly spec.
func NewPostingScheduler(driver *depreciation.PostingDriver) *PostingScheduler {
	return &PostingScheduler{
		Driver:  driver,
		Spec:    "0 1 * * *",
		Enabled: true,
	}
}

// Start registers the cron job and begins ticking.
func (ps *PostingScheduler) Start() error {
	if !ps.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return nil
	}

	ps.cron = cron.New()
	if _, err := ps.cron.AddFunc(ps.Spec, ps.runOnce); err != nil {
		return err
	}
	ps.cron.Start()
	log.Printf("[Scheduler] Started with spec %q", ps.Spec)
	return nil
}

// Stop stops the cron loop and waits for an in-flight run.
func (ps *PostingScheduler) Stop() {
	if ps.cron != nil {
		<-ps.cron.Stop().Done()
	}
	ps.wg.Wait()
	log.Println("[Scheduler] Stopped")
}

func (ps *PostingScheduler) runOnce() {
	if !ps.running.TryLock() {
		log.Println("[Scheduler] Previous run still in flight, skipping tick")
		return
	}
	ps.wg.Add(1)
	defer func() {
		ps.running.Unlock()
		ps.wg.Done()
	}()

	asOf := depreciation.Today()
	result, err := ps.Driver.PostDuePeriods(context.Background(), asOf)
	if err != nil {
		log.Printf("[Scheduler] Posting run as of %s failed: %v", asOf, err)
		return
	}
	log.Printf("[Scheduler] Posting run as of %s: %d posted, %d failed",
		asOf, len(result.Posted), len(result.Failed))
}
