// Package scheduler sweeps outstanding verification records on a fixed
// interval and drives them toward a terminal state without user interaction.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/getsentry/raven-go"
	"golang.org/x/sync/errgroup"

	"github.com/cmmshub/verification-backend/models"
)

// How often the sweep runs when no interval is configured.
const defaultInterval = 4 * time.Hour

// Bound on concurrent outbound probes during a sweep.
const defaultWorkers = 8

// RecordStore is the slice of the database the sweeper needs: just the
// records that haven't been verified yet.
type RecordStore interface {
	OutstandingRecords() ([]models.VerificationRecord, error)
}

// Coordinator performs the non-throwing automatic check on one record.
type Coordinator interface {
	CheckAutomatic(ctx context.Context, recordID string) (models.VerificationRecord, bool, error)
}

// Summary aggregates one sweep for observability.
type Summary struct {
	Total    int `json:"total"`
	Verified int `json:"verified"`
	Failed   int `json:"failed"`
	Skipped  int `json:"skipped"`
}

// Sweeper runs checks regularly against outstanding verification records.
type Sweeper struct {
	Store    RecordStore
	Verifier Coordinator
	// Interval between sweeps. Defaults to 4 hours.
	Interval time.Duration
	// Workers bounds concurrent checks within one sweep. Defaults to 8.
	Workers int
	// onItemFailure reports an unexpected failure while processing one
	// record. Defaults to a Sentry report.
	onItemFailure func(recordID string, err error)
}

func (s *Sweeper) interval() time.Duration {
	if s.Interval != 0 {
		return s.Interval
	}
	return defaultInterval
}

func (s *Sweeper) workers() int {
	if s.Workers != 0 {
		return s.Workers
	}
	return defaultWorkers
}

func (s *Sweeper) itemFailed(recordID string, err error) {
	if s.onItemFailure != nil {
		s.onItemFailure(recordID, err)
		return
	}
	log.Printf("[verification sweeper] record %s: %v", recordID, err)
	raven.CaptureError(err, map[string]string{"record": recordID})
}

// Sweep enumerates outstanding records and checks every one that still has
// attempts left; records parked at the ceiling are counted as skipped and
// left for a manual retry-reset. A failure on one record never aborts the
// sweep for the others.
func (s *Sweeper) Sweep(ctx context.Context) Summary {
	records, err := s.Store.OutstandingRecords()
	if err != nil {
		log.Printf("[verification sweeper] could not retrieve records: %v", err)
		raven.CaptureError(err, nil)
		return Summary{}
	}

	var mu sync.Mutex
	summary := Summary{Total: len(records)}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers())
	for _, record := range records {
		record := record
		g.Go(func() error {
			checked, skipped, err := s.Verifier.CheckAutomatic(ctx, record.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				s.itemFailed(record.ID, err)
				summary.Failed++
			case skipped:
				summary.Skipped++
			case checked.Status == models.StatusVerified:
				summary.Verified++
			default:
				summary.Failed++
			}
			return nil
		})
	}
	g.Wait()
	return summary
}

// Run starts the endless loop of sweeps. The first sweep happens after one
// interval, not at startup, so a crash-looping deploy doesn't hammer tenant
// domains.
func (s *Sweeper) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.interval()):
		}
		log.Printf("[verification sweeper] starting sweep")
		summary := s.Sweep(ctx)
		log.Printf("[verification sweeper] swept %d records: %d verified, %d failed, %d skipped",
			summary.Total, summary.Verified, summary.Failed, summary.Skipped)
	}
}
