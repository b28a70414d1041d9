// Package availability scans the provider day by day for free slots and
// reconciles a requested time against a day's slot list.
package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bookiovoice/datetime"
	"bookiovoice/metrics"
	"bookiovoice/models"
	"bookiovoice/services/bookio"
)

const (
	// DefaultMaxDays bounds the soonest-slot scan. Upstream cost grows linearly
	// with the window and each day is one sequential call inside the webhook budget.
	DefaultMaxDays = 14
	// LongHorizonDays is the wider policy, selectable through configuration.
	LongHorizonDays = 30
	// DefaultOverviewDays is the size of the multi-day suggestion menu.
	DefaultOverviewDays = 3

	maxSoonestAlternatives = 3
	overviewConcurrency    = 3
)

// ErrScanFailed means no day in the window could be fetched at all, which is
// distinct from a window that was fetched and had no free slot.
var ErrScanFailed = errors.New("availability scan failed")

// ScanError carries the details of a scan where every day failed.
type ScanError struct {
	Days int
	// Permanent is set when the provider rejected the request (4xx) rather than
	// being unreachable, e.g. an unknown service id.
	Permanent bool
	Last      error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("%s: all %d days failed: %v", ErrScanFailed, e.Days, e.Last)
}

func (e *ScanError) Unwrap() error { return e.Last }

func (e *ScanError) Is(target error) bool { return target == ErrScanFailed }

// SlotProvider fetches one day of slots. The bookio client satisfies it.
type SlotProvider interface {
	FetchDaySlots(ctx context.Context, serviceID, workerID int, date time.Time) (models.DaySlots, error)
}

// Scanner walks a window of days against a SlotProvider. Slot data is never cached.
type Scanner struct {
	provider SlotProvider
	logger   *zap.Logger
	maxDays  int
}

// NewScanner builds a Scanner; maxDays <= 0 selects DefaultMaxDays.
func NewScanner(p SlotProvider, logger *zap.Logger, maxDays int) *Scanner {
	if maxDays <= 0 {
		maxDays = DefaultMaxDays
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{provider: p, logger: logger, maxDays: maxDays}
}

// MaxDays is the configured soonest-slot window.
func (s *Scanner) MaxDays() int {
	return s.maxDays
}

// DaySlots fetches a single day.
func (s *Scanner) DaySlots(ctx context.Context, serviceID, workerID int, date time.Time) (models.DaySlots, error) {
	return s.provider.FetchDaySlots(ctx, serviceID, workerID, datetime.Midnight(date))
}

// FindSoonest evaluates days start, start+1, ... sequentially and stops at the
// first day with a slot. A failing day is logged and skipped. When ctx expires
// the scan stops and reports what it has (Partial, not found) without error.
// maxDays <= 0 uses the scanner's window.
func (s *Scanner) FindSoonest(ctx context.Context, serviceID, workerID int, start time.Time, maxDays int) (models.SoonestResult, error) {
	if maxDays <= 0 {
		maxDays = s.maxDays
	}
	start = datetime.Midnight(start)
	log := s.logger.With(zap.Int("serviceId", serviceID), zap.Int("workerId", workerID))

	var (
		res       models.SoonestResult
		lastErr   error
		permanent bool
	)
	for offset := 0; offset < maxDays; offset++ {
		if ctx.Err() != nil {
			res.Partial = true
			break
		}
		date := start.AddDate(0, 0, offset)
		day, err := s.provider.FetchDaySlots(ctx, serviceID, workerID, date)
		if err != nil {
			if ctx.Err() != nil {
				res.Partial = true
				break
			}
			res.DaysExamined++
			res.FailedDays++
			lastErr = err
			if !bookio.IsTemporary(err) {
				permanent = true
			}
			metrics.ScanDayFailures.WithLabelValues("soonest").Inc()
			log.Warn("skipping day, provider call failed",
				zap.String("date", date.Format(datetime.ISOLayout)), zap.Error(err))
			continue
		}
		res.DaysExamined++
		if day.Empty() {
			continue
		}

		res.Found = true
		res.Date = date
		res.DaysFromNow = offset
		res.Slot = day.All[0]
		res.TotalSlots = len(day.All)
		rest := day.All[1:]
		res.Alternatives = append([]models.Slot(nil), rest[:min(len(rest), maxSoonestAlternatives)]...)
		metrics.ScanOutcomes.WithLabelValues("found").Inc()
		return res, nil
	}

	if res.DaysExamined > 0 && res.FailedDays == res.DaysExamined && !res.Partial {
		metrics.ScanOutcomes.WithLabelValues("failed").Inc()
		return res, &ScanError{Days: res.DaysExamined, Permanent: permanent, Last: lastErr}
	}
	if res.Partial {
		metrics.ScanOutcomes.WithLabelValues("partial").Inc()
		log.Warn("soonest scan stopped by deadline", zap.Int("daysExamined", res.DaysExamined))
	} else {
		metrics.ScanOutcomes.WithLabelValues("not_found").Inc()
	}
	return res, nil
}

// Overview collects every slot for the next 'days' days without stopping early.
// Days are fetched concurrently but returned in date order; a failed day has
// no slots and Failed set. A day cut off by ctx is Partial, not a failure.
// Only a window where every day failed is an error.
func (s *Scanner) Overview(ctx context.Context, serviceID, workerID int, start time.Time, days int) ([]models.DayOverview, error) {
	if days <= 0 {
		days = DefaultOverviewDays
	}
	start = datetime.Midnight(start)
	rows := make([]models.DayOverview, days)
	errs := make([]error, days)

	var g errgroup.Group
	g.SetLimit(overviewConcurrency)
	for i := 0; i < days; i++ {
		i := i
		date := start.AddDate(0, 0, i)
		rows[i] = models.DayOverview{Date: date, Offset: i, Slots: []models.Slot{}}
		g.Go(func() error {
			day, err := s.provider.FetchDaySlots(ctx, serviceID, workerID, date)
			if err != nil && ctx.Err() != nil {
				rows[i].Partial = true
				return nil
			}
			if err != nil {
				errs[i] = err
				rows[i].Failed = true
				metrics.ScanDayFailures.WithLabelValues("overview").Inc()
				s.logger.Warn("overview day failed",
					zap.Int("serviceId", serviceID),
					zap.String("date", date.Format(datetime.ISOLayout)),
					zap.Error(err))
				return nil
			}
			if day.All != nil {
				rows[i].Slots = day.All
			}
			return nil
		})
	}
	// day errors live in errs; the group only bounds concurrency
	_ = g.Wait()

	failed, partial, permanent := 0, 0, false
	var last error
	for i, err := range errs {
		if rows[i].Partial {
			partial++
		}
		if err != nil {
			failed++
			last = err
			if !bookio.IsTemporary(err) {
				permanent = true
			}
		}
	}
	switch {
	case failed == days:
		metrics.ScanOutcomes.WithLabelValues("failed").Inc()
		return rows, &ScanError{Days: days, Permanent: permanent, Last: last}
	case partial > 0:
		metrics.ScanOutcomes.WithLabelValues("partial").Inc()
		s.logger.Warn("overview stopped by deadline",
			zap.Int("serviceId", serviceID), zap.Int("daysUnchecked", partial))
	}
	return rows, nil
}
