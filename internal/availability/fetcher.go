// Package availability fetches weekly availability from the booking backend
// and hands the schedule package the windows it derives slots from.
//
// Fetches are keyed per (company, staff selection, week): a date change inside
// an already-fetched week is served from cache, a staff change always forces a
// fresh fetch. Only the most recent week is cached. A result that resolves
// after the governing selection has moved on is discarded rather than cached
// (last-writer-wins).
package availability

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/salonkit/bookflow/internal/catalog"
	"github.com/salonkit/bookflow/internal/salonapi"
	"github.com/salonkit/bookflow/internal/schedule"
	"github.com/salonkit/bookflow/pkg/logging"
)

// ErrSuperseded marks a fetch whose staff selection changed while the request
// was in flight. Its result has been discarded; the caller should simply act
// on the newer selection.
var ErrSuperseded = errors.New("availability: fetch superseded by newer selection")

// WeeklyClient is the part of the backend client the fetcher needs.
type WeeklyClient interface {
	GetWeeklyAvailability(ctx context.Context, companyID string, staff catalog.StaffSelection, dateFrom time.Time) ([]salonapi.AvailabilityWindow, error)
}

type fetchKey struct {
	companyID string
	staff     string
	weekStart string
}

// Fetcher retrieves and caches one week of availability windows.
type Fetcher struct {
	client WeeklyClient
	logger *logging.Logger

	mu          sync.Mutex
	generations map[string]uint64
	cachedKey   fetchKey
	cached      []schedule.Window
	hasCached   bool
}

// NewFetcher creates an availability fetcher.
func NewFetcher(client WeeklyClient, logger *logging.Logger) *Fetcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Fetcher{
		client:      client,
		logger:      logger.Component("availability"),
		generations: make(map[string]uint64),
	}
}

// Windows returns the availability windows covering date's week for the given
// staff selection, fetching from the backend when the cache does not cover it.
func (f *Fetcher) Windows(ctx context.Context, companyID string, staff catalog.StaffSelection, date time.Time) ([]schedule.Window, error) {
	weekStart := schedule.WeekStart(date)
	key := fetchKey{
		companyID: companyID,
		staff:     staff.CacheKey(),
		weekStart: weekStart.Format(schedule.DateLayout),
	}

	f.mu.Lock()
	if f.hasCached && f.cachedKey == key {
		windows := f.cached
		f.mu.Unlock()
		return windows, nil
	}
	gen := f.generations[genKey(companyID, key.staff)]
	f.mu.Unlock()

	raw, err := f.client.GetWeeklyAvailability(ctx, companyID, staff, weekStart)
	if err != nil {
		f.logger.Warn("weekly availability fetch failed",
			"company_id", companyID,
			"staff", key.staff,
			"week_start", key.weekStart,
			"error", err,
		)
		return nil, err
	}

	windows := make([]schedule.Window, 0, len(raw))
	for _, w := range raw {
		windows = append(windows, schedule.Window{
			Date:      w.Date,
			Start:     w.StartTime,
			End:       w.EndTime,
			Available: w.IsAvailable,
		})
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.generations[genKey(companyID, key.staff)] != gen {
		// This request's own selection changed while it was in flight.
		return nil, ErrSuperseded
	}
	f.cachedKey = key
	f.cached = windows
	f.hasCached = true

	f.logger.Debug("weekly availability cached",
		"company_id", companyID,
		"staff", key.staff,
		"week_start", key.weekStart,
		"windows", len(windows),
	)
	return windows, nil
}

// Invalidate drops the cached week for one (company, staff) selection and
// marks its in-flight fetches stale. Called with the selection being replaced
// when a flow changes professional; fetches governed by other selections are
// unaffected.
func (f *Fetcher) Invalidate(companyID string, staff catalog.StaffSelection) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generations[genKey(companyID, staff.CacheKey())]++
	if f.hasCached && f.cachedKey.companyID == companyID && f.cachedKey.staff == staff.CacheKey() {
		f.hasCached = false
		f.cached = nil
	}
}

func genKey(companyID, staffKey string) string {
	return companyID + "|" + staffKey
}
