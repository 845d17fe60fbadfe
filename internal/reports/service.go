// Package reports serves summaries and reports over the stored records,
// caching results until the data changes.
package reports

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/dvloznov/finance-dashboard/internal/logger"
	"github.com/dvloznov/finance-dashboard/internal/store"
	"github.com/dvloznov/finance-dashboard/internal/summary"
	"github.com/patrickmn/go-cache"
)

const (
	reportKeyPrefix    = "report:"
	dashboardKeyPrefix = "dashboard:"
	monthsKey          = "months"
)

// Dashboard is the headline view: totals plus trend and expense breakdowns.
type Dashboard struct {
	Month      string           `json:"month"`
	Summary    summary.Summary  `json:"summary"`
	ByDate     []summary.Bucket `json:"byDate"`
	ByCategory []summary.Bucket `json:"byCategory"`
}

// Service computes and caches read models. A result is only cached when no
// invalidation happened while it was being computed.
type Service struct {
	reader store.Reader
	cache  *cache.Cache
	mu     sync.Mutex
	gen    atomic.Uint64
}

// NewService creates a service whose entries live for ttl.
func NewService(reader store.Reader, ttl time.Duration) *Service {
	return &Service{
		reader: reader,
		cache:  cache.New(ttl, 2*ttl),
	}
}

// Dashboard returns the dashboard for month ("" or "all" for everything).
func (s *Service) Dashboard(ctx context.Context, month string) (Dashboard, error) {
	month = normalizeMonth(month)
	key := dashboardKeyPrefix + month
	if v, ok := s.cache.Get(key); ok {
		return v.(Dashboard), nil
	}

	start := s.gen.Load()
	records, err := s.reader.ListRecords(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("Dashboard: listing records: %w", err)
	}
	selected := summary.FilterMonth(records, month)
	d := Dashboard{
		Month:      month,
		Summary:    summary.Summarize(selected),
		ByDate:     summary.ByDate(selected),
		ByCategory: summary.ExpensesByCategory(selected),
	}
	s.put(start, key, d)
	return d, nil
}

// Report returns the full report for month.
func (s *Service) Report(ctx context.Context, month string) (summary.Report, error) {
	month = normalizeMonth(month)
	key := reportKeyPrefix + month
	if v, ok := s.cache.Get(key); ok {
		return v.(summary.Report), nil
	}

	start := s.gen.Load()
	records, err := s.reader.ListRecords(ctx)
	if err != nil {
		return summary.Report{}, fmt.Errorf("Report: listing records: %w", err)
	}
	r := summary.BuildReport(records, month)
	s.put(start, key, r)
	return r, nil
}

// Months returns the months present in the store, newest first.
func (s *Service) Months(ctx context.Context) ([]string, error) {
	if v, ok := s.cache.Get(monthsKey); ok {
		return slices.Clone(v.([]string)), nil
	}

	start := s.gen.Load()
	records, err := s.reader.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("Months: listing records: %w", err)
	}
	months := summary.Months(records)
	s.put(start, monthsKey, slices.Clone(months))
	return months, nil
}

func (s *Service) put(start uint64, key string, v interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen.Load() != start {
		return
	}
	s.cache.Set(key, v, cache.DefaultExpiration)
}

// Invalidate drops every cached entry.
func (s *Service) Invalidate(ctx context.Context) {
	s.mu.Lock()
	s.gen.Add(1)
	n := s.cache.ItemCount()
	s.cache.Flush()
	s.mu.Unlock()
	log := logger.FromContext(ctx)
	log.Debug().Int("entries", n).Msg("Report cache invalidated")
}

// OnIngest adapts Invalidate to the ingest commit hook.
func (s *Service) OnIngest(result domain.IngestResult) {
	if result.InsertedCount > 0 {
		s.Invalidate(context.Background())
	}
}

func normalizeMonth(month string) string {
	if month == "" {
		return "all"
	}
	return month
}
