package reports

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockReader counts list calls.
type mockReader struct {
	records []domain.TransactionRecord
	err     error
	calls   int
}

func (m *mockReader) ListBatches(ctx context.Context) ([]domain.Batch, error) { return nil, m.err }

func (m *mockReader) ListRecords(ctx context.Context) ([]domain.TransactionRecord, error) {
	m.calls++
	return m.records, m.err
}

// gatedReader blocks its first ListRecords call until released.
type gatedReader struct {
	mu      sync.Mutex
	records []domain.TransactionRecord
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedReader) ListBatches(ctx context.Context) ([]domain.Batch, error) { return nil, nil }

func (g *gatedReader) ListRecords(ctx context.Context) ([]domain.TransactionRecord, error) {
	g.mu.Lock()
	snapshot := g.records
	g.mu.Unlock()

	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return snapshot, nil
}

func (g *gatedReader) set(records []domain.TransactionRecord) {
	g.mu.Lock()
	g.records = records
	g.mu.Unlock()
}

func records() []domain.TransactionRecord {
	return []domain.TransactionRecord{
		{Date: "01/03/2025", Description: "Vendas", Category: "Income", Amount: decimal.NewFromInt(500)},
		{Date: "02/03/2025", Description: "Mercado", Category: "Food", Amount: decimal.NewFromInt(-100)},
		{Date: "02/02/2025", Description: "Netflix", Category: "Leisure", Amount: decimal.NewFromInt(-40)},
	}
}

func TestService_DashboardIsCached(t *testing.T) {
	r := &mockReader{records: records()}
	s := NewService(r, time.Minute)
	ctx := context.Background()

	d, err := s.Dashboard(ctx, "03/2025")
	require.NoError(t, err)
	assert.Equal(t, 2, d.Summary.TransactionCount)
	assert.Len(t, d.ByDate, 2)
	require.Len(t, d.ByCategory, 1)
	assert.Equal(t, "Food", d.ByCategory[0].Label)

	_, err = s.Dashboard(ctx, "03/2025")
	require.NoError(t, err)
	assert.Equal(t, 1, r.calls)

	all, err := s.Dashboard(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "all", all.Month)
	assert.Equal(t, 3, all.Summary.TransactionCount)
	assert.Equal(t, 2, r.calls)
}

func TestService_InvalidateOnIngest(t *testing.T) {
	r := &mockReader{records: records()}
	s := NewService(r, time.Minute)
	ctx := context.Background()

	months, err := s.Months(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"03/2025", "02/2025"}, months)

	// nothing inserted, cache kept
	s.OnIngest(domain.IngestResult{})
	_, err = s.Months(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, r.calls)

	r.records = append(r.records, domain.TransactionRecord{Date: "01/04/2025", Amount: decimal.NewFromInt(1)})
	s.OnIngest(domain.IngestResult{InsertedCount: 1})

	months, err = s.Months(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"04/2025", "03/2025", "02/2025"}, months)
	assert.Equal(t, 2, r.calls)
}

func TestService_Report(t *testing.T) {
	s := NewService(&mockReader{records: records()}, time.Minute)

	rep, err := s.Report(context.Background(), "03/2025")
	require.NoError(t, err)
	assert.True(t, rep.SavingsRate.Equal(decimal.NewFromInt(80)), rep.SavingsRate.String())
}

func TestService_ErrorsAreNotCached(t *testing.T) {
	r := &mockReader{err: errors.New("down")}
	s := NewService(r, time.Minute)

	_, err := s.Report(context.Background(), "")
	require.Error(t, err)

	r.err = nil
	r.records = records()
	rep, err := s.Report(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Summary.TransactionCount)
}

func TestService_InvalidateDuringComputeDiscardsStaleResult(t *testing.T) {
	g := &gatedReader{
		records: records(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := NewService(g, time.Minute)
	ctx := context.Background()

	done := make(chan Dashboard)
	go func() {
		d, err := s.Dashboard(ctx, "")
		assert.NoError(t, err)
		done <- d
	}()

	<-g.entered
	g.set(append(records(), domain.TransactionRecord{Date: "05/03/2025", Amount: decimal.NewFromInt(-5)}))
	s.OnIngest(domain.IngestResult{InsertedCount: 1})
	close(g.release)

	stale := <-done
	assert.Equal(t, 3, stale.Summary.TransactionCount)

	fresh, err := s.Dashboard(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 4, fresh.Summary.TransactionCount)
}

func TestService_MonthsReturnsCopy(t *testing.T) {
	s := NewService(&mockReader{records: records()}, time.Minute)
	ctx := context.Background()

	months, err := s.Months(ctx)
	require.NoError(t, err)
	months[0] = "garbage"

	cached, err := s.Months(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"03/2025", "02/2025"}, cached)

	cached[1] = "garbage"
	again, err := s.Months(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"03/2025", "02/2025"}, again)
}
