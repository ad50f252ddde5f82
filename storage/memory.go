package storage

import (
	"context"
	"slices"
	"sync"

	"credit-circuit/model"
)

// MemoryStore keeps reports in process memory. It is used when no database
// is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]map[int]model.BankReport
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: make(map[string]map[int]model.BankReport)}
}

func (s *MemoryStore) SaveReport(ctx context.Context, r model.BankReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(r)
	return nil
}

func (s *MemoryStore) SaveReports(ctx context.Context, reports []model.BankReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range reports {
		s.put(r)
	}
	return nil
}

func (s *MemoryStore) put(r model.BankReport) {
	byPeriod, ok := s.reports[r.Bank]
	if !ok {
		byPeriod = make(map[int]model.BankReport)
		s.reports[r.Bank] = byPeriod
	}
	byPeriod[r.Period] = r
}

func (s *MemoryStore) GetReport(ctx context.Context, bank string, period int) (*model.BankReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[bank][period]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (s *MemoryStore) LatestReport(ctx context.Context, bank string) (*model.BankReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byPeriod := s.reports[bank]
	if len(byPeriod) == 0 {
		return nil, ErrNotFound
	}
	latest := slices.Max(periods(byPeriod))
	r := byPeriod[latest]
	return &r, nil
}

func (s *MemoryStore) ListReports(ctx context.Context, bank string) ([]model.BankReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byPeriod := s.reports[bank]
	keys := periods(byPeriod)
	slices.Sort(keys)
	out := make([]model.BankReport, 0, len(keys))
	for _, p := range keys {
		out = append(out, byPeriod[p])
	}
	return out, nil
}

func (s *MemoryStore) Banks(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.reports))
	for bank := range s.reports {
		out = append(out, bank)
	}
	slices.Sort(out)
	return out, nil
}

func periods(byPeriod map[int]model.BankReport) []int {
	out := make([]int, 0, len(byPeriod))
	for p := range byPeriod {
		out = append(out, p)
	}
	return out
}
