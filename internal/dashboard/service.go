package dashboard

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/showroom-dms/showroom/internal/platform/cache"
)

const summaryCacheKey = "summary"

// RepositoryPort is the storage the dashboard reads.
type RepositoryPort interface {
	Counters(ctx context.Context) (Counters, error)
	RecentSales(ctx context.Context, limit int) ([]RecentSale, error)
}

// Service assembles the dashboard, caching it briefly in Redis.
type Service struct {
	repo  RepositoryPort
	cache *cache.JSONCache
	now   func() time.Time
}

// NewService builds Service. A nil cache loads on every call.
func NewService(repo RepositoryPort, cache *cache.JSONCache) *Service {
	return &Service{repo: repo, cache: cache, now: time.Now}
}

// Summary returns the KPI cards and the latest sales.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	var out Summary
	err := s.cache.Fetch(ctx, summaryCacheKey, &out, func(ctx context.Context) (any, error) {
		return s.load(ctx)
	})
	return out, err
}

func (s *Service) load(ctx context.Context) (Summary, error) {
	var (
		counters Counters
		recent   []RecentSale
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counters, err = s.repo.Counters(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = s.repo.RecentSales(gctx, RecentSalesLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	if recent == nil {
		recent = []RecentSale{}
	}
	return Summary{Counters: counters, RecentSales: recent, GeneratedAt: s.now().UTC()}, nil
}
