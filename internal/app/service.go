package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dharmasatrya/flightfinder/internal/cache"
	"github.com/dharmasatrya/flightfinder/internal/fallback"
	"github.com/dharmasatrya/flightfinder/internal/filter"
	"github.com/dharmasatrya/flightfinder/internal/models"
	"github.com/dharmasatrya/flightfinder/internal/normalize"
	"github.com/dharmasatrya/flightfinder/internal/ranking"
)

// Searcher is the part of the fallback coordinator the service needs.
type Searcher interface {
	Search(ctx context.Context, req models.SearchRequest) (*models.SearchResult, error)
	Providers() []fallback.ProviderInfo
}

// Service runs searches for the HTTP and CLI surfaces: cache lookup,
// coordinated provider search, then filtering and sorting.
type Service struct {
	searcher Searcher
	cache    cache.Cache
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(searcher Searcher, c cache.Cache, logger *zap.Logger) *Service {
	if c == nil {
		c = cache.NewNoOpCache()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		searcher: searcher,
		cache:    c,
		logger:   logger,
		now:      time.Now,
	}
}

// Search validates req and runs it. Validation failures are
// models.ValidationError values; total provider failure is a
// *fallback.SearchError.
func (s *Service) Search(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error) {
	start := s.now()
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	result, cacheHit, err := s.lookup(ctx, req)
	if err != nil {
		return nil, err
	}

	flights := filter.Apply(result.Options, req.Filters, req.SortBy, req.SortOrder)
	if req.CheapestOnly {
		if cheapest, ok := ranking.Cheapest(flights); ok {
			flights = []models.FlightOption{cheapest}
		}
	}

	diagnostics := result.Diagnostics
	if diagnostics == nil {
		diagnostics = []models.Diagnostic{}
	}

	return &models.SearchResponse{
		SearchCriteria: models.NewSearchCriteria(req),
		Metadata: models.SearchMetadata{
			SearchID:     uuid.NewString(),
			DataSource:   result.DataSource,
			TotalResults: len(flights),
			Partial:      result.Partial,
			SearchTimeMs: s.now().Sub(start).Milliseconds(),
			CacheHit:     cacheHit,
		},
		Flights:       flights,
		Diagnostics:   diagnostics,
		BookingURL:    result.BookingURL,
		PriceInsights: result.PriceInsights,
	}, nil
}

// lookup answers a validated request from the cache, or runs it through the
// coordinator and caches the result.
func (s *Service) lookup(ctx context.Context, req models.SearchRequest) (*models.SearchResult, bool, error) {
	if result, ok := s.cache.Get(ctx, req); ok {
		return result, true, nil
	}
	result, err := s.searcher.Search(ctx, req)
	if err != nil {
		return nil, false, err
	}
	if err := s.cache.Set(ctx, req, result); err != nil {
		s.logger.Warn("caching search result failed", zap.Error(err))
	}
	return result, false, nil
}

// BookingURL validates req and returns its generated search URL without
// contacting any provider.
func (s *Service) BookingURL(req models.SearchRequest) (*models.BookingURLResponse, error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &models.BookingURLResponse{
		URL:        normalize.BookingURL(req),
		TripType:   req.TripType,
		Passengers: req.Passengers.Total(),
	}, nil
}

func (s *Service) Providers() []fallback.ProviderInfo {
	return s.searcher.Providers()
}
