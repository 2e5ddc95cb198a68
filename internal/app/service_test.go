package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dharmasatrya/flightfinder/internal/cache"
	"github.com/dharmasatrya/flightfinder/internal/fallback"
	"github.com/dharmasatrya/flightfinder/internal/models"
)

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Search(ctx context.Context, req models.SearchRequest) (*models.SearchResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*models.SearchResult)
	return result, args.Error(1)
}

func (m *mockSearcher) Providers() []fallback.ProviderInfo {
	return m.Called().Get(0).([]fallback.ProviderInfo)
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]*models.SearchResult
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]*models.SearchResult)}
}

func (c *memoryCache) Get(_ context.Context, req models.SearchRequest) (*models.SearchResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[cache.Key(req)]
	return r, ok
}

func (c *memoryCache) Set(_ context.Context, req models.SearchRequest, result *models.SearchResult) error {
	if !cache.Cacheable(result) {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cache.Key(req)] = result
	return nil
}

func (c *memoryCache) Close() error { return nil }

func priced(amount float64) models.FlightOption {
	return models.FlightOption{
		Price:      &models.Price{Amount: amount, Currency: "USD"},
		Segments:   []models.Segment{},
		Airlines:   []string{"United"},
		DataSource: "aggregator",
	}
}

func searchRequest() models.SearchRequest {
	return models.SearchRequest{Origin: "sfo", Destination: "lax", DepartureDate: "2025-12-15"}
}

func TestService_Search(t *testing.T) {
	searcher := &mockSearcher{}
	searcher.On("Search", mock.Anything, mock.MatchedBy(func(req models.SearchRequest) bool {
		return req.Origin == "SFO" && req.TripType == models.TripOneWay
	})).Return(&models.SearchResult{
		DataSource: "aggregator",
		Options:    []models.FlightOption{priced(455), priced(299), priced(412)},
		BookingURL: "https://www.google.com/travel/flights?tfs=abc",
	}, nil).Once()

	svc := NewService(searcher, nil, zaptest.NewLogger(t))
	resp, err := svc.Search(context.Background(), searchRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, resp.Metadata.SearchID)
	assert.Equal(t, "aggregator", resp.Metadata.DataSource)
	assert.Equal(t, 3, resp.Metadata.TotalResults)
	assert.False(t, resp.Metadata.CacheHit)
	assert.Equal(t, "https://www.google.com/travel/flights?tfs=abc", resp.BookingURL)
	assert.NotNil(t, resp.Diagnostics)
	require.Len(t, resp.Flights, 3)
	assert.Equal(t, 299.0, resp.Flights[0].Price.Amount)
	assert.Equal(t, "price", resp.SearchCriteria.SortBy)
	searcher.AssertExpectations(t)
}

func TestService_CheapestOnly(t *testing.T) {
	searcher := &mockSearcher{}
	searcher.On("Search", mock.Anything, mock.Anything).Return(&models.SearchResult{
		DataSource: "scrape",
		Options:    []models.FlightOption{priced(455), priced(299)},
	}, nil)

	req := searchRequest()
	req.CheapestOnly = true
	req.SortOrder = "desc"

	resp, err := NewService(searcher, nil, nil).Search(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, resp.Flights, 1)
	assert.Equal(t, 299.0, resp.Flights[0].Price.Amount)
	assert.Equal(t, 1, resp.Metadata.TotalResults)
}

func TestService_CacheHit(t *testing.T) {
	searcher := &mockSearcher{}
	searcher.On("Search", mock.Anything, mock.Anything).Return(&models.SearchResult{
		DataSource: "aggregator",
		Options:    []models.FlightOption{priced(299)},
	}, nil).Once()

	svc := NewService(searcher, newMemoryCache(), zaptest.NewLogger(t))

	first, err := svc.Search(context.Background(), searchRequest())
	require.NoError(t, err)
	assert.False(t, first.Metadata.CacheHit)

	second, err := svc.Search(context.Background(), searchRequest())
	require.NoError(t, err)
	assert.True(t, second.Metadata.CacheHit)
	assert.Equal(t, first.Flights, second.Flights)
	assert.NotEqual(t, first.Metadata.SearchID, second.Metadata.SearchID)
	searcher.AssertNumberOfCalls(t, "Search", 1)
}

func TestService_PartialResultsNotCached(t *testing.T) {
	searcher := &mockSearcher{}
	searcher.On("Search", mock.Anything, mock.Anything).Return(&models.SearchResult{
		DataSource: "aggregator",
		Options:    []models.FlightOption{priced(299)},
		Partial:    true,
	}, nil).Twice()

	svc := NewService(searcher, newMemoryCache(), zaptest.NewLogger(t))
	for i := 0; i < 2; i++ {
		resp, err := svc.Search(context.Background(), searchRequest())
		require.NoError(t, err)
		assert.True(t, resp.Metadata.Partial)
		assert.False(t, resp.Metadata.CacheHit)
	}
	searcher.AssertExpectations(t)
}

func TestService_Errors(t *testing.T) {
	t.Run("validation", func(t *testing.T) {
		searcher := &mockSearcher{}
		req := searchRequest()
		req.Destination = "SFO"

		_, err := NewService(searcher, nil, nil).Search(context.Background(), req)
		var ve models.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, models.ErrSameOriginDestination, ve)
		searcher.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
	})

	t.Run("all providers failed", func(t *testing.T) {
		searcher := &mockSearcher{}
		searcher.On("Search", mock.Anything, mock.Anything).Return(nil, &fallback.SearchError{
			Kind:           fallback.KindAllProvidersFailed,
			Message:        "all 1 providers failed",
			ProvidersTried: []fallback.Attempt{{Provider: "scrape", Kind: "Timeout", Message: "deadline"}},
		})

		_, err := NewService(searcher, nil, nil).Search(context.Background(), searchRequest())
		var se *fallback.SearchError
		require.True(t, errors.As(err, &se))
		assert.Len(t, se.ProvidersTried, 1)
	})
}

func TestService_BookingURL(t *testing.T) {
	ret := "2025-12-22"
	req := searchRequest()
	req.ReturnDate = &ret
	req.Passengers = models.Passengers{Adults: 2, Children: 1}

	resp, err := NewService(&mockSearcher{}, nil, nil).BookingURL(req)
	require.NoError(t, err)
	assert.Equal(t, models.TripRoundTrip, resp.TripType)
	assert.Equal(t, 3, resp.Passengers)
	assert.Contains(t, resp.URL, "https://www.google.com/travel/flights/search?q=")
	assert.Contains(t, resp.URL, "SFO")

	req.ReturnDate = nil
	req.TripType = models.TripRoundTrip
	_, err = NewService(&mockSearcher{}, nil, nil).BookingURL(req)
	assert.ErrorIs(t, err, models.ErrMissingReturnDate)
}

func TestService_SearchTime(t *testing.T) {
	searcher := &mockSearcher{}
	searcher.On("Search", mock.Anything, mock.Anything).Return(&models.SearchResult{DataSource: "scrape"}, nil)

	svc := NewService(searcher, nil, nil)
	base := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	svc.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls-1) * 250 * time.Millisecond)
	}

	resp, err := svc.Search(context.Background(), searchRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(250), resp.Metadata.SearchTimeMs)
	assert.NotNil(t, resp.Flights)
}
