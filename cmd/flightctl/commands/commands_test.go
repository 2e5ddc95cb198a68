package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dharmasatrya/flightfinder/internal/fallback"
	"github.com/dharmasatrya/flightfinder/internal/models"
	"github.com/dharmasatrya/flightfinder/internal/providers"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) Search(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*models.SearchResponse)
	return resp, args.Error(1)
}

func (m *mockService) BookingURL(req models.SearchRequest) (*models.BookingURLResponse, error) {
	args := m.Called(req)
	resp, _ := args.Get(0).(*models.BookingURLResponse)
	return resp, args.Error(1)
}

func (m *mockService) Providers() []fallback.ProviderInfo {
	return m.Called().Get(0).([]fallback.ProviderInfo)
}

func (m *mockService) SearchDateRange(ctx context.Context, req models.DateRangeRequest) (*models.DateRangeResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*models.DateRangeResponse)
	return resp, args.Error(1)
}

func (m *mockService) CompareNearbyAirports(ctx context.Context, req models.NearbyAirportsRequest) (*models.NearbyAirportsResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*models.NearbyAirportsResponse)
	return resp, args.Error(1)
}

func (m *mockService) CompareTickets(ctx context.Context, req models.TicketComparisonRequest) (*models.TicketComparisonResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*models.TicketComparisonResponse)
	return resp, args.Error(1)
}

func (m *mockService) TravelDates(daysFromNow, tripLength int) (*models.TravelDates, error) {
	args := m.Called(daysFromNow, tripLength)
	resp, _ := args.Get(0).(*models.TravelDates)
	return resp, args.Error(1)
}

func execute(t *testing.T, svc Service, args ...string) (string, error) {
	t.Helper()
	closed := false
	open := func(context.Context, *GlobalOptions) (Service, func() error, error) {
		return svc, func() error { closed = true; return nil }, nil
	}

	root := NewRootCmd(open)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	if err == nil {
		assert.True(t, closed, "service must be released")
	}
	return out.String(), err
}

func TestSearchCmd_RoundTrip(t *testing.T) {
	svc := &mockService{}
	svc.On("Search", mock.Anything, mock.MatchedBy(func(req models.SearchRequest) bool {
		return req.Origin == "SFO" && req.Destination == "LAX" &&
			req.ReturnDate != nil && *req.ReturnDate == "2025-12-22" &&
			req.Passengers.Adults == 2 && req.MaxStops == nil &&
			req.SortBy == "duration" && req.CheapestOnly
	})).Return(&models.SearchResponse{
		Metadata: models.SearchMetadata{DataSource: "aggregator", TotalResults: 1},
		Flights:  []models.FlightOption{{DataSource: "aggregator", Airlines: []string{"United"}}},
	}, nil)

	out, err := execute(t, svc, "search",
		"--from", "SFO", "--to", "LAX", "--depart", "2025-12-15", "--return", "2025-12-22",
		"--adults", "2", "--sort-by", "duration", "--cheapest")
	require.NoError(t, err)

	var resp models.SearchResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "aggregator", resp.Metadata.DataSource)
	svc.AssertExpectations(t)
}

func TestSearchCmd_MultiCityYAML(t *testing.T) {
	svc := &mockService{}
	svc.On("Search", mock.Anything, mock.MatchedBy(func(req models.SearchRequest) bool {
		return len(req.Legs) == 2 && req.Legs[0].Origin == "SFO" && req.MaxStops != nil && *req.MaxStops == 0
	})).Return(&models.SearchResponse{
		Metadata: models.SearchMetadata{DataSource: "amadeus"},
		Flights:  []models.FlightOption{},
	}, nil)

	out, err := execute(t, svc, "search",
		"--leg", "SFO,JFK,2025-12-15", "--leg", "JFK,LHR,2025-12-20", "--max-stops", "0", "-o", "yaml")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	meta, ok := doc["metadata"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "amadeus", meta["data_source"])
}

func TestSearchCmd_AllProvidersFailed(t *testing.T) {
	svc := &mockService{}
	se := &fallback.SearchError{
		Kind:           fallback.KindAllProvidersFailed,
		Message:        "all 1 providers failed",
		ProvidersTried: []fallback.Attempt{{Provider: "scrape", Kind: "Timeout", Message: "deadline"}},
	}
	svc.On("Search", mock.Anything, mock.Anything).Return(nil, se)

	out, err := execute(t, svc, "search", "--from", "SFO", "--to", "LAX", "--depart", "2025-12-15")
	require.ErrorIs(t, err, se)
	assert.Contains(t, out, `"providers_tried"`)
	assert.Contains(t, out, `"scrape"`)
}

func TestSearchCmd_BadLeg(t *testing.T) {
	_, err := execute(t, &mockService{}, "search", "--leg", "SFO-JFK")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ORIGIN,DESTINATION,DATE")
}

func TestURLCmd(t *testing.T) {
	svc := &mockService{}
	svc.On("BookingURL", mock.MatchedBy(func(req models.SearchRequest) bool {
		return req.Origin == "SFO" && req.CabinClass == models.CabinBusiness
	})).Return(&models.BookingURLResponse{
		URL:        "https://www.google.com/travel/flights/search?q=flights+from+SFO",
		TripType:   models.TripOneWay,
		Passengers: 1,
	}, nil)

	out, err := execute(t, svc, "url", "--from", "SFO", "--to", "LAX", "--depart", "2025-12-15", "--cabin", "business")
	require.NoError(t, err)
	assert.Contains(t, out, "flights+from+SFO")
}

func TestProvidersCmd(t *testing.T) {
	svc := &mockService{}
	svc.On("Providers").Return([]fallback.ProviderInfo{
		{Name: "aggregator", Capabilities: providers.Capabilities{OneWay: true, TokenPagination: true}},
	})

	out, err := execute(t, svc, "providers")
	require.NoError(t, err)
	assert.Contains(t, out, `"token_pagination": true`)
}

func TestRootCmd_RejectsUnknownOutput(t *testing.T) {
	_, err := execute(t, &mockService{}, "providers", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
}
