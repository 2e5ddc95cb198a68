package commands

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dharmasatrya/flightfinder/internal/models"
)

func TestDateRangeCmd(t *testing.T) {
	svc := &mockService{}
	svc.On("SearchDateRange", mock.Anything, mock.MatchedBy(func(req models.DateRangeRequest) bool {
		return req.Origin == "JFK" && req.StartDate == "2025-09-10" && req.EndDate == "2025-09-20" &&
			req.MinStayDays != nil && *req.MinStayDays == 3 && req.MaxStayDays == nil &&
			req.CheapestOnly && req.Passengers.Adults == 2
	})).Return(&models.DateRangeResponse{
		CombinationsChecked: 2,
		Results:             []models.DatePairResult{},
	}, nil)

	out, err := execute(t, svc, "date-range", "--from", "JFK", "--to", "MIA",
		"--start", "2025-09-10", "--end", "2025-09-20", "--min-stay", "3", "--cheapest", "--adults", "2")
	require.NoError(t, err)

	var resp models.DateRangeResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 2, resp.CombinationsChecked)
	svc.AssertExpectations(t)
}

func TestDateRangeCmd_TooManyCombinations(t *testing.T) {
	svc := &mockService{}
	ve := models.ValidationError("too many date combinations (66 requested, maximum 30 allowed); narrow the search")
	svc.On("SearchDateRange", mock.Anything, mock.Anything).Return(nil, ve)

	out, err := execute(t, svc, "date-range", "--from", "JFK", "--to", "MIA", "--start", "2025-09-01", "--end", "2025-09-11")
	require.ErrorIs(t, err, ve)
	assert.Contains(t, out, `"validation_error"`)
	assert.Contains(t, out, "maximum 30")
}

func TestNearbyCmd(t *testing.T) {
	svc := &mockService{}
	svc.On("CompareNearbyAirports", mock.Anything, mock.MatchedBy(func(req models.NearbyAirportsRequest) bool {
		return assert.ObjectsAreEqual([]string{"SFO", "OAK"}, req.Origins) &&
			assert.ObjectsAreEqual([]string{"JFK"}, req.Destinations) &&
			req.Date == "2025-07-20" && req.MaxStops != nil && *req.MaxStops == 0
	})).Return(&models.NearbyAirportsResponse{
		CombinationsChecked: 2,
		Routes:              []models.RouteResult{{Origin: "OAK", Destination: "JFK"}},
	}, nil)

	out, err := execute(t, svc, "nearby", "--from", "SFO,OAK", "--to", "JFK", "--date", "2025-07-20", "--max-stops", "0")
	require.NoError(t, err)
	assert.Contains(t, out, `"combinations_checked": 2`)
	svc.AssertExpectations(t)
}

func TestCompareCmd(t *testing.T) {
	savings := 70.0
	svc := &mockService{}
	svc.On("CompareTickets", mock.Anything, models.TicketComparisonRequest{
		Origin:        "SFO",
		Destination:   "JFK",
		DepartureDate: "2025-07-20",
		ReturnDate:    "2025-07-27",
		FareOptions: models.FareOptions{
			Passengers: models.Passengers{Adults: 1},
			CabinClass: models.CabinEconomy,
			Currency:   "EUR",
		},
	}).Return(&models.TicketComparisonResponse{
		Recommendation: models.RecommendOneWays,
		Savings:        &savings,
	}, nil)

	out, err := execute(t, svc, "compare", "--from", "SFO", "--to", "JFK",
		"--depart", "2025-07-20", "--return", "2025-07-27", "--currency", "EUR", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "recommendation: two_one_ways")
	svc.AssertExpectations(t)
}

func TestDatesCmd(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		daysFromNow int
		tripLength  int
	}{
		{"defaults", nil, 30, 7},
		{"explicit", []string{"--days-from-now", "14", "--trip-length", "10"}, 14, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{}
			svc.On("TravelDates", tt.daysFromNow, tt.tripLength).Return(&models.TravelDates{
				DepartureDate:  "2025-07-20",
				TripLengthDays: tt.tripLength,
			}, nil)

			out, err := execute(t, svc, append([]string{"dates"}, tt.args...)...)
			require.NoError(t, err)
			assert.Contains(t, out, `"departure_date": "2025-07-20"`)
			svc.AssertExpectations(t)
		})
	}
}
