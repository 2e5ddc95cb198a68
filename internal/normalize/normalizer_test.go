package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharmasatrya/flightfinder/internal/models"
	"github.com/dharmasatrya/flightfinder/internal/providers"
)

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }

func roundTrip() models.SearchRequest {
	ret := "2025-12-22"
	return models.SearchRequest{
		Origin:        "SFO",
		Destination:   "LAX",
		DepartureDate: "2025-12-15",
		ReturnDate:    &ret,
	}.WithDefaults()
}

func TestNormalize_UnknownFieldsStayUnknown(t *testing.T) {
	rec := providers.Record{
		Segments: []models.Segment{{
			Origin:      models.Airport{Code: "SFO"},
			Destination: models.Airport{Code: "LAX"},
			Departure:   time.Date(2025, 12, 15, 8, 30, 0, 0, time.UTC),
			Arrival:     time.Date(2025, 12, 15, 10, 5, 0, 0, time.UTC),
		}},
	}

	options := New(nil).Normalize("scrape", roundTrip(), []providers.Record{rec})
	require.Len(t, options, 1)
	opt := options[0]

	assert.Nil(t, opt.Price)
	assert.Nil(t, opt.IsBest)
	assert.Nil(t, opt.Stops, "unknown stops must not become 0")
	assert.Nil(t, opt.TotalDurationMinutes)
	assert.Nil(t, opt.CarbonEmissions)
	assert.Equal(t, "scrape", opt.DataSource)
	assert.Equal(t, BookingURL(roundTrip()), opt.BookingURL)
	assert.NotNil(t, opt.Airlines)
	assert.Empty(t, opt.Airlines)

	raw, err := json.Marshal(opt)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))

	_, hasBest := fields["is_best"]
	assert.False(t, hasBest, "is_best is absent, not false")
	for _, key := range []string{"price", "stops", "total_duration_minutes", "carbon_emissions"} {
		v, ok := fields[key]
		assert.True(t, ok, key)
		assert.Nil(t, v, key)
	}

	segment := fields["segments"].([]any)[0].(map[string]any)
	for _, key := range []string{"flight_number", "aircraft", "airline", "duration_minutes"} {
		v, ok := segment[key]
		assert.True(t, ok, key)
		assert.Nil(t, v, key)
	}
}

func TestNormalize_CarriesProviderValues(t *testing.T) {
	best := false
	rec := providers.Record{
		Price: &models.Price{Amount: 412, Currency: "USD"},
		Segments: []models.Segment{
			{Leg: models.LegReturn, Origin: models.Airport{Code: "LAX"}, Destination: models.Airport{Code: "SFO"}, Airline: strp("Alaska")},
			{Leg: models.LegOutbound, Origin: models.Airport{Code: "SFO"}, Destination: models.Airport{Code: "LAX"}, Airline: strp("United")},
		},
		IsBest:               &best,
		TotalDurationMinutes: intp(185),
		Stops:                intp(0),
		Carbon:               &models.CarbonEmissions{ThisFlightGrams: 0},
		BookingURL:           strp("https://example.com/book/1"),
	}

	opt := New(nil).Normalize("aggregator", roundTrip(), []providers.Record{rec})[0]

	want := &models.Price{Amount: 412, Currency: "USD", Formatted: "$412.00"}
	if diff := cmp.Diff(want, opt.Price); diff != "" {
		t.Errorf("price mismatch (-want +got):\n%s", diff)
	}
	require.NotNil(t, opt.IsBest)
	assert.False(t, *opt.IsBest)
	assert.Equal(t, 185, *opt.TotalDurationMinutes)
	assert.Equal(t, 0, *opt.Stops)
	require.NotNil(t, opt.CarbonEmissions)
	assert.Equal(t, 0, opt.CarbonEmissions.ThisFlightGrams)
	assert.Equal(t, "https://example.com/book/1", opt.BookingURL)
	assert.Equal(t, []string{"Alaska", "United"}, opt.Airlines)

	require.Len(t, opt.Segments, 2)
	assert.Equal(t, "SFO", opt.Segments[0].Origin.Code, "outbound precedes return")
	assert.Equal(t, "LAX", opt.Segments[1].Origin.Code)
}

func TestNormalize_DedupesAirlines(t *testing.T) {
	rec := providers.Record{Airlines: []string{"Southwest", "Southwest", "Delta"}}
	opt := New(nil).Normalize("aggregator", roundTrip(), []providers.Record{rec})[0]
	assert.Equal(t, []string{"Southwest", "Delta"}, opt.Airlines)
}

func TestNormalize_Deterministic(t *testing.T) {
	records := []providers.Record{
		{Price: &models.Price{Amount: 1, Currency: "USD"}, Airlines: []string{"A"}},
		{Price: &models.Price{Amount: 2, Currency: "USD"}, Airlines: []string{"B"}},
	}
	n := New(nil)
	first := n.Normalize("scrape", roundTrip(), records)
	second := n.Normalize("scrape", roundTrip(), records)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("normalize is not deterministic:\n%s", diff)
	}
}
