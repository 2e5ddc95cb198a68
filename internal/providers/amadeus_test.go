package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/oauth2"

	"github.com/dharmasatrya/flightfinder/internal/models"
)

const amadeusRoundTripBody = `{
  "data": [
    {
      "id": "1",
      "itineraries": [
        {
          "duration": "PT1H35M",
          "segments": [
            {
              "departure": {"iataCode": "SFO", "at": "2025-12-15T08:30:00"},
              "arrival": {"iataCode": "LAX", "at": "2025-12-15T10:05:00"},
              "carrierCode": "UA",
              "number": "1234",
              "aircraft": {"code": "738"},
              "duration": "PT1H35M"
            }
          ]
        },
        {
          "duration": "PT1H30M",
          "segments": [
            {
              "departure": {"iataCode": "LAX", "at": "2025-12-22T17:05:00"},
              "arrival": {"iataCode": "SFO", "at": "2025-12-22T18:35:00"},
              "carrierCode": "AS",
              "number": "99",
              "aircraft": {"code": "320"},
              "duration": "PT1H30M"
            }
          ]
        }
      ],
      "price": {"currency": "USD", "total": "398.20", "grandTotal": "412.40"}
    },
    {
      "id": "2",
      "itineraries": [{"duration": "PT1H", "segments": []}],
      "price": {"currency": "USD", "grandTotal": "1.00"}
    }
  ],
  "dictionaries": {
    "carriers": {"UA": "UNITED AIRLINES", "AS": "ALASKA AIRLINES"},
    "aircraft": {"738": "BOEING 737-800"}
  }
}`

func newTestAmadeus(t *testing.T, handler http.HandlerFunc) *AmadeusProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "amadeus-token", TokenType: "Bearer"})
	p, err := NewAmadeusProvider(AmadeusConfig{BaseURL: srv.URL, MaxResults: 10}, ts, zaptest.NewLogger(t))
	require.NoError(t, err)
	return p
}

func TestAmadeusProvider_RoundTrip(t *testing.T) {
	p := newTestAmadeus(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer amadeus-token", r.Header.Get("Authorization"))
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v2/shopping/flight-offers", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "SFO", q.Get("originLocationCode"))
		assert.Equal(t, "2025-12-22", q.Get("returnDate"))
		assert.Equal(t, "ECONOMY", q.Get("travelClass"))
		assert.Equal(t, "10", q.Get("max"))
		_, _ = w.Write([]byte(amadeusRoundTripBody))
	})

	records, err := p.Search(context.Background(), roundTripRequest())
	require.NoError(t, err)
	require.Len(t, records, 1, "offer without segments is skipped")

	rec := records[0]
	require.NotNil(t, rec.Price)
	assert.Equal(t, 412.40, rec.Price.Amount)
	assert.Equal(t, "USD", rec.Price.Currency)
	assert.Nil(t, rec.IsBest)
	assert.Nil(t, rec.Carbon)
	assert.Equal(t, []string{"UNITED AIRLINES", "ALASKA AIRLINES"}, rec.Airlines)
	require.NotNil(t, rec.TotalDurationMinutes)
	assert.Equal(t, 185, *rec.TotalDurationMinutes)
	assert.Equal(t, 0, *rec.Stops)

	require.Len(t, rec.Segments, 2)
	assert.Equal(t, models.LegOutbound, rec.Segments[0].Leg)
	assert.Equal(t, models.LegReturn, rec.Segments[1].Leg)
	assert.Equal(t, "UA1234", *rec.Segments[0].FlightNumber)
	assert.Equal(t, "BOEING 737-800", *rec.Segments[0].Aircraft)
	assert.Equal(t, "320", *rec.Segments[1].Aircraft)
}

func TestAmadeusProvider_MultiCity(t *testing.T) {
	var body amadeusMultiCityRequest
	p := newTestAmadeus(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	req := models.SearchRequest{
		Legs: []models.Leg{
			{Origin: "sfo", Destination: "jfk", Date: "2025-12-15"},
			{Origin: "jfk", Destination: "lhr", Date: "2025-12-20"},
		},
		Passengers: models.Passengers{Adults: 2, InfantsOnLap: 1},
		MaxStops:   intPtr(1),
	}.WithDefaults()

	records, err := p.Search(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, records)

	require.Len(t, body.OriginDestinations, 2)
	assert.Equal(t, "JFK", body.OriginDestinations[1].OriginLocationCode)
	assert.Equal(t, "2025-12-20", body.OriginDestinations[1].DepartureDateTimeRange.Date)
	require.Len(t, body.Travelers, 3)
	assert.Equal(t, "HELD_INFANT", body.Travelers[2].TravelerType)
	assert.Equal(t, "1", body.Travelers[2].AssociatedAdultID)
	require.NotNil(t, body.SearchCriteria.FlightFilters.ConnectionRestriction)
	assert.Equal(t, 1, body.SearchCriteria.FlightFilters.ConnectionRestriction.MaxNumberOfConnections)
	assert.Equal(t, []string{"1", "2"}, body.SearchCriteria.FlightFilters.CabinRestrictions[0].OriginDestinationIDs)
}

func TestAmadeusProvider_RejectsInfantsInSeat(t *testing.T) {
	p := newTestAmadeus(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream must not be called")
	})
	req := oneWayRequest()
	req.Passengers.InfantsInSeat = 1

	_, err := p.Search(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, KindUpstreamRejected, kindOf(err))
}

func TestAmadeusProvider_ErrorReason(t *testing.T) {
	p := newTestAmadeus(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"status":400,"code":477,"title":"INVALID FORMAT","detail":"departureDate is in the past"}]}`))
	})

	_, err := p.Search(context.Background(), oneWayRequest())
	require.Error(t, err)
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "departureDate is in the past", pe.Reason)
	assert.Equal(t, AmadeusName, pe.Provider)
}

const amadeusNoCurrencyBody = `{
  "data": [
    {
      "itineraries": [
        {
          "duration": "PT1H30M",
          "segments": [
            {
              "departure": {"iataCode": "SFO", "at": "2025-12-15T08:30:00"},
              "arrival": {"iataCode": "LAX", "at": "2025-12-15T10:00:00"},
              "carrierCode": "UA",
              "aircraft": {"code": "738"},
              "duration": "PT1H30M"
            }
          ]
        }
      ],
      "price": {"grandTotal": "150.00"}
    }
  ]
}`

func TestAmadeusProvider_ConfiguredCurrency(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "EUR", r.URL.Query().Get("currencyCode"))
		_, _ = w.Write([]byte(amadeusNoCurrencyBody))
	}))
	t.Cleanup(srv.Close)
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "amadeus-token", TokenType: "Bearer"})
	p, err := NewAmadeusProvider(AmadeusConfig{BaseURL: srv.URL, Currency: "EUR"}, ts, zaptest.NewLogger(t))
	require.NoError(t, err)

	req := oneWayRequest()
	req.Currency = ""
	records, err := p.Search(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "EUR", records[0].Price.Currency)
	assert.Nil(t, records[0].Segments[0].FlightNumber, "carrier code alone is not a flight number")
}

func TestFlightNumber(t *testing.T) {
	assert.Equal(t, "UA1234", *flightNumber("UA", "1234"))
	assert.Nil(t, flightNumber("UA", ""))
	assert.Nil(t, flightNumber("", "1234"))
}

func TestParseISODuration(t *testing.T) {
	tests := []struct {
		in   string
		want *int
	}{
		{in: "PT5H30M", want: intPtr(330)},
		{in: "PT45M", want: intPtr(45)},
		{in: "P1DT2H", want: intPtr(1560)},
		{in: "PT", want: nil},
		{in: "5h", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseISODuration(tt.in))
		})
	}
}
