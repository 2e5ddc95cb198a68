package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharmasatrya/flightfinder/internal/models"
)

func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }
func strPtr(s string) *string     { return &s }

func option(id string, price *float64, stops, duration *int, dep string) models.FlightOption {
	o := models.FlightOption{
		Airlines:             []string{id},
		Stops:                stops,
		TotalDurationMinutes: duration,
	}
	if price != nil {
		o.Price = &models.Price{Amount: *price, Currency: "USD"}
	}
	if dep != "" {
		d, _ := time.Parse(time.RFC3339, dep)
		o.Segments = []models.Segment{{Departure: d, Arrival: d.Add(90 * time.Minute)}}
	}
	return o
}

func ids(options []models.FlightOption) []string {
	out := make([]string, len(options))
	for i, o := range options {
		out[i] = o.Airlines[0]
	}
	return out
}

func fixtures() []models.FlightOption {
	return []models.FlightOption{
		option("A", floatPtr(412), intPtr(1), intPtr(500), "2025-12-15T08:00:00-08:00"),
		option("B", floatPtr(299), intPtr(0), intPtr(95), "2025-12-15T06:15:00-08:00"),
		option("C", nil, nil, nil, ""),
		option("D", floatPtr(455), intPtr(2), intPtr(620), "2025-12-15T21:30:00-08:00"),
	}
}

func TestApply_Filters(t *testing.T) {
	tests := []struct {
		name    string
		filters *models.SearchFilters
		want    []string
	}{
		{
			name: "no filters",
			want: []string{"B", "A", "D", "C"},
		},
		{
			name:    "price range keeps unknown price",
			filters: &models.SearchFilters{PriceMin: floatPtr(300), PriceMax: floatPtr(420)},
			want:    []string{"A", "C"},
		},
		{
			name:    "max stops keeps unknown stops",
			filters: &models.SearchFilters{MaxStops: intPtr(0)},
			want:    []string{"B", "C"},
		},
		{
			name:    "airlines case-insensitive",
			filters: &models.SearchFilters{Airlines: []string{"a", "d"}},
			want:    []string{"A", "D"},
		},
		{
			name:    "departure window",
			filters: &models.SearchFilters{DepartureTimeMin: strPtr("07:00"), DepartureTimeMax: strPtr("12:00")},
			want:    []string{"A", "C"},
		},
		{
			name:    "arrival window",
			filters: &models.SearchFilters{ArrivalTimeMax: strPtr("08:00")},
			want:    []string{"B", "C"},
		},
		{
			name:    "unparseable bound ignored",
			filters: &models.SearchFilters{DepartureTimeMin: strPtr("morning")},
			want:    []string{"B", "A", "D", "C"},
		},
		{
			name:    "max duration",
			filters: &models.SearchFilters{MaxDuration: intPtr(500)},
			want:    []string{"B", "A", "C"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(fixtures(), tt.filters, "price", "asc")
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestApply_Sort(t *testing.T) {
	tests := []struct {
		sortBy    string
		sortOrder string
		want      []string
	}{
		{"price", "asc", []string{"B", "A", "D", "C"}},
		{"price", "desc", []string{"D", "A", "B", "C"}},
		{"duration", "asc", []string{"B", "A", "D", "C"}},
		{"stops", "desc", []string{"D", "A", "B", "C"}},
		{"departure", "asc", []string{"B", "A", "D", "C"}},
		{"arrival", "desc", []string{"D", "A", "B", "C"}},
		{"best_value", "asc", []string{"B", "A", "D", "C"}},
		{"", "", []string{"B", "A", "D", "C"}},
	}

	for _, tt := range tests {
		t.Run(tt.sortBy+"_"+tt.sortOrder, func(t *testing.T) {
			got := Apply(fixtures(), nil, tt.sortBy, tt.sortOrder)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestApply_DoesNotModifyInput(t *testing.T) {
	in := fixtures()
	_ = Apply(in, nil, "price", "desc")
	require.Equal(t, []string{"A", "B", "C", "D"}, ids(in))
}
