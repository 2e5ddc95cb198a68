package models

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateRangeRequest_Pairs(t *testing.T) {
	days := func(i int) *int { return &i }
	tests := []struct {
		name    string
		req     DateRangeRequest
		want    []DatePair
		wantErr string
	}{
		{
			name: "single day",
			req:  DateRangeRequest{StartDate: "2025-09-10", EndDate: "2025-09-10"},
			want: []DatePair{{"2025-09-10", "2025-09-10"}},
		},
		{
			name: "stay bounds",
			req:  DateRangeRequest{StartDate: "2025-09-10", EndDate: "2025-09-14", MinStayDays: days(2), MaxStayDays: days(3)},
			want: []DatePair{
				{"2025-09-10", "2025-09-12"},
				{"2025-09-10", "2025-09-13"},
				{"2025-09-11", "2025-09-13"},
				{"2025-09-11", "2025-09-14"},
				{"2025-09-12", "2025-09-14"},
			},
		},
		{
			name: "month boundary",
			req:  DateRangeRequest{StartDate: "2025-01-31", EndDate: "2025-02-01", MinStayDays: days(1)},
			want: []DatePair{{"2025-01-31", "2025-02-01"}},
		},
		{
			name:    "start after end",
			req:     DateRangeRequest{StartDate: "2025-09-12", EndDate: "2025-09-10"},
			wantErr: "start_date must not be after end_date",
		},
		{
			name:    "stay longer than window",
			req:     DateRangeRequest{StartDate: "2025-09-10", EndDate: "2025-09-12", MinStayDays: days(5)},
			wantErr: "no date pair",
		},
		{
			name:    "negative stay",
			req:     DateRangeRequest{StartDate: "2025-09-10", EndDate: "2025-09-12", MaxStayDays: days(-1)},
			wantErr: "must not be negative",
		},
		{
			name:    "bad date",
			req:     DateRangeRequest{StartDate: "10/09/2025", EndDate: "2025-09-12"},
			wantErr: ErrInvalidDate.Error(),
		},
		{
			// 7 days with any stay: 28 pairs, 8 days: 36
			name:    "over the cap",
			req:     DateRangeRequest{StartDate: "2025-09-01", EndDate: "2025-09-08"},
			wantErr: "36 requested, maximum 30 allowed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.req.Pairs()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Pairs() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDateRangeRequest_AtCap(t *testing.T) {
	// 7 inclusive days yield 28 pairs; a minimum stay of 0 keeps them all
	pairs, err := DateRangeRequest{StartDate: "2025-09-01", EndDate: "2025-09-07"}.Pairs()
	require.NoError(t, err)
	assert.Len(t, pairs, 28)
	assert.LessOrEqual(t, len(pairs), MaxDateCombinations)
}

func TestDateRangeRequest_Request(t *testing.T) {
	req := DateRangeRequest{Origin: "jfk", Destination: "mia", FareOptions: FareOptions{Currency: "eur"}}
	got := req.Request(DatePair{"2025-09-10", "2025-09-12"})

	assert.Equal(t, TripRoundTrip, got.TripType)
	assert.Equal(t, "JFK", got.Origin)
	require.NotNil(t, got.ReturnDate)
	assert.Equal(t, "2025-09-12", *got.ReturnDate)
	assert.Equal(t, "EUR", got.Currency)
	assert.Equal(t, 1, got.Passengers.Adults)
	assert.NoError(t, got.Validate())
}

func TestNearbyAirportsRequest_Routes(t *testing.T) {
	tests := []struct {
		name    string
		req     NearbyAirportsRequest
		want    [][2]string
		wantErr string
	}{
		{
			name: "all combinations",
			req:  NearbyAirportsRequest{Origins: []string{"sfo", "OAK"}, Destinations: []string{"jfk"}, Date: "2025-07-20"},
			want: [][2]string{{"SFO", "JFK"}, {"OAK", "JFK"}},
		},
		{
			name: "duplicates and same airport dropped",
			req:  NearbyAirportsRequest{Origins: []string{"SFO", " sfo", "JFK"}, Destinations: []string{"JFK", "EWR"}, Date: "2025-07-20"},
			want: [][2]string{{"SFO", "JFK"}, {"SFO", "EWR"}, {"JFK", "EWR"}},
		},
		{
			name:    "only same airport",
			req:     NearbyAirportsRequest{Origins: []string{"SFO"}, Destinations: []string{"sfo"}, Date: "2025-07-20"},
			wantErr: ErrSameOriginDestination.Error(),
		},
		{
			name:    "no destinations",
			req:     NearbyAirportsRequest{Origins: []string{"SFO"}, Date: "2025-07-20"},
			wantErr: "at least one airport",
		},
		{
			name:    "missing date",
			req:     NearbyAirportsRequest{Origins: []string{"SFO"}, Destinations: []string{"JFK"}},
			wantErr: "date is required",
		},
		{
			name: "over the cap",
			req: NearbyAirportsRequest{
				Origins:      []string{"SFO", "OAK", "SJC"},
				Destinations: []string{"JFK", "EWR", "LGA", "HPN", "ISP"},
				Date:         "2025-07-20",
			},
			wantErr: "15 requested, maximum 12 allowed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.req.Routes()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTicketComparisonRequest_Legs(t *testing.T) {
	req := TicketComparisonRequest{Origin: "SFO", Destination: "JFK", DepartureDate: "2025-07-20", ReturnDate: "2025-07-27"}

	rt := req.RoundTrip()
	assert.Equal(t, TripRoundTrip, rt.TripType)

	out := req.Outbound()
	assert.Equal(t, TripOneWay, out.TripType)
	assert.Equal(t, "2025-07-20", out.DepartureDate)
	assert.Nil(t, out.ReturnDate)

	in := req.Inbound()
	assert.Equal(t, "JFK", in.Origin)
	assert.Equal(t, "SFO", in.Destination)
	assert.Equal(t, "2025-07-27", in.DepartureDate)
}
