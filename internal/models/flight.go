package models

import (
	"encoding/json"
	"time"
)

// Leg indexes used on segments. Multi-city segments use their request leg
// position instead.
const (
	LegOutbound = 0
	LegReturn   = 1
)

type Price struct {
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Formatted string  `json:"formatted,omitempty"`
}

type Airport struct {
	Code string  `json:"code"`
	Name *string `json:"name"`
}

type CarbonEmissions struct {
	ThisFlightGrams      int  `json:"this_flight_grams"`
	TypicalForRouteGrams *int `json:"typical_for_route_grams"`
	DifferencePercent    *int `json:"difference_percent"`
}

// Segment is one flown hop. Providers that only report whole legs yield a
// single segment spanning the leg.
//
// DepartureZone and ArrivalZone hold the IANA zone of each airport. A nil
// zone means the UTC offset is unknown: the time is then local wall-clock at
// the airport and serializes without an offset.
type Segment struct {
	Leg             int       `json:"leg"`
	Origin          Airport   `json:"origin"`
	Destination     Airport   `json:"destination"`
	Departure       time.Time `json:"departure"`
	DepartureZone   *string   `json:"departure_zone"`
	Arrival         time.Time `json:"arrival"`
	ArrivalZone     *string   `json:"arrival_zone"`
	DurationMinutes *int      `json:"duration_minutes"`
	Airline         *string   `json:"airline"`
	FlightNumber    *string   `json:"flight_number"`
	Aircraft        *string   `json:"aircraft"`
}

// LocalTimeLayout is the wire form of a timestamp whose zone is unknown.
const LocalTimeLayout = "2006-01-02T15:04:05"

func (s Segment) MarshalJSON() ([]byte, error) {
	type alias Segment
	return json.Marshal(struct {
		alias
		Departure string `json:"departure"`
		Arrival   string `json:"arrival"`
	}{
		alias:     alias(s),
		Departure: formatStamp(s.Departure, s.DepartureZone),
		Arrival:   formatStamp(s.Arrival, s.ArrivalZone),
	})
}

func (s *Segment) UnmarshalJSON(data []byte) error {
	type alias Segment
	aux := struct {
		*alias
		Departure string `json:"departure"`
		Arrival   string `json:"arrival"`
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if s.Departure, err = parseStamp(aux.Departure, s.DepartureZone); err != nil {
		return err
	}
	s.Arrival, err = parseStamp(aux.Arrival, s.ArrivalZone)
	return err
}

func formatStamp(t time.Time, zone *string) string {
	if zone == nil {
		return t.Format(LocalTimeLayout)
	}
	return t.Format(time.RFC3339)
}

func parseStamp(value string, zone *string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if zone == nil {
		return time.ParseInLocation(LocalTimeLayout, value, time.UTC)
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	if loc, err := time.LoadLocation(*zone); err == nil {
		t = t.In(loc)
	}
	return t, nil
}

// FlightOption is one priced itinerary as offered by a single provider.
// Nil pointers mean the provider did not report the value. IsBest is
// omitted entirely when unknown; every other unknown field serializes as null.
type FlightOption struct {
	Price                *Price           `json:"price"`
	Segments             []Segment        `json:"segments"`
	Airlines             []string         `json:"airlines"`
	IsBest               *bool            `json:"is_best,omitempty"`
	TotalDurationMinutes *int             `json:"total_duration_minutes"`
	Stops                *int             `json:"stops"`
	CarbonEmissions      *CarbonEmissions `json:"carbon_emissions"`
	BookingURL           string           `json:"booking_url"`
	DataSource           string           `json:"data_source"`
}

// FirstDeparture returns the departure time of the first segment.
func (f FlightOption) FirstDeparture() (time.Time, bool) {
	if len(f.Segments) == 0 {
		return time.Time{}, false
	}
	return f.Segments[0].Departure, true
}

// FinalArrival returns the arrival time of the last segment of the first leg,
// which is the arrival at the searched destination.
func (f FlightOption) FinalArrival() (time.Time, bool) {
	var (
		arr   time.Time
		found bool
	)
	for _, s := range f.Segments {
		if s.Leg != f.Segments[0].Leg {
			break
		}
		arr, found = s.Arrival, true
	}
	return arr, found
}
