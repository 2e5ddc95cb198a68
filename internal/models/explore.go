package models

import (
	"fmt"
	"strings"
)

// Call caps for the comparisons that fan out into several searches. Each
// combination costs at least one upstream search.
const (
	MaxDateCombinations    = 30
	MaxAirportCombinations = 12
)

// FareOptions are the passenger and fare settings shared by every search a
// comparison issues.
type FareOptions struct {
	Passengers Passengers `json:"passengers"`
	CabinClass CabinClass `json:"cabin_class,omitempty"`
	MaxStops   *int       `json:"max_stops,omitempty"`
	Currency   string     `json:"currency,omitempty"`
}

// request builds the one-way or round-trip search for a comparison step.
func (o FareOptions) request(origin, destination, departure string, ret *string) SearchRequest {
	return SearchRequest{
		Origin:        origin,
		Destination:   destination,
		DepartureDate: departure,
		ReturnDate:    ret,
		Passengers:    o.Passengers,
		CabinClass:    o.CabinClass,
		MaxStops:      o.MaxStops,
		Currency:      o.Currency,
	}.WithDefaults()
}

// DateRangeRequest sweeps every departure/return pair inside a window.
type DateRangeRequest struct {
	Origin       string `json:"origin"`
	Destination  string `json:"destination"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	MinStayDays  *int   `json:"min_stay_days,omitempty"`
	MaxStayDays  *int   `json:"max_stay_days,omitempty"`
	CheapestOnly bool   `json:"return_cheapest_only,omitempty"`
	FareOptions
}

// DatePair is one departure/return combination of a date range.
type DatePair struct {
	DepartureDate string `json:"departure_date"`
	ReturnDate    string `json:"return_date"`
}

// Pairs lists the combinations whose stay length is within bounds, in
// departure then return order.
func (r DateRangeRequest) Pairs() ([]DatePair, error) {
	start, err := parseDate(r.StartDate, ValidationError("start_date is required"))
	if err != nil {
		return nil, err
	}
	end, err := parseDate(r.EndDate, ValidationError("end_date is required"))
	if err != nil {
		return nil, err
	}
	if start.After(end) {
		return nil, ValidationError("start_date must not be after end_date")
	}
	if (r.MinStayDays != nil && *r.MinStayDays < 0) || (r.MaxStayDays != nil && *r.MaxStayDays < 0) {
		return nil, ValidationError("stay lengths must not be negative")
	}

	var pairs []DatePair
	for dep := start; !dep.After(end); dep = dep.AddDate(0, 0, 1) {
		for ret := dep; !ret.After(end); ret = ret.AddDate(0, 0, 1) {
			stay := int(ret.Sub(dep).Hours() / 24)
			if r.MinStayDays != nil && stay < *r.MinStayDays {
				continue
			}
			if r.MaxStayDays != nil && stay > *r.MaxStayDays {
				continue
			}
			pairs = append(pairs, DatePair{
				DepartureDate: dep.Format(DateLayout),
				ReturnDate:    ret.Format(DateLayout),
			})
		}
	}
	if len(pairs) == 0 {
		return nil, ValidationError("no date pair in the range satisfies the stay limits")
	}
	if len(pairs) > MaxDateCombinations {
		return nil, tooManyCombinations("date", len(pairs), MaxDateCombinations)
	}
	return pairs, nil
}

// Request is the round-trip search for one pair.
func (r DateRangeRequest) Request(p DatePair) SearchRequest {
	ret := p.ReturnDate
	return r.FareOptions.request(r.Origin, r.Destination, p.DepartureDate, &ret)
}

// DatePairResult holds the outcome of one pair. Error is set instead of
// Flights when every provider failed for that pair.
type DatePairResult struct {
	DatePair
	DataSource string         `json:"data_source,omitempty"`
	Flights    []FlightOption `json:"flights"`
	Partial    bool           `json:"partial,omitempty"`
	Error      *ErrorDetail   `json:"error,omitempty"`
}

type DateRangeResponse struct {
	SearchID            string           `json:"search_id"`
	Request             DateRangeRequest `json:"search_parameters"`
	CombinationsChecked int              `json:"combinations_checked"`
	Results             []DatePairResult `json:"date_pairs"`
	Cheapest            *DatePairResult  `json:"cheapest,omitempty"`
}

// NearbyAirportsRequest compares one-way prices across every origin and
// destination combination on a single date.
type NearbyAirportsRequest struct {
	Origins      []string `json:"origins"`
	Destinations []string `json:"destinations"`
	Date         string   `json:"date"`
	FareOptions
}

// Routes lists the origin/destination combinations in request order.
func (r NearbyAirportsRequest) Routes() ([][2]string, error) {
	origins, destinations := upperCodes(r.Origins), upperCodes(r.Destinations)
	if len(origins) == 0 || len(destinations) == 0 {
		return nil, ValidationError("origins and destinations must each name at least one airport")
	}
	if _, err := parseDate(r.Date, ValidationError("date is required")); err != nil {
		return nil, err
	}
	total := len(origins) * len(destinations)
	if total > MaxAirportCombinations {
		return nil, tooManyCombinations("airport", total, MaxAirportCombinations)
	}

	routes := make([][2]string, 0, total)
	for _, o := range origins {
		for _, d := range destinations {
			if o == d {
				continue
			}
			routes = append(routes, [2]string{o, d})
		}
	}
	if len(routes) == 0 {
		return nil, ErrSameOriginDestination
	}
	return routes, nil
}

// Request is the one-way search for one route.
func (r NearbyAirportsRequest) Request(origin, destination string) SearchRequest {
	return r.FareOptions.request(origin, destination, r.Date, nil)
}

// RouteResult is the cheapest option found on one route. Cheapest is nil
// when the route had no priced option or failed.
type RouteResult struct {
	Origin       string        `json:"origin"`
	Destination  string        `json:"destination"`
	DataSource   string        `json:"data_source,omitempty"`
	Cheapest     *FlightOption `json:"cheapest_flight"`
	TotalOptions int           `json:"total_options"`
	Error        *ErrorDetail  `json:"error,omitempty"`
}

type NearbyAirportsResponse struct {
	SearchID            string                `json:"search_id"`
	Request             NearbyAirportsRequest `json:"search_parameters"`
	CombinationsChecked int                   `json:"combinations_checked"`
	PricedRoutes        int                   `json:"priced_routes"`
	Routes              []RouteResult         `json:"routes"`
	BestDeal            *RouteResult          `json:"best_deal,omitempty"`
}

// TicketComparisonRequest prices a round trip against two one-way tickets.
type TicketComparisonRequest struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureDate string `json:"departure_date"`
	ReturnDate    string `json:"return_date"`
	FareOptions
}

func (r TicketComparisonRequest) RoundTrip() SearchRequest {
	ret := r.ReturnDate
	return r.FareOptions.request(r.Origin, r.Destination, r.DepartureDate, &ret)
}

func (r TicketComparisonRequest) Outbound() SearchRequest {
	return r.FareOptions.request(r.Origin, r.Destination, r.DepartureDate, nil)
}

func (r TicketComparisonRequest) Inbound() SearchRequest {
	return r.FareOptions.request(r.Destination, r.Origin, r.ReturnDate, nil)
}

// Recommendation values of a ticket comparison.
const (
	RecommendRoundTrip = "round_trip"
	RecommendOneWays   = "two_one_ways"
	RecommendEither    = "same_price"
	RecommendNone      = "no_flights"
)

// TicketOption is the cheapest priced option of one comparison step.
type TicketOption struct {
	DataSource string        `json:"data_source,omitempty"`
	Flight     *FlightOption `json:"flight"`
	Error      *ErrorDetail  `json:"error,omitempty"`
}

// Price returns the option's amount, or false when it has none.
func (t TicketOption) Price() (float64, bool) {
	if t.Flight == nil || t.Flight.Price == nil {
		return 0, false
	}
	return t.Flight.Price.Amount, true
}

type TicketComparisonResponse struct {
	SearchID       string                  `json:"search_id"`
	Request        TicketComparisonRequest `json:"search_parameters"`
	RoundTrip      TicketOption            `json:"round_trip"`
	Outbound       TicketOption            `json:"outbound_one_way"`
	Inbound        TicketOption            `json:"return_one_way"`
	RoundTripTotal *float64                `json:"round_trip_total"`
	OneWaysTotal   *float64                `json:"two_one_ways_total"`
	Currency       string                  `json:"currency"`
	Recommendation string                  `json:"recommendation"`
	Savings        *float64                `json:"savings"`
}

// TravelDates suggests a departure and return date relative to Today.
type TravelDates struct {
	Today              string `json:"today"`
	DepartureDate      string `json:"departure_date"`
	ReturnDate         string `json:"return_date"`
	TripLengthDays     int    `json:"trip_length_days"`
	DaysUntilDeparture int    `json:"days_until_departure"`
}

func upperCodes(codes []string) []string {
	out := make([]string, 0, len(codes))
	seen := map[string]bool{}
	for _, c := range codes {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func tooManyCombinations(what string, requested, limit int) ValidationError {
	return ValidationError(fmt.Sprintf(
		"too many %s combinations (%d requested, maximum %d allowed); narrow the search",
		what, requested, limit))
}
