package models

import (
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

type TripType string

const (
	TripOneWay    TripType = "one-way"
	TripRoundTrip TripType = "round-trip"
	TripMultiCity TripType = "multi-city"
)

type CabinClass string

const (
	CabinEconomy        CabinClass = "economy"
	CabinPremiumEconomy CabinClass = "premium_economy"
	CabinBusiness       CabinClass = "business"
	CabinFirst          CabinClass = "first"
)

func (c CabinClass) Valid() bool {
	switch c {
	case CabinEconomy, CabinPremiumEconomy, CabinBusiness, CabinFirst:
		return true
	}
	return false
}

type SearchFilters struct {
	PriceMin         *float64 `json:"price_min,omitempty"`
	PriceMax         *float64 `json:"price_max,omitempty"`
	MaxStops         *int     `json:"max_stops,omitempty"`
	Airlines         []string `json:"airlines,omitempty"`
	DepartureTimeMin *string  `json:"departure_time_min,omitempty"`
	DepartureTimeMax *string  `json:"departure_time_max,omitempty"`
	ArrivalTimeMin   *string  `json:"arrival_time_min,omitempty"`
	ArrivalTimeMax   *string  `json:"arrival_time_max,omitempty"`
	MaxDuration      *int     `json:"max_duration,omitempty"`
}

type Passengers struct {
	Adults        int `json:"adults"`
	Children      int `json:"children"`
	InfantsInSeat int `json:"infants_in_seat"`
	InfantsOnLap  int `json:"infants_on_lap"`
}

func (p Passengers) Total() int {
	return p.Adults + p.Children + p.InfantsInSeat + p.InfantsOnLap
}

// Leg is one directional hop of an itinerary request.
type Leg struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Date        string `json:"date"`
}

type SearchRequest struct {
	TripType      TripType       `json:"trip_type"`
	Origin        string         `json:"origin"`
	Destination   string         `json:"destination"`
	DepartureDate string         `json:"departure_date"`
	ReturnDate    *string        `json:"return_date,omitempty"`
	Legs          []Leg          `json:"legs,omitempty"`
	Passengers    Passengers     `json:"passengers"`
	CabinClass    CabinClass     `json:"cabin_class"`
	MaxStops      *int           `json:"max_stops,omitempty"`
	Currency      string         `json:"currency,omitempty"`
	Filters       *SearchFilters `json:"filters,omitempty"`
	SortBy        string         `json:"sort_by,omitempty"`
	SortOrder     string         `json:"sort_order,omitempty"`
	CheapestOnly  bool           `json:"return_cheapest_only,omitempty"`
}

// WithDefaults returns a copy of r with empty optional fields filled in.
// Slices and pointers are shared with r and must not be mutated.
func (r SearchRequest) WithDefaults() SearchRequest {
	r.Origin = strings.ToUpper(strings.TrimSpace(r.Origin))
	r.Destination = strings.ToUpper(strings.TrimSpace(r.Destination))
	if r.TripType == "" {
		switch {
		case len(r.Legs) > 0:
			r.TripType = TripMultiCity
		case r.ReturnDate != nil && *r.ReturnDate != "":
			r.TripType = TripRoundTrip
		default:
			r.TripType = TripOneWay
		}
	}
	if len(r.Legs) > 0 {
		legs := make([]Leg, len(r.Legs))
		for i, l := range r.Legs {
			legs[i] = Leg{
				Origin:      strings.ToUpper(strings.TrimSpace(l.Origin)),
				Destination: strings.ToUpper(strings.TrimSpace(l.Destination)),
				Date:        l.Date,
			}
		}
		r.Legs = legs
	}
	if r.Passengers.Total() == 0 {
		r.Passengers.Adults = 1
	}
	if r.CabinClass == "" {
		r.CabinClass = CabinEconomy
	}
	if r.Currency == "" {
		r.Currency = "USD"
	}
	r.Currency = strings.ToUpper(r.Currency)
	if r.SortBy == "" {
		r.SortBy = "price"
	}
	if r.SortOrder == "" {
		r.SortOrder = "asc"
	}
	return r
}

func (r SearchRequest) Validate() error {
	switch r.TripType {
	case TripOneWay, TripRoundTrip:
		if r.Origin == "" {
			return ErrMissingOrigin
		}
		if r.Destination == "" {
			return ErrMissingDestination
		}
		if r.Origin == r.Destination {
			return ErrSameOriginDestination
		}
		dep, err := parseDate(r.DepartureDate, ErrMissingDepartureDate)
		if err != nil {
			return err
		}
		hasReturn := r.ReturnDate != nil && *r.ReturnDate != ""
		if r.TripType == TripOneWay {
			if hasReturn {
				return ErrUnexpectedReturnDate
			}
			break
		}
		if !hasReturn {
			return ErrMissingReturnDate
		}
		ret, err := parseDate(*r.ReturnDate, ErrMissingReturnDate)
		if err != nil {
			return err
		}
		if ret.Before(dep) {
			return ErrReturnBeforeDeparture
		}
	case TripMultiCity:
		if len(r.Legs) < 2 {
			return ErrTooFewLegs
		}
		if r.ReturnDate != nil && *r.ReturnDate != "" {
			return ErrUnexpectedReturnDate
		}
		var prev time.Time
		for i, l := range r.Legs {
			if l.Origin == "" || l.Destination == "" {
				return ErrIncompleteLeg
			}
			d, err := parseDate(l.Date, ErrIncompleteLeg)
			if err != nil {
				return err
			}
			if i > 0 && d.Before(prev) {
				return ErrLegsOutOfOrder
			}
			prev = d
		}
	default:
		return ErrInvalidTripType
	}

	p := r.Passengers
	if p.Adults < 0 || p.Children < 0 || p.InfantsInSeat < 0 || p.InfantsOnLap < 0 {
		return ErrNegativePassengers
	}
	if p.Total() == 0 {
		return ErrNoPassengers
	}
	if p.InfantsOnLap > p.Adults {
		return ErrTooManyLapInfants
	}
	if !r.CabinClass.Valid() {
		return ErrInvalidCabinClass
	}
	if r.MaxStops != nil && *r.MaxStops < 0 {
		return ErrInvalidMaxStops
	}
	return nil
}

// Itinerary returns the ordered legs the request asks for. Round trips
// yield the outbound leg followed by the mirrored return leg.
func (r SearchRequest) Itinerary() []Leg {
	switch r.TripType {
	case TripMultiCity:
		return r.Legs
	case TripRoundTrip:
		ret := ""
		if r.ReturnDate != nil {
			ret = *r.ReturnDate
		}
		return []Leg{
			{Origin: r.Origin, Destination: r.Destination, Date: r.DepartureDate},
			{Origin: r.Destination, Destination: r.Origin, Date: ret},
		}
	default:
		return []Leg{{Origin: r.Origin, Destination: r.Destination, Date: r.DepartureDate}}
	}
}

func parseDate(s string, missing ValidationError) (time.Time, error) {
	if s == "" {
		return time.Time{}, missing
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

type ValidationError string

func (e ValidationError) Error() string {
	return string(e)
}

const (
	ErrMissingOrigin         ValidationError = "origin is required"
	ErrMissingDestination    ValidationError = "destination is required"
	ErrSameOriginDestination ValidationError = "origin and destination must differ"
	ErrMissingDepartureDate  ValidationError = "departure_date is required"
	ErrMissingReturnDate     ValidationError = "return_date is required for round-trip searches"
	ErrUnexpectedReturnDate  ValidationError = "return_date is only allowed for round-trip searches"
	ErrReturnBeforeDeparture ValidationError = "return_date must not be before departure_date"
	ErrInvalidDate           ValidationError = "dates must use the YYYY-MM-DD format"
	ErrTooFewLegs            ValidationError = "multi-city searches require at least 2 legs"
	ErrIncompleteLeg         ValidationError = "every leg needs origin, destination and date"
	ErrLegsOutOfOrder        ValidationError = "multi-city legs must be in chronological order"
	ErrInvalidTripType       ValidationError = "trip_type must be one-way, round-trip or multi-city"
	ErrNegativePassengers    ValidationError = "passenger counts must not be negative"
	ErrNoPassengers          ValidationError = "at least one passenger is required"
	ErrTooManyLapInfants     ValidationError = "each infant on lap needs an accompanying adult"
	ErrInvalidCabinClass     ValidationError = "cabin_class must be economy, premium_economy, business or first"
	ErrInvalidMaxStops       ValidationError = "max_stops must not be negative"
)
