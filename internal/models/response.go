package models

// Diagnostic records one provider call or outbound expansion that failed or
// was skipped while producing a result.
type Diagnostic struct {
	Provider      string `json:"provider"`
	Stage         string `json:"stage"`
	Kind          string `json:"kind"`
	Message       string `json:"message"`
	OutboundIndex *int   `json:"outbound_index,omitempty"`
}

const (
	StageSearch   = "search"
	StageOutbound = "outbound"
	StagePairing  = "return_pairing"
)

type PriceInsights struct {
	LowestPrice       *float64  `json:"lowest_price"`
	PriceLevel        *string   `json:"price_level"`
	TypicalPriceRange []float64 `json:"typical_price_range,omitempty"`
}

// SearchResult is the outcome of one coordinated search. Options always come
// from exactly one provider, named by DataSource.
type SearchResult struct {
	DataSource    string         `json:"data_source"`
	Options       []FlightOption `json:"flights"`
	Partial       bool           `json:"partial"`
	Diagnostics   []Diagnostic   `json:"diagnostics"`
	BookingURL    string         `json:"booking_url"`
	PriceInsights *PriceInsights `json:"price_insights,omitempty"`
}

type SearchMetadata struct {
	SearchID     string `json:"search_id"`
	DataSource   string `json:"data_source"`
	TotalResults int    `json:"total_results"`
	Partial      bool   `json:"partial"`
	SearchTimeMs int64  `json:"search_time_ms"`
	CacheHit     bool   `json:"cache_hit"`
}

type SearchCriteria struct {
	TripType      TripType       `json:"trip_type"`
	Origin        string         `json:"origin,omitempty"`
	Destination   string         `json:"destination,omitempty"`
	DepartureDate string         `json:"departure_date,omitempty"`
	ReturnDate    *string        `json:"return_date,omitempty"`
	Legs          []Leg          `json:"legs,omitempty"`
	Passengers    Passengers     `json:"passengers"`
	CabinClass    CabinClass     `json:"cabin_class"`
	MaxStops      *int           `json:"max_stops,omitempty"`
	Filters       *SearchFilters `json:"filters,omitempty"`
	SortBy        string         `json:"sort_by"`
	SortOrder     string         `json:"sort_order"`
}

type SearchResponse struct {
	SearchCriteria SearchCriteria `json:"search_criteria"`
	Metadata       SearchMetadata `json:"metadata"`
	Flights        []FlightOption `json:"flights"`
	Diagnostics    []Diagnostic   `json:"diagnostics"`
	BookingURL     string         `json:"booking_url"`
	PriceInsights  *PriceInsights `json:"price_insights,omitempty"`
}

type BookingURLResponse struct {
	URL        string   `json:"url"`
	TripType   TripType `json:"trip_type"`
	Passengers int      `json:"passengers"`
}

// ErrorResponse wraps every API error. Error is an ErrorDetail, or a richer
// value with the same kind and message fields.
type ErrorResponse struct {
	Error any `json:"error"`
}

type ErrorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func NewSearchCriteria(req SearchRequest) SearchCriteria {
	return SearchCriteria{
		TripType:      req.TripType,
		Origin:        req.Origin,
		Destination:   req.Destination,
		DepartureDate: req.DepartureDate,
		ReturnDate:    req.ReturnDate,
		Legs:          req.Legs,
		Passengers:    req.Passengers,
		CabinClass:    req.CabinClass,
		MaxStops:      req.MaxStops,
		Filters:       req.Filters,
		SortBy:        req.SortBy,
		SortOrder:     req.SortOrder,
	}
}
