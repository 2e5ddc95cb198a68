package providers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/dharmasatrya/flightfinder/internal/models"
	"github.com/dharmasatrya/flightfinder/internal/timezone"
)

const AggregatorName = "aggregator"

type aggregatorResponse struct {
	SearchMetadata struct {
		Status           string `json:"status"`
		GoogleFlightsURL string `json:"google_flights_url"`
	} `json:"search_metadata"`
	BestFlights   []aggregatorOption      `json:"best_flights"`
	OtherFlights  []aggregatorOption      `json:"other_flights"`
	PriceInsights *aggregatorPriceInsight `json:"price_insights"`
	Error         string                  `json:"error"`
}

type aggregatorOption struct {
	Flights         []aggregatorFlight `json:"flights"`
	TotalDuration   *int               `json:"total_duration"`
	CarbonEmissions *struct {
		ThisFlight          *int `json:"this_flight"`
		TypicalForThisRoute *int `json:"typical_for_this_route"`
		DifferencePercent   *int `json:"difference_percent"`
	} `json:"carbon_emissions"`
	Price          *float64 `json:"price"`
	DepartureToken string   `json:"departure_token"`
	BookingToken   string   `json:"booking_token"`
}

type aggregatorFlight struct {
	DepartureAirport aggregatorAirport `json:"departure_airport"`
	ArrivalAirport   aggregatorAirport `json:"arrival_airport"`
	Duration         *int              `json:"duration"`
	Airplane         string            `json:"airplane"`
	Airline          string            `json:"airline"`
	FlightNumber     string            `json:"flight_number"`
}

type aggregatorAirport struct {
	Name string `json:"name"`
	ID   string `json:"id"`
	Time string `json:"time"`
}

type aggregatorPriceInsight struct {
	LowestPrice       *float64  `json:"lowest_price"`
	PriceLevel        *string   `json:"price_level"`
	TypicalPriceRange []float64 `json:"typical_price_range"`
}

type AggregatorConfig struct {
	BaseURL  string
	APIKey   string
	Currency string
}

// AggregatorProvider speaks the google_flights engine format of a REST
// search aggregator. Round trips use departure-token pagination.
type AggregatorProvider struct {
	cfg    AggregatorConfig
	caller httpCaller
}

// NewAggregatorProvider builds the adapter. A nil client gets one that sends
// cfg.APIKey as a static bearer token.
func NewAggregatorProvider(cfg AggregatorConfig, client *http.Client, logger *zap.Logger) (*AggregatorProvider, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("aggregator: base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, errors.Wrap(err, "aggregator: invalid base URL")
	}
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	if client == nil {
		if cfg.APIKey == "" {
			return nil, errors.New("aggregator: api key is required")
		}
		client = NewHTTPClient(oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.APIKey,
			TokenType:   "Bearer",
		}))
	}
	return &AggregatorProvider{
		cfg: cfg,
		caller: newHTTPCaller(AggregatorName, client, logger),
	}, nil
}

func (p *AggregatorProvider) Name() string {
	return AggregatorName
}

func (p *AggregatorProvider) Capabilities() Capabilities {
	return Capabilities{
		OneWay:          true,
		TokenPagination: true,
	}
}

func (p *AggregatorProvider) Search(ctx context.Context, req models.SearchRequest) ([]Record, error) {
	if req.TripType != models.TripOneWay {
		return nil, NewProviderError(p.Name(), KindUpstreamRejected, ErrUnsupportedTrip)
	}
	q := p.baseQuery(req)
	q.Set("type", "2")
	return p.fetch(ctx, q, models.LegOutbound, true)
}

func (p *AggregatorProvider) SearchOutbound(ctx context.Context, req models.SearchRequest) ([]Record, error) {
	if req.TripType != models.TripRoundTrip || req.ReturnDate == nil {
		return nil, NewProviderError(p.Name(), KindUpstreamRejected, ErrUnsupportedTrip)
	}
	q := p.baseQuery(req)
	q.Set("type", "1")
	q.Set("return_date", *req.ReturnDate)
	return p.fetch(ctx, q, models.LegOutbound, true)
}

func (p *AggregatorProvider) SearchReturn(ctx context.Context, req models.SearchRequest, token string) ([]Record, error) {
	if token == "" {
		return nil, Rejected(p.Name(), "empty departure token")
	}
	if req.TripType != models.TripRoundTrip || req.ReturnDate == nil {
		return nil, NewProviderError(p.Name(), KindUpstreamRejected, ErrUnsupportedTrip)
	}
	q := p.baseQuery(req)
	q.Set("type", "1")
	q.Set("return_date", *req.ReturnDate)
	q.Set("departure_token", token)
	return p.fetch(ctx, q, models.LegReturn, false)
}

func (p *AggregatorProvider) baseQuery(req models.SearchRequest) url.Values {
	q := url.Values{}
	q.Set("engine", "google_flights")
	q.Set("departure_id", req.Origin)
	q.Set("arrival_id", req.Destination)
	q.Set("outbound_date", req.DepartureDate)
	q.Set("currency", p.currency(req))
	q.Set("adults", strconv.Itoa(req.Passengers.Adults))
	if req.Passengers.Children > 0 {
		q.Set("children", strconv.Itoa(req.Passengers.Children))
	}
	if req.Passengers.InfantsInSeat > 0 {
		q.Set("infants_in_seat", strconv.Itoa(req.Passengers.InfantsInSeat))
	}
	if req.Passengers.InfantsOnLap > 0 {
		q.Set("infants_on_lap", strconv.Itoa(req.Passengers.InfantsOnLap))
	}
	q.Set("travel_class", travelClass(req.CabinClass))
	if req.MaxStops != nil && *req.MaxStops <= 2 {
		// 1 = nonstop, 2 = one stop or fewer, 3 = two stops or fewer
		q.Set("stops", strconv.Itoa(*req.MaxStops+1))
	}
	return q
}

// currency is the request's currency, or the configured one when the request
// names none.
func (p *AggregatorProvider) currency(req models.SearchRequest) string {
	if req.Currency != "" {
		return strings.ToUpper(req.Currency)
	}
	return p.cfg.Currency
}

func travelClass(c models.CabinClass) string {
	switch c {
	case models.CabinPremiumEconomy:
		return "2"
	case models.CabinBusiness:
		return "3"
	case models.CabinFirst:
		return "4"
	default:
		return "1"
	}
}

func (p *AggregatorProvider) fetch(ctx context.Context, q url.Values, leg int, reportExtras bool) ([]Record, error) {
	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/search.json?" + q.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "aggregator: building request")
	}
	httpReq.Header.Set("Accept", "application/json")

	var resp aggregatorResponse
	if err := p.caller.do(httpReq, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		if isNoResults(resp.Error) {
			return []Record{}, nil
		}
		return nil, Rejected(p.Name(), resp.Error)
	}

	if reportExtras {
		extras := Extras{BookingURL: strPtr(resp.SearchMetadata.GoogleFlightsURL)}
		if pi := resp.PriceInsights; pi != nil {
			extras.PriceInsights = &models.PriceInsights{
				LowestPrice:       pi.LowestPrice,
				PriceLevel:        pi.PriceLevel,
				TypicalPriceRange: pi.TypicalPriceRange,
			}
		}
		ReportExtras(ctx, extras)
	}

	records := make([]Record, 0, len(resp.BestFlights)+len(resp.OtherFlights))
	for _, group := range []struct {
		options []aggregatorOption
		best    bool
	}{{resp.BestFlights, true}, {resp.OtherFlights, false}} {
		for i, opt := range group.options {
			rec, err := p.convert(opt, leg, group.best, q.Get("currency"))
			if err != nil {
				p.caller.logger.Warn("skipping unparseable aggregator option",
					zap.Bool("best", group.best), zap.Int("index", i), zap.Error(err))
				continue
			}
			records = append(records, rec)
		}
	}
	if len(records) == 0 && len(resp.BestFlights)+len(resp.OtherFlights) > 0 {
		return nil, NewProviderError(p.Name(), KindMalformedResponse,
			errors.New("no option could be parsed"))
	}
	return records, nil
}

func (p *AggregatorProvider) convert(opt aggregatorOption, leg int, best bool, currency string) (Record, error) {
	if len(opt.Flights) == 0 {
		return Record{}, errors.New("option has no flights")
	}
	segments := make([]models.Segment, 0, len(opt.Flights))
	var airlines []string
	for i, f := range opt.Flights {
		dep, err := timezone.ParseLocal(f.DepartureAirport.Time, f.DepartureAirport.ID)
		if err != nil {
			return Record{}, errors.Wrapf(err, "flight %d departure", i)
		}
		arr, err := timezone.ParseLocal(f.ArrivalAirport.Time, f.ArrivalAirport.ID)
		if err != nil {
			return Record{}, errors.Wrapf(err, "flight %d arrival", i)
		}
		segments = append(segments, models.Segment{
			Leg:             leg,
			Origin:          models.Airport{Code: f.DepartureAirport.ID, Name: strPtr(f.DepartureAirport.Name)},
			Destination:     models.Airport{Code: f.ArrivalAirport.ID, Name: strPtr(f.ArrivalAirport.Name)},
			Departure:       dep,
			DepartureZone:   timezone.ZoneName(f.DepartureAirport.ID),
			Arrival:         arr,
			ArrivalZone:     timezone.ZoneName(f.ArrivalAirport.ID),
			DurationMinutes: f.Duration,
			Airline:         strPtr(f.Airline),
			FlightNumber:    strPtr(f.FlightNumber),
			Aircraft:        strPtr(f.Airplane),
		})
		if f.Airline != "" {
			airlines = append(airlines, f.Airline)
		}
	}

	isBest := best
	rec := Record{
		Segments:             segments,
		Airlines:             airlines,
		IsBest:               &isBest,
		TotalDurationMinutes: opt.TotalDuration,
		Stops:                intPtr(len(segments) - 1),
		Token:                strPtr(opt.DepartureToken),
	}
	if opt.Price != nil {
		rec.Price = &models.Price{Amount: *opt.Price, Currency: currency}
	}
	if ce := opt.CarbonEmissions; ce != nil && ce.ThisFlight != nil {
		rec.Carbon = &models.CarbonEmissions{
			ThisFlightGrams:      *ce.ThisFlight,
			TypicalForRouteGrams: ce.TypicalForThisRoute,
			DifferencePercent:    ce.DifferencePercent,
		}
	}
	return rec, nil
}

func isNoResults(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "hasn't returned any results") || strings.Contains(msg, "no results")
}
