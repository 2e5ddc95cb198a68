package providers

import (
	"bytes"
	"context"
	"encoding/json"
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

const AmadeusName = "amadeus"

type amadeusResponse struct {
	Data         []amadeusOffer `json:"data"`
	Dictionaries struct {
		Carriers map[string]string `json:"carriers"`
		Aircraft map[string]string `json:"aircraft"`
	} `json:"dictionaries"`
}

type amadeusOffer struct {
	ID          string             `json:"id"`
	Itineraries []amadeusItinerary `json:"itineraries"`
	Price       struct {
		Currency   string `json:"currency"`
		Total      string `json:"total"`
		GrandTotal string `json:"grandTotal"`
	} `json:"price"`
}

type amadeusItinerary struct {
	Duration string           `json:"duration"`
	Segments []amadeusSegment `json:"segments"`
}

type amadeusSegment struct {
	Departure   amadeusEndpoint `json:"departure"`
	Arrival     amadeusEndpoint `json:"arrival"`
	CarrierCode string          `json:"carrierCode"`
	Number      string          `json:"number"`
	Aircraft    struct {
		Code string `json:"code"`
	} `json:"aircraft"`
	Duration string `json:"duration"`
}

type amadeusEndpoint struct {
	IATACode string `json:"iataCode"`
	At       string `json:"at"`
}

type amadeusMultiCityRequest struct {
	CurrencyCode       string                     `json:"currencyCode"`
	OriginDestinations []amadeusOriginDestination `json:"originDestinations"`
	Travelers          []amadeusTraveler          `json:"travelers"`
	Sources            []string                   `json:"sources"`
	SearchCriteria     amadeusSearchCriteria      `json:"searchCriteria"`
}

type amadeusOriginDestination struct {
	ID                      string `json:"id"`
	OriginLocationCode      string `json:"originLocationCode"`
	DestinationLocationCode string `json:"destinationLocationCode"`
	DepartureDateTimeRange  struct {
		Date string `json:"date"`
	} `json:"departureDateTimeRange"`
}

type amadeusTraveler struct {
	ID                string `json:"id"`
	TravelerType      string `json:"travelerType"`
	AssociatedAdultID string `json:"associatedAdultId,omitempty"`
}

type amadeusSearchCriteria struct {
	MaxFlightOffers int                  `json:"maxFlightOffers"`
	FlightFilters   amadeusFlightFilters `json:"flightFilters"`
}

type amadeusFlightFilters struct {
	CabinRestrictions     []amadeusCabinRestriction     `json:"cabinRestrictions"`
	ConnectionRestriction *amadeusConnectionRestriction `json:"connectionRestriction,omitempty"`
}

type amadeusCabinRestriction struct {
	Cabin                string   `json:"cabin"`
	Coverage             string   `json:"coverage"`
	OriginDestinationIDs []string `json:"originDestinationIds"`
}

type amadeusConnectionRestriction struct {
	MaxNumberOfConnections int `json:"maxNumberOfConnections"`
}

type AmadeusConfig struct {
	BaseURL    string
	MaxResults int
	Currency   string
}

// AmadeusProvider queries the Amadeus Self-Service flight offers API, which
// prices complete round trips and multi-city itineraries in one call.
type AmadeusProvider struct {
	cfg    AmadeusConfig
	caller httpCaller
}

// NewAmadeusProvider builds the adapter. ts supplies bearer tokens; in
// production it is a client-credentials source.
func NewAmadeusProvider(cfg AmadeusConfig, ts oauth2.TokenSource, logger *zap.Logger) (*AmadeusProvider, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("amadeus: base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, errors.Wrap(err, "amadeus: invalid base URL")
	}
	if ts == nil {
		return nil, errors.New("amadeus: token source is required")
	}
	if cfg.MaxResults <= 0 || cfg.MaxResults > 250 {
		cfg.MaxResults = 20
	}
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	return &AmadeusProvider{
		cfg: cfg,
		caller: newHTTPCaller(AmadeusName, NewHTTPClient(ts), logger),
	}, nil
}

func (p *AmadeusProvider) Name() string {
	return AmadeusName
}

func (p *AmadeusProvider) Capabilities() Capabilities {
	return Capabilities{
		OneWay:          true,
		NativeRoundTrip: true,
		MultiCity:       true,
	}
}

func (p *AmadeusProvider) Search(ctx context.Context, req models.SearchRequest) ([]Record, error) {
	if req.Passengers.InfantsInSeat > 0 {
		return nil, Rejected(p.Name(), "infants in seat are not supported")
	}

	var (
		httpReq *http.Request
		err     error
	)
	if req.TripType == models.TripMultiCity {
		httpReq, err = p.multiCityRequest(ctx, req)
	} else {
		httpReq, err = p.offersRequest(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/vnd.amadeus+json, application/json")

	var resp amadeusResponse
	if err := p.caller.do(httpReq, &resp); err != nil {
		return nil, err
	}

	itinerary := req.Itinerary()
	records := make([]Record, 0, len(resp.Data))
	for _, offer := range resp.Data {
		rec, err := p.convert(offer, resp, len(itinerary))
		if err != nil {
			p.caller.logger.Warn("skipping unparseable amadeus offer",
				zap.String("offer_id", offer.ID), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 && len(resp.Data) > 0 {
		return nil, NewProviderError(p.Name(), KindMalformedResponse,
			errors.New("no offer could be parsed"))
	}
	return records, nil
}

func (p *AmadeusProvider) offersRequest(ctx context.Context, req models.SearchRequest) (*http.Request, error) {
	q := url.Values{}
	q.Set("originLocationCode", req.Origin)
	q.Set("destinationLocationCode", req.Destination)
	q.Set("departureDate", req.DepartureDate)
	if req.TripType == models.TripRoundTrip && req.ReturnDate != nil {
		q.Set("returnDate", *req.ReturnDate)
	}
	q.Set("adults", strconv.Itoa(req.Passengers.Adults))
	if req.Passengers.Children > 0 {
		q.Set("children", strconv.Itoa(req.Passengers.Children))
	}
	if req.Passengers.InfantsOnLap > 0 {
		q.Set("infants", strconv.Itoa(req.Passengers.InfantsOnLap))
	}
	q.Set("travelClass", strings.ToUpper(string(req.CabinClass)))
	if req.MaxStops != nil && *req.MaxStops == 0 {
		q.Set("nonStop", "true")
	}
	q.Set("currencyCode", p.currency(req))
	q.Set("max", strconv.Itoa(p.cfg.MaxResults))

	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/v2/shopping/flight-offers?" + q.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "amadeus: building request")
	}
	return httpReq, nil
}

func (p *AmadeusProvider) currency(req models.SearchRequest) string {
	if req.Currency != "" {
		return strings.ToUpper(req.Currency)
	}
	return p.cfg.Currency
}

func (p *AmadeusProvider) multiCityRequest(ctx context.Context, req models.SearchRequest) (*http.Request, error) {
	body := amadeusMultiCityRequest{
		CurrencyCode: p.currency(req),
		Sources:      []string{"GDS"},
	}
	var ids []string
	for i, leg := range req.Legs {
		od := amadeusOriginDestination{
			ID:                      strconv.Itoa(i + 1),
			OriginLocationCode:      leg.Origin,
			DestinationLocationCode: leg.Destination,
		}
		od.DepartureDateTimeRange.Date = leg.Date
		body.OriginDestinations = append(body.OriginDestinations, od)
		ids = append(ids, od.ID)
	}

	n := 0
	add := func(kind string, count int, adultLinked bool) {
		for i := 0; i < count; i++ {
			n++
			t := amadeusTraveler{ID: strconv.Itoa(n), TravelerType: kind}
			if adultLinked {
				t.AssociatedAdultID = strconv.Itoa(i + 1)
			}
			body.Travelers = append(body.Travelers, t)
		}
	}
	add("ADULT", req.Passengers.Adults, false)
	add("CHILD", req.Passengers.Children, false)
	add("HELD_INFANT", req.Passengers.InfantsOnLap, true)

	body.SearchCriteria.MaxFlightOffers = p.cfg.MaxResults
	body.SearchCriteria.FlightFilters.CabinRestrictions = []amadeusCabinRestriction{{
		Cabin:                strings.ToUpper(string(req.CabinClass)),
		Coverage:             "MOST_SEGMENTS",
		OriginDestinationIDs: ids,
	}}
	if req.MaxStops != nil {
		body.SearchCriteria.FlightFilters.ConnectionRestriction = &amadeusConnectionRestriction{
			MaxNumberOfConnections: *req.MaxStops,
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "amadeus: encoding request")
	}
	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/v2/shopping/flight-offers"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "amadeus: building request")
	}
	httpReq.Header.Set("Content-Type", "application/vnd.amadeus+json")
	return httpReq, nil
}

func (p *AmadeusProvider) convert(offer amadeusOffer, resp amadeusResponse, legs int) (Record, error) {
	if len(offer.Itineraries) == 0 {
		return Record{}, errors.New("offer has no itineraries")
	}
	if len(offer.Itineraries) != legs {
		return Record{}, errors.Newf("offer has %d itineraries, want %d", len(offer.Itineraries), legs)
	}

	var (
		segments []models.Segment
		airlines []string
		seen     = map[string]bool{}
		total    = 0
		totalOK  = true
	)
	for legIdx, it := range offer.Itineraries {
		if d := parseISODuration(it.Duration); d != nil {
			total += *d
		} else {
			totalOK = false
		}
		for _, s := range it.Segments {
			dep, err := timezone.ParseLocal(s.Departure.At, s.Departure.IATACode)
			if err != nil {
				return Record{}, errors.Wrap(err, "segment departure")
			}
			arr, err := timezone.ParseLocal(s.Arrival.At, s.Arrival.IATACode)
			if err != nil {
				return Record{}, errors.Wrap(err, "segment arrival")
			}

			carrier := s.CarrierCode
			if name, ok := resp.Dictionaries.Carriers[carrier]; ok && name != "" {
				carrier = name
			}
			aircraft := s.Aircraft.Code
			if name, ok := resp.Dictionaries.Aircraft[aircraft]; ok && name != "" {
				aircraft = name
			}

			segments = append(segments, models.Segment{
				Leg:             legIdx,
				Origin:          models.Airport{Code: s.Departure.IATACode},
				Destination:     models.Airport{Code: s.Arrival.IATACode},
				Departure:       dep,
				DepartureZone:   timezone.ZoneName(s.Departure.IATACode),
				Arrival:         arr,
				ArrivalZone:     timezone.ZoneName(s.Arrival.IATACode),
				DurationMinutes: parseISODuration(s.Duration),
				Airline:         strPtr(carrier),
				FlightNumber:    flightNumber(s.CarrierCode, s.Number),
				Aircraft:        strPtr(aircraft),
			})
			if carrier != "" && !seen[carrier] {
				seen[carrier] = true
				airlines = append(airlines, carrier)
			}
		}
	}
	if len(segments) == 0 {
		return Record{}, errors.New("offer has no segments")
	}

	rec := Record{
		Segments: segments,
		Airlines: airlines,
		Stops:    countStops(segments),
	}
	if totalOK {
		rec.TotalDurationMinutes = &total
	}

	amount := offer.Price.GrandTotal
	if amount == "" {
		amount = offer.Price.Total
	}
	if v, err := strconv.ParseFloat(amount, 64); err == nil {
		currency := offer.Price.Currency
		if currency == "" {
			currency = p.cfg.Currency
		}
		rec.Price = &models.Price{Amount: v, Currency: currency}
	}
	return rec, nil
}

// flightNumber is nil unless both the carrier code and the number are known.
func flightNumber(carrier, number string) *string {
	if carrier == "" || number == "" {
		return nil
	}
	return strPtr(carrier + number)
}
