package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/dharmasatrya/flightfinder/internal/models"
	"github.com/dharmasatrya/flightfinder/internal/timezone"
)

const ScrapeName = "scrape"

type scrapeRequest struct {
	FlightData []scrapeLeg      `json:"flight_data"`
	Trip       string           `json:"trip"`
	Seat       string           `json:"seat"`
	Passengers scrapePassengers `json:"passengers"`
	MaxStops   *int             `json:"max_stops,omitempty"`
	FetchMode  string           `json:"fetch_mode,omitempty"`
}

type scrapeLeg struct {
	Date        string `json:"date"`
	FromAirport string `json:"from_airport"`
	ToAirport   string `json:"to_airport"`
}

type scrapePassengers struct {
	Adults        int `json:"adults"`
	Children      int `json:"children"`
	InfantsInSeat int `json:"infants_in_seat"`
	InfantsOnLap  int `json:"infants_on_lap"`
}

type scrapeResponse struct {
	CurrentPrice string            `json:"current_price"`
	Flights      []json.RawMessage `json:"flights"`
}

// scrapeLegacyFlight is the summary shape: one row per itinerary with
// display strings and an is_best marker, no per-segment data.
type scrapeLegacyFlight struct {
	IsBest           *bool           `json:"is_best"`
	Name             string          `json:"name"`
	Departure        string          `json:"departure"`
	Arrival          string          `json:"arrival"`
	ArrivalTimeAhead string          `json:"arrival_time_ahead"`
	Duration         string          `json:"duration"`
	Stops            json.RawMessage `json:"stops"`
	Price            json.RawMessage `json:"price"`
}

// scrapeSegmentedFlight is the structured shape: typed segments and carbon
// data, no is_best marker.
type scrapeSegmentedFlight struct {
	Type     string               `json:"type"`
	Price    json.RawMessage      `json:"price"`
	Airlines []string             `json:"airlines"`
	Flights  []scrapeSingleFlight `json:"flights"`
	Carbon   *scrapeCarbon        `json:"carbon"`
}

type scrapeSingleFlight struct {
	FromAirport scrapeAirport  `json:"from_airport"`
	ToAirport   scrapeAirport  `json:"to_airport"`
	Departure   scrapeDatetime `json:"departure"`
	Arrival     scrapeDatetime `json:"arrival"`
	Duration    *int           `json:"duration"`
	PlaneType   string         `json:"plane_type"`
}

type scrapeAirport struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type scrapeDatetime struct {
	Date []int `json:"date"`
	Time []int `json:"time"`
}

type scrapeCarbon struct {
	TypicalOnRoute *int `json:"typical_on_route"`
	Emission       *int `json:"emission"`
}

type ScrapeConfig struct {
	BaseURL string
	// FetchMode is forwarded to backends that support a reliability
	// fallback mode. Empty omits it.
	FetchMode string
	// Currency the backend's locale quotes prices in.
	Currency        string
	NativeRoundTrip bool
}

// ScrapeProvider talks to a Google Flights scraping backend.
type ScrapeProvider struct {
	cfg    ScrapeConfig
	caller httpCaller
}

func NewScrapeProvider(cfg ScrapeConfig, client *http.Client, logger *zap.Logger) (*ScrapeProvider, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("scrape: base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, errors.Wrap(err, "scrape: invalid base URL")
	}
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	if client == nil {
		client = NewHTTPClient(nil)
	}
	return &ScrapeProvider{
		cfg: cfg,
		caller: newHTTPCaller(ScrapeName, client, logger),
	}, nil
}

func (p *ScrapeProvider) Name() string {
	return ScrapeName
}

func (p *ScrapeProvider) Capabilities() Capabilities {
	return Capabilities{
		OneWay:          true,
		NativeRoundTrip: p.cfg.NativeRoundTrip,
		MultiCity:       true,
	}
}

func (p *ScrapeProvider) Search(ctx context.Context, req models.SearchRequest) ([]Record, error) {
	if req.TripType == models.TripRoundTrip && !p.cfg.NativeRoundTrip {
		return nil, NewProviderError(p.Name(), KindUpstreamRejected, ErrUnsupportedTrip)
	}
	if req.Currency != "" && !strings.EqualFold(req.Currency, p.cfg.Currency) {
		return nil, Rejected(p.Name(),
			"backend quotes prices in "+p.cfg.Currency+", not "+strings.ToUpper(req.Currency))
	}

	itinerary := req.Itinerary()
	body := scrapeRequest{
		Trip: string(req.TripType),
		Seat: string(req.CabinClass),
		Passengers: scrapePassengers{
			Adults:        req.Passengers.Adults,
			Children:      req.Passengers.Children,
			InfantsInSeat: req.Passengers.InfantsInSeat,
			InfantsOnLap:  req.Passengers.InfantsOnLap,
		},
		MaxStops:  req.MaxStops,
		FetchMode: p.cfg.FetchMode,
	}
	for _, leg := range itinerary {
		body.FlightData = append(body.FlightData, scrapeLeg{
			Date:        leg.Date,
			FromAirport: leg.Origin,
			ToAirport:   leg.Destination,
		})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "scrape: encoding request")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(p.cfg.BaseURL, "/")+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "scrape: building request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	var resp scrapeResponse
	if err := p.caller.do(httpReq, &resp); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(resp.Flights))
	for i, raw := range resp.Flights {
		rec, err := p.convert(raw, itinerary)
		if err != nil {
			p.caller.logger.Warn("skipping unparseable scrape result",
				zap.Int("index", i), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 && len(resp.Flights) > 0 {
		return nil, NewProviderError(p.Name(), KindMalformedResponse,
			errors.Newf("none of %d results could be parsed", len(resp.Flights)))
	}
	return records, nil
}

// convert dispatches on the result shape. The structured shape is the only
// one carrying a "flights" array.
func (p *ScrapeProvider) convert(raw json.RawMessage, itinerary []models.Leg) (Record, error) {
	var shape struct {
		Flights json.RawMessage `json:"flights"`
	}
	if err := json.Unmarshal(raw, &shape); err != nil {
		return Record{}, err
	}
	if len(shape.Flights) > 0 && string(shape.Flights) != "null" {
		var f scrapeSegmentedFlight
		if err := json.Unmarshal(raw, &f); err != nil {
			return Record{}, err
		}
		return p.convertSegmented(f, itinerary)
	}
	var f scrapeLegacyFlight
	if err := json.Unmarshal(raw, &f); err != nil {
		return Record{}, err
	}
	return p.convertLegacy(f, itinerary)
}

func (p *ScrapeProvider) convertLegacy(f scrapeLegacyFlight, itinerary []models.Leg) (Record, error) {
	leg := itinerary[0]
	ref, err := time.Parse(models.DateLayout, leg.Date)
	if err != nil {
		return Record{}, err
	}
	dep, err := timezone.ParseClock(f.Departure, ref, leg.Origin)
	if err != nil {
		return Record{}, errors.Wrap(err, "departure")
	}
	arr, err := timezone.ParseClock(f.Arrival, ref, leg.Destination)
	if err != nil {
		return Record{}, errors.Wrap(err, "arrival")
	}
	if arr.Before(dep) {
		days := 1
		if n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(f.ArrivalTimeAhead), "+")); err == nil && n > 0 {
			days = n
		}
		arr = arr.AddDate(0, 0, days)
	}

	duration := parseHumanDuration(f.Duration)
	airlines := splitAirlines(f.Name)

	seg := models.Segment{
		Leg:             models.LegOutbound,
		Origin:          models.Airport{Code: leg.Origin},
		Destination:     models.Airport{Code: leg.Destination},
		Departure:       dep,
		DepartureZone:   timezone.ZoneName(leg.Origin),
		Arrival:         arr,
		ArrivalZone:     timezone.ZoneName(leg.Destination),
		DurationMinutes: duration,
	}
	if len(airlines) == 1 {
		seg.Airline = strPtr(airlines[0])
	}

	rec := Record{
		Price:    p.parsePrice(f.Price),
		Segments: []models.Segment{seg},
		Airlines: airlines,
		IsBest:   f.IsBest,
	}
	// The summary row only describes the first leg; whole-trip totals are
	// unknown for multi-leg searches.
	if len(itinerary) == 1 {
		rec.TotalDurationMinutes = duration
		rec.Stops = parseStops(f.Stops)
	}
	return rec, nil
}

func (p *ScrapeProvider) convertSegmented(f scrapeSegmentedFlight, itinerary []models.Leg) (Record, error) {
	segments := make([]models.Segment, 0, len(f.Flights))
	legIdx := 0
	for i, sf := range f.Flights {
		dep, err := sf.Departure.at(sf.FromAirport.Code)
		if err != nil {
			return Record{}, errors.Wrapf(err, "segment %d departure", i)
		}
		arr, err := sf.Arrival.at(sf.ToAirport.Code)
		if err != nil {
			return Record{}, errors.Wrapf(err, "segment %d arrival", i)
		}
		segments = append(segments, models.Segment{
			Leg:             legIdx,
			Origin:          models.Airport{Code: sf.FromAirport.Code, Name: strPtr(sf.FromAirport.Name)},
			Destination:     models.Airport{Code: sf.ToAirport.Code, Name: strPtr(sf.ToAirport.Name)},
			Departure:       dep,
			DepartureZone:   timezone.ZoneName(sf.FromAirport.Code),
			Arrival:         arr,
			ArrivalZone:     timezone.ZoneName(sf.ToAirport.Code),
			DurationMinutes: sf.Duration,
			Aircraft:        strPtr(sf.PlaneType),
		})
		if legIdx < len(itinerary)-1 && strings.EqualFold(sf.ToAirport.Code, itinerary[legIdx].Destination) {
			legIdx++
		}
	}
	if len(segments) == 0 {
		return Record{}, errors.New("no segments")
	}

	rec := Record{
		Price:                p.parsePrice(f.Price),
		Segments:             segments,
		Airlines:             f.Airlines,
		TotalDurationMinutes: legSpanMinutes(segments),
		Stops:                countStops(segments),
	}
	if f.Carbon != nil && f.Carbon.Emission != nil {
		rec.Carbon = &models.CarbonEmissions{
			ThisFlightGrams:      *f.Carbon.Emission,
			TypicalForRouteGrams: f.Carbon.TypicalOnRoute,
		}
	}
	return rec, nil
}

func (d scrapeDatetime) at(airport string) (time.Time, error) {
	if len(d.Date) != 3 || len(d.Time) < 2 {
		return time.Time{}, errors.Newf("incomplete datetime %v %v", d.Date, d.Time)
	}
	return timezone.FromParts(d.Date[0], d.Date[1], d.Date[2], d.Time[0], d.Time[1], airport), nil
}

// parsePrice accepts the integer form and display strings such as "$1,299".
// Anything else (e.g. "Price unavailable") is unknown.
func (p *ScrapeProvider) parsePrice(raw json.RawMessage) *models.Price {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var amount float64
	if err := json.Unmarshal(raw, &amount); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		v, ok := parseDisplayPrice(s)
		if !ok {
			return nil
		}
		amount = v
	}
	return &models.Price{Amount: amount, Currency: p.cfg.Currency}
}

var displayPriceRe = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

func parseDisplayPrice(s string) (float64, bool) {
	m := displayPriceRe.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseStops(raw json.RawMessage) *int {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil && n >= 0 {
		return &n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "nonstop" || s == "non-stop" {
		return intPtr(0)
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	if n, err := strconv.Atoi(fields[0]); err == nil && n >= 0 {
		return &n
	}
	return nil
}

var humanDurationRe = regexp.MustCompile(`(?:(\d+)\s*hr?s?)?\s*(?:(\d+)\s*min)?`)

// parseHumanDuration reads "5 hr 30 min", "2 hrs" or "45 min".
func parseHumanDuration(s string) *int {
	m := humanDurationRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil || (m[1] == "" && m[2] == "") {
		return nil
	}
	total := 0
	if m[1] != "" {
		h, _ := strconv.Atoi(m[1])
		total += h * 60
	}
	if m[2] != "" {
		mins, _ := strconv.Atoi(m[2])
		total += mins
	}
	return &total
}

func splitAirlines(name string) []string {
	var out []string
	for _, part := range strings.Split(name, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
