package app

import (
	"context"
	"math"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dharmasatrya/flightfinder/internal/fallback"
	"github.com/dharmasatrya/flightfinder/internal/models"
	"github.com/dharmasatrya/flightfinder/internal/ranking"
)

// stepResult is the outcome of one search inside a comparison. A failed step
// carries an error detail instead of failing the whole comparison.
type stepResult struct {
	result *models.SearchResult
	err    *models.ErrorDetail
}

// step runs one search of a comparison. Only cancellation of ctx is fatal.
func (s *Service) step(ctx context.Context, req models.SearchRequest) (stepResult, error) {
	if err := ctx.Err(); err != nil {
		return stepResult{}, errors.Wrap(err, "comparison interrupted")
	}
	result, _, err := s.lookup(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return stepResult{}, errors.Wrap(ctx.Err(), "comparison interrupted")
		}
		return stepResult{err: errorDetail(err)}, nil
	}
	return stepResult{result: result}, nil
}

func errorDetail(err error) *models.ErrorDetail {
	var se *fallback.SearchError
	if errors.As(err, &se) {
		return &models.ErrorDetail{Kind: se.Kind, Message: se.Message}
	}
	var ve models.ValidationError
	if errors.As(err, &ve) {
		return &models.ErrorDetail{Kind: "validation_error", Message: ve.Error()}
	}
	return &models.ErrorDetail{Kind: "internal_error", Message: err.Error()}
}

// SearchDateRange searches every departure/return pair of the window, one
// round-trip search per pair, and reports the cheapest pair.
func (s *Service) SearchDateRange(ctx context.Context, req models.DateRangeRequest) (*models.DateRangeResponse, error) {
	pairs, err := req.Pairs()
	if err != nil {
		return nil, err
	}
	if err := req.Request(pairs[0]).Validate(); err != nil {
		return nil, err
	}

	resp := &models.DateRangeResponse{
		SearchID:            uuid.NewString(),
		Request:             req,
		CombinationsChecked: len(pairs),
		Results:             make([]models.DatePairResult, 0, len(pairs)),
	}
	var best *models.FlightOption
	for i, pair := range pairs {
		s.logger.Debug("date range pair",
			zap.String("departure_date", pair.DepartureDate),
			zap.String("return_date", pair.ReturnDate),
			zap.Int("n", i+1), zap.Int("of", len(pairs)))

		st, err := s.step(ctx, req.Request(pair))
		if err != nil {
			return nil, err
		}
		pr := models.DatePairResult{DatePair: pair, Flights: []models.FlightOption{}, Error: st.err}
		if st.result != nil {
			pr.DataSource = st.result.DataSource
			pr.Partial = st.result.Partial
			pr.Flights = st.result.Options
			if cheapest, ok := ranking.Cheapest(st.result.Options); ok {
				if req.CheapestOnly {
					pr.Flights = []models.FlightOption{cheapest}
				}
				if best == nil || cheapest.Price.Amount < best.Price.Amount {
					best = &cheapest
					resp.Cheapest = &models.DatePairResult{
						DatePair:   pair,
						DataSource: pr.DataSource,
						Flights:    []models.FlightOption{cheapest},
					}
				}
			}
		}
		resp.Results = append(resp.Results, pr)
	}
	return resp, nil
}

// CompareNearbyAirports searches every origin/destination combination one
// way and ranks the routes by their cheapest option.
func (s *Service) CompareNearbyAirports(ctx context.Context, req models.NearbyAirportsRequest) (*models.NearbyAirportsResponse, error) {
	routes, err := req.Routes()
	if err != nil {
		return nil, err
	}
	if err := req.Request(routes[0][0], routes[0][1]).Validate(); err != nil {
		return nil, err
	}

	results := make([]models.RouteResult, 0, len(routes))
	for _, route := range routes {
		st, err := s.step(ctx, req.Request(route[0], route[1]))
		if err != nil {
			return nil, err
		}
		rr := models.RouteResult{Origin: route[0], Destination: route[1], Error: st.err}
		if st.result != nil {
			rr.DataSource = st.result.DataSource
			rr.TotalOptions = len(st.result.Options)
			if cheapest, ok := ranking.Cheapest(st.result.Options); ok {
				rr.Cheapest = &cheapest
			}
		}
		results = append(results, rr)
	}

	// priced routes first, cheapest first; the rest keep request order
	sort.SliceStable(results, func(i, j int) bool {
		pi, iok := routePrice(results[i])
		pj, jok := routePrice(results[j])
		if iok != jok {
			return iok
		}
		return iok && pi < pj
	})

	resp := &models.NearbyAirportsResponse{
		SearchID:            uuid.NewString(),
		Request:             req,
		CombinationsChecked: len(routes),
		Routes:              results,
	}
	for _, r := range results {
		if _, ok := routePrice(r); ok {
			resp.PricedRoutes++
		}
	}
	if resp.PricedRoutes > 0 {
		bestDeal := results[0]
		resp.BestDeal = &bestDeal
	}
	return resp, nil
}

func routePrice(r models.RouteResult) (float64, bool) {
	if r.Cheapest == nil || r.Cheapest.Price == nil {
		return 0, false
	}
	return r.Cheapest.Price.Amount, true
}

// CompareTickets prices the round trip against two one-way tickets and
// recommends the cheaper booking.
func (s *Service) CompareTickets(ctx context.Context, req models.TicketComparisonRequest) (*models.TicketComparisonResponse, error) {
	roundTrip := req.RoundTrip()
	if err := roundTrip.Validate(); err != nil {
		return nil, err
	}

	resp := &models.TicketComparisonResponse{
		SearchID: uuid.NewString(),
		Request:  req,
		Currency: roundTrip.Currency,
	}
	for _, st := range []struct {
		req models.SearchRequest
		dst *models.TicketOption
	}{
		{roundTrip, &resp.RoundTrip},
		{req.Outbound(), &resp.Outbound},
		{req.Inbound(), &resp.Inbound},
	} {
		res, err := s.step(ctx, st.req)
		if err != nil {
			return nil, err
		}
		*st.dst = ticketOption(res)
	}

	rt, rtOK := resp.RoundTrip.Price()
	out, outOK := resp.Outbound.Price()
	in, inOK := resp.Inbound.Price()
	owOK := outOK && inOK
	if rtOK {
		resp.RoundTripTotal = &rt
	}
	if owOK {
		total := roundCents(out + in)
		resp.OneWaysTotal = &total
	}

	switch {
	case !rtOK && !owOK:
		resp.Recommendation = models.RecommendNone
	case !rtOK:
		resp.Recommendation = models.RecommendOneWays
	case !owOK:
		resp.Recommendation = models.RecommendRoundTrip
	default:
		diff := roundCents(rt - *resp.OneWaysTotal)
		switch {
		case diff > 0:
			resp.Recommendation = models.RecommendOneWays
		case diff < 0:
			resp.Recommendation = models.RecommendRoundTrip
			diff = -diff
		default:
			resp.Recommendation = models.RecommendEither
		}
		resp.Savings = &diff
	}
	return resp, nil
}

func ticketOption(st stepResult) models.TicketOption {
	opt := models.TicketOption{Error: st.err}
	if st.result != nil {
		opt.DataSource = st.result.DataSource
		if cheapest, ok := ranking.Cheapest(st.result.Options); ok {
			opt.Flight = &cheapest
		}
	}
	return opt
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// TravelDates suggests dates daysFromNow days out for a stay of tripLength
// days.
func (s *Service) TravelDates(daysFromNow, tripLength int) (*models.TravelDates, error) {
	if daysFromNow < 0 || tripLength < 0 {
		return nil, models.ValidationError("days_from_now and trip_length must not be negative")
	}
	today := s.now()
	departure := today.AddDate(0, 0, daysFromNow)
	return &models.TravelDates{
		Today:              today.Format(models.DateLayout),
		DepartureDate:      departure.Format(models.DateLayout),
		ReturnDate:         departure.AddDate(0, 0, tripLength).Format(models.DateLayout),
		TripLengthDays:     tripLength,
		DaysUntilDeparture: daysFromNow,
	}, nil
}
