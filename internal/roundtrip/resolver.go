package roundtrip

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/dharmasatrya/flightfinder/internal/models"
	"github.com/dharmasatrya/flightfinder/internal/providers"
)

const (
	DefaultMaxOutboundExpansions = 5
	DefaultConcurrency           = 5
)

type Config struct {
	// MaxOutboundExpansions caps how many outbound options are expanded
	// into return-pairing calls.
	MaxOutboundExpansions int
	// Concurrency bounds in-flight pairing calls. 1 runs them sequentially.
	Concurrency int
}

func DefaultConfig() Config {
	return Config{
		MaxOutboundExpansions: DefaultMaxOutboundExpansions,
		Concurrency:           DefaultConcurrency,
	}
}

// Result holds provider-endorsed round-trip packages. Partial is set when
// some expanded outbound option produced no pairings because its call failed
// or was abandoned at the deadline.
type Result struct {
	Records     []providers.Record
	Partial     bool
	Diagnostics []models.Diagnostic
}

// Resolver produces round-trip packages exactly as a provider prices them.
// Outbound and return legs are never searched independently and combined.
type Resolver struct {
	cfg    Config
	logger *zap.Logger
}

func NewResolver(cfg Config, logger *zap.Logger) *Resolver {
	if cfg.MaxOutboundExpansions <= 0 {
		cfg.MaxOutboundExpansions = DefaultMaxOutboundExpansions
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Concurrency > cfg.MaxOutboundExpansions {
		cfg.Concurrency = cfg.MaxOutboundExpansions
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{cfg: cfg, logger: logger}
}

// Resolve answers a round-trip request through p. Native round-trip
// providers are passed through unchanged; token-paginated providers are
// driven through the outbound then return-pairing flow.
func (r *Resolver) Resolve(ctx context.Context, p providers.Provider, req models.SearchRequest) (Result, error) {
	if req.TripType != models.TripRoundTrip {
		return Result{}, providers.NewProviderError(p.Name(), providers.KindUpstreamRejected,
			errors.Wrapf(providers.ErrUnsupportedTrip, "resolver called for %s", req.TripType))
	}

	caps := p.Capabilities()
	if caps.NativeRoundTrip {
		records, err := p.Search(ctx, req)
		if err != nil {
			return Result{}, providers.Classify(p.Name(), err)
		}
		return Result{Records: records}, nil
	}

	tp, ok := p.(providers.TokenPaginator)
	if !caps.TokenPagination || !ok {
		return Result{}, providers.NewProviderError(p.Name(), providers.KindUpstreamRejected,
			errors.Wrap(providers.ErrUnsupportedTrip, "no round-trip support"))
	}
	return r.resolvePaginated(ctx, tp, req)
}

type candidate struct {
	index  int
	record providers.Record
}

type pairing struct {
	slot    int
	records []providers.Record
	err     error
}

func (r *Resolver) resolvePaginated(ctx context.Context, tp providers.TokenPaginator, req models.SearchRequest) (Result, error) {
	name := tp.Name()
	log := r.logger.With(zap.String("provider", name))

	outbound, err := tp.SearchOutbound(ctx, req)
	if err != nil {
		return Result{}, providers.Classify(name, err)
	}
	if len(outbound) == 0 {
		return Result{Records: []providers.Record{}}, nil
	}

	var (
		res        Result
		candidates []candidate
	)
	for i, rec := range outbound {
		if len(candidates) == r.cfg.MaxOutboundExpansions {
			break
		}
		if rec.Token == nil || *rec.Token == "" {
			res.Diagnostics = append(res.Diagnostics, diagnostic(name, models.StageOutbound,
				providers.KindMalformedResponse, "outbound option has no departure token", i))
			continue
		}
		candidates = append(candidates, candidate{index: i, record: rec})
	}
	if len(candidates) == 0 {
		return Result{}, providers.NewProviderError(name, providers.KindMalformedResponse,
			errors.Wrap(providers.ErrNoPairedReturnFlights, "no outbound option carried a departure token"))
	}

	pairings := r.expand(ctx, tp, req, candidates)

	var (
		succeeded int
		abandoned int
	)
	for slot, c := range candidates {
		pr, done := pairings[slot]
		switch {
		case !done:
			abandoned++
			res.Partial = true
			res.Diagnostics = append(res.Diagnostics, diagnostic(name, models.StagePairing,
				providers.KindTimeout, "abandoned at search deadline", c.index))
			log.Warn("return pairing abandoned", zap.Int("outbound_index", c.index))
		case pr.err != nil:
			pe := providers.Classify(name, pr.err)
			if ctx.Err() != nil && pe.Kind == providers.KindTimeout {
				abandoned++
			}
			res.Partial = true
			res.Diagnostics = append(res.Diagnostics, diagnostic(name, models.StagePairing,
				pe.Kind, pe.Reason, c.index))
			log.Warn("return pairing failed",
				zap.Int("outbound_index", c.index),
				zap.String("kind", string(pe.Kind)),
				zap.Error(pr.err))
		default:
			succeeded++
			for _, ret := range pr.records {
				res.Records = append(res.Records, combine(c.record, ret))
			}
		}
	}

	if len(res.Records) == 0 {
		kind := providers.KindUpstreamRejected
		if succeeded == 0 && abandoned == len(candidates) {
			kind = providers.KindTimeout
		}
		pe := providers.NewProviderError(name, kind, providers.ErrNoPairedReturnFlights)
		return Result{}, pe
	}

	log.Debug("round trip resolved",
		zap.Int("outbound_options", len(outbound)),
		zap.Int("expanded", len(candidates)),
		zap.Int("pairings", len(res.Records)),
		zap.Bool("partial", res.Partial))
	return res, nil
}

// expand issues one return-pairing call per candidate with bounded
// concurrency. Results are keyed by candidate slot so every pairing stays
// attributed to the outbound option whose token produced it. It returns as
// soon as ctx is done, leaving unfinished slots absent.
func (r *Resolver) expand(ctx context.Context, tp providers.TokenPaginator, req models.SearchRequest, candidates []candidate) map[int]pairing {
	sem := semaphore.NewWeighted(int64(r.cfg.Concurrency))
	resultCh := make(chan pairing, len(candidates))
	var wg sync.WaitGroup

	for slot, c := range candidates {
		wg.Add(1)
		go func(slot int, token string) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				resultCh <- pairing{slot: slot, err: err}
				return
			}
			defer sem.Release(1)

			records, err := tp.SearchReturn(ctx, req, token)
			resultCh <- pairing{slot: slot, records: records, err: err}
		}(slot, *c.record.Token)
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	collected := make(map[int]pairing, len(candidates))
	for len(collected) < len(candidates) {
		select {
		case pr, ok := <-resultCh:
			if !ok {
				return collected
			}
			collected[pr.slot] = pr
		case <-ctx.Done():
			// drain whatever already finished without waiting on the rest
			for {
				select {
				case pr, ok := <-resultCh:
					if !ok {
						return collected
					}
					collected[pr.slot] = pr
				default:
					return collected
				}
			}
		}
	}
	return collected
}

// combine joins an outbound option with one return option the provider
// paired with it. Price and best marker belong to the pairing.
func combine(out, ret providers.Record) providers.Record {
	segments := make([]models.Segment, 0, len(out.Segments)+len(ret.Segments))
	for _, s := range out.Segments {
		s.Leg = models.LegOutbound
		segments = append(segments, s)
	}
	for _, s := range ret.Segments {
		s.Leg = models.LegReturn
		segments = append(segments, s)
	}

	airlines := make([]string, 0, len(out.Airlines)+len(ret.Airlines))
	airlines = append(airlines, out.Airlines...)
	airlines = append(airlines, ret.Airlines...)

	return providers.Record{
		Price:                ret.Price,
		Segments:             segments,
		Airlines:             airlines,
		IsBest:               ret.IsBest,
		TotalDurationMinutes: sumKnown(out.TotalDurationMinutes, ret.TotalDurationMinutes),
		Stops:                sumKnown(out.Stops, ret.Stops),
		BookingURL:           ret.BookingURL,
	}
}

func sumKnown(a, b *int) *int {
	if a == nil || b == nil {
		return nil
	}
	v := *a + *b
	return &v
}

func diagnostic(provider, stage string, kind providers.ErrorKind, msg string, outboundIndex int) models.Diagnostic {
	idx := outboundIndex
	return models.Diagnostic{
		Provider:      provider,
		Stage:         stage,
		Kind:          string(kind),
		Message:       msg,
		OutboundIndex: &idx,
	}
}
