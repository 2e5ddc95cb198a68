package fallback

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dharmasatrya/flightfinder/internal/models"
	"github.com/dharmasatrya/flightfinder/internal/normalize"
	"github.com/dharmasatrya/flightfinder/internal/providers"
	"github.com/dharmasatrya/flightfinder/internal/ratelimit"
	"github.com/dharmasatrya/flightfinder/internal/roundtrip"
)

const (
	DefaultCallTimeout    = 20 * time.Second
	DefaultOverallTimeout = 45 * time.Second
)

type Config struct {
	// CallTimeout bounds each upstream call.
	CallTimeout time.Duration
	// OverallTimeout bounds a whole search across all providers.
	OverallTimeout time.Duration
	RateLimiter    *ratelimit.ProviderLimiter
}

// ProviderInfo describes one configured provider.
type ProviderInfo struct {
	Name         string                 `json:"name"`
	Capabilities providers.Capabilities `json:"capabilities"`
}

// Coordinator tries providers in a fixed order and returns the first
// successful provider's results. Results are never merged across providers.
type Coordinator struct {
	providers  []providers.Provider
	resolver   *roundtrip.Resolver
	normalizer *normalize.Normalizer
	config     Config
	logger     *zap.Logger
}

func NewCoordinator(providerList []providers.Provider, resolver *roundtrip.Resolver, normalizer *normalize.Normalizer, config Config, logger *zap.Logger) *Coordinator {
	if config.CallTimeout <= 0 {
		config.CallTimeout = DefaultCallTimeout
	}
	if config.OverallTimeout <= 0 {
		config.OverallTimeout = DefaultOverallTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if resolver == nil {
		resolver = roundtrip.NewResolver(roundtrip.DefaultConfig(), logger)
	}
	if normalizer == nil {
		normalizer = normalize.New(nil)
	}
	list := make([]providers.Provider, len(providerList))
	copy(list, providerList)
	return &Coordinator{
		providers:  list,
		resolver:   resolver,
		normalizer: normalizer,
		config:     config,
		logger:     logger,
	}
}

// Providers lists the configured providers in fallback order.
func (c *Coordinator) Providers() []ProviderInfo {
	infos := make([]ProviderInfo, 0, len(c.providers))
	for _, p := range c.providers {
		infos = append(infos, ProviderInfo{Name: p.Name(), Capabilities: p.Capabilities()})
	}
	return infos
}

// Search runs req against each provider in order until one succeeds. When
// every provider fails the error is a *SearchError.
func (c *Coordinator) Search(ctx context.Context, req models.SearchRequest) (*models.SearchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.OverallTimeout)
	defer cancel()

	var (
		attempts    []Attempt
		diagnostics []models.Diagnostic
	)
	for i, p := range c.providers {
		name := p.Name()
		log := c.logger.With(zap.String("provider", name), zap.String("trip_type", string(req.TripType)))

		result, err := c.searchProvider(ctx, p, req)
		if err == nil {
			result.Diagnostics = append(diagnostics, result.Diagnostics...)
			if result.Diagnostics == nil {
				result.Diagnostics = []models.Diagnostic{}
			}
			log.Info("search succeeded",
				zap.Int("results", len(result.Options)),
				zap.Bool("partial", result.Partial),
				zap.Int("providers_failed", len(attempts)))
			return result, nil
		}

		pe := providers.Classify(name, err)
		attempts = append(attempts, Attempt{
			Provider: name,
			Kind:     string(pe.Kind),
			Message:  pe.Reason,
		})
		diagnostics = append(diagnostics, models.Diagnostic{
			Provider: name,
			Stage:    models.StageSearch,
			Kind:     string(pe.Kind),
			Message:  pe.Reason,
		})
		log.Warn("provider failed, falling back",
			zap.String("kind", string(pe.Kind)),
			zap.Error(err))

		if ctx.Err() != nil {
			log.Warn("search deadline reached, not trying further providers")
			for _, skipped := range c.providers[i+1:] {
				attempts = append(attempts, Attempt{
					Provider: skipped.Name(),
					Kind:     string(providers.KindTimeout),
					Message:  notAttemptedMessage,
				})
			}
			break
		}
	}

	return nil, newSearchError(attempts)
}

func (c *Coordinator) searchProvider(ctx context.Context, p providers.Provider, req models.SearchRequest) (*models.SearchResult, error) {
	if err := supports(p, req); err != nil {
		return nil, err
	}

	gp := guard(p, c.config.RateLimiter, c.config.CallTimeout)
	ctx, collector := providers.WithExtrasCollector(ctx)

	var (
		records     []providers.Record
		partial     bool
		diagnostics []models.Diagnostic
	)
	if req.TripType == models.TripRoundTrip {
		res, err := c.resolver.Resolve(ctx, gp, req)
		if err != nil {
			return nil, err
		}
		records, partial, diagnostics = res.Records, res.Partial, res.Diagnostics
	} else {
		var err error
		records, err = gp.Search(ctx, req)
		if err != nil {
			return nil, err
		}
	}

	result := &models.SearchResult{
		DataSource:  p.Name(),
		Options:     c.normalizer.Normalize(p.Name(), req, records),
		Partial:     partial,
		Diagnostics: diagnostics,
		BookingURL:  normalize.BookingURL(req),
	}
	if extras, ok := collector.Extras(); ok {
		if extras.BookingURL != nil && *extras.BookingURL != "" {
			result.BookingURL = *extras.BookingURL
		}
		result.PriceInsights = extras.PriceInsights
	}
	return result, nil
}

// supports rejects trip types a provider cannot answer without calling it.
func supports(p providers.Provider, req models.SearchRequest) error {
	caps := p.Capabilities()
	var ok bool
	switch req.TripType {
	case models.TripOneWay:
		ok = caps.OneWay
	case models.TripRoundTrip:
		ok = caps.NativeRoundTrip || caps.TokenPagination
	case models.TripMultiCity:
		ok = caps.MultiCity
	}
	if !ok {
		return providers.NewProviderError(p.Name(), providers.KindUpstreamRejected, providers.ErrUnsupportedTrip)
	}
	return nil
}
