package app

import (
	"context"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/text/language"

	"github.com/dharmasatrya/flightfinder/internal/cache"
	"github.com/dharmasatrya/flightfinder/internal/config"
	"github.com/dharmasatrya/flightfinder/internal/fallback"
	"github.com/dharmasatrya/flightfinder/internal/normalize"
	"github.com/dharmasatrya/flightfinder/internal/providers"
	"github.com/dharmasatrya/flightfinder/internal/ratelimit"
	"github.com/dharmasatrya/flightfinder/internal/roundtrip"
	"github.com/dharmasatrya/flightfinder/pkg/currency"
)

const amadeusTokenPath = "/v1/security/oauth2/token"

type App struct {
	Service     *Service
	Coordinator *fallback.Coordinator
	Cache       cache.Cache
	Logger      *zap.Logger
}

// New wires providers, coordinator and cache from cfg. Providers without an
// endpoint or credentials are left out of the fallback order.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	providerList, err := BuildProviders(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(providerList))
	for i, p := range providerList {
		names[i] = p.Name()
	}
	logger.Info("providers configured", zap.Strings("order", names))

	limiter := ratelimit.NewProviderLimiter(
		ratelimit.Limit{RequestsPerSecond: cfg.RateLimit.DefaultRPS, Burst: cfg.RateLimit.DefaultBurst},
		providerLimits(cfg.RateLimit.Providers),
	)

	resolver := roundtrip.NewResolver(roundtrip.Config{
		MaxOutboundExpansions: cfg.RoundTrip.MaxOutboundExpansions,
		Concurrency:           cfg.RoundTrip.Concurrency,
	}, logger)

	coordinator := fallback.NewCoordinator(
		providerList,
		resolver,
		normalize.New(currency.NewFormatter(language.English)),
		fallback.Config{
			CallTimeout:    cfg.Search.CallTimeout,
			OverallTimeout: cfg.Search.OverallTimeout,
			RateLimiter:    limiter,
		},
		logger,
	)

	var resultCache cache.Cache = cache.NewNoOpCache()
	if cfg.Cache.Enabled {
		redisCache, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			TTL:      cfg.Cache.TTL,
		}, logger)
		if err != nil {
			return nil, err
		}
		resultCache = redisCache
		logger.Info("redis cache enabled",
			zap.String("addr", cfg.Cache.RedisAddr),
			zap.Duration("ttl", cfg.Cache.TTL))
	}

	return &App{
		Service:     NewService(coordinator, resultCache, logger),
		Coordinator: coordinator,
		Cache:       resultCache,
		Logger:      logger,
	}, nil
}

func (a *App) Close() error {
	return a.Cache.Close()
}

// BuildProviders constructs the configured providers in fallback order.
func BuildProviders(ctx context.Context, cfg *config.Config, logger *zap.Logger) ([]providers.Provider, error) {
	var list []providers.Provider
	for _, name := range cfg.Providers.Order {
		var (
			p   providers.Provider
			err error
		)
		switch name {
		case config.ProviderScrape:
			if !cfg.Scrape.Configured() {
				logger.Info("provider not configured, skipping", zap.String("provider", name))
				continue
			}
			p, err = providers.NewScrapeProvider(providers.ScrapeConfig{
				BaseURL:         cfg.Scrape.BaseURL,
				FetchMode:       cfg.Scrape.FetchMode,
				Currency:        cfg.Scrape.Currency,
				NativeRoundTrip: cfg.Scrape.NativeRoundTrip,
			}, nil, logger)
		case config.ProviderAggregator:
			if !cfg.Aggregator.Configured() {
				logger.Info("provider not configured, skipping", zap.String("provider", name))
				continue
			}
			p, err = providers.NewAggregatorProvider(providers.AggregatorConfig{
				BaseURL:  cfg.Aggregator.BaseURL,
				APIKey:   cfg.Aggregator.APIKey,
				Currency: cfg.Aggregator.Currency,
			}, nil, logger)
		case config.ProviderAmadeus:
			if !cfg.Amadeus.Configured() {
				logger.Info("provider not configured, skipping", zap.String("provider", name))
				continue
			}
			p, err = providers.NewAmadeusProvider(providers.AmadeusConfig{
				BaseURL:    cfg.Amadeus.BaseURL,
				MaxResults: cfg.Amadeus.MaxResults,
				Currency:   cfg.Amadeus.Currency,
			}, amadeusTokenSource(ctx, cfg.Amadeus), logger)
		default:
			return nil, errors.Newf("unknown provider %q", name)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "building provider %s", name)
		}
		list = append(list, p)
	}
	return list, nil
}

// amadeusTokenSource exchanges the client credentials for bearer tokens and
// caches them until they expire.
func amadeusTokenSource(ctx context.Context, cfg config.AmadeusConfig) oauth2.TokenSource {
	tokenURL, err := url.JoinPath(strings.TrimRight(cfg.BaseURL, "/"), amadeusTokenPath)
	if err != nil {
		tokenURL = strings.TrimRight(cfg.BaseURL, "/") + amadeusTokenPath
	}
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	return cc.TokenSource(context.WithoutCancel(ctx))
}

func providerLimits(in map[string]config.ProviderRate) map[string]ratelimit.Limit {
	out := make(map[string]ratelimit.Limit, len(in))
	for name, r := range in {
		out[name] = ratelimit.Limit{RequestsPerSecond: r.RPS, Burst: r.Burst}
	}
	return out
}
