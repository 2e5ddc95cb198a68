package config

import (
	"github.com/cockroachdb/errors"
)

var ErrInvalidConfig = errors.New("invalid configuration")

func (c *Config) Validate() error {
	if c.Search.CallTimeout <= 0 {
		return errors.Wrap(ErrInvalidConfig, "search.call_timeout must be positive")
	}
	if c.Search.OverallTimeout <= 0 {
		return errors.Wrap(ErrInvalidConfig, "search.overall_timeout must be positive")
	}
	if c.RoundTrip.MaxOutboundExpansions <= 0 {
		return errors.Wrap(ErrInvalidConfig, "roundtrip.max_outbound_expansions must be positive")
	}
	if c.RoundTrip.Concurrency <= 0 {
		return errors.Wrap(ErrInvalidConfig, "roundtrip.concurrency must be positive")
	}
	if c.Amadeus.MaxResults < 1 || c.Amadeus.MaxResults > 250 {
		return errors.Wrap(ErrInvalidConfig, "amadeus.max_results must be between 1 and 250")
	}

	seen := make(map[string]bool, len(c.Providers.Order))
	for _, name := range c.Providers.Order {
		switch name {
		case ProviderScrape, ProviderAggregator, ProviderAmadeus:
		default:
			return errors.Wrapf(ErrInvalidConfig, "providers.order: unknown provider %q", name)
		}
		if seen[name] {
			return errors.Wrapf(ErrInvalidConfig, "providers.order: %q listed twice", name)
		}
		seen[name] = true
	}

	for name, r := range c.RateLimit.Providers {
		if r.RPS < 0 || r.Burst < 0 {
			return errors.Wrapf(ErrInvalidConfig, "ratelimit.providers.%s must not be negative", name)
		}
	}
	return nil
}
