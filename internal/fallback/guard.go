package fallback

import (
	"context"
	"time"

	"github.com/dharmasatrya/flightfinder/internal/models"
	"github.com/dharmasatrya/flightfinder/internal/providers"
	"github.com/dharmasatrya/flightfinder/internal/ratelimit"
)

// guarded applies the rate limit and per-call timeout to every upstream call
// a provider makes, including each return-pairing call of a round trip.
type guarded struct {
	providers.Provider
	limiter *ratelimit.ProviderLimiter
	timeout time.Duration
}

type guardedPaginator struct {
	guarded
	tp providers.TokenPaginator
}

func guard(p providers.Provider, limiter *ratelimit.ProviderLimiter, timeout time.Duration) providers.Provider {
	g := guarded{Provider: p, limiter: limiter, timeout: timeout}
	if tp, ok := p.(providers.TokenPaginator); ok {
		return guardedPaginator{guarded: g, tp: tp}
	}
	return g
}

func (g guarded) call(ctx context.Context, fn func(context.Context) ([]providers.Record, error)) ([]providers.Record, error) {
	name := g.Provider.Name()
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx, name); err != nil {
			return nil, providers.NewProviderError(name, providers.KindTimeout, err)
		}
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	records, err := fn(ctx)
	if err != nil {
		return nil, providers.Classify(name, err)
	}
	return records, nil
}

func (g guarded) Search(ctx context.Context, req models.SearchRequest) ([]providers.Record, error) {
	return g.call(ctx, func(ctx context.Context) ([]providers.Record, error) {
		return g.Provider.Search(ctx, req)
	})
}

func (g guardedPaginator) SearchOutbound(ctx context.Context, req models.SearchRequest) ([]providers.Record, error) {
	return g.call(ctx, func(ctx context.Context) ([]providers.Record, error) {
		return g.tp.SearchOutbound(ctx, req)
	})
}

func (g guardedPaginator) SearchReturn(ctx context.Context, req models.SearchRequest, token string) ([]providers.Record, error) {
	return g.call(ctx, func(ctx context.Context) ([]providers.Record, error) {
		return g.tp.SearchReturn(ctx, req, token)
	})
}
