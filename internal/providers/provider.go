package providers

import (
	"context"
	"sync"

	"github.com/dharmasatrya/flightfinder/internal/models"
)

// Capabilities describes which trip shapes a provider can answer and how.
type Capabilities struct {
	OneWay bool `json:"one_way"`
	// NativeRoundTrip providers return complete round-trip packages from Search.
	NativeRoundTrip bool `json:"native_round_trip"`
	MultiCity       bool `json:"multi_city"`
	// TokenPagination providers implement TokenPaginator and need the
	// outbound-then-return flow for round trips.
	TokenPagination bool `json:"token_pagination"`
}

type Provider interface {
	Name() string
	Capabilities() Capabilities
	Search(ctx context.Context, req models.SearchRequest) ([]Record, error)
}

// TokenPaginator is implemented by providers whose round trips are fetched
// as an outbound query followed by one return query per departure token.
type TokenPaginator interface {
	Provider
	// SearchOutbound returns outbound options for a round-trip request. Every
	// usable record carries a Token.
	SearchOutbound(ctx context.Context, req models.SearchRequest) ([]Record, error)
	// SearchReturn returns the return options the provider pairs with the
	// outbound option identified by token. Each record's price is the
	// combined price of that pairing.
	SearchReturn(ctx context.Context, req models.SearchRequest, token string) ([]Record, error)
}

// Record is the strict intermediate form every adapter converts its wire
// shape into. Pointer fields are nil when the provider did not report them.
type Record struct {
	Price                *models.Price
	Segments             []models.Segment
	Airlines             []string
	IsBest               *bool
	TotalDurationMinutes *int
	Stops                *int
	Carbon               *models.CarbonEmissions
	BookingURL           *string
	Token                *string
}

// Extras carries search-level data some providers return next to the
// records.
type Extras struct {
	BookingURL    *string
	PriceInsights *models.PriceInsights
}

type extrasKey struct{}

// ExtrasCollector receives Extras reported by an adapter during one search.
// It lives in the search context so adapters stay stateless.
type ExtrasCollector struct {
	mu     sync.Mutex
	extras Extras
	set    bool
}

func WithExtrasCollector(ctx context.Context) (context.Context, *ExtrasCollector) {
	c := &ExtrasCollector{}
	return context.WithValue(ctx, extrasKey{}, c), c
}

// ReportExtras stores e in the collector attached to ctx, if any. The first
// report wins.
func ReportExtras(ctx context.Context, e Extras) {
	c, ok := ctx.Value(extrasKey{}).(*ExtrasCollector)
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.set {
		return
	}
	c.extras = e
	c.set = true
}

func (c *ExtrasCollector) Extras() (Extras, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.extras, c.set
}
